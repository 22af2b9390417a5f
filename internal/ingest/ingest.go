// Package ingest imports disposal points from the Warsaw municipal map server.
package ingest

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"wastejobs-backend/internal/models"
)

const defaultConcurrency = 3

// LayerFetcher downloads the raw features of one layer.
type LayerFetcher interface {
	Fetch(ctx context.Context, layer string) (*FeatureCollection, error)
}

// PointWriter persists imported points.
type PointWriter interface {
	InsertIgnoreDuplicates(ctx context.Context, points []models.DeliveryPoint) (int64, error)
	ReplaceAll(ctx context.Context, points []models.DeliveryPoint) (int64, error)
}

// Options select what a run does. Refresh replaces the whole catalog
// instead of adding unseen ids.
type Options struct {
	Refresh bool
	Layers  []string
}

type LayerResult struct {
	Layer    string          `json:"layer"`
	Category models.Category `json:"category"`
	Features int             `json:"features"`
	Points   int             `json:"points"`
	Skipped  int             `json:"skipped"`
	Error    string          `json:"error,omitempty"`
}

// Result summarises one run.
type Result struct {
	RunID    uuid.UUID     `json:"runId"`
	Layers   []LayerResult `json:"layers"`
	Stored   int64         `json:"stored"`
	Started  time.Time     `json:"started"`
	Finished time.Time     `json:"finished"`
}

// Failed counts layers that could not be fetched.
func (r *Result) Failed() int {
	n := 0
	for _, l := range r.Layers {
		if l.Error != "" {
			n++
		}
	}
	return n
}

type Ingester struct {
	fetcher     LayerFetcher
	store       PointWriter
	concurrency int
}

// NewIngester fetches up to concurrency layers at once.
func NewIngester(fetcher LayerFetcher, store PointWriter, concurrency int) *Ingester {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &Ingester{fetcher: fetcher, store: store, concurrency: concurrency}
}

// Run fetches every selected layer and stores the converted points. A layer
// that fails is logged and skipped. A refresh that fetched nothing leaves
// the existing catalog untouched.
func (in *Ingester) Run(ctx context.Context, opts Options) (*Result, error) {
	layers, err := SelectLayers(opts.Layers)
	if err != nil {
		return nil, err
	}

	res := &Result{
		RunID:   uuid.New(),
		Layers:  make([]LayerResult, len(layers)),
		Started: time.Now().UTC(),
	}
	log := zap.L().With(zap.String("run_id", res.RunID.String()), zap.Bool("refresh", opts.Refresh))
	log.Info("ingest: starting", zap.Int("layers", len(layers)))

	batches := make([][]models.DeliveryPoint, len(layers))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(in.concurrency)
	for i, layer := range layers {
		g.Go(func() error {
			lr := LayerResult{Layer: layer.Name, Category: layer.Category}
			fc, err := in.fetcher.Fetch(gctx, layer.Name)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				log.Warn("ingest: layer failed", zap.String("layer", layer.Name), zap.Error(err))
				lr.Error = err.Error()
				res.Layers[i] = lr
				return nil
			}

			lr.Features = len(fc.Features)
			points := make([]models.DeliveryPoint, 0, len(fc.Features))
			for _, f := range fc.Features {
				p, err := f.ToPoint(layer.Category)
				if err != nil {
					lr.Skipped++
					log.Debug("ingest: skipping feature", zap.String("layer", layer.Name), zap.Error(err))
					continue
				}
				points = append(points, p)
			}
			lr.Points = len(points)
			res.Layers[i] = lr
			batches[i] = points

			log.Info("ingest: layer fetched",
				zap.String("layer", layer.Name),
				zap.String("category", string(layer.Category)),
				zap.Int("features", lr.Features),
				zap.Int("points", lr.Points),
			)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "ingest: fetch layers")
	}

	var all []models.DeliveryPoint
	for _, b := range batches {
		all = append(all, b...)
	}

	switch {
	case opts.Refresh && len(all) == 0:
		log.Warn("ingest: refresh fetched no points, keeping existing catalog")
	case opts.Refresh:
		res.Stored, err = in.store.ReplaceAll(ctx, all)
	default:
		res.Stored, err = in.store.InsertIgnoreDuplicates(ctx, all)
	}
	if err != nil {
		return nil, eris.Wrap(err, "ingest: store points")
	}

	res.Finished = time.Now().UTC()
	log.Info("ingest: finished",
		zap.Int64("stored", res.Stored),
		zap.Int("failed_layers", res.Failed()),
		zap.Duration("took", res.Finished.Sub(res.Started)),
	)
	return res, nil
}
