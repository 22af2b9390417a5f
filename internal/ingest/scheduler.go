package ingest

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Scheduler runs periodic maintenance jobs such as re-importing the point
// catalog. Runs of the same job never overlap.
type Scheduler struct {
	cron    *cron.Cron
	timeout time.Duration
}

// NewScheduler evaluates cron expressions in UTC. Each run gets its own
// context bounded by timeout.
func NewScheduler(timeout time.Duration) *Scheduler {
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		timeout: timeout,
	}
}

// Add registers fn under a cron spec such as "0 3 * * *" or "@every 1h".
func (s *Scheduler) Add(spec, name string, fn func(ctx context.Context) error) error {
	_, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			zap.L().Error("scheduler: job failed", zap.String("job", name), zap.Error(err))
		}
	})
	if err != nil {
		return eris.Wrapf(err, "scheduler: add %s (%q)", name, spec)
	}
	zap.L().Info("scheduler: job registered", zap.String("job", name), zap.String("spec", spec))
	return nil
}

// AddIngest schedules a catalog import with the given options.
func (s *Scheduler) AddIngest(spec string, in *Ingester, opts Options) error {
	return s.Add(spec, "ingest", func(ctx context.Context) error {
		_, err := in.Run(ctx, opts)
		return err
	})
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop prevents new runs and waits for running ones to finish or ctx to end.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}

// Entries reports how many jobs are registered.
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}
