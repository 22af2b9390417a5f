package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/openai/openai-go/option"
	"go.uber.org/zap"

	"wastejobs-backend/internal/config"
	"wastejobs-backend/internal/database"
	"wastejobs-backend/internal/handlers"
	"wastejobs-backend/internal/ingest"
	"wastejobs-backend/internal/services"
	"wastejobs-backend/internal/services/directions"
	"wastejobs-backend/internal/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if err := config.InitLogger(cfg.Log); err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer zap.L().Sync() //nolint:errcheck

	if err := run(cfg); err != nil {
		zap.L().Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config) error {
	if err := cfg.ValidateServer(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := zap.L()
	log.Info("starting wastejobs backend",
		zap.String("store", cfg.Store.Driver),
		zap.Int("port", cfg.Server.Port),
	)

	db, err := database.Connect(cfg.Store.Driver, cfg.Store.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.MigrateContext(ctx, db); err != nil {
		return err
	}
	log.Info("database ready")

	jobs := database.NewJobRepository(db)
	points := database.NewPointRepository(db)

	hub := websocket.NewHub()
	go hub.Run(ctx)

	var classifierOpts []option.RequestOption
	if cfg.Classifier.BaseURL != "" {
		classifierOpts = append(classifierOpts, option.WithBaseURL(cfg.Classifier.BaseURL))
	}
	if cfg.Classifier.OpenAIAPIKey == "" {
		log.Warn("OPENAI_API_KEY not set, job submissions will fail classification")
	}
	classifier := services.NewOpenAIClassifier(cfg.Classifier.OpenAIAPIKey, cfg.Classifier.Model, classifierOpts...)

	var (
		routeCache *directions.RouteCache
		dirs       services.Directions
		geocoder   handlers.Geocoder
	)
	if cfg.Maps.APIKey != "" {
		routeCache = directions.NewRouteCache(cfg.Maps.RouteCacheMaxEntries, cfg.Maps.RouteCacheTTL())
		client, err := directions.NewClient(ctx, cfg.Maps.APIKey, cfg.Maps.DirectionsTimeout(), routeCache)
		if err != nil {
			return err
		}
		defer client.Close()
		dirs = client
		geocoder = services.NewGeocodingService(cfg.Maps.APIKey, cfg.Maps.GeocodingBaseURL, cfg.Maps.GeocodingRegion, cfg.Maps.GeocodingTimeout())
	} else {
		log.Warn("GOOGLE_MAPS_API_KEY not set, routes and geocoding disabled")
	}

	jobService := services.NewJobService(jobs, classifier, hub, cfg.Classifier.Timeout())
	matcher := services.NewMatcher(points, jobs, dirs, cfg.Matcher.RequireOpen)

	scheduler := ingest.NewScheduler(cfg.Ingest.RunTimeout())
	if cfg.Ingest.Schedule != "" {
		fetcher := ingest.NewHTTPFetcher(ingest.FetcherOptions{
			BaseURL:           cfg.Ingest.BaseURL,
			Query:             cfg.Ingest.Query,
			Timeout:           cfg.Ingest.Timeout(),
			RequestsPerSecond: cfg.Ingest.RequestsPerSecond,
		})
		ingester := ingest.NewIngester(fetcher, points, cfg.Ingest.Concurrency)
		if err := scheduler.AddIngest(cfg.Ingest.Schedule, ingester, ingest.Options{Refresh: cfg.Ingest.Refresh}); err != nil {
			return err
		}
	}
	if routeCache != nil && cfg.Maps.RouteCacheCleanup != "" {
		err := scheduler.Add(cfg.Maps.RouteCacheCleanup, "route-cache-cleanup", func(context.Context) error {
			if n := routeCache.Cleanup(); n > 0 {
				log.Debug("route cache cleanup", zap.Int("expired", n))
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	scheduler.Start()

	router := handlers.NewRouter(handlers.Deps{
		Jobs:        jobService,
		Matcher:     matcher,
		Points:      points,
		Geocoder:    geocoder,
		RouteCache:  routeCache,
		Hub:         hub,
		JWTSecret:   cfg.Auth.JWTSecret,
		CORSOrigins: cfg.Server.CORSOrigins,
	})

	srv := &http.Server{
		Addr:    ":" + strconv.Itoa(cfg.Server.Port),
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout())
	defer cancel()
	scheduler.Stop(shutdownCtx)
	return srv.Shutdown(shutdownCtx)
}
