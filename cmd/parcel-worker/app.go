package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/BearBump/ParcelBox/config"
	"github.com/BearBump/ParcelBox/internal/broker/kafka"
	"github.com/BearBump/ParcelBox/internal/cache/rediscache"
	"github.com/BearBump/ParcelBox/internal/integrations/flightstatus"
	"github.com/BearBump/ParcelBox/internal/integrations/flightstatus/fake"
	"github.com/BearBump/ParcelBox/internal/integrations/flightstatus/httpclient"
	"github.com/BearBump/ParcelBox/internal/services/flights"
	"github.com/BearBump/ParcelBox/internal/storage/pgparcels"
	"golang.org/x/sync/errgroup"
)

type workerFactories struct {
	newStorage      func(cfg *config.Config) (repo flights.Repository, closeFn func(), err error)
	newProducer     func(cfg *config.Config) flights.Producer
	newRateLimiter  func(cfg *config.Config) flights.RateLimiter
	newFlightClient func(cfg *config.Config) flightstatus.Client
}

func defaultWorkerFactories() workerFactories {
	return workerFactories{
		newStorage: func(cfg *config.Config) (flights.Repository, func(), error) {
			sslMode := cfg.Database.SSLMode
			if sslMode == "" {
				sslMode = "disable"
			}
			connString := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
				cfg.Database.Username, cfg.Database.Password, cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName, sslMode)
			st, err := pgparcels.New(connString)
			if err != nil {
				return nil, nil, err
			}
			return st, st.Close, nil
		},
		newProducer: func(cfg *config.Config) flights.Producer {
			brokers := []string{fmt.Sprintf("%s:%d", cfg.Kafka.Host, cfg.Kafka.Port)}
			return kafka.NewProducer(brokers)
		},
		newRateLimiter: func(cfg *config.Config) flights.RateLimiter {
			redisAddr := fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
			return rediscache.NewRateLimiter(redisAddr)
		},
		newFlightClient: func(cfg *config.Config) flightstatus.Client {
			// Для демо без ключа провайдера используем детерминированный fake.
			if cfg.Flights.Mode == "http" && cfg.Flights.BaseURL != "" {
				return httpclient.New(cfg.Flights.BaseURL, cfg.Flights.APIKey)
			}
			return fake.New()
		},
	}
}

type workerSettings struct {
	topic        string
	pollInterval time.Duration
	batchSize    int
	concurrency  int
	lease        time.Duration
	rlPerMin     int64
	maxRetries   int
	initialRetry time.Duration
	planner      flights.PlannerConfig
}

func settingsFromConfig(cfg *config.Config) workerSettings {
	s := workerSettings{
		topic:        cfg.Kafka.FlightUpdatesTopic,
		pollInterval: time.Duration(cfg.ParcelBox.WorkerPollIntervalSeconds) * time.Second,
		batchSize:    cfg.ParcelBox.WorkerBatchSize,
		concurrency:  cfg.ParcelBox.WorkerConcurrency,
		lease:        time.Duration(cfg.ParcelBox.WorkerLeaseSeconds) * time.Second,
		rlPerMin:     int64(cfg.ParcelBox.WorkerRateLimitPerMinute),
		maxRetries:   cfg.Flights.MaxRetries,
		initialRetry: time.Duration(cfg.Flights.InitialBackoffMs) * time.Millisecond,
		planner: flights.PlannerConfig{
			ActiveMinDelay: time.Duration(cfg.ParcelBox.WorkerActiveMinSeconds) * time.Second,
			ActiveMaxDelay: time.Duration(cfg.ParcelBox.WorkerActiveMaxSeconds) * time.Second,
			ActiveWindow:   time.Duration(cfg.ParcelBox.WorkerActiveWindowSeconds) * time.Second,
			ScheduledDelay: time.Duration(cfg.ParcelBox.WorkerScheduledSeconds) * time.Second,
			Backoff1:       time.Duration(cfg.ParcelBox.WorkerBackoff1Seconds) * time.Second,
			Backoff2:       time.Duration(cfg.ParcelBox.WorkerBackoff2Seconds) * time.Second,
			Backoff3:       time.Duration(cfg.ParcelBox.WorkerBackoff3Seconds) * time.Second,
			Backoff4:       time.Duration(cfg.ParcelBox.WorkerBackoff4Seconds) * time.Second,
		},
	}
	if s.topic == "" {
		s.topic = "trip.flight_updates"
	}
	if s.pollInterval <= 0 {
		s.pollInterval = 30 * time.Second
	}
	if s.batchSize <= 0 {
		s.batchSize = 50
	}
	if s.concurrency <= 0 {
		s.concurrency = 4
	}
	if s.lease <= 0 {
		s.lease = 5 * time.Minute
	}
	if s.rlPerMin <= 0 {
		s.rlPerMin = 60
	}
	if s.maxRetries <= 0 {
		s.maxRetries = 3
	}
	return s
}

type workerRunOpts struct {
	httpAddr    string
	swaggerPath string
	onListen    func(httpAddr string)
	// httpDisabled skips the HTTP server, used by tests of the poll loop alone.
	httpDisabled bool
}

func RunParcelWorker(ctx context.Context, cfg *config.Config, f workerFactories, opts workerRunOpts) error {
	s := settingsFromConfig(cfg)

	repo, closeFn, err := f.newStorage(cfg)
	if err != nil {
		return err
	}
	if closeFn != nil {
		defer closeFn()
	}

	producer := f.newProducer(cfg)
	if c, ok := producer.(io.Closer); ok {
		defer c.Close()
	}
	rl := f.newRateLimiter(cfg)
	resolver := flightstatus.NewResolver(f.newFlightClient(cfg), s.maxRetries, s.initialRetry)

	p := flights.New(repo, resolver, producer, rl, s.topic).
		WithSettings(s.pollInterval, s.batchSize, s.concurrency, s.lease, s.rlPerMin).
		WithPlanner(s.planner)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return p.Run(gctx)
	})
	if !opts.httpDisabled {
		g.Go(func() error {
			return runWorkerHTTPServer(gctx, workerHTTPOpts{
				httpAddr:    opts.httpAddr,
				swaggerPath: opts.swaggerPath,
				onListen:    opts.onListen,
				poller:      p,
				settings:    s,
			})
		})
	}
	return g.Wait()
}
