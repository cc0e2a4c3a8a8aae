package flights

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/BearBump/ParcelBox/internal/broker/messages"
	"github.com/BearBump/ParcelBox/internal/integrations/flightstatus"
	"github.com/BearBump/ParcelBox/internal/models"
	"github.com/cenkalti/backoff/v4"
)

//go:generate mockery --name Repository --output ./mocks --outpkg mocks --structname MockRepository --filename Repository.go

type Repository interface {
	ClaimDueTrips(ctx context.Context, now time.Time, limit int, lease time.Duration) ([]*models.Trip, error)
}

type Resolver interface {
	Resolve(ctx context.Context, q flightstatus.Query) flightstatus.Result
}

type Producer interface {
	PublishJSON(ctx context.Context, topic, key, eventType string, v any) error
}

type RateLimiter interface {
	Allow(ctx context.Context, bucket string, limit int64, window time.Duration) (bool, int64, error)
}

const rateBucket = "flightstatus"

// Poller refreshes the flight snapshot of trips. It only publishes snapshots and never changes trip status.
type Poller struct {
	repo     Repository
	flights  Resolver
	producer Producer
	rl       RateLimiter

	topic string

	planner *Planner

	pollInterval       time.Duration
	batchSize          int
	concurrency        int
	lease              time.Duration
	rateLimitPerMinute int64
	publishRetries     uint64

	triggerCh chan struct{}

	startedAtUnixNano   int64
	lastCycleUnixNano   atomic.Int64
	lastTriggerUnixNano atomic.Int64
	totalClaimed        atomic.Int64
	totalProcessed      atomic.Int64
	totalFallbacks      atomic.Int64
	totalErrors         atomic.Int64
	inFlight            atomic.Int64
	lastErrorMu         sync.Mutex
	lastError           string
}

func New(repo Repository, flights Resolver, producer Producer, rl RateLimiter, topic string) *Poller {
	return &Poller{
		repo:               repo,
		flights:            flights,
		producer:           producer,
		rl:                 rl,
		topic:              topic,
		planner:            DefaultPlanner(),
		pollInterval:       30 * time.Second,
		batchSize:          50,
		concurrency:        4,
		lease:              5 * time.Minute,
		rateLimitPerMinute: 60,
		publishRetries:     9,
		triggerCh:          make(chan struct{}, 1),
		startedAtUnixNano:  time.Now().UTC().UnixNano(),
	}
}

func DefaultPlanner() *Planner {
	return NewPlanner(DefaultPlannerConfig(), nil)
}

func (p *Poller) WithSettings(pollInterval time.Duration, batchSize, concurrency int, lease time.Duration, rlPerMin int64) *Poller {
	if pollInterval > 0 {
		p.pollInterval = pollInterval
	}
	if batchSize > 0 {
		p.batchSize = batchSize
	}
	if concurrency > 0 {
		p.concurrency = concurrency
	}
	if lease > 0 {
		p.lease = lease
	}
	if rlPerMin > 0 {
		p.rateLimitPerMinute = rlPerMin
	}
	return p
}

func (p *Poller) WithPlanner(cfg PlannerConfig) *Poller {
	p.planner = NewPlanner(cfg, nil)
	return p
}

// Trigger forces an immediate poll cycle (best-effort, non-blocking).
func (p *Poller) Trigger() {
	p.lastTriggerUnixNano.Store(time.Now().UTC().UnixNano())
	select {
	case p.triggerCh <- struct{}{}:
	default:
	}
}

type Stats struct {
	StartedAt      time.Time  `json:"startedAt"`
	LastCycleAt    *time.Time `json:"lastCycleAt,omitempty"`
	LastTriggerAt  *time.Time `json:"lastTriggerAt,omitempty"`
	TotalClaimed   int64      `json:"totalClaimed"`
	TotalProcessed int64      `json:"totalProcessed"`
	TotalFallbacks int64      `json:"totalFallbacks"`
	TotalErrors    int64      `json:"totalErrors"`
	InFlight       int64      `json:"inFlight"`
	LastError      string     `json:"lastError,omitempty"`
}

func (p *Poller) Stats() Stats {
	st := Stats{
		StartedAt:      time.Unix(0, p.startedAtUnixNano).UTC(),
		TotalClaimed:   p.totalClaimed.Load(),
		TotalProcessed: p.totalProcessed.Load(),
		TotalFallbacks: p.totalFallbacks.Load(),
		TotalErrors:    p.totalErrors.Load(),
		InFlight:       p.inFlight.Load(),
	}
	if n := p.lastCycleUnixNano.Load(); n > 0 {
		t := time.Unix(0, n).UTC()
		st.LastCycleAt = &t
	}
	if n := p.lastTriggerUnixNano.Load(); n > 0 {
		t := time.Unix(0, n).UTC()
		st.LastTriggerAt = &t
	}
	p.lastErrorMu.Lock()
	st.LastError = p.lastError
	p.lastErrorMu.Unlock()
	return st
}

func (p *Poller) Run(ctx context.Context) error {
	t := time.NewTicker(p.pollInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			p.runOnce(ctx)
		case <-p.triggerCh:
			p.runOnce(ctx)
		}
	}
}

func (p *Poller) setLastError(err error) {
	p.lastErrorMu.Lock()
	p.lastError = err.Error()
	p.lastErrorMu.Unlock()
}

func (p *Poller) runOnce(ctx context.Context) {
	now := time.Now().UTC()
	p.lastCycleUnixNano.Store(now.UnixNano())

	trips, err := p.repo.ClaimDueTrips(ctx, now, p.batchSize, p.lease)
	if err != nil {
		slog.Error("claim due trips", "error", err.Error())
		p.setLastError(err)
		return
	}
	p.totalClaimed.Add(int64(len(trips)))

	sem := make(chan struct{}, p.concurrency)
	var wg sync.WaitGroup
	for _, trip := range trips {
		sem <- struct{}{}
		wg.Add(1)
		p.inFlight.Add(1)
		go func() {
			defer func() {
				p.inFlight.Add(-1)
				<-sem
				wg.Done()
			}()
			if err := p.processOne(ctx, trip); err != nil {
				p.totalErrors.Add(1)
				p.setLastError(err)
				slog.Error("process trip flight", "trip_id", trip.ID, "error", err.Error())
			}
			p.totalProcessed.Add(1)
		}()
	}
	wg.Wait()
}

func (p *Poller) processOne(ctx context.Context, trip *models.Trip) error {
	now := time.Now().UTC()

	if p.rl != nil && p.rateLimitPerMinute > 0 {
		allowed, n, err := p.rl.Allow(ctx, rateBucket, p.rateLimitPerMinute, time.Minute)
		if err != nil {
			return err
		}
		if !allowed {
			// Слишком много запросов в минуту: подождём немного, чтобы разгрузить провайдера.
			slog.Warn("flight status rate limit exceeded", "count", n)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(500 * time.Millisecond):
			}
		}
	}

	res := p.flights.Resolve(ctx, flightstatus.Query{
		FlightNumber: trip.FlightNumber,
		Date:         trip.TripDate,
		Priority:     p.planner.Priority(trip, now),
	})
	msg := messages.FlightStatusUpdated{
		Envelope:  messages.NewEnvelope(messages.TypeFlightStatusUpdated),
		TripID:    trip.ID,
		CheckedAt: now,
		Payload:   res.Payload,
		Fallback:  res.Fallback,
	}
	if res.Fallback {
		p.totalFallbacks.Add(1)
		msg.NextCheckAt = now.Add(p.planner.BackoffDelay(trip.CheckFailCount + 1))
	} else {
		msg.NextCheckAt = now.Add(p.planner.NextCheckDelay(trip, now))
	}

	key := strconv.FormatUint(trip.ID, 10)
	// Kafka может быть не готова сразу после старта docker compose.
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = 150 * time.Millisecond
	b := backoff.WithContext(backoff.WithMaxRetries(eb, p.publishRetries), ctx)
	return backoff.Retry(func() error {
		return p.producer.PublishJSON(ctx, p.topic, key, msg.EventType, msg)
	}, b)
}
