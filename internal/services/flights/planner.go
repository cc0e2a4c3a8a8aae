package flights

import (
	"math/rand"
	"time"

	"github.com/BearBump/ParcelBox/internal/integrations/flightstatus"
	"github.com/BearBump/ParcelBox/internal/models"
)

//go:generate mockery --name Rand --output ./mocks --outpkg mocks --structname Rand --filename Rand.go

type Rand interface {
	Intn(n int) int
}

type PlannerConfig struct {
	// Рейс уже в пути или вылетает в пределах ActiveWindow: проверяем часто.
	ActiveMinDelay time.Duration // default: 15 minutes
	ActiveMaxDelay time.Duration // default: 30 minutes
	ActiveWindow   time.Duration // default: 24 hours

	ScheduledDelay time.Duration // default: 6 hours

	Backoff1 time.Duration // default: 5 minutes
	Backoff2 time.Duration // default: 15 minutes
	Backoff3 time.Duration // default: 30 minutes
	Backoff4 time.Duration // default: 60 minutes
}

func DefaultPlannerConfig() PlannerConfig {
	return PlannerConfig{
		ActiveMinDelay: 15 * time.Minute,
		ActiveMaxDelay: 30 * time.Minute,
		ActiveWindow:   24 * time.Hour,

		ScheduledDelay: 6 * time.Hour,

		Backoff1: 5 * time.Minute,
		Backoff2: 15 * time.Minute,
		Backoff3: 30 * time.Minute,
		Backoff4: 60 * time.Minute,
	}
}

type Planner struct {
	cfg PlannerConfig
	r   Rand
}

func NewPlanner(cfg PlannerConfig, r Rand) *Planner {
	def := DefaultPlannerConfig()
	if cfg.ActiveMinDelay <= 0 {
		cfg.ActiveMinDelay = def.ActiveMinDelay
	}
	if cfg.ActiveMaxDelay <= 0 {
		cfg.ActiveMaxDelay = def.ActiveMaxDelay
	}
	if cfg.ActiveMaxDelay < cfg.ActiveMinDelay {
		cfg.ActiveMaxDelay = cfg.ActiveMinDelay
	}
	if cfg.ActiveWindow <= 0 {
		cfg.ActiveWindow = def.ActiveWindow
	}
	if cfg.ScheduledDelay <= 0 {
		cfg.ScheduledDelay = def.ScheduledDelay
	}
	if cfg.Backoff1 <= 0 {
		cfg.Backoff1 = def.Backoff1
	}
	if cfg.Backoff2 <= 0 {
		cfg.Backoff2 = def.Backoff2
	}
	if cfg.Backoff3 <= 0 {
		cfg.Backoff3 = def.Backoff3
	}
	if cfg.Backoff4 <= 0 {
		cfg.Backoff4 = def.Backoff4
	}
	if r == nil {
		r = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Planner{cfg: cfg, r: r}
}

// Active reports whether the flight is close enough to need frequent checks.
func (p *Planner) Active(t *models.Trip, now time.Time) bool {
	if t.Status == models.TripStatusInProgress {
		return true
	}
	return t.TripDate.Sub(now) <= p.cfg.ActiveWindow
}

func (p *Planner) Priority(t *models.Trip, now time.Time) string {
	if p.Active(t, now) {
		return flightstatus.PriorityHigh
	}
	return flightstatus.PriorityNormal
}

func (p *Planner) NextCheckDelay(t *models.Trip, now time.Time) time.Duration {
	if !p.Active(t, now) {
		return p.cfg.ScheduledDelay
	}
	min := p.cfg.ActiveMinDelay
	max := p.cfg.ActiveMaxDelay
	if max == min {
		return min
	}
	secMin := int(min.Seconds())
	secMax := int(max.Seconds())
	return time.Duration(secMin+p.r.Intn(secMax-secMin+1)) * time.Second
}

func (p *Planner) BackoffDelay(nextFailCount int32) time.Duration {
	switch {
	case nextFailCount <= 1:
		return p.cfg.Backoff1
	case nextFailCount == 2:
		return p.cfg.Backoff2
	case nextFailCount == 3:
		return p.cfg.Backoff3
	default:
		return p.cfg.Backoff4
	}
}
