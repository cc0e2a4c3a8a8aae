package dispatches

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/BearBump/ParcelBox/internal/apperr"
	"github.com/BearBump/ParcelBox/internal/cache"
	"github.com/BearBump/ParcelBox/internal/models"
	"github.com/BearBump/ParcelBox/internal/storage/pgparcels"
)

//go:generate mockery --name Repository --output ./mocks --outpkg mocks --structname MockRepository --filename Repository.go
//go:generate mockery --name ChangeFeed --output ./mocks --outpkg mocks --structname MockChangeFeed --filename ChangeFeed.go

type Repository interface {
	GetPackagesByIDs(ctx context.Context, ids []uint64) ([]*models.Package, error)
	ListDispatchCandidates(ctx context.Context, tripID *uint64) ([]*models.Package, error)
	ListPackagesByDispatch(ctx context.Context, dispatchID uint64) ([]*models.Package, error)
	CreateDispatch(ctx context.Context, d pgparcels.DispatchDraft) (*models.Dispatch, []pgparcels.PackageChange, error)
	GetDispatch(ctx context.Context, id uint64) (*models.Dispatch, error)
	ListDispatchesByDate(ctx context.Context, date time.Time) ([]*models.Dispatch, error)
	ApplyDispatchTransition(ctx context.Context, tr pgparcels.DispatchTransition) (*pgparcels.DispatchTransitionResult, error)
}

type ChangeFeed interface {
	Committed(ctx context.Context, actor string, changes []pgparcels.PackageChange, keys ...string)
}

type Service struct {
	repo    Repository
	cache   cache.BytesCache
	feed    ChangeFeed
	viewTTL time.Duration
}

func New(repo Repository, c cache.BytesCache, feed ChangeFeed, viewTTL time.Duration) *Service {
	return &Service{repo: repo, cache: c, feed: feed, viewTTL: viewTTL}
}

// CreateDispatch bundles the eligible subset of the given packages into a new pending dispatch.
// Ineligible packages are dropped silently.
func (s *Service) CreateDispatch(ctx context.Context, in models.DispatchCreateInput) (*models.Dispatch, error) {
	if len(in.PackageIDs) == 0 {
		return nil, apperr.Validation("package ids are required")
	}
	if in.Date.IsZero() {
		return nil, apperr.Validation("dispatch date is required")
	}

	ids := make([]uint64, 0, len(in.PackageIDs))
	seen := make(map[uint64]struct{}, len(in.PackageIDs))
	for _, id := range in.PackageIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	pkgs, err := s.repo.GetPackagesByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	eligible := make([]*models.Package, 0, len(pkgs))
	var trips []uint64
	for _, p := range pkgs {
		if !dispatchable(p) {
			continue
		}
		eligible = append(eligible, p)
		if p.TripID != nil {
			trips = append(trips, *p.TripID)
		}
	}
	if len(eligible) == 0 {
		return nil, apperr.Validation("no eligible packages")
	}

	date := dateOnly(in.Date)
	d, changes, err := s.repo.CreateDispatch(ctx, pgparcels.DispatchDraft{
		Date:     date,
		Notes:    in.Notes,
		Actor:    in.Actor,
		Packages: eligible,
		Batches:  in.Batches,
	})
	if err != nil {
		return nil, err
	}

	keys := append(cache.PackageViewKeys(trips...), cache.DispatchesByDateKey(date))
	s.feed.Committed(ctx, in.Actor, changes, keys...)

	slog.Info("dispatch created", "dispatch_id", d.ID, "packages", d.Totals.PackageCount, "skipped", len(ids)-d.Totals.PackageCount)
	return d, nil
}

// ConfirmDispatch releases a pending dispatch: dispatch -> despachado, processed packages -> despatched.
func (s *Service) ConfirmDispatch(ctx context.Context, dispatchID uint64, actor string) (int, error) {
	d, err := s.repo.GetDispatch(ctx, dispatchID)
	if err != nil {
		return 0, err
	}
	if d.Status != models.DispatchStatusPending {
		return 0, apperr.Precondition("dispatch must be pending to confirm, got %s", d.Status)
	}
	return s.transition(ctx, d, transitionSpec{
		eligible:   func(st models.PackageStatus) bool { return st == models.PackageStatusProcessed },
		next:       models.DispatchStatusDispatched,
		packageTo:  models.PackageStatusDespatched,
		tripEffect: pgparcels.TripEffectNone,
		message:    "dispatch confirmed",
		actor:      actor,
	})
}

// MarkInTransit moves the dispatched packages of one dispatch to in_transit and starts the trip.
func (s *Service) MarkInTransit(ctx context.Context, dispatchID uint64, actor string) (int, error) {
	d, err := s.repo.GetDispatch(ctx, dispatchID)
	if err != nil {
		return 0, err
	}
	return s.transition(ctx, d, transitionSpec{
		eligible:   models.DispatchedSignal,
		next:       models.DispatchStatusInTransit,
		packageTo:  models.PackageStatusInTransit,
		tripEffect: pgparcels.TripEffectStart,
		message:    "in transit",
		actor:      actor,
	})
}

// MarkArrived moves in-transit packages of one dispatch to arrived_at_destination and closes
// the trip when all of its packages have arrived or been delivered.
func (s *Service) MarkArrived(ctx context.Context, dispatchID uint64, actor string) (int, error) {
	d, err := s.repo.GetDispatch(ctx, dispatchID)
	if err != nil {
		return 0, err
	}
	if d.Status != models.DispatchStatusInTransit {
		return 0, apperr.Precondition("dispatch must be in transit")
	}
	return s.transition(ctx, d, transitionSpec{
		eligible:   func(st models.PackageStatus) bool { return st == models.PackageStatusInTransit },
		next:       models.DispatchStatusArrived,
		packageTo:  models.PackageStatusArrived,
		tripEffect: pgparcels.TripEffectComplete,
		message:    "arrived at destination",
		actor:      actor,
	})
}

type transitionSpec struct {
	eligible   func(models.PackageStatus) bool
	next       models.DispatchStatus
	packageTo  models.PackageStatus
	tripEffect pgparcels.TripEffect
	message    string
	actor      string
}

func (s *Service) transition(ctx context.Context, d *models.Dispatch, ts transitionSpec) (int, error) {
	pkgs, err := s.repo.ListPackagesByDispatch(ctx, d.ID)
	if err != nil {
		return 0, err
	}

	selected := make([]*models.Package, 0, len(pkgs))
	var trips []uint64
	tripSeen := map[uint64]struct{}{}
	for _, p := range pkgs {
		if p.DeletedAt != nil || !ts.eligible(p.Status) {
			continue
		}
		selected = append(selected, p)
		if p.TripID != nil {
			if _, ok := tripSeen[*p.TripID]; !ok {
				tripSeen[*p.TripID] = struct{}{}
				trips = append(trips, *p.TripID)
			}
		}
	}
	if len(selected) == 0 {
		return 0, apperr.Precondition("no eligible packages")
	}

	res, err := s.repo.ApplyDispatchTransition(ctx, pgparcels.DispatchTransition{
		DispatchID:     d.ID,
		ExpectedStatus: d.Status,
		NextStatus:     ts.next,
		Packages:       selected,
		PackageTo:      ts.packageTo,
		TripIDs:        trips,
		TripEffect:     ts.tripEffect,
		Actor:          ts.actor,
		Message:        ts.message,
	})
	if err != nil {
		return 0, err
	}

	keys := []string{
		cache.DispatchKey(d.ID),
		cache.DispatchPackagesKey(d.ID),
		cache.DispatchesByDateKey(d.DispatchDate),
	}
	s.feed.Committed(ctx, ts.actor, res.Changes, keys...)

	for tripID, st := range res.TripStatuses {
		slog.Info("trip status changed", "trip_id", tripID, "status", st, "dispatch_id", d.ID)
	}
	slog.Info("dispatch transition", "dispatch_id", d.ID, "from", d.Status, "to", ts.next, "packages", len(res.Changes))
	return len(res.Changes), nil
}

func (s *Service) GetDispatch(ctx context.Context, id uint64) (*models.Dispatch, error) {
	if id == 0 {
		return nil, apperr.Validation("dispatch id is required")
	}
	return cached(ctx, s, cache.DispatchKey(id), func() (*models.Dispatch, error) {
		return s.repo.GetDispatch(ctx, id)
	})
}

func (s *Service) ListDispatchesByDate(ctx context.Context, date time.Time) ([]*models.Dispatch, error) {
	if date.IsZero() {
		return nil, apperr.Validation("date is required")
	}
	date = dateOnly(date)
	return cached(ctx, s, cache.DispatchesByDateKey(date), func() ([]*models.Dispatch, error) {
		return s.repo.ListDispatchesByDate(ctx, date)
	})
}

func (s *Service) ListDispatchPackages(ctx context.Context, dispatchID uint64) ([]*models.Package, error) {
	return cached(ctx, s, cache.DispatchPackagesKey(dispatchID), func() ([]*models.Package, error) {
		return s.repo.ListPackagesByDispatch(ctx, dispatchID)
	})
}

func (s *Service) ListDispatchCandidates(ctx context.Context, tripID *uint64) ([]*models.Package, error) {
	return cached(ctx, s, cache.CandidatesKey(tripID), func() ([]*models.Package, error) {
		return s.repo.ListDispatchCandidates(ctx, tripID)
	})
}

// cached is cache-aside over JSON: a broken or missing entry falls through to the loader.
func cached[T any](ctx context.Context, s *Service, key string, load func() (T, error)) (T, error) {
	if s.cache != nil && s.viewTTL > 0 {
		if b, ok, err := s.cache.Get(ctx, key); err == nil && ok {
			var v T
			if json.Unmarshal(b, &v) == nil {
				return v, nil
			}
		}
	}

	v, err := load()
	if err != nil {
		return v, err
	}

	if s.cache != nil && s.viewTTL > 0 {
		b, _ := json.Marshal(v)
		if err := s.cache.Set(ctx, key, b, s.viewTTL); err != nil {
			slog.Warn("cache set failed", "key", key, "error", err.Error())
		}
	}
	return v, nil
}

func dispatchable(p *models.Package) bool {
	return p.DeletedAt == nil && p.DispatchID == nil && models.DispatchEligible(p.Status)
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
