package packages

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/BearBump/ParcelBox/internal/apperr"
	"github.com/BearBump/ParcelBox/internal/cache"
	"github.com/BearBump/ParcelBox/internal/models"
	"github.com/BearBump/ParcelBox/internal/storage/pgparcels"
	"github.com/pkg/errors"
)

//go:generate mockery --name Repository --output ./mocks --outpkg mocks --structname MockRepository --filename Repository.go

type Repository interface {
	CreatePackage(ctx context.Context, p *models.Package) (*models.Package, error)
	GetPackage(ctx context.Context, id uint64) (*models.Package, error)
	ListPackages(ctx context.Context, f models.PackageFilter) ([]*models.Package, error)
	ApplyPackageTransition(ctx context.Context, tr pgparcels.PackageTransition) ([]pgparcels.PackageChange, error)
	ReschedulePackage(ctx context.Context, r pgparcels.PackageReschedule) (*pgparcels.PackageChange, error)
	SetPackageDeleted(ctx context.Context, id uint64, deleted bool) (bool, error)
	ListTrackingEvents(ctx context.Context, packageID uint64, limit, offset int) ([]*models.TrackingEvent, error)
	GetDispatch(ctx context.Context, id uint64) (*models.Dispatch, error)
	GetTrip(ctx context.Context, id uint64) (*models.Trip, error)
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

// Create registers a package on intake. Status defaults to received.
func (s *Service) Create(ctx context.Context, p *models.Package) (*models.Package, error) {
	p.TrackingCode = strings.TrimSpace(p.TrackingCode)
	if p.TrackingCode == "" {
		return nil, apperr.Validation("tracking code is required")
	}
	if p.CustomerID == 0 {
		return nil, apperr.Validation("customer id is required")
	}
	if p.Status == "" {
		p.Status = models.PackageStatusReceived
	}
	if p.Currency == "" {
		p.Currency = models.BaseCurrency
	}
	if err := p.Validate(); err != nil {
		return nil, apperr.Validation("%s", err.Error())
	}

	out, err := s.repo.CreatePackage(ctx, p)
	if err != nil {
		return nil, err
	}
	s.feed.Committed(ctx, "", nil, cache.PackageViewKeys(tripIDs(out)...)...)
	return out, nil
}

func (s *Service) MoveToWarehouse(ctx context.Context, id uint64, actor string) (bool, error) {
	return s.move(ctx, id, models.PackageStatusWarehouse, actor, "moved to warehouse", nil)
}

// MarkDelivered closes the package lifecycle. Delivering twice is a no-op.
func (s *Service) MarkDelivered(ctx context.Context, id uint64, deliveredBy string) (bool, error) {
	deliveredBy = strings.TrimSpace(deliveredBy)
	if deliveredBy == "" {
		return false, apperr.Validation("delivered by is required")
	}
	return s.move(ctx, id, models.PackageStatusDelivered, deliveredBy, "delivered", &deliveredBy)
}

func (s *Service) move(ctx context.Context, id uint64, to models.PackageStatus, actor, message string, deliveredBy *string) (bool, error) {
	p, err := s.repo.GetPackage(ctx, id)
	if err != nil {
		return false, err
	}
	if p.DeletedAt != nil {
		return false, apperr.Precondition("package %d is deleted", id)
	}

	changed, err := models.CheckTransition(p.Status, to)
	if errors.Is(err, models.ErrIllegalTransition) {
		return false, apperr.Precondition("package %d cannot move from %s to %s", id, p.Status, to)
	}
	if err != nil {
		return false, err
	}
	if !changed {
		return false, nil
	}

	changes, err := s.repo.ApplyPackageTransition(ctx, pgparcels.PackageTransition{
		PackageID:   id,
		From:        p.Status,
		Path:        []models.PackageStatus{to},
		Actor:       actor,
		Message:     message,
		DeliveredBy: deliveredBy,
	})
	if err != nil {
		return false, err
	}
	s.feed.Committed(ctx, actor, changes)
	return true, nil
}

// Reschedule moves a package that has not left yet to another trip and resets it to received.
// A link to a still pending dispatch is dropped.
func (s *Service) Reschedule(ctx context.Context, id uint64, tripID *uint64, actor string) (bool, error) {
	p, err := s.repo.GetPackage(ctx, id)
	if err != nil {
		return false, err
	}
	if p.DeletedAt != nil {
		return false, apperr.Precondition("package %d is deleted", id)
	}
	switch p.Status {
	case models.PackageStatusReceived, models.PackageStatusWarehouse, models.PackageStatusProcessed:
	default:
		return false, apperr.Precondition("package %d already left (%s), it cannot be rescheduled", id, p.Status)
	}
	if p.Status == models.PackageStatusReceived && p.DispatchID == nil && sameTrip(p.TripID, tripID) {
		return false, nil
	}

	if tripID != nil {
		trip, err := s.repo.GetTrip(ctx, *tripID)
		if err != nil {
			return false, err
		}
		if trip.Status.Closed() {
			return false, apperr.Precondition("trip %d is %s", trip.ID, trip.Status)
		}
	}

	keys := cache.PackageViewKeys(append(tripIDs(p), derefAll(tripID)...)...)
	if p.DispatchID != nil {
		d, err := s.repo.GetDispatch(ctx, *p.DispatchID)
		if err != nil {
			return false, err
		}
		if d.Status != models.DispatchStatusPending {
			return false, apperr.Precondition("package %d already left with dispatch %d", id, d.ID)
		}
		keys = append(keys, cache.DispatchesByDateKey(d.DispatchDate))
	}

	ch, err := s.repo.ReschedulePackage(ctx, pgparcels.PackageReschedule{
		PackageID:      id,
		ExpectedStatus: p.Status,
		TripID:         tripID,
		DispatchID:     p.DispatchID,
		Actor:          actor,
	})
	if err != nil {
		return false, err
	}
	s.feed.Committed(ctx, actor, []pgparcels.PackageChange{*ch}, keys...)
	slog.Info("package rescheduled", "package_id", id, "trip_id", tripID)
	return true, nil
}

func (s *Service) SoftDelete(ctx context.Context, id uint64, actor string) (bool, error) {
	return s.setDeleted(ctx, id, true, actor)
}

func (s *Service) Restore(ctx context.Context, id uint64, actor string) (bool, error) {
	return s.setDeleted(ctx, id, false, actor)
}

func (s *Service) setDeleted(ctx context.Context, id uint64, deleted bool, actor string) (bool, error) {
	p, err := s.repo.GetPackage(ctx, id)
	if err != nil {
		return false, err
	}
	changed, err := s.repo.SetPackageDeleted(ctx, id, deleted)
	if err != nil || !changed {
		return false, err
	}
	keys := cache.PackageViewKeys(tripIDs(p)...)
	if p.DispatchID != nil {
		keys = append(keys, cache.DispatchPackagesKey(*p.DispatchID))
	}
	s.feed.Committed(ctx, actor, nil, keys...)
	slog.Info("package deleted flag changed", "package_id", id, "deleted", deleted, "actor", actor)
	return true, nil
}

func (s *Service) ListEvents(ctx context.Context, id uint64, limit, offset int) ([]*models.TrackingEvent, error) {
	if id == 0 {
		return nil, apperr.Validation("package id is required")
	}
	return s.repo.ListTrackingEvents(ctx, id, limit, offset)
}

// List serves the global list and the per-trip list from cache; other filters go to storage.
func (s *Service) List(ctx context.Context, f models.PackageFilter) ([]*models.Package, error) {
	key := ""
	plain := f.Status == nil && f.CustomerID == nil && !f.IncludeDeleted && f.Limit == 0 && f.Offset == 0
	if plain && f.TripID == nil {
		key = cache.PackagesListKey
	} else if plain {
		key = cache.TripPackagesKey(*f.TripID)
	}

	if key != "" && s.cache != nil && s.viewTTL > 0 {
		if b, ok, err := s.cache.Get(ctx, key); err == nil && ok {
			var out []*models.Package
			if json.Unmarshal(b, &out) == nil {
				return out, nil
			}
		}
	}

	out, err := s.repo.ListPackages(ctx, f)
	if err != nil {
		return nil, err
	}

	if key != "" && s.cache != nil && s.viewTTL > 0 {
		b, _ := json.Marshal(out)
		if err := s.cache.Set(ctx, key, b, s.viewTTL); err != nil {
			slog.Warn("cache set failed", "key", key, "error", err.Error())
		}
	}
	return out, nil
}

func tripIDs(p *models.Package) []uint64 {
	if p == nil || p.TripID == nil {
		return nil
	}
	return []uint64{*p.TripID}
}

func derefAll(ids ...*uint64) []uint64 {
	var out []uint64
	for _, id := range ids {
		if id != nil {
			out = append(out, *id)
		}
	}
	return out
}

func sameTrip(a, b *uint64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
