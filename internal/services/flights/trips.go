package flights

import (
	"context"
	"log/slog"
	"strings"

	"github.com/BearBump/ParcelBox/internal/apperr"
	"github.com/BearBump/ParcelBox/internal/broker/messages"
	"github.com/BearBump/ParcelBox/internal/models"
	"github.com/BearBump/ParcelBox/internal/storage/pgparcels"
)

//go:generate mockery --name TripRepository --output ./mocks --outpkg mocks --structname MockTripRepository --filename TripRepository.go

type TripRepository interface {
	CreateTrip(ctx context.Context, t *models.Trip) (*models.Trip, error)
	GetTrip(ctx context.Context, id uint64) (*models.Trip, error)
	RefreshTripFlight(ctx context.Context, tripID uint64) error
	ApplyFlightUpdate(ctx context.Context, upd pgparcels.FlightUpdate) error
}

// Trips is the API side of flight tracking: trip records and stored snapshots.
type Trips struct {
	repo TripRepository
}

func NewTrips(repo TripRepository) *Trips {
	return &Trips{repo: repo}
}

func (s *Trips) Create(ctx context.Context, t *models.Trip) (*models.Trip, error) {
	t.Code = strings.TrimSpace(t.Code)
	t.FlightNumber = strings.ToUpper(strings.ReplaceAll(t.FlightNumber, " ", ""))
	if t.Code == "" {
		return nil, apperr.Validation("trip code is required")
	}
	if t.TripDate.IsZero() {
		return nil, apperr.Validation("trip date is required")
	}
	if t.Status == "" {
		t.Status = models.TripStatusScheduled
	}
	st, err := models.ParseTripStatus(string(t.Status))
	if err != nil {
		return nil, apperr.Validation("%s", err.Error())
	}
	t.Status = st
	return s.repo.CreateTrip(ctx, t)
}

func (s *Trips) Get(ctx context.Context, id uint64) (*models.Trip, error) {
	return s.repo.GetTrip(ctx, id)
}

// RefreshFlight asks the worker to check the flight on its next cycle.
func (s *Trips) RefreshFlight(ctx context.Context, id uint64) error {
	t, err := s.repo.GetTrip(ctx, id)
	if err != nil {
		return err
	}
	if t.FlightNumber == "" {
		return apperr.Precondition("trip %d has no flight number", id)
	}
	if t.Status.Closed() {
		return apperr.Precondition("trip %d is %s", id, t.Status)
	}
	return s.repo.RefreshTripFlight(ctx, id)
}

// ApplyUpdate stores a snapshot published by the worker.
func (s *Trips) ApplyUpdate(ctx context.Context, m messages.FlightStatusUpdated) error {
	if m.TripID == 0 {
		slog.Warn("flight update without trip id", "event_id", m.EventID)
		return nil
	}
	return s.repo.ApplyFlightUpdate(ctx, pgparcels.FlightUpdate{
		TripID:      m.TripID,
		CheckedAt:   m.CheckedAt,
		Payload:     m.Payload,
		Fallback:    m.Fallback,
		NextCheckAt: m.NextCheckAt,
		Error:       m.Error,
	})
}
