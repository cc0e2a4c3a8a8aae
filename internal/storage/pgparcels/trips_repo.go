package pgparcels

import (
	"context"
	"encoding/json"
	"time"

	"github.com/BearBump/ParcelBox/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

const tripColumns = `
  id, code, origin, destination, flight_number, trip_date, status,
  flight_status, flight_fallback, last_checked_at, next_check_at,
  check_fail_count, last_error, created_at, updated_at`

// FlightUpdate stores the latest flight snapshot of a trip. It never touches trip status.
type FlightUpdate struct {
	TripID uint64

	CheckedAt time.Time

	Payload  json.RawMessage
	Fallback bool

	NextCheckAt time.Time

	Error *string
}

func scanTrip(r rowScanner) (*models.Trip, error) {
	var t models.Trip
	var flight []byte
	if err := r.Scan(
		&t.ID, &t.Code, &t.Origin, &t.Destination, &t.FlightNumber, &t.TripDate, &t.Status,
		&flight, &t.FlightFallback, &t.LastCheckedAt, &t.NextCheckAt,
		&t.CheckFailCount, &t.LastError, &t.CreatedAt, &t.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if len(flight) > 0 {
		t.FlightStatus = json.RawMessage(flight)
	}
	if st, err := models.ParseTripStatus(string(t.Status)); err == nil {
		t.Status = st
	}
	return &t, nil
}

func (s *Storage) CreateTrip(ctx context.Context, t *models.Trip) (*models.Trip, error) {
	status := t.Status
	if status == "" {
		status = models.TripStatusScheduled
	}
	row := s.db.QueryRow(ctx, `
INSERT INTO trips (code, origin, destination, flight_number, trip_date, status, next_check_at, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5::date,$6, now(), now(), now())
RETURNING`+tripColumns,
		t.Code, t.Origin, t.Destination, t.FlightNumber, t.TripDate.Format("2006-01-02"), string(status))
	out, err := scanTrip(row)
	if err != nil {
		return nil, errors.Wrap(err, "insert trip")
	}
	return out, nil
}

func (s *Storage) GetTrip(ctx context.Context, id uint64) (*models.Trip, error) {
	t, err := scanTrip(s.db.QueryRow(ctx, `SELECT`+tripColumns+` FROM trips WHERE id = $1`, id))
	if err != nil {
		return nil, notFoundOr(err, "trip %d not found", id)
	}
	return t, nil
}

// RefreshTripFlight schedules an immediate flight check.
func (s *Storage) RefreshTripFlight(ctx context.Context, tripID uint64) error {
	_, err := s.db.Exec(ctx, `UPDATE trips SET next_check_at = now(), updated_at = now() WHERE id = $1`, tripID)
	return errors.Wrap(err, "refresh trip flight")
}

// ClaimDueTrips выбирает рейсы, которым пора обновить статус полёта, и бронирует их на lease,
// чтобы параллельные воркеры их не взяли. SELECT ... FOR UPDATE SKIP LOCKED.
func (s *Storage) ClaimDueTrips(ctx context.Context, now time.Time, limit int, lease time.Duration) ([]*models.Trip, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, `
SELECT`+tripColumns+`
FROM trips
WHERE next_check_at <= $1
  AND flight_number <> ''
  AND status IN ('scheduled','in_progress')
ORDER BY next_check_at ASC
LIMIT $2
FOR UPDATE SKIP LOCKED
`, now.UTC(), limit)
	if err != nil {
		return nil, errors.Wrap(err, "select due trips")
	}
	defer rows.Close()

	var picked []*models.Trip
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan due trip")
		}
		picked = append(picked, t)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	rows.Close()

	leaseUntil := now.UTC().Add(lease)
	for _, t := range picked {
		_, err := tx.Exec(ctx, `UPDATE trips SET next_check_at = $2, updated_at = now() WHERE id = $1`, t.ID, leaseUntil)
		if err != nil {
			return nil, errors.Wrap(err, "lease trip")
		}
		t.NextCheckAt = leaseUntil
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, errors.Wrap(err, "commit tx")
	}
	return picked, nil
}

func (s *Storage) ApplyFlightUpdate(ctx context.Context, upd FlightUpdate) error {
	if upd.Error != nil && *upd.Error != "" {
		_, err := s.db.Exec(ctx, `
UPDATE trips
SET
  last_checked_at = $2,
  check_fail_count = check_fail_count + 1,
  last_error = $3,
  next_check_at = $4,
  updated_at = now()
WHERE id = $1
`, upd.TripID, upd.CheckedAt.UTC(), *upd.Error, upd.NextCheckAt.UTC())
		return errors.Wrap(err, "update trip flight (error)")
	}

	// Подменный ответ тоже показываем, но считаем его неудачной проверкой.
	_, err := s.db.Exec(ctx, `
UPDATE trips
SET
  flight_status = $3,
  flight_fallback = $4,
  last_checked_at = $2,
  check_fail_count = CASE WHEN $4 THEN check_fail_count + 1 ELSE 0 END,
  last_error = NULL,
  next_check_at = $5,
  updated_at = now()
WHERE id = $1
`, upd.TripID, upd.CheckedAt.UTC(), string(upd.Payload), upd.Fallback, upd.NextCheckAt.UTC())
	return errors.Wrap(err, "update trip flight (ok)")
}
