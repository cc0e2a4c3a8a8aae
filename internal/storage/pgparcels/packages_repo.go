package pgparcels

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/BearBump/ParcelBox/internal/apperr"
	"github.com/BearBump/ParcelBox/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

const packageColumns = `
  p.id, p.tracking_code, p.customer_id, p.trip_id, p.dispatch_id,
  p.origin, p.destination, p.weight_kg, p.freight, p.amount_to_collect,
  p.currency, p.description, p.status,
  p.created_at, p.updated_at, p.delivered_at, p.delivered_by, p.deleted_at`

// PackageChange is one committed status move, reported back for events and cache invalidation.
type PackageChange struct {
	PackageID  uint64
	DispatchID *uint64
	TripID     *uint64
	From       models.PackageStatus
	To         models.PackageStatus
}

// PackageTransition moves one package along Path, guarded by its current status.
type PackageTransition struct {
	PackageID   uint64
	From        models.PackageStatus
	Path        []models.PackageStatus
	Actor       string
	Message     string
	DeliveredBy *string
}

type PackageReschedule struct {
	PackageID      uint64
	ExpectedStatus models.PackageStatus
	TripID         *uint64
	// DispatchID is the current link; it is dropped only while that dispatch is still pending.
	DispatchID *uint64
	Actor      string
}

func scanPackage(r rowScanner) (*models.Package, error) {
	var p models.Package
	if err := r.Scan(
		&p.ID, &p.TrackingCode, &p.CustomerID, &p.TripID, &p.DispatchID,
		&p.Origin, &p.Destination, &p.WeightKg, &p.Freight, &p.AmountToCollect,
		&p.Currency, &p.Description, &p.Status,
		&p.CreatedAt, &p.UpdatedAt, &p.DeliveredAt, &p.DeliveredBy, &p.DeletedAt,
	); err != nil {
		return nil, err
	}
	// Старые строки могли сохраниться с испанскими тегами.
	if st, err := models.ParsePackageStatus(string(p.Status)); err == nil {
		p.Status = st
	}
	if cur, err := models.ParseCurrency(string(p.Currency)); err == nil {
		p.Currency = cur
	}
	return &p, nil
}

func collectPackages(rows pgx.Rows) ([]*models.Package, error) {
	defer rows.Close()
	out := make([]*models.Package, 0)
	for rows.Next() {
		p, err := scanPackage(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan package")
		}
		out = append(out, p)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

func (s *Storage) CreatePackage(ctx context.Context, p *models.Package) (*models.Package, error) {
	if err := p.Validate(); err != nil {
		return nil, apperr.Validation("%s", err.Error())
	}
	row := s.db.QueryRow(ctx, `
INSERT INTO packages AS p (
  tracking_code, customer_id, trip_id, origin, destination,
  weight_kg, freight, amount_to_collect, currency, description, status
)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
RETURNING`+packageColumns,
		p.TrackingCode, p.CustomerID, p.TripID, p.Origin, p.Destination,
		p.WeightKg, p.Freight, p.AmountToCollect, string(p.Currency), p.Description, string(p.Status))
	out, err := scanPackage(row)
	if err != nil {
		return nil, errors.Wrap(err, "insert package")
	}
	return out, nil
}

func (s *Storage) GetPackage(ctx context.Context, id uint64) (*models.Package, error) {
	row := s.db.QueryRow(ctx, `SELECT`+packageColumns+` FROM packages p WHERE p.id = $1`, id)
	p, err := scanPackage(row)
	if err != nil {
		return nil, notFoundOr(err, "package %d not found", id)
	}
	return p, nil
}

// GetPackagesByIDs returns packages in id order, soft-deleted included.
func (s *Storage) GetPackagesByIDs(ctx context.Context, ids []uint64) ([]*models.Package, error) {
	if len(ids) == 0 {
		return []*models.Package{}, nil
	}
	rows, err := s.db.Query(ctx, `SELECT`+packageColumns+` FROM packages p WHERE p.id = ANY($1) ORDER BY p.id`, ids)
	if err != nil {
		return nil, errors.Wrap(err, "select packages")
	}
	return collectPackages(rows)
}

func (s *Storage) ListPackages(ctx context.Context, f models.PackageFilter) ([]*models.Package, error) {
	where := []string{"TRUE"}
	args := []any{}
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if !f.IncludeDeleted {
		where = append(where, "p.deleted_at IS NULL")
	}
	if f.Status != nil {
		add("p.status = ANY($%d)", f.Status.StoredForms())
	}
	if f.TripID != nil {
		add("p.trip_id = $%d", *f.TripID)
	}
	if f.CustomerID != nil {
		add("p.customer_id = $%d", *f.CustomerID)
	}

	q := `SELECT` + packageColumns + ` FROM packages p WHERE ` + strings.Join(where, " AND ") + ` ORDER BY p.id`
	if f.Limit > 0 {
		offset := f.Offset
		if offset < 0 {
			offset = 0
		}
		args = append(args, f.Limit, offset)
		q += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	rows, err := s.db.Query(ctx, q, args...)
	if err != nil {
		return nil, errors.Wrap(err, "select packages")
	}
	return collectPackages(rows)
}

// ListDispatchCandidates returns packages that may join a new dispatch.
func (s *Storage) ListDispatchCandidates(ctx context.Context, tripID *uint64) ([]*models.Package, error) {
	rows, err := s.db.Query(ctx, `
SELECT`+packageColumns+`
FROM packages p
WHERE p.deleted_at IS NULL
  AND p.status = ANY($1)
  AND ($2::BIGINT IS NULL OR p.trip_id = $2)
  AND NOT EXISTS (SELECT 1 FROM dispatch_packages dp WHERE dp.package_id = p.id)
ORDER BY p.id
`, storedForms(models.PackageStatusReceived, models.PackageStatusProcessed, models.PackageStatusWarehouse), tripID)
	if err != nil {
		return nil, errors.Wrap(err, "select dispatch candidates")
	}
	return collectPackages(rows)
}

func (s *Storage) ListPackagesByDispatch(ctx context.Context, dispatchID uint64) ([]*models.Package, error) {
	rows, err := s.db.Query(ctx, `
SELECT`+packageColumns+`
FROM dispatch_packages dp
JOIN packages p ON p.id = dp.package_id
WHERE dp.dispatch_id = $1
ORDER BY p.id
`, dispatchID)
	if err != nil {
		return nil, errors.Wrap(err, "select dispatch packages")
	}
	return collectPackages(rows)
}

// ListDeliveredPaidPackages feeds the fidelity ranking: delivered, paid at least once, not deleted.
func (s *Storage) ListDeliveredPaidPackages(ctx context.Context, since *time.Time) ([]*models.Package, error) {
	var from *time.Time
	if since != nil {
		t := since.UTC()
		from = &t
	}
	rows, err := s.db.Query(ctx, `
SELECT`+packageColumns+`
FROM packages p
WHERE p.deleted_at IS NULL
  AND p.status = ANY($1)
  AND p.delivered_at IS NOT NULL
  AND ($2::TIMESTAMPTZ IS NULL OR p.delivered_at >= $2)
  AND EXISTS (SELECT 1 FROM customer_payments cp WHERE cp.package_id = p.id)
ORDER BY p.delivered_at, p.id
`, models.PackageStatusDelivered.StoredForms(), from)
	if err != nil {
		return nil, errors.Wrap(err, "select delivered packages")
	}
	return collectPackages(rows)
}

// ListArrivalCandidates returns arrived packages that never got an arrival notification.
// Failed ones come back only through ResetFailed.
func (s *Storage) ListArrivalCandidates(ctx context.Context, limit int) ([]*models.Package, error) {
	if limit <= 0 || limit > 1000 {
		limit = 500
	}
	rows, err := s.db.Query(ctx, `
SELECT`+packageColumns+`
FROM packages p
WHERE p.deleted_at IS NULL
  AND p.status = ANY($1)
  AND NOT EXISTS (
    SELECT 1 FROM notifications n
    WHERE n.kind = $2 AND n.package_id = p.id
  )
ORDER BY p.id
LIMIT $3
`, models.PackageStatusArrived.StoredForms(), string(models.NotificationKindArrival), limit)
	if err != nil {
		return nil, errors.Wrap(err, "select arrival candidates")
	}
	return collectPackages(rows)
}

// ApplyPackageTransition walks the package along Path in one transaction with one tracking event per hop.
func (s *Storage) ApplyPackageTransition(ctx context.Context, tr PackageTransition) ([]PackageChange, error) {
	if len(tr.Path) == 0 {
		return nil, nil
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var dispatchID, tripID *uint64
	err = tx.QueryRow(ctx, `SELECT dispatch_id, trip_id FROM packages WHERE id = $1 FOR UPDATE`, tr.PackageID).
		Scan(&dispatchID, &tripID)
	if err != nil {
		return nil, notFoundOr(err, "package %d not found", tr.PackageID)
	}

	changes, err := walkPackagePath(ctx, tx, tr.PackageID, tr.From, tr.Path, dispatchID, tr.Actor, tr.Message, tr.DeliveredBy)
	if err != nil {
		return nil, err
	}
	if changes == nil {
		return nil, ErrConcurrentUpdate
	}
	for i := range changes {
		changes[i].TripID = tripID
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, errors.Wrap(err, "commit tx")
	}
	return changes, nil
}

// walkPackagePath returns nil changes when the first guarded hop finds the package in another state.
func walkPackagePath(
	ctx context.Context,
	tx pgx.Tx,
	packageID uint64,
	from models.PackageStatus,
	path []models.PackageStatus,
	dispatchID *uint64,
	actor, message string,
	deliveredBy *string,
) ([]PackageChange, error) {
	changes := make([]PackageChange, 0, len(path))
	prev := from
	for _, next := range path {
		tag, err := tx.Exec(ctx, `
UPDATE packages
SET
  status = $3,
  dispatch_id = COALESCE($4, dispatch_id),
  delivered_at = CASE WHEN $3 = 'delivered' THEN now() ELSE delivered_at END,
  delivered_by = CASE WHEN $3 = 'delivered' THEN $5 ELSE delivered_by END,
  updated_at = now()
WHERE id = $1 AND status = ANY($2) AND deleted_at IS NULL
`, packageID, prev.StoredForms(), string(next), dispatchID, deliveredBy)
		if err != nil {
			return nil, errors.Wrap(err, "update package status")
		}
		if tag.RowsAffected() == 0 {
			return nil, nil
		}
		if err := insertTrackingEvent(ctx, tx, packageID, next, dispatchID, message, actor); err != nil {
			return nil, err
		}
		changes = append(changes, PackageChange{PackageID: packageID, DispatchID: dispatchID, From: prev, To: next})
		prev = next
	}
	return changes, nil
}

func insertTrackingEvent(ctx context.Context, tx pgx.Tx, packageID uint64, status models.PackageStatus, dispatchID *uint64, message, actor string) error {
	_, err := tx.Exec(ctx, `
INSERT INTO tracking_events (package_id, status, dispatch_id, message, actor, created_at)
VALUES ($1,$2,$3,$4,$5, now())
`, packageID, string(status), dispatchID, message, actor)
	return errors.Wrap(err, "insert tracking event")
}

// ReschedulePackage moves the package to another trip and resets it to received.
func (s *Storage) ReschedulePackage(ctx context.Context, r PackageReschedule) (*PackageChange, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if r.DispatchID != nil {
		var st string
		err := tx.QueryRow(ctx, `SELECT status FROM dispatches WHERE id = $1 FOR UPDATE`, *r.DispatchID).Scan(&st)
		if err != nil {
			return nil, notFoundOr(err, "dispatch %d not found", *r.DispatchID)
		}
		if parsed, _ := models.ParseDispatchStatus(st); parsed != models.DispatchStatusPending {
			return nil, apperr.Precondition("package %d already left with dispatch %d", r.PackageID, *r.DispatchID)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM dispatch_packages WHERE dispatch_id = $1 AND package_id = $2`,
			*r.DispatchID, r.PackageID); err != nil {
			return nil, errors.Wrap(err, "unlink package")
		}
	}

	tag, err := tx.Exec(ctx, `
UPDATE packages
SET status = $3, trip_id = $4, dispatch_id = NULL, updated_at = now()
WHERE id = $1 AND status = ANY($2) AND deleted_at IS NULL
`, r.PackageID, r.ExpectedStatus.StoredForms(), string(models.PackageStatusReceived), r.TripID)
	if err != nil {
		return nil, errors.Wrap(err, "reschedule package")
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrConcurrentUpdate
	}
	if err := insertTrackingEvent(ctx, tx, r.PackageID, models.PackageStatusReceived, nil, "rescheduled", r.Actor); err != nil {
		return nil, err
	}

	if r.DispatchID != nil {
		if err := recomputeDispatchTotals(ctx, tx, *r.DispatchID); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, errors.Wrap(err, "commit tx")
	}
	return &PackageChange{
		PackageID:  r.PackageID,
		DispatchID: r.DispatchID,
		TripID:     r.TripID,
		From:       r.ExpectedStatus,
		To:         models.PackageStatusReceived,
	}, nil
}

// SetPackageDeleted soft-deletes or restores a package. Returns false when nothing changed.
func (s *Storage) SetPackageDeleted(ctx context.Context, id uint64, deleted bool) (bool, error) {
	q := `UPDATE packages SET deleted_at = now(), updated_at = now() WHERE id = $1 AND deleted_at IS NULL`
	if !deleted {
		q = `UPDATE packages SET deleted_at = NULL, updated_at = now() WHERE id = $1 AND deleted_at IS NOT NULL`
	}
	tag, err := s.db.Exec(ctx, q, id)
	if err != nil {
		return false, errors.Wrap(err, "set package deleted")
	}
	if tag.RowsAffected() == 0 {
		if _, err := s.GetPackage(ctx, id); err != nil {
			return false, err
		}
		return false, nil
	}
	return true, nil
}

func (s *Storage) ListTrackingEvents(ctx context.Context, packageID uint64, limit, offset int) ([]*models.TrackingEvent, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.Query(ctx, `
SELECT id, package_id, status, dispatch_id, message, actor, created_at
FROM tracking_events
WHERE package_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2 OFFSET $3
`, packageID, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, "select events")
	}
	defer rows.Close()

	var out []*models.TrackingEvent
	for rows.Next() {
		var e models.TrackingEvent
		if err := rows.Scan(&e.ID, &e.PackageID, &e.Status, &e.DispatchID, &e.Message, &e.Actor, &e.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan event")
		}
		out = append(out, &e)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

// storedForms expands canonical statuses into every stored spelling, legacy tags included.
func storedForms(in ...models.PackageStatus) []string {
	out := make([]string, 0, len(in)*2)
	for _, s := range in {
		out = append(out, s.StoredForms()...)
	}
	return out
}
