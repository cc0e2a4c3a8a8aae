package pgparcels

import (
	"context"
	"encoding/json"
	"time"

	"github.com/BearBump/ParcelBox/internal/apperr"
	"github.com/BearBump/ParcelBox/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

const dispatchColumns = `
  id, dispatch_date, trip_id, notes, status,
  package_count, total_weight, total_freight, amount_to_collect,
  created_at, updated_at`

// DispatchDraft is a dispatch about to be created from already filtered packages.
type DispatchDraft struct {
	Date     time.Time
	Notes    string
	Actor    string
	Packages []*models.Package
	Batches  []models.BatchInput
}

type TripEffect int

const (
	TripEffectNone TripEffect = iota
	// TripEffectStart moves the trip to in_progress unless it is already there or closed.
	TripEffectStart
	// TripEffectComplete closes the trip once every live package of it arrived or was delivered.
	TripEffectComplete
)

// DispatchTransition moves a dispatch and its eligible packages in one transaction.
// The dispatch update is guarded by ExpectedStatus.
type DispatchTransition struct {
	DispatchID     uint64
	ExpectedStatus models.DispatchStatus
	NextStatus     models.DispatchStatus
	Packages       []*models.Package
	PackageTo      models.PackageStatus
	TripIDs        []uint64
	TripEffect     TripEffect
	Actor          string
	Message        string
}

type DispatchTransitionResult struct {
	Changes []PackageChange
	// TripStatuses holds only the trips whose status changed.
	TripStatuses map[uint64]models.TripStatus
}

func scanDispatch(r rowScanner) (*models.Dispatch, error) {
	var d models.Dispatch
	var amounts []byte
	if err := r.Scan(
		&d.ID, &d.DispatchDate, &d.TripID, &d.Notes, &d.Status,
		&d.Totals.PackageCount, &d.Totals.WeightKg, &d.Totals.Freight, &amounts,
		&d.CreatedAt, &d.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if st, err := models.ParseDispatchStatus(string(d.Status)); err == nil {
		d.Status = st
	}
	m, err := decodeAmounts(amounts)
	if err != nil {
		return nil, err
	}
	d.Totals.AmountToCollect = m
	return &d, nil
}

func decodeAmounts(b []byte) (map[models.Currency]decimal.Decimal, error) {
	m := map[models.Currency]decimal.Decimal{}
	if len(b) == 0 {
		return m, nil
	}
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, errors.Wrap(err, "decode amounts")
	}
	return m, nil
}

func encodeAmounts(m map[models.Currency]decimal.Decimal) (string, error) {
	if m == nil {
		m = map[models.Currency]decimal.Decimal{}
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", errors.Wrap(err, "encode amounts")
	}
	return string(b), nil
}

// CreateDispatch writes the dispatch, its join rows, batches, package statuses and tracking events atomically.
// Packages that were linked elsewhere or changed status meanwhile are dropped from the dispatch.
func (s *Storage) CreateDispatch(ctx context.Context, d DispatchDraft) (*models.Dispatch, []PackageChange, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, nil, errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var dispatchID uint64
	err = tx.QueryRow(ctx, `
INSERT INTO dispatches (dispatch_date, notes, status, created_at, updated_at)
VALUES ($1::date, $2, $3, now(), now())
RETURNING id
`, d.Date.Format("2006-01-02"), d.Notes, string(models.DispatchStatusPending)).Scan(&dispatchID)
	if err != nil {
		return nil, nil, errors.Wrap(err, "insert dispatch")
	}

	linked := make([]*models.Package, 0, len(d.Packages))
	var changes []PackageChange
	for _, p := range d.Packages {
		ch, ok, err := linkPackage(ctx, tx, dispatchID, p, d.Actor)
		if err != nil {
			return nil, nil, err
		}
		if !ok {
			continue
		}
		linked = append(linked, p)
		changes = append(changes, ch...)
	}
	if len(linked) == 0 {
		return nil, nil, apperr.Validation("no eligible packages")
	}

	byID := make(map[uint64]*models.Package, len(linked))
	for _, p := range linked {
		byID[p.ID] = p
	}
	for _, b := range d.Batches {
		members := make([]*models.Package, 0, len(b.PackageIDs))
		ids := make([]uint64, 0, len(b.PackageIDs))
		for _, id := range b.PackageIDs {
			if p, ok := byID[id]; ok {
				members = append(members, p)
				ids = append(ids, id)
			}
		}
		if len(members) == 0 {
			continue
		}
		if err := insertBatch(ctx, tx, dispatchID, b.Label, members, ids); err != nil {
			return nil, nil, err
		}
	}

	totals := models.ComputeDispatchTotals(linked)
	if err := writeDispatchTotals(ctx, tx, dispatchID, models.CommonTripID(linked), totals); err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, errors.Wrap(err, "commit tx")
	}

	out, err := s.GetDispatch(ctx, dispatchID)
	if err != nil {
		return nil, nil, err
	}
	return out, changes, nil
}

// linkPackage joins the package to the dispatch and walks it to processed.
// ok=false means the package lost a race and was left out.
func linkPackage(ctx context.Context, tx pgx.Tx, dispatchID uint64, p *models.Package, actor string) ([]PackageChange, bool, error) {
	path, err := models.TransitionPath(p.Status, models.PackageStatusProcessed)
	if err != nil {
		return nil, false, nil
	}

	tag, err := tx.Exec(ctx, `
INSERT INTO dispatch_packages (dispatch_id, package_id, created_at)
VALUES ($1,$2, now())
ON CONFLICT DO NOTHING
`, dispatchID, p.ID)
	if err != nil {
		return nil, false, errors.Wrap(err, "insert dispatch package")
	}
	if tag.RowsAffected() == 0 {
		return nil, false, nil
	}

	tag, err = tx.Exec(ctx, `
UPDATE packages SET dispatch_id = $2, updated_at = now()
WHERE id = $1 AND status = ANY($3) AND dispatch_id IS NULL AND deleted_at IS NULL
`, p.ID, dispatchID, p.Status.StoredForms())
	if err != nil {
		return nil, false, errors.Wrap(err, "link package")
	}
	if tag.RowsAffected() == 0 {
		if _, err := tx.Exec(ctx, `DELETE FROM dispatch_packages WHERE dispatch_id = $1 AND package_id = $2`, dispatchID, p.ID); err != nil {
			return nil, false, errors.Wrap(err, "unlink package")
		}
		return nil, false, nil
	}

	id := dispatchID
	msg := "added to dispatch"
	if len(path) == 0 {
		// Уже processed: статус не меняется, но событие о включении в отправку пишем.
		if err := insertTrackingEvent(ctx, tx, p.ID, models.PackageStatusProcessed, &id, msg, actor); err != nil {
			return nil, false, err
		}
		return nil, true, nil
	}

	changes, err := walkPackagePath(ctx, tx, p.ID, p.Status, path, &id, actor, msg, nil)
	if err != nil {
		return nil, false, err
	}
	if changes == nil {
		return nil, false, ErrConcurrentUpdate
	}
	for i := range changes {
		changes[i].TripID = p.TripID
	}
	return changes, true, nil
}

func insertBatch(ctx context.Context, tx pgx.Tx, dispatchID uint64, label string, members []*models.Package, ids []uint64) error {
	t := models.ComputeDispatchTotals(members)
	amounts, err := encodeAmounts(t.AmountToCollect)
	if err != nil {
		return err
	}
	var batchID uint64
	err = tx.QueryRow(ctx, `
INSERT INTO shipment_batches (dispatch_id, label, package_count, total_weight, total_freight, amount_to_collect, created_at)
VALUES ($1,$2,$3,$4,$5,$6, now())
RETURNING id
`, dispatchID, label, t.PackageCount, t.WeightKg, t.Freight, amounts).Scan(&batchID)
	if err != nil {
		return errors.Wrap(err, "insert batch")
	}
	_, err = tx.Exec(ctx, `UPDATE dispatch_packages SET batch_id = $3 WHERE dispatch_id = $1 AND package_id = ANY($2)`,
		dispatchID, ids, batchID)
	return errors.Wrap(err, "assign batch")
}

func writeDispatchTotals(ctx context.Context, tx pgx.Tx, dispatchID uint64, tripID *uint64, t models.DispatchTotals) error {
	amounts, err := encodeAmounts(t.AmountToCollect)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
UPDATE dispatches
SET
  trip_id = $2,
  package_count = $3,
  total_weight = $4,
  total_freight = $5,
  amount_to_collect = $6,
  updated_at = now()
WHERE id = $1
`, dispatchID, tripID, t.PackageCount, t.WeightKg, t.Freight, amounts)
	return errors.Wrap(err, "update dispatch totals")
}

// recomputeDispatchTotals refreshes denormalized totals after membership changed.
func recomputeDispatchTotals(ctx context.Context, tx pgx.Tx, dispatchID uint64) error {
	rows, err := tx.Query(ctx, `
SELECT`+packageColumns+`
FROM dispatch_packages dp
JOIN packages p ON p.id = dp.package_id
WHERE dp.dispatch_id = $1
`, dispatchID)
	if err != nil {
		return errors.Wrap(err, "select dispatch packages")
	}
	pkgs, err := collectPackages(rows)
	if err != nil {
		return err
	}
	if err := writeDispatchTotals(ctx, tx, dispatchID, models.CommonTripID(pkgs), models.ComputeDispatchTotals(pkgs)); err != nil {
		return err
	}

	byID := make(map[uint64]*models.Package, len(pkgs))
	for _, p := range pkgs {
		byID[p.ID] = p
	}
	members, err := batchMembers(ctx, tx, []uint64{dispatchID})
	if err != nil {
		return err
	}
	for batchID, ids := range members {
		var in []*models.Package
		for _, id := range ids {
			if p, ok := byID[id]; ok {
				in = append(in, p)
			}
		}
		t := models.ComputeDispatchTotals(in)
		amounts, err := encodeAmounts(t.AmountToCollect)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
UPDATE shipment_batches
SET package_count = $2, total_weight = $3, total_freight = $4, amount_to_collect = $5
WHERE id = $1
`, batchID, t.PackageCount, t.WeightKg, t.Freight, amounts); err != nil {
			return errors.Wrap(err, "update batch totals")
		}
	}
	return nil
}

func batchMembers(ctx context.Context, q queryer, dispatchIDs []uint64) (map[uint64][]uint64, error) {
	rows, err := q.Query(ctx, `
SELECT batch_id, package_id FROM dispatch_packages
WHERE dispatch_id = ANY($1) AND batch_id IS NOT NULL
ORDER BY package_id
`, dispatchIDs)
	if err != nil {
		return nil, errors.Wrap(err, "select batch members")
	}
	defer rows.Close()

	out := map[uint64][]uint64{}
	for rows.Next() {
		var batchID, packageID uint64
		if err := rows.Scan(&batchID, &packageID); err != nil {
			return nil, errors.Wrap(err, "scan batch member")
		}
		out[batchID] = append(out[batchID], packageID)
	}
	return out, errors.Wrap(rows.Err(), "rows")
}

func (s *Storage) loadBatches(ctx context.Context, ds []*models.Dispatch) error {
	if len(ds) == 0 {
		return nil
	}
	ids := make([]uint64, 0, len(ds))
	byID := make(map[uint64]*models.Dispatch, len(ds))
	for _, d := range ds {
		ids = append(ids, d.ID)
		byID[d.ID] = d
	}

	members, err := batchMembers(ctx, s.db, ids)
	if err != nil {
		return err
	}

	rows, err := s.db.Query(ctx, `
SELECT id, dispatch_id, label, package_count, total_weight, total_freight, amount_to_collect
FROM shipment_batches
WHERE dispatch_id = ANY($1)
ORDER BY id
`, ids)
	if err != nil {
		return errors.Wrap(err, "select batches")
	}
	defer rows.Close()

	for rows.Next() {
		var b models.ShipmentBatch
		var amounts []byte
		if err := rows.Scan(&b.ID, &b.DispatchID, &b.Label,
			&b.Totals.PackageCount, &b.Totals.WeightKg, &b.Totals.Freight, &amounts); err != nil {
			return errors.Wrap(err, "scan batch")
		}
		if b.Totals.AmountToCollect, err = decodeAmounts(amounts); err != nil {
			return err
		}
		b.PackageIDs = members[b.ID]
		if d, ok := byID[b.DispatchID]; ok {
			d.Batches = append(d.Batches, &b)
		}
	}
	return errors.Wrap(rows.Err(), "rows")
}

func (s *Storage) GetDispatch(ctx context.Context, id uint64) (*models.Dispatch, error) {
	d, err := scanDispatch(s.db.QueryRow(ctx, `SELECT`+dispatchColumns+` FROM dispatches WHERE id = $1`, id))
	if err != nil {
		return nil, notFoundOr(err, "dispatch %d not found", id)
	}
	if err := s.loadBatches(ctx, []*models.Dispatch{d}); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Storage) ListDispatchesByDate(ctx context.Context, date time.Time) ([]*models.Dispatch, error) {
	rows, err := s.db.Query(ctx, `
SELECT`+dispatchColumns+`
FROM dispatches
WHERE dispatch_date = $1::date
ORDER BY id
`, date.Format("2006-01-02"))
	if err != nil {
		return nil, errors.Wrap(err, "select dispatches")
	}
	defer rows.Close()

	out := make([]*models.Dispatch, 0)
	for rows.Next() {
		d, err := scanDispatch(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan dispatch")
		}
		out = append(out, d)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	rows.Close()

	if err := s.loadBatches(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

// ApplyDispatchTransition moves the dispatch and its eligible packages together.
// Returns ErrConcurrentUpdate when the dispatch is no longer in ExpectedStatus.
func (s *Storage) ApplyDispatchTransition(ctx context.Context, tr DispatchTransition) (*DispatchTransitionResult, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
UPDATE dispatches SET status = $3, updated_at = now()
WHERE id = $1 AND status = ANY($2)
`, tr.DispatchID, tr.ExpectedStatus.StoredForms(), string(tr.NextStatus))
	if err != nil {
		return nil, errors.Wrap(err, "update dispatch status")
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrConcurrentUpdate
	}

	res := &DispatchTransitionResult{TripStatuses: map[uint64]models.TripStatus{}}
	dispatchID := tr.DispatchID
	for _, p := range tr.Packages {
		changes, err := walkPackagePath(ctx, tx, p.ID, p.Status, []models.PackageStatus{tr.PackageTo},
			&dispatchID, tr.Actor, tr.Message, nil)
		if err != nil {
			return nil, err
		}
		// nil: пакет успели изменить, просто пропускаем
		for _, ch := range changes {
			ch.TripID = p.TripID
			res.Changes = append(res.Changes, ch)
		}
	}
	if len(res.Changes) == 0 {
		return nil, apperr.Precondition("no eligible packages")
	}

	for _, tripID := range tr.TripIDs {
		st, err := applyTripEffect(ctx, tx, tripID, tr.TripEffect)
		if err != nil {
			return nil, err
		}
		if st != nil {
			res.TripStatuses[tripID] = *st
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, errors.Wrap(err, "commit tx")
	}
	return res, nil
}

func applyTripEffect(ctx context.Context, tx pgx.Tx, tripID uint64, eff TripEffect) (*models.TripStatus, error) {
	var (
		tag  pgconn.CommandTag
		err  error
		next models.TripStatus
	)
	switch eff {
	case TripEffectStart:
		next = models.TripStatusInProgress
		tag, err = tx.Exec(ctx, `
UPDATE trips SET status = $2, updated_at = now()
WHERE id = $1 AND status NOT IN ('in_progress','completed','cancelled')
`, tripID, string(next))
	case TripEffectComplete:
		next = models.TripStatusCompleted
		tag, err = tx.Exec(ctx, `
UPDATE trips SET status = $2, updated_at = now()
WHERE id = $1
  AND status NOT IN ('completed','cancelled')
  AND NOT EXISTS (
    SELECT 1 FROM packages p
    WHERE p.trip_id = $1 AND p.deleted_at IS NULL AND NOT (p.status = ANY($3))
  )
`, tripID, string(next), storedForms(models.PackageStatusDelivered, models.PackageStatusArrived))
	default:
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "update trip status")
	}
	if tag.RowsAffected() == 0 {
		return nil, nil
	}
	return &next, nil
}
