package pgparcels

import (
	"context"

	"github.com/BearBump/ParcelBox/internal/apperr"
	"github.com/BearBump/ParcelBox/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

const customerColumns = `id, name, phone, alt_phone, created_at`

func scanCustomer(r rowScanner) (*models.Customer, error) {
	var c models.Customer
	if err := r.Scan(&c.ID, &c.Name, &c.Phone, &c.AltPhone, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func collectCustomers(rows pgx.Rows) ([]*models.Customer, error) {
	defer rows.Close()
	out := make([]*models.Customer, 0)
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan customer")
		}
		out = append(out, c)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

func (s *Storage) CreateCustomer(ctx context.Context, c *models.Customer) (*models.Customer, error) {
	out, err := scanCustomer(s.db.QueryRow(ctx, `
INSERT INTO customers (name, phone, alt_phone, created_at)
VALUES ($1,$2,$3, now())
RETURNING `+customerColumns, c.Name, c.Phone, c.AltPhone))
	if err != nil {
		return nil, errors.Wrap(err, "insert customer")
	}
	return out, nil
}

// GetCustomer always reads the current row; phone numbers change after packages are created.
func (s *Storage) GetCustomer(ctx context.Context, id uint64) (*models.Customer, error) {
	c, err := scanCustomer(s.db.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, id))
	if err != nil {
		return nil, notFoundOr(err, "customer %d not found", id)
	}
	return c, nil
}

func (s *Storage) ListCustomers(ctx context.Context, ids []uint64) ([]*models.Customer, error) {
	if ids == nil {
		ids = []uint64{}
	}
	rows, err := s.db.Query(ctx, `
SELECT `+customerColumns+`
FROM customers
WHERE cardinality($1::BIGINT[]) = 0 OR id = ANY($1)
ORDER BY id
`, ids)
	if err != nil {
		return nil, errors.Wrap(err, "select customers")
	}
	return collectCustomers(rows)
}

// FindCustomerByPhone matches on the last digits of either phone. Returns nil when nobody matches.
func (s *Storage) FindCustomerByPhone(ctx context.Context, phone string) (*models.Customer, error) {
	tail := models.PhoneTail(phone)
	if tail == "" {
		return nil, nil
	}
	c, err := scanCustomer(s.db.QueryRow(ctx, `
SELECT `+customerColumns+`
FROM customers
WHERE right(regexp_replace(phone, '\D', '', 'g'), 10) = $1
   OR right(regexp_replace(alt_phone, '\D', '', 'g'), 10) = $1
ORDER BY id
LIMIT 1
`, tail))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "find customer by phone")
	}
	return c, nil
}

func (s *Storage) CreatePayment(ctx context.Context, p *models.Payment) (*models.Payment, error) {
	if !p.Amount.IsPositive() {
		return nil, apperr.Validation("payment amount must be positive")
	}
	out := *p
	err := s.db.QueryRow(ctx, `
INSERT INTO customer_payments (package_id, customer_id, amount, currency, paid_at)
VALUES ($1,$2,$3,$4, COALESCE($5, now()))
RETURNING id, paid_at
`, p.PackageID, p.CustomerID, p.Amount, string(p.Currency), nullTime(p.PaidAt)).Scan(&out.ID, &out.PaidAt)
	if err != nil {
		return nil, errors.Wrap(err, "insert payment")
	}
	return &out, nil
}

// ListPayments returns payments for the given packages, or all payments when ids is empty.
func (s *Storage) ListPayments(ctx context.Context, packageIDs []uint64) ([]*models.Payment, error) {
	if packageIDs == nil {
		packageIDs = []uint64{}
	}
	rows, err := s.db.Query(ctx, `
SELECT id, package_id, customer_id, amount, currency, paid_at
FROM customer_payments
WHERE cardinality($1::BIGINT[]) = 0 OR package_id = ANY($1)
ORDER BY id
`, packageIDs)
	if err != nil {
		return nil, errors.Wrap(err, "select payments")
	}
	defer rows.Close()

	out := make([]*models.Payment, 0)
	for rows.Next() {
		var p models.Payment
		if err := rows.Scan(&p.ID, &p.PackageID, &p.CustomerID, &p.Amount, &p.Currency, &p.PaidAt); err != nil {
			return nil, errors.Wrap(err, "scan payment")
		}
		out = append(out, &p)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}
