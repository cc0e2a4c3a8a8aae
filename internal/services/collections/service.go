package collections

import (
	"context"
	"log/slog"
	"time"

	"github.com/BearBump/ParcelBox/internal/apperr"
	"github.com/BearBump/ParcelBox/internal/models"
)

//go:generate mockery --name Repository --output ./mocks --outpkg mocks --structname MockRepository --filename Repository.go

type Repository interface {
	GetPackage(ctx context.Context, id uint64) (*models.Package, error)
	ListPackages(ctx context.Context, f models.PackageFilter) ([]*models.Package, error)
	ListPayments(ctx context.Context, packageIDs []uint64) ([]*models.Payment, error)
	CreatePayment(ctx context.Context, p *models.Payment) (*models.Payment, error)
	ListCustomers(ctx context.Context, ids []uint64) ([]*models.Customer, error)
}

type Service struct {
	repo Repository
	now  func() time.Time
}

func New(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// ListDebts returns current debts, optionally for one customer.
func (s *Service) ListDebts(ctx context.Context, customerID *uint64) ([]DebtRecord, error) {
	pkgs, payments, err := s.load(ctx, customerID)
	if err != nil {
		return nil, err
	}
	return Compute(pkgs, payments, s.now()), nil
}

// Summary groups debts per customer and attaches contact data.
func (s *Service) Summary(ctx context.Context) ([]CustomerDebt, error) {
	debts, err := s.ListDebts(ctx, nil)
	if err != nil {
		return nil, err
	}
	out := SummarizeByCustomer(debts)
	if len(out) == 0 {
		return out, nil
	}

	ids := make([]uint64, 0, len(out))
	for _, c := range out {
		ids = append(ids, c.CustomerID)
	}
	customers, err := s.repo.ListCustomers(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint64]*models.Customer, len(customers))
	for _, c := range customers {
		byID[c.ID] = c
	}
	for i := range out {
		if c, ok := byID[out[i].CustomerID]; ok {
			out[i].Name = c.Name
			out[i].Phone = c.ContactPhone()
		}
	}
	return out, nil
}

// Overpayments lists packages whose payments exceed the amount to collect.
func (s *Service) Overpayments(ctx context.Context) ([]Balance, error) {
	pkgs, payments, err := s.load(ctx, nil)
	if err != nil {
		return nil, err
	}
	var out []Balance
	for _, b := range Balances(pkgs, payments) {
		if b.Overpaid() {
			out = append(out, b)
		}
	}
	return out, nil
}

// RecordPayment stores a payment against a package. Currency defaults to the package currency.
func (s *Service) RecordPayment(ctx context.Context, p *models.Payment) (*models.Payment, error) {
	if p.PackageID == 0 {
		return nil, apperr.Validation("package id is required")
	}
	if !p.Amount.IsPositive() {
		return nil, apperr.Validation("payment amount must be positive")
	}
	pkg, err := s.repo.GetPackage(ctx, p.PackageID)
	if err != nil {
		return nil, err
	}
	if pkg.DeletedAt != nil {
		return nil, apperr.Precondition("package %d is deleted", pkg.ID)
	}

	if p.Currency == "" {
		p.Currency = pkg.Currency
	}
	cur, err := models.ParseCurrency(string(p.Currency))
	if err != nil {
		return nil, apperr.Validation("%s", err.Error())
	}
	if cur != pkg.Currency {
		return nil, apperr.Validation("payment currency %s does not match package currency %s", cur, pkg.Currency)
	}
	p.Currency = cur
	p.CustomerID = pkg.CustomerID

	out, err := s.repo.CreatePayment(ctx, p)
	if err != nil {
		return nil, err
	}
	slog.Info("payment recorded", "package_id", pkg.ID, "amount", out.Amount.String(), "currency", out.Currency)
	return out, nil
}

func (s *Service) load(ctx context.Context, customerID *uint64) ([]*models.Package, []*models.Payment, error) {
	pkgs, err := s.repo.ListPackages(ctx, models.PackageFilter{CustomerID: customerID})
	if err != nil {
		return nil, nil, err
	}
	if len(pkgs) == 0 {
		return pkgs, nil, nil
	}

	var ids []uint64
	if customerID != nil {
		ids = make([]uint64, 0, len(pkgs))
		for _, p := range pkgs {
			ids = append(ids, p.ID)
		}
	}
	payments, err := s.repo.ListPayments(ctx, ids)
	if err != nil {
		return nil, nil, err
	}
	return pkgs, payments, nil
}
