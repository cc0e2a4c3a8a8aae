package collections

import (
	"sort"
	"time"

	"github.com/BearBump/ParcelBox/internal/models"
	"github.com/shopspring/decimal"
)

type DebtType string

const (
	DebtUnpaid      DebtType = "unpaid"
	DebtUncollected DebtType = "uncollected"
)

// Balance is the collection state of one package. Pending is not clamped, overpayment shows as negative.
type Balance struct {
	PackageID       uint64               `json:"package_id"`
	CustomerID      uint64               `json:"customer_id"`
	TrackingCode    string               `json:"tracking_code"`
	Status          models.PackageStatus `json:"status"`
	Currency        models.Currency      `json:"currency"`
	AmountToCollect decimal.Decimal      `json:"amount_to_collect"`
	Paid            decimal.Decimal      `json:"paid"`
	Pending         decimal.Decimal      `json:"pending_amount"`
}

func (b Balance) Overpaid() bool {
	return b.Pending.IsNegative()
}

type DebtRecord struct {
	Balance
	Type      DebtType  `json:"debt_type"`
	StartDate time.Time `json:"debt_start_date"`
	Days      int       `json:"debt_days"`
}

// Balances sums payments per package. Payments of packages outside pkgs are ignored.
func Balances(pkgs []*models.Package, payments []*models.Payment) []Balance {
	paid := make(map[uint64]decimal.Decimal, len(pkgs))
	for _, p := range payments {
		paid[p.PackageID] = paid[p.PackageID].Add(p.Amount)
	}

	out := make([]Balance, 0, len(pkgs))
	for _, p := range pkgs {
		sum := paid[p.ID]
		out = append(out, Balance{
			PackageID:       p.ID,
			CustomerID:      p.CustomerID,
			TrackingCode:    p.TrackingCode,
			Status:          p.Status,
			Currency:        p.Currency,
			AmountToCollect: p.AmountToCollect,
			Paid:            sum,
			Pending:         p.AmountToCollect.Sub(sum),
		})
	}
	return out
}

// Compute returns the packages that are debt right now, oldest first.
func Compute(pkgs []*models.Package, payments []*models.Payment, now time.Time) []DebtRecord {
	byID := make(map[uint64]*models.Package, len(pkgs))
	for _, p := range pkgs {
		byID[p.ID] = p
	}

	var out []DebtRecord
	for _, b := range Balances(pkgs, payments) {
		// оплаченные и переплаченные долгом не считаются
		if !b.Pending.IsPositive() {
			continue
		}
		p := byID[b.PackageID]
		rec := DebtRecord{Balance: b}
		switch {
		case p.Status == models.PackageStatusDelivered:
			rec.Type = DebtUnpaid
			rec.StartDate = p.UpdatedAt
			if p.DeliveredAt != nil {
				rec.StartDate = *p.DeliveredAt
			}
		case p.AmountToCollect.IsPositive():
			rec.Type = DebtUncollected
			rec.StartDate = p.CreatedAt
		default:
			continue
		}
		rec.Days = debtDays(rec.StartDate, now)
		out = append(out, rec)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartDate.Before(out[j].StartDate)
	})
	return out
}

func debtDays(start, now time.Time) int {
	d := now.Sub(start)
	if d <= 0 {
		return 0
	}
	return int(d / (24 * time.Hour))
}

type CustomerDebt struct {
	CustomerID uint64                              `json:"customer_id"`
	Name       string                              `json:"name,omitempty"`
	Phone      string                              `json:"phone,omitempty"`
	Pending    map[models.Currency]decimal.Decimal `json:"pending"`
	Packages   int                                 `json:"packages"`
	MaxDays    int                                 `json:"max_debt_days"`
}

// SummarizeByCustomer groups debt per customer. Amounts are never summed across currencies.
func SummarizeByCustomer(debts []DebtRecord) []CustomerDebt {
	idx := map[uint64]int{}
	var out []CustomerDebt
	for _, d := range debts {
		i, ok := idx[d.CustomerID]
		if !ok {
			i = len(out)
			idx[d.CustomerID] = i
			out = append(out, CustomerDebt{CustomerID: d.CustomerID, Pending: map[models.Currency]decimal.Decimal{}})
		}
		c := &out[i]
		c.Pending[d.Currency] = c.Pending[d.Currency].Add(d.Pending)
		c.Packages++
		if d.Days > c.MaxDays {
			c.MaxDays = d.Days
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].MaxDays > out[j].MaxDays
	})
	return out
}
