package collections

import (
	"testing"
	"time"

	"github.com/BearBump/ParcelBox/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestCompute_PendingIsAmountMinusPayments(t *testing.T) {
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	delivered := now.Add(-49 * time.Hour)
	pkgs := []*models.Package{
		{ID: 1, CustomerID: 7, Status: models.PackageStatusDelivered, AmountToCollect: dec("100"), Currency: models.CurrencyUSD, DeliveredAt: &delivered},
	}
	payments := []*models.Payment{
		{PackageID: 1, Amount: dec("30")},
		{PackageID: 1, Amount: dec("20.5")},
		{PackageID: 99, Amount: dec("1000")},
	}

	out := Compute(pkgs, payments, now)
	require.Len(t, out, 1)
	require.True(t, out[0].Pending.Equal(dec("49.5")))
	require.True(t, out[0].Paid.Equal(dec("50.5")))
	require.Equal(t, DebtUnpaid, out[0].Type)
	require.Equal(t, delivered, out[0].StartDate)
	require.Equal(t, 2, out[0].Days)
}

func TestCompute_Classification(t *testing.T) {
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	created := now.Add(-72*time.Hour - time.Minute)
	delivered := now.Add(-time.Hour)
	pkgs := []*models.Package{
		// оплачен полностью
		{ID: 1, Status: models.PackageStatusDelivered, AmountToCollect: dec("10"), DeliveredAt: &delivered},
		// ещё в пути, есть что собрать
		{ID: 2, Status: models.PackageStatusInTransit, AmountToCollect: dec("15"), CreatedAt: created},
		// нечего собирать
		{ID: 3, Status: models.PackageStatusReceived, AmountToCollect: decimal.Zero, CreatedAt: created},
		// переплата
		{ID: 4, Status: models.PackageStatusDelivered, AmountToCollect: dec("5"), DeliveredAt: &delivered},
	}
	payments := []*models.Payment{
		{PackageID: 1, Amount: dec("10")},
		{PackageID: 4, Amount: dec("8")},
	}

	out := Compute(pkgs, payments, now)
	require.Len(t, out, 1)
	require.Equal(t, uint64(2), out[0].PackageID)
	require.Equal(t, DebtUncollected, out[0].Type)
	require.Equal(t, 3, out[0].Days)

	bal := Balances(pkgs, payments)
	require.True(t, bal[3].Pending.Equal(dec("-3")))
	require.True(t, bal[3].Overpaid())
	require.False(t, bal[0].Overpaid())
}

func TestCompute_DebtDaysNeverNegative(t *testing.T) {
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	future := now.Add(5 * time.Hour)
	pkgs := []*models.Package{
		{ID: 1, Status: models.PackageStatusReceived, AmountToCollect: dec("1"), CreatedAt: future},
	}
	out := Compute(pkgs, nil, now)
	require.Len(t, out, 1)
	require.Equal(t, 0, out[0].Days)
}

func TestSummarizeByCustomer_PerCurrency(t *testing.T) {
	debts := []DebtRecord{
		{Balance: Balance{CustomerID: 1, Currency: models.CurrencyUSD, Pending: dec("10")}, Days: 1},
		{Balance: Balance{CustomerID: 1, Currency: models.CurrencyVES, Pending: dec("500")}, Days: 4},
		{Balance: Balance{CustomerID: 1, Currency: models.CurrencyUSD, Pending: dec("2.5")}, Days: 2},
		{Balance: Balance{CustomerID: 2, Currency: models.CurrencyUSD, Pending: dec("1")}, Days: 9},
	}

	out := SummarizeByCustomer(debts)
	require.Len(t, out, 2)
	require.Equal(t, uint64(2), out[0].CustomerID)

	c := out[1]
	require.Equal(t, 3, c.Packages)
	require.Equal(t, 4, c.MaxDays)
	require.True(t, c.Pending[models.CurrencyUSD].Equal(dec("12.5")))
	require.True(t, c.Pending[models.CurrencyVES].Equal(dec("500")))
}

func TestCompute_PaidBeforeDeliveryIsNotDebt(t *testing.T) {
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	created := now.Add(-48 * time.Hour)
	pkgs := []*models.Package{
		{ID: 1, CustomerID: 3, Status: models.PackageStatusInTransit, AmountToCollect: dec("10"), Currency: models.CurrencyUSD, CreatedAt: created},
		{ID: 2, CustomerID: 3, Status: models.PackageStatusInTransit, AmountToCollect: dec("20"), Currency: models.CurrencyUSD, CreatedAt: created},
		{ID: 3, CustomerID: 3, Status: models.PackageStatusArrived, AmountToCollect: dec("20"), Currency: models.CurrencyUSD, CreatedAt: created},
	}
	payments := []*models.Payment{
		{PackageID: 1, Amount: dec("10")},
		{PackageID: 2, Amount: dec("25")},
		{PackageID: 3, Amount: dec("5")},
	}

	out := Compute(pkgs, payments, now)
	require.Len(t, out, 1)
	require.Equal(t, uint64(3), out[0].PackageID)
	require.Equal(t, DebtUncollected, out[0].Type)
	require.True(t, out[0].Pending.Equal(dec("15")))

	sum := SummarizeByCustomer(out)
	require.Len(t, sum, 1)
	require.Equal(t, 1, sum[0].Packages)
	require.True(t, sum[0].Pending[models.CurrencyUSD].Equal(dec("15")))
}
