package fidelity

import (
	"testing"
	"time"

	"github.com/BearBump/ParcelBox/internal/models"
	"github.com/stretchr/testify/require"
)

func at(y int, m time.Month, d, h int) *time.Time {
	t := time.Date(y, m, d, h, 0, 0, 0, time.UTC)
	return &t
}

func TestBestStreak(t *testing.T) {
	consecutive := []time.Time{*at(2026, 3, 1, 10), *at(2026, 3, 2, 23), *at(2026, 3, 3, 1)}
	require.Equal(t, 3, BestStreak(consecutive, time.UTC))

	gaps := []time.Time{*at(2026, 3, 1, 10), *at(2026, 3, 3, 10), *at(2026, 3, 5, 10)}
	require.Equal(t, 1, BestStreak(gaps, time.UTC))

	// два пакета в один день считаются одной датой
	sameDay := []time.Time{*at(2026, 3, 1, 8), *at(2026, 3, 1, 18), *at(2026, 3, 2, 9)}
	require.Equal(t, 2, BestStreak(sameDay, time.UTC))

	require.Equal(t, 0, BestStreak(nil, time.UTC))
}

func TestBestStreak_UsesLocalCalendarDate(t *testing.T) {
	caracas := time.FixedZone("VET", -4*3600)
	// 02:00 UTC 2 марта это ещё 1 марта в Каракасе
	ts := []time.Time{*at(2026, 3, 2, 2), *at(2026, 3, 2, 15)}
	require.Equal(t, 2, BestStreak(ts, caracas))
	require.Equal(t, 1, BestStreak(ts, time.UTC))
}

func TestRank(t *testing.T) {
	pkgs := []*models.Package{
		{ID: 1, CustomerID: 1, WeightKg: 1, DeliveredAt: at(2026, 3, 1, 10)},
		{ID: 2, CustomerID: 2, WeightKg: 2.26, DeliveredAt: at(2026, 3, 1, 11)},
		{ID: 3, CustomerID: 2, WeightKg: 0, DeliveredAt: at(2026, 3, 2, 11)},
		{ID: 4, CustomerID: 3, WeightKg: 1, DeliveredAt: at(2026, 3, 4, 11)},
		{ID: 5, CustomerID: 4, WeightKg: 10},
	}

	out := Rank(pkgs, time.UTC)
	require.Len(t, out, 3)

	require.Equal(t, uint64(2), out[0].CustomerID)
	require.Equal(t, 1, out[0].Position)
	// 50+22.6 + 50 = 122.6
	require.Equal(t, int64(123), out[0].Points)
	require.Equal(t, 2, out[0].Packages)
	require.Equal(t, 2, out[0].BestStreak)

	// равные очки: порядок первого пакета сохраняется
	require.Equal(t, uint64(1), out[1].CustomerID)
	require.Equal(t, uint64(3), out[2].CustomerID)
	require.Equal(t, int64(60), out[1].Points)
	require.Equal(t, 3, out[2].Position)
}

func TestPeriodStart(t *testing.T) {
	// четверг
	now := time.Date(2026, 10, 15, 16, 30, 0, 0, time.UTC)

	w := PeriodWeek.Start(now, time.UTC)
	require.Equal(t, time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC), *w)

	m := PeriodMonth.Start(now, time.UTC)
	require.Equal(t, time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC), *m)

	require.Nil(t, PeriodAll.Start(now, time.UTC))

	sunday := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	require.Equal(t, time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC), *PeriodWeek.Start(sunday, time.UTC))

	_, err := ParsePeriod("year")
	require.Error(t, err)
	p, err := ParsePeriod("")
	require.NoError(t, err)
	require.Equal(t, PeriodAll, p)
}
