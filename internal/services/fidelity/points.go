package fidelity

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/BearBump/ParcelBox/internal/models"
	"github.com/pkg/errors"
)

const (
	basePoints    = 50
	pointsPerKilo = 10
)

type Period string

const (
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodAll   Period = "all"
)

func ParsePeriod(s string) (Period, error) {
	switch p := Period(strings.ToLower(strings.TrimSpace(s))); p {
	case PeriodWeek, PeriodMonth, PeriodAll:
		return p, nil
	case "":
		return PeriodAll, nil
	}
	return "", errors.Errorf("unknown period %q", s)
}

// Start returns the first instant of the period containing now, nil for all time.
// Weeks start on Monday.
func (p Period) Start(now time.Time, loc *time.Location) *time.Time {
	now = now.In(loc)
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	switch p {
	case PeriodWeek:
		offset := (int(day.Weekday()) + 6) % 7
		t := day.AddDate(0, 0, -offset)
		return &t
	case PeriodMonth:
		t := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
		return &t
	}
	return nil
}

// PackagePoints is what a single qualifying package is worth before rounding.
func PackagePoints(weightKg float64) float64 {
	return basePoints + pointsPerKilo*weightKg
}

type Record struct {
	CustomerID uint64  `json:"customer_id"`
	Name       string  `json:"name,omitempty"`
	Points     int64   `json:"points"`
	Packages   int     `json:"packages"`
	WeightKg   float64 `json:"total_weight_kg"`
	BestStreak int     `json:"best_streak"`
	Position   int     `json:"position"`
}

// Rank aggregates qualifying packages per customer. Packages without delivered_at are ignored.
// Customers with equal points keep the order of their first package in pkgs.
func Rank(pkgs []*models.Package, loc *time.Location) []Record {
	type acc struct {
		points float64
		pkgs   int
		weight float64
		days   []time.Time
	}
	var order []uint64
	byCustomer := map[uint64]*acc{}
	for _, p := range pkgs {
		if p.DeliveredAt == nil {
			continue
		}
		a, ok := byCustomer[p.CustomerID]
		if !ok {
			a = &acc{}
			byCustomer[p.CustomerID] = a
			order = append(order, p.CustomerID)
		}
		a.points += PackagePoints(p.WeightKg)
		a.pkgs++
		a.weight += p.WeightKg
		a.days = append(a.days, *p.DeliveredAt)
	}

	out := make([]Record, 0, len(order))
	for _, id := range order {
		a := byCustomer[id]
		out = append(out, Record{
			CustomerID: id,
			Points:     int64(math.Round(a.points)),
			Packages:   a.pkgs,
			WeightKg:   a.weight,
			BestStreak: BestStreak(a.days, loc),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Points > out[j].Points
	})
	for i := range out {
		out[i].Position = i + 1
	}
	return out
}

// BestStreak is the longest run of consecutive calendar dates with at least one delivery.
func BestStreak(ts []time.Time, loc *time.Location) int {
	if len(ts) == 0 {
		return 0
	}
	seen := map[time.Time]struct{}{}
	var days []time.Time
	for _, t := range ts {
		t = t.In(loc)
		// полночь по UTC, чтобы переход на летнее время не ломал разницу в сутках
		d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	best, cur := 1, 1
	for i := 1; i < len(days); i++ {
		if days[i].Sub(days[i-1]) == 24*time.Hour {
			cur++
		} else {
			cur = 1
		}
		if cur > best {
			best = cur
		}
	}
	return best
}
