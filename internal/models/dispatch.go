package models

import (
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

type DispatchStatus string

const (
	DispatchStatusPending    DispatchStatus = "pending"
	DispatchStatusDispatched DispatchStatus = "despachado"
	DispatchStatusInTransit  DispatchStatus = "en_transito"
	DispatchStatusArrived    DispatchStatus = "llegado"
)

var dispatchStatusAliases = map[string]DispatchStatus{
	"pending":     DispatchStatusPending,
	"pendiente":   DispatchStatusPending,
	"despachado":  DispatchStatusDispatched,
	"dispatched":  DispatchStatusDispatched,
	"en_transito": DispatchStatusInTransit,
	"in_transit":  DispatchStatusInTransit,
	"llegado":     DispatchStatusArrived,
	"arrived":     DispatchStatusArrived,
}

func ParseDispatchStatus(s string) (DispatchStatus, error) {
	st, ok := dispatchStatusAliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", errors.Wrapf(ErrUnknownStatus, "dispatch status %q", s)
	}
	return st, nil
}

// StoredForms returns every spelling that parses to s, for guarded updates on legacy rows.
func (s DispatchStatus) StoredForms() []string {
	out := []string{}
	for raw, st := range dispatchStatusAliases {
		if st == s {
			out = append(out, raw)
		}
	}
	sort.Strings(out)
	return out
}

// Totals are denormalized on the dispatch row. Freight is always in BaseCurrency;
// amounts to collect are kept per currency and never summed across currencies.
type DispatchTotals struct {
	PackageCount    int
	WeightKg        float64
	Freight         decimal.Decimal
	AmountToCollect map[Currency]decimal.Decimal
}

func ComputeDispatchTotals(pkgs []*Package) DispatchTotals {
	t := DispatchTotals{
		Freight:         decimal.Zero,
		AmountToCollect: map[Currency]decimal.Decimal{},
	}
	for _, p := range pkgs {
		t.PackageCount++
		t.WeightKg += p.WeightKg
		t.Freight = t.Freight.Add(p.Freight)
		if p.AmountToCollect.IsZero() {
			continue
		}
		cur := p.Currency
		if cur == "" {
			cur = BaseCurrency
		}
		t.AmountToCollect[cur] = t.AmountToCollect[cur].Add(p.AmountToCollect)
	}
	return t
}

// CommonTripID returns the trip shared by all packages, nil when they differ or have none.
func CommonTripID(pkgs []*Package) *uint64 {
	var trip *uint64
	for i, p := range pkgs {
		if p.TripID == nil {
			return nil
		}
		if i == 0 {
			id := *p.TripID
			trip = &id
			continue
		}
		if *p.TripID != *trip {
			return nil
		}
	}
	return trip
}

type Dispatch struct {
	ID           uint64
	DispatchDate time.Time
	TripID       *uint64
	Notes        string
	Status       DispatchStatus
	Totals       DispatchTotals
	Batches      []*ShipmentBatch
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ShipmentBatch is a bulto: a physical bag/box inside a dispatch.
type ShipmentBatch struct {
	ID         uint64
	DispatchID uint64
	Label      string
	PackageIDs []uint64
	Totals     DispatchTotals
}

type BatchInput struct {
	Label      string
	PackageIDs []uint64
}

type DispatchCreateInput struct {
	Date       time.Time
	PackageIDs []uint64
	Notes      string
	Batches    []BatchInput
	Actor      string
}
