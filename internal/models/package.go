package models

import (
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

type PackageStatus string

const (
	PackageStatusReceived   PackageStatus = "received"
	PackageStatusWarehouse  PackageStatus = "warehouse"
	PackageStatusProcessed  PackageStatus = "processed"
	PackageStatusDespatched PackageStatus = "despatched"
	PackageStatusInTransit  PackageStatus = "in_transit"
	PackageStatusArrived    PackageStatus = "arrived_at_destination"
	PackageStatusDelivered  PackageStatus = "delivered"
)

var (
	ErrUnknownStatus     = errors.New("unknown status")
	ErrUnknownCurrency   = errors.New("unknown currency")
	ErrIllegalTransition = errors.New("illegal status transition")
)

// Старые статусы из интерфейса и импортов приводим к закрытому набору здесь и только здесь.
var packageStatusAliases = map[string]PackageStatus{
	"received":               PackageStatusReceived,
	"recibido":               PackageStatusReceived,
	"pending":                PackageStatusReceived,
	"warehouse":              PackageStatusWarehouse,
	"almacen":                PackageStatusWarehouse,
	"arrived":                PackageStatusWarehouse,
	"processed":              PackageStatusProcessed,
	"procesado":              PackageStatusProcessed,
	"despatched":             PackageStatusDespatched,
	"dispatched":             PackageStatusDespatched,
	"despachado":             PackageStatusDespatched,
	"in_transit":             PackageStatusInTransit,
	"in-transit":             PackageStatusInTransit,
	"en_transito":            PackageStatusInTransit,
	"arrived_at_destination": PackageStatusArrived,
	"llegado":                PackageStatusArrived,
	"delivered":              PackageStatusDelivered,
	"entregado":              PackageStatusDelivered,
}

func ParsePackageStatus(s string) (PackageStatus, error) {
	st, ok := packageStatusAliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", errors.Wrapf(ErrUnknownStatus, "package status %q", s)
	}
	return st, nil
}

// StoredForms returns every spelling that parses to s, for matching legacy rows.
func (s PackageStatus) StoredForms() []string {
	out := []string{}
	for raw, st := range packageStatusAliases {
		if st == s {
			out = append(out, raw)
		}
	}
	sort.Strings(out)
	return out
}

func (s PackageStatus) Valid() bool {
	_, ok := packageTransitions[s]
	return ok || s == PackageStatusDelivered
}

func (s PackageStatus) Terminal() bool {
	return s == PackageStatusDelivered
}

// packageTransitions is the directed edge set of the package lifecycle.
var packageTransitions = map[PackageStatus][]PackageStatus{
	PackageStatusReceived:   {PackageStatusWarehouse, PackageStatusProcessed},
	PackageStatusWarehouse:  {PackageStatusReceived},
	PackageStatusProcessed:  {PackageStatusDespatched},
	PackageStatusDespatched: {PackageStatusInTransit},
	PackageStatusInTransit:  {PackageStatusArrived},
	PackageStatusArrived:    {PackageStatusDelivered},
}

// CheckTransition reports whether moving from -> to changes anything.
// Same state and a terminal source are no-ops, not errors.
func CheckTransition(from, to PackageStatus) (bool, error) {
	if !from.Valid() || !to.Valid() {
		return false, errors.Wrapf(ErrUnknownStatus, "%q -> %q", from, to)
	}
	if from == to || from.Terminal() {
		return false, nil
	}
	for _, next := range packageTransitions[from] {
		if next == to {
			return true, nil
		}
	}
	return false, errors.Wrapf(ErrIllegalTransition, "%s -> %s", from, to)
}

// TransitionPath returns the intermediate and final states needed to reach `to`
// from `from` along legal edges (from itself excluded). Empty path means no-op.
func TransitionPath(from, to PackageStatus) ([]PackageStatus, error) {
	changed, err := CheckTransition(from, to)
	if err == nil {
		if !changed {
			return nil, nil
		}
		return []PackageStatus{to}, nil
	}
	if !errors.Is(err, ErrIllegalTransition) {
		return nil, err
	}

	// BFS по графу переходов, граф маленький.
	prev := map[PackageStatus]PackageStatus{from: ""}
	queue := []PackageStatus{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range packageTransitions[cur] {
			if _, seen := prev[next]; seen {
				continue
			}
			prev[next] = cur
			if next == to {
				var path []PackageStatus
				for s := to; s != from; s = prev[s] {
					path = append([]PackageStatus{s}, path...)
				}
				return path, nil
			}
			queue = append(queue, next)
		}
	}
	return nil, err
}

// DispatchEligible reports whether a package in status s may join a new dispatch.
// Linking and soft-delete are checked by the caller.
func DispatchEligible(s PackageStatus) bool {
	switch s {
	case PackageStatusReceived, PackageStatusProcessed, PackageStatusWarehouse:
		return true
	}
	return false
}

// DispatchedSignal reports whether s means "released with a dispatch". Both variants are accepted.
func DispatchedSignal(s PackageStatus) bool {
	return s == PackageStatusProcessed || s == PackageStatusDespatched
}

type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyVES Currency = "VES"
	CurrencyCOP Currency = "COP"
	CurrencyEUR Currency = "EUR"

	// BaseCurrency is the currency every freight amount is denominated in.
	BaseCurrency = CurrencyUSD
)

func ParseCurrency(s string) (Currency, error) {
	switch c := Currency(strings.ToUpper(strings.TrimSpace(s))); c {
	case CurrencyUSD, CurrencyVES, CurrencyCOP, CurrencyEUR:
		return c, nil
	case "BS", "VEF":
		return CurrencyVES, nil
	}
	return "", errors.Wrapf(ErrUnknownCurrency, "%q", s)
}

type Package struct {
	ID              uint64
	TrackingCode    string
	CustomerID      uint64
	TripID          *uint64
	DispatchID      *uint64
	Origin          string
	Destination     string
	WeightKg        float64
	Freight         decimal.Decimal
	AmountToCollect decimal.Decimal
	Currency        Currency
	Description     string
	Status          PackageStatus
	CreatedAt       time.Time
	UpdatedAt       time.Time
	DeliveredAt     *time.Time
	DeliveredBy     *string
	DeletedAt       *time.Time
}

// Validate checks the invariants that hold for every stored package.
func (p *Package) Validate() error {
	if !p.Status.Valid() {
		return errors.Wrapf(ErrUnknownStatus, "package %d status %q", p.ID, p.Status)
	}
	if p.Freight.IsNegative() {
		return errors.Errorf("package %d: freight is negative", p.ID)
	}
	if p.AmountToCollect.IsNegative() {
		return errors.Errorf("package %d: amount to collect is negative", p.ID)
	}
	if _, err := ParseCurrency(string(p.Currency)); err != nil {
		return err
	}
	return nil
}

type PackageFilter struct {
	Status         *PackageStatus
	TripID         *uint64
	CustomerID     *uint64
	IncludeDeleted bool
	Limit          int
	Offset         int
}

type TrackingEvent struct {
	ID         uint64
	PackageID  uint64
	Status     PackageStatus
	DispatchID *uint64
	Message    string
	Actor      string
	CreatedAt  time.Time
}
