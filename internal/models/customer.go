package models

import (
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
)

type Customer struct {
	ID        uint64
	Name      string
	Phone     string
	AltPhone  string
	CreatedAt time.Time
}

// NormalizePhone keeps digits only. Returns "" when the number is too short to be dialable.
func NormalizePhone(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	out := b.String()
	if len(out) < 8 {
		return ""
	}
	return out
}

// ContactPhone returns the first valid phone of the customer.
func (c *Customer) ContactPhone() string {
	if p := NormalizePhone(c.Phone); p != "" {
		return p
	}
	return NormalizePhone(c.AltPhone)
}

const phoneTailLen = 10

// PhoneTail is the part of a number used for matching: last 10 digits, no country prefix.
func PhoneTail(s string) string {
	s = NormalizePhone(s)
	if len(s) > phoneTailLen {
		s = s[len(s)-phoneTailLen:]
	}
	return s
}

// SamePhone compares two numbers ignoring formatting and country prefixes.
func SamePhone(a, b string) bool {
	a, b = PhoneTail(a), PhoneTail(b)
	if a == "" || b == "" {
		return false
	}
	return a == b
}

type Payment struct {
	ID         uint64
	PackageID  uint64
	CustomerID uint64
	Amount     decimal.Decimal
	Currency   Currency
	PaidAt     time.Time
}

type RedemptionStatus string

const (
	RedemptionStatusIssued   RedemptionStatus = "issued"
	RedemptionStatusNotified RedemptionStatus = "notified"
	RedemptionStatusUsed     RedemptionStatus = "used"
)

type PointRedemption struct {
	ID         uint64
	CustomerID uint64
	Points     int64
	Reward     string
	Code       string
	Status     RedemptionStatus
	CreatedAt  time.Time
}
