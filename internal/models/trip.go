package models

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/pkg/errors"
)

type TripStatus string

const (
	TripStatusScheduled  TripStatus = "scheduled"
	TripStatusInProgress TripStatus = "in_progress"
	TripStatusCompleted  TripStatus = "completed"
	TripStatusCancelled  TripStatus = "cancelled"
)

func ParseTripStatus(s string) (TripStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "scheduled", "programado":
		return TripStatusScheduled, nil
	case "in_progress", "en_curso":
		return TripStatusInProgress, nil
	case "completed", "completado":
		return TripStatusCompleted, nil
	case "cancelled", "canceled", "cancelado":
		return TripStatusCancelled, nil
	}
	return "", errors.Wrapf(ErrUnknownStatus, "trip status %q", s)
}

// Closed reports whether the trip no longer accepts status changes from dispatches.
func (s TripStatus) Closed() bool {
	return s == TripStatusCompleted || s == TripStatusCancelled
}

type Trip struct {
	ID           uint64
	Code         string
	Origin       string
	Destination  string
	FlightNumber string
	TripDate     time.Time
	Status       TripStatus

	// Flight snapshot is display-only.
	FlightStatus   json.RawMessage
	FlightFallback bool
	LastCheckedAt  *time.Time
	NextCheckAt    time.Time
	CheckFailCount int32
	LastError      *string

	CreatedAt time.Time
	UpdatedAt time.Time
}
