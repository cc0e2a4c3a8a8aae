package messages

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	TypePackageStatusChanged = "package.status_changed"
	TypeFlightStatusUpdated  = "trip.flight_status_updated"
	TypeWhatsAppStatus       = "whatsapp.status"
	TypeWhatsAppMessage      = "whatsapp.message"
)

type Envelope struct {
	EventID    string    `json:"event_id"`
	EventType  string    `json:"event_type"`
	OccurredAt time.Time `json:"occurred_at"`
}

func NewEnvelope(eventType string) Envelope {
	return Envelope{
		EventID:    uuid.NewString(),
		EventType:  eventType,
		OccurredAt: time.Now().UTC(),
	}
}

type PackageStatusChanged struct {
	Envelope
	PackageID  uint64  `json:"package_id"`
	DispatchID *uint64 `json:"dispatch_id,omitempty"`
	TripID     *uint64 `json:"trip_id,omitempty"`
	From       string  `json:"from"`
	To         string  `json:"to"`
	Actor      string  `json:"actor,omitempty"`
}

type FlightStatusUpdated struct {
	Envelope
	TripID    uint64    `json:"trip_id"`
	CheckedAt time.Time `json:"checked_at"`

	Payload  json.RawMessage `json:"payload,omitempty"`
	Fallback bool            `json:"fallback"`

	NextCheckAt time.Time `json:"next_check_at"`
	Error       *string   `json:"error,omitempty"`
}

// WhatsAppEvent is one parsed webhook entry: either a delivery status or an incoming message.
type WhatsAppEvent struct {
	Envelope
	Status  *WhatsAppStatus  `json:"status,omitempty"`
	Message *WhatsAppMessage `json:"message,omitempty"`
}

type WhatsAppStatus struct {
	MessageID string    `json:"message_id"`
	Recipient string    `json:"recipient"`
	Status    string    `json:"status"`
	Error     *string   `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type WhatsAppMessage struct {
	MessageID string    `json:"message_id"`
	From      string    `json:"from"`
	Type      string    `json:"type"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}
