package models

import (
	"strings"
	"time"

	"github.com/pkg/errors"
)

type NotificationKind string

const (
	NotificationKindArrival        NotificationKind = "arrival"
	NotificationKindCampaign       NotificationKind = "campaign"
	NotificationKindRedemptionCode NotificationKind = "redemption_code"
	NotificationKindAutoReply      NotificationKind = "auto_reply"
	NotificationKindTemplateTest   NotificationKind = "template_test"
)

func ParseNotificationKind(s string) (NotificationKind, error) {
	switch k := NotificationKind(strings.ToLower(strings.TrimSpace(s))); k {
	case NotificationKindArrival, NotificationKindCampaign, NotificationKindRedemptionCode,
		NotificationKindAutoReply, NotificationKindTemplateTest:
		return k, nil
	}
	return "", errors.Errorf("unknown notification kind %q", s)
}

type NotificationStatus string

const (
	NotificationStatusPending  NotificationStatus = "pending"
	NotificationStatusPrepared NotificationStatus = "prepared"
	NotificationStatusSent     NotificationStatus = "sent"
	NotificationStatusFailed   NotificationStatus = "failed"
)

func ParseNotificationStatus(s string) (NotificationStatus, error) {
	switch st := NotificationStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case NotificationStatusPending, NotificationStatusPrepared, NotificationStatusSent, NotificationStatusFailed:
		return st, nil
	}
	return "", errors.Wrapf(ErrUnknownStatus, "notification status %q", s)
}

// Open reports whether a notification in this status still blocks a duplicate for the same event.
func (s NotificationStatus) Open() bool {
	return s == NotificationStatusPending || s == NotificationStatusPrepared
}

// DeliveryStatus comes from provider webhooks after the message was accepted.
type DeliveryStatus string

const (
	DeliveryStatusSent      DeliveryStatus = "sent"
	DeliveryStatusDelivered DeliveryStatus = "delivered"
	DeliveryStatusRead      DeliveryStatus = "read"
	DeliveryStatusFailed    DeliveryStatus = "failed"
)

func ParseDeliveryStatus(s string) (DeliveryStatus, error) {
	switch st := DeliveryStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case DeliveryStatusSent, DeliveryStatusDelivered, DeliveryStatusRead, DeliveryStatusFailed:
		return st, nil
	}
	return "", errors.Wrapf(ErrUnknownStatus, "delivery status %q", s)
}

type Notification struct {
	ID           uint64
	Kind         NotificationKind
	CustomerID   *uint64
	Phone        string
	CustomerName string

	PackageID    *uint64
	CampaignID   *uint64
	RedemptionID *uint64

	Body             string
	TemplateName     string
	TemplateLanguage string
	TemplateParams   []string

	Status            NotificationStatus
	DeliveryStatus    *DeliveryStatus
	ProviderMessageID *string
	Error             *string
	Attempts          int32

	CreatedAt  time.Time
	PreparedAt *time.Time
	SentAt     *time.Time
	FailedAt   *time.Time
	UpdatedAt  time.Time
}

type NotificationFilter struct {
	Kind       *NotificationKind
	Statuses   []NotificationStatus
	CampaignID *uint64
	IDs        []uint64
	Limit      int
}

type Campaign struct {
	ID               uint64
	Name             string
	Body             string
	TemplateName     string
	TemplateLanguage string
	Total            int
	SuccessCount     int
	FailedCount      int
	CreatedAt        time.Time
}

type IncomingMessage struct {
	ID                uint64
	FromPhone         string
	MessageType       string
	Content           string
	CustomerID        *uint64
	ProviderMessageID string
	ReceivedAt        time.Time
}

var deliveryRank = map[DeliveryStatus]int{
	DeliveryStatusSent:      1,
	DeliveryStatusDelivered: 2,
	DeliveryStatusRead:      3,
	DeliveryStatusFailed:    4,
}

// After reports whether s is further along than prev. Webhooks may arrive out of order.
func (s DeliveryStatus) After(prev DeliveryStatus) bool {
	return deliveryRank[s] > deliveryRank[prev]
}
