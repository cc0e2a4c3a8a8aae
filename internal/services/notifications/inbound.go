package notifications

import (
	"context"
	"log/slog"
	"strings"

	"github.com/BearBump/ParcelBox/internal/apperr"
	"github.com/BearBump/ParcelBox/internal/broker/messages"
	"github.com/BearBump/ParcelBox/internal/models"
	"github.com/BearBump/ParcelBox/internal/storage/pgparcels"
	"github.com/pkg/errors"
)

type DeliveryStatusInput struct {
	MessageID string
	Phone     string
	Status    string
	Error     string
}

// ApplyDeliveryStatus correlates a provider status with a sent notification. Returns 0 when nothing matched.
func (s *Service) ApplyDeliveryStatus(ctx context.Context, in DeliveryStatusInput) (uint64, error) {
	st, err := models.ParseDeliveryStatus(in.Status)
	if err != nil {
		return 0, apperr.Validation("%s", err.Error())
	}
	id, err := s.repo.ApplyDeliveryStatus(ctx, pgparcels.DeliveryUpdate{
		MessageID: in.MessageID,
		Phone:     in.Phone,
		Status:    st,
		Error:     in.Error,
	})
	if err != nil {
		return 0, err
	}
	if id == 0 {
		slog.Warn("delivery status without notification", "message_id", in.MessageID, "status", st)
	}
	return id, nil
}

type IncomingResult struct {
	Message   *models.IncomingMessage `json:"message"`
	Duplicate bool                    `json:"duplicate"`
	Reply     *models.Notification    `json:"reply,omitempty"`
}

// HandleIncoming stores a customer message and answers it when auto-reply is on.
// A failing responder never leaves the customer without an answer: the greeting goes out instead.
func (s *Service) HandleIncoming(ctx context.Context, m *models.IncomingMessage) (*IncomingResult, error) {
	phone := models.NormalizePhone(m.FromPhone)
	if phone == "" {
		return nil, apperr.Validation("incoming message has no valid sender phone")
	}
	m.FromPhone = phone

	c, err := s.repo.FindCustomerByPhone(ctx, phone)
	if err != nil {
		return nil, err
	}
	if c != nil {
		id := c.ID
		m.CustomerID = &id
	}

	created, err := s.repo.SaveIncomingMessage(ctx, m)
	if err != nil {
		return nil, err
	}
	res := &IncomingResult{Message: m, Duplicate: !created}
	if !created || !s.cfg.AutoReply {
		return res, nil
	}

	reply := s.cfg.Greeting
	if s.responder != nil && strings.TrimSpace(m.Content) != "" {
		r, err := s.responder.Reply(ctx, m.Content)
		if err != nil {
			slog.Warn("responder failed, sending greeting", "from", phone, "error", err.Error())
		} else {
			reply = r
		}
	}

	n := &models.Notification{
		Kind:       models.NotificationKindAutoReply,
		CustomerID: m.CustomerID,
		Phone:      phone,
		Body:       reply,
		Status:     models.NotificationStatusPrepared,
	}
	if c != nil {
		n.CustomerName = c.Name
	}
	if err := s.sendNew(ctx, n); err != nil {
		// входящее уже сохранено, ответ можно повторить через RetryFailed
		slog.Error("auto reply", "from", phone, "error", err.Error())
	}
	res.Reply = n
	return res, nil
}

func (s *Service) ListIncoming(ctx context.Context, limit int) ([]*models.IncomingMessage, error) {
	return s.repo.ListIncomingMessages(ctx, limit)
}

// ApplyWhatsAppEvent handles one webhook event from the broker. Malformed events are dropped,
// storage errors are returned so the event is delivered again.
func (s *Service) ApplyWhatsAppEvent(ctx context.Context, ev messages.WhatsAppEvent) error {
	var err error
	switch {
	case ev.Status != nil:
		in := DeliveryStatusInput{
			MessageID: ev.Status.MessageID,
			Phone:     ev.Status.Recipient,
			Status:    ev.Status.Status,
		}
		if ev.Status.Error != nil {
			in.Error = *ev.Status.Error
		}
		_, err = s.ApplyDeliveryStatus(ctx, in)
	case ev.Message != nil:
		_, err = s.HandleIncoming(ctx, &models.IncomingMessage{
			FromPhone:         ev.Message.From,
			MessageType:       ev.Message.Type,
			Content:           ev.Message.Content,
			ProviderMessageID: ev.Message.MessageID,
			ReceivedAt:        ev.Message.Timestamp,
		})
	default:
		slog.Warn("empty whatsapp event", "event_id", ev.EventID)
		return nil
	}

	if errors.Is(err, apperr.ErrValidation) {
		slog.Warn("whatsapp event dropped", "event_id", ev.EventID, "error", err.Error())
		return nil
	}
	return err
}
