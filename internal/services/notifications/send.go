package notifications

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/BearBump/ParcelBox/internal/apperr"
	"github.com/BearBump/ParcelBox/internal/integrations/whatsapp"
	"github.com/BearBump/ParcelBox/internal/models"
	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
)

type SendResult struct {
	Sent    int `json:"sent"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
	// Aborted is set when the provider refused every further send.
	Aborted string `json:"aborted,omitempty"`
}

type ExecuteInput struct {
	Kind           *models.NotificationKind
	CampaignID     *uint64
	IncludePending bool
	IDs            []uint64
}

// Execute sends prepared notifications, and pending ones when asked. Every record is claimed first,
// so a notification is sent at most once even with concurrent executions.
func (s *Service) Execute(ctx context.Context, in ExecuteInput) (*SendResult, error) {
	from := []models.NotificationStatus{models.NotificationStatusPrepared}
	if in.IncludePending {
		from = append(from, models.NotificationStatusPending)
	}
	list, err := s.repo.ListNotifications(ctx, models.NotificationFilter{
		Kind:       in.Kind,
		Statuses:   from,
		CampaignID: in.CampaignID,
		IDs:        in.IDs,
	})
	if err != nil {
		return nil, err
	}
	res, err := s.sendAll(ctx, list, from)
	if err != nil {
		return res, err
	}
	slog.Info("notifications executed", "sent", res.Sent, "failed", res.Failed, "skipped", res.Skipped)
	return res, nil
}

// RetryFailed puts failed notifications back to pending and sends them again.
func (s *Service) RetryFailed(ctx context.Context, ids []uint64) (*SendResult, error) {
	if len(ids) == 0 {
		return nil, apperr.Validation("no notifications selected")
	}
	reset, err := s.repo.ResetFailed(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(reset) == 0 {
		return &SendResult{Skipped: len(ids)}, nil
	}
	pending := []models.NotificationStatus{models.NotificationStatusPending}
	list, err := s.repo.ListNotifications(ctx, models.NotificationFilter{IDs: reset, Statuses: pending})
	if err != nil {
		return nil, err
	}
	res, err := s.sendAll(ctx, list, pending)
	if res != nil {
		res.Skipped += len(ids) - len(reset)
	}
	return res, err
}

// SendTemplateTest sends a template to an arbitrary number to check it is approved.
func (s *Service) SendTemplateTest(ctx context.Context, phone, template, language string) (*models.Notification, error) {
	phone = models.NormalizePhone(phone)
	template = strings.TrimSpace(template)
	if phone == "" {
		return nil, apperr.Validation("a valid phone is required")
	}
	if template == "" {
		return nil, apperr.Validation("template is required")
	}
	if language == "" {
		language = s.cfg.TemplateLanguage
	}

	n := &models.Notification{
		Kind:             models.NotificationKindTemplateTest,
		Phone:            phone,
		TemplateName:     template,
		TemplateLanguage: language,
		Status:           models.NotificationStatusPrepared,
	}
	if err := s.sendNew(ctx, n); err != nil {
		return nil, err
	}
	return s.repo.GetNotification(ctx, n.ID)
}

// sendNew records a notification and sends it right away.
func (s *Service) sendNew(ctx context.Context, n *models.Notification) error {
	if _, err := s.repo.CreateNotifications(ctx, []*models.Notification{n}); err != nil {
		return err
	}
	if n.ID == 0 {
		return nil
	}
	res, err := s.sendAll(ctx, []*models.Notification{n}, []models.NotificationStatus{n.Status})
	if err != nil {
		return err
	}
	if res.Aborted != "" {
		return apperr.External(whatsapp.ErrTokenExpired)
	}
	return nil
}

func (s *Service) sendAll(ctx context.Context, list []*models.Notification, from []models.NotificationStatus) (*SendResult, error) {
	res := &SendResult{}
	for i, item := range list {
		n, err := s.repo.ClaimNotification(ctx, item.ID, from, s.cfg.ClaimLease)
		if err != nil {
			return res, err
		}
		if n == nil {
			res.Skipped++
			continue
		}

		if s.rl != nil && s.cfg.SendRatePerMinute > 0 {
			if err := s.rl.Wait(ctx, sendBucket, s.cfg.SendRatePerMinute, time.Minute); err != nil {
				return res, errors.Wrap(err, "wait send rate limit")
			}
		}

		msgID, sendErr := s.wa.Send(ctx, toMessage(n))
		if sendErr != nil {
			res.Failed++
			slog.Warn("notification send failed", "notification_id", n.ID, "kind", n.Kind, "error", sendErr.Error())
			if err := s.repo.MarkNotificationFailed(ctx, n.ID, sendErr.Error()); err != nil {
				return res, err
			}
			if whatsapp.Fatal(sendErr) {
				res.Aborted = sendErr.Error()
				res.Skipped += len(list) - i - 1
				slog.Error("notification batch aborted", "error", sendErr.Error())
				return res, nil
			}
			continue
		}

		if err := s.markSent(ctx, n.ID, msgID); err != nil {
			// сообщение уже ушло, считаем его отправленным
			slog.Error("mark notification sent", "notification_id", n.ID, "provider_message_id", msgID, "error", err.Error())
		}
		res.Sent++
		if n.RedemptionID != nil {
			if err := s.repo.SetRedemptionStatus(ctx, *n.RedemptionID, models.RedemptionStatusNotified); err != nil {
				slog.Warn("mark redemption notified", "redemption_id", *n.RedemptionID, "error", err.Error())
			}
		}
	}
	return res, nil
}

func (s *Service) markSent(ctx context.Context, id uint64, msgID string) error {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = s.cfg.MarkBackoff
	b := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(s.cfg.MarkRetries)), ctx)
	return backoff.Retry(func() error {
		return s.repo.MarkNotificationSent(ctx, id, msgID)
	}, b)
}

func toMessage(n *models.Notification) whatsapp.Message {
	return whatsapp.Message{
		To:       n.Phone,
		Body:     n.Body,
		Template: n.TemplateName,
		Language: n.TemplateLanguage,
		Params:   n.TemplateParams,
	}
}
