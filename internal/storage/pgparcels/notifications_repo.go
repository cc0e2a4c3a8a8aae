package pgparcels

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/BearBump/ParcelBox/internal/apperr"
	"github.com/BearBump/ParcelBox/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

const notificationColumns = `
  id, kind, customer_id, phone, customer_name,
  package_id, campaign_id, redemption_id,
  body, template_name, template_language, template_params,
  status, delivery_status, provider_message_id, error, attempts,
  created_at, prepared_at, sent_at, failed_at, updated_at`

// DeliveryUpdate is a provider webhook status for an outbound message.
type DeliveryUpdate struct {
	MessageID string
	Phone     string
	Status    models.DeliveryStatus
	Error     string
}

func scanNotification(r rowScanner) (*models.Notification, error) {
	var n models.Notification
	if err := r.Scan(
		&n.ID, &n.Kind, &n.CustomerID, &n.Phone, &n.CustomerName,
		&n.PackageID, &n.CampaignID, &n.RedemptionID,
		&n.Body, &n.TemplateName, &n.TemplateLanguage, &n.TemplateParams,
		&n.Status, &n.DeliveryStatus, &n.ProviderMessageID, &n.Error, &n.Attempts,
		&n.CreatedAt, &n.PreparedAt, &n.SentAt, &n.FailedAt, &n.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &n, nil
}

func collectNotifications(rows pgx.Rows) ([]*models.Notification, error) {
	defer rows.Close()
	out := make([]*models.Notification, 0)
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan notification")
		}
		out = append(out, n)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

// insertNotification returns false when an open notification for the same event already exists.
func insertNotification(ctx context.Context, tx pgx.Tx, n *models.Notification) (bool, error) {
	params := n.TemplateParams
	if params == nil {
		params = []string{}
	}
	status := n.Status
	if status == "" {
		status = models.NotificationStatusPending
	}
	err := tx.QueryRow(ctx, `
INSERT INTO notifications (
  kind, customer_id, phone, customer_name, package_id, campaign_id, redemption_id,
  body, template_name, template_language, template_params, status, created_at, updated_at
)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12, now(), now())
ON CONFLICT DO NOTHING
RETURNING id, created_at
`, string(n.Kind), n.CustomerID, n.Phone, n.CustomerName, n.PackageID, n.CampaignID, n.RedemptionID,
		n.Body, n.TemplateName, n.TemplateLanguage, params, string(status)).Scan(&n.ID, &n.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "insert notification")
	}
	n.Status = status
	n.UpdatedAt = n.CreatedAt
	return true, nil
}

// CreateNotifications inserts records skipping duplicates of open ones. Returns how many were created.
func (s *Storage) CreateNotifications(ctx context.Context, ns []*models.Notification) (int, error) {
	if len(ns) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	created := 0
	for _, n := range ns {
		ok, err := insertNotification(ctx, tx, n)
		if err != nil {
			return 0, err
		}
		if ok {
			created++
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, errors.Wrap(err, "commit tx")
	}
	return created, nil
}

func (s *Storage) CreateCampaign(ctx context.Context, c *models.Campaign, ns []*models.Notification) (*models.Campaign, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	out := *c
	out.Total = len(ns)
	err = tx.QueryRow(ctx, `
INSERT INTO campaigns (name, body, template_name, template_language, total, created_at)
VALUES ($1,$2,$3,$4,$5, now())
RETURNING id, created_at
`, c.Name, c.Body, c.TemplateName, c.TemplateLanguage, out.Total).Scan(&out.ID, &out.CreatedAt)
	if err != nil {
		return nil, errors.Wrap(err, "insert campaign")
	}

	for _, n := range ns {
		id := out.ID
		n.CampaignID = &id
		if _, err := insertNotification(ctx, tx, n); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, errors.Wrap(err, "commit tx")
	}
	return &out, nil
}

func (s *Storage) GetCampaign(ctx context.Context, id uint64) (*models.Campaign, error) {
	var c models.Campaign
	err := s.db.QueryRow(ctx, `
SELECT id, name, body, template_name, template_language, total, success_count, failed_count, created_at
FROM campaigns WHERE id = $1
`, id).Scan(&c.ID, &c.Name, &c.Body, &c.TemplateName, &c.TemplateLanguage,
		&c.Total, &c.SuccessCount, &c.FailedCount, &c.CreatedAt)
	if err != nil {
		return nil, notFoundOr(err, "campaign %d not found", id)
	}
	return &c, nil
}

func (s *Storage) GetNotification(ctx context.Context, id uint64) (*models.Notification, error) {
	n, err := scanNotification(s.db.QueryRow(ctx, `SELECT`+notificationColumns+` FROM notifications WHERE id = $1`, id))
	if err != nil {
		return nil, notFoundOr(err, "notification %d not found", id)
	}
	return n, nil
}

func (s *Storage) ListNotifications(ctx context.Context, f models.NotificationFilter) ([]*models.Notification, error) {
	where := []string{"TRUE"}
	args := []any{}
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.Kind != nil {
		add("kind = $%d", string(*f.Kind))
	}
	if len(f.Statuses) > 0 {
		add("status = ANY($%d)", statusList(f.Statuses))
	}
	if f.CampaignID != nil {
		add("campaign_id = $%d", *f.CampaignID)
	}
	if len(f.IDs) > 0 {
		add("id = ANY($%d)", f.IDs)
	}
	limit := f.Limit
	if limit <= 0 || limit > 5000 {
		limit = 1000
	}
	args = append(args, limit)

	rows, err := s.db.Query(ctx, `SELECT`+notificationColumns+` FROM notifications WHERE `+
		strings.Join(where, " AND ")+fmt.Sprintf(` ORDER BY id LIMIT $%d`, len(args)), args...)
	if err != nil {
		return nil, errors.Wrap(err, "select notifications")
	}
	return collectNotifications(rows)
}

// ApproveNotifications moves pending records to prepared.
func (s *Storage) ApproveNotifications(ctx context.Context, ids []uint64) (int, error) {
	tag, err := s.db.Exec(ctx, `
UPDATE notifications
SET status = 'prepared', prepared_at = now(), updated_at = now()
WHERE id = ANY($1) AND status = 'pending'
`, ids)
	if err != nil {
		return 0, errors.Wrap(err, "approve notifications")
	}
	return int(tag.RowsAffected()), nil
}

// ClaimNotification reserves a record for one send attempt. Returns nil when it is
// in another status or another sender holds an unexpired claim.
func (s *Storage) ClaimNotification(ctx context.Context, id uint64, from []models.NotificationStatus, lease time.Duration) (*models.Notification, error) {
	n, err := scanNotification(s.db.QueryRow(ctx, `
UPDATE notifications
SET claimed_at = now(), attempts = attempts + 1, updated_at = now()
WHERE id = $1
  AND status = ANY($2)
  AND (claimed_at IS NULL OR claimed_at < now() - make_interval(secs => $3))
RETURNING`+notificationColumns,
		id, statusList(from), lease.Seconds()))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "claim notification")
	}
	return n, nil
}

func (s *Storage) MarkNotificationSent(ctx context.Context, id uint64, providerMessageID string) error {
	return s.finishNotification(ctx, id, `
UPDATE notifications
SET status = 'sent', delivery_status = 'sent', provider_message_id = NULLIF($2, ''),
    sent_at = now(), error = NULL, claimed_at = NULL, updated_at = now()
WHERE id = $1
RETURNING campaign_id
`, providerMessageID, "success_count")
}

func (s *Storage) MarkNotificationFailed(ctx context.Context, id uint64, errMsg string) error {
	return s.finishNotification(ctx, id, `
UPDATE notifications
SET status = 'failed', error = $2, failed_at = now(), claimed_at = NULL, updated_at = now()
WHERE id = $1
RETURNING campaign_id
`, errMsg, "failed_count")
}

func (s *Storage) finishNotification(ctx context.Context, id uint64, q, arg, counter string) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var campaignID *uint64
	if err := tx.QueryRow(ctx, q, id, arg).Scan(&campaignID); err != nil {
		return notFoundOr(err, "notification %d not found", id)
	}
	if campaignID != nil {
		if _, err := tx.Exec(ctx, `UPDATE campaigns SET `+counter+` = `+counter+` + 1 WHERE id = $1`, *campaignID); err != nil {
			return errors.Wrap(err, "update campaign counters")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "commit tx")
	}
	return nil
}

// ResetFailed moves failed records back to pending and takes them out of campaign failed counters.
// A record whose package or redemption already has an open notification stays failed and is
// left out of the result, as is every record but the newest one per event.
func (s *Storage) ResetFailed(ctx context.Context, ids []uint64) ([]uint64, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, `
WITH picked AS (
  SELECT DISTINCT ON (n.kind, COALESCE(n.package_id, 0), COALESCE(n.redemption_id, 0),
                      CASE WHEN n.package_id IS NULL AND n.redemption_id IS NULL THEN n.id ELSE 0 END)
         n.id
  FROM notifications n
  WHERE n.id = ANY($1) AND n.status = 'failed'
    AND NOT EXISTS (
      SELECT 1 FROM notifications o
      WHERE o.kind = n.kind
        AND o.status IN ('pending','prepared')
        AND ((n.package_id IS NOT NULL AND o.package_id = n.package_id)
          OR (n.redemption_id IS NOT NULL AND o.redemption_id = n.redemption_id))
    )
  ORDER BY n.kind, COALESCE(n.package_id, 0), COALESCE(n.redemption_id, 0),
           CASE WHEN n.package_id IS NULL AND n.redemption_id IS NULL THEN n.id ELSE 0 END,
           n.id DESC
)
UPDATE notifications
SET status = 'pending', error = NULL, failed_at = NULL, claimed_at = NULL, updated_at = now()
WHERE id IN (SELECT id FROM picked) AND status = 'failed'
RETURNING id, campaign_id
`, ids)
	if err != nil {
		return nil, errors.Wrap(err, "reset failed notifications")
	}
	var reset []uint64
	perCampaign := map[uint64]int{}
	for rows.Next() {
		var id uint64
		var campaignID *uint64
		if err := rows.Scan(&id, &campaignID); err != nil {
			rows.Close()
			return nil, errors.Wrap(err, "scan reset notification")
		}
		reset = append(reset, id)
		if campaignID != nil {
			perCampaign[*campaignID]++
		}
	}
	rows.Close()
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}

	for campaignID, n := range perCampaign {
		if _, err := tx.Exec(ctx, `UPDATE campaigns SET failed_count = GREATEST(failed_count - $2, 0) WHERE id = $1`,
			campaignID, n); err != nil {
			return nil, errors.Wrap(err, "update campaign counters")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, errors.Wrap(err, "commit tx")
	}
	return reset, nil
}

// ApplyDeliveryStatus correlates a webhook status to a notification: by provider message id when
// known, otherwise the most recent sent notification to that phone. Returns 0 when nothing matched.
func (s *Storage) ApplyDeliveryStatus(ctx context.Context, upd DeliveryUpdate) (uint64, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var (
		id         uint64
		status     models.NotificationStatus
		current    *models.DeliveryStatus
		campaignID *uint64
	)
	found := false
	if upd.MessageID != "" {
		err := tx.QueryRow(ctx, `
SELECT id, status, delivery_status, campaign_id FROM notifications
WHERE provider_message_id = $1
ORDER BY id DESC LIMIT 1
FOR UPDATE
`, upd.MessageID).Scan(&id, &status, &current, &campaignID)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return 0, errors.Wrap(err, "find notification by message id")
		}
		found = err == nil
	}
	if !found {
		tail := models.PhoneTail(upd.Phone)
		if tail == "" {
			return 0, nil
		}
		err := tx.QueryRow(ctx, `
SELECT id, status, delivery_status, campaign_id FROM notifications
WHERE status = 'sent' AND right(regexp_replace(phone, '\D', '', 'g'), 10) = $1
ORDER BY sent_at DESC, id DESC LIMIT 1
FOR UPDATE
`, tail).Scan(&id, &status, &current, &campaignID)
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		if err != nil {
			return 0, errors.Wrap(err, "find notification by phone")
		}
	}

	if upd.Status == models.DeliveryStatusFailed {
		msg := upd.Error
		if msg == "" {
			msg = "delivery failed"
		}
		_, err := tx.Exec(ctx, `
UPDATE notifications
SET status = 'failed', delivery_status = 'failed', error = $2, failed_at = now(), updated_at = now()
WHERE id = $1
`, id, msg)
		if err != nil {
			return 0, errors.Wrap(err, "mark delivery failed")
		}
		if status == models.NotificationStatusSent && campaignID != nil {
			if _, err := tx.Exec(ctx, `
UPDATE campaigns SET success_count = GREATEST(success_count - 1, 0), failed_count = failed_count + 1 WHERE id = $1
`, *campaignID); err != nil {
				return 0, errors.Wrap(err, "update campaign counters")
			}
		}
	} else if current == nil || upd.Status.After(*current) {
		if _, err := tx.Exec(ctx, `UPDATE notifications SET delivery_status = $2, updated_at = now() WHERE id = $1`,
			id, string(upd.Status)); err != nil {
			return 0, errors.Wrap(err, "update delivery status")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, errors.Wrap(err, "commit tx")
	}
	return id, nil
}

// SaveIncomingMessage stores a customer message once per provider message id.
func (s *Storage) SaveIncomingMessage(ctx context.Context, m *models.IncomingMessage) (bool, error) {
	received := m.ReceivedAt
	if received.IsZero() {
		received = time.Now()
	}
	err := s.db.QueryRow(ctx, `
INSERT INTO incoming_messages (from_phone, message_type, content, customer_id, provider_message_id, received_at)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT DO NOTHING
RETURNING id
`, m.FromPhone, m.MessageType, m.Content, m.CustomerID, m.ProviderMessageID, received.UTC()).Scan(&m.ID)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "insert incoming message")
	}
	m.ReceivedAt = received.UTC()
	return true, nil
}

func (s *Storage) ListIncomingMessages(ctx context.Context, limit int) ([]*models.IncomingMessage, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := s.db.Query(ctx, `
SELECT id, from_phone, message_type, content, customer_id, provider_message_id, received_at
FROM incoming_messages
ORDER BY received_at DESC, id DESC
LIMIT $1
`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "select incoming messages")
	}
	defer rows.Close()

	var out []*models.IncomingMessage
	for rows.Next() {
		var m models.IncomingMessage
		if err := rows.Scan(&m.ID, &m.FromPhone, &m.MessageType, &m.Content, &m.CustomerID,
			&m.ProviderMessageID, &m.ReceivedAt); err != nil {
			return nil, errors.Wrap(err, "scan incoming message")
		}
		out = append(out, &m)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

// RedemptionDraft carries the points earned so far; the check against redeemed points runs under a per-customer lock.
type RedemptionDraft struct {
	CustomerID uint64
	Points     int64
	Reward     string
	Code       string
	Earned     int64
}

func (s *Storage) CreateRedemption(ctx context.Context, d RedemptionDraft) (*models.PointRedemption, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(d.CustomerID)); err != nil {
		return nil, errors.Wrap(err, "lock customer points")
	}
	var redeemed int64
	if err := tx.QueryRow(ctx, `SELECT COALESCE(SUM(points), 0)::BIGINT FROM point_redemptions WHERE customer_id = $1`,
		d.CustomerID).Scan(&redeemed); err != nil {
		return nil, errors.Wrap(err, "sum redeemed points")
	}
	if available := d.Earned - redeemed; available < d.Points {
		return nil, apperr.Precondition("not enough points: available %d, requested %d", available, d.Points)
	}

	r := models.PointRedemption{
		CustomerID: d.CustomerID,
		Points:     d.Points,
		Reward:     d.Reward,
		Code:       d.Code,
		Status:     models.RedemptionStatusIssued,
	}
	err = tx.QueryRow(ctx, `
INSERT INTO point_redemptions (customer_id, points, reward, code, status, created_at)
VALUES ($1,$2,$3,$4,$5, now())
RETURNING id, created_at
`, r.CustomerID, r.Points, r.Reward, r.Code, string(r.Status)).Scan(&r.ID, &r.CreatedAt)
	if err != nil {
		return nil, errors.Wrap(err, "insert redemption")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, errors.Wrap(err, "commit tx")
	}
	return &r, nil
}

func (s *Storage) GetRedemption(ctx context.Context, id uint64) (*models.PointRedemption, error) {
	var r models.PointRedemption
	err := s.db.QueryRow(ctx, `
SELECT id, customer_id, points, reward, code, status, created_at FROM point_redemptions WHERE id = $1
`, id).Scan(&r.ID, &r.CustomerID, &r.Points, &r.Reward, &r.Code, &r.Status, &r.CreatedAt)
	if err != nil {
		return nil, notFoundOr(err, "redemption %d not found", id)
	}
	return &r, nil
}

func (s *Storage) SetRedemptionStatus(ctx context.Context, id uint64, st models.RedemptionStatus) error {
	_, err := s.db.Exec(ctx, `UPDATE point_redemptions SET status = $2 WHERE id = $1`, id, string(st))
	return errors.Wrap(err, "update redemption status")
}

// RedeemedPoints returns redeemed totals per customer.
func (s *Storage) RedeemedPoints(ctx context.Context) (map[uint64]int64, error) {
	rows, err := s.db.Query(ctx, `SELECT customer_id, SUM(points)::BIGINT FROM point_redemptions GROUP BY customer_id`)
	if err != nil {
		return nil, errors.Wrap(err, "select redeemed points")
	}
	defer rows.Close()

	out := map[uint64]int64{}
	for rows.Next() {
		var id uint64
		var pts int64
		if err := rows.Scan(&id, &pts); err != nil {
			return nil, errors.Wrap(err, "scan redeemed points")
		}
		out[id] = pts
	}
	return out, errors.Wrap(rows.Err(), "rows")
}

func statusList(in []models.NotificationStatus) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, string(s))
	}
	return out
}
