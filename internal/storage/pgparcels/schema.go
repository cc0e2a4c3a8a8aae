package pgparcels

import (
	"context"

	"github.com/pkg/errors"
)

func (s *Storage) initSchema(ctx context.Context) error {
	stmts := []string{
		`
CREATE TABLE IF NOT EXISTS customers (
  id BIGSERIAL PRIMARY KEY,
  name TEXT NOT NULL,
  phone TEXT NOT NULL DEFAULT '',
  alt_phone TEXT NOT NULL DEFAULT '',
  created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
		`
CREATE TABLE IF NOT EXISTS trips (
  id BIGSERIAL PRIMARY KEY,
  code TEXT NOT NULL UNIQUE,
  origin TEXT NOT NULL DEFAULT '',
  destination TEXT NOT NULL DEFAULT '',
  flight_number TEXT NOT NULL DEFAULT '',
  trip_date DATE NOT NULL,
  status TEXT NOT NULL DEFAULT 'scheduled',
  flight_status JSONB NULL,
  flight_fallback BOOLEAN NOT NULL DEFAULT false,
  last_checked_at TIMESTAMPTZ NULL,
  next_check_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  check_fail_count INT NOT NULL DEFAULT 0,
  last_error TEXT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
		`CREATE INDEX IF NOT EXISTS idx_trips_next_check_at ON trips(next_check_at)`,
		`
CREATE TABLE IF NOT EXISTS dispatches (
  id BIGSERIAL PRIMARY KEY,
  dispatch_date DATE NOT NULL,
  trip_id BIGINT NULL REFERENCES trips(id),
  notes TEXT NOT NULL DEFAULT '',
  status TEXT NOT NULL,
  package_count INT NOT NULL DEFAULT 0,
  total_weight DOUBLE PRECISION NOT NULL DEFAULT 0,
  total_freight NUMERIC(14,2) NOT NULL DEFAULT 0,
  amount_to_collect JSONB NOT NULL DEFAULT '{}',
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
		`CREATE INDEX IF NOT EXISTS idx_dispatches_date ON dispatches(dispatch_date)`,
		`
CREATE TABLE IF NOT EXISTS packages (
  id BIGSERIAL PRIMARY KEY,
  tracking_code TEXT NOT NULL UNIQUE,
  customer_id BIGINT NOT NULL REFERENCES customers(id),
  trip_id BIGINT NULL REFERENCES trips(id),
  dispatch_id BIGINT NULL REFERENCES dispatches(id),
  origin TEXT NOT NULL DEFAULT '',
  destination TEXT NOT NULL DEFAULT '',
  weight_kg DOUBLE PRECISION NOT NULL DEFAULT 0 CHECK (weight_kg >= 0),
  freight NUMERIC(14,2) NOT NULL DEFAULT 0 CHECK (freight >= 0),
  amount_to_collect NUMERIC(14,2) NOT NULL DEFAULT 0 CHECK (amount_to_collect >= 0),
  currency TEXT NOT NULL DEFAULT 'USD',
  description TEXT NOT NULL DEFAULT '',
  status TEXT NOT NULL DEFAULT 'received',
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  delivered_at TIMESTAMPTZ NULL,
  delivered_by TEXT NULL,
  deleted_at TIMESTAMPTZ NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_packages_trip_id ON packages(trip_id)`,
		`CREATE INDEX IF NOT EXISTS idx_packages_status ON packages(status) WHERE deleted_at IS NULL`,
		`
CREATE TABLE IF NOT EXISTS shipment_batches (
  id BIGSERIAL PRIMARY KEY,
  dispatch_id BIGINT NOT NULL REFERENCES dispatches(id) ON DELETE CASCADE,
  label TEXT NOT NULL,
  package_count INT NOT NULL DEFAULT 0,
  total_weight DOUBLE PRECISION NOT NULL DEFAULT 0,
  total_freight NUMERIC(14,2) NOT NULL DEFAULT 0,
  amount_to_collect JSONB NOT NULL DEFAULT '{}',
  created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
		`
CREATE TABLE IF NOT EXISTS dispatch_packages (
  dispatch_id BIGINT NOT NULL REFERENCES dispatches(id) ON DELETE CASCADE,
  package_id BIGINT NOT NULL REFERENCES packages(id),
  batch_id BIGINT NULL REFERENCES shipment_batches(id) ON DELETE SET NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  PRIMARY KEY (dispatch_id, package_id)
)`,
		// Пакет может состоять только в одной отправке.
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_dispatch_packages_package ON dispatch_packages(package_id)`,
		`
CREATE TABLE IF NOT EXISTS tracking_events (
  id BIGSERIAL PRIMARY KEY,
  package_id BIGINT NOT NULL REFERENCES packages(id),
  status TEXT NOT NULL,
  dispatch_id BIGINT NULL,
  message TEXT NOT NULL DEFAULT '',
  actor TEXT NOT NULL DEFAULT '',
  created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
		`CREATE INDEX IF NOT EXISTS idx_tracking_events_package ON tracking_events(package_id, created_at DESC)`,
		`
CREATE TABLE IF NOT EXISTS customer_payments (
  id BIGSERIAL PRIMARY KEY,
  package_id BIGINT NOT NULL REFERENCES packages(id),
  customer_id BIGINT NOT NULL REFERENCES customers(id),
  amount NUMERIC(14,2) NOT NULL,
  currency TEXT NOT NULL DEFAULT 'USD',
  paid_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
		`CREATE INDEX IF NOT EXISTS idx_customer_payments_package ON customer_payments(package_id)`,
		`
CREATE TABLE IF NOT EXISTS campaigns (
  id BIGSERIAL PRIMARY KEY,
  name TEXT NOT NULL,
  body TEXT NOT NULL DEFAULT '',
  template_name TEXT NOT NULL DEFAULT '',
  template_language TEXT NOT NULL DEFAULT '',
  total INT NOT NULL DEFAULT 0,
  success_count INT NOT NULL DEFAULT 0,
  failed_count INT NOT NULL DEFAULT 0,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
		`
CREATE TABLE IF NOT EXISTS point_redemptions (
  id BIGSERIAL PRIMARY KEY,
  customer_id BIGINT NOT NULL REFERENCES customers(id),
  points BIGINT NOT NULL CHECK (points > 0),
  reward TEXT NOT NULL,
  code TEXT NOT NULL UNIQUE,
  status TEXT NOT NULL DEFAULT 'issued',
  created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
		`
CREATE TABLE IF NOT EXISTS notifications (
  id BIGSERIAL PRIMARY KEY,
  kind TEXT NOT NULL,
  customer_id BIGINT NULL REFERENCES customers(id),
  phone TEXT NOT NULL,
  customer_name TEXT NOT NULL DEFAULT '',
  package_id BIGINT NULL REFERENCES packages(id),
  campaign_id BIGINT NULL REFERENCES campaigns(id),
  redemption_id BIGINT NULL REFERENCES point_redemptions(id),
  body TEXT NOT NULL DEFAULT '',
  template_name TEXT NOT NULL DEFAULT '',
  template_language TEXT NOT NULL DEFAULT '',
  template_params TEXT[] NOT NULL DEFAULT '{}',
  status TEXT NOT NULL DEFAULT 'pending',
  delivery_status TEXT NULL,
  provider_message_id TEXT NULL,
  error TEXT NULL,
  attempts INT NOT NULL DEFAULT 0,
  claimed_at TIMESTAMPTZ NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  prepared_at TIMESTAMPTZ NULL,
  sent_at TIMESTAMPTZ NULL,
  failed_at TIMESTAMPTZ NULL,
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
		// Не больше одного открытого уведомления на событие.
		`
CREATE UNIQUE INDEX IF NOT EXISTS uq_notifications_open_package
ON notifications(kind, package_id)
WHERE status IN ('pending','prepared') AND package_id IS NOT NULL`,
		`
CREATE UNIQUE INDEX IF NOT EXISTS uq_notifications_open_redemption
ON notifications(kind, redemption_id)
WHERE status IN ('pending','prepared') AND redemption_id IS NOT NULL`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_provider_message_id ON notifications(provider_message_id)`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_status_kind ON notifications(status, kind)`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_sent ON notifications(sent_at DESC) WHERE status = 'sent'`,
		`
CREATE TABLE IF NOT EXISTS incoming_messages (
  id BIGSERIAL PRIMARY KEY,
  from_phone TEXT NOT NULL,
  message_type TEXT NOT NULL,
  content TEXT NOT NULL DEFAULT '',
  customer_id BIGINT NULL REFERENCES customers(id),
  provider_message_id TEXT NOT NULL DEFAULT '',
  received_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
		// Вебхук может прийти повторно.
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_incoming_messages_provider_id ON incoming_messages(provider_message_id) WHERE provider_message_id <> ''`,
	}

	for _, q := range stmts {
		if _, err := s.db.Exec(ctx, q); err != nil {
			return errors.Wrap(err, "init schema")
		}
	}
	return nil
}
