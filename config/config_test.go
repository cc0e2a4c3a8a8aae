package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "cfg.yaml")
	require.NoError(t, os.WriteFile(p, []byte(`
log_level: debug
database:
  host: "localhost"
  port: 5432
  username: "u"
  password: "p"
  name: "db"
kafka:
  host: "localhost"
  port: 9092
  package_events_topic: "package.events"
  whatsapp_events_topic: "whatsapp.events"
  flight_updates_topic: "trip.flight_updates"
redis:
  host: "localhost"
  port: 6379
parcelbox:
  http_addr: ":8080"
  kafka_consumer_group: "parcel-api"
  view_cache_ttl_seconds: 600
  time_zone: "America/Caracas"
  auto_reply: true
  send_rate_per_minute: 60
whatsapp:
  mode: "cloud"
  phone_number_id: "1055"
  verify_token: "secret"
flights:
  mode: "fake"
  max_retries: 3
responder:
  base_url: "http://responder:8000"
`), 0o600))

	cfg, err := LoadConfig(p)
	require.NoError(t, err)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, "u", cfg.Database.Username)
	require.Equal(t, "package.events", cfg.Kafka.PackageEventsTopic)
	require.Equal(t, "whatsapp.events", cfg.Kafka.WhatsAppEventsTopic)
	require.Equal(t, "trip.flight_updates", cfg.Kafka.FlightUpdatesTopic)
	require.Equal(t, 6379, cfg.Redis.Port)
	require.Equal(t, ":8080", cfg.ParcelBox.HTTPAddr)
	require.Equal(t, "America/Caracas", cfg.ParcelBox.TimeZone)
	require.True(t, cfg.ParcelBox.AutoReply)
	require.Equal(t, 60, cfg.ParcelBox.SendRatePerMinute)
	require.Equal(t, "1055", cfg.WhatsApp.PhoneNumberID)
	require.Equal(t, "secret", cfg.WhatsApp.VerifyToken)
	require.Equal(t, 3, cfg.Flights.MaxRetries)
	require.Equal(t, "http://responder:8000", cfg.Responder.BaseURL)
}

func TestLoadConfig_Missing(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
