package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BearBump/ParcelBox/config"
	"github.com/BearBump/ParcelBox/internal/api/httpapi"
	"github.com/BearBump/ParcelBox/internal/broker/kafka"
	"github.com/BearBump/ParcelBox/internal/cache/rediscache"
	"github.com/BearBump/ParcelBox/internal/integrations/responder"
	"github.com/BearBump/ParcelBox/internal/integrations/whatsapp"
	"github.com/BearBump/ParcelBox/internal/integrations/whatsapp/cloudapi"
	"github.com/BearBump/ParcelBox/internal/integrations/whatsapp/fake"
	"github.com/BearBump/ParcelBox/internal/logging"
	"github.com/BearBump/ParcelBox/internal/services/collections"
	"github.com/BearBump/ParcelBox/internal/services/dispatches"
	"github.com/BearBump/ParcelBox/internal/services/fidelity"
	"github.com/BearBump/ParcelBox/internal/services/flights"
	"github.com/BearBump/ParcelBox/internal/services/notifications"
	"github.com/BearBump/ParcelBox/internal/services/packages"
	"github.com/BearBump/ParcelBox/internal/services/statusfeed"
	"github.com/BearBump/ParcelBox/internal/storage/pgparcels"
)

type parcelAPIApp struct {
	ctx       context.Context
	cancel    context.CancelFunc
	opts      parcelAPIOpts
	api       *httpapi.API
	handlers  eventHandlers
	consumers eventConsumers
	closers   []func()
}

func mustBootstrapParcelAPI() *parcelAPIApp {
	cfgPath := os.Getenv("configPath")
	if cfgPath == "" {
		panic("configPath env var is required")
	}
	swaggerPath := os.Getenv("swaggerPath")
	if swaggerPath == "" {
		panic("swaggerPath env var is required")
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		panic(fmt.Sprintf("ошибка парсинга конфига, %v", err))
	}
	logging.Setup(cfg.LogLevel)

	httpAddr := cfg.ParcelBox.HTTPAddr
	if httpAddr == "" {
		httpAddr = ":8080"
	}
	consumerGroup := cfg.ParcelBox.KafkaConsumerGroup
	if consumerGroup == "" {
		consumerGroup = "parcel-api"
	}
	packageTopic := cfg.Kafka.PackageEventsTopic
	if packageTopic == "" {
		packageTopic = "package.events"
	}
	whatsappTopic := cfg.Kafka.WhatsAppEventsTopic
	if whatsappTopic == "" {
		whatsappTopic = "whatsapp.events"
	}
	flightTopic := cfg.Kafka.FlightUpdatesTopic
	if flightTopic == "" {
		flightTopic = "trip.flight_updates"
	}
	viewTTL := time.Duration(cfg.ParcelBox.ViewCacheTTLSeconds) * time.Second
	if viewTTL <= 0 {
		viewTTL = 10 * time.Minute
	}
	loc := time.UTC
	if cfg.ParcelBox.TimeZone != "" {
		l, err := time.LoadLocation(cfg.ParcelBox.TimeZone)
		if err != nil {
			panic(fmt.Sprintf("unknown time zone %q: %v", cfg.ParcelBox.TimeZone, err))
		}
		loc = l
	}

	st := mustOpenPostgresWithRetry(postgresConnString(cfg), 60*time.Second)

	redisAddr := fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
	rc := rediscache.New(redisAddr)
	rl := rediscache.NewRateLimiter(redisAddr)

	brokers := []string{fmt.Sprintf("%s:%d", cfg.Kafka.Host, cfg.Kafka.Port)}
	producer := kafka.NewProducer(brokers)
	feed := statusfeed.New(producer, packageTopic, rc)

	var resp notifications.Responder
	if cfg.Responder.BaseURL != "" {
		resp = responder.New(cfg.Responder.BaseURL, cfg.Responder.MaxRetries)
	}
	notif := notifications.New(st, newWhatsAppClient(cfg.WhatsApp), rl, resp, notifications.Config{
		ArrivalTemplate:   cfg.WhatsApp.ArrivalTemplate,
		TemplateLanguage:  cfg.WhatsApp.TemplateLanguage,
		SendRatePerMinute: int64(cfg.ParcelBox.SendRatePerMinute),
		ClaimLease:        time.Duration(cfg.ParcelBox.ClaimLeaseSeconds) * time.Second,
		AutoReply:         cfg.ParcelBox.AutoReply,
		Greeting:          cfg.ParcelBox.Greeting,
	})
	trips := flights.NewTrips(st)

	api := httpapi.New(httpapi.Deps{
		Packages:            packages.New(st, rc, feed, viewTTL),
		Dispatches:          dispatches.New(st, rc, feed, viewTTL),
		Trips:               trips,
		Notifications:       notif,
		Collections:         collections.New(st),
		Fidelity:            fidelity.New(st, loc),
		Events:              producer,
		WhatsAppEventsTopic: whatsappTopic,
		VerifyToken:         cfg.WhatsApp.VerifyToken,
		Location:            loc,
	})

	waConsumer := kafka.NewConsumer(brokers, whatsappTopic, consumerGroup)
	flightConsumer := kafka.NewConsumer(brokers, flightTopic, consumerGroup)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	return &parcelAPIApp{
		ctx:    ctx,
		cancel: cancel,
		opts: parcelAPIOpts{
			httpAddr:    httpAddr,
			swaggerPath: swaggerPath,
		},
		api:      api,
		handlers: eventHandlers{notifications: notif, trips: trips},
		consumers: eventConsumers{
			whatsapp: waConsumer,
			flights:  flightConsumer,
		},
		closers: []func(){
			func() { _ = waConsumer.Close() },
			func() { _ = flightConsumer.Close() },
			func() { _ = producer.Close() },
			func() { _ = rc.Close() },
			st.Close,
		},
	}
}

func newWhatsAppClient(cfg config.WhatsAppConfig) whatsapp.Client {
	if cfg.Mode == "cloud" && cfg.Token != "" && cfg.PhoneNumberID != "" {
		return cloudapi.New(cfg.BaseURL, cfg.APIVersion, cfg.PhoneNumberID, cfg.Token)
	}
	// Без токена ничего не отправляем наружу: сообщения только логируются.
	slog.Warn("whatsapp cloud api is not configured, using fake client")
	return fake.New()
}

func postgresConnString(cfg *config.Config) string {
	sslMode := cfg.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.Database.Username, cfg.Database.Password, cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName, sslMode)
}

func mustOpenPostgresWithRetry(connString string, wait time.Duration) *pgparcels.Storage {
	deadline := time.Now().Add(wait)
	var lastErr error
	for time.Now().Before(deadline) {
		st, err := pgparcels.New(connString)
		if err == nil {
			return st
		}
		lastErr = err
		time.Sleep(1 * time.Second)
	}
	panic(fmt.Sprintf("postgres is not ready after %s: %v", wait, lastErr))
}

func (a *parcelAPIApp) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	for _, c := range a.closers {
		c()
	}
}

func (a *parcelAPIApp) Run() error {
	return runParcelAPI(a.ctx, a.opts, a.api, a.handlers, a.consumers)
}
