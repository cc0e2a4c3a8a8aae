package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/BearBump/ParcelBox/internal/api/httpapi"
	"github.com/BearBump/ParcelBox/internal/broker/kafka"
	"github.com/BearBump/ParcelBox/internal/broker/messages"
	"github.com/BearBump/ParcelBox/internal/services/flights"
	"github.com/BearBump/ParcelBox/internal/services/notifications"
	"github.com/cenkalti/backoff/v4"
	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	httpSwagger "github.com/swaggo/http-swagger"
)

type parcelAPIOpts struct {
	httpAddr    string
	swaggerPath string

	onListen func(httpAddr string)
}

type kafkaConsumer interface {
	Consume(ctx context.Context, handler func(key, value []byte) error) error
}

type eventConsumers struct {
	whatsapp kafkaConsumer
	flights  kafkaConsumer
}

type eventHandlers struct {
	notifications *notifications.Service
	trips         *flights.Trips
}

func runParcelAPI(ctx context.Context, opts parcelAPIOpts, api *httpapi.API, h eventHandlers, cons eventConsumers) error {
	if opts.swaggerPath == "" {
		return fmt.Errorf("swaggerPath env var is required")
	}
	if _, err := os.Stat(opts.swaggerPath); os.IsNotExist(err) {
		return fmt.Errorf("swagger file not found: %s", opts.swaggerPath)
	}

	lis, err := net.Listen("tcp", opts.httpAddr)
	if err != nil {
		return err
	}
	if opts.onListen != nil {
		opts.onListen(lis.Addr().String())
	}

	httpErr := make(chan error, 1)
	go func() {
		httpErr <- runHTTPServer(ctx, lis, api, opts.swaggerPath)
	}()

	if cons.whatsapp != nil && h.notifications != nil {
		go consumeLoop(ctx, "whatsapp events", cons.whatsapp, whatsappHandler(ctx, h.notifications))
	}
	if cons.flights != nil && h.trips != nil {
		go consumeLoop(ctx, "flight updates", cons.flights, flightHandler(ctx, h.trips))
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-httpErr:
		return err
	}
}

func runHTTPServer(ctx context.Context, lis net.Listener, api *httpapi.API, swaggerPath string) error {
	r := chi.NewRouter()
	r.Get("/swagger.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		http.ServeFile(w, r, swaggerPath)
	})
	r.Get("/docs/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger.json"),
	))
	api.Routes(r)

	srv := &http.Server{Handler: r, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("HTTP server listening", "addr", lis.Addr().String())
	err := srv.Serve(lis)
	if errors.Is(err, http.ErrServerClosed) {
		return ctx.Err()
	}
	return err
}

// consumeLoop restarts the consumer after a failed message; the message is fetched again on restart.
func consumeLoop(ctx context.Context, name string, c kafkaConsumer, handler func(key, value []byte) error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 30 * time.Second
	b.MaxElapsedTime = 0

	for {
		slog.Info("kafka consumer started", "consumer", name)
		err := c.Consume(ctx, handler)
		if ctx.Err() != nil {
			return
		}
		wait := b.NextBackOff()
		slog.Error("kafka consumer stopped", "consumer", name, "error", fmt.Sprint(err), "restart_in", wait.String())
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

func whatsappHandler(ctx context.Context, svc *notifications.Service) func(key, value []byte) error {
	return func(_ []byte, value []byte) error {
		var ev messages.WhatsAppEvent
		if err := json.Unmarshal(value, &ev); err != nil {
			return errors.Wrap(kafka.ErrPoison, err.Error())
		}
		return svc.ApplyWhatsAppEvent(ctx, ev)
	}
}

func flightHandler(ctx context.Context, trips *flights.Trips) func(key, value []byte) error {
	return func(_ []byte, value []byte) error {
		var m messages.FlightStatusUpdated
		if err := json.Unmarshal(value, &m); err != nil {
			return errors.Wrap(kafka.ErrPoison, err.Error())
		}
		return trips.ApplyUpdate(ctx, m)
	}
}
