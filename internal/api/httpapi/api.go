package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/BearBump/ParcelBox/internal/apperr"
	"github.com/BearBump/ParcelBox/internal/services/collections"
	"github.com/BearBump/ParcelBox/internal/services/dispatches"
	"github.com/BearBump/ParcelBox/internal/services/fidelity"
	"github.com/BearBump/ParcelBox/internal/services/flights"
	"github.com/BearBump/ParcelBox/internal/services/notifications"
	"github.com/BearBump/ParcelBox/internal/services/packages"
	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
)

const dateLayout = "2006-01-02"

type Publisher interface {
	PublishJSON(ctx context.Context, topic, key, eventType string, v any) error
}

type Deps struct {
	Packages      *packages.Service
	Dispatches    *dispatches.Service
	Trips         *flights.Trips
	Notifications *notifications.Service
	Collections   *collections.Service
	Fidelity      *fidelity.Service

	// Webhook events are not applied inline: they go through kafka to the consumer.
	Events              Publisher
	WhatsAppEventsTopic string
	VerifyToken         string

	Location *time.Location
}

type API struct {
	d Deps
}

func New(d Deps) *API {
	if d.Location == nil {
		d.Location = time.UTC
	}
	return &API{d: d}
}

func (a *API) Routes(r chi.Router) {
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/packages", func(r chi.Router) {
		r.Post("/", a.createPackage)
		r.Get("/", a.listPackages)
		r.Get("/{id}/events", a.listPackageEvents)
		r.Post("/{id}/warehouse", a.moveToWarehouse)
		r.Post("/{id}/deliver", a.deliverPackage)
		r.Post("/{id}/reschedule", a.reschedulePackage)
		r.Delete("/{id}", a.deletePackage)
		r.Post("/{id}/restore", a.restorePackage)
	})

	r.Route("/dispatches", func(r chi.Router) {
		r.Post("/", a.createDispatch)
		r.Get("/", a.listDispatches)
		r.Get("/candidates", a.listCandidates)
		r.Get("/{id}", a.getDispatch)
		r.Get("/{id}/packages", a.listDispatchPackages)
		r.Post("/{id}/confirm", a.confirmDispatch)
		r.Post("/{id}/in-transit", a.markInTransit)
		r.Post("/{id}/arrived", a.markArrived)
	})

	r.Route("/trips", func(r chi.Router) {
		r.Post("/", a.createTrip)
		r.Get("/{id}", a.getTrip)
		r.Post("/{id}/flight/refresh", a.refreshFlight)
	})

	r.Route("/notifications", func(r chi.Router) {
		r.Get("/", a.listNotifications)
		r.Post("/arrivals/prepare", a.prepareArrivals)
		r.Post("/campaigns", a.prepareCampaign)
		r.Get("/campaigns/{id}", a.getCampaign)
		r.Post("/approve", a.approveNotifications)
		r.Post("/execute", a.executeNotifications)
		r.Post("/retry", a.retryNotifications)
		r.Post("/template-test", a.templateTest)
	})

	r.Get("/messages/incoming", a.listIncoming)
	r.Post("/messages/incoming", a.receiveIncoming)

	r.Get("/webhooks/whatsapp", a.verifyWebhook)
	r.Post("/webhooks/whatsapp", a.receiveWebhook)

	r.Route("/collections", func(r chi.Router) {
		r.Get("/debts", a.listDebts)
		r.Get("/summary", a.debtSummary)
		r.Get("/overpayments", a.overpayments)
		r.Post("/payments", a.recordPayment)
	})

	r.Route("/fidelity", func(r chi.Router) {
		r.Get("/ranking", a.ranking)
		r.Get("/customers/{id}/balance", a.pointsBalance)
		r.Post("/customers/{id}/redemptions", a.redeem)
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := apperr.HTTPStatus(err)
	if code >= http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err.Error())
	}
	body := map[string]string{"error": err.Error()}
	if k, ok := apperr.KindOf(err); ok {
		body["kind"] = string(k)
	}
	writeJSON(w, code, body)
}

func decode(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return apperr.Validation("bad request body: %s", err.Error())
	}
	return nil
}

func pathID(r *http.Request) (uint64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.Validation("bad id %q", raw)
	}
	return id, nil
}

func queryUint(r *http.Request, name string) (*uint64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return nil, apperr.Validation("bad %s %q", name, raw)
	}
	return &v, nil
}

func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, apperr.Validation("bad %s %q", name, raw)
	}
	return v, nil
}

func (a *API) parseDate(raw string) (time.Time, error) {
	t, err := time.ParseInLocation(dateLayout, strings.TrimSpace(raw), a.d.Location)
	if err != nil {
		return time.Time{}, apperr.Validation("bad date %q, want YYYY-MM-DD", raw)
	}
	return t, nil
}

// actor falls back to the X-Actor header when the body has none.
func actor(r *http.Request, fromBody string) string {
	if s := strings.TrimSpace(fromBody); s != "" {
		return s
	}
	return strings.TrimSpace(r.Header.Get("X-Actor"))
}

var errNotWired = errors.New("component is not configured")
