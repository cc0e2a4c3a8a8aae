package httpapi

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/BearBump/ParcelBox/internal/apperr"
	"github.com/BearBump/ParcelBox/internal/integrations/whatsapp"
	"github.com/pkg/errors"
)

const maxWebhookBody = 1 << 20

// verifyWebhook answers the subscription handshake of the Cloud API.
func (a *API) verifyWebhook(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("hub.mode") != "subscribe" || a.d.VerifyToken == "" || q.Get("hub.verify_token") != a.d.VerifyToken {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	_, _ = io.WriteString(w, q.Get("hub.challenge"))
}

func (a *API) receiveWebhook(w http.ResponseWriter, r *http.Request) {
	if a.d.Events == nil {
		writeError(w, r, errNotWired)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, r, apperr.Validation("read body: %s", err.Error()))
		return
	}
	events, err := whatsapp.ParseWebhook(body)
	if err != nil {
		// Meta повторяет доставку на не-2xx, битый payload повторять бессмысленно.
		slog.Warn("bad whatsapp webhook payload", "error", err.Error())
		w.WriteHeader(http.StatusOK)
		return
	}

	for _, ev := range events {
		key := ""
		switch {
		case ev.Status != nil:
			key = ev.Status.Recipient
		case ev.Message != nil:
			key = ev.Message.From
		}
		if err := a.d.Events.PublishJSON(r.Context(), a.d.WhatsAppEventsTopic, key, ev.EventType, ev); err != nil {
			writeError(w, r, errors.Wrap(err, "publish whatsapp event"))
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]int{"accepted": len(events)})
}
