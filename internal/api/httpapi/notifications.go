package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/BearBump/ParcelBox/internal/apperr"
	"github.com/BearBump/ParcelBox/internal/models"
	"github.com/BearBump/ParcelBox/internal/services/notifications"
)

func (a *API) listNotifications(w http.ResponseWriter, r *http.Request) {
	var f models.NotificationFilter
	q := r.URL.Query()
	if raw := q.Get("kind"); raw != "" {
		k, err := models.ParseNotificationKind(raw)
		if err != nil {
			writeError(w, r, apperr.Validation("%s", err.Error()))
			return
		}
		f.Kind = &k
	}
	if raw := q.Get("status"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			st, err := models.ParseNotificationStatus(part)
			if err != nil {
				writeError(w, r, apperr.Validation("%s", err.Error()))
				return
			}
			f.Statuses = append(f.Statuses, st)
		}
	}
	var err error
	if f.CampaignID, err = queryUint(r, "campaign_id"); err != nil {
		writeError(w, r, err)
		return
	}
	if f.Limit, err = queryInt(r, "limit"); err != nil {
		writeError(w, r, err)
		return
	}

	ns, err := a.d.Notifications.List(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"notifications": toNotifications(ns)})
}

func (a *API) prepareArrivals(w http.ResponseWriter, r *http.Request) {
	res, err := a.d.Notifications.PrepareArrivals(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type campaignRequest struct {
	Name        string   `json:"name"`
	Body        string   `json:"body"`
	Template    string   `json:"template"`
	Language    string   `json:"language"`
	CustomerIDs []uint64 `json:"customer_ids"`
}

func (a *API) prepareCampaign(w http.ResponseWriter, r *http.Request) {
	var req campaignRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := a.d.Notifications.PrepareCampaign(r.Context(), notifications.CampaignInput{
		Name:        req.Name,
		Body:        req.Body,
		Template:    req.Template,
		Language:    req.Language,
		CustomerIDs: req.CustomerIDs,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCampaign(c))
}

func (a *API) getCampaign(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	c, err := a.d.Notifications.GetCampaign(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCampaign(c))
}

type idsRequest struct {
	IDs []uint64 `json:"ids"`
}

func (a *API) approveNotifications(w http.ResponseWriter, r *http.Request) {
	var req idsRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	n, err := a.d.Notifications.Approve(r.Context(), req.IDs)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"approved": n})
}

type executeRequest struct {
	Kind           string   `json:"kind"`
	CampaignID     *uint64  `json:"campaign_id"`
	IncludePending bool     `json:"include_pending"`
	IDs            []uint64 `json:"ids"`
}

func (a *API) executeNotifications(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	in := notifications.ExecuteInput{
		CampaignID:     req.CampaignID,
		IncludePending: req.IncludePending,
		IDs:            req.IDs,
	}
	if req.Kind != "" {
		k, err := models.ParseNotificationKind(req.Kind)
		if err != nil {
			writeError(w, r, apperr.Validation("%s", err.Error()))
			return
		}
		in.Kind = &k
	}
	res, err := a.d.Notifications.Execute(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *API) retryNotifications(w http.ResponseWriter, r *http.Request) {
	var req idsRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := a.d.Notifications.RetryFailed(r.Context(), req.IDs)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type templateTestRequest struct {
	Phone    string `json:"phone"`
	Template string `json:"template"`
	Language string `json:"language"`
}

func (a *API) templateTest(w http.ResponseWriter, r *http.Request) {
	var req templateTestRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	n, err := a.d.Notifications.SendTemplateTest(r.Context(), req.Phone, req.Template, req.Language)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toNotification(n))
}

func (a *API) listIncoming(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, r, err)
		return
	}
	ms, err := a.d.Notifications.ListIncoming(r.Context(), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]incomingDTO, 0, len(ms))
	for _, m := range ms {
		out = append(out, toIncoming(m))
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": out})
}

type incomingRequest struct {
	From      string `json:"from"`
	Type      string `json:"type"`
	Content   string `json:"content"`
	MessageID string `json:"message_id"`
}

// receiveIncoming records a message that reached the business outside the webhook.
func (a *API) receiveIncoming(w http.ResponseWriter, r *http.Request) {
	var req incomingRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Type == "" {
		req.Type = "text"
	}
	res, err := a.d.Notifications.HandleIncoming(r.Context(), &models.IncomingMessage{
		FromPhone:         req.From,
		MessageType:       req.Type,
		Content:           req.Content,
		ProviderMessageID: req.MessageID,
		ReceivedAt:        time.Now().UTC(),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := map[string]any{"message": toIncoming(res.Message), "duplicate": res.Duplicate}
	if res.Reply != nil {
		out["reply"] = toNotification(res.Reply)
	}
	writeJSON(w, http.StatusOK, out)
}
