package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/BearBump/ParcelBox/internal/apperr"
	"github.com/BearBump/ParcelBox/internal/models"
	"github.com/BearBump/ParcelBox/internal/services/fidelity"
	"github.com/shopspring/decimal"
)

func (a *API) listDebts(w http.ResponseWriter, r *http.Request) {
	customerID, err := queryUint(r, "customer_id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	debts, err := a.d.Collections.ListDebts(r.Context(), customerID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"debts": debts})
}

func (a *API) debtSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := a.d.Collections.Summary(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"customers": sum})
}

func (a *API) overpayments(w http.ResponseWriter, r *http.Request) {
	out, err := a.d.Collections.Overpayments(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"overpayments": out})
}

type paymentRequest struct {
	PackageID uint64          `json:"package_id"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	PaidAt    *time.Time      `json:"paid_at"`
}

func (a *API) recordPayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p := &models.Payment{PackageID: req.PackageID, Amount: req.Amount}
	if req.Currency != "" {
		c, err := models.ParseCurrency(req.Currency)
		if err != nil {
			writeError(w, r, apperr.Validation("%s", err.Error()))
			return
		}
		p.Currency = c
	}
	if req.PaidAt != nil {
		p.PaidAt = req.PaidAt.UTC()
	}
	out, err := a.d.Collections.RecordPayment(r.Context(), p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPayment(out))
}

func (a *API) ranking(w http.ResponseWriter, r *http.Request) {
	period, err := fidelity.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		writeError(w, r, apperr.Validation("%s", err.Error()))
		return
	}
	recs, err := a.d.Fidelity.Ranking(r.Context(), period)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"period": period, "ranking": recs})
}

func (a *API) pointsBalance(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	b, err := a.d.Fidelity.Balance(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

type redeemRequest struct {
	Points int64  `json:"points"`
	Reward string `json:"reward"`
}

// redeem issues the code and queues the message carrying it. The redemption stands even if queuing fails.
func (a *API) redeem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req redeemRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	red, err := a.d.Fidelity.Redeem(r.Context(), id, req.Points, req.Reward)
	if err != nil {
		writeError(w, r, err)
		return
	}
	queued, err := a.d.Notifications.PrepareRedemption(r.Context(), red.ID)
	if err != nil {
		slog.Warn("redemption message not queued", "redemption_id", red.ID, "error", err.Error())
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"redemption":          toRedemption(red),
		"notification_queued": queued,
	})
}
