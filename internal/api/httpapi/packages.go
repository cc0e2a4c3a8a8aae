package httpapi

import (
	"net/http"

	"github.com/BearBump/ParcelBox/internal/apperr"
	"github.com/BearBump/ParcelBox/internal/models"
	"github.com/shopspring/decimal"
)

type createPackageRequest struct {
	TrackingCode    string          `json:"tracking_code"`
	CustomerID      uint64          `json:"customer_id"`
	TripID          *uint64         `json:"trip_id"`
	Origin          string          `json:"origin"`
	Destination     string          `json:"destination"`
	WeightKg        float64         `json:"weight_kg"`
	Freight         decimal.Decimal `json:"freight"`
	AmountToCollect decimal.Decimal `json:"amount_to_collect"`
	Currency        string          `json:"currency"`
	Description     string          `json:"description"`
	Status          string          `json:"status"`
}

func (a *API) createPackage(w http.ResponseWriter, r *http.Request) {
	var req createPackageRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p := &models.Package{
		TrackingCode:    req.TrackingCode,
		CustomerID:      req.CustomerID,
		TripID:          req.TripID,
		Origin:          req.Origin,
		Destination:     req.Destination,
		WeightKg:        req.WeightKg,
		Freight:         req.Freight,
		AmountToCollect: req.AmountToCollect,
	}
	if req.Currency != "" {
		c, err := models.ParseCurrency(req.Currency)
		if err != nil {
			writeError(w, r, apperr.Validation("%s", err.Error()))
			return
		}
		p.Currency = c
	}
	if req.Status != "" {
		st, err := models.ParsePackageStatus(req.Status)
		if err != nil {
			writeError(w, r, apperr.Validation("%s", err.Error()))
			return
		}
		p.Status = st
	}
	p.Description = req.Description

	out, err := a.d.Packages.Create(r.Context(), p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPackage(out))
}

func (a *API) listPackages(w http.ResponseWriter, r *http.Request) {
	var f models.PackageFilter
	var err error
	if raw := r.URL.Query().Get("status"); raw != "" {
		st, perr := models.ParsePackageStatus(raw)
		if perr != nil {
			writeError(w, r, apperr.Validation("%s", perr.Error()))
			return
		}
		f.Status = &st
	}
	if f.TripID, err = queryUint(r, "trip_id"); err != nil {
		writeError(w, r, err)
		return
	}
	if f.CustomerID, err = queryUint(r, "customer_id"); err != nil {
		writeError(w, r, err)
		return
	}
	if f.Limit, err = queryInt(r, "limit"); err != nil {
		writeError(w, r, err)
		return
	}
	if f.Offset, err = queryInt(r, "offset"); err != nil {
		writeError(w, r, err)
		return
	}
	f.IncludeDeleted = r.URL.Query().Get("include_deleted") == "true"

	out, err := a.d.Packages.List(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"packages": toPackages(out)})
}

func (a *API) listPackageEvents(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, r, err)
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		writeError(w, r, err)
		return
	}
	evs, err := a.d.Packages.ListEvents(r.Context(), id, limit, offset)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": toEvents(evs)})
}

type actorRequest struct {
	Actor string `json:"actor"`
}

func (a *API) moveToWarehouse(w http.ResponseWriter, r *http.Request) {
	a.packageAction(w, r, func(id uint64, who string) (bool, error) {
		return a.d.Packages.MoveToWarehouse(r.Context(), id, who)
	})
}

func (a *API) deletePackage(w http.ResponseWriter, r *http.Request) {
	a.packageAction(w, r, func(id uint64, who string) (bool, error) {
		return a.d.Packages.SoftDelete(r.Context(), id, who)
	})
}

func (a *API) restorePackage(w http.ResponseWriter, r *http.Request) {
	a.packageAction(w, r, func(id uint64, who string) (bool, error) {
		return a.d.Packages.Restore(r.Context(), id, who)
	})
}

func (a *API) packageAction(w http.ResponseWriter, r *http.Request, fn func(id uint64, actor string) (bool, error)) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req actorRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	changed, err := fn(id, actor(r, req.Actor))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"changed": changed})
}

type deliverRequest struct {
	DeliveredBy string `json:"delivered_by"`
}

func (a *API) deliverPackage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req deliverRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	changed, err := a.d.Packages.MarkDelivered(r.Context(), id, actor(r, req.DeliveredBy))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"changed": changed})
}

type rescheduleRequest struct {
	TripID *uint64 `json:"trip_id"`
	Actor  string  `json:"actor"`
}

func (a *API) reschedulePackage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req rescheduleRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	changed, err := a.d.Packages.Reschedule(r.Context(), id, req.TripID, actor(r, req.Actor))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"changed": changed})
}
