package httpapi

import (
	"net/http"

	"github.com/BearBump/ParcelBox/internal/apperr"
	"github.com/BearBump/ParcelBox/internal/models"
)

type batchRequest struct {
	Label      string   `json:"label"`
	PackageIDs []uint64 `json:"package_ids"`
}

type createDispatchRequest struct {
	Date       string         `json:"date"`
	PackageIDs []uint64       `json:"package_ids"`
	Notes      string         `json:"notes"`
	Batches    []batchRequest `json:"batches"`
	Actor      string         `json:"actor"`
}

func (a *API) createDispatch(w http.ResponseWriter, r *http.Request) {
	var req createDispatchRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	date, err := a.parseDate(req.Date)
	if err != nil {
		writeError(w, r, err)
		return
	}
	in := models.DispatchCreateInput{
		Date:       date,
		PackageIDs: req.PackageIDs,
		Notes:      req.Notes,
		Actor:      actor(r, req.Actor),
	}
	for _, b := range req.Batches {
		in.Batches = append(in.Batches, models.BatchInput{Label: b.Label, PackageIDs: b.PackageIDs})
	}

	d, err := a.d.Dispatches.CreateDispatch(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toDispatch(d))
}

func (a *API) listDispatches(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("date")
	if raw == "" {
		writeError(w, r, apperr.Validation("date is required"))
		return
	}
	date, err := a.parseDate(raw)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ds, err := a.d.Dispatches.ListDispatchesByDate(r.Context(), date)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"dispatches": toDispatches(ds)})
}

func (a *API) listCandidates(w http.ResponseWriter, r *http.Request) {
	tripID, err := queryUint(r, "trip_id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	ps, err := a.d.Dispatches.ListDispatchCandidates(r.Context(), tripID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"packages": toPackages(ps)})
}

func (a *API) getDispatch(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	d, err := a.d.Dispatches.GetDispatch(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toDispatch(d))
}

func (a *API) listDispatchPackages(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ps, err := a.d.Dispatches.ListDispatchPackages(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"packages": toPackages(ps)})
}

func (a *API) confirmDispatch(w http.ResponseWriter, r *http.Request) {
	a.dispatchAction(w, r, func(id uint64, who string) (int, error) {
		return a.d.Dispatches.ConfirmDispatch(r.Context(), id, who)
	})
}

func (a *API) markInTransit(w http.ResponseWriter, r *http.Request) {
	a.dispatchAction(w, r, func(id uint64, who string) (int, error) {
		return a.d.Dispatches.MarkInTransit(r.Context(), id, who)
	})
}

func (a *API) markArrived(w http.ResponseWriter, r *http.Request) {
	a.dispatchAction(w, r, func(id uint64, who string) (int, error) {
		return a.d.Dispatches.MarkArrived(r.Context(), id, who)
	})
}

func (a *API) dispatchAction(w http.ResponseWriter, r *http.Request, fn func(id uint64, actor string) (int, error)) {
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
	n, err := fn(id, actor(r, req.Actor))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"updated": n})
}
