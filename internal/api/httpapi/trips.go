package httpapi

import (
	"net/http"

	"github.com/BearBump/ParcelBox/internal/models"
)

type createTripRequest struct {
	Code         string `json:"code"`
	Origin       string `json:"origin"`
	Destination  string `json:"destination"`
	FlightNumber string `json:"flight_number"`
	TripDate     string `json:"trip_date"`
	Status       string `json:"status"`
}

func (a *API) createTrip(w http.ResponseWriter, r *http.Request) {
	var req createTripRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	date, err := a.parseDate(req.TripDate)
	if err != nil {
		writeError(w, r, err)
		return
	}
	t, err := a.d.Trips.Create(r.Context(), &models.Trip{
		Code:         req.Code,
		Origin:       req.Origin,
		Destination:  req.Destination,
		FlightNumber: req.FlightNumber,
		TripDate:     date,
		Status:       models.TripStatus(req.Status),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTrip(t))
}

func (a *API) getTrip(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	t, err := a.d.Trips.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTrip(t))
}

func (a *API) refreshFlight(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := a.d.Trips.RefreshFlight(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]bool{"scheduled": true})
}
