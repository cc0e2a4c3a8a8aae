package fake

import (
	"context"
	"encoding/json"
	"hash/fnv"
	"time"

	"github.com/BearBump/ParcelBox/internal/integrations/flightstatus"
)

var fakeStates = []string{"scheduled", "departed", "en_route", "landed", "delayed"}

// Client: детерминированная заглушка провайдера рейсов для локального запуска.
type Client struct{}

func New() *Client { return &Client{} }

func (f *Client) GetStatus(ctx context.Context, q flightstatus.Query) (json.RawMessage, error) {
	h := fnv.New32a()
	_, _ = h.Write([]byte(q.FlightNumber))
	_, _ = h.Write([]byte("|"))
	_, _ = h.Write([]byte(q.Date.Format("2006-01-02")))
	v := h.Sum32()

	dep := q.Date.Add(8 * time.Hour)
	return json.Marshal(map[string]any{
		"flight_number":       q.FlightNumber,
		"status":              fakeStates[v%uint32(len(fakeStates))],
		"scheduled_departure": dep,
		"scheduled_arrival":   dep.Add(4 * time.Hour),
		"departure_airport":   "MIA",
		"arrival_airport":     "CCS",
		"gate":                "D" + string(rune('1'+v%9)),
	})
}
