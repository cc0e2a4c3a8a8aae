package fake

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/BearBump/ParcelBox/internal/integrations/flightstatus"
	"github.com/stretchr/testify/require"
)

func TestClient_GetStatus_Deterministic(t *testing.T) {
	q := flightstatus.Query{FlightNumber: "AV123", Date: time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)}
	a, err := New().GetStatus(context.Background(), q)
	require.NoError(t, err)
	b, err := New().GetStatus(context.Background(), q)
	require.NoError(t, err)
	require.JSONEq(t, string(a), string(b))

	var m map[string]any
	require.NoError(t, json.Unmarshal(a, &m))
	require.Equal(t, "AV123", m["flight_number"])
	require.NotContains(t, m, "_fallback")
}
