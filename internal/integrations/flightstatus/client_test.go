package flightstatus

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

type scriptedClient struct {
	errs  []error
	calls int
}

func (c *scriptedClient) GetStatus(ctx context.Context, q Query) (json.RawMessage, error) {
	i := c.calls
	c.calls++
	if i < len(c.errs) && c.errs[i] != nil {
		return nil, c.errs[i]
	}
	return json.RawMessage(`{"status":"landed"}`), nil
}

func TestResolver_RetriesThenSucceeds(t *testing.T) {
	c := &scriptedClient{errs: []error{&StatusError{Code: 503}, errors.New("connection reset")}}
	res := NewResolver(c, 3, time.Millisecond).Resolve(context.Background(), Query{FlightNumber: "AV1"})
	require.False(t, res.Fallback)
	require.NoError(t, res.Err)
	require.JSONEq(t, `{"status":"landed"}`, string(res.Payload))
	require.Equal(t, 3, c.calls)
}

func TestResolver_FallbackAfterRetries(t *testing.T) {
	e := &StatusError{Code: 500}
	c := &scriptedClient{errs: []error{e, e, e}}
	q := Query{FlightNumber: "AV1", Date: time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)}

	res := NewResolver(c, 2, time.Millisecond).Resolve(context.Background(), q)
	require.True(t, res.Fallback)
	require.Error(t, res.Err)
	require.Equal(t, 3, c.calls)

	var m map[string]any
	require.NoError(t, json.Unmarshal(res.Payload, &m))
	require.Equal(t, true, m["_fallback"])
	require.Equal(t, "2026-10-15", m["date"])
}

func TestResolver_PermanentErrorStopsRetrying(t *testing.T) {
	c := &scriptedClient{errs: []error{&StatusError{Code: http.StatusNotFound}}}
	res := NewResolver(c, 5, time.Millisecond).Resolve(context.Background(), Query{FlightNumber: "ZZ9"})
	require.True(t, res.Fallback)
	require.Equal(t, 1, c.calls)

	var se *StatusError
	require.ErrorAs(t, res.Err, &se)
}
