package flights

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/BearBump/ParcelBox/internal/broker/messages"
	"github.com/BearBump/ParcelBox/internal/integrations/flightstatus"
	"github.com/BearBump/ParcelBox/internal/models"
	"github.com/stretchr/testify/require"
)

type fakeProducer struct {
	mu     sync.Mutex
	topic  string
	key    string
	typ    string
	msg    messages.FlightStatusUpdated
	calls  int
	failN  int
	always error
}

func (p *fakeProducer) PublishJSON(ctx context.Context, topic, key, eventType string, v any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.always != nil {
		return p.always
	}
	if p.calls <= p.failN {
		return errors.New("leader not available")
	}
	p.topic, p.key, p.typ = topic, key, eventType
	p.msg = v.(messages.FlightStatusUpdated)
	return nil
}

type fakeRL struct {
	allowed bool
	count   int64
	err     error
}

func (r fakeRL) Allow(ctx context.Context, bucket string, limit int64, window time.Duration) (bool, int64, error) {
	return r.allowed, r.count, r.err
}

type fakeResolver struct {
	res flightstatus.Result
	got flightstatus.Query
}

func (r *fakeResolver) Resolve(ctx context.Context, q flightstatus.Query) flightstatus.Result {
	r.got = q
	return r.res
}

func TestPoller_processOne_okPublishes(t *testing.T) {
	fp := &fakeProducer{}
	fr := &fakeResolver{res: flightstatus.Result{Payload: json.RawMessage(`{"status":"en route"}`)}}
	p := New(nil, fr, fp, fakeRL{allowed: true}, "trip.flight_updates")

	tripDate := time.Now().UTC().Add(-time.Hour)
	trip := &models.Trip{ID: 42, FlightNumber: "AV123", TripDate: tripDate, Status: models.TripStatusInProgress}
	before := time.Now().UTC()
	require.NoError(t, p.processOne(context.Background(), trip))

	require.Equal(t, 1, fp.calls)
	require.Equal(t, "trip.flight_updates", fp.topic)
	require.Equal(t, "42", fp.key)
	require.Equal(t, messages.TypeFlightStatusUpdated, fp.typ)
	require.Equal(t, uint64(42), fp.msg.TripID)
	require.False(t, fp.msg.Fallback)
	require.JSONEq(t, `{"status":"en route"}`, string(fp.msg.Payload))
	require.WithinRange(t, fp.msg.NextCheckAt, before.Add(15*time.Minute), time.Now().UTC().Add(30*time.Minute))

	require.Equal(t, "AV123", fr.got.FlightNumber)
	require.Equal(t, flightstatus.PriorityHigh, fr.got.Priority)
}

func TestPoller_processOne_fallbackBacksOff(t *testing.T) {
	fp := &fakeProducer{}
	q := flightstatus.Query{FlightNumber: "AV9"}
	fr := &fakeResolver{res: flightstatus.Result{
		Payload:  flightstatus.FallbackPayload(q, errors.New("boom")),
		Fallback: true,
		Err:      errors.New("boom"),
	}}
	p := New(nil, fr, fp, nil, "t")

	trip := &models.Trip{ID: 1, FlightNumber: "AV9", TripDate: time.Now().UTC().Add(96 * time.Hour), Status: models.TripStatusScheduled, CheckFailCount: 2}
	before := time.Now().UTC()
	require.NoError(t, p.processOne(context.Background(), trip))

	require.True(t, fp.msg.Fallback)
	require.Contains(t, string(fp.msg.Payload), `"_fallback":true`)
	require.WithinRange(t, fp.msg.NextCheckAt, before.Add(30*time.Minute), time.Now().UTC().Add(30*time.Minute))
	require.Equal(t, flightstatus.PriorityNormal, fr.got.Priority)
	require.Equal(t, int64(1), p.Stats().TotalFallbacks)
}

func TestPoller_processOne_retriesPublish(t *testing.T) {
	fp := &fakeProducer{failN: 2}
	p := New(nil, &fakeResolver{res: flightstatus.Result{Payload: json.RawMessage(`{}`)}}, fp, nil, "t")

	require.NoError(t, p.processOne(context.Background(), &models.Trip{ID: 5}))
	require.Equal(t, 3, fp.calls)
	require.Equal(t, uint64(5), fp.msg.TripID)
}

func TestPoller_processOne_publishGivesUp(t *testing.T) {
	fp := &fakeProducer{always: errors.New("kafka down")}
	p := New(nil, &fakeResolver{res: flightstatus.Result{Payload: json.RawMessage(`{}`)}}, fp, nil, "t")
	p.publishRetries = 1

	err := p.processOne(context.Background(), &models.Trip{ID: 5})
	require.EqualError(t, err, "kafka down")
	require.Equal(t, 2, fp.calls)
}

func TestPoller_processOne_rateLimitError(t *testing.T) {
	fp := &fakeProducer{}
	p := New(nil, &fakeResolver{}, fp, fakeRL{err: errors.New("redis down")}, "t")

	require.Error(t, p.processOne(context.Background(), &models.Trip{ID: 5}))
	require.Equal(t, 0, fp.calls)
}

func TestPoller_processOne_rateLimitedStillPublishes(t *testing.T) {
	fp := &fakeProducer{}
	p := New(nil, &fakeResolver{res: flightstatus.Result{Payload: json.RawMessage(`{}`)}}, fp, fakeRL{allowed: false, count: 61}, "t")

	require.NoError(t, p.processOne(context.Background(), &models.Trip{ID: 5}))
	require.Equal(t, 1, fp.calls)
}

func TestPoller_WithSettings(t *testing.T) {
	p := New(nil, &fakeResolver{}, &fakeProducer{}, nil, "t").
		WithSettings(5*time.Second, 7, 9, 11*time.Second, 13)
	require.Equal(t, 5*time.Second, p.pollInterval)
	require.Equal(t, 7, p.batchSize)
	require.Equal(t, 9, p.concurrency)
	require.Equal(t, 11*time.Second, p.lease)
	require.Equal(t, int64(13), p.rateLimitPerMinute)
}

func TestPoller_TriggerDoesNotBlock(t *testing.T) {
	p := New(nil, &fakeResolver{}, &fakeProducer{}, nil, "t")
	p.Trigger()
	p.Trigger()
	require.NotNil(t, p.Stats().LastTriggerAt)
}
