package flightstatus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
)

const (
	PriorityHigh   = "high"
	PriorityNormal = "normal"
)

type Query struct {
	FlightNumber string
	Date         time.Time
	Priority     string
}

type Client interface {
	// GetStatus returns the provider payload as is.
	GetStatus(ctx context.Context, q Query) (json.RawMessage, error)
}

// StatusError is a non-2xx answer of the provider.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("flight status http %d", e.Code)
}

// Retryable reports whether another attempt may succeed.
func Retryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code == http.StatusTooManyRequests || se.Code >= 500
	}
	return err != nil
}

type Result struct {
	Payload  json.RawMessage
	Fallback bool
	// Err is the last provider error when Fallback is set.
	Err error
}

// Resolver asks the provider with retries and never fails: on error it answers with a fallback payload.
type Resolver struct {
	c          Client
	maxRetries uint64
	initial    time.Duration
}

func NewResolver(c Client, maxRetries int, initial time.Duration) *Resolver {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if initial <= 0 {
		initial = 500 * time.Millisecond
	}
	return &Resolver{c: c, maxRetries: uint64(maxRetries), initial: initial}
}

func (r *Resolver) Resolve(ctx context.Context, q Query) Result {
	var payload json.RawMessage
	op := func() error {
		p, err := r.c.GetStatus(ctx, q)
		if err != nil {
			if !Retryable(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		payload = p
		return nil
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = r.initial
	eb.MaxInterval = 10 * r.initial
	b := backoff.WithContext(backoff.WithMaxRetries(eb, r.maxRetries), ctx)

	if err := backoff.Retry(op, b); err != nil {
		slog.Warn("flight status fallback", "flight", q.FlightNumber, "error", err.Error())
		return Result{Payload: FallbackPayload(q, err), Fallback: true, Err: err}
	}
	return Result{Payload: payload}
}

// FallbackPayload is shown instead of real data while the provider is unavailable.
func FallbackPayload(q Query, cause error) json.RawMessage {
	m := map[string]any{
		"_fallback":     true,
		"flight_number": q.FlightNumber,
		"date":          q.Date.Format("2006-01-02"),
		"status":        "unknown",
	}
	if cause != nil {
		m["error"] = cause.Error()
	}
	b, _ := json.Marshal(m)
	return b
}
