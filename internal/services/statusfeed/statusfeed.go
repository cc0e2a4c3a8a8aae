// Package statusfeed runs the after-commit side effects of package status changes:
// cached views are dropped and every change is announced on the package events topic.
package statusfeed

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/BearBump/ParcelBox/internal/broker/messages"
	"github.com/BearBump/ParcelBox/internal/cache"
	"github.com/BearBump/ParcelBox/internal/storage/pgparcels"
)

//go:generate mockery --name Publisher --output ./mocks --outpkg mocks --structname MockPublisher --filename Publisher.go

type Publisher interface {
	PublishJSON(ctx context.Context, topic, key, eventType string, v any) error
}

type Feed struct {
	pub   Publisher
	topic string
	cache cache.BytesCache
}

// New accepts a nil publisher or cache; the matching side effect is then skipped.
func New(pub Publisher, topic string, c cache.BytesCache) *Feed {
	return &Feed{pub: pub, topic: topic, cache: c}
}

// Committed must be called only after the transaction committed. Failures are logged, never returned.
func (f *Feed) Committed(ctx context.Context, actor string, changes []pgparcels.PackageChange, keys ...string) {
	var trips []uint64
	for _, ch := range changes {
		if ch.TripID != nil {
			trips = append(trips, *ch.TripID)
		}
		if ch.DispatchID != nil {
			keys = append(keys, cache.DispatchKey(*ch.DispatchID), cache.DispatchPackagesKey(*ch.DispatchID))
		}
	}
	keys = append(keys, cache.PackageViewKeys(trips...)...)

	if f.cache != nil {
		if err := f.cache.Del(ctx, dedup(keys)...); err != nil {
			slog.Warn("cache invalidate failed", "keys", len(keys), "error", err.Error())
		}
	}

	if f.pub == nil {
		return
	}
	for _, ch := range changes {
		msg := messages.PackageStatusChanged{
			Envelope:   messages.NewEnvelope(messages.TypePackageStatusChanged),
			PackageID:  ch.PackageID,
			DispatchID: ch.DispatchID,
			TripID:     ch.TripID,
			From:       string(ch.From),
			To:         string(ch.To),
			Actor:      actor,
		}
		key := strconv.FormatUint(ch.PackageID, 10)
		if err := f.pub.PublishJSON(ctx, f.topic, key, messages.TypePackageStatusChanged, msg); err != nil {
			slog.Error("publish package event failed", "package_id", ch.PackageID, "to", ch.To, "error", err.Error())
		}
	}
}

func dedup(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := keys[:0]
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
