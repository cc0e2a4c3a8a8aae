package statusfeed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/BearBump/ParcelBox/internal/broker/messages"
	"github.com/BearBump/ParcelBox/internal/cache"
	"github.com/BearBump/ParcelBox/internal/cache/rediscache"
	"github.com/BearBump/ParcelBox/internal/models"
	"github.com/BearBump/ParcelBox/internal/services/statusfeed/mocks"
	"github.com/BearBump/ParcelBox/internal/storage/pgparcels"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestFeed_Committed_InvalidatesAndPublishes(t *testing.T) {
	mr := miniredis.RunT(t)
	rc := rediscache.New(mr.Addr())
	t.Cleanup(func() { _ = rc.Close() })
	ctx := context.Background()

	trip, dispatch := uint64(3), uint64(9)
	stale := []string{
		cache.PackagesListKey,
		cache.CandidatesKey(&trip),
		cache.TripPackagesKey(trip),
		cache.DispatchKey(dispatch),
		cache.DispatchPackagesKey(dispatch),
		"dispatches:date:2026-03-02",
	}
	for _, k := range append(stale, "unrelated") {
		require.NoError(t, rc.Set(ctx, k, []byte("x"), time.Minute))
	}

	pub := &mocks.MockPublisher{}
	pub.On("PublishJSON", mock.Anything, "package.events", "42", messages.TypePackageStatusChanged,
		mock.MatchedBy(func(v any) bool {
			m, ok := v.(messages.PackageStatusChanged)
			return ok && m.PackageID == 42 && m.To == "in_transit" && m.EventID != "" && m.Actor == "ops"
		})).Return(nil).Once()

	f := New(pub, "package.events", rc)
	f.Committed(ctx, "ops", []pgparcels.PackageChange{{
		PackageID:  42,
		DispatchID: &dispatch,
		TripID:     &trip,
		From:       models.PackageStatusProcessed,
		To:         models.PackageStatusInTransit,
	}}, "dispatches:date:2026-03-02")

	for _, k := range stale {
		_, ok, err := rc.Get(ctx, k)
		require.NoError(t, err)
		require.False(t, ok, k)
	}
	_, ok, err := rc.Get(ctx, "unrelated")
	require.NoError(t, err)
	require.True(t, ok)
	pub.AssertExpectations(t)
}

func TestFeed_Committed_PublishErrorIsSwallowed(t *testing.T) {
	pub := &mocks.MockPublisher{}
	pub.On("PublishJSON", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("kafka down")).Twice()

	f := New(pub, "t", nil)
	require.NotPanics(t, func() {
		f.Committed(context.Background(), "", []pgparcels.PackageChange{{PackageID: 1}, {PackageID: 2}})
	})
	pub.AssertExpectations(t)
}

func TestFeed_NilPublisher(t *testing.T) {
	f := New(nil, "", nil)
	require.NotPanics(t, func() {
		f.Committed(context.Background(), "", []pgparcels.PackageChange{{PackageID: 1}})
	})
}
