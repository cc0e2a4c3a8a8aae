package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestKeys(t *testing.T) {
	require.Equal(t, "dispatch:5", DispatchKey(5))
	require.Equal(t, "dispatch:5:packages", DispatchPackagesKey(5))
	require.Equal(t, "dispatches:date:2026-03-02", DispatchesByDateKey(time.Date(2026, 3, 2, 23, 0, 0, 0, time.UTC)))
	require.Equal(t, "candidates:all", CandidatesKey(nil))
}

func TestPackageViewKeys_DedupTrips(t *testing.T) {
	keys := PackageViewKeys(3, 3, 4)
	require.Equal(t, []string{
		PackagesListKey, "candidates:all",
		"candidates:trip:3", "trip:3:packages",
		"candidates:trip:4", "trip:4:packages",
	}, keys)
}
