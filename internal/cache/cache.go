package cache

import (
	"context"
	"fmt"
	"time"
)

//go:generate mockery --name BytesCache --output ./mocks --outpkg mocks --structname MockBytesCache --filename BytesCache.go

type BytesCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// Ключи представлений. Мутации инвалидируют их по дате, рейсу и отправке.

func DispatchKey(id uint64) string {
	return fmt.Sprintf("dispatch:%d", id)
}

func DispatchesByDateKey(d time.Time) string {
	return "dispatches:date:" + d.Format("2006-01-02")
}

func TripPackagesKey(tripID uint64) string {
	return fmt.Sprintf("trip:%d:packages", tripID)
}

func CandidatesKey(tripID *uint64) string {
	if tripID == nil {
		return "candidates:all"
	}
	return fmt.Sprintf("candidates:trip:%d", *tripID)
}

const PackagesListKey = "packages:all"

func DispatchPackagesKey(id uint64) string {
	return fmt.Sprintf("dispatch:%d:packages", id)
}

// PackageViewKeys lists the views that change whenever packages of these trips change.
func PackageViewKeys(tripIDs ...uint64) []string {
	keys := []string{PackagesListKey, CandidatesKey(nil)}
	seen := map[uint64]struct{}{}
	for _, id := range tripIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		tid := id
		keys = append(keys, CandidatesKey(&tid), TripPackagesKey(id))
	}
	return keys
}
