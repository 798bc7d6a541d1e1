package cache_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openveg/directory-service/internal/cache"
)

type listing struct {
	Name   string  `json:"name"`
	Rating float64 `json:"rating"`
}

func newTestService(t *testing.T) (*cache.Service, *cache.MemoryStore) {
	t.Helper()
	store := cache.NewMemoryStore(time.Minute)
	t.Cleanup(store.Stop)
	return cache.NewService(store, 5*time.Minute, 2*time.Second, zerolog.Nop()), store
}

func TestService_SetGetRoundTrip(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	want := listing{Name: "Green Clinic", Rating: 4.5}
	cache.Set(ctx, svc, "doctor:1", want, "doctor", cache.SetOptions{})

	got, ok := cache.Get[listing](ctx, svc, "doctor:1")
	assert.True(t, ok)
	assert.Equal(t, want, got)
}

func TestService_GetMissOnAbsentKey(t *testing.T) {
	svc, _ := newTestService(t)

	_, ok := cache.Get[listing](context.Background(), svc, "doctor:missing")
	assert.False(t, ok)
}

func TestService_CorruptPayloadIsMissAndDropped(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	svc.SetRaw(ctx, "doctor:1", []byte("{not json"), "doctor", cache.SetOptions{})

	_, ok := cache.Get[listing](ctx, svc, "doctor:1")
	assert.False(t, ok)

	// The bad entry must not survive to poison later reads.
	_, present, err := store.Get(ctx, "doctor:1")
	require.NoError(t, err)
	assert.False(t, present)
}

func TestService_InvalidateIdempotent(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	cache.Set(ctx, svc, "doctor:1", listing{Name: "a"}, "doctor", cache.SetOptions{})
	svc.Invalidate(ctx, "doctor:1")
	svc.Invalidate(ctx, "doctor:1")

	_, ok := cache.Get[listing](ctx, svc, "doctor:1")
	assert.False(t, ok)
}

func TestService_InvalidateByTag(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	cache.Set(ctx, svc, "doctor:1", listing{Name: "a"}, "doctor", cache.SetOptions{})
	cache.Set(ctx, svc, "doctor:page:1:limit:10", []listing{{Name: "a"}}, "doctor", cache.SetOptions{})
	cache.Set(ctx, svc, "recipe:1", listing{Name: "soup"}, "recipe", cache.SetOptions{})

	svc.InvalidateByTag(ctx, "doctor")

	_, ok := cache.Get[listing](ctx, svc, "doctor:1")
	assert.False(t, ok)
	_, ok = cache.Get[[]listing](ctx, svc, "doctor:page:1:limit:10")
	assert.False(t, ok)

	// Other tags are untouched.
	got, ok := cache.Get[listing](ctx, svc, "recipe:1")
	assert.True(t, ok)
	assert.Equal(t, "soup", got.Name)

	// Invalidating an empty tag is a no-op.
	assert.NotPanics(t, func() { svc.InvalidateByTag(ctx, "doctor") })
}

func TestService_InvalidatePattern(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	cache.Set(ctx, svc, "doctor:all", []listing{{Name: "a"}}, "doctor", cache.SetOptions{})
	cache.Set(ctx, svc, "doctor:all:f:vegan", []listing{{Name: "b"}}, "doctor", cache.SetOptions{})
	cache.Set(ctx, svc, "doctor:1", listing{Name: "a"}, "doctor", cache.SetOptions{})

	svc.InvalidatePattern(ctx, "doctor:all*")

	_, ok := cache.Get[[]listing](ctx, svc, "doctor:all")
	assert.False(t, ok)
	_, ok = cache.Get[[]listing](ctx, svc, "doctor:all:f:vegan")
	assert.False(t, ok)
	_, ok = cache.Get[listing](ctx, svc, "doctor:1")
	assert.True(t, ok)
}

func TestService_Stats(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	cache.Set(ctx, svc, "doctor:1", listing{Name: "a"}, "doctor", cache.SetOptions{})

	cache.Get[listing](ctx, svc, "doctor:1")       // hit
	cache.Get[listing](ctx, svc, "doctor:1")       // hit
	cache.Get[listing](ctx, svc, "doctor:missing") // miss

	stats := svc.Stats(ctx)
	assert.Equal(t, int64(2), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.InDelta(t, 2.0/3.0, stats.HitRatio, 1e-9)
	assert.Equal(t, 1, stats.CacheSize)
	assert.Greater(t, stats.MemoryUsage, int64(0))

	svc.ResetCounters()
	stats = svc.Stats(ctx)
	assert.Zero(t, stats.Hits)
	assert.Zero(t, stats.Misses)
	assert.Zero(t, stats.HitRatio)
}

func TestService_GetOrLoad(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	var loads atomic.Int32
	load := func(ctx context.Context) (listing, error) {
		loads.Add(1)
		return listing{Name: "loaded"}, nil
	}

	got, err := cache.GetOrLoad(ctx, svc, "doctor:1", "doctor", cache.SetOptions{}, load)
	require.NoError(t, err)
	assert.Equal(t, "loaded", got.Name)
	assert.Equal(t, int32(1), loads.Load())

	// Second read is served from cache.
	got, err = cache.GetOrLoad(ctx, svc, "doctor:1", "doctor", cache.SetOptions{}, load)
	require.NoError(t, err)
	assert.Equal(t, "loaded", got.Name)
	assert.Equal(t, int32(1), loads.Load())
}

func TestService_GetOrLoadError(t *testing.T) {
	svc, _ := newTestService(t)

	wantErr := errors.New("source down")
	_, err := cache.GetOrLoad(context.Background(), svc, "doctor:1", "doctor", cache.SetOptions{}, func(ctx context.Context) (listing, error) {
		return listing{}, wantErr
	})
	assert.ErrorIs(t, err, wantErr)
}

func TestService_GetOrLoadCoalescesConcurrentMisses(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	var loads atomic.Int32
	release := make(chan struct{})
	load := func(ctx context.Context) (listing, error) {
		loads.Add(1)
		<-release
		return listing{Name: "loaded"}, nil
	}

	const callers = 8
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			got, err := cache.GetOrLoad(ctx, svc, "doctor:1", "doctor", cache.SetOptions{}, load)
			assert.NoError(t, err)
			assert.Equal(t, "loaded", got.Name)
		}()
	}

	close(start)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), loads.Load())
}

// failingStore errors on every operation, standing in for an
// unreachable external store.
type failingStore struct{}

func (failingStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("store unreachable")
}

func (failingStore) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("store unreachable")
}

func (failingStore) Del(context.Context, string) error {
	return errors.New("store unreachable")
}

func (failingStore) KeysMatching(context.Context, string) ([]string, error) {
	return nil, errors.New("store unreachable")
}

func (failingStore) ScanStats(context.Context) (cache.StoreStats, error) {
	return cache.StoreStats{}, errors.New("store unreachable")
}

func TestService_StoreFailuresAreMisses(t *testing.T) {
	svc := cache.NewService(failingStore{}, time.Minute, time.Second, zerolog.Nop())
	ctx := context.Background()

	cache.Set(ctx, svc, "doctor:1", listing{Name: "a"}, "doctor", cache.SetOptions{})

	_, ok := cache.Get[listing](ctx, svc, "doctor:1")
	assert.False(t, ok)

	// Invalidation over a broken store must not panic.
	assert.NotPanics(t, func() {
		svc.Invalidate(ctx, "doctor:1")
		svc.InvalidateByTag(ctx, "doctor")
		svc.InvalidatePattern(ctx, "doctor:*")
	})
}

func TestService_HealthCheck(t *testing.T) {
	svc, _ := newTestService(t)
	assert.NoError(t, svc.HealthCheck(context.Background()))

	broken := cache.NewService(failingStore{}, time.Minute, time.Second, zerolog.Nop())
	assert.Error(t, broken.HealthCheck(context.Background()))
}
