//go:build integration

package integration

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/vinylscout/vinylscout/internal/testutil"
	"github.com/vinylscout/vinylscout/pkg/cache"
	"github.com/vinylscout/vinylscout/pkg/client"
	"github.com/vinylscout/vinylscout/pkg/enrich"
	"github.com/vinylscout/vinylscout/pkg/marketplace"
	"github.com/vinylscout/vinylscout/pkg/pipeline"
	"github.com/vinylscout/vinylscout/pkg/ratelimit"
	"github.com/vinylscout/vinylscout/pkg/record"
	"github.com/vinylscout/vinylscout/pkg/sampler"
)

// setupRedis creates a Redis container for integration testing.
func setupRedis(t *testing.T) *redis.Client {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: host + ":" + port.Port(),
	})

	t.Cleanup(func() {
		redisClient.Close()
		container.Terminate(ctx)
	})

	return redisClient
}

// newRedisService wires a full pipeline against the mock marketplace
// with a Redis-backed server tier.
func newRedisService(t *testing.T, store cache.Store) (*pipeline.Service, *testutil.MockMarketplace) {
	t.Helper()

	mock := testutil.NewMockMarketplace()
	t.Cleanup(mock.Close)

	cfg := client.DefaultConfig("test-token")
	cfg.BaseURL = mock.URL()
	api := marketplace.New(client.New(cfg))

	policy := &ratelimit.ChunkedParallel{ChunkSize: 5}
	svc := pipeline.New(
		sampler.New(api),
		enrich.NewCoordinator(enrich.New(api), policy),
		store,
		cache.NewFallbackStore(10),
		pipeline.DefaultConfig(),
	)
	return svc, mock
}

// TestRedisStoreRoundTrip tests Put/Get against a real Redis instance.
func TestRedisStoreRoundTrip(t *testing.T) {
	redisClient := setupRedis(t)
	store := cache.NewRedisStore(redisClient)

	ctx := context.Background()

	records := []record.Record{
		{ID: 1, Artist: "Robert Hood", Title: "Minimal Nation", Style: "Techno", Year: 1994},
		{ID: 3, Artist: "Jeff Mills", Title: "Waveform Transmission", Style: "Techno", Year: 1992},
	}
	if err := store.Put(ctx, "Techno", records); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	entry, err := store.Get(ctx, "Techno")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if entry.Style != "Techno" {
		t.Errorf("entry.Style = %q, want Techno", entry.Style)
	}
	if len(entry.Records) != 2 {
		t.Fatalf("got %d records, want 2", len(entry.Records))
	}
	if entry.Records[0].Artist != "Robert Hood" {
		t.Errorf("Records[0].Artist = %q, want Robert Hood", entry.Records[0].Artist)
	}
	if !entry.Fresh(cache.ServerTTL) {
		t.Error("freshly written entry must be fresh")
	}

	if _, err := store.Get(ctx, "Nonexistent"); !errors.Is(err, cache.ErrCacheMiss) {
		t.Errorf("Get(unknown style) error = %v, want ErrCacheMiss", err)
	}
}

// TestPipelineWithRedisStore runs the full pipeline backed by Redis and
// verifies the second request is served from cache.
func TestPipelineWithRedisStore(t *testing.T) {
	redisClient := setupRedis(t)
	svc, mock := newRedisService(t, cache.NewRedisStore(redisClient))

	mock.SetSearchResults([]testutil.SearchRow{
		{ID: 1, Title: "Robert Hood - Minimal Nation", Year: 1994},
		{ID: 3, Title: "Jeff Mills - Waveform Transmission", Year: 1992},
	})
	mock.SetRelease(1, "https://youtu.be/one", 5, 9, testutil.Float(4.6))
	mock.SetPriceStats(1, testutil.Float(30.0))
	mock.SetRelease(3, "https://youtu.be/three", 2, 4, testutil.Float(4.1))
	mock.SetPriceStats(3, testutil.Float(18.5))

	ctx := context.Background()

	result, err := svc.Records(ctx, "Techno")
	if err != nil {
		t.Fatalf("Records() error = %v", err)
	}
	if len(result.Records) != 2 {
		t.Fatalf("got %d records, want 2", len(result.Records))
	}
	if result.Records[0].LowestPrice == nil || *result.Records[0].LowestPrice != 30.0 {
		t.Errorf("Records[0].LowestPrice = %v, want 30.0", result.Records[0].LowestPrice)
	}

	upstreamCalls := mock.GetRequestCount()

	result2, err := svc.Records(ctx, "Techno")
	if err != nil {
		t.Fatalf("Records() from cache error = %v", err)
	}
	if len(result2.Records) != 2 {
		t.Errorf("got %d cached records, want 2", len(result2.Records))
	}
	if result2.Stale {
		t.Error("fresh cache hit must not be stale")
	}
	if mock.GetRequestCount() != upstreamCalls {
		t.Errorf("cache hit made %d extra upstream calls", mock.GetRequestCount()-upstreamCalls)
	}
}

// TestRedisStaleFallback verifies a stale Redis entry is still readable
// and served when the upstream fails.
func TestRedisStaleFallback(t *testing.T) {
	redisClient := setupRedis(t)
	store := cache.NewRedisStore(redisClient)
	svc, mock := newRedisService(t, store)

	ctx := context.Background()

	// Seed a stale entry directly, backdated past the freshness TTL.
	stale := cache.Entry{
		Style:    "Techno",
		CachedAt: time.Now().Add(-48 * time.Hour),
		Records: []record.Record{
			{ID: 99, Artist: "Drexciya", Title: "Neptune's Lair", Style: "Techno"},
		},
	}
	data, err := json.Marshal(&stale)
	if err != nil {
		t.Fatalf("marshal stale entry: %v", err)
	}
	if err := redisClient.Set(ctx, "vinylscout:records:Techno", data, cache.FallbackTTL).Err(); err != nil {
		t.Fatalf("seed stale entry: %v", err)
	}

	entry, err := store.Get(ctx, "Techno")
	if err != nil {
		t.Fatalf("Get() on stale entry error = %v", err)
	}
	if entry.Fresh(cache.ServerTTL) {
		t.Error("backdated entry must not be fresh")
	}

	// Upstream is down: search returns 500 on every attempt.
	mock.SetResponse("/database/search", testutil.NewServerErrorResponse())

	result, err := svc.Records(ctx, "Techno")
	if err != nil {
		t.Fatalf("Records() error = %v, want stale fallback", err)
	}
	if !result.Stale {
		t.Error("fallback result must be flagged stale")
	}
	if len(result.Records) != 1 || result.Records[0].Artist != "Drexciya" {
		t.Errorf("fallback records = %+v, want seeded Drexciya entry", result.Records)
	}
}
