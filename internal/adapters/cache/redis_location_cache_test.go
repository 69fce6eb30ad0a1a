package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"route-run-service/internal/domain"
)

// countingCatalog records how often each source method is hit, so the tests
// can tell a cache hit from a read-through.
type countingCatalog struct {
	locationCalls int
	machineCalls  int
	resolveCalls  int
}

func (c *countingCatalog) GetLocationByID(ctx context.Context, id int64) (*domain.Location, error) {
	c.locationCalls++
	if id == 999 {
		return nil, nil
	}
	return &domain.Location{ID: id, Name: "Quickie Mart", Address: "101 Main St"}, nil
}

func (c *countingCatalog) ListMachinesForLocation(ctx context.Context, locationID int64) ([]domain.Machine, error) {
	c.machineCalls++
	return []domain.Machine{
		{ID: 100, LocationID: locationID, Type: "claw", Label: "Front claw", CostPerPlay: 0.5},
	}, nil
}

func (c *countingCatalog) ResolveNames(ctx context.Context, ids []int64) (map[int64]string, error) {
	c.resolveCalls++
	names := make(map[int64]string, len(ids))
	for _, id := range ids {
		if id == 999 {
			continue
		}
		names[id] = "Quickie Mart"
	}
	return names, nil
}

func cacheFixture(t *testing.T) (*RedisLocationCache, *countingCatalog, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	source := &countingCatalog{}
	return NewRedisLocationCache(source, client, time.Minute, zerolog.Nop()), source, mr
}

func TestLocationCacheReadThrough(t *testing.T) {
	c, source, _ := cacheFixture(t)
	ctx := context.Background()

	loc, err := c.GetLocationByID(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, "Quickie Mart", loc.Name)
	assert.Equal(t, 1, source.locationCalls)

	// The second read is served from the cache.
	loc, err = c.GetLocationByID(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, "Quickie Mart", loc.Name)
	assert.Equal(t, "101 Main St", loc.Address)
	assert.Equal(t, 1, source.locationCalls)
}

func TestLocationCacheUnknownIDNotCached(t *testing.T) {
	c, source, _ := cacheFixture(t)
	ctx := context.Background()

	loc, err := c.GetLocationByID(ctx, 999)
	require.NoError(t, err)
	assert.Nil(t, loc)

	_, err = c.GetLocationByID(ctx, 999)
	require.NoError(t, err)
	assert.Equal(t, 2, source.locationCalls)
}

func TestLocationCacheExpiry(t *testing.T) {
	c, source, mr := cacheFixture(t)
	ctx := context.Background()

	_, err := c.GetLocationByID(ctx, 10)
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	_, err = c.GetLocationByID(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, source.locationCalls)
}

func TestMachineListReadThrough(t *testing.T) {
	c, source, _ := cacheFixture(t)
	ctx := context.Background()

	machines, err := c.ListMachinesForLocation(ctx, 10)
	require.NoError(t, err)
	require.Len(t, machines, 1)
	assert.Equal(t, "claw", machines[0].Type)

	machines, err = c.ListMachinesForLocation(ctx, 10)
	require.NoError(t, err)
	require.Len(t, machines, 1)
	assert.Equal(t, 0.5, machines[0].CostPerPlay)
	assert.Equal(t, 1, source.machineCalls)
}

func TestResolveNamesMixedHitAndMiss(t *testing.T) {
	c, source, _ := cacheFixture(t)
	ctx := context.Background()

	// Warm the cache for one location only.
	_, err := c.GetLocationByID(ctx, 10)
	require.NoError(t, err)

	names, err := c.ResolveNames(ctx, []int64{10, 20, 999})
	require.NoError(t, err)
	assert.Equal(t, "Quickie Mart", names[10])
	assert.Equal(t, "Quickie Mart", names[20])
	_, ok := names[999]
	assert.False(t, ok)

	// Only the misses went to the source, in a single call.
	assert.Equal(t, 1, source.resolveCalls)
}

func TestCacheFallsThroughWhenRedisDown(t *testing.T) {
	c, source, mr := cacheFixture(t)
	ctx := context.Background()
	mr.Close()

	loc, err := c.GetLocationByID(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, "Quickie Mart", loc.Name)
	assert.Equal(t, 1, source.locationCalls)

	machines, err := c.ListMachinesForLocation(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, machines, 1)

	names, err := c.ResolveNames(ctx, []int64{10})
	require.NoError(t, err)
	assert.Equal(t, "Quickie Mart", names[10])
}
