package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"route-run-service/internal/domain"
	"route-run-service/internal/platform/obs"
	"route-run-service/internal/ports"
)

const (
	locationKeyFmt = "routerun:loc:%d"
	machinesKeyFmt = "routerun:loc:%d:machines"
)

type cachedLocation struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
}

type cachedMachine struct {
	ID          int64   `json:"id"`
	LocationID  int64   `json:"location_id"`
	Type        string  `json:"type"`
	Label       string  `json:"label"`
	CostPerPlay float64 `json:"cost_per_play"`
}

// RedisLocationCache is a read-through cache in front of a LocationCatalog.
// Location names and machine lists change rarely and are fetched on every
// stop, so they cache well; any Redis failure falls through to the source.
//
// Pending commissions are never served from here: a stale entry would show
// an already-paid commission as pending.
type RedisLocationCache struct {
	Source ports.LocationCatalog
	Client *redis.Client
	TTL    time.Duration
	Log    zerolog.Logger
}

func NewRedisLocationCache(source ports.LocationCatalog, client *redis.Client, ttl time.Duration, log zerolog.Logger) *RedisLocationCache {
	return &RedisLocationCache{Source: source, Client: client, TTL: ttl, Log: log}
}

func (c *RedisLocationCache) GetLocationByID(ctx context.Context, id int64) (_ *domain.Location, err error) {
	defer obs.Time(ctx, "cache.location.get")(&err)

	key := fmt.Sprintf(locationKeyFmt, id)
	if raw, err := c.Client.Get(ctx, key).Result(); err == nil {
		var cached cachedLocation
		if err := json.Unmarshal([]byte(raw), &cached); err == nil {
			return &domain.Location{ID: cached.ID, Name: cached.Name, Address: cached.Address}, nil
		}
	} else if err != redis.Nil {
		c.Log.Warn().Err(err).Str("key", key).Msg("location cache read failed, using source")
	}

	loc, err := c.Source.GetLocationByID(ctx, id)
	if err != nil || loc == nil {
		return loc, err
	}

	c.put(ctx, key, cachedLocation{ID: loc.ID, Name: loc.Name, Address: loc.Address})
	return loc, nil
}

func (c *RedisLocationCache) ListMachinesForLocation(ctx context.Context, locationID int64) (_ []domain.Machine, err error) {
	defer obs.Time(ctx, "cache.machines.list")(&err)

	key := fmt.Sprintf(machinesKeyFmt, locationID)
	if raw, err := c.Client.Get(ctx, key).Result(); err == nil {
		var cached []cachedMachine
		if err := json.Unmarshal([]byte(raw), &cached); err == nil {
			machines := make([]domain.Machine, 0, len(cached))
			for _, m := range cached {
				machines = append(machines, domain.Machine(m))
			}
			return machines, nil
		}
	} else if err != redis.Nil {
		c.Log.Warn().Err(err).Str("key", key).Msg("machine cache read failed, using source")
	}

	machines, err := c.Source.ListMachinesForLocation(ctx, locationID)
	if err != nil {
		return nil, err
	}

	cached := make([]cachedMachine, 0, len(machines))
	for _, m := range machines {
		cached = append(cached, cachedMachine(m))
	}
	c.put(ctx, key, cached)
	return machines, nil
}

// ResolveNames serves what it can from cached locations and fetches the rest
// from the source in one call, filling the cache with the results.
func (c *RedisLocationCache) ResolveNames(ctx context.Context, ids []int64) (_ map[int64]string, err error) {
	defer obs.Time(ctx, "cache.names.resolve")(&err)

	out := make(map[int64]string, len(ids))
	missing := make([]int64, 0, len(ids))

	for _, id := range ids {
		raw, err := c.Client.Get(ctx, fmt.Sprintf(locationKeyFmt, id)).Result()
		if err != nil {
			missing = append(missing, id)
			continue
		}
		var cached cachedLocation
		if err := json.Unmarshal([]byte(raw), &cached); err != nil {
			missing = append(missing, id)
			continue
		}
		out[id] = cached.Name
	}

	if len(missing) == 0 {
		return out, nil
	}

	names, err := c.Source.ResolveNames(ctx, missing)
	if err != nil {
		return nil, err
	}
	// Misses are not written back here: the cached value would carry an
	// empty address and poison GetLocationByID hits.
	for id, name := range names {
		out[id] = name
	}

	return out, nil
}

func (c *RedisLocationCache) put(ctx context.Context, key string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.Client.Set(ctx, key, raw, c.TTL).Err(); err != nil {
		c.Log.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
}
