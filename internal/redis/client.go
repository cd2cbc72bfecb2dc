package redis

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/saviobatista/sbs-viewer/internal/logger"
	"github.com/saviobatista/sbs-viewer/internal/types"
)

const (
	// AircraftTTL is how long a cached aircraft survives without updates
	AircraftTTL = time.Hour
	indexKey    = "aircraft:index"
)

// RedisClientInterface defines the Redis operations used by our client
type RedisClientInterface interface {
	Ping(ctx context.Context) *redis.StatusCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	MGet(ctx context.Context, keys ...string) *redis.SliceCmd
	SAdd(ctx context.Context, key string, members ...interface{}) *redis.IntCmd
	SMembers(ctx context.Context, key string) *redis.StringSliceCmd
	SRem(ctx context.Context, key string, members ...interface{}) *redis.IntCmd
	Close() error
}

// Client caches the aircraft registry in Redis. Each aircraft lives under
// its own expiring key; a set indexes the addresses so the cache can be
// listed without SCAN.
type Client struct {
	client RedisClientInterface
	log    zerolog.Logger
}

// New creates a new Redis client
func New(addr string) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewWithClient(client), nil
}

// NewWithClient wraps an existing client (useful for testing)
func NewWithClient(client RedisClientInterface) *Client {
	return &Client{client: client, log: logger.WithComponent("redis")}
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.client.Close()
}

func aircraftKey(icao string) string {
	return "aircraft:" + icao
}

// StoreAircraft caches ac and refreshes its expiry
func (c *Client) StoreAircraft(ctx context.Context, ac *types.Aircraft) error {
	data, err := json.Marshal(ac)
	if err != nil {
		return fmt.Errorf("failed to marshal aircraft: %w", err)
	}

	if err := c.client.Set(ctx, aircraftKey(ac.Address), data, AircraftTTL).Err(); err != nil {
		return fmt.Errorf("failed to store aircraft %s: %w", ac.Address, err)
	}
	if err := c.client.SAdd(ctx, indexKey, ac.Address).Err(); err != nil {
		return fmt.Errorf("failed to index aircraft %s: %w", ac.Address, err)
	}
	return nil
}

// GetAircraft returns the cached aircraft or nil when it is not cached
func (c *Client) GetAircraft(ctx context.Context, icao string) (*types.Aircraft, error) {
	data, err := c.client.Get(ctx, aircraftKey(icao)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get aircraft %s: %w", icao, err)
	}

	var ac types.Aircraft
	if err := json.Unmarshal(data, &ac); err != nil {
		return nil, fmt.Errorf("failed to unmarshal aircraft %s: %w", icao, err)
	}
	return &ac, nil
}

// ListAircraft returns every cached aircraft, most recently seen first.
// Index entries whose key has expired are pruned.
func (c *Client) ListAircraft(ctx context.Context) ([]types.Aircraft, error) {
	addrs, err := c.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read aircraft index: %w", err)
	}
	aircraft := make([]types.Aircraft, 0, len(addrs))
	if len(addrs) == 0 {
		return aircraft, nil
	}

	keys := make([]string, len(addrs))
	for i, a := range addrs {
		keys[i] = aircraftKey(a)
	}
	values, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read aircraft: %w", err)
	}

	var expired []interface{}
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			expired = append(expired, addrs[i])
			continue
		}
		var ac types.Aircraft
		if err := json.Unmarshal([]byte(s), &ac); err != nil {
			c.log.Warn().Err(err).Str("icao", addrs[i]).Msg("Skipping undecodable cached aircraft")
			continue
		}
		aircraft = append(aircraft, ac)
	}

	if len(expired) > 0 {
		if err := c.client.SRem(ctx, indexKey, expired...).Err(); err != nil {
			c.log.Warn().Err(err).Int("count", len(expired)).Msg("Failed to prune aircraft index")
		}
	}

	slices.SortFunc(aircraft, func(a, b types.Aircraft) int {
		if n := b.LastSeen.Compare(a.LastSeen); n != 0 {
			return n
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return aircraft, nil
}
