// Package cache provides read-through caches in front of slow upstream lookups.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"gitlab.com/timkado/api/lead-outreach-service/internal/integration/geocoding"
	"gitlab.com/timkado/api/lead-outreach-service/internal/model"
	"gitlab.com/timkado/api/lead-outreach-service/internal/observer"
	"gitlab.com/timkado/api/lead-outreach-service/pkg/logger"
)

const geocodeKeyPrefix = "lead-outreach:geocode:"

// store is the subset of Redis the cache needs.
type store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// redisStore adapts *redis.Client to store. A missing key is redis.Nil.
type redisStore struct {
	client *redis.Client
}

func (s redisStore) Get(ctx context.Context, key string) (string, error) {
	return s.client.Get(ctx, key).Result()
}

func (s redisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

// NewRedisClient connects to Redis and verifies the connection with a ping.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		MinIdleConns: 2,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", addr, err)
	}
	return client, nil
}

// GeocodeCache wraps a Geocoder with a Redis read-through cache keyed by
// normalized address. Cache failures never fail a lookup.
type GeocodeCache struct {
	next  geocoding.Geocoder
	store store
	ttl   time.Duration
}

// Ensure GeocodeCache implements geocoding.Geocoder
var _ geocoding.Geocoder = (*GeocodeCache)(nil)

// NewGeocodeCache creates a cache in front of next.
func NewGeocodeCache(client *redis.Client, next geocoding.Geocoder, ttl time.Duration) *GeocodeCache {
	return newGeocodeCache(redisStore{client: client}, next, ttl)
}

func newGeocodeCache(s store, next geocoding.Geocoder, ttl time.Duration) *GeocodeCache {
	return &GeocodeCache{next: next, store: s, ttl: ttl}
}

// normalizeAddress lower-cases and collapses whitespace so trivially
// different spellings share an entry.
func normalizeAddress(address string) string {
	return strings.Join(strings.Fields(strings.ToLower(address)), " ")
}

// geocodeKey hashes the normalized address with FNV-1a.
func geocodeKey(address string) string {
	h := fnv.New64a()
	h.Write([]byte(normalizeAddress(address)))
	return fmt.Sprintf("%s%x", geocodeKeyPrefix, h.Sum64())
}

// Geocode returns a cached position or resolves and stores it.
// Only successful lookups are cached.
func (c *GeocodeCache) Geocode(ctx context.Context, address string) (model.Coordinates, error) {
	log := logger.FromContext(ctx)
	key := geocodeKey(address)

	raw, err := c.store.Get(ctx, key)
	switch {
	case err == nil:
		var coords model.Coordinates
		if jsonErr := json.Unmarshal([]byte(raw), &coords); jsonErr == nil {
			observer.IncGeocodeLookup("cache", "hit")
			return coords, nil
		}
		log.Warn("Discarding malformed geocode cache entry", zap.String("key", key))
	case errors.Is(err, redis.Nil):
		observer.IncGeocodeLookup("cache", "miss")
	default:
		observer.IncGeocodeLookup("cache", "error")
		log.Warn("Geocode cache read failed, falling through", zap.String("key", key), zap.Error(err))
	}

	coords, err := c.next.Geocode(ctx, address)
	if err != nil {
		return model.Coordinates{}, err
	}

	data, _ := json.Marshal(coords)
	if err := c.store.Set(ctx, key, string(data), c.ttl); err != nil {
		log.Warn("Geocode cache write failed", zap.String("key", key), zap.Error(err))
	}
	return coords, nil
}
