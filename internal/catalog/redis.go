package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/ride-dashboards/internal/models"
)

// KV is the subset of redis operations the cache needs.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	LRange(ctx context.Context, key string) ([]string, error)
}

// ErrMiss is returned by KV.Get when the key does not exist.
var ErrMiss = errors.New("cache miss")

type redisKV struct{ c *redis.Client }

func NewRedisKV(c *redis.Client) KV { return &redisKV{c: c} }

func (r *redisKV) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := r.c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	return b, err
}

func (r *redisKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.c.Set(ctx, key, value, ttl).Err()
}

func (r *redisKV) LRange(ctx context.Context, key string) ([]string, error) {
	return r.c.LRange(ctx, key, 0, -1).Result()
}

// Redis wraps another provider. The offer snapshot is cached as JSON with a
// TTL; pending requests are read from a list fed by the ingest consumer and
// fall back to the inner provider while that list is empty.
type Redis struct {
	kv         KV
	inner      Provider
	offersKey  string
	pendingKey string
	ttl        time.Duration
}

type RedisOptions struct {
	OffersKey  string
	PendingKey string
	TTL        time.Duration
}

func NewRedis(kv KV, inner Provider, opts RedisOptions) *Redis {
	if opts.OffersKey == "" {
		opts.OffersKey = "catalog:offers"
	}
	if opts.PendingKey == "" {
		opts.PendingKey = "ride_requests:pending"
	}
	if opts.TTL <= 0 {
		opts.TTL = time.Minute
	}
	return &Redis{kv: kv, inner: inner, offersKey: opts.OffersKey, pendingKey: opts.PendingKey, ttl: opts.TTL}
}

func (r *Redis) Offers(ctx context.Context) ([]models.RideOffer, error) {
	if b, err := r.kv.Get(ctx, r.offersKey); err == nil {
		var offers []models.RideOffer
		if err := json.Unmarshal(b, &offers); err == nil {
			return offers, nil
		}
	}
	offers, err := r.inner.Offers(ctx)
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(offers); err == nil {
		// cache write is best-effort
		_ = r.kv.Set(ctx, r.offersKey, b, r.ttl)
	}
	return offers, nil
}

func (r *Redis) PendingRequests(ctx context.Context) ([]models.RideRequest, error) {
	raw, err := r.kv.LRange(ctx, r.pendingKey)
	if err != nil || len(raw) == 0 {
		return r.inner.PendingRequests(ctx)
	}
	out := make([]models.RideRequest, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, s := range raw {
		var req models.RideRequest
		if err := json.Unmarshal([]byte(s), &req); err != nil || req.Validate() != nil {
			continue
		}
		// the consumer may append the same request more than once
		if _, dup := seen[req.ID]; dup {
			continue
		}
		seen[req.ID] = struct{}{}
		out = append(out, req)
	}
	return out, nil
}

func (r *Redis) DriverReport(ctx context.Context) (models.DriverReport, error) {
	return r.inner.DriverReport(ctx)
}

func (r *Redis) ManagerReport(ctx context.Context) (models.ManagerReport, error) {
	return r.inner.ManagerReport(ctx)
}

func (r *Redis) RegulatorReport(ctx context.Context) (models.RegulatorReport, error) {
	return r.inner.RegulatorReport(ctx)
}
