package stats

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/kava-labs/envelope-rewrite-service/logging"
)

// outcomesHashKey is the name of the redis hash holding every counter,
// namespaced by the configured prefix
const outcomesHashKey = "rewrite-outcomes"

type RedisConfig struct {
	Address  string
	Password string
	DB       int
	// Prefix namespaces the keys written by this service
	Prefix string
}

// RedisStore is an implementation of Store that keeps the counters
// in a redis hash so every replica reports the same numbers.
type RedisStore struct {
	client *redis.Client
	key    string
	*logging.ServiceLogger
}

var _ Store = (*RedisStore)(nil)

func NewRedisStore(
	cfg *RedisConfig,
	logger *logging.ServiceLogger,
) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	return newRedisStoreWithClient(client, cfg.Prefix, logger), nil
}

func newRedisStoreWithClient(client *redis.Client, prefix string, logger *logging.ServiceLogger) *RedisStore {
	return &RedisStore{
		client:        client,
		key:           BuildHashKey(prefix),
		ServiceLogger: logger,
	}
}

// BuildHashKey returns the redis key of the counters hash for prefix
func BuildHashKey(prefix string) string {
	return fmt.Sprintf("%s:%s", prefix, outcomesHashKey)
}

// Increment adds one to the counter field named key.
func (rs *RedisStore) Increment(ctx context.Context, key string) error {
	rs.Logger.Trace().
		Str("hash", rs.key).
		Str("key", key).
		Msg("incrementing counter in redis")

	if err := rs.client.HIncrBy(ctx, rs.key, key, 1).Err(); err != nil {
		rs.Logger.Error().
			Str("key", key).
			Err(err).
			Msg("error incrementing counter in redis")
		return err
	}

	return nil
}

// Counts returns every counter field of the hash.
func (rs *RedisStore) Counts(ctx context.Context) (map[string]int64, error) {
	rs.Logger.Trace().
		Str("hash", rs.key).
		Msg("getting counters from redis")

	fields, err := rs.client.HGetAll(ctx, rs.key).Result()
	if err != nil {
		rs.Logger.Error().
			Err(err).
			Msg("error during getting counters from redis")
		return nil, err
	}

	counts := make(map[string]int64, len(fields))
	for field, value := range fields {
		count, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("counter %s holds non integer value %q: %w", field, value, err)
		}

		counts[field] = count
	}

	return counts, nil
}

func (rs *RedisStore) Healthcheck(ctx context.Context) error {
	rs.Logger.Trace().Msg("redis healthcheck was called")

	// Check if we can connect to Redis
	_, err := rs.client.Ping(ctx).Result()
	if err != nil {
		rs.Logger.Error().
			Err(err).
			Msg("can't ping redis")
		return fmt.Errorf("error connecting to Redis: %v", err)
	}

	rs.Logger.Trace().Msg("redis healthcheck was successful")

	return nil
}

// Close releases the redis connection pool
func (rs *RedisStore) Close() error {
	return rs.client.Close()
}
