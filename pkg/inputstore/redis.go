package inputstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dyluth/parley/pkg/runinput"
	"github.com/redis/go-redis/v9"
)

// filterBatchSize is how many index entries Filter reads per round trip.
const filterBatchSize = 100

// createScript writes a value only if its key is free, and indexes it by a
// per-run sequence so Filter can return records in creation order.
//
// KEYS: inputs hash, index zset, seq counter, created hash
// ARGV: input key, value, created unix ms
var createScript = redis.NewScript(`
if redis.call('HSETNX', KEYS[1], ARGV[1], ARGV[2]) == 0 then
	return 0
end
local seq = redis.call('INCR', KEYS[3])
redis.call('ZADD', KEYS[2], seq, ARGV[1])
redis.call('HSET', KEYS[4], ARGV[1], ARGV[3])
return 1
`)

// RedisStore keeps run inputs in Redis. All keys are namespaced with the
// store's namespace. The store is thread-safe and can be used concurrently
// from multiple goroutines.
type RedisStore struct {
	rdb       *redis.Client
	namespace string
}

// NewRedisStore creates a store connected with the given options.
//
// Parameters:
//   - redisOpts: Redis connection options (address, password, DB, etc.)
//   - namespace: key namespace shared by cooperating runs (must not be empty)
func NewRedisStore(redisOpts *redis.Options, namespace string) (*RedisStore, error) {
	if namespace == "" {
		return nil, fmt.Errorf("namespace cannot be empty")
	}

	return &RedisStore{
		rdb:       redis.NewClient(redisOpts),
		namespace: namespace,
	}, nil
}

// NewRedisStoreFromURL parses a redis:// URL and creates a store.
func NewRedisStoreFromURL(url, namespace string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid Redis URL: %w", err)
	}
	return NewRedisStore(opts, namespace)
}

// Close closes the Redis connection. Implements io.Closer.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

// Ping verifies Redis connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// RedisClient exposes the underlying client, e.g. for inspection in tests.
func (s *RedisStore) RedisClient() *redis.Client {
	return s.rdb
}

// Create stores value under key for the run. Fails with
// runinput.ErrAlreadyExists if the key is taken.
func (s *RedisStore) Create(ctx context.Context, runID, key string, value []byte) error {
	keys := []string{
		InputsKey(s.namespace, runID),
		InputIndexKey(s.namespace, runID),
		InputSeqKey(s.namespace, runID),
		InputCreatedKey(s.namespace, runID),
	}

	created, err := createScript.Run(ctx, s.rdb, keys, key, value, time.Now().UnixMilli()).Int()
	if err != nil {
		return fmt.Errorf("failed to write run input to Redis: %w", err)
	}
	if created == 0 {
		return fmt.Errorf("key '%s': %w", key, runinput.ErrAlreadyExists)
	}

	return nil
}

// Read returns the value stored under key for the run.
// Returns runinput.ErrNotFound if the key doesn't exist.
func (s *RedisStore) Read(ctx context.Context, runID, key string) ([]byte, error) {
	value, err := s.rdb.HGet(ctx, InputsKey(s.namespace, runID), key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("key '%s': %w", key, runinput.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read run input from Redis: %w", err)
	}
	return value, nil
}

// Filter walks the run's creation index in batches and returns up to limit
// records whose key has the prefix and is not excluded.
func (s *RedisStore) Filter(ctx context.Context, runID, prefix string, limit int, exclude []string) ([]runinput.Record, error) {
	skip := make(map[string]struct{}, len(exclude))
	for _, k := range exclude {
		skip[k] = struct{}{}
	}

	indexKey := InputIndexKey(s.namespace, runID)
	var matched []string

	for start := int64(0); ; start += filterBatchSize {
		members, err := s.rdb.ZRange(ctx, indexKey, start, start+filterBatchSize-1).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to scan run input index: %w", err)
		}

		for _, key := range members {
			if !strings.HasPrefix(key, prefix) {
				continue
			}
			if _, excluded := skip[key]; excluded {
				continue
			}
			matched = append(matched, key)
			if limit > 0 && len(matched) >= limit {
				break
			}
		}

		if (limit > 0 && len(matched) >= limit) || len(members) < filterBatchSize {
			break
		}
	}

	if len(matched) == 0 {
		return nil, nil
	}

	return s.fetchRecords(ctx, runID, matched)
}

// fetchRecords loads values and timestamps for keys, skipping keys deleted
// since they were indexed.
func (s *RedisStore) fetchRecords(ctx context.Context, runID string, keys []string) ([]runinput.Record, error) {
	var valuesCmd, createdCmd *redis.SliceCmd
	_, err := s.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		valuesCmd = pipe.HMGet(ctx, InputsKey(s.namespace, runID), keys...)
		createdCmd = pipe.HMGet(ctx, InputCreatedKey(s.namespace, runID), keys...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read run inputs from Redis: %w", err)
	}

	values := valuesCmd.Val()
	created := createdCmd.Val()

	records := make([]runinput.Record, 0, len(keys))
	for i, key := range keys {
		raw, ok := values[i].(string)
		if !ok {
			continue
		}

		record := runinput.Record{Key: key, RunID: runID, Value: []byte(raw)}
		if ms, ok := created[i].(string); ok {
			if n, err := strconv.ParseInt(ms, 10, 64); err == nil {
				record.CreatedAt = time.UnixMilli(n)
			}
		}
		records = append(records, record)
	}

	return records, nil
}

// Delete removes key and its index entries. Deleting a missing key is a no-op.
func (s *RedisStore) Delete(ctx context.Context, runID, key string) error {
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HDel(ctx, InputsKey(s.namespace, runID), key)
		pipe.ZRem(ctx, InputIndexKey(s.namespace, runID), key)
		pipe.HDel(ctx, InputCreatedKey(s.namespace, runID), key)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete run input from Redis: %w", err)
	}
	return nil
}

var _ runinput.Store = (*RedisStore)(nil)
