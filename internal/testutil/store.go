// Package testutil holds helpers shared by tests that need a live store.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dyluth/parley/pkg/inputstore"
	"github.com/dyluth/parley/pkg/runinput"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

// RedisEnvironment is an isolated miniredis instance with a store over it.
type RedisEnvironment struct {
	T     *testing.T
	Redis *miniredis.Miniredis
	Store *inputstore.RedisStore
}

// SetupRedisEnvironment starts miniredis and connects a store using namespace.
// Both are torn down when the test ends.
func SetupRedisEnvironment(t *testing.T, namespace string) *RedisEnvironment {
	t.Helper()
	mr := miniredis.RunT(t)

	store, err := inputstore.NewRedisStore(&redis.Options{Addr: mr.Addr()}, namespace)
	require.NoError(t, err, "Failed to create Redis store")
	t.Cleanup(func() { store.Close() })

	return &RedisEnvironment{T: t, Redis: mr, Store: store}
}

// URL returns a redis:// URL for the environment, as parley.yml expects.
func (env *RedisEnvironment) URL() string {
	return "redis://" + env.Redis.Addr()
}

// NewRunClient returns a client acting for runID on store. An empty runID
// gets a fresh uuid.
func NewRunClient(t *testing.T, store runinput.Store, runID string) *runinput.Client {
	t.Helper()
	if runID == "" {
		runID = uuid.NewString()
	}
	c, err := runinput.NewClient(store, runinput.WithRunID(runID))
	require.NoError(t, err, "Failed to create run input client")
	return c
}

// WaitForRecord polls until key exists in the client's run or the timeout
// elapses, failing the test on timeout.
func WaitForRecord(t *testing.T, c *runinput.Client, key string, timeout time.Duration) runinput.Record {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		records, err := c.FilterInputs(ctx, key, 0, nil, "")
		require.NoError(t, err)
		for _, r := range records {
			if r.Key == key {
				return r
			}
		}

		select {
		case <-ctx.Done():
			t.Fatalf("Timeout waiting for record %q in run %s", key, c.RunID())
		case <-ticker.C:
		}
	}
}
