package inputstore

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/dyluth/parley/pkg/runinput"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupRedisStore creates a store connected to a miniredis instance
func setupRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)

	store, err := NewRedisStore(&redis.Options{Addr: mr.Addr()}, "test-ns")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return store, mr
}

func setupPostgresStore(t *testing.T) *PostgresStore {
	dsn := os.Getenv("PARLEY_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("PARLEY_TEST_PG_DSN not set, skipping Postgres store tests")
	}

	ctx := context.Background()
	store, err := NewPostgresStore(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(store.Close)
	require.NoError(t, store.EnsureSchema(ctx))

	return store
}

// testStoreContract exercises the behaviour every runinput.Store must share.
// Each subtest uses its own run id so stores need no reset between them.
func testStoreContract(t *testing.T, store runinput.Store) {
	ctx := context.Background()

	t.Run("create then read", func(t *testing.T) {
		run := uuid.NewString()
		require.NoError(t, store.Create(ctx, run, "k", []byte(`{"a":1}`)))

		value, err := store.Read(ctx, run, "k")
		require.NoError(t, err)
		assert.JSONEq(t, `{"a":1}`, string(value))
	})

	t.Run("read missing key", func(t *testing.T) {
		_, err := store.Read(ctx, uuid.NewString(), "missing")
		assert.True(t, runinput.IsNotFound(err))
	})

	t.Run("create rejects duplicate key", func(t *testing.T) {
		run := uuid.NewString()
		require.NoError(t, store.Create(ctx, run, "k", []byte(`1`)))

		err := store.Create(ctx, run, "k", []byte(`2`))
		assert.ErrorIs(t, err, runinput.ErrAlreadyExists)

		value, err := store.Read(ctx, run, "k")
		require.NoError(t, err)
		assert.JSONEq(t, `1`, string(value))
	})

	t.Run("records are scoped per run", func(t *testing.T) {
		runA, runB := uuid.NewString(), uuid.NewString()
		require.NoError(t, store.Create(ctx, runA, "shared", []byte(`"a"`)))

		_, err := store.Read(ctx, runB, "shared")
		assert.True(t, runinput.IsNotFound(err))

		records, err := store.Filter(ctx, runB, "", 0, nil)
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("filter by prefix in creation order", func(t *testing.T) {
		run := uuid.NewString()
		for i := 0; i < 3; i++ {
			require.NoError(t, store.Create(ctx, run, fmt.Sprintf("foo-response-%d", i), []byte(fmt.Sprintf(`%d`, i))))
		}
		require.NoError(t, store.Create(ctx, run, "bar-response-0", []byte(`9`)))

		records, err := store.Filter(ctx, run, "foo-response", 0, nil)
		require.NoError(t, err)
		require.Len(t, records, 3)
		for i, r := range records {
			assert.Equal(t, fmt.Sprintf("foo-response-%d", i), r.Key)
			assert.Equal(t, run, r.RunID)
			assert.JSONEq(t, fmt.Sprintf(`%d`, i), string(r.Value))
		}
	})

	t.Run("filter honours limit and exclusions", func(t *testing.T) {
		run := uuid.NewString()
		for i := 0; i < 3; i++ {
			require.NoError(t, store.Create(ctx, run, fmt.Sprintf("x-%d", i), []byte(`true`)))
		}

		records, err := store.Filter(ctx, run, "x-", 1, []string{"x-0"})
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "x-1", records[0].Key)

		records, err = store.Filter(ctx, run, "x-", 5, []string{"x-0", "x-1", "x-2"})
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("prefix is matched literally", func(t *testing.T) {
		run := uuid.NewString()
		require.NoError(t, store.Create(ctx, run, "a_b", []byte(`1`)))
		require.NoError(t, store.Create(ctx, run, "axb", []byte(`2`)))

		records, err := store.Filter(ctx, run, "a_", 0, nil)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "a_b", records[0].Key)
	})

	t.Run("delete removes record", func(t *testing.T) {
		run := uuid.NewString()
		require.NoError(t, store.Create(ctx, run, "gone", []byte(`{}`)))
		require.NoError(t, store.Delete(ctx, run, "gone"))

		_, err := store.Read(ctx, run, "gone")
		assert.True(t, runinput.IsNotFound(err))

		records, err := store.Filter(ctx, run, "", 0, nil)
		require.NoError(t, err)
		assert.Empty(t, records)

		// Deleting again is a no-op
		assert.NoError(t, store.Delete(ctx, run, "gone"))
	})
}

func TestMemoryStore(t *testing.T) {
	testStoreContract(t, NewMemoryStore())
}

func TestRedisStore(t *testing.T) {
	store, _ := setupRedisStore(t)
	testStoreContract(t, store)
}

func TestPostgresStore(t *testing.T) {
	testStoreContract(t, setupPostgresStore(t))
}

func TestNewRedisStore(t *testing.T) {
	t.Run("rejects empty namespace", func(t *testing.T) {
		_, err := NewRedisStore(&redis.Options{Addr: "localhost:6379"}, "")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "namespace cannot be empty")
	})

	t.Run("rejects invalid URL", func(t *testing.T) {
		_, err := NewRedisStoreFromURL("not a url", "ns")
		assert.Error(t, err)
	})

	t.Run("pings server", func(t *testing.T) {
		store, _ := setupRedisStore(t)
		assert.NoError(t, store.Ping(context.Background()))
	})
}

func TestRedisStore_KeyLayout(t *testing.T) {
	store, mr := setupRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, "run-1", "approval-response", []byte(`{"ok":true}`)))

	assert.True(t, mr.Exists("parley:test-ns:run:run-1:inputs"))
	assert.True(t, mr.Exists("parley:test-ns:run:run-1:input_index"))
	assert.True(t, mr.Exists("parley:test-ns:run:run-1:input_created"))

	value := mr.HGet("parley:test-ns:run:run-1:inputs", "approval-response")
	assert.JSONEq(t, `{"ok":true}`, value)
}

func TestRedisStore_FilterPagesThroughIndex(t *testing.T) {
	store, _ := setupRedisStore(t)
	ctx := context.Background()
	run := "run-paged"

	// More records than one index batch, only the last one matches
	for i := 0; i < filterBatchSize+5; i++ {
		require.NoError(t, store.Create(ctx, run, fmt.Sprintf("noise-%03d", i), []byte(`0`)))
	}
	require.NoError(t, store.Create(ctx, run, "wanted", []byte(`1`)))

	records, err := store.Filter(ctx, run, "wanted", 1, nil)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "wanted", records[0].Key)
	assert.False(t, records[0].CreatedAt.IsZero())
}

func TestLikePrefix(t *testing.T) {
	assert.Equal(t, `a\_b\%c\\%`, likePrefix(`a_b%c\`))
	assert.Equal(t, `%`, likePrefix(""))
}
