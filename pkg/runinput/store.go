package runinput

import (
	"context"
	"encoding/json"
	"time"
)

// Record is one stored run input as returned by Store.Filter.
type Record struct {
	Key       string          `json:"key"`
	RunID     string          `json:"run_id"`
	Value     json.RawMessage `json:"value"`
	CreatedAt time.Time       `json:"created_at"`
}

// Store is the durable keyed storage behind run input channels. Every record
// is scoped to a run id. Implementations must be safe for concurrent use.
//
// Create fails with ErrAlreadyExists if the key is taken, Read fails with
// ErrNotFound if it is absent. Filter returns up to limit records (limit <= 0
// means no limit) whose key starts with prefix and is not in exclude, in
// creation order.
type Store interface {
	Create(ctx context.Context, runID, key string, value []byte) error
	Read(ctx context.Context, runID, key string) ([]byte, error)
	Filter(ctx context.Context, runID, prefix string, limit int, exclude []string) ([]Record, error)
	Delete(ctx context.Context, runID, key string) error
}
