package inputstore

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dyluth/parley/pkg/runinput"
)

type memRecord struct {
	key       string
	value     []byte
	createdAt time.Time
}

// MemoryStore keeps run inputs in process memory. For tests and single
// process use; inputs do not survive a restart.
type MemoryStore struct {
	mu   sync.RWMutex
	runs map[string][]*memRecord
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{runs: make(map[string][]*memRecord)}
}

func (m *MemoryStore) find(runID, key string) (int, *memRecord) {
	for i, r := range m.runs[runID] {
		if r.key == key {
			return i, r
		}
	}
	return -1, nil
}

func (m *MemoryStore) Create(ctx context.Context, runID, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, r := m.find(runID, key); r != nil {
		return fmt.Errorf("key '%s': %w", key, runinput.ErrAlreadyExists)
	}
	m.runs[runID] = append(m.runs[runID], &memRecord{
		key:       key,
		value:     append([]byte(nil), value...),
		createdAt: time.Now(),
	})
	return nil
}

func (m *MemoryStore) Read(ctx context.Context, runID, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, r := m.find(runID, key)
	if r == nil {
		return nil, fmt.Errorf("key '%s': %w", key, runinput.ErrNotFound)
	}
	return append([]byte(nil), r.value...), nil
}

func (m *MemoryStore) Filter(ctx context.Context, runID, prefix string, limit int, exclude []string) ([]runinput.Record, error) {
	skip := make(map[string]struct{}, len(exclude))
	for _, k := range exclude {
		skip[k] = struct{}{}
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []runinput.Record
	for _, r := range m.runs[runID] {
		if !strings.HasPrefix(r.key, prefix) {
			continue
		}
		if _, excluded := skip[r.key]; excluded {
			continue
		}
		out = append(out, runinput.Record{
			Key:       r.key,
			RunID:     runID,
			Value:     append([]byte(nil), r.value...),
			CreatedAt: r.createdAt,
		})
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *MemoryStore) Delete(ctx context.Context, runID, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i, r := m.find(runID, key)
	if r == nil {
		return nil
	}
	records := m.runs[runID]
	m.runs[runID] = append(records[:i:i], records[i+1:]...)
	return nil
}

var _ runinput.Store = (*MemoryStore)(nil)
