package runinput_test

import (
	"testing"

	"github.com/dyluth/parley/internal/testutil"
	"github.com/dyluth/parley/pkg/inputstore"
	"github.com/dyluth/parley/pkg/runinput"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type Approval struct {
	Approved bool   `json:"approved"`
	Reason   string `json:"reason,omitempty"`
}

type Greeting struct {
	Message string `json:"message"`
}

// newRunClient returns a client acting for a fresh run id on store.
func newRunClient(t *testing.T, store runinput.Store) *runinput.Client {
	t.Helper()
	return testutil.NewRunClient(t, store, "")
}

// newPair returns a sender and recipient run sharing one in-memory store.
func newPair(t *testing.T) (sender, recipient *runinput.Client) {
	t.Helper()
	store := inputstore.NewMemoryStore()
	return newRunClient(t, store), newRunClient(t, store)
}

// uniqueInput defines T under a name no other test uses, so per-input metrics
// start from zero.
func uniqueInput[T any](t *testing.T, prefix string) *runinput.RunInput[T] {
	t.Helper()
	in, err := runinput.Define[T](prefix + uuid.NewString()[:8])
	require.NoError(t, err)
	return in
}
