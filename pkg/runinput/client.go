package runinput

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
)

// Client binds a Store to the identity of the run it acts for. A client with
// no run id acts from outside any run: it can still send inputs, but envelopes
// carry no sender and run-scoped calls need an explicit run id.
//
// The client is safe for concurrent use.
type Client struct {
	store  Store
	runID  string
	logger *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithRunID sets the run the client acts for.
func WithRunID(runID string) ClientOption {
	return func(c *Client) { c.runID = runID }
}

// WithLogger sets the structured logger. The default discards output.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a client over the given store.
func NewClient(store Store, opts ...ClientOption) (*Client, error) {
	if store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}

	c := &Client{
		store:  store,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// RunID returns the run the client acts for, or "" outside a run.
func (c *Client) RunID() string {
	return c.runID
}

// Store returns the underlying store.
func (c *Client) Store() Store {
	return c.store
}

// resolveRun picks the explicit run id, falling back to the client's own.
func (c *Client) resolveRun(runID string) (string, error) {
	if runID != "" {
		return runID, nil
	}
	if c.runID != "" {
		return c.runID, nil
	}
	return "", ErrNoRun
}

// CreateInput JSON-encodes value and stores it under key for the run.
func (c *Client) CreateInput(ctx context.Context, key string, value any, runID string) error {
	run, err := c.resolveRun(runID)
	if err != nil {
		return err
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal run input '%s': %w", key, err)
	}

	if err := c.store.Create(ctx, run, key, data); err != nil {
		return fmt.Errorf("failed to create run input '%s' for run '%s': %w", key, run, err)
	}
	return nil
}

// ReadInput returns the raw JSON stored under key for the run.
func (c *Client) ReadInput(ctx context.Context, key string, runID string) (json.RawMessage, error) {
	run, err := c.resolveRun(runID)
	if err != nil {
		return nil, err
	}

	data, err := c.store.Read(ctx, run, key)
	if err != nil {
		return nil, fmt.Errorf("failed to read run input '%s' for run '%s': %w", key, run, err)
	}
	return data, nil
}

// FilterInputs lists the run's records whose key starts with prefix.
func (c *Client) FilterInputs(ctx context.Context, prefix string, limit int, exclude []string, runID string) ([]Record, error) {
	run, err := c.resolveRun(runID)
	if err != nil {
		return nil, err
	}

	records, err := c.store.Filter(ctx, run, prefix, limit, exclude)
	if err != nil {
		return nil, fmt.Errorf("failed to filter run inputs for run '%s': %w", run, err)
	}
	return records, nil
}

// DeleteInput removes the record under key for the run.
func (c *Client) DeleteInput(ctx context.Context, key string, runID string) error {
	run, err := c.resolveRun(runID)
	if err != nil {
		return err
	}

	if err := c.store.Delete(ctx, run, key); err != nil {
		return fmt.Errorf("failed to delete run input '%s' for run '%s': %w", key, run, err)
	}
	return nil
}

// PublishKeyset derives the run's SendInputKeyset from the input types it
// accepts and stores it under ReservedKeysetKey so senders can find it.
func (c *Client) PublishKeyset(ctx context.Context, runID string, inputs ...Named) (SendInputKeyset, error) {
	keysets, err := SendInputKeysetFromRunInputs(inputs...)
	if err != nil {
		return nil, err
	}

	if err := c.CreateInput(ctx, ReservedKeysetKey, keysets, runID); err != nil {
		return nil, err
	}

	c.logger.Debug("published run input keyset", "run_id", c.runIDOr(runID), "inputs", len(keysets))
	return keysets, nil
}

// ReadKeyset fetches the SendInputKeyset a run published.
func (c *Client) ReadKeyset(ctx context.Context, runID string) (SendInputKeyset, error) {
	data, err := c.ReadInput(ctx, ReservedKeysetKey, runID)
	if err != nil {
		return nil, err
	}

	var keysets SendInputKeyset
	if err := json.Unmarshal(data, &keysets); err != nil {
		return nil, fmt.Errorf("failed to decode keyset: %w", err)
	}
	return keysets, nil
}

func (c *Client) runIDOr(runID string) string {
	if runID != "" {
		return runID
	}
	return c.runID
}
