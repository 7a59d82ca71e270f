package runinput

import (
	"context"
	"fmt"

	"github.com/dyluth/parley/internal/metrics"
	"github.com/google/uuid"
)

// Send delivers value into the recipient run's inbox for the input type and
// returns the key it was written under.
//
// The sender is the client's run, if any. Each call mints a fresh key below
// the channel's response key, so concurrent senders never overwrite each
// other. Send fails with *UnknownInputTypeError if the recipient never
// declared the input type.
func Send[T any](ctx context.Context, c *Client, input *RunInput[T], value T, recipientRunID string) (string, error) {
	if recipientRunID == "" {
		return "", fmt.Errorf("recipient run id cannot be empty")
	}

	keysets, err := c.ReadKeyset(ctx, recipientRunID)
	if err != nil {
		return "", err
	}

	keyset, ok := keysets[input.Name()]
	if !ok {
		return "", &UnknownInputTypeError{Name: input.Name(), RunID: recipientRunID}
	}

	payload, err := input.Encode(value)
	if err != nil {
		return "", err
	}

	envelope, err := encodeEnvelope(payload, c.RunID())
	if err != nil {
		return "", err
	}

	key := fmt.Sprintf("%s-%s", keyset.Response, uuid.NewString())
	if err := c.store.Create(ctx, recipientRunID, key, envelope); err != nil {
		return "", fmt.Errorf("failed to deliver %s to run '%s': %w", input.Name(), recipientRunID, err)
	}

	metrics.InputsSent.WithLabelValues(input.Name()).Inc()
	c.logger.Info("sent run input",
		"input", input.Name(),
		"run_id", recipientRunID,
		"sending_run_id", c.RunID(),
		"key", key,
	)

	return key, nil
}
