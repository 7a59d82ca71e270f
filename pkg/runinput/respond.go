package runinput

import (
	"context"
	"encoding/json"
	"fmt"
)

// LoadSchema reads the schema document a paused run saved under
// keyset.Schema and reconstructs it.
func LoadSchema(ctx context.Context, c *Client, keyset Keyset, runID string) (*Schema, error) {
	raw, err := c.ReadInput(ctx, keyset.Schema, runID)
	if err != nil {
		return nil, err
	}
	return ParseSchemaDocument(raw)
}

// Respond answers a paused run: raw is validated against the schema the run
// saved and then stored under keyset.Response. Defaults declared by the
// schema are filled in. The run reads it back with RunInput.Load.
func Respond(ctx context.Context, c *Client, keyset Keyset, runID string, raw []byte) error {
	schema, err := LoadSchema(ctx, c, keyset, runID)
	if err != nil {
		return err
	}

	normalized, err := schema.Validate(raw)
	if err != nil {
		return err
	}

	data, err := json.Marshal(normalized)
	if err != nil {
		return fmt.Errorf("failed to marshal response: %w", err)
	}

	if err := c.CreateInput(ctx, keyset.Response, json.RawMessage(data), runID); err != nil {
		return err
	}

	c.logger.Info("responded to paused run", "input", schema.Name(), "run_id", c.runIDOr(runID), "key", keyset.Response)
	return nil
}
