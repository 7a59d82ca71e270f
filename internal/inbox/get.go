package inbox

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dyluth/parley/pkg/runinput"
)

// GetEntry retrieves a single record by exact key and writes it as
// pretty-printed JSON to the writer.
func GetEntry(ctx context.Context, c *runinput.Client, runID, key string, w io.Writer) error {
	records, err := c.FilterInputs(ctx, key, 0, nil, runID)
	if err != nil {
		return fmt.Errorf("failed to fetch run input: %w", err)
	}

	for _, r := range records {
		if r.Key == key {
			return FormatSingleJSON(w, NewEntry(r))
		}
	}

	return &EntryNotFoundError{Key: key}
}

// EntryNotFoundError represents a specific "run input not found" error.
type EntryNotFoundError struct {
	Key string
}

func (e *EntryNotFoundError) Error() string {
	return fmt.Sprintf("run input with key '%s' not found", e.Key)
}

// IsNotFound returns true if the error is an EntryNotFoundError.
func IsNotFound(err error) bool {
	var nf *EntryNotFoundError
	return errors.As(err, &nf)
}
