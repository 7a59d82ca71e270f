package inbox

import (
	"context"
	"fmt"
	"io"

	"github.com/dyluth/parley/pkg/runinput"
)

// OutputFormat specifies how to format the entry list output.
type OutputFormat string

const (
	// OutputFormatDefault uses a table format with truncated values
	OutputFormatDefault OutputFormat = "default"

	// OutputFormatJSONL outputs complete entries as line-delimited JSON
	OutputFormatJSONL OutputFormat = "jsonl"
)

// ListEntries retrieves a run's records whose key starts with prefix, applies
// the filters and writes them in creation order.
func ListEntries(ctx context.Context, c *runinput.Client, runID, prefix string, format OutputFormat, filters *Criteria, w io.Writer) error {
	records, err := c.FilterInputs(ctx, prefix, 0, nil, runID)
	if err != nil {
		return err
	}

	entries := make([]Entry, 0, len(records))
	for _, r := range records {
		e := NewEntry(r)
		if filters != nil && !filters.Matches(e) {
			continue
		}
		entries = append(entries, e)
	}

	run := runID
	if run == "" {
		run = c.RunID()
	}

	switch format {
	case OutputFormatDefault, "":
		FormatTable(w, entries, run)
	case OutputFormatJSONL:
		if err := FormatJSONL(w, entries); err != nil {
			return fmt.Errorf("failed to format JSONL output: %w", err)
		}
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}

	return nil
}
