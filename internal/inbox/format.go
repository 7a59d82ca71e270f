package inbox

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// FormatTable writes entries as a formatted table to the provided writer.
// Returns the number of entries formatted.
func FormatTable(w io.Writer, entries []Entry, runID string) int {
	if len(entries) == 0 {
		fmt.Fprintf(w, "No run inputs found for run '%s'\n", runID)
		return 0
	}

	fmt.Fprintf(w, "Run inputs for run '%s':\n\n", runID)

	fmt.Fprintf(w, "%-40s %-9s %-10s %-8s %s\n",
		"KEY", "KIND", "FROM", "AGE", "VALUE")
	fmt.Fprintf(w, "%-40s %-9s %-10s %-8s %s\n",
		"----------------------------------------", "---------", "----------", "--------", "----------------------------------------")

	for _, e := range entries {
		fmt.Fprintf(w, "%-40s %-9s %-10s %-8s %s\n",
			formatKey(e.Key),
			e.Kind,
			formatSender(e.SendingRunID),
			formatAge(e.CreatedAt, time.Now()),
			formatValue(e.Value),
		)
	}

	countMsg := "run input"
	if len(entries) != 1 {
		countMsg = "run inputs"
	}
	fmt.Fprintf(w, "\n%d %s found\n", len(entries), countMsg)

	return len(entries)
}

// FormatJSONL writes entries as line-delimited JSON (JSONL) to the provided writer.
func FormatJSONL(w io.Writer, entries []Entry) error {
	for _, e := range entries {
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("failed to marshal run input to JSON: %w", err)
		}

		if _, err := fmt.Fprintf(w, "%s\n", data); err != nil {
			return fmt.Errorf("failed to write JSONL output: %w", err)
		}
	}

	return nil
}

// FormatSingleJSON writes a single entry as pretty-printed JSON.
func FormatSingleJSON(w io.Writer, e Entry) error {
	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal run input to JSON: %w", err)
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write JSON output: %w", err)
	}
	fmt.Fprintln(w)

	return nil
}

// formatKey keeps the end of long keys, where the distinguishing uuid is.
func formatKey(key string) string {
	if len(key) > 40 {
		return "..." + key[len(key)-37:]
	}
	return key
}

// formatSender truncates the sending run id to 8 characters. Empty values return "-".
func formatSender(runID string) string {
	if runID == "" {
		return "-"
	}
	if len(runID) > 8 {
		return runID[:8]
	}
	return runID
}

// formatValue compacts the JSON value to one line of at most 40 characters.
func formatValue(value json.RawMessage) string {
	if len(value) == 0 {
		return "-"
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, value); err != nil {
		return "<invalid json>"
	}

	s := buf.String()
	if len(s) > 40 {
		return s[:37] + "..."
	}
	return s
}

// formatAge shows relative time like "2m ago", "1h ago".
func formatAge(t, now time.Time) string {
	if t.IsZero() {
		return "-"
	}

	diff := now.Sub(t)
	switch {
	case diff < time.Minute:
		return fmt.Sprintf("%ds ago", int(diff.Seconds()))
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	}
}
