package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dyluth/parley/pkg/runinput"
)

// MinPrefixLength is the minimum required length for key prefixes.
// Keys share long channel prefixes, so anything shorter is almost always ambiguous.
const MinPrefixLength = 4

// ResolveKey resolves a key prefix to the full key of one record in a run.
// Returns the full key if exactly one match found.
// Returns error if zero or multiple matches found.
//
// An exact key always wins, even when longer keys share it as a prefix:
// "approval-response" resolves to itself rather than being ambiguous with
// "approval-response-<uuid>".
func ResolveKey(ctx context.Context, c *runinput.Client, runID, prefix string) (string, error) {
	if _, err := c.ReadInput(ctx, prefix, runID); err == nil {
		return prefix, nil
	} else if !runinput.IsNotFound(err) {
		return "", fmt.Errorf("failed to verify run input existence: %w", err)
	}

	if len(prefix) < MinPrefixLength {
		return "", fmt.Errorf("key prefix must be at least %d characters (got %d)", MinPrefixLength, len(prefix))
	}

	records, err := c.FilterInputs(ctx, prefix, 0, nil, runID)
	if err != nil {
		return "", fmt.Errorf("failed to search for run input: %w", err)
	}

	switch len(records) {
	case 0:
		return "", &NotFoundError{Prefix: prefix}
	case 1:
		return records[0].Key, nil
	default:
		matches := make([]string, len(records))
		for i, r := range records {
			matches[i] = r.Key
		}
		return "", &AmbiguousError{Prefix: prefix, Matches: matches}
	}
}

// NotFoundError indicates no records matched the prefix.
type NotFoundError struct {
	Prefix string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no run inputs found matching '%s'", e.Prefix)
}

// AmbiguousError indicates multiple records matched the prefix.
type AmbiguousError struct {
	Prefix  string
	Matches []string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("ambiguous key prefix '%s' matches %d run inputs", e.Prefix, len(e.Matches))
}

// FormatAmbiguousError creates a user-friendly error message for ambiguous prefixes.
// Lists all matching keys (up to 10, then "...and N more").
func FormatAmbiguousError(err *AmbiguousError) string {
	var b strings.Builder
	fmt.Fprintf(&b, "ambiguous key prefix '%s' matches %d run inputs:\n", err.Prefix, len(err.Matches))

	displayCount := min(len(err.Matches), 10)
	for _, key := range err.Matches[:displayCount] {
		fmt.Fprintf(&b, "  %s\n", key)
	}

	if len(err.Matches) > 10 {
		fmt.Fprintf(&b, "  ...and %d more\n", len(err.Matches)-10)
	}

	b.WriteString("\nUse a longer prefix to uniquely identify the run input.")
	return b.String()
}

// IsNotFoundError checks if an error is a NotFoundError.
func IsNotFoundError(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsAmbiguousError checks if an error is an AmbiguousError.
func IsAmbiguousError(err error) bool {
	var amb *AmbiguousError
	return errors.As(err, &amb)
}
