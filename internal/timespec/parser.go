package timespec

import (
	"fmt"
	"time"
)

// Parse parses a time specification into an absolute time.
// Supports two formats:
//   - Go duration format: "1h", "30m", "1h30m", "2h45m30s"
//   - RFC3339 timestamps: "2025-10-29T13:00:00Z"
//
// Duration specifications are relative to now and point into the past.
// For example, "1h" means "1 hour ago".
func Parse(spec string, now time.Time) (time.Time, error) {
	if spec == "" {
		return time.Time{}, fmt.Errorf("empty time specification")
	}

	if t, err := time.Parse(time.RFC3339, spec); err == nil {
		return t, nil
	}

	if d, err := time.ParseDuration(spec); err == nil {
		return now.Add(-d), nil
	}

	return time.Time{}, fmt.Errorf("invalid time specification: %s (use duration like '1h30m' or RFC3339 like '2025-10-29T13:00:00Z')", spec)
}

// ParseRange parses both --since and --until flags into a time range.
// Zero values indicate "no bound" for that end of the range.
//
// Validates that since < until if both are specified.
func ParseRange(since, until string, now time.Time) (time.Time, time.Time, error) {
	var sinceT, untilT time.Time
	var err error

	if since != "" {
		sinceT, err = Parse(since, now)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --since: %w", err)
		}
	}

	if until != "" {
		untilT, err = Parse(until, now)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --until: %w", err)
		}
	}

	if !sinceT.IsZero() && !untilT.IsZero() && !sinceT.Before(untilT) {
		return time.Time{}, time.Time{}, fmt.Errorf("--since must be before --until")
	}

	return sinceT, untilT, nil
}

// ParseBudget parses a wait budget. A duration is taken as-is; an RFC3339
// timestamp is a deadline and becomes the time remaining until it.
// A deadline already in the past yields a zero budget, meaning check once.
func ParseBudget(spec string, now time.Time) (time.Duration, error) {
	if spec == "" {
		return 0, fmt.Errorf("empty time specification")
	}

	if d, err := time.ParseDuration(spec); err == nil {
		if d < 0 {
			return 0, fmt.Errorf("invalid wait budget: %s is negative", spec)
		}
		return d, nil
	}

	if t, err := time.Parse(time.RFC3339, spec); err == nil {
		return max(t.Sub(now), 0), nil
	}

	return 0, fmt.Errorf("invalid wait budget: %s (use duration like '10m' or RFC3339 deadline like '2025-10-29T13:00:00Z')", spec)
}
