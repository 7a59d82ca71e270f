package inbox

import (
	"path/filepath"
	"time"
)

// Criteria defines filtering criteria for inbox entries.
// All filters are ANDed together - an entry must match ALL criteria to pass.
type Criteria struct {
	Since        time.Time // zero = no filter
	Until        time.Time // zero = no filter
	KeyGlob      string    // Glob pattern for the record key, empty = no filter
	Kind         Kind      // Exact kind, empty = no filter
	SendingRunID string    // Exact sender, empty = no filter
}

// Matches returns true if the entry matches all filter criteria.
func (c *Criteria) Matches(e Entry) bool {
	if !c.Since.IsZero() && e.CreatedAt.Before(c.Since) {
		return false
	}
	if !c.Until.IsZero() && e.CreatedAt.After(c.Until) {
		return false
	}

	if c.KeyGlob != "" {
		matched, err := filepath.Match(c.KeyGlob, e.Key)
		if err != nil || !matched {
			return false
		}
	}

	if c.Kind != "" && e.Kind != c.Kind {
		return false
	}

	if c.SendingRunID != "" && e.SendingRunID != c.SendingRunID {
		return false
	}

	return true
}

// HasFilters returns true if any filters are active.
func (c *Criteria) HasFilters() bool {
	return !c.Since.IsZero() ||
		!c.Until.IsZero() ||
		c.KeyGlob != "" ||
		c.Kind != "" ||
		c.SendingRunID != ""
}
