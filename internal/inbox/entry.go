package inbox

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/dyluth/parley/pkg/runinput"
)

// Kind classifies a run input record by its key.
type Kind string

const (
	KindKeyset   Kind = "keyset"   // the run's published SendInputKeyset
	KindSchema   Kind = "schema"   // a saved schema document
	KindResponse Kind = "response" // a direct response to a pause
	KindEnvelope Kind = "envelope" // a value sent by Send
	KindOther    Kind = "other"
)

// Entry is a record annotated for display.
type Entry struct {
	Key          string          `json:"key"`
	RunID        string          `json:"run_id"`
	Kind         Kind            `json:"kind"`
	SendingRunID string          `json:"sending_run_id,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	Value        json.RawMessage `json:"value"`
}

// NewEntry classifies a record. Envelope values are unwrapped so Value is
// always the payload itself.
func NewEntry(r runinput.Record) Entry {
	e := Entry{
		Key:       r.Key,
		RunID:     r.RunID,
		Kind:      KindOther,
		CreatedAt: r.CreatedAt,
		Value:     r.Value,
	}

	switch {
	case r.Key == runinput.ReservedKeysetKey:
		e.Kind = KindKeyset
	case strings.HasSuffix(r.Key, "-schema"):
		e.Kind = KindSchema
	case strings.HasSuffix(r.Key, "-response"):
		e.Kind = KindResponse
	case strings.Contains(r.Key, "-response-"):
		var wire struct {
			Value        json.RawMessage `json:"value"`
			SendingRunID *string         `json:"sending_flow_run_id"`
		}
		if err := json.Unmarshal(r.Value, &wire); err == nil && len(wire.Value) > 0 {
			e.Kind = KindEnvelope
			e.Value = wire.Value
			if wire.SendingRunID != nil {
				e.SendingRunID = *wire.SendingRunID
			}
		}
	}

	return e
}
