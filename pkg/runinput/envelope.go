package runinput

import (
	"encoding/json"
	"fmt"
)

// Envelope is a delivered input together with the run that sent it.
// SendingRunID is empty when the sender was not inside a run.
type Envelope[T any] struct {
	Value        T
	SendingRunID string

	// Key is the store key the envelope was read from. Not part of the wire form.
	Key string
}

// HasSender reports whether the envelope was sent from inside a run.
func (e *Envelope[T]) HasSender() bool {
	return e.SendingRunID != ""
}

// envelopeWire is the stored form. Unknown envelope fields are ignored; the
// inner value is validated separately against its closed schema.
type envelopeWire struct {
	Value        json.RawMessage `json:"value"`
	SendingRunID *string         `json:"sending_flow_run_id"`
}

func encodeEnvelope(value []byte, sendingRunID string) ([]byte, error) {
	wire := envelopeWire{Value: value}
	if sendingRunID != "" {
		wire.SendingRunID = &sendingRunID
	}
	data, err := json.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal envelope: %w", err)
	}
	return data, nil
}

func decodeEnvelope[T any](ri *RunInput[T], key string, raw []byte) (*Envelope[T], error) {
	var wire envelopeWire
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, &ValidationError{Schema: ri.Name(), Problems: []FieldError{{Message: fmt.Sprintf("malformed envelope: %v", err)}}}
	}
	if len(wire.Value) == 0 || string(wire.Value) == "null" {
		return nil, &ValidationError{Schema: ri.Name(), Problems: []FieldError{{Field: "value", Message: "field required"}}}
	}

	value, err := ri.Decode(wire.Value)
	if err != nil {
		return nil, err
	}

	env := &Envelope[T]{Value: value, Key: key}
	if wire.SendingRunID != nil {
		env.SendingRunID = *wire.SendingRunID
	}
	return env, nil
}
