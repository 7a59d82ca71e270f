package runinput

import (
	"fmt"
	"strings"
)

// ReservedKeysetKey is the per-run key under which a run publishes its
// SendInputKeyset so senders can discover its channels.
const ReservedKeysetKey = "keyset"

// Keyset addresses one input channel: delivered values live under Response
// (or under keys prefixed by it), the registered schema under Schema.
type Keyset struct {
	Response string `json:"response"`
	Schema   string `json:"schema"`
}

// SendInputKeyset maps an input type name to its channel.
type SendInputKeyset map[string]Keyset

// Named is implemented by anything carrying a declared input type name.
type Named interface {
	Name() string
}

// KeysetFromBaseKey derives a keyset by fixed suffixing.
// Pattern: {base}-response, {base}-schema
func KeysetFromBaseKey(base string) Keyset {
	return Keyset{
		Response: fmt.Sprintf("%s-response", base),
		Schema:   fmt.Sprintf("%s-schema", base),
	}
}

// KeysetFromPausedState derives the private channel of one suspension.
// Pattern: {lower(state name)}-{pause key}
func KeysetFromPausedState(state RunState) (Keyset, error) {
	if !state.IsPaused() {
		return Keyset{}, &InvalidStateKindError{Type: state.Type}
	}
	base := fmt.Sprintf("%s-%s", strings.ToLower(state.Name), state.PauseKey)
	return KeysetFromBaseKey(base), nil
}

// SendInputKeysetFromRunInputs derives one keyset per declared input type,
// keyed by the declared name. Names that collide case-insensitively would share
// a channel and are rejected.
func SendInputKeysetFromRunInputs(inputs ...Named) (SendInputKeyset, error) {
	keysets := make(SendInputKeyset, len(inputs))
	seen := make(map[string]string, len(inputs)) // lower(name) → name

	for _, in := range inputs {
		name := in.Name()
		base := strings.ToLower(name)
		if prev, ok := seen[base]; ok {
			if prev == name {
				continue
			}
			return nil, &KeysetCollisionError{First: prev, Second: name}
		}
		seen[base] = name
		keysets[name] = KeysetFromBaseKey(base)
	}

	return keysets, nil
}
