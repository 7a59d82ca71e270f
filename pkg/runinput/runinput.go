package runinput

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
)

// RunInput binds a Go type T to a closed schema registered under a declared
// name. The name identifies the input type across runs: it selects the entry
// in a recipient's SendInputKeyset.
//
// A RunInput is immutable; WithInitialData returns a new one.
type RunInput[T any] struct {
	schema *Schema
}

// Define derives the schema of struct type T by reflection.
func Define[T any](name string) (*RunInput[T], error) {
	schema, err := SchemaOf[T](name)
	if err != nil {
		return nil, err
	}
	return &RunInput[T]{schema: schema}, nil
}

// MustDefine is like Define but panics on error. Intended for package-level
// declarations.
func MustDefine[T any](name string) *RunInput[T] {
	in, err := Define[T](name)
	if err != nil {
		panic(err)
	}
	return in
}

// FromSchema binds T to an explicitly built schema. Use it for dynamic types
// such as map[string]any where reflection cannot see the fields.
func FromSchema[T any](schema *Schema) *RunInput[T] {
	return &RunInput[T]{schema: schema}
}

// Name returns the declared input type name.
func (ri *RunInput[T]) Name() string {
	return ri.schema.Name()
}

// Schema returns the schema descriptor.
func (ri *RunInput[T]) Schema() *Schema {
	return ri.schema
}

// WithInitialData returns a new RunInput whose fields default to the given
// values, e.g. to pre-fill a form shown to a human.
func (ri *RunInput[T]) WithInitialData(defaults map[string]any) (*RunInput[T], error) {
	schema, err := ri.schema.WithDefaults(defaults)
	if err != nil {
		return nil, err
	}
	return &RunInput[T]{schema: schema}, nil
}

// Save stores the schema document under keyset.Schema for the target run
// (the client's run when targetRun is empty).
func (ri *RunInput[T]) Save(ctx context.Context, c *Client, keyset Keyset, targetRun string) error {
	return c.CreateInput(ctx, keyset.Schema, ri.schema.Document(), targetRun)
}

// Load reads the value stored under keyset.Response for the target run and
// validates it against the schema.
func (ri *RunInput[T]) Load(ctx context.Context, c *Client, keyset Keyset, targetRun string) (T, error) {
	var zero T

	raw, err := c.ReadInput(ctx, keyset.Response, targetRun)
	if err != nil {
		return zero, err
	}
	return ri.Decode(raw)
}

// Decode validates a raw payload and decodes it into T. This is the trust
// boundary for delivered values.
func (ri *RunInput[T]) Decode(raw []byte) (T, error) {
	var out T

	normalized, err := ri.schema.Validate(raw)
	if err != nil {
		return out, err
	}

	data, err := json.Marshal(normalized)
	if err != nil {
		return out, fmt.Errorf("failed to re-encode %s: %w", ri.Name(), err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		return out, &ValidationError{Schema: ri.Name(), Problems: []FieldError{{Message: err.Error()}}}
	}
	return out, nil
}

// Encode JSON-encodes value and checks it against the schema.
func (ri *RunInput[T]) Encode(value T) ([]byte, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", ri.Name(), err)
	}
	if _, err := ri.schema.Validate(data); err != nil {
		return nil, err
	}
	return data, nil
}
