package runinput

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned by stores when no record exists for a key.
	ErrNotFound = errors.New("run input not found")

	// ErrAlreadyExists is returned by stores when a key is written twice.
	// Delivered inputs are write-once.
	ErrAlreadyExists = errors.New("run input already exists")

	// ErrTimeout is returned by Poller.Next when no input arrived within the
	// configured timeout.
	ErrTimeout = errors.New("timed out waiting for run input")

	// ErrNoRun is returned when an operation needs a run id and neither the
	// caller nor the client supplied one.
	ErrNoRun = errors.New("no run id: pass a run id or configure the client with WithRunID")
)

// InvalidStateKindError indicates a keyset was requested for a state that is
// not paused.
type InvalidStateKindError struct {
	Type StateType
}

func (e *InvalidStateKindError) Error() string {
	return fmt.Sprintf("%q is unsupported: only paused states carry an input keyset", string(e.Type))
}

// UnknownInputTypeError indicates the recipient run never declared the input
// type in its published keyset.
type UnknownInputTypeError struct {
	Name  string
	RunID string
}

func (e *UnknownInputTypeError) Error() string {
	return fmt.Sprintf("run '%s' does not accept input type '%s'", e.RunID, e.Name)
}

// KeysetCollisionError indicates two input types whose names only differ by
// case, which would share one channel.
type KeysetCollisionError struct {
	First  string
	Second string
}

func (e *KeysetCollisionError) Error() string {
	return fmt.Sprintf("input types '%s' and '%s' derive the same keyset: names must differ case-insensitively", e.First, e.Second)
}

// FieldError describes one problem found while validating a payload.
type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) String() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError is returned when a payload does not satisfy a schema.
type ValidationError struct {
	Schema   string
	Problems []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		parts[i] = p.String()
	}
	return fmt.Sprintf("invalid %s: %s", e.Schema, strings.Join(parts, "; "))
}

// IsNotFound reports whether err means the requested record does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsTimeout reports whether err is a poll timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// IsValidationError reports whether err carries a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
