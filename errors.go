package jsonasset

import (
	"errors"
	"fmt"
)

var (
	// ErrNoLocation is returned when an operation needs a path and none resolves.
	ErrNoLocation = errors.New("jsonasset: no location")
	// ErrNilValue is returned when an asset has no payload to encode.
	ErrNilValue = errors.New("jsonasset: asset value is nil")
)

// DecodeError reports text that could not be applied to an asset.
type DecodeError struct {
	Asset string
	Path  string
	Err   error
}

func (e *DecodeError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Path == "" {
		return fmt.Sprintf("jsonasset: decode %s: %v", e.Asset, e.Err)
	}
	return fmt.Sprintf("jsonasset: decode %s (%s): %v", e.Asset, e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// panicError converts a recovered value into an error.
func panicError(recovered any) error {
	if err, ok := recovered.(error); ok {
		return fmt.Errorf("jsonasset: panic: %w", err)
	}
	return fmt.Errorf("jsonasset: panic: %v", recovered)
}
