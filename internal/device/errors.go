package device

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a named device does not exist
	ErrNotFound = errors.New("device not found")
	// ErrUnsupported is returned for operations a device or category cannot perform
	ErrUnsupported = errors.New("operation not supported")
)

// AccessorReadError is returned when reading one device's current value fails.
// Pollers recover from it locally: the device keeps its last known value.
type AccessorReadError struct {
	Category Category
	Device   string
	Err      error
}

// Error implements the error interface
func (e *AccessorReadError) Error() string {
	return fmt.Sprintf("read %s %s: %v", e.Category, e.Device, e.Err)
}

// Unwrap returns the underlying error for error chain inspection
func (e *AccessorReadError) Unwrap() error {
	return e.Err
}

// AccessorWriteError is returned when a user edit could not be applied.
type AccessorWriteError struct {
	Category Category
	Device   string
	Op       string // e.g. "set period"
	Err      error
}

// Error implements the error interface
func (e *AccessorWriteError) Error() string {
	return fmt.Sprintf("%s on %s %s: %v", e.Op, e.Category, e.Device, e.Err)
}

// Unwrap returns the underlying error for error chain inspection
func (e *AccessorWriteError) Unwrap() error {
	return e.Err
}
