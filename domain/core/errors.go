package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Caller errors
	ErrUnknownDataset = errors.New("unknown dataset")
	ErrNoDatasets     = errors.New("no datasets requested")

	// Load errors
	ErrLoadInFlight  = errors.New("load already in flight")
	ErrNotLoaded     = errors.New("snapshot not loaded")
	ErrDatasetFailed = errors.New("dataset failed to load")

	// Payload errors
	ErrRowLength       = errors.New("row length does not match header count")
	ErrDuplicateHeader = errors.New("duplicate header")
	ErrMissingHeaders  = errors.New("missing header list")
)

// Error constructors with context
func NewUnknownDatasetError(name string) error {
	return fmt.Errorf("%w: %q", ErrUnknownDataset, name)
}

func NewRowLengthError(row, got, want int) error {
	return fmt.Errorf("%w: row %d has %d cells, want %d", ErrRowLength, row, got, want)
}

func NewDatasetFailedError(name, reason string) error {
	return fmt.Errorf("%w: %s: %s", ErrDatasetFailed, name, reason)
}

// Error checking helpers
func IsCallerError(err error) bool {
	return errors.Is(err, ErrUnknownDataset) || errors.Is(err, ErrNoDatasets)
}

func IsShapeError(err error) bool {
	return errors.Is(err, ErrRowLength) ||
		errors.Is(err, ErrDuplicateHeader) ||
		errors.Is(err, ErrMissingHeaders)
}
