package quantization

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientData is returned by Train when the training set has
	// fewer points than the per-subspace codebook size.
	ErrInsufficientData = errors.New("insufficient training data")

	// ErrNotTrained is returned when encoding, decoding or code arithmetic
	// is attempted before Train or Load has populated the codebooks.
	ErrNotTrained = errors.New("product quantizer not trained")

	// ErrInvalidShape is returned by Load when the stream's shape metadata
	// is non-positive or mutually inconsistent.
	ErrInvalidShape = errors.New("invalid shape metadata")

	// ErrCodeOutOfRange is returned when a code index does not address a
	// full code within the given codes buffer.
	ErrCodeOutOfRange = errors.New("code index out of range")
)

// ErrDimensionMismatch indicates a vector or buffer length mismatch.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
	cause    error
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

func (e *ErrDimensionMismatch) Unwrap() error { return e.cause }
