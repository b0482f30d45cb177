// Package errs holds the sentinel errors shared by every stage of the
// artifact pipeline. Callers match them with errors.Is.
package errs

import "errors"

var (
	// ErrInvalidInput covers missing, empty or undecodable images and empty paths.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidArgument covers unknown algorithm ids, out-of-range
	// parameters and mismatched label or sample lengths.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrShapeMismatch is returned when two confusion matrices differ in dimension.
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrIOFailure wraps filesystem read and write failures.
	ErrIOFailure = errors.New("io failure")
)
