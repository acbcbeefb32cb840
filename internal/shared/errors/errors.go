// Package errors holds the sentinel errors shared across packages.
package errors

import "errors"

// Domain errors
var (
	// Input errors
	ErrNoURLs       = errors.New("no urls to check")
	ErrEmptyTarget  = errors.New("target cannot be empty")
	ErrInvalidInput = errors.New("invalid input")

	// Output errors
	ErrInvalidOutputFormat = errors.New("output format must be csv, json or both")
	ErrMissingBucket       = errors.New("no storage bucket configured")
)
