package errors

import "errors"

// Sentinel errors for common error conditions
var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("resource not found")

	// ErrAlreadyExists indicates that a resource already exists
	ErrAlreadyExists = errors.New("resource already exists")

	// ErrInvalidInput indicates that input validation failed
	ErrInvalidInput = errors.New("invalid input")

	// ErrGeneration indicates the generation backend failed to produce a draft
	// (timeout, connection failure or malformed response)
	ErrGeneration = errors.New("generation failed")

	// ErrIndexNotInitialized indicates a vector index was used before EnsureIndex
	ErrIndexNotInitialized = errors.New("index not initialized")

	// ErrDimensionMismatch indicates a vector does not match the index dimension
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)
