// Package domain provides domain-specific error definitions and utilities.
package domain

import "errors"

// Repository-related errors.
var (
	ErrRepositoryNotFound = errors.New("repository not found")
	ErrCloneFailed        = errors.New("repository clone failed")
)

// Job-related errors.
var (
	ErrJobNotFound      = errors.New("vectorization job not found")
	ErrJobAlreadyExists = errors.New("vectorization job already exists")
	ErrJobTerminal      = errors.New("vectorization job is in a terminal state")
)

// Embedding-related errors.
var (
	ErrEmbeddingBatchFailed = errors.New("embedding batch failed")
	ErrEmbeddingUnavailable = errors.New("embedding provider unavailable")
)

// General domain errors.
var (
	ErrInvalidInput = errors.New("invalid input")
)
