package domain

import (
	"errors"
	"fmt"
)

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInvalidExecContext = errors.New("invalid execution context")

	// Request / auth
	ErrInvalidRequest     = errors.New("invalid request")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrQuotaExceeded      = errors.New("request quota exceeded")

	// Upstream backend
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrUpstreamRejected    = errors.New("upstream rejected request")
	ErrJobFailed           = errors.New("job failed")
	ErrJobTimeout          = errors.New("job timed out")
	ErrNoResult            = errors.New("no result from assistant")
	ErrContextGone         = errors.New("conversation context no longer exists")
)

// JobFailedError reports a job that reached a terminal status other than succeeded.
type JobFailedError struct {
	Status string
}

func (e *JobFailedError) Error() string {
	return fmt.Sprintf("job failed with status: %s", e.Status)
}

func (e *JobFailedError) Is(target error) bool { return target == ErrJobFailed }

// BatchError carries the analysis type whose job failed first.
type BatchError struct {
	Type string
	Err  error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("%s analysis: %v", e.Type, e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }
