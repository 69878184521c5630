package adapter

import (
	"context"

	"analysis-gateway/internal/domain/model"
)

// JobClient is the port for the external conversational-analysis backend.
// Errors wrap domain.ErrUpstreamUnavailable (network, 5xx) or
// domain.ErrUpstreamRejected (4xx).
type JobClient interface {
	// Open creates a new conversation context for the given type.
	Open(ctx context.Context, t model.AnalysisType) (string, error)

	// Submit appends the input text to a context. Must precede Start.
	Submit(ctx context.Context, contextID, text string) error

	// Start launches a job bound to the type's configured assistant.
	Start(ctx context.Context, contextID string, t model.AnalysisType) (string, error)

	// Poll reports the job's current status. Never cached.
	Poll(ctx context.Context, contextID, jobID string) (model.JobStatus, error)

	// FetchResult returns the first assistant-authored message of the context.
	// Returns domain.ErrNoResult when there is none.
	FetchResult(ctx context.Context, contextID string) (string, error)
}
