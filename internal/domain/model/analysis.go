package model

import (
	"strings"
	"time"
)

// AnalysisType identifies one configured assistant, always lower-case.
type AnalysisType string

// NormalizeType lower-cases and trims a requested analysis type.
func NormalizeType(s string) AnalysisType {
	return AnalysisType(strings.ToLower(strings.TrimSpace(s)))
}

type JobStatus string

const (
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

func (s JobStatus) IsTerminal() bool { return s != JobStatusRunning }

// BatchRequest is one /analyze call. Types keep the caller's casing and order.
type BatchRequest struct {
	Text   string
	Types  []string
	Style  string
	Gender string
}

// BatchResult maps each requested type, as originally cased, to its analysis text.
type BatchResult struct {
	BatchID string
	Results map[string]string
	Quota   QuotaSnapshot
}

// AnalysisJob is the audit record written after every orchestrated job.
type AnalysisJob struct {
	ID         string
	BatchID    string
	UserID     int64
	Type       AnalysisType
	ContextID  string
	JobID      string
	Status     JobStatus
	LastError  string
	Polls      int
	StartedAt  time.Time
	FinishedAt time.Time
}
