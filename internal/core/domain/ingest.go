package domain

import "time"

// IngestRunStatus is the lifecycle state of an ingestion run.
type IngestRunStatus string

const (
	IngestRunning   IngestRunStatus = "running"
	IngestCompleted IngestRunStatus = "completed"
	IngestFailed    IngestRunStatus = "failed"
)

// KindStats counts per-kind ingestion outcomes.
type KindStats struct {
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// Add accumulates another stats value.
func (s *KindStats) Add(other KindStats) {
	s.Succeeded += other.Succeeded
	s.Failed += other.Failed
	s.Skipped += other.Skipped
}

// IngestRun is the ledger record for one ingestion run.
type IngestRun struct {
	ID          string                     `json:"id"`
	StartedAt   time.Time                  `json:"started_at"`
	CompletedAt *time.Time                 `json:"completed_at,omitempty"`
	Status      IngestRunStatus            `json:"status"`
	Stats       map[DocumentKind]KindStats `json:"stats"`
	Error       string                     `json:"error,omitempty"`
}

// BatchFailure identifies one document that failed within a bulk call.
type BatchFailure struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// BatchResult reports the outcome of one bounded batch submission.
// A partial failure surfaces exactly which documents failed without
// discarding the rest.
type BatchResult struct {
	Kind      DocumentKind   `json:"kind"`
	Succeeded int            `json:"succeeded"`
	Failed    []BatchFailure `json:"failed,omitempty"`
	Err       error          `json:"-"`
}
