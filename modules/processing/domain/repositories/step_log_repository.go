package repositories

import (
	"context"
	"time"
)

// StepStatus is the terminal state of one (workflowId, stepName) attempt, as
// persisted by the Step Kernel.
type StepStatus string

const (
	StepSucceeded StepStatus = "succeeded"
	StepFailed    StepStatus = "failed"
)

// StepRecord is one row of the Step Kernel's durable output log, keyed by
// (workflowId, stepName). OutputJSON is the step's typed output, marshaled
// once at the step boundary so downstream code never carries untyped
// payloads between steps.
type StepRecord struct {
	WorkflowID   string
	StepName     string
	Status       StepStatus
	OutputJSON   []byte
	ErrorMessage string
	CompletedAt  time.Time
}

// StepLogRepository persists Step Kernel output, one row per
// (workflowId, stepName). A successful row is never re-executed on replay
// (P7); a failed row is eligible for re-execution on the next run of the
// pipeline for the same workflowId.
type StepLogRepository interface {
	Find(ctx context.Context, workflowID, stepName string) (*StepRecord, error)
	Save(ctx context.Context, record *StepRecord) error
}
