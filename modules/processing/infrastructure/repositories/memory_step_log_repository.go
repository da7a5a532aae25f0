package repositories

import (
	"context"
	"sync"

	"github.com/sesamyab/audiopipeline/modules/processing/domain/repositories"
)

// MemoryStepLogRepository is an in-memory StepLogRepository, used by the
// end-to-end scenario tests (including the crash-and-resume scenario: a
// fresh Kernel bound to the same repository instance simulates a restart).
type MemoryStepLogRepository struct {
	mu      sync.RWMutex
	records map[string]*repositories.StepRecord
}

// NewMemoryStepLogRepository creates a new in-memory step log repository.
func NewMemoryStepLogRepository() *MemoryStepLogRepository {
	return &MemoryStepLogRepository{records: make(map[string]*repositories.StepRecord)}
}

func key(workflowID, stepName string) string {
	return workflowID + "::" + stepName
}

func (r *MemoryStepLogRepository) Find(ctx context.Context, workflowID, stepName string) (*repositories.StepRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[key(workflowID, stepName)]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (r *MemoryStepLogRepository) Save(ctx context.Context, record *repositories.StepRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *record
	r.records[key(record.WorkflowID, record.StepName)] = &cp
	return nil
}
