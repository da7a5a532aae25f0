package entities

import (
	"time"

	"github.com/sesamyab/audiopipeline/seedwork/domain"
)

// TaskStatus is the lifecycle state of one pipeline run as seen by the
// outside world. Transitions: queued -> processing -> {done, failed}.
type TaskStatus string

const (
	TaskQueued     TaskStatus = "queued"
	TaskProcessing TaskStatus = "processing"
	TaskDone       TaskStatus = "done"
	TaskFailed     TaskStatus = "failed"
)

// Task is a general-purpose async-work record, used by any bounded context
// that needs to report progress and a terminal result to the outside world.
// It generalizes the shape previously carried by a meeting-transcription
// specific processing job: same status machine, same retry-count field.
type Task struct {
	domain.BaseEntity
	Kind       string                 `json:"kind" gorm:"column:kind;not null"`
	OwnerID    string                 `json:"owner_id,omitempty" gorm:"column:owner_id"`
	Status     TaskStatus             `json:"status" gorm:"column:status;not null"`
	Step       string                 `json:"step,omitempty" gorm:"column:step"`
	Progress   int                    `json:"progress" gorm:"column:progress;default:0"`
	Message    string                 `json:"message,omitempty" gorm:"column:message"`
	Payload    map[string]interface{} `json:"payload" gorm:"column:payload;type:jsonb"`
	Result     map[string]interface{} `json:"result,omitempty" gorm:"column:result;type:jsonb"`
	RetryCount int                    `json:"retry_count" gorm:"column:retry_count;default:0"`
	StartedAt  *time.Time             `json:"started_at,omitempty" gorm:"column:started_at"`
	EndedAt    *time.Time             `json:"ended_at,omitempty" gorm:"column:ended_at"`
}

// NewTask creates a new Task entity in the queued state.
func NewTask(kind, ownerID string, payload map[string]interface{}) Task {
	if payload == nil {
		payload = make(map[string]interface{})
	}
	t := Task{
		Kind:    kind,
		OwnerID: ownerID,
		Status:  TaskQueued,
		Payload: payload,
	}
	t.SetID(domain.GenerateID())
	return t
}

// IsTerminal reports whether the task has reached a sticky terminal state.
func (t *Task) IsTerminal() bool {
	return t.Status == TaskDone || t.Status == TaskFailed
}

// SetStatus applies a status transition, enforcing invariant I5: a task
// never moves out of done or failed, and only processing->processing,
// processing->done, and any non-terminal->failed are otherwise allowed.
// An illegal transition is a no-op that returns false.
func (t *Task) SetStatus(next TaskStatus) bool {
	if t.IsTerminal() {
		return false
	}
	switch next {
	case TaskProcessing:
		if t.Status != TaskQueued && t.Status != TaskProcessing {
			return false
		}
	case TaskDone:
		if t.Status != TaskProcessing {
			return false
		}
	case TaskFailed:
		// any non-terminal -> failed is allowed
	case TaskQueued:
		return false
	}

	now := time.Now()
	if next == TaskProcessing && t.StartedAt == nil {
		t.StartedAt = &now
	}
	if next == TaskDone || next == TaskFailed {
		t.EndedAt = &now
	}
	t.Status = next
	return true
}

// UpdateProgress records a best-effort progress nudge. It never changes
// status and is safe to call regardless of the task's current state.
func (t *Task) UpdateProgress(step string, percent int, message string) {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	t.Step = step
	t.Progress = percent
	if message != "" {
		t.Message = message
	}
}

// SetResult overwrites the task's result fragment. Last writer wins across
// steps, per the Progress Reporter's overwrite policy.
func (t *Task) SetResult(result map[string]interface{}) {
	t.Result = result
}

// TableName sets the table name for GORM.
func (Task) TableName() string {
	return "tasks"
}
