package repositories

import (
	"time"

	"github.com/sesamyab/audiopipeline/modules/processing/domain/repositories"
)

// stepLogModel is the GORM row shape for the Step Kernel's durable output
// log, one row per (workflow_id, step_name).
type stepLogModel struct {
	WorkflowID   string `gorm:"column:workflow_id;primaryKey"`
	StepName     string `gorm:"column:step_name;primaryKey"`
	Status       string `gorm:"column:status;not null"`
	OutputJSON   []byte `gorm:"column:output_json;type:jsonb"`
	ErrorMessage string `gorm:"column:error_message;type:text"`
	CompletedAt  time.Time `gorm:"column:completed_at"`
}

func (stepLogModel) TableName() string {
	return "step_logs"
}

func toModel(r *repositories.StepRecord) *stepLogModel {
	return &stepLogModel{
		WorkflowID:   r.WorkflowID,
		StepName:     r.StepName,
		Status:       string(r.Status),
		OutputJSON:   r.OutputJSON,
		ErrorMessage: r.ErrorMessage,
		CompletedAt:  r.CompletedAt,
	}
}

func (m *stepLogModel) toDomain() *repositories.StepRecord {
	return &repositories.StepRecord{
		WorkflowID:   m.WorkflowID,
		StepName:     m.StepName,
		Status:       repositories.StepStatus(m.Status),
		OutputJSON:   m.OutputJSON,
		ErrorMessage: m.ErrorMessage,
		CompletedAt:  m.CompletedAt,
	}
}
