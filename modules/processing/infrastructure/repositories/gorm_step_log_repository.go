package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/sesamyab/audiopipeline/modules/processing/domain/repositories"
	"github.com/sesamyab/audiopipeline/seedwork/infrastructure/database"
)

// GormStepLogRepository implements StepLogRepository using GORM, mirroring
// gorm_transcription_repository.go's shape.
type GormStepLogRepository struct {
	db *gorm.DB
}

// NewGormStepLogRepository creates a new GORM step log repository.
func NewGormStepLogRepository() *GormStepLogRepository {
	return &GormStepLogRepository{db: database.GetDB()}
}

func (r *GormStepLogRepository) Find(ctx context.Context, workflowID, stepName string) (*repositories.StepRecord, error) {
	var m stepLogModel
	err := r.db.WithContext(ctx).
		Where("workflow_id = ? AND step_name = ?", workflowID, stepName).
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return m.toDomain(), nil
}

func (r *GormStepLogRepository) Save(ctx context.Context, record *repositories.StepRecord) error {
	m := toModel(record)
	return r.db.WithContext(ctx).
		Where("workflow_id = ? AND step_name = ?", m.WorkflowID, m.StepName).
		Assign(m).
		FirstOrCreate(m).Error
}
