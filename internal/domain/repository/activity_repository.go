package repository

import (
	"context"

	"wallet-orchestrator/internal/domain/entity"
)

// ActivityRepository persists the outcome of submitted action stages.
type ActivityRepository interface {
	Save(ctx context.Context, record entity.ActivityRecord) error
	List(ctx context.Context, limit int) ([]entity.ActivityRecord, error)
}
