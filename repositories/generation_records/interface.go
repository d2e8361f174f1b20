package generation_records

import (
	"context"

	"novelai_bot/entities"
)

type Repository interface {
	Create(ctx context.Context, record *entities.GenerationRecord) (*entities.GenerationRecord, error)
	Recent(ctx context.Context, limit int) ([]entities.GenerationRecord, error)
	CountByUser(ctx context.Context, userID string) (int, error)
}
