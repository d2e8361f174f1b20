package member_settings

import (
	"context"

	"novelai_bot/entities"
)

type Repository interface {
	Upsert(ctx context.Context, settings *entities.MemberSettings) (*entities.MemberSettings, error)
	GetByMemberID(ctx context.Context, memberID string) (*entities.MemberSettings, error)
}
