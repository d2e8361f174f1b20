package access_policies

import (
	"context"

	"novelai_bot/entities"
)

// Repository manages the user whitelist with daily quotas plus the guild
// whitelist. Quotas refill lazily: any read that notices a stale reset date
// refills Remaining before answering.
type Repository interface {
	IsWhitelisted(ctx context.Context, userID string) (bool, error)
	AddUser(ctx context.Context, userID string, dailyLimit int, nickname string) (*entities.UserQuota, error)
	RemoveUser(ctx context.Context, userID string) (bool, error)
	GetUser(ctx context.Context, userID string) (*entities.UserQuota, error)
	SetQuota(ctx context.Context, userID string, limit int, nickname string) (*entities.UserQuota, error)
	CheckQuota(ctx context.Context, userID string) (bool, error)
	ConsumeQuota(ctx context.Context, userID string) error

	IsGuildAllowed(ctx context.Context, guildID string) (bool, error)
	AddGuild(ctx context.Context, guildID, name string) (*entities.WhitelistedGuild, error)
	RemoveGuild(ctx context.Context, guildID string) (bool, error)
}
