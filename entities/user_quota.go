package entities

import "time"

// UserQuota is a whitelisted user together with their daily generation
// allowance. LastReset holds the date (YYYY-MM-DD) Remaining was last
// refilled on.
type UserQuota struct {
	UserID     string     `json:"user_id"`
	Nickname   string     `json:"nickname,omitempty"`
	DailyLimit int        `json:"daily_limit"`
	Remaining  int        `json:"remaining"`
	LastReset  string     `json:"last_reset"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// WhitelistedGuild is a guild cleared for bot usage.
type WhitelistedGuild struct {
	GuildID   string    `json:"guild_id"`
	Name      string    `json:"name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
