package entities

import "time"

// GenerationRecord is one completed image generation.
type GenerationRecord struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	GuildID   string    `json:"guild_id,omitempty"`
	Model     string    `json:"model"`
	Seed      int64     `json:"seed"`
	Prompt    string    `json:"prompt"`
	FilePath  string    `json:"file_path"`
	LLMModel  string    `json:"llm_model,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
