package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"novelai_bot/logging"
	"novelai_bot/novelai_api"
)

// DefaultPath is where Load looks when no -config flag is given.
const DefaultPath = "config.yaml"

// QueueConfig paces the generation worker between requests.
type QueueConfig struct {
	MinDelaySeconds float64 `yaml:"min_delay_seconds"`
	MaxDelaySeconds float64 `yaml:"max_delay_seconds"`
}

// PromptTemplates are the LLM prompts used by the natural language
// preprocessor. Each template receives the user input via {user_input}.
type PromptTemplates struct {
	DetailCheck string `yaml:"detail_check"`
	Expand      string `yaml:"expand"`
	Translate   string `yaml:"translate"`
}

// NLConfig enables the /nainl natural language command when present.
type NLConfig struct {
	Provider               string          `yaml:"llm_provider"`
	APIKey                 string          `yaml:"api_key"`
	BaseURL                string          `yaml:"base_url"`
	Models                 []string        `yaml:"models"`
	TimeoutSeconds         int             `yaml:"timeout"`
	HTTPReferer            string          `yaml:"http_referer"`
	XTitle                 string          `yaml:"x_title"`
	QualityWordsOverride   string          `yaml:"quality_words_override"`
	NegativePresetOverride string          `yaml:"negative_preset_override"`
	PromptTemplates        PromptTemplates `yaml:"prompt_templates"`
}

type Config struct {
	DefaultModel          string         `yaml:"default_model"`
	ImageSavePath         string         `yaml:"image_save_path"`
	DefaultDailyLimit     int            `yaml:"default_daily_limit"`
	AdminUserIDs          []string       `yaml:"admin_user_ids"`
	GuildWhitelistEnabled bool           `yaml:"guild_whitelist_enabled"`
	QualityWords          string         `yaml:"quality_words"`
	DatabasePath          string         `yaml:"database_path"`
	Proxy                 string         `yaml:"proxy"`
	RequestTimeoutSeconds int            `yaml:"request_timeout_seconds"`
	Queue                 QueueConfig    `yaml:"queue"`
	NL                    *NLConfig      `yaml:"nl_settings"`
	Logging               logging.Config `yaml:"logging"`

	// Secrets never live in the config file.
	DiscordToken     string `yaml:"-"`
	NovelAIToken     string `yaml:"-"`
	OpenRouterAPIKey string `yaml:"-"`
}

func defaults() *Config {
	return &Config{
		DefaultModel:          "nai-diffusion-4-5-curated",
		ImageSavePath:         "outputs",
		DefaultDailyLimit:     10,
		QualityWords:          "best quality, masterpiece",
		DatabasePath:          "novelai_bot.sqlite",
		RequestTimeoutSeconds: 180,
		Queue: QueueConfig{
			MinDelaySeconds: 3,
			MaxDelaySeconds: 5,
		},
		Logging: logging.Config{
			Level:      "info",
			Format:     "console",
			OutputPath: "stdout",
		},
	}
}

// Load reads the YAML config at path, fills unset fields with defaults, and
// pulls secrets from the environment (DISCORD_TOKEN, NOVELAI_TOKEN,
// OPENROUTER_API_KEY). A missing file is not an error; the defaults apply.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}

	cfg := defaults()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// Run on defaults; secrets still come from the environment.
	default:
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	cfg.DiscordToken = os.Getenv("DISCORD_TOKEN")
	cfg.NovelAIToken = os.Getenv("NOVELAI_TOKEN")
	cfg.OpenRouterAPIKey = os.Getenv("OPENROUTER_API_KEY")

	cfg.normalize()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) normalize() {
	if c.DefaultDailyLimit <= 0 {
		c.DefaultDailyLimit = 10
	}
	if c.RequestTimeoutSeconds <= 0 {
		c.RequestTimeoutSeconds = 180
	}
	if c.ImageSavePath == "" {
		c.ImageSavePath = "outputs"
	}
	if c.DatabasePath == "" {
		c.DatabasePath = "novelai_bot.sqlite"
	}

	if c.NL != nil {
		if c.NL.Provider == "" {
			c.NL.Provider = "openrouter"
		}
		if c.OpenRouterAPIKey != "" {
			c.NL.APIKey = c.OpenRouterAPIKey
		}
		if len(c.NL.Models) == 0 {
			c.NL.Models = []string{"openai/gpt-4o-mini"}
		}
		if c.NL.TimeoutSeconds <= 0 {
			c.NL.TimeoutSeconds = 30
		}
		if c.NL.PromptTemplates.DetailCheck == "" {
			c.NL.PromptTemplates.DetailCheck = defaultDetailCheckTemplate
		}
		if c.NL.PromptTemplates.Expand == "" {
			c.NL.PromptTemplates.Expand = defaultExpandTemplate
		}
		if c.NL.PromptTemplates.Translate == "" {
			c.NL.PromptTemplates.Translate = defaultTranslateTemplate
		}
	}
}

func (c *Config) validate() error {
	if !novelai_api.IsSupportedModel(c.DefaultModel) {
		return fmt.Errorf("unsupported default model: %q", c.DefaultModel)
	}

	if c.Queue.MinDelaySeconds < 0 {
		return fmt.Errorf("queue min delay must not be negative: %v", c.Queue.MinDelaySeconds)
	}
	if c.Queue.MaxDelaySeconds < c.Queue.MinDelaySeconds {
		return fmt.Errorf("queue max delay must not be below min delay: %v < %v",
			c.Queue.MaxDelaySeconds, c.Queue.MinDelaySeconds)
	}

	return nil
}
