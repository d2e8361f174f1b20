package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"novelai_bot/clock"
	"novelai_bot/command_parser"
	"novelai_bot/config"
	"novelai_bot/databases/sqlite"
	"novelai_bot/discord_bot"
	"novelai_bot/logging"
	"novelai_bot/nl_processor"
	"novelai_bot/novelai_api"
	"novelai_bot/repositories/access_policies"
	"novelai_bot/repositories/generation_records"
	"novelai_bot/repositories/member_settings"
)

var (
	configPath = flag.String("config", config.DefaultPath, "Path to the YAML config file")
	envPath    = flag.String("env", ".env", "Path to an optional env file holding secrets")
)

func main() {
	flag.Parse()

	// Secrets may come from a local env file during development.
	_ = godotenv.Load(*envPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if cfg.DiscordToken == "" {
		log.Fatalf("DISCORD_TOKEN environment variable is required")
	}

	if cfg.NovelAIToken == "" {
		log.Fatalf("NOVELAI_TOKEN environment variable is required")
	}

	ctx := context.Background()

	sqliteDB, err := sqlite.New(ctx, sqlite.Config{
		Filename: cfg.DatabasePath,
		Logger:   logger,
	})
	if err != nil {
		log.Fatalf("Failed to create sqlite database: %v", err)
	}
	defer func() { _ = sqliteDB.Close() }()

	clk := clock.NewClock()

	accessPolicies, err := access_policies.NewRepository(&access_policies.Config{
		DB:                sqliteDB,
		Clock:             clk,
		DefaultDailyLimit: cfg.DefaultDailyLimit,
	})
	if err != nil {
		log.Fatalf("Failed to create access policy repository: %v", err)
	}

	generationRecords, err := generation_records.NewRepository(&generation_records.Config{
		DB:    sqliteDB,
		Clock: clk,
	})
	if err != nil {
		log.Fatalf("Failed to create generation record repository: %v", err)
	}

	memberSettings, err := member_settings.NewRepository(&member_settings.Config{DB: sqliteDB})
	if err != nil {
		log.Fatalf("Failed to create member settings repository: %v", err)
	}

	novelaiAPI, err := novelai_api.New(novelai_api.Config{
		Token:   cfg.NovelAIToken,
		Proxy:   cfg.Proxy,
		Timeout: time.Duration(cfg.RequestTimeoutSeconds) * time.Second,
		Logger:  logger,
	})
	if err != nil {
		log.Fatalf("Failed to create NovelAI client: %v", err)
	}

	parser, err := command_parser.New(command_parser.Config{Prefix: "/nai"})
	if err != nil {
		log.Fatalf("Failed to create command parser: %v", err)
	}

	nlProcessor := buildNLProcessor(cfg, parser, logger)

	var nlQualityOverride, nlNegativeOverride string
	if cfg.NL != nil {
		nlQualityOverride = cfg.NL.QualityWordsOverride
		nlNegativeOverride = cfg.NL.NegativePresetOverride
	}

	bot, err := discord_bot.New(discord_bot.Config{
		BotToken:              cfg.DiscordToken,
		Parser:                parser,
		NovelAIAPI:            novelaiAPI,
		AccessPolicies:        accessPolicies,
		GenerationRecords:     generationRecords,
		MemberSettings:        memberSettings,
		Logger:                logger,
		NLProcessor:           nlProcessor,
		Clock:                 clk,
		AdminUserIDs:          cfg.AdminUserIDs,
		DefaultModel:          cfg.DefaultModel,
		QualityWords:          cfg.QualityWords,
		NLQualityOverride:     nlQualityOverride,
		NLNegativeOverride:    nlNegativeOverride,
		ImageSavePath:         cfg.ImageSavePath,
		GuildWhitelistEnabled: cfg.GuildWhitelistEnabled,
		QueueMinDelay:         time.Duration(cfg.Queue.MinDelaySeconds * float64(time.Second)),
		QueueMaxDelay:         time.Duration(cfg.Queue.MaxDelaySeconds * float64(time.Second)),
	})
	if err != nil {
		log.Fatalf("Error creating Discord bot: %v", err)
	}

	if err := bot.Start(); err != nil {
		log.Fatalf("Error starting Discord bot: %v", err)
	}

	log.Println("Press Ctrl+C to exit")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	if err := bot.Stop(); err != nil {
		logger.Error("stopping bot", zap.Error(err))
	}

	log.Println("Gracefully shutting down.")
}

// buildNLProcessor wires the optional /nainl pipeline. Any problem with the
// natural language settings disables the feature instead of stopping the
// bot, since image generation works without it.
func buildNLProcessor(cfg *config.Config, parser command_parser.Parser, logger *logging.Logger) nl_processor.Processor {
	nl := cfg.NL
	if nl == nil {
		return nil
	}

	if nl.Provider != "openrouter" {
		logger.Warn("unsupported llm provider, natural language generation disabled",
			zap.String("provider", nl.Provider))
		return nil
	}

	if nl.APIKey == "" {
		logger.Warn("missing OpenRouter API key, natural language generation disabled")
		return nil
	}

	llm, err := nl_processor.NewOpenRouterClient(nl_processor.OpenRouterConfig{
		APIKey:      nl.APIKey,
		BaseURL:     nl.BaseURL,
		Models:      nl.Models,
		Timeout:     time.Duration(nl.TimeoutSeconds) * time.Second,
		Proxy:       cfg.Proxy,
		HTTPReferer: nl.HTTPReferer,
		XTitle:      nl.XTitle,
		Logger:      logger,
	})
	if err != nil {
		logger.Error("creating OpenRouter client failed, natural language generation disabled",
			zap.Error(err))
		return nil
	}

	processor, err := nl_processor.New(nl_processor.Config{
		LLM:    llm,
		Parser: parser,
		Templates: nl_processor.Templates{
			DetailCheck: nl.PromptTemplates.DetailCheck,
			Expand:      nl.PromptTemplates.Expand,
			Translate:   nl.PromptTemplates.Translate,
		},
		Logger: logger,
	})
	if err != nil {
		logger.Error("creating natural language processor failed, feature disabled",
			zap.Error(err))
		return nil
	}

	return processor
}
