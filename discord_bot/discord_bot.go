package discord_bot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"novelai_bot/clock"
	"novelai_bot/command_parser"
	"novelai_bot/logging"
	"novelai_bot/nl_processor"
	"novelai_bot/novelai_api"
	"novelai_bot/repositories/access_policies"
	"novelai_bot/repositories/generation_records"
	"novelai_bot/repositories/member_settings"
	"novelai_bot/request_queue"
)

type botImpl struct {
	session           *discordgo.Session
	parser            command_parser.Parser
	client            novelai_api.NovelAIAPI
	nlProcessor       nl_processor.Processor
	accessPolicies    access_policies.Repository
	generationRecords generation_records.Repository
	memberSettings    member_settings.Repository
	queue             request_queue.Queue[*generationTask]
	logger            *logging.Logger
	clk               clock.Clock
	httpClient        *http.Client

	adminUserIDs          map[string]struct{}
	defaultModel          string
	qualityWords          string
	nlQualityOverride     string
	nlNegativeOverride    string
	imageSavePath         string
	guildWhitelistEnabled bool
}

type Config struct {
	BotToken          string
	Parser            command_parser.Parser
	NovelAIAPI        novelai_api.NovelAIAPI
	AccessPolicies    access_policies.Repository
	GenerationRecords generation_records.Repository
	MemberSettings    member_settings.Repository
	Logger            *logging.Logger

	// NLProcessor is optional; without it /nainl reports that the feature
	// is disabled.
	NLProcessor nl_processor.Processor

	// Clock defaults to the wall clock.
	Clock clock.Clock

	AdminUserIDs          []string
	DefaultModel          string
	QualityWords          string
	NLQualityOverride     string
	NLNegativeOverride    string
	ImageSavePath         string
	GuildWhitelistEnabled bool
	QueueMinDelay         time.Duration
	QueueMaxDelay         time.Duration
}

func New(cfg Config) (Bot, error) {
	if cfg.BotToken == "" {
		return nil, errors.New("missing bot token")
	}

	if cfg.Parser == nil {
		return nil, errors.New("missing command parser")
	}

	if cfg.NovelAIAPI == nil {
		return nil, errors.New("missing NovelAI API client")
	}

	if cfg.AccessPolicies == nil {
		return nil, errors.New("missing access policies repo")
	}

	if cfg.GenerationRecords == nil {
		return nil, errors.New("missing generation records repo")
	}

	if cfg.MemberSettings == nil {
		return nil, errors.New("missing member settings repo")
	}

	if cfg.Logger == nil {
		return nil, errors.New("missing logger")
	}

	if cfg.ImageSavePath == "" {
		return nil, errors.New("missing image save path")
	}

	if !novelai_api.IsSupportedModel(cfg.DefaultModel) {
		return nil, fmt.Errorf("unsupported default model: %q", cfg.DefaultModel)
	}

	botClock := cfg.Clock
	if botClock == nil {
		botClock = clock.NewClock()
	}

	session, err := discordgo.New("Bot " + cfg.BotToken)
	if err != nil {
		return nil, err
	}

	session.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentMessageContent

	admins := make(map[string]struct{}, len(cfg.AdminUserIDs))
	for _, id := range cfg.AdminUserIDs {
		admins[id] = struct{}{}
	}

	bot := &botImpl{
		session:           session,
		parser:            cfg.Parser,
		client:            cfg.NovelAIAPI,
		nlProcessor:       cfg.NLProcessor,
		accessPolicies:    cfg.AccessPolicies,
		generationRecords: cfg.GenerationRecords,
		memberSettings:    cfg.MemberSettings,
		logger:            cfg.Logger,
		clk:               botClock,
		httpClient:        &http.Client{Timeout: 60 * time.Second},

		adminUserIDs:          admins,
		defaultModel:          cfg.DefaultModel,
		qualityWords:          cfg.QualityWords,
		nlQualityOverride:     cfg.NLQualityOverride,
		nlNegativeOverride:    cfg.NLNegativeOverride,
		imageSavePath:         cfg.ImageSavePath,
		guildWhitelistEnabled: cfg.GuildWhitelistEnabled,
	}

	queue, err := request_queue.New(request_queue.Config[*generationTask]{
		Handler:      bot.processTask,
		ErrorHandler: bot.onTaskError,
		MinDelay:     cfg.QueueMinDelay,
		MaxDelay:     cfg.QueueMaxDelay,
	})
	if err != nil {
		return nil, fmt.Errorf("creating request queue: %w", err)
	}

	bot.queue = queue

	session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		bot.logger.Info("logged in",
			zap.String("username", s.State.User.Username),
			zap.String("discriminator", s.State.User.Discriminator))
	})
	session.AddHandler(bot.onMessageCreate)

	return bot, nil
}

func (b *botImpl) Start() error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("opening discord session: %w", err)
	}

	b.queue.Start()
	b.logger.Info("bot started")

	return nil
}

func (b *botImpl) Stop() error {
	b.queue.Stop()

	if err := b.session.Close(); err != nil {
		return fmt.Errorf("closing discord session: %w", err)
	}

	b.logger.Info("bot stopped")

	return nil
}

func (b *botImpl) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	if s.State.User != nil && m.Author.ID == s.State.User.ID {
		return
	}

	content := strings.TrimSpace(m.Content)

	switch {
	case content == "/naihelp" || content == "/nai帮助":
		b.handleHelp(m)
	case strings.HasPrefix(content, "/nai白名单"):
		b.handleWhitelist(m, content)
	case strings.HasPrefix(content, "/nai限额"):
		b.handleQuotaSet(m, content)
	case strings.HasPrefix(content, "/nai群白名单"):
		b.handleGuildWhitelist(m, content)
	case strings.HasPrefix(content, "/nai默认模型"):
		b.handleDefaultModel(m, content)
	case strings.HasPrefix(content, "/nai记录"):
		b.handleRecords(m, content)
	case strings.HasPrefix(content, "/nai信息"):
		b.handleInfo(m)
	case strings.HasPrefix(content, "/nainl"):
		b.handleGenerateNL(m, content)
	case strings.HasPrefix(content, "/nai"):
		b.handleGenerate(m, content)
	}
}

// guildAllowed applies the guild whitelist to guild messages. Denials are
// silent: the bot must not advertise itself in guilds it is not cleared for.
func (b *botImpl) guildAllowed(ctx context.Context, m *discordgo.MessageCreate) bool {
	if m.GuildID == "" || !b.guildWhitelistEnabled {
		return true
	}

	allowed, err := b.accessPolicies.IsGuildAllowed(ctx, m.GuildID)
	if err != nil {
		b.logger.Error("guild whitelist lookup failed",
			zap.String("guild_id", m.GuildID),
			zap.Error(err))
		return false
	}

	return allowed
}

func (b *botImpl) isAdmin(userID string) bool {
	_, ok := b.adminUserIDs[userID]
	return ok
}

func (b *botImpl) reply(channelID, text string) {
	if _, err := b.session.ChannelMessageSend(channelID, text); err != nil {
		b.logger.Warn("sending message failed",
			zap.String("channel_id", channelID),
			zap.Error(err))
	}
}

func mention(userID string) string {
	return fmt.Sprintf("<@%s>", userID)
}
