package discord_bot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"novelai_bot/entities"
	"novelai_bot/image_tools"
	"novelai_bot/nl_processor"
	"novelai_bot/novelai_api"
	"novelai_bot/repositories"
)

var (
	autoQualityFlagPattern = regexp.MustCompile(`是否自动添加(?:质量词|提示词)[：:]\s*<([^>]+)>`)
	positivePairPattern    = regexp.MustCompile(`正面词条[：:]\s*<[^>]+>`)
)

// generationTask is one queued image request together with everything the
// worker needs to report back.
type generationTask struct {
	id        string
	payload   *novelai_api.Payload
	model     string
	seed      int64
	prompt    string
	llmModel  string
	userID    string
	username  string
	channelID string
	guildID   string
	messageID string
}

// Replies in guild channels are kept to parse feedback and the enqueue
// acknowledgement; everything else is only reported in direct messages.
func (b *botImpl) handleGenerate(m *discordgo.MessageCreate, content string) {
	ctx := context.Background()
	isGuild := m.GuildID != ""

	if !b.guildAllowed(ctx, m) {
		return
	}

	parsed, err := b.parser.Parse(content)
	if err != nil {
		b.reply(m.ChannelID, err.Error())
		return
	}

	model := b.resolveModel(ctx, parsed, m.Author.ID)
	if !novelai_api.IsSupportedModel(model) {
		if !isGuild {
			b.reply(m.ChannelID, "模型参数无效")
		}
		return
	}

	if !b.permitUser(ctx, m, isGuild) {
		return
	}

	baseImage, characterReference, err := b.resolveImages(m, parsed)
	if err != nil {
		if !isGuild {
			b.reply(m.ChannelID, err.Error())
		}
		return
	}

	payload, seed, err := novelai_api.BuildPayload(parsed, novelai_api.CompileOptions{
		Model:              model,
		BaseImage:          baseImage,
		CharacterReference: characterReference,
	})
	if err != nil {
		if !isGuild {
			b.reply(m.ChannelID, err.Error())
		}
		return
	}

	b.enqueue(m, &generationTask{
		id:        uuid.NewString(),
		payload:   payload,
		model:     model,
		seed:      seed,
		prompt:    parsed.PositivePrompt,
		userID:    m.Author.ID,
		username:  m.Author.Username,
		channelID: m.ChannelID,
		guildID:   m.GuildID,
		messageID: m.ID,
	}, "已加入生成队列，请稍候~")
}

func (b *botImpl) handleGenerateNL(m *discordgo.MessageCreate, content string) {
	ctx := context.Background()
	isGuild := m.GuildID != ""

	if b.nlProcessor == nil {
		if !isGuild {
			b.reply(m.ChannelID, "自然语言处理功能未启用，请检查配置中的 nl_settings")
		}
		return
	}

	if !b.guildAllowed(ctx, m) {
		return
	}

	if !b.permitUser(ctx, m, isGuild) {
		return
	}

	userInput := strings.TrimSpace(strings.TrimPrefix(content, "/nainl"))

	autoAddQualityWords := true
	naturalInput := userInput

	if match := autoQualityFlagPattern.FindStringSubmatch(userInput); match != nil {
		value := strings.ToLower(strings.TrimSpace(match[1]))
		autoAddQualityWords = value == "是" || value == "yes" || value == "true" || value == "1"
		naturalInput = strings.TrimSpace(autoQualityFlagPattern.ReplaceAllString(userInput, ""))
	}

	// A well formed 正面词条:<…> pair short-circuits the description: the
	// pair's value becomes the LLM input when nothing else remains.
	extractedPositive := ""
	if parsedTemp, err := b.parser.Parse("/nai " + naturalInput); err == nil && parsedTemp.PositivePrompt != "" {
		extractedPositive = parsedTemp.PositivePrompt
		naturalInput = strings.TrimSpace(positivePairPattern.ReplaceAllString(naturalInput, ""))
	}

	if naturalInput == "" {
		naturalInput = strings.TrimSpace(extractedPositive)
	}
	if naturalInput == "" {
		if !isGuild {
			b.reply(m.ChannelID, "请输入图像描述")
		}
		return
	}

	b.reply(m.ChannelID, "自然语言交由 LLM 分析中，请稍后~")

	qualityWords := b.qualityWords
	if b.nlQualityOverride != "" {
		qualityWords = b.nlQualityOverride
	}

	result, err := b.nlProcessor.Process(ctx, naturalInput, nl_processor.Options{
		AutoAddQualityWords: autoAddQualityWords,
		QualityWords:        qualityWords,
	})
	if err != nil {
		if !isGuild {
			b.reply(m.ChannelID, fmt.Sprintf("自然语言处理失败：%v", err))
		}
		return
	}

	commandText := "/nai " + result.ParamsText
	if b.nlNegativeOverride != "" && !strings.Contains(commandText, "负面词条") {
		commandText += fmt.Sprintf(" 负面词条:<%s>", b.nlNegativeOverride)
	}

	parsed, err := b.parser.Parse(commandText)
	if err != nil {
		if !isGuild {
			b.reply(m.ChannelID, fmt.Sprintf("参数解析失败：%v", err))
		}
		return
	}

	model := b.resolveModel(ctx, parsed, m.Author.ID)
	if !novelai_api.IsSupportedModel(model) {
		if !isGuild {
			b.reply(m.ChannelID, "模型参数无效")
		}
		return
	}

	baseImage, characterReference, err := b.resolveImages(m, parsed)
	if err != nil {
		if !isGuild {
			b.reply(m.ChannelID, err.Error())
		}
		return
	}

	payload, seed, err := novelai_api.BuildPayload(parsed, novelai_api.CompileOptions{
		Model:              model,
		BaseImage:          baseImage,
		CharacterReference: characterReference,
	})
	if err != nil {
		if !isGuild {
			b.reply(m.ChannelID, err.Error())
		}
		return
	}

	b.enqueue(m, &generationTask{
		id:        uuid.NewString(),
		payload:   payload,
		model:     model,
		seed:      seed,
		prompt:    parsed.PositivePrompt,
		llmModel:  result.ModelName,
		userID:    m.Author.ID,
		username:  m.Author.Username,
		channelID: m.ChannelID,
		guildID:   m.GuildID,
		messageID: m.ID,
	}, "已加入生成队列（自然语言模式），请稍候~")
}

func (b *botImpl) enqueue(m *discordgo.MessageCreate, task *generationTask, ack string) {
	if err := b.queue.Enqueue(task); err != nil {
		b.reply(m.ChannelID, "当前队列已满，请稍后再试")
		return
	}

	b.logger.Info("generation queued",
		zap.String("task_id", task.id),
		zap.String("user_id", task.userID),
		zap.String("username", task.username),
		zap.String("model", task.model),
		zap.Int64("seed", task.seed),
		zap.Int("queue_len", b.queue.Len()))

	b.reply(m.ChannelID, ack)
}

// permitUser checks the whitelist and the daily quota, notifying the user in
// direct messages only.
func (b *botImpl) permitUser(ctx context.Context, m *discordgo.MessageCreate, isGuild bool) bool {
	allowed, err := b.accessPolicies.IsWhitelisted(ctx, m.Author.ID)
	if err != nil {
		b.logger.Error("whitelist lookup failed",
			zap.String("user_id", m.Author.ID),
			zap.Error(err))
		return false
	}
	if !allowed {
		if !isGuild {
			b.reply(m.ChannelID, "您不在白名单中")
		}
		return false
	}

	hasQuota, err := b.accessPolicies.CheckQuota(ctx, m.Author.ID)
	if err != nil {
		b.logger.Error("quota lookup failed",
			zap.String("user_id", m.Author.ID),
			zap.Error(err))
		return false
	}
	if !hasQuota {
		if !isGuild {
			b.reply(m.ChannelID, "每日限额已达")
		}
		return false
	}

	return true
}

// resolveModel picks the explicit model, the member's saved default, or the
// configured default, in that order. The caller validates the result.
func (b *botImpl) resolveModel(ctx context.Context, parsed *entities.ParsedParams, userID string) string {
	model := parsed.ModelName
	if model == "" {
		settings, err := b.memberSettings.GetByMemberID(ctx, userID)
		switch {
		case err == nil && settings.DefaultModel != "":
			model = settings.DefaultModel
		case err != nil && !errors.Is(err, repositories.ErrNotFound):
			b.logger.Warn("member settings lookup failed",
				zap.String("user_id", userID),
				zap.Error(err))
		}
	}
	if model == "" {
		model = b.defaultModel
	}

	return model
}

// resolveImages maps the 1-based attachment slot numbers from the command to
// base64 image payloads. Base images are resized onto the 64 pixel grid the
// upstream sampler expects; reference images are only normalized to PNG.
func (b *botImpl) resolveImages(m *discordgo.MessageCreate, parsed *entities.ParsedParams) (string, string, error) {
	attachments := imageAttachments(m)

	if len(attachments) == 0 {
		if parsed.BaseImage != "" || parsed.CharacterReference != "" {
			return "", "", errors.New("消息中未找到图片，请先发送图片")
		}
		return "", "", nil
	}

	slots := make(map[string]*discordgo.MessageAttachment, len(attachments))
	for i, att := range attachments {
		slots[strconv.Itoa(i+1)] = att
	}

	var baseImage string
	if parsed.BaseImage != "" {
		att, ok := slots[strings.TrimSpace(parsed.BaseImage)]
		if !ok {
			return "", "", errors.New("未找到指定的底图，请确认图片编号")
		}

		data, err := b.downloadAttachment(att.URL)
		if err != nil {
			b.logger.Error("downloading base image failed",
				zap.String("url", att.URL),
				zap.Error(err))
			return "", "", errors.New("图片下载失败，请稍后重试")
		}

		resized, err := image_tools.ResizeToMultipleOf64(data)
		if err != nil {
			return "", "", errors.New("图片处理失败，请确认图片格式")
		}

		baseImage = image_tools.EncodeBase64(resized)
	}

	var characterReference string
	if parsed.CharacterReference != "" {
		att, ok := slots[strings.TrimSpace(parsed.CharacterReference)]
		if !ok {
			return "", "", errors.New("未找到指定的角色参考图，请确认图片编号")
		}

		data, err := b.downloadAttachment(att.URL)
		if err != nil {
			b.logger.Error("downloading reference image failed",
				zap.String("url", att.URL),
				zap.Error(err))
			return "", "", errors.New("图片下载失败，请稍后重试")
		}

		normalized, err := image_tools.NormalizeToPNG(data)
		if err != nil {
			return "", "", errors.New("图片处理失败，请确认图片格式")
		}

		characterReference = image_tools.EncodeBase64(normalized)
	}

	return baseImage, characterReference, nil
}

func (b *botImpl) downloadAttachment(url string) ([]byte, error) {
	resp, err := b.httpClient.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

func imageAttachments(m *discordgo.MessageCreate) []*discordgo.MessageAttachment {
	var images []*discordgo.MessageAttachment
	for _, att := range m.Attachments {
		if att.Width > 0 || strings.HasPrefix(att.ContentType, "image/") {
			images = append(images, att)
		}
	}

	return images
}

// processTask runs on the queue worker. Quota is only consumed once the
// upstream call succeeded; a failed recording does not fail the task.
func (b *botImpl) processTask(task *generationTask) error {
	ctx := context.Background()

	imageBytes, err := b.client.GenerateImage(ctx, task.payload)
	if err != nil {
		return err
	}

	filePath, err := b.storeImage(imageBytes, task.model, task.seed)
	if err != nil {
		return err
	}

	if err := b.accessPolicies.ConsumeQuota(ctx, task.userID); err != nil {
		return err
	}

	if _, err := b.generationRecords.Create(ctx, &entities.GenerationRecord{
		UserID:   task.userID,
		GuildID:  task.guildID,
		Model:    task.model,
		Seed:     task.seed,
		Prompt:   task.prompt,
		FilePath: filePath,
		LLMModel: task.llmModel,
	}); err != nil {
		b.logger.Warn("recording generation failed",
			zap.String("task_id", task.id),
			zap.Error(err))
	}

	text := fmt.Sprintf("%s 图片生成完成！模型: %s，种子: %d", mention(task.userID), task.model, task.seed)
	if task.llmModel != "" {
		text += fmt.Sprintf("，LLM: %s", task.llmModel)
	}

	if _, err := b.session.ChannelMessageSendComplex(task.channelID, &discordgo.MessageSend{
		Content: text,
		Files: []*discordgo.File{
			{
				Name:        filepath.Base(filePath),
				ContentType: "image/png",
				Reader:      bytes.NewReader(imageBytes),
			},
		},
	}); err != nil {
		b.logger.Error("sending generation result failed",
			zap.String("task_id", task.id),
			zap.Error(err))
	}

	// In guilds the command message is removed once the result is posted.
	// This needs the Manage Messages permission, so failures stay quiet.
	if task.guildID != "" && task.messageID != "" {
		if err := b.session.ChannelMessageDelete(task.channelID, task.messageID); err != nil {
			b.logger.Debug("deleting command message failed",
				zap.String("task_id", task.id),
				zap.Error(err))
		}
	}

	b.logger.Info("generation finished",
		zap.String("task_id", task.id),
		zap.String("user_id", task.userID),
		zap.String("model", task.model),
		zap.Int64("seed", task.seed),
		zap.String("file", filePath))

	return nil
}

func (b *botImpl) onTaskError(task *generationTask, err error) {
	b.logger.Error("generation failed",
		zap.String("task_id", task.id),
		zap.String("user_id", task.userID),
		zap.String("model", task.model),
		zap.Error(err))

	text := "生成失败，请稍后重试"

	var apiErr *novelai_api.APIError
	if errors.As(err, &apiErr) {
		text = fmt.Sprintf("生成失败：%s", apiErr.Message)
	}

	b.reply(task.channelID, mention(task.userID)+" "+text)
}

func (b *botImpl) storeImage(data []byte, model string, seed int64) (string, error) {
	filename := fmt.Sprintf("%s_%s_%d.png", b.clk.Now().Format("20060102_150405"), model, seed)
	path := filepath.Join(b.imageSavePath, filename)

	if err := image_tools.SaveImage(data, path); err != nil {
		return "", fmt.Errorf("saving image: %w", err)
	}

	return path, nil
}
