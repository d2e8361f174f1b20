package discord_bot

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"novelai_bot/entities"
	"novelai_bot/novelai_api"
)

var (
	mentionPattern    = regexp.MustCompile(`^<@!?([0-9]+)>$`)
	longDigitsPattern = regexp.MustCompile(`\d{5,}`)
)

func (b *botImpl) handleWhitelist(m *discordgo.MessageCreate, content string) {
	if !b.isAdmin(m.Author.ID) {
		b.reply(m.ChannelID, "仅管理员可执行此操作")
		return
	}

	ctx := context.Background()
	args := strings.Fields(strings.TrimPrefix(content, "/nai白名单"))

	if len(args) == 0 {
		b.reply(m.ChannelID, "用法：/nai白名单 添加|删除 <用户ID或@目标> [昵称]")
		return
	}

	switch args[0] {
	case "添加":
		userID, defaultName := b.resolveUserTarget(m, argAt(args, 1))
		if userID == "" {
			b.reply(m.ChannelID, "请提供要添加的用户ID或@目标")
			return
		}

		nick := argAt(args, 2)
		if nick == "" {
			nick = defaultName
		}

		user, err := b.accessPolicies.AddUser(ctx, userID, 0, nick)
		if err != nil {
			b.logger.Error("adding user to whitelist failed",
				zap.String("user_id", userID),
				zap.Error(err))
			b.reply(m.ChannelID, "操作失败，请稍后重试")
			return
		}

		b.reply(m.ChannelID, fmt.Sprintf("已添加 %s 至白名单，昵称：%s，今日剩余 %d/%d 次",
			userID, nickOrUnset(user.Nickname), user.Remaining, user.DailyLimit))
	case "删除":
		userID, _ := b.resolveUserTarget(m, argAt(args, 1))
		if userID == "" {
			b.reply(m.ChannelID, "请提供要删除的用户ID或@目标")
			return
		}

		removed, err := b.accessPolicies.RemoveUser(ctx, userID)
		if err != nil {
			b.logger.Error("removing user from whitelist failed",
				zap.String("user_id", userID),
				zap.Error(err))
			b.reply(m.ChannelID, "操作失败，请稍后重试")
			return
		}

		if removed {
			b.reply(m.ChannelID, fmt.Sprintf("已从白名单移除 %s", userID))
		} else {
			b.reply(m.ChannelID, "目标不在白名单中")
		}
	default:
		b.reply(m.ChannelID, "用法：/nai白名单 添加|删除 <用户ID或@目标> [昵称]")
	}
}

func (b *botImpl) handleQuotaSet(m *discordgo.MessageCreate, content string) {
	if !b.isAdmin(m.Author.ID) {
		b.reply(m.ChannelID, "仅管理员可执行此操作")
		return
	}

	args := strings.Fields(strings.TrimPrefix(content, "/nai限额"))

	if len(args) == 0 || args[0] != "设置" {
		b.reply(m.ChannelID, "用法：/nai限额 设置 <用户ID或@目标> <每日限额> [昵称]")
		return
	}

	userID, defaultName := b.resolveUserTarget(m, argAt(args, 1))
	if userID == "" {
		b.reply(m.ChannelID, "请提供要设置的用户ID或@目标")
		return
	}

	limit, err := strconv.Atoi(argAt(args, 2))
	if err != nil {
		b.reply(m.ChannelID, "限额必须是整数")
		return
	}
	if limit <= 0 {
		b.reply(m.ChannelID, "每日限额必须大于0")
		return
	}

	nick := argAt(args, 3)
	if nick == "" {
		nick = defaultName
	}

	user, err := b.accessPolicies.SetQuota(context.Background(), userID, limit, nick)
	if err != nil {
		b.logger.Error("setting quota failed",
			zap.String("user_id", userID),
			zap.Error(err))
		b.reply(m.ChannelID, "操作失败，请稍后重试")
		return
	}

	b.reply(m.ChannelID, fmt.Sprintf("已将 %s（昵称：%s）的每日限额设置为 %d，今日剩余 %d",
		userID, nickOrUnset(user.Nickname), user.DailyLimit, user.Remaining))
}

func (b *botImpl) handleGuildWhitelist(m *discordgo.MessageCreate, content string) {
	if !b.isAdmin(m.Author.ID) {
		b.reply(m.ChannelID, "仅管理员可执行此操作")
		return
	}

	ctx := context.Background()
	args := strings.Fields(strings.TrimPrefix(content, "/nai群白名单"))

	if len(args) == 0 {
		b.reply(m.ChannelID, "用法：/nai群白名单 添加|删除 [群号] [名称]")
		return
	}

	switch args[0] {
	case "添加":
		guildID, name := b.resolveGuildTarget(m, argAt(args, 1), argAt(args, 2))
		if guildID == "" {
			b.reply(m.ChannelID, "请提供群号，或在目标群内使用该命令")
			return
		}

		entry, err := b.accessPolicies.AddGuild(ctx, guildID, name)
		if err != nil {
			b.logger.Error("adding guild to whitelist failed",
				zap.String("guild_id", guildID),
				zap.Error(err))
			b.reply(m.ChannelID, "操作失败，请稍后重试")
			return
		}

		b.reply(m.ChannelID, fmt.Sprintf("已添加群 %s 至白名单，名称：%s", entry.GuildID, nickOrUnset(entry.Name)))
	case "删除":
		guildID, _ := b.resolveGuildTarget(m, argAt(args, 1), "")
		if guildID == "" {
			b.reply(m.ChannelID, "请提供群号，或在目标群内使用该命令")
			return
		}

		removed, err := b.accessPolicies.RemoveGuild(ctx, guildID)
		if err != nil {
			b.logger.Error("removing guild from whitelist failed",
				zap.String("guild_id", guildID),
				zap.Error(err))
			b.reply(m.ChannelID, "操作失败，请稍后重试")
			return
		}

		if removed {
			b.reply(m.ChannelID, fmt.Sprintf("已从群白名单移除 %s", guildID))
		} else {
			b.reply(m.ChannelID, "该群不在白名单中")
		}
	default:
		b.reply(m.ChannelID, "用法：/nai群白名单 添加|删除 [群号] [名称]")
	}
}

// handleDefaultModel lets whitelisted users pick their own fallback model for
// commands that omit 模型.
func (b *botImpl) handleDefaultModel(m *discordgo.MessageCreate, content string) {
	ctx := context.Background()

	allowed, err := b.accessPolicies.IsWhitelisted(ctx, m.Author.ID)
	if err != nil {
		b.logger.Error("whitelist lookup failed",
			zap.String("user_id", m.Author.ID),
			zap.Error(err))
		return
	}
	if !allowed {
		if m.GuildID == "" {
			b.reply(m.ChannelID, "您不在白名单中")
		}
		return
	}

	args := strings.Fields(strings.TrimPrefix(content, "/nai默认模型"))

	if len(args) == 0 {
		current := b.defaultModel
		source := "全局默认"
		if settings, err := b.memberSettings.GetByMemberID(ctx, m.Author.ID); err == nil && settings.DefaultModel != "" {
			current = settings.DefaultModel
			source = "个人设置"
		}

		b.reply(m.ChannelID, fmt.Sprintf("当前默认模型：%s（%s）\n可用模型：%s\n使用 /nai默认模型 <模型名称> 修改",
			current, source, strings.Join(novelai_api.Models, "、")))
		return
	}

	model := args[0]
	if !novelai_api.IsSupportedModel(model) {
		b.reply(m.ChannelID, "模型参数无效")
		return
	}

	if _, err := b.memberSettings.Upsert(ctx, &entities.MemberSettings{
		MemberID:     m.Author.ID,
		DefaultModel: model,
	}); err != nil {
		b.logger.Error("saving default model failed",
			zap.String("user_id", m.Author.ID),
			zap.Error(err))
		b.reply(m.ChannelID, "操作失败，请稍后重试")
		return
	}

	b.reply(m.ChannelID, fmt.Sprintf("已将默认模型设置为 %s", model))
}

func (b *botImpl) handleRecords(m *discordgo.MessageCreate, content string) {
	if !b.isAdmin(m.Author.ID) {
		b.reply(m.ChannelID, "仅管理员可执行此操作")
		return
	}

	limit := 5
	if args := strings.Fields(strings.TrimPrefix(content, "/nai记录")); len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			b.reply(m.ChannelID, "条数必须是正整数")
			return
		}
		if n > 20 {
			n = 20
		}
		limit = n
	}

	records, err := b.generationRecords.Recent(context.Background(), limit)
	if err != nil {
		b.logger.Error("listing generation records failed", zap.Error(err))
		b.reply(m.ChannelID, "操作失败，请稍后重试")
		return
	}

	if len(records) == 0 {
		b.reply(m.ChannelID, "暂无生成记录")
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "最近 %d 条生成记录：", len(records))
	for _, rec := range records {
		fmt.Fprintf(&sb, "\n#%d %s | 用户 %s | %s | 种子 %d",
			rec.ID, rec.CreatedAt.Format("2006-01-02 15:04"), rec.UserID, rec.Model, rec.Seed)
		if rec.LLMModel != "" {
			fmt.Fprintf(&sb, " | LLM %s", rec.LLMModel)
		}
	}

	b.reply(m.ChannelID, sb.String())
}

// resolveUserTarget turns a command argument (mention, raw ID, or ID mixed
// into other text) into a user ID plus a display name suggestion.
func (b *botImpl) resolveUserTarget(m *discordgo.MessageCreate, target string) (string, string) {
	target = strings.TrimSpace(target)

	if match := mentionPattern.FindStringSubmatch(target); match != nil {
		return match[1], b.mentionDisplayName(m, match[1])
	}

	for _, user := range m.Mentions {
		if b.session.State.User != nil && user.ID == b.session.State.User.ID {
			continue
		}
		return user.ID, user.Username
	}

	if target == "" {
		return "", ""
	}

	if digits := longDigitsPattern.FindString(target); digits != "" {
		nick := strings.Trim(strings.ReplaceAll(target, digits, ""), " ()（）")
		return digits, nick
	}

	return target, target
}

func (b *botImpl) mentionDisplayName(m *discordgo.MessageCreate, userID string) string {
	for _, user := range m.Mentions {
		if user.ID == userID {
			return user.Username
		}
	}

	return userID
}

// resolveGuildTarget accepts an explicit guild ID or one of the "this guild"
// keywords, falling back to the guild the command was issued in.
func (b *botImpl) resolveGuildTarget(m *discordgo.MessageCreate, target, name string) (string, string) {
	target = strings.TrimSpace(target)
	name = strings.TrimSpace(name)

	if target == "" || target == "本群" || target == "当前" || target == "此群" {
		if m.GuildID == "" {
			return "", ""
		}

		if name == "" {
			if guild, err := b.session.State.Guild(m.GuildID); err == nil {
				name = guild.Name
			}
		}

		return m.GuildID, name
	}

	if digits := longDigitsPattern.FindString(target); digits != "" {
		if name == "" {
			name = strings.Trim(strings.ReplaceAll(target, digits, ""), " ()（）")
		}
		return digits, name
	}

	return target, name
}

func argAt(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}

	return ""
}

func nickOrUnset(nickname string) string {
	if nickname == "" {
		return "未设"
	}

	return nickname
}
