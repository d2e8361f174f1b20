package discord_bot

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"novelai_bot/png_metadata"
)

const helpText = `/nai 正面词条:<主要提示词，必填>
     负面词条:<不需要的内容；留空则使用模型预设>
     是否有福瑞:<是/否，默认否；是时会在提示词前添加 fur dataset>
     添加质量词:<是/否，默认否；是时追加模型质量词>
     底图:<图生图使用的图片编号，留空为文本生图>
     底图重绘强度:<0~1，默认0.7；越低越接近原图>
     底图加噪强度:<0~0.99，默认0；越高越接近文本描述>
     分辨率:<竖图/横图/方图，默认竖图>
     步数:<1~28 的整数，默认28>
     指导系数:<0~10 的数字，默认5>
     重采样系数:<0~1 的数字，默认0>
     种子:<整数，留空则随机>
     采样器:<k_euler/k_euler_ancestral/k_dpmpp_2m/...，默认 k_euler_ancestral>
     角色是否分区:<是/否；是时可指定角色位置，默认根据角色数判断>
     角色1正面词条:<角色提示词> 角色1负面词条:<角色负面词条> 角色1位置:<A1~E5>
     角色参考:<角色参考图编号> 角色参考强度:<0~1，默认1>
     是否注意原画风:<是/否，默认否>
     模型:<模型名称，留空使用配置 default_model>

/nainl <自然语言描述>：由 LLM 生成词条后生图，可加 是否自动添加质量词:<是/否>
/nai默认模型 <模型名称>：设置个人默认模型
/nai信息：附带图片时读取其中的生成参数
/naihelp：显示本帮助`

func (b *botImpl) handleHelp(m *discordgo.MessageCreate) {
	b.reply(m.ChannelID, helpText)
}

// handleInfo reads the generation parameters NovelAI embeds in its PNG
// output. The image comes from the message itself or the message it replies
// to.
func (b *botImpl) handleInfo(m *discordgo.MessageCreate) {
	attachments := imageAttachments(m)
	if len(attachments) == 0 && m.ReferencedMessage != nil {
		attachments = imageAttachments(&discordgo.MessageCreate{Message: m.ReferencedMessage})
	}
	if len(attachments) == 0 {
		b.reply(m.ChannelID, "请附带要查询的图片")
		return
	}

	data, err := b.downloadAttachment(attachments[0].URL)
	if err != nil {
		b.logger.Error("downloading image failed",
			zap.String("url", attachments[0].URL),
			zap.Error(err))
		b.reply(m.ChannelID, "图片下载失败，请稍后重试")
		return
	}

	extractor, err := png_metadata.New(png_metadata.Config{PngData: data})
	if err != nil {
		b.reply(m.ChannelID, "未找到图片元数据")
		return
	}

	info, err := extractor.ExtractGenerationInfo()
	if err != nil {
		b.reply(m.ChannelID, "未找到图片元数据")
		return
	}

	b.reply(m.ChannelID, formatGenerationInfo(info))
}

func formatGenerationInfo(info *png_metadata.GenerationInfo) string {
	var sb strings.Builder
	sb.WriteString("图片生成信息：")

	if info.Title != "" {
		fmt.Fprintf(&sb, "\n标题: %s", info.Title)
	}
	if info.Source != "" {
		fmt.Fprintf(&sb, "\n来源: %s", info.Source)
	}
	if info.Software != "" {
		fmt.Fprintf(&sb, "\n软件: %s", info.Software)
	}
	fmt.Fprintf(&sb, "\n尺寸: %dx%d", info.Width, info.Height)
	if info.Description != "" {
		fmt.Fprintf(&sb, "\n提示词: %s", truncateText(info.Description, 300))
	}

	if c := info.Comment; c != nil {
		fmt.Fprintf(&sb, "\n种子: %d\n步数: %d", c.Seed, c.Steps)
		if c.Sampler != "" {
			fmt.Fprintf(&sb, "\n采样器: %s", c.Sampler)
		}
		fmt.Fprintf(&sb, "\n指导系数: %v", c.Scale)
		if c.UC != "" {
			fmt.Fprintf(&sb, "\n负面词条: %s", truncateText(c.UC, 300))
		}
	}

	return sb.String()
}

func truncateText(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}

	return string(runes[:limit]) + "..."
}
