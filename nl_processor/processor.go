package nl_processor

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"novelai_bot/command_parser"
	"novelai_bot/logging"
)

// Templates are the LLM prompt templates. Each may reference {user_input}.
// DetailCheck may be empty, in which case a length heuristic decides between
// the Expand and Translate templates.
type Templates struct {
	DetailCheck string
	Expand      string
	Translate   string
}

type Config struct {
	LLM       LLMClient
	Parser    command_parser.Parser
	Templates Templates
	Logger    *logging.Logger
}

type processorImpl struct {
	llm       LLMClient
	parser    command_parser.Parser
	templates Templates
	logger    *logging.Logger
}

func New(cfg Config) (Processor, error) {
	if cfg.LLM == nil {
		return nil, errors.New("missing LLM client")
	}
	if cfg.Parser == nil {
		return nil, errors.New("missing parser")
	}
	if cfg.Logger == nil {
		return nil, errors.New("missing logger")
	}

	return &processorImpl{
		llm:       cfg.LLM,
		parser:    cfg.Parser,
		templates: cfg.Templates,
		logger:    cfg.Logger,
	}, nil
}

var prefixesToRemove = []string{
	"以下是转换后的提示词：",
	"转换后的提示词如下：",
	"根据您的要求，",
	"Here is the converted prompt:",
	"The converted prompt is:",
	"正面词条:",
	"正面词条：",
	"Positive prompt:",
	"Prompt:",
}

var suffixesToRemove = []string{
	"。",
	".",
	"以上是转换后的提示词。",
	"This is the converted prompt.",
}

var skipKeywords = []string{
	"要求", "requirement", "note", "注意", "please",
	"用户描述", "user input", "description",
}

var (
	taggedPositivePattern  = regexp.MustCompile(`正面词条[：:]\s*<([^>]+)>`)
	labeledPositivePattern = regexp.MustCompile(`(?i)positive\s*prompt[：:]\s*(.+)`)
)

func (p *processorImpl) Process(ctx context.Context, userInput string, opts Options) (*Result, error) {
	if strings.TrimSpace(userInput) == "" {
		return nil, errors.New("输入不能为空")
	}

	detailed := p.checkDetail(ctx, userInput)

	templateKey, template := "translate", p.templates.Translate
	if detailed {
		templateKey, template = "expand", p.templates.Expand
	}
	if template == "" {
		return nil, fmt.Errorf("缺少模板: %s", templateKey)
	}

	p.logger.Debug("processing natural language input",
		zap.Bool("detailed", detailed),
		zap.String("template", templateKey))

	response, model, err := p.llm.Generate(ctx, renderTemplate(template, userInput))
	if err != nil {
		return nil, fmt.Errorf("LLM 调用失败: %w", err)
	}

	positive, err := extractPositivePrompt(response)
	if err != nil {
		return nil, err
	}

	if opts.AutoAddQualityWords && opts.QualityWords != "" {
		qualityWords := strings.Trim(strings.TrimSpace(opts.QualityWords), ",")
		if qualityWords != "" {
			lower := strings.ToLower(positive)
			if !strings.Contains(lower, "best quality") && !strings.Contains(lower, "masterpiece") {
				positive = positive + ", " + qualityWords
			}
		}
	}

	paramsText := "正面词条:<" + positive + ">"

	if _, err := p.parser.Parse("/nai " + paramsText); err != nil {
		return nil, fmt.Errorf("生成的参数格式验证失败: %v，正面词条: %s", err, truncateRunes(positive, 200))
	}

	return &Result{ParamsText: paramsText, ModelName: model}, nil
}

// checkDetail decides whether the description is rich enough to expand as
// is or needs translating and padding first. Without a template, or when
// the LLM call fails, a length heuristic answers instead.
func (p *processorImpl) checkDetail(ctx context.Context, userInput string) bool {
	if p.templates.DetailCheck == "" {
		return detailHeuristic(userInput)
	}

	response, _, err := p.llm.Generate(ctx, renderTemplate(p.templates.DetailCheck, userInput))
	if err != nil {
		p.logger.Warn("detail check failed, falling back to heuristic", zap.Error(err))
		return detailHeuristic(userInput)
	}

	lower := strings.ToLower(strings.TrimSpace(response))
	if strings.Contains(lower, "不详细") {
		return false
	}
	return strings.Contains(lower, "详细") || strings.Contains(lower, "detailed")
}

func detailHeuristic(userInput string) bool {
	return len(strings.Fields(userInput)) > 10 || len([]rune(userInput)) > 50
}

func renderTemplate(template, userInput string) string {
	return strings.ReplaceAll(template, "{user_input}", userInput)
}

// extractPositivePrompt strips explanation the LLM wrapped around the tag
// text: known prefixes and suffixes, labeled formats, quotes and commentary
// lines.
func extractPositivePrompt(response string) (string, error) {
	cleaned := strings.TrimSpace(response)

	for _, prefix := range prefixesToRemove {
		if strings.HasPrefix(strings.ToLower(cleaned), strings.ToLower(prefix)) {
			cleaned = strings.TrimSpace(cleaned[len(prefix):])
		}
	}
	for _, suffix := range suffixesToRemove {
		if strings.HasSuffix(strings.ToLower(cleaned), strings.ToLower(suffix)) {
			cleaned = strings.TrimSpace(cleaned[:len(cleaned)-len(suffix)])
		}
	}

	if match := taggedPositivePattern.FindStringSubmatch(cleaned); match != nil {
		cleaned = strings.TrimSpace(match[1])
	}
	if match := labeledPositivePattern.FindStringSubmatch(cleaned); match != nil {
		cleaned = strings.TrimSpace(match[1])
	}

	cleaned = strings.TrimSpace(strings.Trim(strings.Trim(cleaned, `"`), `'`))

	var lines []string
	for _, line := range strings.Split(cleaned, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if containsSkipKeyword(line) && !containsLetter(line) {
			continue
		}
		lines = append(lines, line)
	}
	if len(lines) > 0 {
		cleaned = strings.Join(lines, " ")
	}

	cleaned = strings.Join(strings.Fields(cleaned), " ")

	if cleaned == "" {
		return "", errors.New("无法从 LLM 响应中提取有效的正面词条")
	}

	return cleaned, nil
}

func containsSkipKeyword(line string) bool {
	lower := strings.ToLower(line)
	for _, keyword := range skipKeywords {
		if strings.Contains(lower, strings.ToLower(keyword)) {
			return true
		}
	}
	return false
}

func containsLetter(line string) bool {
	for _, r := range line {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
