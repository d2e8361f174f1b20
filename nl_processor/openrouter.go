package nl_processor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"novelai_bot/logging"
)

const DefaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"

const defaultLLMTimeout = 30 * time.Second

// OpenRouterConfig configures the fallback chat completion client. Models
// are tried in order until one answers.
type OpenRouterConfig struct {
	APIKey      string
	BaseURL     string
	Models      []string
	Timeout     time.Duration
	Proxy       string
	HTTPReferer string
	XTitle      string
	Logger      *logging.Logger
}

type openRouterClient struct {
	client *openai.Client
	models []string
	logger *logging.Logger
}

func NewOpenRouterClient(cfg OpenRouterConfig) (LLMClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("未配置 OpenRouter API Key")
	}
	if len(cfg.Models) == 0 {
		return nil, errors.New("未配置模型列表")
	}
	if cfg.Logger == nil {
		return nil, errors.New("missing logger")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultOpenRouterBaseURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultLLMTimeout
	}

	var base http.RoundTripper = http.DefaultTransport
	if cfg.Proxy != "" {
		proxyURL, err := url.Parse(cfg.Proxy)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy url: %w", err)
		}
		base = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = baseURL
	clientConfig.HTTPClient = &http.Client{
		Timeout: timeout,
		Transport: &rankingHeaderTransport{
			referer: cfg.HTTPReferer,
			title:   cfg.XTitle,
			base:    base,
		},
	}

	return &openRouterClient{
		client: openai.NewClientWithConfig(clientConfig),
		models: cfg.Models,
		logger: cfg.Logger,
	}, nil
}

// Generate walks the model list. Transport failures move on to the next
// model; errors the API itself reports abort immediately since retrying a
// rejected request elsewhere rarely helps.
func (c *openRouterClient) Generate(ctx context.Context, prompt string) (string, string, error) {
	var lastErr error

	for _, model := range c.models {
		resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
		})
		if err != nil {
			var apiErr *openai.APIError
			if errors.As(err, &apiErr) {
				return "", "", fmt.Errorf("OpenRouter API 错误: %s", apiErr.Message)
			}
			var reqErr *openai.RequestError
			if errors.As(err, &reqErr) && reqErr.HTTPStatusCode > 0 {
				return "", "", fmt.Errorf("OpenRouter API 返回错误 (状态码 %d)", reqErr.HTTPStatusCode)
			}
			lastErr = fmt.Errorf("网络错误（模型: %s）: %w", model, err)
			c.logger.Warn("model call failed, trying next",
				zap.String("model", model),
				zap.Error(err))
			continue
		}

		if len(resp.Choices) == 0 {
			lastErr = errors.New("OpenRouter API 返回空响应")
			continue
		}
		content := strings.TrimSpace(resp.Choices[0].Message.Content)
		if content == "" {
			lastErr = errors.New("OpenRouter API 返回空内容")
			continue
		}

		return content, model, nil
	}

	if lastErr != nil {
		return "", "", lastErr
	}
	return "", "", errors.New("所有模型调用均失败")
}

// rankingHeaderTransport attaches the optional OpenRouter attribution
// headers to every request.
type rankingHeaderTransport struct {
	referer string
	title   string
	base    http.RoundTripper
}

func (t *rankingHeaderTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.referer != "" {
		req.Header.Set("HTTP-Referer", t.referer)
	}
	if t.title != "" {
		req.Header.Set("X-Title", t.title)
	}
	return t.base.RoundTrip(req)
}
