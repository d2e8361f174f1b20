package novelai_api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"novelai_bot/image_tools"
	"novelai_bot/logging"
)

const DefaultEndpoint = "https://image.novelai.net/ai/generate-image"

const defaultTimeout = 180 * time.Second

type apiImpl struct {
	endpoint   string
	token      string
	httpClient *http.Client
	logger     *logging.Logger
}

type Config struct {
	Token    string
	Endpoint string
	Proxy    string
	Timeout  time.Duration
	Logger   *logging.Logger
}

func New(cfg Config) (NovelAIAPI, error) {
	if cfg.Token == "" {
		return nil, errors.New("missing NovelAI token")
	}
	if cfg.Logger == nil {
		return nil, errors.New("missing logger")
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	transport := http.DefaultTransport
	if cfg.Proxy != "" {
		proxyURL, err := url.Parse(cfg.Proxy)
		if err != nil {
			return nil, err
		}
		transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
	}

	return &apiImpl{
		endpoint: endpoint,
		token:    cfg.Token,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		logger: cfg.Logger,
	}, nil
}

// GenerateImage posts the payload and extracts the first PNG from the ZIP
// archive the endpoint responds with.
func (api *apiImpl) GenerateImage(ctx context.Context, payload *Payload) ([]byte, error) {
	if payload == nil {
		return nil, errors.New("missing payload")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, api.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+api.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Referer", "https://novelai.net/")
	req.Header.Set("Origin", "https://novelai.net")

	started := time.Now()
	resp, err := api.httpClient.Do(req)
	if err != nil {
		return nil, newAPIError(0, "NovelAI请求失败: %v", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newAPIError(0, "读取NovelAI响应失败: %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, newAPIError(resp.StatusCode, "NovelAI返回错误(%d): %s", resp.StatusCode, truncate(string(data), 300))
	}

	image, err := image_tools.ExtractZipImage(data, 0)
	if err != nil {
		return nil, newAPIError(0, "解析NovelAI响应失败: %v", err)
	}

	api.logger.Info("image generated",
		zap.String("model", payload.Model),
		zap.String("action", payload.Action),
		zap.Int("bytes", len(image)),
		zap.Duration("elapsed", time.Since(started)))

	return image, nil
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
