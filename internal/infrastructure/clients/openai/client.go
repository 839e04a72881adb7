package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/zatekoja/localdiscovery/internal/domain/providers"
	"github.com/zatekoja/localdiscovery/internal/infrastructure/observability"
	"github.com/zatekoja/localdiscovery/pkg/config"
)

const defaultModel = "text-embedding-3-small"

// Client implements providers.EmbeddingProvider with any OpenAI-compatible API
type Client struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	dimensions int
	limiter    *rate.Limiter
	metrics    *observability.Metrics
}

// NewClient creates a new embedding client. A non-positive RateLimitRPM disables throttling.
func NewClient(cfg *config.EmbeddingConfig, metrics *observability.Metrics) (*Client, error) {
	if cfg == nil || cfg.APIKey == "" {
		return nil, errors.New("embedding api key is required")
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	clientCfg.HTTPClient = &http.Client{Timeout: 20 * time.Second}

	model := cfg.Model
	if model == "" {
		model = defaultModel
	}

	return &Client{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      openai.EmbeddingModel(model),
		dimensions: cfg.Dimensions,
		limiter:    newLimiter(cfg.RateLimitRPM, cfg.RateLimitBurst),
		metrics:    metrics,
	}, nil
}

func newLimiter(rpm, burst int) *rate.Limiter {
	if rpm <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 5
	}
	return rate.NewLimiter(rate.Limit(float64(rpm)/60.0), burst)
}

// Embed returns the embedding vector for text
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("embedding rate limit wait: %w", err)
		}
	}

	req := openai.EmbeddingRequest{
		Input:          []string{text},
		Model:          c.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	}
	if c.dimensions > 0 {
		req.Dimensions = c.dimensions
	}

	start := time.Now()
	resp, err := c.client.CreateEmbeddings(ctx, req)
	if err == nil && len(resp.Data) == 0 {
		err = fmt.Errorf("empty embedding response: %w", providers.ErrEmbeddingFailed)
	} else if err != nil {
		err = apiError(err)
	}
	observability.RecordEmbeddingMetric(ctx, c.metrics, string(c.model), time.Since(start), err)
	if err != nil {
		return nil, err
	}

	observability.LoggerFromContext(ctx).Debug().
		Str("model", string(c.model)).
		Int("prompt_tokens", resp.Usage.PromptTokens).
		Int("dimensions", len(resp.Data[0].Embedding)).
		Msg("embedding created")
	return resp.Data[0].Embedding, nil
}

// apiError keeps the upstream status and message and wraps ErrEmbeddingFailed
func apiError(err error) error {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if detail := errorDetail(reqErr.Body); detail != "" {
			return fmt.Errorf("embedding API error %d: %s: %w", reqErr.HTTPStatusCode, detail, providers.ErrEmbeddingFailed)
		}
		return fmt.Errorf("embedding API error %d: %w", reqErr.HTTPStatusCode, providers.ErrEmbeddingFailed)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("embedding API error %d: %s: %w", apiErr.HTTPStatusCode, apiErr.Message, providers.ErrEmbeddingFailed)
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("embedding request aborted: %w", errors.Join(err, providers.ErrEmbeddingFailed))
	}
	return fmt.Errorf("embedding request failed: %v: %w", err, providers.ErrEmbeddingFailed)
}

// errorDetail reads the "detail" field some OpenAI-compatible providers return
func errorDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil {
		return parsed.Detail
	}
	return ""
}
