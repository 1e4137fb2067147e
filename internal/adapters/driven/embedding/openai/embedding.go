// Package openai provides an embedding service adapter for the OpenAI API
// and compatible endpoints.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/custodia-labs/docket/internal/adapters/driven/embedding"
	"github.com/custodia-labs/docket/internal/core/domain"
	"github.com/custodia-labs/docket/internal/core/ports/driven"
	"github.com/custodia-labs/docket/internal/metrics"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "text-embedding-3-small"
	DefaultTimeout = 60 * time.Second
)

// Config holds configuration for the OpenAI embedding service.
type Config struct {
	// APIKey is the OpenAI API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.openai.com/v1).
	// Can be changed for Azure OpenAI or compatible APIs.
	BaseURL string

	// Model is the embedding model to use (default: text-embedding-3-small).
	// The model must support the dimensions parameter.
	Model string

	// Timeout is the request timeout (default: 60s).
	Timeout time.Duration

	// MaxChars is the per-input truncation budget.
	MaxChars int

	// RateLimit throttles requests. Zero RequestsPerSecond disables it.
	RateLimit embedding.RateLimitConfig

	Logger *zap.Logger
}

// EmbeddingService generates embeddings using the OpenAI API.
type EmbeddingService struct {
	client   *openai.Client
	model    openai.EmbeddingModel
	maxChars int
	limiter  *embedding.RateLimiter
	logger   *zap.Logger
}

// NewEmbeddingService creates a new OpenAI embedding service.
func NewEmbeddingService(cfg Config) (*EmbeddingService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxChars <= 0 {
		cfg.MaxChars = domain.DefaultEmbeddingMaxChars
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = cfg.BaseURL
	clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &EmbeddingService{
		client:   openai.NewClientWithConfig(clientCfg),
		model:    openai.EmbeddingModel(cfg.Model),
		maxChars: cfg.MaxChars,
		limiter:  embedding.NewRateLimiter(cfg.RateLimit),
		logger:   cfg.Logger,
	}, nil
}

// Embed generates a vector embedding for the given text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := s.EmbedBatch(ctx, []string{text}, 1)
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch sends batchSize inputs per CreateEmbeddings call.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string, batchSize int) ([][]float32, error) {
	prepared := make([]string, len(texts))
	for i, t := range texts {
		p, err := embedding.Prepare(t, s.maxChars, string(s.model), s.logger)
		if err != nil {
			return nil, fmt.Errorf("openai: input %d: %w", i, err)
		}
		prepared[i] = p
	}
	return embedding.Batch(ctx, prepared, batchSize, s.embed)
}

func (s *EmbeddingService) embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req := openai.EmbeddingRequest{
		Input:          texts,
		Model:          s.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
		Dimensions:     domain.EmbeddingDimensions,
	}

	start := time.Now()
	resp, err := s.client.CreateEmbeddings(ctx, req)
	if err != nil {
		s.record("error", start)
		return nil, s.parseAPIError(err)
	}
	if len(resp.Data) != len(texts) {
		s.record("error", start)
		return nil, fmt.Errorf("openai: got %d embeddings for %d inputs", len(resp.Data), len(texts))
	}

	// The API reports each vector's input position; do not rely on response order.
	data := resp.Data
	sort.SliceStable(data, func(i, j int) bool { return data[i].Index < data[j].Index })

	out := make([][]float32, len(data))
	for i, d := range data {
		if err := embedding.CheckDimensions(d.Embedding, domain.EmbeddingDimensions); err != nil {
			s.record("error", start)
			return nil, fmt.Errorf("openai: model %s: %w", s.model, err)
		}
		out[i] = d.Embedding
	}

	s.record("success", start)
	return out, nil
}

func (s *EmbeddingService) record(status string, start time.Time) {
	metrics.EmbeddingRequestsTotal.WithLabelValues("openai", string(s.model), status).Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues("openai", string(s.model)).Observe(time.Since(start).Seconds())
}

// parseAPIError extracts the status and message from API failures and
// starts a backoff on 429.
func (s *EmbeddingService) parseAPIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == http.StatusTooManyRequests {
			s.limiter.RecordRateLimitError(0)
		}
		return fmt.Errorf("openai: API error %d: %s", apiErr.HTTPStatusCode, apiErr.Message)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if reqErr.HTTPStatusCode == http.StatusTooManyRequests {
			s.limiter.RecordRateLimitError(0)
		}
		return fmt.Errorf("openai: request error %d: %w", reqErr.HTTPStatusCode, err)
	}

	return fmt.Errorf("openai: %w", err)
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return domain.EmbeddingDimensions
}

// ModelName returns the name of the embedding model being used.
func (s *EmbeddingService) ModelName() string {
	return string(s.model)
}

// Ping verifies API availability via ListModels, which does not consume tokens.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	if _, err := s.client.ListModels(ctx); err != nil {
		return fmt.Errorf("openai: list models: %w", err)
	}
	return nil
}

// Close releases resources.
func (s *EmbeddingService) Close() error {
	return nil
}
