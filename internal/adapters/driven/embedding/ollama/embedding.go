// Package ollama provides an embedding service adapter using Ollama.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

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
	DefaultBaseURL = "http://localhost:11434"
	DefaultModel   = "all-minilm"
	DefaultTimeout = 30 * time.Second
)

// Config holds configuration for the Ollama embedding service.
type Config struct {
	// BaseURL is the Ollama API base URL (default: http://localhost:11434).
	BaseURL string

	// Model is the embedding model to use (default: all-minilm, 384 dimensions).
	Model string

	// Timeout is the request timeout (default: 30s).
	Timeout time.Duration

	// MaxChars is the per-input truncation budget.
	MaxChars int

	// RateLimit throttles requests. Zero RequestsPerSecond disables it.
	RateLimit embedding.RateLimitConfig

	Logger *zap.Logger
}

// EmbeddingService generates embeddings using Ollama.
type EmbeddingService struct {
	client   *http.Client
	baseURL  string
	model    string
	maxChars int
	limiter  *embedding.RateLimiter
	logger   *zap.Logger
}

// embedRequest is the Ollama /api/embed request format.
type embedRequest struct {
	Model    string   `json:"model"`
	Input    []string `json:"input"`
	Truncate bool     `json:"truncate"`
}

// embedResponse is the Ollama /api/embed response format.
type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
	Error      string      `json:"error,omitempty"`
}

// NewEmbeddingService creates a new Ollama embedding service.
func NewEmbeddingService(cfg Config) *EmbeddingService {
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

	return &EmbeddingService{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:  cfg.BaseURL,
		model:    cfg.Model,
		maxChars: cfg.MaxChars,
		limiter:  embedding.NewRateLimiter(cfg.RateLimit),
		logger:   cfg.Logger,
	}
}

// Embed generates a vector embedding for the given text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := s.EmbedBatch(ctx, []string{text}, 1)
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch sends batchSize inputs per /api/embed call.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string, batchSize int) ([][]float32, error) {
	prepared := make([]string, len(texts))
	for i, t := range texts {
		p, err := embedding.Prepare(t, s.maxChars, s.model, s.logger)
		if err != nil {
			return nil, fmt.Errorf("ollama: input %d: %w", i, err)
		}
		prepared[i] = p
	}
	return embedding.Batch(ctx, prepared, batchSize, s.embed)
}

func (s *EmbeddingService) embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	jsonBody, err := json.Marshal(embedRequest{Model: s.model, Input: texts, Truncate: true})
	if err != nil {
		return nil, fmt.Errorf("ollama: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/api/embed", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("ollama: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		s.record("error", start)
		return nil, fmt.Errorf("ollama: send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.record("error", start)
		if resp.StatusCode == http.StatusTooManyRequests {
			s.limiter.RecordRateLimitError(retryAfter(resp.Header.Get("Retry-After")))
		}
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("ollama: error (status %d): %s", resp.StatusCode, string(body))
	}

	var embedResp embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&embedResp); err != nil {
		s.record("error", start)
		return nil, fmt.Errorf("ollama: decode response: %w", err)
	}
	if len(embedResp.Embeddings) != len(texts) {
		s.record("error", start)
		return nil, fmt.Errorf("ollama: got %d embeddings for %d inputs", len(embedResp.Embeddings), len(texts))
	}
	for _, vec := range embedResp.Embeddings {
		if err := embedding.CheckDimensions(vec, domain.EmbeddingDimensions); err != nil {
			s.record("error", start)
			return nil, fmt.Errorf("ollama: model %s: %w", s.model, err)
		}
	}

	s.record("success", start)
	return embedResp.Embeddings, nil
}

func (s *EmbeddingService) record(status string, start time.Time) {
	metrics.EmbeddingRequestsTotal.WithLabelValues("ollama", s.model, status).Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues("ollama", s.model).Observe(time.Since(start).Seconds())
}

func retryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return domain.EmbeddingDimensions
}

// ModelName returns the name of the embedding model being used.
func (s *EmbeddingService) ModelName() string {
	return s.model
}

// Ping validates the service is reachable by checking the /api/tags endpoint.
// This is a lightweight check that validates connectivity without running inference.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/api/tags", http.NoBody)
	if err != nil {
		return fmt.Errorf("ollama: failed to create ping request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("ollama: ping failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("ollama: API returned status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// Close releases resources.
func (s *EmbeddingService) Close() error {
	return nil
}
