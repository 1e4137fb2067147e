// Package local provides the built-in embedding model: a deterministic
// feature-hashing encoder that needs no network or model files.
package local

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"
	"regexp"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/custodia-labs/docket/internal/adapters/driven/embedding"
	"github.com/custodia-labs/docket/internal/core/domain"
	"github.com/custodia-labs/docket/internal/core/ports/driven"
	"github.com/custodia-labs/docket/internal/metrics"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// ModelName identifies the local model. It is part of every feature hash,
// so changing it changes the embedding space.
const ModelName = "docket-hash-v1"

// bigramWeight scales adjacent word pairs relative to single words.
const bigramWeight = 0.5

// Config holds configuration for the local embedding service.
type Config struct {
	// MaxChars is the input budget; longer text is truncated.
	MaxChars int

	// Logger receives truncation warnings.
	Logger *zap.Logger
}

// EmbeddingService embeds text by hashing words and word pairs into
// signed buckets of a fixed-size vector, then L2-normalising.
// It is safe for concurrent use.
type EmbeddingService struct {
	maxChars int
	logger   *zap.Logger

	once   sync.Once
	model  *model
	loaded atomic.Bool
}

// model is built on first use and read-only afterwards.
type model struct {
	tokenPattern *regexp.Regexp
	stopwords    map[string]struct{}
}

// NewEmbeddingService creates the local embedding service. The model is
// not built until the first call that needs it.
func NewEmbeddingService(cfg Config) *EmbeddingService {
	if cfg.MaxChars <= 0 {
		cfg.MaxChars = domain.DefaultEmbeddingMaxChars
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &EmbeddingService{
		maxChars: cfg.MaxChars,
		logger:   cfg.Logger,
	}
}

func (s *EmbeddingService) load() *model {
	s.once.Do(func() {
		start := time.Now()
		s.model = &model{
			tokenPattern: regexp.MustCompile(`[\p{L}\p{N}]+(?:['’][\p{L}]+)*`),
			stopwords:    defaultStopwords(),
		}
		s.logger.Debug("local embedding model loaded",
			zap.String("model", ModelName),
			zap.Duration("took", time.Since(start)))
		s.loaded.Store(true)
	})
	return s.model
}

// Loaded reports whether the model has been built.
func (s *EmbeddingService) Loaded() bool {
	return s.loaded.Load()
}

// Embed generates a vector embedding for the given text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prepared, err := embedding.Prepare(text, s.maxChars, ModelName, s.logger)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	vec := s.load().encode(prepared)
	metrics.EmbeddingRequestsTotal.WithLabelValues("local", ModelName, "success").Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues("local", ModelName).Observe(time.Since(start).Seconds())
	return vec, nil
}

// EmbedBatch embeds texts in order. Each vector depends only on its own text.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string, batchSize int) ([][]float32, error) {
	return embedding.Batch(ctx, texts, batchSize, func(ctx context.Context, batch []string) ([][]float32, error) {
		out := make([][]float32, len(batch))
		for i, t := range batch {
			vec, err := s.Embed(ctx, t)
			if err != nil {
				return nil, err
			}
			out[i] = vec
		}
		return out, nil
	})
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return domain.EmbeddingDimensions
}

// ModelName returns the name of the embedding model being used.
func (s *EmbeddingService) ModelName() string {
	return ModelName
}

// Ping builds the model if needed. The local model is always reachable.
func (s *EmbeddingService) Ping(_ context.Context) error {
	s.load()
	return nil
}

// Close releases resources.
func (s *EmbeddingService) Close() error {
	return nil
}

// encode maps text to a unit vector. Term frequencies are damped with
// 1+ln(tf). Text with no usable tokens hashes as a single feature so the
// result is never the zero vector.
func (m *model) encode(text string) []float32 {
	tokens := m.tokenize(text)

	counts := make(map[string]float64, len(tokens)*2)
	for i, tok := range tokens {
		counts[tok]++
		if i > 0 {
			counts[tokens[i-1]+" "+tok] += bigramWeight
		}
	}
	if len(counts) == 0 {
		counts[strings.TrimSpace(text)] = 1
	}

	// Features are summed in sorted order so colliding buckets add up the
	// same way on every call.
	features := make([]string, 0, len(counts))
	for feature := range counts {
		features = append(features, feature)
	}
	sort.Strings(features)

	acc := make([]float64, domain.EmbeddingDimensions)
	for _, feature := range features {
		idx, sign := bucket(feature)
		acc[idx] += sign * (1 + math.Log(1+counts[feature]))
	}

	var norm float64
	for _, v := range acc {
		norm += v * v
	}
	norm = math.Sqrt(norm)

	vec := make([]float32, len(acc))
	if norm == 0 {
		idx, _ := bucket(text)
		vec[idx] = 1
		return vec
	}
	for i, v := range acc {
		vec[i] = float32(v / norm)
	}
	return vec
}

func (m *model) tokenize(text string) []string {
	raw := m.tokenPattern.FindAllString(strings.ToLower(text), -1)
	tokens := raw[:0]
	for _, tok := range raw {
		if _, stop := m.stopwords[tok]; stop {
			continue
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

// bucket hashes a feature to a dimension and a sign.
func bucket(feature string) (int, float64) {
	h := sha256.Sum256([]byte(ModelName + "\x00" + feature))
	idx := int(binary.LittleEndian.Uint32(h[:4]) % domain.EmbeddingDimensions)
	if h[4]&1 == 1 {
		return idx, -1
	}
	return idx, 1
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "and", "are", "as", "at", "be", "been", "but", "by", "for", "from",
		"has", "have", "in", "into", "is", "it", "its", "of", "on", "or", "that", "the",
		"their", "there", "these", "this", "to", "was", "were", "which", "will", "with",
	}
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
