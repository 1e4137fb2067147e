// Package cache wraps an embedding service with a key-value cache so that
// identical text under the same model is embedded once.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/custodia-labs/docket/internal/core/ports/driven"
	"github.com/custodia-labs/docket/internal/metrics"
)

const keyPrefix = "docket:emb:"

// ErrMiss is returned by a Store when the key does not exist.
var ErrMiss = errors.New("cache: key not found")

// Store is the key-value backend used by the cache.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Close()
}

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// EmbeddingService caches vectors produced by an inner service.
// Cache failures are logged and fall through to the inner service.
type EmbeddingService struct {
	inner  driven.EmbeddingService
	store  Store
	logger *zap.Logger
}

// New creates a caching decorator around inner.
func New(inner driven.EmbeddingService, store Store, logger *zap.Logger) *EmbeddingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmbeddingService{inner: inner, store: store, logger: logger}
}

// Embed returns a cached vector or calls the inner service.
func (c *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	key := c.key(text)
	if vec, ok := c.get(ctx, key); ok {
		return vec, nil
	}
	vec, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.put(ctx, key, vec)
	return vec, nil
}

// EmbedBatch serves hits from the cache and sends only the misses to the
// inner service, preserving input order.
func (c *EmbeddingService) EmbedBatch(ctx context.Context, texts []string, batchSize int) ([][]float32, error) {
	out := make([][]float32, len(texts))
	keys := make([]string, len(texts))
	var missIdx []int
	var missTexts []string

	for i, text := range texts {
		keys[i] = c.key(text)
		if vec, ok := c.get(ctx, keys[i]); ok {
			out[i] = vec
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}
	if len(missTexts) == 0 {
		return out, nil
	}

	vecs, err := c.inner.EmbedBatch(ctx, missTexts, batchSize)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(missTexts) {
		return nil, fmt.Errorf("cache: inner returned %d vectors for %d inputs", len(vecs), len(missTexts))
	}
	for j, i := range missIdx {
		out[i] = vecs[j]
		c.put(ctx, keys[i], vecs[j])
	}
	return out, nil
}

// Dimensions returns the inner service's vector size.
func (c *EmbeddingService) Dimensions() int { return c.inner.Dimensions() }

// ModelName returns the inner service's model name.
func (c *EmbeddingService) ModelName() string { return c.inner.ModelName() }

// Ping checks the inner service.
func (c *EmbeddingService) Ping(ctx context.Context) error { return c.inner.Ping(ctx) }

// Close closes the store and the inner service.
func (c *EmbeddingService) Close() error {
	c.store.Close()
	return c.inner.Close()
}

func (c *EmbeddingService) key(text string) string {
	h := sha256.Sum256([]byte(c.inner.ModelName() + "\x00" + text))
	return keyPrefix + hex.EncodeToString(h[:])
}

func (c *EmbeddingService) get(ctx context.Context, key string) ([]float32, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrMiss) {
			c.logger.Warn("embedding cache get failed", zap.String("key", key), zap.Error(err))
		}
		metrics.EmbeddingCacheTotal.WithLabelValues("miss").Inc()
		return nil, false
	}

	vec, err := decode(data, c.inner.Dimensions())
	if err != nil {
		c.logger.Warn("embedding cache entry invalid", zap.String("key", key), zap.Error(err))
		metrics.EmbeddingCacheTotal.WithLabelValues("miss").Inc()
		return nil, false
	}
	metrics.EmbeddingCacheTotal.WithLabelValues("hit").Inc()
	return vec, true
}

func (c *EmbeddingService) put(ctx context.Context, key string, vec []float32) {
	if err := c.store.Set(ctx, key, encode(vec)); err != nil {
		c.logger.Warn("embedding cache set failed", zap.String("key", key), zap.Error(err))
	}
}

func encode(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decode(data []byte, dims int) ([]float32, error) {
	if len(data) != dims*4 {
		return nil, fmt.Errorf("cache: entry has %d bytes, want %d", len(data), dims*4)
	}
	vec := make([]float32, dims)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec, nil
}
