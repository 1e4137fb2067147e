// Package embedding holds the input handling shared by every embedding
// provider: validation, truncation, batching and rate limiting.
package embedding

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/custodia-labs/docket/internal/core/domain"
	"github.com/custodia-labs/docket/internal/metrics"
)

// Prepare validates text and truncates it to maxChars runes.
// Empty or whitespace-only text fails with domain.ErrInvalidInput.
// Truncation is logged as a warning and counted, never returned as an error.
func Prepare(text string, maxChars int, model string, log *zap.Logger) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: embedding input is empty", domain.ErrInvalidInput)
	}
	if maxChars <= 0 || utf8.RuneCountInString(text) <= maxChars {
		return text, nil
	}

	truncated := Truncate(text, maxChars)
	metrics.EmbeddingTruncationsTotal.WithLabelValues(model).Inc()
	if log != nil {
		log.Warn("embedding input truncated",
			zap.String("model", model),
			zap.Int("chars", utf8.RuneCountInString(text)),
			zap.Int("max_chars", maxChars))
	}
	return truncated, nil
}

// Truncate cuts text to at most n runes.
func Truncate(text string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for pos := range text {
		if i == n {
			return text[:pos]
		}
		i++
	}
	return text
}

// BatchFunc embeds one batch of already prepared texts.
type BatchFunc func(ctx context.Context, texts []string) ([][]float32, error)

// Batch splits texts into groups of batchSize, calls fn for each group in
// order and returns the vectors in input order. A non-positive batchSize
// sends everything in one call.
func Batch(ctx context.Context, texts []string, batchSize int, fn BatchFunc) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if batchSize <= 0 {
		batchSize = len(texts)
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += batchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := min(start+batchSize, len(texts))
		vecs, err := fn(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		if len(vecs) != end-start {
			return nil, fmt.Errorf("embedding: batch returned %d vectors for %d inputs", len(vecs), end-start)
		}
		out = append(out, vecs...)
	}
	return out, nil
}

// CheckDimensions verifies a provider returned the configured vector size.
func CheckDimensions(vec []float32, want int) error {
	if len(vec) != want {
		return fmt.Errorf("embedding: got %d dimensions, want %d", len(vec), want)
	}
	return nil
}
