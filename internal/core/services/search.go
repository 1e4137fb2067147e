package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/custodia-labs/docket/internal/core/domain"
	"github.com/custodia-labs/docket/internal/core/ports/driven"
	"github.com/custodia-labs/docket/internal/core/ports/driving"
	"github.com/custodia-labs/docket/internal/logger"
	"github.com/custodia-labs/docket/internal/metrics"
)

// Ensure SearchService implements the interface.
var _ driving.SearchService = (*SearchService)(nil)

// Result limits.
const (
	DefaultMaxResults = 10
	MaxResultsCap     = 100
)

// SearchService embeds queries and ranks stored chunks against them.
type SearchService struct {
	embedder driven.EmbeddingService
	index    driven.ChunkIndex
	logger   *zap.Logger
}

// NewSearchService creates a new search service. The embedder must be the
// one used at ingestion time.
func NewSearchService(embedder driven.EmbeddingService, index driven.ChunkIndex, log *zap.Logger) *SearchService {
	return &SearchService{
		embedder: embedder,
		index:    index,
		logger:   logger.OrNop(log),
	}
}

// Search returns the chunks nearest to query, best first.
func (s *SearchService) Search(
	ctx context.Context, query string, opts domain.SearchOptions,
) ([]domain.SearchResult, error) {
	results, err := s.search(ctx, query, opts)
	status := "success"
	if err != nil {
		status = string(domain.KindOf(err))
	}
	metrics.SearchRequestsTotal.WithLabelValues(status).Inc()
	return results, err
}

func (s *SearchService) search(
	ctx context.Context, query string, opts domain.SearchOptions,
) ([]domain.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is empty", domain.ErrInvalidInput)
	}

	limit := opts.MaxResults
	if limit <= 0 {
		limit = DefaultMaxResults
	}
	if limit > MaxResultsCap {
		limit = MaxResultsCap
	}

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	filters := opts.Filters()
	results, err := s.index.Query(ctx, vec, filters, limit)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}

	logger.FromContext(ctx, s.logger).Debug("search",
		zap.Int("query_chars", len(query)),
		zap.Int("filters", len(filters)),
		zap.Int("limit", limit),
		zap.Int("results", len(results)))

	if results == nil {
		results = []domain.SearchResult{}
	}
	return results, nil
}
