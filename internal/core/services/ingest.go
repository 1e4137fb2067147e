package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/custodia-labs/docket/internal/core/domain"
	"github.com/custodia-labs/docket/internal/core/ports/driven"
	"github.com/custodia-labs/docket/internal/core/ports/driving"
	"github.com/custodia-labs/docket/internal/logger"
	"github.com/custodia-labs/docket/internal/metrics"
)

// Ensure IngestService implements the interface.
var _ driving.IngestService = (*IngestService)(nil)

// IngestConfig holds the pipeline's tunables.
type IngestConfig struct {
	ChunkSize         int
	ChunkOverlap      int
	BatchSize         int
	EmbeddingMaxChars int
	// SkipImageRatio skips PDFs whose average image ratio is above it.
	// Zero selects the default. A small positive value such as 0.001 skips
	// any PDF that contains images.
	SkipImageRatio float64
	DrawingRatio   float64
}

// IngestConfigFromSettings picks the pipeline's tunables out of settings.
func IngestConfigFromSettings(s *domain.Settings) IngestConfig {
	return IngestConfig{
		ChunkSize:         s.Chunking.Size,
		ChunkOverlap:      s.Chunking.Overlap,
		BatchSize:         s.Embedding.BatchSize,
		EmbeddingMaxChars: s.Embedding.MaxChars,
		SkipImageRatio:    s.Ingest.SkipImageRatio,
		DrawingRatio:      s.Ingest.DrawingRatio,
	}
}

// IngestService runs the ingestion pipeline for one file at a time.
// Calls for different files may run concurrently; calls for the same
// content under the same application are serialised.
type IngestService struct {
	extractor  driven.TextExtractor
	chunker    driven.Chunker
	embedder   driven.EmbeddingService
	classifier driven.Classifier
	store      driven.VectorStore
	cfg        IngestConfig
	logger     *zap.Logger
	inflight   *keyedMutex
	now        func() time.Time
}

// NewIngestService creates the ingestion pipeline.
func NewIngestService(
	extractor driven.TextExtractor,
	chunker driven.Chunker,
	embedder driven.EmbeddingService,
	classifier driven.Classifier,
	store driven.VectorStore,
	cfg IngestConfig,
	log *zap.Logger,
) *IngestService {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = domain.DefaultChunkSize
	}
	if cfg.ChunkOverlap < 0 {
		cfg.ChunkOverlap = 0
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = domain.DefaultBatchSize
	}
	if cfg.EmbeddingMaxChars <= 0 {
		cfg.EmbeddingMaxChars = domain.DefaultEmbeddingMaxChars
	}
	if cfg.SkipImageRatio <= 0 {
		cfg.SkipImageRatio = domain.DefaultSkipImageRatio
	}
	if cfg.DrawingRatio <= 0 {
		cfg.DrawingRatio = domain.DefaultDrawingRatio
	}
	return &IngestService{
		extractor:  extractor,
		chunker:    chunker,
		embedder:   embedder,
		classifier: classifier,
		store:      store,
		cfg:        cfg,
		logger:     logger.OrNop(log),
		inflight:   newKeyedMutex(),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Ingest runs the pipeline for req and reports the outcome.
func (s *IngestService) Ingest(ctx context.Context, req domain.IngestRequest) (*domain.IngestOutcome, error) {
	start := time.Now()
	log := logger.FromContext(ctx, s.logger).With(
		zap.String("file", filepath.Base(req.Path)),
		zap.String("application_ref", req.ApplicationRef))

	out, err := s.ingest(ctx, req, log)
	if err != nil {
		out.Status = domain.StatusError
		out.ErrorKind = domain.KindOf(err)
		out.Message = err.Error()
		log.Warn("ingest failed", zap.String("kind", string(out.ErrorKind)), zap.Error(err))
	} else {
		log.Info("ingest finished",
			zap.String("status", string(out.Status)),
			zap.String("document_id", out.DocumentID),
			zap.Int("chunks", out.ChunksCreated),
			zap.Duration("took", time.Since(start)))
	}

	metrics.IngestOutcomesTotal.WithLabelValues(string(out.Status), string(out.ErrorKind)).Inc()
	metrics.IngestDuration.WithLabelValues(string(out.Status)).Observe(time.Since(start).Seconds())
	if out.Status == domain.StatusSuccess {
		metrics.IngestChunksTotal.Add(float64(out.ChunksCreated))
	}
	return out, err
}

//nolint:gocyclo // Pipeline orchestration with sequential steps
func (s *IngestService) ingest(
	ctx context.Context, req domain.IngestRequest, log *zap.Logger,
) (*domain.IngestOutcome, error) {
	out := &domain.IngestOutcome{SourceFilename: filepath.Base(req.Path)}

	// 1. VALIDATE
	ref := strings.TrimSpace(req.ApplicationRef)
	if ref == "" {
		return out, fmt.Errorf("%w: application_ref is required", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(req.Path) == "" {
		return out, fmt.Errorf("%w: path is required", domain.ErrInvalidInput)
	}
	kind, err := s.extractor.Detect(req.Path)
	if err != nil {
		return out, fmt.Errorf("detect: %w", err)
	}

	// 2. IDENTIFY
	hash, err := HashFile(req.Path)
	if err != nil {
		return out, fmt.Errorf("hash: %w", err)
	}
	docID := DocumentID(ref, hash)
	out.DocumentID = docID

	unlock := s.inflight.Lock(docID)
	defer unlock()

	// 3. DEDUPLICATE
	existing, err := s.store.Lookup(ctx, docID)
	switch {
	case err == nil:
		out.Status = domain.StatusAlreadyIngested
		out.DocumentType = existing.DocumentType
		out.ExtractionMethod = existing.ExtractionMethod
		out.ContainsDrawings = existing.ContainsDrawings
		out.ImageRatio = existing.ImageRatio
		out.Reason = "identical content already ingested for this application"
		return out, nil
	case !errors.Is(err, domain.ErrDocumentNotFound):
		return out, fmt.Errorf("lookup: %w", err)
	}

	// 4. SKIP IMAGE-BASED DOCUMENTS
	if kind == domain.FileKindPDF {
		ratio, err := s.extractor.ImageRatio(ctx, req.Path)
		if err != nil {
			return out, fmt.Errorf("image ratio: %w", err)
		}
		out.ImageRatio = ratio
		if ratio > s.cfg.SkipImageRatio {
			out.Status = domain.StatusSkipped
			out.Reason = domain.SkipReasonImageBased
			out.ContainsDrawings = ratio >= s.cfg.DrawingRatio
			return out, nil
		}
	}

	// 5. EXTRACT
	extracted, err := s.extractor.Extract(ctx, req.Path)
	if err != nil {
		return out, fmt.Errorf("extract: %w", err)
	}
	out.ExtractionMethod = extracted.Method()
	out.ImageRatio = extracted.ImageRatio
	out.ContainsDrawings = extracted.ContainsDrawings(s.cfg.DrawingRatio)
	for _, p := range extracted.Pages {
		if p.LowConfidence {
			out.Warnings = append(out.Warnings,
				fmt.Sprintf("page %d: low OCR confidence (%.0f)", p.Number, p.OCRConfidence))
		}
	}

	// 6. CHUNK
	chunks := s.chunker.Chunk(extracted.Pages, s.cfg.ChunkSize, s.cfg.ChunkOverlap)
	if len(chunks) == 0 {
		return out, fmt.Errorf("chunk: %w", domain.ErrNoChunks)
	}

	// 7. EMBED
	texts := make([]string, len(chunks))
	truncated := 0
	for i := range chunks {
		texts[i] = chunks[i].Text
		if chunks[i].CharCount > s.cfg.EmbeddingMaxChars {
			truncated++
		}
	}
	if truncated > 0 {
		out.Warnings = append(out.Warnings,
			fmt.Sprintf("%d chunk(s) truncated to %d characters for embedding", truncated, s.cfg.EmbeddingMaxChars))
	}
	vectors, err := s.embedder.EmbedBatch(ctx, texts, s.cfg.BatchSize)
	if err != nil {
		return out, fmt.Errorf("embed: %w", err)
	}
	if len(vectors) != len(chunks) {
		return out, fmt.Errorf("embed: got %d vectors for %d chunks", len(vectors), len(chunks))
	}

	// 8. CLASSIFY
	docType := strings.TrimSpace(req.DocumentType)
	if docType == "" {
		docType = s.classifier.Classify(out.SourceFilename, fullText(extracted.Pages))
	}
	out.DocumentType = docType

	// 9. STORE
	doc := &domain.Document{
		ID:               docID,
		SourcePath:       req.Path,
		SourceFilename:   out.SourceFilename,
		ApplicationRef:   ref,
		DocumentType:     docType,
		FileHash:         hash,
		ChunkCount:       len(chunks),
		ExtractionMethod: out.ExtractionMethod,
		ContainsDrawings: out.ContainsDrawings,
		ImageRatio:       out.ImageRatio,
		IngestedAt:       s.now(),
	}
	for i := range chunks {
		c := &chunks[i]
		c.ID = ChunkID(docID, c.DominantPage, c.Index)
		c.DocumentID = docID
		c.ApplicationRef = ref
		c.SourceFilename = doc.SourceFilename
		c.DocumentType = docType
		c.ExtractionMethod = doc.ExtractionMethod
		c.Embedding = vectors[i]
	}

	if err := ctx.Err(); err != nil {
		return out, err
	}
	if err := s.store.UpsertDocument(ctx, doc, chunks); err != nil {
		return out, fmt.Errorf("store: %w", err)
	}

	log.Debug("document stored",
		zap.String("document_id", docID),
		zap.String("document_type", docType),
		zap.String("method", string(doc.ExtractionMethod)),
		zap.Int("warnings", len(out.Warnings)))

	out.Status = domain.StatusSuccess
	out.ChunksCreated = len(chunks)
	return out, nil
}

// fullText joins page texts the way the chunker sees them.
func fullText(pages []domain.PageResult) string {
	parts := make([]string, 0, len(pages))
	for _, p := range pages {
		if p.Text != "" {
			parts = append(parts, p.Text)
		}
	}
	return strings.Join(parts, "\n\n")
}
