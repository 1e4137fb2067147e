package driven

import (
	"context"

	"github.com/custodia-labs/docket/internal/core/domain"
)

// TextExtractor turns PDF and raster image files into page texts.
type TextExtractor interface {
	// Detect returns the file kind, or domain.ErrUnsupportedFileType.
	Detect(path string) (domain.FileKind, error)

	// ImageRatio returns the average fraction of page area covered by images.
	// It does not run OCR and is cheap enough to gate extraction.
	ImageRatio(ctx context.Context, path string) (float64, error)

	// Extract returns per-page text. Fails with domain.ErrExtractionFailed
	// on engine errors and domain.ErrNoContent when nothing was extracted.
	Extract(ctx context.Context, path string) (*domain.ExtractionResult, error)
}
