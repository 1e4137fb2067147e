package driving

import (
	"context"

	"github.com/custodia-labs/docket/internal/core/domain"
)

// IngestService ingests one file per call.
type IngestService interface {
	// Ingest runs the pipeline for req. The outcome is always non-nil.
	// When the outcome status is error, the returned error wraps the
	// originating domain error.
	Ingest(ctx context.Context, req domain.IngestRequest) (*domain.IngestOutcome, error)
}
