package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/custodia-labs/docket/internal/core/domain"
	"github.com/custodia-labs/docket/internal/core/ports/driving"
	"github.com/custodia-labs/docket/internal/logger"
)

var (
	ingestApp     string
	ingestType    string
	ingestWorkers int
	ingestJSON    bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [file...]",
	Short: "Ingest PDF and image files",
	Long: `Extracts text from each file (OCR for scanned pages), splits it into
chunks, embeds them and stores the result under the application reference.

Files are processed concurrently. Identical content already ingested for
the application is reported as already_ingested and left untouched.
Mostly-image PDFs such as drawing sets are skipped.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestApp, "app", "a", "", "application reference owning the documents (required)")
	ingestCmd.Flags().StringVarP(&ingestType, "type", "t", "", "document type to record instead of classifying")
	ingestCmd.Flags().IntVarP(&ingestWorkers, "workers", "w", 0, "concurrent files (default from config)")
	ingestCmd.Flags().BoolVar(&ingestJSON, "json", false, "output outcomes as JSON")
	_ = ingestCmd.MarkFlagRequired("app")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	svc, err := loadServices(cmd)
	if err != nil {
		return err
	}

	workers := ingestWorkers
	if workers <= 0 {
		workers = svc.Workers
	}

	outcomes := ingestFiles(cmd.Context(), svc.Ingest, args, ingestApp, ingestType, workers, svc.Logger)

	if ingestJSON {
		data, err := json.MarshalIndent(outcomes, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal outcomes: %w", err)
		}
		cmd.Println(string(data))
	} else {
		printOutcomes(cmd, outcomes)
	}

	failed := 0
	for _, o := range outcomes {
		if o.Status == domain.StatusError {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(outcomes))
	}
	return nil
}

// ingestFiles runs up to workers ingestions at once and returns the
// outcomes in input order.
func ingestFiles(
	ctx context.Context,
	svc driving.IngestService,
	paths []string,
	ref, docType string,
	workers int,
	log *zap.Logger,
) []*domain.IngestOutcome {
	if workers <= 0 {
		workers = 1
	}
	log = logger.OrNop(log)

	outcomes := make([]*domain.IngestOutcome, len(paths))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < min(workers, len(paths)); w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			wctx := logger.WithContext(ctx, log.With(zap.Int("worker", worker)))
			for i := range jobs {
				out, err := svc.Ingest(wctx, domain.IngestRequest{
					Path:           paths[i],
					ApplicationRef: ref,
					DocumentType:   docType,
				})
				if out == nil {
					out = &domain.IngestOutcome{
						Status:         domain.StatusError,
						SourceFilename: filepath.Base(paths[i]),
						ErrorKind:      domain.KindOf(err),
					}
					if err != nil {
						out.Message = err.Error()
					}
				}
				outcomes[i] = out
			}
		}(w)
	}

	for i := range paths {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return outcomes
}

func printOutcomes(cmd *cobra.Command, outcomes []*domain.IngestOutcome) {
	counts := map[domain.IngestStatus]int{}
	for _, o := range outcomes {
		counts[o.Status]++

		switch o.Status {
		case domain.StatusSuccess:
			cmd.Printf("  ✓ %s  %s  %d chunks  %s  %s\n",
				o.SourceFilename, o.DocumentType, o.ChunksCreated, o.ExtractionMethod, o.DocumentID)
		case domain.StatusAlreadyIngested:
			cmd.Printf("  = %s  already ingested  %s\n", o.SourceFilename, o.DocumentID)
		case domain.StatusSkipped:
			cmd.Printf("  - %s  skipped (%s, image ratio %.2f)\n", o.SourceFilename, o.Reason, o.ImageRatio)
		default:
			cmd.Printf("  ✗ %s  %s: %s\n", o.SourceFilename, o.ErrorKind, o.Message)
		}
		for _, w := range o.Warnings {
			cmd.Printf("      warning: %s\n", w)
		}
	}

	cmd.Println()
	cmd.Printf("Ingested %d, already ingested %d, skipped %d, failed %d\n",
		counts[domain.StatusSuccess], counts[domain.StatusAlreadyIngested],
		counts[domain.StatusSkipped], counts[domain.StatusError])
}
