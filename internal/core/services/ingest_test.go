package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docket/internal/adapters/driven/embedding/local"
	"github.com/custodia-labs/docket/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docket/internal/core/domain"
)

func TestIngest_Success(t *testing.T) {
	ex := &mockExtractor{
		kind:  domain.FileKindPDF,
		ratio: 0.1,
		result: textPages(
			longText("The site is located within the settlement boundary.", 30),
			longText("Traffic generated by the proposal is negligible.", 30)),
	}
	p := newPipeline(t, ex, IngestConfig{ChunkSize: 400, ChunkOverlap: 80})
	path := writeFile(t, "Planning_Statement.pdf", "%PDF-1.7 one")

	out, err := p.ingest.Ingest(context.Background(), domain.IngestRequest{Path: path, ApplicationRef: "23/0001/FUL"})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusSuccess, out.Status)
	assert.NotEmpty(t, out.DocumentID)
	assert.Equal(t, "planning_statement", out.DocumentType)
	assert.Equal(t, domain.MethodTextLayer, out.ExtractionMethod)
	assert.Greater(t, out.ChunksCreated, 2)
	assert.Empty(t, out.ErrorKind)

	doc, err := p.store.Lookup(context.Background(), out.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, "23/0001/FUL", doc.ApplicationRef)
	assert.Equal(t, out.ChunksCreated, doc.ChunkCount)

	chunks, err := p.store.Chunks(context.Background(), out.DocumentID)
	require.NoError(t, err)
	require.Len(t, chunks, out.ChunksCreated)
	for i, c := range chunks {
		assert.Equal(t, i, c.Index)
		assert.Equal(t, len(chunks), c.TotalChunks)
		assert.Equal(t, ChunkID(out.DocumentID, c.DominantPage, i), c.ID)
		assert.Equal(t, "planning_statement", c.DocumentType)
		assert.Len(t, c.Embedding, domain.EmbeddingDimensions)
		assert.NotEmpty(t, c.PageNumbers)
	}
}

func TestIngest_AlreadyIngested(t *testing.T) {
	ex := &mockExtractor{kind: domain.FileKindPDF, result: textPages(longText("Some text.", 20))}
	p := newPipeline(t, ex, IngestConfig{})
	path := writeFile(t, "a.pdf", "%PDF same bytes")
	ctx := context.Background()

	first, err := p.ingest.Ingest(ctx, domain.IngestRequest{Path: path, ApplicationRef: "APP/1"})
	require.NoError(t, err)

	second, err := p.ingest.Ingest(ctx, domain.IngestRequest{Path: path, ApplicationRef: "APP/1"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAlreadyIngested, second.Status)
	assert.Equal(t, first.DocumentID, second.DocumentID)
	assert.Equal(t, 0, second.ChunksCreated)
	assert.Equal(t, int32(1), ex.extractCalls.Load())

	// A copy with the same bytes under another name is still a duplicate.
	copyPath := writeFile(t, "renamed.pdf", "%PDF same bytes")
	third, err := p.ingest.Ingest(ctx, domain.IngestRequest{Path: copyPath, ApplicationRef: "APP/1"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAlreadyIngested, third.Status)
}

func TestIngest_SameBytesOtherApplication(t *testing.T) {
	ex := &mockExtractor{kind: domain.FileKindPDF, result: textPages(longText("Shared text.", 20))}
	p := newPipeline(t, ex, IngestConfig{})
	path := writeFile(t, "a.pdf", "%PDF shared")
	ctx := context.Background()

	a, err := p.ingest.Ingest(ctx, domain.IngestRequest{Path: path, ApplicationRef: "APP/1"})
	require.NoError(t, err)
	b, err := p.ingest.Ingest(ctx, domain.IngestRequest{Path: path, ApplicationRef: "APP/2"})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusSuccess, b.Status)
	assert.NotEqual(t, a.DocumentID, b.DocumentID)
}

func TestIngest_SkipsImageBased(t *testing.T) {
	ex := &mockExtractor{kind: domain.FileKindPDF, ratio: 0.85, result: textPages("unused")}
	p := newPipeline(t, ex, IngestConfig{})
	path := writeFile(t, "drawings.pdf", "%PDF img")

	out, err := p.ingest.Ingest(context.Background(), domain.IngestRequest{Path: path, ApplicationRef: "APP/1"})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusSkipped, out.Status)
	assert.Equal(t, domain.SkipReasonImageBased, out.Reason)
	assert.InDelta(t, 0.85, out.ImageRatio, 1e-9)
	assert.Equal(t, int32(0), ex.extractCalls.Load())

	_, err = p.store.Lookup(context.Background(), out.DocumentID)
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
}

func TestIngest_RatioAtThresholdIsNotSkipped(t *testing.T) {
	ex := &mockExtractor{kind: domain.FileKindPDF, ratio: 0.7, result: textPages(longText("Text.", 20))}
	p := newPipeline(t, ex, IngestConfig{})
	path := writeFile(t, "edge.pdf", "%PDF edge")

	out, err := p.ingest.Ingest(context.Background(), domain.IngestRequest{Path: path, ApplicationRef: "APP/1"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSuccess, out.Status)
}

func TestIngest_ImagesAreNotRatioChecked(t *testing.T) {
	ex := &mockExtractor{kind: domain.FileKindImage, ratio: 1, result: textPages(longText("Scanned letter.", 10))}
	ex.result.Pages[0].Method = domain.MethodOCR
	p := newPipeline(t, ex, IngestConfig{})
	path := writeFile(t, "letter.png", "png")

	out, err := p.ingest.Ingest(context.Background(), domain.IngestRequest{Path: path, ApplicationRef: "APP/1"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSuccess, out.Status)
	assert.Equal(t, domain.MethodOCR, out.ExtractionMethod)
}

func TestIngest_DocumentTypeOverride(t *testing.T) {
	ex := &mockExtractor{kind: domain.FileKindPDF, result: textPages(longText("Text.", 20))}
	p := newPipeline(t, ex, IngestConfig{})
	path := writeFile(t, "Planning_Statement.pdf", "%PDF override")

	out, err := p.ingest.Ingest(context.Background(),
		domain.IngestRequest{Path: path, ApplicationRef: "APP/1", DocumentType: "appeal_statement"})
	require.NoError(t, err)
	assert.Equal(t, "appeal_statement", out.DocumentType)
}

func TestIngest_ClassificationFallback(t *testing.T) {
	ex := &mockExtractor{kind: domain.FileKindPDF, result: textPages(longText("Nothing recognisable here.", 20))}
	p := newPipeline(t, ex, IngestConfig{})
	path := writeFile(t, "scan0001.pdf", "%PDF other")

	out, err := p.ingest.Ingest(context.Background(), domain.IngestRequest{Path: path, ApplicationRef: "APP/1"})
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultDocumentType, out.DocumentType)
}

func TestIngest_Drawings(t *testing.T) {
	ex := &mockExtractor{kind: domain.FileKindPDF, ratio: 0.4, result: textPages(longText("Elevation notes.", 20))}
	ex.result.ImageRatio = 0.4
	p := newPipeline(t, ex, IngestConfig{})
	path := writeFile(t, "notes.pdf", "%PDF drawings")

	out, err := p.ingest.Ingest(context.Background(), domain.IngestRequest{Path: path, ApplicationRef: "APP/1"})
	require.NoError(t, err)
	assert.True(t, out.ContainsDrawings)
}

func TestIngest_Warnings(t *testing.T) {
	ex := &mockExtractor{kind: domain.FileKindPDF, result: textPages(longText("Faint scan text.", 20))}
	ex.result.Pages[0].Method = domain.MethodOCR
	ex.result.Pages[0].LowConfidence = true
	ex.result.Pages[0].OCRConfidence = 42
	p := newPipeline(t, ex, IngestConfig{ChunkSize: 2000, EmbeddingMaxChars: 100})
	path := writeFile(t, "faint.pdf", "%PDF faint")

	out, err := p.ingest.Ingest(context.Background(), domain.IngestRequest{Path: path, ApplicationRef: "APP/1"})
	require.NoError(t, err)
	require.Len(t, out.Warnings, 2)
	assert.Contains(t, out.Warnings[0], "low OCR confidence")
	assert.Contains(t, out.Warnings[1], "truncated")
}

func TestIngest_Errors(t *testing.T) {
	tests := []struct {
		name     string
		ex       *mockExtractor
		req      func(t *testing.T) domain.IngestRequest
		wantKind domain.ErrorKind
		wantErr  error
	}{
		{
			name: "missing application ref",
			ex:   &mockExtractor{kind: domain.FileKindPDF},
			req: func(t *testing.T) domain.IngestRequest {
				return domain.IngestRequest{Path: writeFile(t, "a.pdf", "x"), ApplicationRef: "  "}
			},
			wantKind: domain.KindInvalidInput,
			wantErr:  domain.ErrInvalidInput,
		},
		{
			name: "missing file",
			ex:   &mockExtractor{kind: domain.FileKindPDF},
			req: func(t *testing.T) domain.IngestRequest {
				return domain.IngestRequest{Path: "/nonexistent/a.pdf", ApplicationRef: "APP/1"}
			},
			wantKind: domain.KindFileNotFound,
			wantErr:  domain.ErrFileNotFound,
		},
		{
			name: "unsupported type",
			ex:   &mockExtractor{},
			req: func(t *testing.T) domain.IngestRequest {
				return domain.IngestRequest{Path: writeFile(t, "a.docx", "x"), ApplicationRef: "APP/1"}
			},
			wantKind: domain.KindUnsupportedFileType,
			wantErr:  domain.ErrUnsupportedFileType,
		},
		{
			name: "extraction failure",
			ex:   &mockExtractor{kind: domain.FileKindPDF, extractErr: domain.ErrExtractionFailed},
			req: func(t *testing.T) domain.IngestRequest {
				return domain.IngestRequest{Path: writeFile(t, "a.pdf", "x"), ApplicationRef: "APP/1"}
			},
			wantKind: domain.KindExtractionFailed,
			wantErr:  domain.ErrExtractionFailed,
		},
		{
			name: "no content",
			ex:   &mockExtractor{kind: domain.FileKindPDF, extractErr: domain.ErrNoContent},
			req: func(t *testing.T) domain.IngestRequest {
				return domain.IngestRequest{Path: writeFile(t, "a.pdf", "x"), ApplicationRef: "APP/1"}
			},
			wantKind: domain.KindNoContent,
			wantErr:  domain.ErrNoContent,
		},
		{
			name: "no chunks",
			ex:   &mockExtractor{kind: domain.FileKindPDF, result: textPages("   ")},
			req: func(t *testing.T) domain.IngestRequest {
				return domain.IngestRequest{Path: writeFile(t, "a.pdf", "x"), ApplicationRef: "APP/1"}
			},
			wantKind: domain.KindNoChunks,
			wantErr:  domain.ErrNoChunks,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newPipeline(t, tt.ex, IngestConfig{})

			out, err := p.ingest.Ingest(context.Background(), tt.req(t))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			require.NotNil(t, out)
			assert.Equal(t, domain.StatusError, out.Status)
			assert.Equal(t, tt.wantKind, out.ErrorKind)
			assert.NotEmpty(t, out.Message)
		})
	}
}

func TestIngest_EmbeddingFailureStoresNothing(t *testing.T) {
	ex := &mockExtractor{kind: domain.FileKindPDF, result: textPages(longText("Text.", 20))}
	emb := &failingEmbedder{EmbeddingService: local.NewEmbeddingService(local.Config{}), err: errors.New("model offline")}
	p := newPipelineWith(t, ex, IngestConfig{}, emb, nil)
	path := writeFile(t, "a.pdf", "%PDF embed")

	out, err := p.ingest.Ingest(context.Background(), domain.IngestRequest{Path: path, ApplicationRef: "APP/1"})
	require.Error(t, err)
	assert.Equal(t, domain.KindInternal, out.ErrorKind)

	docs, err := p.store.ListByApplication(context.Background(), "APP/1")
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestIngest_StoreFailure(t *testing.T) {
	ex := &mockExtractor{kind: domain.FileKindPDF, result: textPages(longText("Text.", 20))}
	store := &failingStore{VectorStore: memory.NewVectorStore()}
	p := newPipelineWith(t, ex, IngestConfig{}, nil, store)
	path := writeFile(t, "a.pdf", "%PDF store")

	out, err := p.ingest.Ingest(context.Background(), domain.IngestRequest{Path: path, ApplicationRef: "APP/1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, domain.StatusError, out.Status)
}

func TestIngest_CancelledBeforeCommit(t *testing.T) {
	ex := &mockExtractor{kind: domain.FileKindPDF, result: textPages(longText("Text.", 20))}
	p := newPipeline(t, ex, IngestConfig{})
	path := writeFile(t, "a.pdf", "%PDF cancel")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, err := p.ingest.Ingest(ctx, domain.IngestRequest{Path: path, ApplicationRef: "APP/1"})
	require.Error(t, err)
	assert.Equal(t, domain.StatusError, out.Status)

	docs, err := p.store.ListByApplication(context.Background(), "APP/1")
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestIngest_ConcurrentDuplicates(t *testing.T) {
	ex := &mockExtractor{kind: domain.FileKindPDF, result: textPages(longText("Text.", 20))}
	p := newPipeline(t, ex, IngestConfig{})
	path := writeFile(t, "a.pdf", "%PDF concurrent")

	var wg sync.WaitGroup
	statuses := make(chan domain.IngestStatus, 6)
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := p.ingest.Ingest(context.Background(), domain.IngestRequest{Path: path, ApplicationRef: "APP/1"})
			assert.NoError(t, err)
			statuses <- out.Status
		}()
	}
	wg.Wait()
	close(statuses)

	counts := map[domain.IngestStatus]int{}
	for s := range statuses {
		counts[s]++
	}
	assert.Equal(t, 1, counts[domain.StatusSuccess])
	assert.Equal(t, 5, counts[domain.StatusAlreadyIngested])
}

func TestIngest_TextRoundTrip(t *testing.T) {
	page1 := strings.TrimSpace(longText("First page sentence, with clauses; and more.", 25))
	page2 := strings.TrimSpace(longText("Second page line.\nAnother line here.", 20))
	ex := &mockExtractor{kind: domain.FileKindPDF, result: textPages(page1, page2)}
	p := newPipeline(t, ex, IngestConfig{ChunkSize: 300, ChunkOverlap: 60})
	path := writeFile(t, "a.pdf", "%PDF roundtrip")
	ctx := context.Background()

	out, err := p.ingest.Ingest(ctx, domain.IngestRequest{Path: path, ApplicationRef: "APP/1"})
	require.NoError(t, err)

	text, err := p.documents.GetText(ctx, out.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, page1+"\n\n"+page2, text)
}

func TestIngest_ApplicationRefIsTrimmedEverywhere(t *testing.T) {
	ex := &mockExtractor{kind: domain.FileKindPDF, result: textPages(longText("Cycle parking for 24 bicycles.", 20))}
	p := newPipeline(t, ex, IngestConfig{})
	path := writeFile(t, "Transport_Statement.pdf", "%PDF transport")
	ctx := context.Background()

	out, err := p.ingest.Ingest(ctx, domain.IngestRequest{Path: path, ApplicationRef: " APP/9 "})
	require.NoError(t, err)
	require.Equal(t, domain.StatusSuccess, out.Status)

	docs, err := p.documents.ListDocuments(ctx, " APP/9")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "APP/9", docs[0].ApplicationRef)

	results, err := p.search.Search(ctx, "cycle parking", domain.SearchOptions{ApplicationRef: "APP/9 "})
	require.NoError(t, err)
	assert.NotEmpty(t, results)
}

func TestIngest_SkipThresholdConfig(t *testing.T) {
	ex := &mockExtractor{kind: domain.FileKindPDF, ratio: 0.05, result: textPages(longText("Text.", 20))}

	p := newPipeline(t, ex, IngestConfig{SkipImageRatio: 0.001})
	out, err := p.ingest.Ingest(context.Background(), domain.IngestRequest{
		Path: writeFile(t, "photos.pdf", "%PDF photos"), ApplicationRef: "APP/1",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSkipped, out.Status)

	ex.ratio = 0.5
	p = newPipeline(t, ex, IngestConfig{})
	out, err = p.ingest.Ingest(context.Background(), domain.IngestRequest{
		Path: writeFile(t, "mostly_text.pdf", "%PDF text"), ApplicationRef: "APP/1",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSuccess, out.Status, "zero selects the 0.7 default")
}
