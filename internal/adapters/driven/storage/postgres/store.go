// Package postgres provides a VectorStore backed by PostgreSQL with the
// pgvector extension. Similarity ranking runs in the database using the
// cosine distance operator.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/custodia-labs/docket/internal/adapters/driven/storage/postgres/migrations"
	"github.com/custodia-labs/docket/internal/core/domain"
	"github.com/custodia-labs/docket/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

// Store is a PostgreSQL-backed VectorStore.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore connects to dsn and applies pending migrations.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres: dsn is required")
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	s := &Store{pool: pool}
	if err := s.migrate(ctx, migrations.FS); err != nil {
		pool.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) migrate(ctx context.Context, fsys fs.FS) error {
	if _, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMPTZ DEFAULT now()
		)`); err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	if err := s.pool.QueryRow(ctx,
		"SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}
	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		tx, err := s.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("beginning migration %s: %w", name, err)
		}
		if _, err := tx.Exec(ctx, string(content)); err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := tx.Exec(ctx, "INSERT INTO schema_migrations (version) VALUES ($1)", version); err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("committing migration %s: %w", name, err)
		}
	}
	return nil
}

const documentColumns = `id, source_path, source_filename, application_ref, document_type,
	file_hash, chunk_count, extraction_method, contains_drawings, image_ratio, ingested_at`

// Lookup retrieves a document by ID.
func (s *Store) Lookup(ctx context.Context, documentID string) (*domain.Document, error) {
	row := s.pool.QueryRow(ctx, "SELECT "+documentColumns+" FROM documents WHERE id = $1", documentID)
	doc, err := scanDocument(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrDocumentNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// ListByApplication returns every document owned by ref, oldest first.
func (s *Store) ListByApplication(ctx context.Context, ref string) ([]domain.Document, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT "+documentColumns+" FROM documents WHERE application_ref = $1 ORDER BY ingested_at, id", ref)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return docs, nil
}

// UpsertDocument stores the document and replaces its chunks in one transaction.
func (s *Store) UpsertDocument(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) error {
	if doc.IngestedAt.IsZero() {
		doc.IngestedAt = time.Now().UTC()
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx upsert document: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if _, err := tx.Exec(ctx, "DELETE FROM chunks WHERE document_id = $1", doc.ID); err != nil {
		return fmt.Errorf("delete old chunks: %w", err)
	}

	_, err = tx.Exec(ctx, `
INSERT INTO documents (`+documentColumns+`)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (id) DO UPDATE SET
  source_path = EXCLUDED.source_path,
  source_filename = EXCLUDED.source_filename,
  application_ref = EXCLUDED.application_ref,
  document_type = EXCLUDED.document_type,
  file_hash = EXCLUDED.file_hash,
  chunk_count = EXCLUDED.chunk_count,
  extraction_method = EXCLUDED.extraction_method,
  contains_drawings = EXCLUDED.contains_drawings,
  image_ratio = EXCLUDED.image_ratio,
  ingested_at = EXCLUDED.ingested_at`,
		doc.ID, doc.SourcePath, doc.SourceFilename, doc.ApplicationRef, doc.DocumentType,
		doc.FileHash, doc.ChunkCount, string(doc.ExtractionMethod), doc.ContainsDrawings,
		doc.ImageRatio, doc.IngestedAt.UTC())
	if err != nil {
		return fmt.Errorf("upsert document %s: %w", doc.ID, err)
	}

	batch := &pgx.Batch{}
	for i := range chunks {
		c := &chunks[i]
		batch.Queue(`
INSERT INTO chunks (id, document_id, application_ref, source_filename, document_type,
  extraction_method, chunk_index, total_chunks, page_numbers, dominant_page,
  text, overlap, char_count, word_count, embedding)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
  CASE WHEN $15::text IS NULL THEN NULL ELSE $15::vector END)`,
			c.ID, doc.ID, c.ApplicationRef, c.SourceFilename, c.DocumentType,
			string(c.ExtractionMethod), c.Index, c.TotalChunks, domain.FormatPages(c.PageNumbers),
			c.DominantPage, c.Text, c.Overlap, c.CharCount, c.WordCount, vectorArg(c.Embedding))
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert chunks: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit document tx: %w", err)
	}
	return nil
}

// DeleteDocument removes a document; its chunks cascade.
func (s *Store) DeleteDocument(ctx context.Context, documentID string) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM documents WHERE id = $1", documentID)
	if err != nil {
		return fmt.Errorf("delete document %s: %w", documentID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

const chunkColumns = `id, document_id, application_ref, source_filename, document_type,
	extraction_method, chunk_index, total_chunks, page_numbers, dominant_page,
	text, overlap, char_count, word_count`

// Chunks returns a document's chunks in index order, with embeddings.
func (s *Store) Chunks(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT "+chunkColumns+", embedding::text FROM chunks WHERE document_id = $1 ORDER BY chunk_index",
		documentID)
	if err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}
	defer rows.Close()

	var chunks []domain.Chunk
	for rows.Next() {
		var vec *string
		c, err := scanChunk(rows, &vec)
		if err != nil {
			return nil, err
		}
		if vec != nil {
			if c.Embedding, err = parseVector(*vec); err != nil {
				return nil, fmt.Errorf("chunk %s: %w", c.ID, err)
			}
		}
		chunks = append(chunks, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunks: %w", err)
	}
	return chunks, nil
}

// Query ranks chunks by cosine distance inside the database.
func (s *Store) Query(
	ctx context.Context, embedding []float32, filters []domain.Filter, k int,
) ([]domain.SearchResult, error) {
	if k <= 0 {
		return nil, nil
	}
	where, args, err := buildWhere(filters, 3)
	if err != nil {
		return nil, err
	}
	args = append([]any{ToLiteral(embedding), k}, args...)

	query := `
SELECT ` + chunkColumns + `, embedding <=> $1::vector AS distance
FROM chunks
WHERE embedding IS NOT NULL` + where + `
ORDER BY distance, document_id, chunk_index
LIMIT $2`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query vector search: %w", err)
	}
	defer rows.Close()

	results := make([]domain.SearchResult, 0, k)
	for rows.Next() {
		var distance float64
		c, err := scanChunk(rows, &distance)
		if err != nil {
			return nil, err
		}
		if distance < 0 {
			distance = 0
		}
		results = append(results, domain.SearchResult{
			Chunk:    *c,
			Score:    domain.RelevanceScore(distance),
			Distance: distance,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate search rows: %w", err)
	}
	return results, nil
}

// buildWhere renders filters as AND clauses numbered from first.
// Filter fields share their names with chunk columns.
func buildWhere(filters []domain.Filter, first int) (string, []any, error) {
	var b strings.Builder
	args := make([]any, 0, len(filters))
	for _, f := range filters {
		if err := f.Validate(); err != nil {
			return "", nil, err
		}
		n := first + len(args)
		fmt.Fprintf(&b, " AND %s = ANY($%d)", f.Field, n)
		args = append(args, f.Values)
	}
	return b.String(), args, nil
}

func scanDocument(row pgx.Row) (*domain.Document, error) {
	var doc domain.Document
	var method string
	if err := row.Scan(&doc.ID, &doc.SourcePath, &doc.SourceFilename, &doc.ApplicationRef,
		&doc.DocumentType, &doc.FileHash, &doc.ChunkCount, &method, &doc.ContainsDrawings,
		&doc.ImageRatio, &doc.IngestedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan document: %w", err)
	}
	doc.ExtractionMethod = domain.ExtractionMethod(method)
	doc.IngestedAt = doc.IngestedAt.UTC()
	return &doc, nil
}

// scanChunk scans chunkColumns followed by one extra destination.
func scanChunk(row pgx.Row, extra any) (*domain.Chunk, error) {
	var c domain.Chunk
	var method, pages string
	if err := row.Scan(&c.ID, &c.DocumentID, &c.ApplicationRef, &c.SourceFilename,
		&c.DocumentType, &method, &c.Index, &c.TotalChunks, &pages, &c.DominantPage,
		&c.Text, &c.Overlap, &c.CharCount, &c.WordCount, extra); err != nil {
		return nil, fmt.Errorf("scan chunk: %w", err)
	}
	c.ExtractionMethod = domain.ExtractionMethod(method)
	c.PageNumbers = domain.ParsePages(pages)
	return &c, nil
}

// ToLiteral renders a vector in pgvector's text format.
func ToLiteral(v []float32) string {
	parts := make([]string, 0, len(v))
	for _, x := range v {
		parts = append(parts, strconv.FormatFloat(float64(x), 'g', -1, 32))
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func vectorArg(v []float32) *string {
	if len(v) == 0 {
		return nil
	}
	lit := ToLiteral(v)
	return &lit
}

// parseVector parses pgvector's text format.
func parseVector(s string) ([]float32, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "[") || !strings.HasSuffix(s, "]") {
		return nil, fmt.Errorf("malformed vector %q", s)
	}
	body := s[1 : len(s)-1]
	if body == "" {
		return nil, nil
	}
	parts := strings.Split(body, ",")
	out := make([]float32, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil, fmt.Errorf("malformed vector element %q: %w", p, err)
		}
		out[i] = float32(f)
	}
	return out, nil
}
