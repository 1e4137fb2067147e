package domain

import (
	"fmt"
	"time"
)

// EmbeddingProvider identifies the embedding backend.
type EmbeddingProvider string

// Available embedding providers.
const (
	// EmbeddingProviderLocal is the built-in deterministic hashing model.
	EmbeddingProviderLocal EmbeddingProvider = "local"

	// EmbeddingProviderOllama is a local Ollama instance.
	EmbeddingProviderOllama EmbeddingProvider = "ollama"

	// EmbeddingProviderOpenAI is the OpenAI (or compatible) embeddings API.
	EmbeddingProviderOpenAI EmbeddingProvider = "openai"
)

// IsValid returns true if the provider is recognised.
func (p EmbeddingProvider) IsValid() bool {
	switch p {
	case EmbeddingProviderLocal, EmbeddingProviderOllama, EmbeddingProviderOpenAI:
		return true
	default:
		return false
	}
}

// StoreBackend identifies the vector store implementation.
type StoreBackend string

// Available store backends.
const (
	StoreBackendSQLite   StoreBackend = "sqlite"
	StoreBackendPostgres StoreBackend = "postgres"
	StoreBackendMemory   StoreBackend = "memory"
)

// IsValid returns true if the backend is recognised.
func (b StoreBackend) IsValid() bool {
	switch b {
	case StoreBackendSQLite, StoreBackendPostgres, StoreBackendMemory:
		return true
	default:
		return false
	}
}

// EmbeddingDimensions is the fixed vector size produced by every provider.
const EmbeddingDimensions = 384

// Settings is the complete runtime configuration.
type Settings struct {
	Log       LogSettings       `toml:"log"`
	OCR       OCRSettings       `toml:"ocr"`
	Ingest    IngestSettings    `toml:"ingest"`
	Chunking  ChunkSettings     `toml:"chunking"`
	Embedding EmbeddingSettings `toml:"embedding"`
	Store     StoreSettings     `toml:"store"`
	Document  DocumentSettings  `toml:"document"`
	Server    ServerSettings    `toml:"server"`
}

// LogSettings configures the logger.
type LogSettings struct {
	// Env selects the encoder: "dev", "prod" or "auto".
	Env   string `toml:"env"`
	Level string `toml:"level"`
}

// OCRSettings configures the OCR fallback.
type OCRSettings struct {
	Enabled bool `toml:"enabled"`

	// DPI is the rasterisation resolution.
	DPI int `toml:"dpi"`

	// MinChars is the text-layer length below which a page is OCRed.
	MinChars int `toml:"min_chars"`

	// WarnConfidence is the mean confidence under which output is flagged.
	WarnConfidence float64 `toml:"warn_confidence"`

	Language string `toml:"language"`

	// RenderPatterns are filename regular expressions for non-text renders
	// (visualisations) that bypass OCR.
	RenderPatterns []string `toml:"render_patterns"`
}

// IngestSettings configures the pipeline's skip policy.
type IngestSettings struct {
	// SkipImageRatio skips documents whose average image ratio exceeds it.
	SkipImageRatio float64 `toml:"skip_image_ratio"`

	// DrawingRatio marks documents as containing drawings.
	DrawingRatio float64 `toml:"drawing_ratio"`

	// RulesFile is an optional YAML file of classification rules.
	RulesFile string `toml:"rules_file"`

	// Workers bounds concurrent ingestion in batch commands.
	Workers int `toml:"workers"`
}

// ChunkSettings configures the chunker.
type ChunkSettings struct {
	Size    int `toml:"size"`
	Overlap int `toml:"overlap"`
}

// EmbeddingSettings configures the embedding provider.
type EmbeddingSettings struct {
	Provider  EmbeddingProvider `toml:"provider"`
	Model     string            `toml:"model"`
	BaseURL   string            `toml:"base_url"`
	APIKey    string            `toml:"api_key"`
	BatchSize int               `toml:"batch_size"`

	// MaxChars is the truncation budget for one input.
	MaxChars int `toml:"max_chars"`

	// RequestsPerSecond throttles remote providers. Zero disables throttling.
	RequestsPerSecond float64 `toml:"requests_per_second"`
	TimeoutSeconds    int     `toml:"timeout_seconds"`

	// CacheAddr enables the Redis/Valkey embedding cache when set.
	CacheAddr     string `toml:"cache_addr"`
	CachePassword string `toml:"cache_password"`
}

// StoreSettings configures the vector store.
type StoreSettings struct {
	Backend StoreBackend `toml:"backend"`

	// Path is the sqlite database file.
	Path string `toml:"path"`

	// DSN is the postgres connection string.
	DSN string `toml:"dsn"`
}

// DocumentSettings configures document views.
type DocumentSettings struct {
	// TextSeparator is placed between chunk bodies by get_text.
	TextSeparator string `toml:"text_separator"`
}

// ServerSettings configures the MCP HTTP transport.
type ServerSettings struct {
	Addr string `toml:"addr"`
}

// Default setting values.
const (
	DefaultChunkSize         = 1000
	DefaultChunkOverlap      = 200
	DefaultBatchSize         = 32
	DefaultEmbeddingMaxChars = 256 * 4
	DefaultOCRDPI            = 300
	DefaultOCRMinChars       = 50
	DefaultOCRWarnConfidence = 60
	DefaultOCRLanguage       = "eng"
	DefaultSkipImageRatio    = 0.7
	DefaultDrawingRatio      = 0.3
	DefaultWorkers           = 4
	DefaultEmbeddingTimeout  = 30 * time.Second
	DefaultServerAddr        = "127.0.0.1:8765"
)

// DefaultRenderPatterns match architectural visualisations.
var DefaultRenderPatterns = []string{
	`(?i)visuali[sz]ation`,
	`(?i)\brenders?\b`,
	`(?i)\bcgi\b`,
	`(?i)photo[ _-]?montage`,
	`(?i)3d[ _-]?view`,
	`(?i)street[ _-]?scene`,
}

// DefaultSettings returns settings with every default applied and OCR enabled.
func DefaultSettings() Settings {
	s := Settings{OCR: OCRSettings{Enabled: true}}
	s.ApplyDefaults()
	return s
}

// ApplyDefaults fills zero values. OCR.Enabled is left untouched.
func (s *Settings) ApplyDefaults() {
	if s.Log.Env == "" {
		s.Log.Env = "auto"
	}
	if s.Log.Level == "" {
		s.Log.Level = "info"
	}
	if s.OCR.DPI == 0 {
		s.OCR.DPI = DefaultOCRDPI
	}
	if s.OCR.MinChars == 0 {
		s.OCR.MinChars = DefaultOCRMinChars
	}
	if s.OCR.WarnConfidence == 0 {
		s.OCR.WarnConfidence = DefaultOCRWarnConfidence
	}
	if s.OCR.Language == "" {
		s.OCR.Language = DefaultOCRLanguage
	}
	if s.OCR.RenderPatterns == nil {
		s.OCR.RenderPatterns = append([]string(nil), DefaultRenderPatterns...)
	}
	if s.Ingest.SkipImageRatio == 0 {
		s.Ingest.SkipImageRatio = DefaultSkipImageRatio
	}
	if s.Ingest.DrawingRatio == 0 {
		s.Ingest.DrawingRatio = DefaultDrawingRatio
	}
	if s.Ingest.Workers == 0 {
		s.Ingest.Workers = DefaultWorkers
	}
	if s.Chunking.Size == 0 {
		s.Chunking.Size = DefaultChunkSize
	}
	if s.Chunking.Overlap == 0 {
		s.Chunking.Overlap = DefaultChunkOverlap
	}
	if s.Embedding.Provider == "" {
		s.Embedding.Provider = EmbeddingProviderLocal
	}
	if s.Embedding.BatchSize == 0 {
		s.Embedding.BatchSize = DefaultBatchSize
	}
	if s.Embedding.MaxChars == 0 {
		s.Embedding.MaxChars = DefaultEmbeddingMaxChars
	}
	if s.Embedding.TimeoutSeconds == 0 {
		s.Embedding.TimeoutSeconds = int(DefaultEmbeddingTimeout / time.Second)
	}
	if s.Store.Backend == "" {
		s.Store.Backend = StoreBackendSQLite
	}
	if s.Server.Addr == "" {
		s.Server.Addr = DefaultServerAddr
	}
}

// Validate checks that settings are usable.
func (s *Settings) Validate() error {
	switch {
	case s.Chunking.Size <= 0:
		return fmt.Errorf("%w: chunking.size must be positive", ErrInvalidInput)
	case s.Chunking.Overlap < 0 || s.Chunking.Overlap >= s.Chunking.Size:
		return fmt.Errorf("%w: chunking.overlap must be in [0, size)", ErrInvalidInput)
	case s.Embedding.BatchSize <= 0:
		return fmt.Errorf("%w: embedding.batch_size must be positive", ErrInvalidInput)
	case s.Embedding.MaxChars <= 0:
		return fmt.Errorf("%w: embedding.max_chars must be positive", ErrInvalidInput)
	case !s.Embedding.Provider.IsValid():
		return fmt.Errorf("%w: unknown embedding provider %q", ErrInvalidInput, s.Embedding.Provider)
	case s.Ingest.SkipImageRatio <= 0 || s.Ingest.SkipImageRatio > 1:
		return fmt.Errorf("%w: ingest.skip_image_ratio must be in (0, 1]", ErrInvalidInput)
	case s.Ingest.DrawingRatio < 0 || s.Ingest.DrawingRatio > 1:
		return fmt.Errorf("%w: ingest.drawing_ratio must be in [0, 1]", ErrInvalidInput)
	case s.Ingest.Workers <= 0:
		return fmt.Errorf("%w: ingest.workers must be positive", ErrInvalidInput)
	case s.OCR.DPI <= 0:
		return fmt.Errorf("%w: ocr.dpi must be positive", ErrInvalidInput)
	case !s.Store.Backend.IsValid():
		return fmt.Errorf("%w: unknown store backend %q", ErrInvalidInput, s.Store.Backend)
	case s.Store.Backend == StoreBackendSQLite && s.Store.Path == "":
		return fmt.Errorf("%w: store.path is required for sqlite", ErrInvalidInput)
	case s.Store.Backend == StoreBackendPostgres && s.Store.DSN == "":
		return fmt.Errorf("%w: store.dsn is required for postgres", ErrInvalidInput)
	case s.Embedding.Provider == EmbeddingProviderOpenAI && s.Embedding.APIKey == "":
		return fmt.Errorf("%w: embedding.api_key is required for openai", ErrInvalidInput)
	}
	return nil
}

// Timeout returns the request timeout for remote providers.
func (e EmbeddingSettings) Timeout() time.Duration {
	return time.Duration(e.TimeoutSeconds) * time.Second
}
