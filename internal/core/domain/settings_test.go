package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()

	assert.True(t, s.OCR.Enabled)
	assert.Equal(t, DefaultChunkSize, s.Chunking.Size)
	assert.Equal(t, DefaultChunkOverlap, s.Chunking.Overlap)
	assert.Equal(t, DefaultBatchSize, s.Embedding.BatchSize)
	assert.Equal(t, 1024, s.Embedding.MaxChars)
	assert.Equal(t, EmbeddingProviderLocal, s.Embedding.Provider)
	assert.Equal(t, StoreBackendSQLite, s.Store.Backend)
	assert.Equal(t, 0.7, s.Ingest.SkipImageRatio)
	assert.Equal(t, 30*time.Second, s.Embedding.Timeout())
	assert.NotEmpty(t, s.OCR.RenderPatterns)
}

func TestSettings_ApplyDefaults_KeepsExplicitValues(t *testing.T) {
	s := Settings{Chunking: ChunkSettings{Size: 500, Overlap: 50}}
	s.ApplyDefaults()

	assert.Equal(t, 500, s.Chunking.Size)
	assert.Equal(t, 50, s.Chunking.Overlap)
	assert.False(t, s.OCR.Enabled)
}

func TestSettings_Validate(t *testing.T) {
	valid := func() Settings {
		s := DefaultSettings()
		s.Store.Path = "/tmp/docket.db"
		return s
	}

	s := valid()
	require.NoError(t, s.Validate())

	tests := []struct {
		name   string
		mutate func(*Settings)
	}{
		{"zero chunk size", func(s *Settings) { s.Chunking.Size = 0 }},
		{"overlap too large", func(s *Settings) { s.Chunking.Overlap = s.Chunking.Size }},
		{"negative overlap", func(s *Settings) { s.Chunking.Overlap = -1 }},
		{"zero batch", func(s *Settings) { s.Embedding.BatchSize = 0 }},
		{"unknown provider", func(s *Settings) { s.Embedding.Provider = "magic" }},
		{"skip ratio above one", func(s *Settings) { s.Ingest.SkipImageRatio = 1.5 }},
		{"unknown backend", func(s *Settings) { s.Store.Backend = "mongo" }},
		{"sqlite without path", func(s *Settings) { s.Store.Path = "" }},
		{"postgres without dsn", func(s *Settings) { s.Store.Backend = StoreBackendPostgres }},
		{"openai without key", func(s *Settings) { s.Embedding.Provider = EmbeddingProviderOpenAI }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid()
			tt.mutate(&s)
			err := s.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidInput))
		})
	}
}

func TestProviderAndBackend_IsValid(t *testing.T) {
	assert.True(t, EmbeddingProviderOllama.IsValid())
	assert.False(t, EmbeddingProvider("").IsValid())
	assert.True(t, StoreBackendMemory.IsValid())
	assert.False(t, StoreBackend("").IsValid())
}
