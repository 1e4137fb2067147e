package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docket/internal/core/domain"
	"github.com/custodia-labs/docket/internal/core/ports/driven"
)

func TestInterfaceCompliance(t *testing.T) {
	var _ driven.EmbeddingService = (*EmbeddingService)(nil)
}

func vectorFor(text string) []float32 {
	vec := make([]float32, domain.EmbeddingDimensions)
	vec[len(text)%domain.EmbeddingDimensions] = 1
	return vec
}

func newServer(t *testing.T, calls *atomic.Int32, dims int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"models":[]}`))
		case "/api/embed":
			calls.Add(1)
			var req embedRequest
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "all-minilm", req.Model)

			resp := embedResponse{}
			for _, in := range req.Input {
				vec := vectorFor(in)
				if dims != domain.EmbeddingDimensions {
					vec = make([]float32, dims)
				}
				resp.Embeddings = append(resp.Embeddings, vec)
			}
			_ = json.NewEncoder(w).Encode(resp)
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestNewEmbeddingService_Defaults(t *testing.T) {
	s := NewEmbeddingService(Config{})

	assert.Equal(t, DefaultBaseURL, s.baseURL)
	assert.Equal(t, DefaultModel, s.ModelName())
	assert.Equal(t, 384, s.Dimensions())
	assert.Nil(t, s.limiter)
}

func TestEmbedBatch_BatchesRequests(t *testing.T) {
	var calls atomic.Int32
	srv := newServer(t, &calls, domain.EmbeddingDimensions)
	defer srv.Close()

	s := NewEmbeddingService(Config{BaseURL: srv.URL})
	texts := []string{"a", "bb", "ccc", "dddd", "eeeee"}

	vecs, err := s.EmbedBatch(context.Background(), texts, 2)

	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
	require.Len(t, vecs, 5)
	for i, text := range texts {
		assert.Equal(t, vectorFor(text), vecs[i])
	}
}

func TestEmbed_Single(t *testing.T) {
	var calls atomic.Int32
	srv := newServer(t, &calls, domain.EmbeddingDimensions)
	defer srv.Close()

	s := NewEmbeddingService(Config{BaseURL: srv.URL})

	vec, err := s.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, vectorFor("hello"), vec)
}

func TestEmbed_EmptyInputNeverCallsServer(t *testing.T) {
	var calls atomic.Int32
	srv := newServer(t, &calls, domain.EmbeddingDimensions)
	defer srv.Close()

	s := NewEmbeddingService(Config{BaseURL: srv.URL})

	_, err := s.Embed(context.Background(), " ")
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
	assert.Zero(t, calls.Load())
}

func TestEmbed_WrongDimensions(t *testing.T) {
	var calls atomic.Int32
	srv := newServer(t, &calls, 768)
	defer srv.Close()

	s := NewEmbeddingService(Config{BaseURL: srv.URL})

	_, err := s.Embed(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "768 dimensions")
}

func TestEmbed_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("model not loaded"))
	}))
	defer srv.Close()

	s := NewEmbeddingService(Config{BaseURL: srv.URL})

	_, err := s.Embed(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
	assert.Contains(t, err.Error(), "model not loaded")
}

func TestPing(t *testing.T) {
	var calls atomic.Int32
	srv := newServer(t, &calls, domain.EmbeddingDimensions)
	defer srv.Close()

	assert.NoError(t, NewEmbeddingService(Config{BaseURL: srv.URL}).Ping(context.Background()))
}

func TestPing_Unreachable(t *testing.T) {
	s := NewEmbeddingService(Config{BaseURL: "http://127.0.0.1:1"})
	assert.Error(t, s.Ping(context.Background()))
}

func TestRetryAfter(t *testing.T) {
	assert.Equal(t, int64(0), int64(retryAfter("")))
	assert.Equal(t, "5s", retryAfter("5").String())
}
