package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister_Idempotent(t *testing.T) {
	reg := prometheus.NewRegistry()

	assert.NotPanics(t, func() {
		Register(reg)
		Register(reg)
	})
}

func TestIngestOutcomesTotal_Labels(t *testing.T) {
	before := testutil.ToFloat64(IngestOutcomesTotal.WithLabelValues("skipped", ""))
	IngestOutcomesTotal.WithLabelValues("skipped", "").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(IngestOutcomesTotal.WithLabelValues("skipped", "")))
}

func TestMiddleware_RecordsRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/healthz", "204"))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, before+1, testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/healthz", "204")))
}

func TestStatusWriter_Flush(t *testing.T) {
	rec := httptest.NewRecorder()
	w := &statusWriter{ResponseWriter: rec, status: http.StatusOK}

	_, err := w.Write([]byte("data: x\n\n"))
	require.NoError(t, err)
	w.Flush()

	assert.True(t, rec.Flushed)
	assert.Equal(t, rec, w.Unwrap())
}
