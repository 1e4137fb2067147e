// Package metrics holds the Prometheus collectors for ingestion,
// embedding, search and the HTTP transport.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "docket"

var registerOnce sync.Once

// Register registers every collector with reg (prometheus.DefaultRegisterer
// when nil). Subsequent calls are no-ops.
func Register(reg prometheus.Registerer) {
	registerOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		reg.MustRegister(
			IngestOutcomesTotal,
			IngestDuration,
			IngestChunksTotal,
			EmbeddingRequestsTotal,
			EmbeddingRequestDuration,
			EmbeddingTruncationsTotal,
			EmbeddingCacheTotal,
			SearchRequestsTotal,
			httpRequestDuration,
			httpRequestsTotal,
		)
	})
}
