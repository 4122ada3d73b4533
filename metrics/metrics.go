// Package metrics serves operational counters in Prometheus text format.
package metrics

import (
	"context"
	"net/http"

	vmmetrics "github.com/VictoriaMetrics/metrics"
)

// MetricsServer exposes the process metrics on a dedicated listener.
type MetricsServer struct {
	srv *http.Server
}

// New creates a metrics server on addr. An empty addr disables metrics
// and returns a nil server; callers treat nil as "not running".
func New(addr string) (*MetricsServer, error) {
	if addr == "" {
		return nil, nil
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		vmmetrics.WritePrometheus(w, true)
	})

	return &MetricsServer{
		srv: &http.Server{Addr: addr, Handler: mux},
	}, nil
}

// Start begins serving metrics. Blocks until the listener fails or the
// server is shut down.
func (m *MetricsServer) Start() error {
	if m == nil {
		return nil
	}
	err := m.srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops the metrics listener.
func (m *MetricsServer) Shutdown(ctx context.Context) error {
	if m == nil {
		return nil
	}
	return m.srv.Shutdown(ctx)
}

// SubmissionsAccepted counts submissions accepted into the queue.
var SubmissionsAccepted = vmmetrics.NewCounter("anonsurvey_submissions_accepted_total")

// BlindSignaturesIssued counts blind signatures handed out.
var BlindSignaturesIssued = vmmetrics.NewCounter("anonsurvey_blind_signatures_issued_total")

// CampaignsPublished counts successful publish instructions.
var CampaignsPublished = vmmetrics.NewCounter("anonsurvey_campaigns_published_total")
