package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/drpramila84/600-commanddiscord/internal/logging"
)

// Exporter serves a Gatherer over HTTP for scraping.
type Exporter struct {
	server *http.Server
}

func NewExporter(addr, path string, gatherer prometheus.Gatherer) *Exporter {
	if path == "" {
		path = "/metrics"
	}
	mux := http.NewServeMux()
	mux.Handle(path, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return &Exporter{
		server: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

func (e *Exporter) Start() {
	go func() {
		logging.Info().Str("addr", e.server.Addr).Msg("Metrics exporter listening")
		if err := e.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error().Err(err).Msg("Metrics exporter stopped")
		}
	}()
}

func (e *Exporter) Stop(ctx context.Context) error {
	return e.server.Shutdown(ctx)
}

func (e *Exporter) Handler() http.Handler {
	return e.server.Handler
}
