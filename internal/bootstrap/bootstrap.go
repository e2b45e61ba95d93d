package bootstrap

import (
	"context"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/drpramila84/600-commanddiscord/internal/bot"
	"github.com/drpramila84/600-commanddiscord/internal/config"
	"github.com/drpramila84/600-commanddiscord/internal/database"
	"github.com/drpramila84/600-commanddiscord/internal/decision"
	"github.com/drpramila84/600-commanddiscord/internal/forensics"
	"github.com/drpramila84/600-commanddiscord/internal/logging"
	"github.com/drpramila84/600-commanddiscord/internal/metrics"
	"github.com/drpramila84/600-commanddiscord/internal/state"
)

type Bootstrap struct {
	Config     *config.Config
	Components *Components
}

type Components struct {
	Session  *bot.Session
	Database *database.Database
	Counters state.CounterStore
	Audit    forensics.AuditSource
	Engine   *decision.Engine

	Registry *prometheus.Registry
	Metrics  *metrics.Registry
	Exporter *metrics.Exporter

	closers []io.Closer
}

func New(cfg *config.Config) *Bootstrap {
	return &Bootstrap{Config: cfg}
}

// Run wires and starts everything, blocks until ctx is done, then shuts
// down.
func (b *Bootstrap) Run(ctx context.Context) error {
	if err := Wire(ctx, b); err != nil {
		return fmt.Errorf("wiring failed: %w", err)
	}
	if err := StartAll(b.Components); err != nil {
		Shutdown(context.Background(), b.Components)
		return fmt.Errorf("start failed: %w", err)
	}

	logging.Info().
		Str("counters", b.Config.Counters.Backend).
		Bool("metrics", b.Config.Metrics.Enabled).
		Msg("Antinuke engine running")

	<-ctx.Done()
	logging.Info().Msg("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return Shutdown(shutdownCtx, b.Components)
}
