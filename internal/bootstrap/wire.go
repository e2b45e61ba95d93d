package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/drpramila84/600-commanddiscord/internal/bot"
	"github.com/drpramila84/600-commanddiscord/internal/config"
	"github.com/drpramila84/600-commanddiscord/internal/database"
	"github.com/drpramila84/600-commanddiscord/internal/decision"
	"github.com/drpramila84/600-commanddiscord/internal/dispatcher"
	"github.com/drpramila84/600-commanddiscord/internal/forensics"
	"github.com/drpramila84/600-commanddiscord/internal/logging"
	"github.com/drpramila84/600-commanddiscord/internal/metrics"
	"github.com/drpramila84/600-commanddiscord/internal/notifier"
	"github.com/drpramila84/600-commanddiscord/internal/state"
)

const (
	shutdownTimeout = 10 * time.Second
	restTimeout     = 5 * time.Second
)

// Wire builds every component from b.Config without touching the network.
// Partially built components are released on error.
func Wire(ctx context.Context, b *Bootstrap) error {
	cfg := b.Config
	if cfg.Bot.Token == "" {
		return config.ErrMissingToken
	}
	logging.Info().Msg("Wiring components...")

	c := &Components{}
	ok := false
	defer func() {
		if !ok {
			_ = c.closeAll()
		}
	}()

	db, err := database.Open(ctx, cfg.Database.Path)
	if err != nil {
		return err
	}
	c.Database = db
	c.closers = append(c.closers, db)
	logging.Info().Str("path", cfg.Database.Path).Msg("Settings store ready")

	counters, closer, err := NewCounterStore(ctx, cfg)
	if err != nil {
		return err
	}
	c.Counters = counters
	if closer != nil {
		c.closers = append(c.closers, closer)
	}

	c.Registry = prometheus.NewRegistry()
	c.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	c.Metrics = metrics.NewRegistry(c.Registry)
	if cfg.Metrics.Enabled {
		c.Exporter = metrics.NewExporter(cfg.Metrics.Addr, cfg.Metrics.Path, c.Registry)
	}

	session, err := bot.NewSession(cfg.Bot.Token)
	if err != nil {
		return err
	}
	c.Session = session
	dg := session.Discord()

	c.Audit = NewAuditSource(forensics.NewAuditLogFetcher(dg, cfg.Audit.Timeout), cfg.Audit.Breaker)

	c.Engine = decision.NewEngine(decision.Deps{
		Settings:   db,
		Counters:   counters,
		Attributor: forensics.NewAttributor(c.Audit, config.AuditRecencyBound, nil, c.Metrics),
		Punisher:   dispatcher.NewPunisher(dispatcher.NewDiscordPlatform(dg, restTimeout), c.Metrics),
		Reporter:   notifier.NewReporter(notifier.NewDiscordSink(dg, restTimeout), c.Metrics),
		Metrics:    c.Metrics,
	})

	b.Components = c
	ok = true
	logging.Info().Msg("Component wiring complete")
	return nil
}

// NewCounterStore selects the sliding-window backend. The closer is nil for
// the in-process store.
func NewCounterStore(ctx context.Context, cfg *config.Config) (state.CounterStore, io.Closer, error) {
	switch cfg.Counters.Backend {
	case "", "memory":
		logging.Info().Msg("Using in-process counters")
		return state.NewMemoryCounterStore(), nil, nil
	case "redis":
		r := cfg.Redis
		store, err := state.NewRedisCounterStore(ctx, &redis.Options{
			Addr:         r.Addr,
			Password:     r.Password,
			DB:           r.DB,
			DialTimeout:  r.DialTimeout,
			ReadTimeout:  r.ReadTimeout,
			WriteTimeout: r.WriteTimeout,
			PoolSize:     r.PoolSize,
		}, r.KeyPrefix)
		if err != nil {
			return nil, nil, err
		}
		logging.Info().Str("addr", r.Addr).Msg("Using Redis counters")
		return store, store, nil
	default:
		return nil, nil, fmt.Errorf("unknown counter backend %q", cfg.Counters.Backend)
	}
}

// NewAuditSource wraps src in a circuit breaker when one is configured.
func NewAuditSource(src forensics.AuditSource, bc config.BreakerConfig) forensics.AuditSource {
	if !bc.Enabled {
		return src
	}
	return forensics.NewBreakerAuditSource(src, forensics.BreakerSettings{
		FailureThreshold: bc.FailureThreshold,
		OpenTimeout:      bc.OpenTimeout,
		Interval:         bc.Interval,
	})
}

// StartAll registers gateway handlers before connecting so no event between
// READY and registration is lost.
func StartAll(c *Components) error {
	logging.Info().Msg("Starting components...")

	c.Session.SetupEventHandlers(c.Engine, restTimeout)
	if err := c.Session.Connect(); err != nil {
		return fmt.Errorf("gateway connection failed: %w", err)
	}
	if id := c.Session.SelfID(); id != "" {
		c.Engine.SetSelfID(id)
	}

	if c.Exporter != nil {
		c.Exporter.Start()
	}

	logging.Info().Msg("All components started")
	return nil
}

// closeAll releases closers in reverse order of acquisition.
func (c *Components) closeAll() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i].Close(); err != nil {
			logging.Warn().Err(err).Msg("Close failed")
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}
