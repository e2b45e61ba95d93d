package bootstrap

import (
	"context"
	"errors"

	"github.com/drpramila84/600-commanddiscord/internal/logging"
)

// Shutdown stops intake first, then the exporter, then the stores. Every
// step runs even when an earlier one fails.
func Shutdown(ctx context.Context, c *Components) error {
	if c == nil {
		return nil
	}
	logging.Info().Msg("Starting graceful shutdown...")

	var errs []error
	if c.Session != nil {
		logging.Info().Msg("Closing gateway session...")
		if err := c.Session.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if c.Exporter != nil {
		logging.Info().Msg("Stopping metrics exporter...")
		if err := c.Exporter.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	if err := c.closeAll(); err != nil {
		errs = append(errs, err)
	}

	logging.Info().Msg("Graceful shutdown complete")
	if err := logging.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
