package notifier

import (
	"context"

	"github.com/drpramila84/600-commanddiscord/internal/config"
	"github.com/drpramila84/600-commanddiscord/internal/logging"
	"github.com/drpramila84/600-commanddiscord/internal/metrics"
	"github.com/drpramila84/600-commanddiscord/internal/models"
)

// Sink delivers incident records to a channel.
type Sink interface {
	CanDeliver(ctx context.Context, guildID, channelID string) bool
	Send(ctx context.Context, channelID string, rec *models.IncidentRecord) error
}

// Reporter sends incidents to a guild's log channel. It never fails the
// caller: a missing channel is a no-op and delivery errors are only logged.
// Records are not deduplicated.
type Reporter struct {
	sink    Sink
	metrics *metrics.Registry
}

func NewReporter(sink Sink, m *metrics.Registry) *Reporter {
	return &Reporter{sink: sink, metrics: m}
}

func (r *Reporter) Report(ctx context.Context, cfg *config.GuildSettings, rec *models.IncidentRecord) {
	if cfg == nil || rec == nil || cfg.LogChannelID == "" {
		return
	}
	if !r.sink.CanDeliver(ctx, rec.GuildID, cfg.LogChannelID) {
		logging.Debug().
			Str("guild", rec.GuildID).
			Str("channel", cfg.LogChannelID).
			Msg("Log channel unavailable, incident not reported")
		return
	}

	if err := r.sink.Send(ctx, cfg.LogChannelID, rec); err != nil {
		r.metrics.ReportFailed()
		logging.Error().Err(err).
			Str("guild", rec.GuildID).
			Str("incident", rec.ID).
			Msg("Incident report failed")
		return
	}
	r.metrics.ReportSent()
}
