package decision

import (
	"context"
	"fmt"

	"github.com/drpramila84/600-commanddiscord/internal/config"
	"github.com/drpramila84/600-commanddiscord/internal/dispatcher"
	"github.com/drpramila84/600-commanddiscord/internal/logging"
	"github.com/drpramila84/600-commanddiscord/internal/metrics"
	"github.com/drpramila84/600-commanddiscord/internal/models"
	"github.com/drpramila84/600-commanddiscord/internal/state"
)

const raidReason = "Raid detected"

// HandleJoin handles a member join. Every joiner, bots included, feeds the
// guild's raid window; a bot joiner is also run through the bot-add policy.
// The raid window is never cleared on breach, so every joiner past the
// threshold is ejected until the join rate falls. It returns the raid and
// bot-add incidents raised, in that order.
func (e *Engine) HandleJoin(ctx context.Context, ev models.AdminEvent) []*models.IncidentRecord {
	start := e.now()
	defer func() { e.metrics.ObserveEvaluate(models.CategoryRaid.String(), e.now().Sub(start)) }()
	e.metrics.EventReceived(models.CategoryRaid.String())
	if ev.Subject.IsBot {
		e.metrics.EventReceived(models.CategoryBotAdd.String())
	}

	ev.Category = models.CategoryRaid
	cfg, ok := e.loadSettings(ctx, ev)
	if !ok {
		return nil
	}

	var out []*models.IncidentRecord
	if rec := e.evaluateJoin(ctx, cfg, ev); rec != nil {
		out = append(out, rec)
	}
	if ev.Subject.IsBot {
		botEv := ev
		botEv.Category = models.CategoryBotAdd
		if rec := e.evaluate(ctx, cfg, botEv); rec != nil {
			out = append(out, rec)
		}
	}
	return out
}

func (e *Engine) evaluateJoin(ctx context.Context, cfg *config.GuildSettings, ev models.AdminEvent) *models.IncidentRecord {
	if !cfg.CategoryEnabled(models.CategoryRaid) {
		e.metrics.EventSkipped(models.CategoryRaid.String(), metrics.SkipDisabled)
		return nil
	}

	threshold := cfg.Threshold(models.CategoryRaid)
	window := cfg.Window(models.CategoryRaid)
	key := state.RaidKey(ev.GuildID)

	count, err := e.counters.Record(ctx, key, e.eventTime(ev), window)
	if err != nil {
		e.metrics.EventSkipped(models.CategoryRaid.String(), metrics.SkipCounter)
		logging.Error().Err(err).Str("key", key.String()).Msg("Raid counter update failed, dropping join")
		return nil
	}
	if count < threshold {
		return nil
	}

	e.metrics.Breach(models.CategoryRaid.String())
	outcome := models.Success(models.OutcomeKicked)
	if err := e.punisher.Platform().Kick(ctx, ev.GuildID, ev.Subject.ID, dispatcher.AuditReason(raidReason)); err != nil {
		outcome = models.Failed(err.Error())
	}
	e.metrics.RaidEjection(outcome.Label)

	logEv := logging.Warn()
	if !outcome.OK {
		logEv = logging.Error().Str("error", outcome.Reason)
	}
	logEv.Str("guild", ev.GuildID).
		Str("member", ev.Subject.ID).
		Int("count", count).
		Int("threshold", threshold).
		Str("outcome", outcome.Label).
		Msg("Raid detected")

	rec := models.NewIncident(ev.GuildID, models.CategoryRaid,
		"Antinuke: Raid Detected",
		"A potential raid is in progress! Users are joining too quickly.",
		e.now())
	rec.AddField("Recent Joins", fmt.Sprintf("%d users in %ds", count, int(window.Seconds())), true)
	rec.AddField("Last Joiner", fmt.Sprintf("%s (%s)", subjectName(ev.Subject), outcome.String()), true)
	rec.AddField("Threshold", fmt.Sprintf("%d/%d", count, threshold), true)
	e.reporter.Report(ctx, cfg, rec)
	return rec
}
