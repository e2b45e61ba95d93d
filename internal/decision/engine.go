package decision

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/drpramila84/600-commanddiscord/internal/config"
	"github.com/drpramila84/600-commanddiscord/internal/dispatcher"
	"github.com/drpramila84/600-commanddiscord/internal/logging"
	"github.com/drpramila84/600-commanddiscord/internal/metrics"
	"github.com/drpramila84/600-commanddiscord/internal/models"
	"github.com/drpramila84/600-commanddiscord/internal/state"
)

// SettingsStore loads a guild's settings. A guild with no stored settings
// gets defaults with protection disabled; an error means the settings are
// unavailable.
type SettingsStore interface {
	Load(ctx context.Context, guildID string) (*config.GuildSettings, error)
}

type Attributor interface {
	Attribute(ctx context.Context, guildID string, category models.Category) *models.ActorRef
}

type Reporter interface {
	Report(ctx context.Context, cfg *config.GuildSettings, rec *models.IncidentRecord)
}

type Deps struct {
	Settings   SettingsStore
	Counters   state.CounterStore
	Attributor Attributor
	Punisher   *dispatcher.Punisher
	Reporter   Reporter
	Metrics    *metrics.Registry
	SelfID     string
	Now        func() time.Time
}

// Engine evaluates administrative events against per-guild limits. It keeps
// no per-guild state of its own; counters live in the CounterStore and
// settings are loaded for every event.
type Engine struct {
	settings   SettingsStore
	counters   state.CounterStore
	attributor Attributor
	punisher   *dispatcher.Punisher
	reporter   Reporter
	metrics    *metrics.Registry
	now        func() time.Time
	selfID     atomic.Value
}

func NewEngine(d Deps) *Engine {
	if d.Now == nil {
		d.Now = time.Now
	}
	e := &Engine{
		settings:   d.Settings,
		counters:   d.Counters,
		attributor: d.Attributor,
		punisher:   d.Punisher,
		reporter:   d.Reporter,
		metrics:    d.Metrics,
		now:        d.Now,
	}
	e.selfID.Store(d.SelfID)
	return e
}

// SetSelfID records the bot's own user id once the gateway session is ready.
func (e *Engine) SetSelfID(id string) {
	e.selfID.Store(id)
}

func (e *Engine) SelfID() string {
	id, _ := e.selfID.Load().(string)
	return id
}

// Evaluate runs one administrative event through attribution, exemption and
// the category's sliding window. It returns the incident when the event
// caused a breach and nil otherwise.
func (e *Engine) Evaluate(ctx context.Context, ev models.AdminEvent) *models.IncidentRecord {
	start := e.now()
	defer func() { e.metrics.ObserveEvaluate(ev.Category.String(), e.now().Sub(start)) }()
	e.metrics.EventReceived(ev.Category.String())

	cfg, ok := e.loadSettings(ctx, ev)
	if !ok {
		return nil
	}
	return e.evaluate(ctx, cfg, ev)
}

// eventTime is when the gateway delivered ev, so time spent on settings and
// audit lookups does not shift the sample. Unstamped events and stamps ahead
// of the clock use the current time.
func (e *Engine) eventTime(ev models.AdminEvent) time.Time {
	now := e.now()
	if ev.OccurredAt.IsZero() || ev.OccurredAt.After(now) {
		return now
	}
	return ev.OccurredAt
}

func (e *Engine) loadSettings(ctx context.Context, ev models.AdminEvent) (*config.GuildSettings, bool) {
	cfg, err := e.settings.Load(ctx, ev.GuildID)
	if err != nil || cfg == nil {
		e.metrics.EventSkipped(ev.Category.String(), metrics.SkipConfig)
		logging.Warn().Err(err).
			Str("guild", ev.GuildID).
			Stringer("category", ev.Category).
			Msg("Guild settings unavailable, ignoring event")
		return nil, false
	}
	return cfg, true
}

func (e *Engine) evaluate(ctx context.Context, cfg *config.GuildSettings, ev models.AdminEvent) *models.IncidentRecord {
	category := ev.Category
	spec, ok := categorySpecs[category]
	if !ok {
		logging.Warn().Stringer("category", category).Msg("No policy for category")
		return nil
	}
	if !cfg.CategoryEnabled(category) {
		e.metrics.EventSkipped(category.String(), metrics.SkipDisabled)
		return nil
	}

	actor := e.attributor.Attribute(ctx, ev.GuildID, category)
	if actor == nil || actor.ID == "" {
		e.metrics.EventSkipped(category.String(), metrics.SkipUnattributed)
		return nil
	}
	if IsExempt(cfg, actor.ID, ev.OwnerID, e.SelfID()) {
		e.metrics.EventSkipped(category.String(), metrics.SkipExempt)
		logging.Debug().
			Str("guild", ev.GuildID).
			Str("actor", actor.ID).
			Stringer("category", category).
			Msg("Exempt actor")
		return nil
	}

	threshold := cfg.Threshold(category)
	window := cfg.Window(category)
	key := state.ActorKey(ev.GuildID, actor.ID, category)

	count, breached, err := e.counters.RecordBreach(ctx, key, e.eventTime(ev), window, threshold)
	if err != nil {
		e.metrics.EventSkipped(category.String(), metrics.SkipCounter)
		logging.Error().Err(err).Str("key", key.String()).Msg("Counter update failed, dropping event")
		return nil
	}
	if !breached {
		logging.Debug().
			Str("guild", ev.GuildID).
			Str("actor", actor.ID).
			Stringer("category", category).
			Int("count", count).
			Int("threshold", threshold).
			Msg("Action counted")
		return nil
	}

	e.metrics.Breach(category.String())
	logging.Warn().
		Str("guild", ev.GuildID).
		Str("actor", actor.ID).
		Stringer("category", category).
		Int("count", count).
		Int("threshold", threshold).
		Msg("Threshold breached")

	var undo *models.Outcome
	if spec.undo != nil {
		out := e.runUndo(ctx, spec, ev)
		undo = &out
	}
	outcome := e.punisher.Punish(ctx, ev.GuildID, actor.ID, cfg.Punishment, spec.reason)

	rec := e.breachIncident(spec, ev, actor, outcome, undo, count, threshold, window)
	e.reporter.Report(ctx, cfg, rec)
	return rec
}

func (e *Engine) runUndo(ctx context.Context, spec categorySpec, ev models.AdminEvent) models.Outcome {
	if ev.Subject.ID == "" {
		e.metrics.Undo(ev.Category.String(), models.OutcomeFailed)
		return models.Failed("no subject to revert")
	}
	err := spec.undo(ctx, e.punisher.Platform(), ev, dispatcher.AuditReason(spec.undoReason))
	if err != nil {
		e.metrics.Undo(ev.Category.String(), models.OutcomeFailed)
		logging.Warn().Err(err).
			Str("guild", ev.GuildID).
			Str("subject", ev.Subject.ID).
			Stringer("category", ev.Category).
			Msg("Undo failed")
		return models.Failed(err.Error())
	}
	e.metrics.Undo(ev.Category.String(), spec.undoLabel)
	return models.Success(spec.undoLabel)
}

func (e *Engine) breachIncident(spec categorySpec, ev models.AdminEvent, actor *models.ActorRef, outcome models.Outcome, undo *models.Outcome, count, threshold int, window time.Duration) *models.IncidentRecord {
	rec := models.NewIncident(ev.GuildID, ev.Category, spec.title,
		fmt.Sprintf("**%s** was %s for %s", actorName(actor), outcome.Label, spec.description),
		e.now())
	rec.AddField("Executor", fmt.Sprintf("%s (%s)", actorName(actor), actor.ID), true)
	rec.AddField("Actions", fmt.Sprintf("%d %s in %ds", count, spec.noun, int(window.Seconds())), true)
	rec.AddField("Threshold", fmt.Sprintf("%d/%d", count, threshold), true)
	rec.AddField("Punishment", outcome.String(), true)
	if undo != nil {
		rec.AddField(spec.subjectField, subjectName(ev.Subject), true)
		rec.AddField("Reverted", undo.String(), true)
	}
	return rec
}

func actorName(a *models.ActorRef) string {
	if a.Tag != "" {
		return a.Tag
	}
	return "<@" + a.ID + ">"
}

func subjectName(r models.ResourceRef) string {
	if r.Name == "" {
		return r.ID
	}
	return fmt.Sprintf("%s (%s)", r.Name, r.ID)
}
