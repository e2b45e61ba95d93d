package forensics

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/drpramila84/600-commanddiscord/internal/logging"
	"github.com/drpramila84/600-commanddiscord/internal/metrics"
	"github.com/drpramila84/600-commanddiscord/internal/models"
)

var auditActions = map[models.Category]discordgo.AuditLogAction{
	models.CategoryBan:           discordgo.AuditLogActionMemberBanAdd,
	models.CategoryKick:          discordgo.AuditLogActionMemberKick,
	models.CategoryChannelCreate: discordgo.AuditLogActionChannelCreate,
	models.CategoryChannelDelete: discordgo.AuditLogActionChannelDelete,
	models.CategoryRoleCreate:    discordgo.AuditLogActionRoleCreate,
	models.CategoryRoleDelete:    discordgo.AuditLogActionRoleDelete,
	models.CategoryWebhookCreate: discordgo.AuditLogActionWebhookCreate,
	models.CategoryBotAdd:        discordgo.AuditLogActionBotAdd,
}

// AuditAction returns the audit log action that records category.
func AuditAction(c models.Category) (discordgo.AuditLogAction, bool) {
	a, ok := auditActions[c]
	return a, ok
}

// Attributor credits an event to whoever performed the freshest matching
// audit log entry.
type Attributor struct {
	source  AuditSource
	bound   time.Duration
	now     func() time.Time
	metrics *metrics.Registry
}

func NewAttributor(source AuditSource, bound time.Duration, now func() time.Time, m *metrics.Registry) *Attributor {
	if now == nil {
		now = time.Now
	}
	return &Attributor{source: source, bound: bound, now: now, metrics: m}
}

// Attribute returns the executor of the latest audit entry for category, or
// nil when there is none or the lookup failed. An entry whose age reaches the
// recency bound is ignored. The entry's target is never returned.
func (a *Attributor) Attribute(ctx context.Context, guildID string, category models.Category) *models.ActorRef {
	action, ok := AuditAction(category)
	if !ok {
		return nil
	}

	entry, err := a.source.FetchLatest(ctx, guildID, action)
	if err != nil {
		a.metrics.AuditFetch("error")
		logging.Warn().Err(err).
			Str("guild", guildID).
			Stringer("category", category).
			Msg("Audit log fetch failed, dropping event")
		return nil
	}
	if entry == nil || entry.ExecutorID == "" {
		a.metrics.AuditFetch("empty")
		return nil
	}

	if age := a.now().Sub(entry.CreatedAt); age >= a.bound {
		a.metrics.AuditFetch("stale")
		logging.Debug().
			Str("guild", guildID).
			Stringer("category", category).
			Dur("age", age).
			Msg("Audit entry too old to attribute")
		return nil
	}

	a.metrics.AuditFetch("ok")
	return &models.ActorRef{ID: entry.ExecutorID, Tag: entry.ExecutorTag}
}
