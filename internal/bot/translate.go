package bot

import (
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/drpramila84/600-commanddiscord/internal/models"
)

// Each translator turns a gateway payload into an AdminEvent. The bool is
// false for payloads the engine ignores: DMs, incomplete payloads and
// managed roles.

func userRef(u *discordgo.User) models.ResourceRef {
	return models.ResourceRef{ID: u.ID, Name: u.String(), IsBot: u.Bot}
}

func fromBan(b *discordgo.GuildBanAdd, at time.Time) (models.AdminEvent, bool) {
	if b.GuildID == "" || b.User == nil {
		return models.AdminEvent{}, false
	}
	return models.AdminEvent{Category: models.CategoryBan, GuildID: b.GuildID, Subject: userRef(b.User), OccurredAt: at}, true
}

// fromMemberRemove covers both kicks and voluntary leaves. Only a fresh kick
// audit entry turns it into a counted kick.
func fromMemberRemove(m *discordgo.GuildMemberRemove, at time.Time) (models.AdminEvent, bool) {
	if m.Member == nil || m.GuildID == "" || m.User == nil {
		return models.AdminEvent{}, false
	}
	return models.AdminEvent{Category: models.CategoryKick, GuildID: m.GuildID, Subject: userRef(m.User), OccurredAt: at}, true
}

func fromChannel(category models.Category, c *discordgo.Channel, at time.Time) (models.AdminEvent, bool) {
	if c == nil || c.GuildID == "" {
		return models.AdminEvent{}, false
	}
	return models.AdminEvent{
		Category:   category,
		GuildID:    c.GuildID,
		Subject:    models.ResourceRef{ID: c.ID, Name: c.Name},
		OccurredAt: at,
	}, true
}

func fromRoleCreate(r *discordgo.GuildRoleCreate, at time.Time) (models.AdminEvent, bool) {
	if r.GuildRole == nil || r.GuildID == "" || r.Role == nil || r.Role.Managed {
		return models.AdminEvent{}, false
	}
	return models.AdminEvent{
		Category:   models.CategoryRoleCreate,
		GuildID:    r.GuildID,
		Subject:    models.ResourceRef{ID: r.Role.ID, Name: r.Role.Name},
		OccurredAt: at,
	}, true
}

func fromRoleDelete(r *discordgo.GuildRoleDelete, at time.Time) (models.AdminEvent, bool) {
	if r.GuildID == "" || r.RoleID == "" {
		return models.AdminEvent{}, false
	}
	return models.AdminEvent{
		Category:   models.CategoryRoleDelete,
		GuildID:    r.GuildID,
		Subject:    models.ResourceRef{ID: r.RoleID},
		OccurredAt: at,
	}, true
}

// fromWebhooksUpdate fires for any webhook change in a channel; attribution
// against the webhook-create audit action filters out updates and deletes.
func fromWebhooksUpdate(w *discordgo.WebhooksUpdate, at time.Time) (models.AdminEvent, bool) {
	if w.GuildID == "" {
		return models.AdminEvent{}, false
	}
	return models.AdminEvent{
		Category:   models.CategoryWebhookCreate,
		GuildID:    w.GuildID,
		Subject:    models.ResourceRef{ID: w.ChannelID},
		OccurredAt: at,
	}, true
}

func fromMemberAdd(m *discordgo.GuildMemberAdd, at time.Time) (models.AdminEvent, bool) {
	if m.Member == nil || m.GuildID == "" || m.User == nil {
		return models.AdminEvent{}, false
	}
	category := models.CategoryRaid
	if m.User.Bot {
		category = models.CategoryBotAdd
	}
	return models.AdminEvent{Category: category, GuildID: m.GuildID, Subject: userRef(m.User), OccurredAt: at}, true
}
