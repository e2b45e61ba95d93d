package database

import (
	"database/sql"

	"github.com/drpramila84/600-commanddiscord/internal/config"
	"github.com/drpramila84/600-commanddiscord/internal/models"
)

// guildConfigRow mirrors one guild_config row. Every column except enabled
// may be NULL.
type guildConfigRow struct {
	Enabled bool

	AntiBan           sql.NullBool
	AntiKick          sql.NullBool
	AntiChannelCreate sql.NullBool
	AntiChannelDelete sql.NullBool
	AntiRoleCreate    sql.NullBool
	AntiRoleDelete    sql.NullBool
	AntiWebhookCreate sql.NullBool
	AntiBotAdd        sql.NullBool
	AntiRaid          sql.NullBool

	BanThreshold           sql.NullInt64
	KickThreshold          sql.NullInt64
	ChannelCreateThreshold sql.NullInt64
	ChannelDeleteThreshold sql.NullInt64
	RoleCreateThreshold    sql.NullInt64
	RoleDeleteThreshold    sql.NullInt64
	WebhookCreateThreshold sql.NullInt64
	BotAddThreshold        sql.NullInt64

	TimeWindow     sql.NullInt64
	RaidThreshold  sql.NullInt64
	RaidTimeWindow sql.NullInt64
	Punishment     sql.NullString
	LogChannelID   sql.NullString
}

// dest returns scan targets in selectGuildConfig column order.
func (r *guildConfigRow) dest() []any {
	return []any{
		&r.Enabled,
		&r.AntiBan, &r.AntiKick, &r.AntiChannelCreate, &r.AntiChannelDelete, &r.AntiRoleCreate,
		&r.AntiRoleDelete, &r.AntiWebhookCreate, &r.AntiBotAdd, &r.AntiRaid,
		&r.BanThreshold, &r.KickThreshold, &r.ChannelCreateThreshold, &r.ChannelDeleteThreshold,
		&r.RoleCreateThreshold, &r.RoleDeleteThreshold, &r.WebhookCreateThreshold, &r.BotAddThreshold,
		&r.TimeWindow, &r.RaidThreshold, &r.RaidTimeWindow, &r.Punishment, &r.LogChannelID,
	}
}

func (r *guildConfigRow) toggles() map[models.Category]sql.NullBool {
	return map[models.Category]sql.NullBool{
		models.CategoryBan:           r.AntiBan,
		models.CategoryKick:          r.AntiKick,
		models.CategoryChannelCreate: r.AntiChannelCreate,
		models.CategoryChannelDelete: r.AntiChannelDelete,
		models.CategoryRoleCreate:    r.AntiRoleCreate,
		models.CategoryRoleDelete:    r.AntiRoleDelete,
		models.CategoryWebhookCreate: r.AntiWebhookCreate,
		models.CategoryBotAdd:        r.AntiBotAdd,
		models.CategoryRaid:          r.AntiRaid,
	}
}

func (r *guildConfigRow) thresholds() map[models.Category]sql.NullInt64 {
	return map[models.Category]sql.NullInt64{
		models.CategoryBan:           r.BanThreshold,
		models.CategoryKick:          r.KickThreshold,
		models.CategoryChannelCreate: r.ChannelCreateThreshold,
		models.CategoryChannelDelete: r.ChannelDeleteThreshold,
		models.CategoryRoleCreate:    r.RoleCreateThreshold,
		models.CategoryRoleDelete:    r.RoleDeleteThreshold,
		models.CategoryWebhookCreate: r.WebhookCreateThreshold,
		models.CategoryBotAdd:        r.BotAddThreshold,
	}
}

// apply overlays the non-NULL columns onto s, which starts from defaults.
func (r *guildConfigRow) apply(s *config.GuildSettings) {
	s.Enabled = r.Enabled
	for c, v := range r.toggles() {
		if v.Valid {
			s.Toggles.Set(c, v.Bool)
		}
	}
	for c, v := range r.thresholds() {
		if v.Valid {
			s.Thresholds.Set(c, int(v.Int64))
		}
	}
	if r.TimeWindow.Valid {
		s.TimeWindowSeconds = int(r.TimeWindow.Int64)
	}
	if r.RaidThreshold.Valid {
		s.RaidThreshold = int(r.RaidThreshold.Int64)
	}
	if r.RaidTimeWindow.Valid {
		s.RaidTimeWindowSeconds = int(r.RaidTimeWindow.Int64)
	}
	if r.Punishment.Valid {
		s.Punishment = models.ParsePolicy(r.Punishment.String)
	}
	if r.LogChannelID.Valid {
		s.LogChannelID = r.LogChannelID.String
	}
}
