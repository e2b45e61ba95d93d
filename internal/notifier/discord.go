package notifier

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/drpramila84/600-commanddiscord/internal/logging"
	"github.com/drpramila84/600-commanddiscord/internal/models"
)

const (
	embedColor = 0xED4245

	requiredPermissions = discordgo.PermissionViewChannel |
		discordgo.PermissionSendMessages |
		discordgo.PermissionEmbedLinks
)

// DiscordSink posts incident records as embeds to a guild text channel.
type DiscordSink struct {
	session *discordgo.Session
	timeout time.Duration
}

func NewDiscordSink(session *discordgo.Session, timeout time.Duration) *DiscordSink {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &DiscordSink{session: session, timeout: timeout}
}

// CanDeliver resolves the channel, checks it belongs to the guild and that
// the bot may post embeds there.
func (d *DiscordSink) CanDeliver(ctx context.Context, guildID, channelID string) bool {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	ch, err := d.session.State.Channel(channelID)
	if err != nil {
		ch, err = d.session.Channel(channelID, discordgo.WithContext(ctx))
	}
	if err != nil {
		logging.Debug().Err(err).Str("guild", guildID).Str("channel", channelID).Msg("Log channel not resolvable")
		return false
	}
	if ch.GuildID != guildID {
		return false
	}

	if d.session.State.User == nil {
		return false
	}
	perms, err := d.session.UserChannelPermissions(d.session.State.User.ID, channelID, discordgo.WithContext(ctx))
	if err != nil {
		logging.Debug().Err(err).Str("guild", guildID).Str("channel", channelID).Msg("Log channel permissions unknown")
		return false
	}
	return perms&requiredPermissions == requiredPermissions
}

func (d *DiscordSink) Send(ctx context.Context, channelID string, rec *models.IncidentRecord) error {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	if _, err := d.session.ChannelMessageSendEmbed(channelID, RenderEmbed(rec), discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("send incident %s to %s: %w", rec.ID, channelID, err)
	}
	return nil
}

// RenderEmbed turns an incident record into a Discord embed.
func RenderEmbed(rec *models.IncidentRecord) *discordgo.MessageEmbed {
	fields := make([]*discordgo.MessageEmbedField, 0, len(rec.Fields))
	for _, f := range rec.Fields {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:   f.Name,
			Value:  f.Value,
			Inline: f.Inline,
		})
	}

	ts := rec.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return &discordgo.MessageEmbed{
		Title:       rec.Title,
		Description: rec.Description,
		Color:       embedColor,
		Fields:      fields,
		Footer: &discordgo.MessageEmbedFooter{
			Text: "Incident " + rec.ID,
		},
		Timestamp: ts.UTC().Format(time.RFC3339),
	}
}
