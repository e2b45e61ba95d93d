package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"
)

// DiscordPlatform issues moderation calls through the discordgo REST client.
type DiscordPlatform struct {
	session *discordgo.Session
	timeout time.Duration
}

func NewDiscordPlatform(session *discordgo.Session, timeout time.Duration) *DiscordPlatform {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &DiscordPlatform{session: session, timeout: timeout}
}

func (d *DiscordPlatform) opts(ctx context.Context, reason string) (context.Context, context.CancelFunc, []discordgo.RequestOption) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	opts := []discordgo.RequestOption{discordgo.WithContext(ctx)}
	if reason != "" {
		opts = append(opts, discordgo.WithAuditLogReason(reason))
	}
	return ctx, cancel, opts
}

func (d *DiscordPlatform) Ban(ctx context.Context, guildID, userID, reason string) error {
	_, cancel, opts := d.opts(ctx, "")
	defer cancel()

	if err := d.session.GuildBanCreateWithReason(guildID, userID, reason, 0, opts...); err != nil {
		return fmt.Errorf("ban %s in %s: %w", userID, guildID, err)
	}
	return nil
}

func (d *DiscordPlatform) FetchMember(ctx context.Context, guildID, userID string) (*Member, error) {
	if m, err := d.session.State.Member(guildID, userID); err == nil && m != nil {
		return toMember(guildID, m), nil
	}

	_, cancel, opts := d.opts(ctx, "")
	defer cancel()

	m, err := d.session.GuildMember(guildID, userID, opts...)
	if err != nil {
		if isUnknownMember(err) {
			return nil, ErrMemberNotFound
		}
		return nil, fmt.Errorf("fetch member %s in %s: %w", userID, guildID, err)
	}
	return toMember(guildID, m), nil
}

func (d *DiscordPlatform) Kick(ctx context.Context, guildID, userID, reason string) error {
	_, cancel, opts := d.opts(ctx, "")
	defer cancel()

	if err := d.session.GuildMemberDeleteWithReason(guildID, userID, reason, opts...); err != nil {
		if isUnknownMember(err) {
			return ErrMemberNotFound
		}
		return fmt.Errorf("kick %s from %s: %w", userID, guildID, err)
	}
	return nil
}

func (d *DiscordPlatform) SetRoles(ctx context.Context, guildID, userID string, roleIDs []string, reason string) error {
	_, cancel, opts := d.opts(ctx, reason)
	defer cancel()

	if roleIDs == nil {
		roleIDs = []string{}
	}
	if _, err := d.session.GuildMemberEdit(guildID, userID, &discordgo.GuildMemberParams{Roles: &roleIDs}, opts...); err != nil {
		return fmt.Errorf("set roles of %s in %s: %w", userID, guildID, err)
	}
	return nil
}

func (d *DiscordPlatform) DeleteChannel(ctx context.Context, channelID, reason string) error {
	_, cancel, opts := d.opts(ctx, reason)
	defer cancel()

	if _, err := d.session.ChannelDelete(channelID, opts...); err != nil {
		return fmt.Errorf("delete channel %s: %w", channelID, err)
	}
	return nil
}

func (d *DiscordPlatform) DeleteRole(ctx context.Context, guildID, roleID, reason string) error {
	_, cancel, opts := d.opts(ctx, reason)
	defer cancel()

	if err := d.session.GuildRoleDelete(guildID, roleID, opts...); err != nil {
		return fmt.Errorf("delete role %s in %s: %w", roleID, guildID, err)
	}
	return nil
}

func toMember(guildID string, m *discordgo.Member) *Member {
	out := &Member{GuildID: guildID, RoleIDs: append([]string(nil), m.Roles...)}
	if m.User != nil {
		out.ID = m.User.ID
		out.IsBot = m.User.Bot
	}
	return out
}

func isUnknownMember(err error) bool {
	var rest *discordgo.RESTError
	if !errors.As(err, &rest) {
		return false
	}
	if rest.Message != nil && (rest.Message.Code == discordgo.ErrCodeUnknownMember || rest.Message.Code == discordgo.ErrCodeUnknownUser) {
		return true
	}
	return rest.Response != nil && rest.Response.StatusCode == http.StatusNotFound
}
