package dispatcher

import (
	"context"
	"errors"

	"github.com/drpramila84/600-commanddiscord/internal/logging"
	"github.com/drpramila84/600-commanddiscord/internal/metrics"
	"github.com/drpramila84/600-commanddiscord/internal/models"
)

var ErrMemberNotFound = errors.New("member not found")

const reasonPrefix = "[Antinuke] "

// AuditReason tags a reason so the action is recognizable in the guild's
// audit log.
func AuditReason(reason string) string {
	return reasonPrefix + reason
}

type Member struct {
	ID      string
	GuildID string
	RoleIDs []string
	IsBot   bool
}

// Platform is the set of moderation calls the engine can make. Each call is
// a single request with no retry.
type Platform interface {
	Ban(ctx context.Context, guildID, userID, reason string) error
	// FetchMember returns ErrMemberNotFound when the user is not in the guild.
	FetchMember(ctx context.Context, guildID, userID string) (*Member, error)
	Kick(ctx context.Context, guildID, userID, reason string) error
	SetRoles(ctx context.Context, guildID, userID string, roleIDs []string, reason string) error
	DeleteChannel(ctx context.Context, channelID, reason string) error
	DeleteRole(ctx context.Context, guildID, roleID, reason string) error
}

// Punisher applies a guild's punishment policy to an offending actor.
type Punisher struct {
	platform Platform
	metrics  *metrics.Registry
}

func NewPunisher(platform Platform, m *metrics.Registry) *Punisher {
	return &Punisher{platform: platform, metrics: m}
}

func (p *Punisher) Platform() Platform {
	return p.platform
}

// Punish makes exactly one attempt and reports the result as an Outcome.
func (p *Punisher) Punish(ctx context.Context, guildID, actorID string, policy models.Policy, reason string) models.Outcome {
	reason = AuditReason(reason)

	var out models.Outcome
	switch policy {
	case models.PolicyBan:
		out = p.ban(ctx, guildID, actorID, reason)
	case models.PolicyKick:
		out = p.kick(ctx, guildID, actorID, reason)
	default:
		out = p.stripRoles(ctx, guildID, actorID, reason)
	}

	p.metrics.Punishment(policy.String(), out.Label)
	ev := logging.Info()
	if !out.OK {
		ev = logging.Warn().Str("error", out.Reason)
	}
	ev.Str("guild", guildID).
		Str("actor", actorID).
		Stringer("policy", policy).
		Str("outcome", out.Label).
		Msg("Punishment dispatched")
	return out
}

func (p *Punisher) ban(ctx context.Context, guildID, actorID, reason string) models.Outcome {
	if err := p.platform.Ban(ctx, guildID, actorID, reason); err != nil {
		return models.Failed(err.Error())
	}
	return models.Success(models.OutcomeBanned)
}

func (p *Punisher) kick(ctx context.Context, guildID, actorID, reason string) models.Outcome {
	if _, err := p.platform.FetchMember(ctx, guildID, actorID); err != nil {
		return models.Failed(err.Error())
	}
	if err := p.platform.Kick(ctx, guildID, actorID, reason); err != nil {
		return models.Failed(err.Error())
	}
	return models.Success(models.OutcomeKicked)
}

// stripRoles replaces the member's role list with an empty one in a single
// call. The everyone role shares the guild's id and is implicit, so it
// survives without being listed.
func (p *Punisher) stripRoles(ctx context.Context, guildID, actorID, reason string) models.Outcome {
	member, err := p.platform.FetchMember(ctx, guildID, actorID)
	if err != nil {
		return models.Failed(err.Error())
	}

	held := 0
	for _, id := range member.RoleIDs {
		if id != guildID {
			held++
		}
	}
	if err := p.platform.SetRoles(ctx, guildID, actorID, []string{}, reason); err != nil {
		return models.Failed(err.Error())
	}
	logging.Debug().Str("guild", guildID).Str("actor", actorID).Int("roles", held).Msg("Stripped roles")
	return models.Success(models.OutcomeRolesRemoved)
}
