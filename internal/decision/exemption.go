package decision

import "github.com/drpramila84/600-commanddiscord/internal/config"

// IsExempt reports whether actorID is immune to counting and punishment:
// the guild owner, the bot itself, or a whitelisted user.
func IsExempt(cfg *config.GuildSettings, actorID, ownerID, selfID string) bool {
	if actorID == "" {
		return false
	}
	if actorID == ownerID || actorID == selfID {
		return true
	}
	return cfg != nil && cfg.IsWhitelisted(actorID)
}
