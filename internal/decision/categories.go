package decision

import (
	"context"

	"github.com/drpramila84/600-commanddiscord/internal/dispatcher"
	"github.com/drpramila84/600-commanddiscord/internal/models"
)

// undoFunc reverts the action that triggered a breach.
type undoFunc func(ctx context.Context, p dispatcher.Platform, ev models.AdminEvent, reason string) error

type categorySpec struct {
	reason       string
	title        string
	description  string
	noun         string
	undo         undoFunc
	undoReason   string
	undoLabel    string
	subjectField string
}

var categorySpecs = map[models.Category]categorySpec{
	models.CategoryBan: {
		reason:      "Mass banning detected",
		title:       "Antinuke: Mass Ban Detected",
		description: "mass banning members",
		noun:        "bans",
	},
	models.CategoryKick: {
		reason:      "Mass kicking detected",
		title:       "Antinuke: Mass Kick Detected",
		description: "mass kicking members",
		noun:        "kicks",
	},
	models.CategoryChannelDelete: {
		reason:      "Mass channel deletion detected",
		title:       "Antinuke: Mass Channel Delete Detected",
		description: "mass deleting channels",
		noun:        "deletions",
	},
	models.CategoryChannelCreate: {
		reason:       "Mass channel creation detected",
		title:        "Antinuke: Mass Channel Create Detected",
		description:  "mass creating channels",
		noun:         "creations",
		undo:         deleteChannel,
		undoReason:   "Mass channel creation",
		undoLabel:    "channel deleted",
		subjectField: "Channel",
	},
	models.CategoryRoleDelete: {
		reason:      "Mass role deletion detected",
		title:       "Antinuke: Mass Role Delete Detected",
		description: "mass deleting roles",
		noun:        "deletions",
	},
	models.CategoryRoleCreate: {
		reason:       "Mass role creation detected",
		title:        "Antinuke: Mass Role Create Detected",
		description:  "mass creating roles",
		noun:         "creations",
		undo:         deleteRole,
		undoReason:   "Mass role creation",
		undoLabel:    "role deleted",
		subjectField: "Role",
	},
	models.CategoryWebhookCreate: {
		reason:      "Unauthorized webhook creation",
		title:       "Antinuke: Webhook Creation Detected",
		description: "creating webhooks",
		noun:        "webhooks",
	},
	models.CategoryBotAdd: {
		reason:       "Unauthorized bot addition",
		title:        "Antinuke: Unauthorized Bot Addition",
		description:  "adding bots without permission",
		noun:         "bots added",
		undo:         kickBot,
		undoReason:   "Unauthorized bot addition",
		undoLabel:    "bot kicked",
		subjectField: "Bot Added",
	},
}

func deleteChannel(ctx context.Context, p dispatcher.Platform, ev models.AdminEvent, reason string) error {
	return p.DeleteChannel(ctx, ev.Subject.ID, reason)
}

func deleteRole(ctx context.Context, p dispatcher.Platform, ev models.AdminEvent, reason string) error {
	return p.DeleteRole(ctx, ev.GuildID, ev.Subject.ID, reason)
}

func kickBot(ctx context.Context, p dispatcher.Platform, ev models.AdminEvent, reason string) error {
	return p.Kick(ctx, ev.GuildID, ev.Subject.ID, reason)
}
