package models

import "time"

// Category is one tracked administrative action type.
type Category uint8

const (
	CategoryUnknown Category = iota
	CategoryBan
	CategoryKick
	CategoryChannelCreate
	CategoryChannelDelete
	CategoryRoleCreate
	CategoryRoleDelete
	CategoryWebhookCreate
	CategoryBotAdd
	CategoryRaid
)

var categoryNames = [...]string{
	CategoryUnknown:       "unknown",
	CategoryBan:           "ban",
	CategoryKick:          "kick",
	CategoryChannelCreate: "channel_create",
	CategoryChannelDelete: "channel_delete",
	CategoryRoleCreate:    "role_create",
	CategoryRoleDelete:    "role_delete",
	CategoryWebhookCreate: "webhook_create",
	CategoryBotAdd:        "bot_add",
	CategoryRaid:          "raid",
}

func (c Category) String() string {
	if int(c) < len(categoryNames) {
		return categoryNames[c]
	}
	return categoryNames[CategoryUnknown]
}

// ActorCategories lists every category that is attributed to an actor.
func ActorCategories() []Category {
	return []Category{
		CategoryBan,
		CategoryKick,
		CategoryChannelCreate,
		CategoryChannelDelete,
		CategoryRoleCreate,
		CategoryRoleDelete,
		CategoryWebhookCreate,
		CategoryBotAdd,
	}
}

type ActorRef struct {
	ID  string
	Tag string
}

// ResourceRef identifies the thing an event happened to: a user for
// bans/kicks/joins, a channel or role for create/delete events.
type ResourceRef struct {
	ID    string
	Name  string
	IsBot bool
}

// AdminEvent is the inbound contract for every handler. It never carries the
// actor; that is resolved from the audit log.
type AdminEvent struct {
	Category   Category
	GuildID    string
	OwnerID    string
	Subject    ResourceRef
	OccurredAt time.Time
}
