package config

import (
	"time"

	"github.com/drpramila84/600-commanddiscord/internal/models"
)

// Defaults applied when a guild has never stored a value.
const (
	DefaultThreshold         = 3
	DefaultTimeWindowSeconds = 10
	DefaultRaidThreshold     = 5
	DefaultRaidWindowSeconds = 10
	DefaultPolicy            = models.PolicyStripRoles
)

// AuditRecencyBound is how old an audit entry may be and still be credited
// to the event being handled. Older entries most likely belong to an earlier
// action of the same type.
const AuditRecencyBound = 5 * time.Second

// ThresholdMatrix holds one threshold per actor category.
type ThresholdMatrix struct {
	Ban           int `validate:"gte=1"`
	Kick          int `validate:"gte=1"`
	ChannelCreate int `validate:"gte=1"`
	ChannelDelete int `validate:"gte=1"`
	RoleCreate    int `validate:"gte=1"`
	RoleDelete    int `validate:"gte=1"`
	WebhookCreate int `validate:"gte=1"`
	BotAdd        int `validate:"gte=1"`
}

func DefaultThresholds() ThresholdMatrix {
	return ThresholdMatrix{
		Ban:           DefaultThreshold,
		Kick:          DefaultThreshold,
		ChannelCreate: DefaultThreshold,
		ChannelDelete: DefaultThreshold,
		RoleCreate:    DefaultThreshold,
		RoleDelete:    DefaultThreshold,
		WebhookCreate: DefaultThreshold,
		BotAdd:        DefaultThreshold,
	}
}

func (m *ThresholdMatrix) slot(c models.Category) *int {
	switch c {
	case models.CategoryBan:
		return &m.Ban
	case models.CategoryKick:
		return &m.Kick
	case models.CategoryChannelCreate:
		return &m.ChannelCreate
	case models.CategoryChannelDelete:
		return &m.ChannelDelete
	case models.CategoryRoleCreate:
		return &m.RoleCreate
	case models.CategoryRoleDelete:
		return &m.RoleDelete
	case models.CategoryWebhookCreate:
		return &m.WebhookCreate
	case models.CategoryBotAdd:
		return &m.BotAdd
	}
	return nil
}

func (m ThresholdMatrix) Get(c models.Category) int {
	if p := m.slot(c); p != nil && *p >= 1 {
		return *p
	}
	return DefaultThreshold
}

func (m *ThresholdMatrix) Set(c models.Category, v int) {
	if p := m.slot(c); p != nil {
		*p = v
	}
}

// Toggles holds the per-category on/off switches.
type Toggles struct {
	Ban           bool
	Kick          bool
	ChannelCreate bool
	ChannelDelete bool
	RoleCreate    bool
	RoleDelete    bool
	WebhookCreate bool
	BotAdd        bool
	Raid          bool
}

// DefaultToggles protects against destructive actions out of the box and
// leaves the noisier create/raid checks opt-in.
func DefaultToggles() Toggles {
	return Toggles{
		Ban:           true,
		Kick:          true,
		ChannelDelete: true,
		RoleDelete:    true,
		WebhookCreate: true,
		BotAdd:        true,
	}
}

func (t *Toggles) slot(c models.Category) *bool {
	switch c {
	case models.CategoryBan:
		return &t.Ban
	case models.CategoryKick:
		return &t.Kick
	case models.CategoryChannelCreate:
		return &t.ChannelCreate
	case models.CategoryChannelDelete:
		return &t.ChannelDelete
	case models.CategoryRoleCreate:
		return &t.RoleCreate
	case models.CategoryRoleDelete:
		return &t.RoleDelete
	case models.CategoryWebhookCreate:
		return &t.WebhookCreate
	case models.CategoryBotAdd:
		return &t.BotAdd
	case models.CategoryRaid:
		return &t.Raid
	}
	return nil
}

func (t Toggles) Enabled(c models.Category) bool {
	if p := t.slot(c); p != nil {
		return *p
	}
	return false
}

func (t *Toggles) Set(c models.Category, on bool) {
	if p := t.slot(c); p != nil {
		*p = on
	}
}
