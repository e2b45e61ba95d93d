package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/drpramila84/600-commanddiscord/internal/models"
)

var ErrInvalidSettings = errors.New("invalid guild settings")

var validate = validator.New()

// GuildSettings is the per-guild anti-abuse configuration. It is owned by the
// settings store and read fresh for every event.
type GuildSettings struct {
	GuildID               string `validate:"required"`
	Enabled               bool
	Toggles               Toggles
	Thresholds            ThresholdMatrix
	TimeWindowSeconds     int `validate:"gte=1"`
	RaidThreshold         int `validate:"gte=1"`
	RaidTimeWindowSeconds int `validate:"gte=1"`
	Punishment            models.Policy
	Whitelist             []string
	LogChannelID          string
}

// DefaultGuildSettings is what a guild without stored settings gets.
// Protection starts disabled until an administrator turns it on.
func DefaultGuildSettings(guildID string) *GuildSettings {
	return &GuildSettings{
		GuildID:               guildID,
		Enabled:               false,
		Toggles:               DefaultToggles(),
		Thresholds:            DefaultThresholds(),
		TimeWindowSeconds:     DefaultTimeWindowSeconds,
		RaidThreshold:         DefaultRaidThreshold,
		RaidTimeWindowSeconds: DefaultRaidWindowSeconds,
		Punishment:            DefaultPolicy,
		Whitelist:             make([]string, 0),
	}
}

// Normalize replaces non-positive thresholds and windows with defaults.
func (s *GuildSettings) Normalize() {
	for _, c := range models.ActorCategories() {
		if p := s.Thresholds.slot(c); p != nil && *p < 1 {
			*p = DefaultThreshold
		}
	}
	if s.TimeWindowSeconds < 1 {
		s.TimeWindowSeconds = DefaultTimeWindowSeconds
	}
	if s.RaidThreshold < 1 {
		s.RaidThreshold = DefaultRaidThreshold
	}
	if s.RaidTimeWindowSeconds < 1 {
		s.RaidTimeWindowSeconds = DefaultRaidWindowSeconds
	}
}

func (s *GuildSettings) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}
	return nil
}

func (s *GuildSettings) CategoryEnabled(c models.Category) bool {
	return s.Enabled && s.Toggles.Enabled(c)
}

func (s *GuildSettings) Threshold(c models.Category) int {
	if c == models.CategoryRaid {
		if s.RaidThreshold < 1 {
			return DefaultRaidThreshold
		}
		return s.RaidThreshold
	}
	return s.Thresholds.Get(c)
}

func (s *GuildSettings) Window(c models.Category) time.Duration {
	seconds := s.TimeWindowSeconds
	if c == models.CategoryRaid {
		seconds = s.RaidTimeWindowSeconds
	}
	if seconds < 1 {
		seconds = DefaultTimeWindowSeconds
	}
	return time.Duration(seconds) * time.Second
}

func (s *GuildSettings) IsWhitelisted(userID string) bool {
	for _, id := range s.Whitelist {
		if id == userID {
			return true
		}
	}
	return false
}

func (s *GuildSettings) AddWhitelist(userID string) bool {
	if s.IsWhitelisted(userID) {
		return false
	}
	s.Whitelist = append(s.Whitelist, userID)
	return true
}

func (s *GuildSettings) RemoveWhitelist(userID string) bool {
	for i, id := range s.Whitelist {
		if id == userID {
			s.Whitelist = append(s.Whitelist[:i], s.Whitelist[i+1:]...)
			return true
		}
	}
	return false
}
