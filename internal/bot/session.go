package bot

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/drpramila84/600-commanddiscord/internal/logging"
)

// Intents covers every event the engine consumes: guild structure, member
// joins and removals, bans and webhook updates.
const Intents = discordgo.IntentsGuilds |
	discordgo.IntentsGuildMembers |
	discordgo.IntentsGuildBans |
	discordgo.IntentsGuildWebhooks

type Session struct {
	discord *discordgo.Session
}

func NewSession(token string) (*Session, error) {
	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}
	dg.Identify.Intents = Intents
	dg.StateEnabled = true
	dg.State.TrackMembers = true
	dg.State.TrackRoles = true
	dg.State.TrackChannels = true

	return &Session{discord: dg}, nil
}

func (s *Session) Discord() *discordgo.Session {
	return s.discord
}

// Connect opens the gateway connection.
func (s *Session) Connect() error {
	if err := s.discord.Open(); err != nil {
		return fmt.Errorf("failed to open Discord connection: %w", err)
	}
	if u := s.discord.State.User; u != nil {
		logging.Info().Str("bot_id", u.ID).Str("user", u.String()).Msg("Discord bot connected")
	}
	return nil
}

func (s *Session) SelfID() string {
	if u := s.discord.State.User; u != nil {
		return u.ID
	}
	return ""
}

func (s *Session) Close() error {
	if s.discord != nil {
		return s.discord.Close()
	}
	return nil
}
