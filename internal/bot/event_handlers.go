package bot

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/drpramila84/600-commanddiscord/internal/logging"
	"github.com/drpramila84/600-commanddiscord/internal/models"
)

// Engine is what the gateway handlers feed.
type Engine interface {
	Evaluate(ctx context.Context, ev models.AdminEvent) *models.IncidentRecord
	HandleJoin(ctx context.Context, ev models.AdminEvent) []*models.IncidentRecord
	SetSelfID(id string)
}

// OwnerResolver returns the owner of a guild.
type OwnerResolver interface {
	Owner(ctx context.Context, guildID string) (string, error)
}

// stateOwners reads the guild owner from the session state and falls back
// to a REST lookup.
type stateOwners struct {
	session *discordgo.Session
	timeout time.Duration
}

func (o stateOwners) Owner(ctx context.Context, guildID string) (string, error) {
	if g, err := o.session.State.Guild(guildID); err == nil && g.OwnerID != "" {
		return g.OwnerID, nil
	}
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	g, err := o.session.Guild(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return "", err
	}
	return g.OwnerID, nil
}

// Dispatcher routes translated gateway events into the engine. discordgo
// already runs each handler on its own goroutine.
type Dispatcher struct {
	engine Engine
	owners OwnerResolver
	now    func() time.Time
}

func NewDispatcher(engine Engine, owners OwnerResolver) *Dispatcher {
	return &Dispatcher{engine: engine, owners: owners, now: time.Now}
}

// dispatch fills in the owner and hands ev to fn. Without a known owner the
// event is dropped, since the owner could not be exempted.
func (d *Dispatcher) dispatch(ev models.AdminEvent, ok bool, fn func(context.Context, models.AdminEvent) []*models.IncidentRecord) {
	if !ok {
		return
	}
	ctx := context.Background()

	owner, err := d.owners.Owner(ctx, ev.GuildID)
	if err != nil || owner == "" {
		logging.Warn().Err(err).
			Str("guild", ev.GuildID).
			Stringer("category", ev.Category).
			Msg("Guild owner unknown, dropping event")
		return
	}
	ev.OwnerID = owner

	for _, rec := range fn(ctx, ev) {
		logging.Info().
			Str("guild", ev.GuildID).
			Str("incident", rec.ID).
			Str("title", rec.Title).
			Msg("Incident raised")
	}
}

func (d *Dispatcher) evaluate(ctx context.Context, ev models.AdminEvent) []*models.IncidentRecord {
	if rec := d.engine.Evaluate(ctx, ev); rec != nil {
		return []*models.IncidentRecord{rec}
	}
	return nil
}

// SetupEventHandlers registers the gateway handlers on s.
func (s *Session) SetupEventHandlers(engine Engine, restTimeout time.Duration) *Dispatcher {
	if restTimeout <= 0 {
		restTimeout = 5 * time.Second
	}
	d := NewDispatcher(engine, stateOwners{session: s.discord, timeout: restTimeout})
	d.Register(s.discord)
	logging.Info().Msg("Discord event handlers configured")
	return d
}

// Register adds one handler per consumed event type.
func (d *Dispatcher) Register(dg *discordgo.Session) {
	dg.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
		d.OnReady(r)
	})
	dg.AddHandler(func(_ *discordgo.Session, g *discordgo.GuildCreate) {
		logging.Info().Str("guild", g.ID).Str("name", g.Name).Msg("Guild available")
	})
	dg.AddHandler(func(_ *discordgo.Session, b *discordgo.GuildBanAdd) {
		ev, ok := fromBan(b, d.now())
		d.dispatch(ev, ok, d.evaluate)
	})
	dg.AddHandler(func(_ *discordgo.Session, m *discordgo.GuildMemberRemove) {
		ev, ok := fromMemberRemove(m, d.now())
		d.dispatch(ev, ok, d.evaluate)
	})
	dg.AddHandler(func(_ *discordgo.Session, c *discordgo.ChannelCreate) {
		ev, ok := fromChannel(models.CategoryChannelCreate, c.Channel, d.now())
		d.dispatch(ev, ok, d.evaluate)
	})
	dg.AddHandler(func(_ *discordgo.Session, c *discordgo.ChannelDelete) {
		ev, ok := fromChannel(models.CategoryChannelDelete, c.Channel, d.now())
		d.dispatch(ev, ok, d.evaluate)
	})
	dg.AddHandler(func(_ *discordgo.Session, r *discordgo.GuildRoleCreate) {
		ev, ok := fromRoleCreate(r, d.now())
		if !ok && r.GuildRole != nil && r.Role != nil && r.Role.Managed {
			logging.Debug().Str("role", r.Role.ID).Msg("Skipping managed role create")
		}
		d.dispatch(ev, ok, d.evaluate)
	})
	dg.AddHandler(func(_ *discordgo.Session, r *discordgo.GuildRoleDelete) {
		ev, ok := fromRoleDelete(r, d.now())
		d.dispatch(ev, ok, d.evaluate)
	})
	dg.AddHandler(func(_ *discordgo.Session, w *discordgo.WebhooksUpdate) {
		ev, ok := fromWebhooksUpdate(w, d.now())
		d.dispatch(ev, ok, d.evaluate)
	})
	dg.AddHandler(func(_ *discordgo.Session, m *discordgo.GuildMemberAdd) {
		ev, ok := fromMemberAdd(m, d.now())
		d.dispatch(ev, ok, d.engine.HandleJoin)
	})
}

func (d *Dispatcher) OnReady(r *discordgo.Ready) {
	if r.User == nil {
		return
	}
	d.engine.SetSelfID(r.User.ID)
	logging.Info().
		Str("user", r.User.String()).
		Int("guilds", len(r.Guilds)).
		Msg("Bot ready")
}
