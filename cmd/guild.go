package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/drpramila84/600-commanddiscord/internal/config"
	"github.com/drpramila84/600-commanddiscord/internal/database"
	"github.com/drpramila84/600-commanddiscord/internal/models"
)

// guildOps edits stored guild settings offline. The running engine reads
// settings per event, so changes apply without a restart.
type guildOps struct {
	db  *database.Database
	out io.Writer
}

func (g guildOps) show(ctx context.Context, guildID string) error {
	s, err := g.db.Load(ctx, guildID)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(g.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Guild\t%s\n", s.GuildID)
	fmt.Fprintf(w, "Enabled\t%t\n", s.Enabled)
	fmt.Fprintf(w, "Punishment\t%s\n", s.Punishment)
	fmt.Fprintf(w, "Window\t%ds\n", s.TimeWindowSeconds)
	fmt.Fprintf(w, "Log channel\t%s\n", orNone(s.LogChannelID))
	fmt.Fprintf(w, "Whitelist\t%s\n", orNone(strings.Join(s.Whitelist, ", ")))
	fmt.Fprintln(w)
	fmt.Fprintln(w, "CATEGORY\tENABLED\tTHRESHOLD")
	for _, c := range models.ActorCategories() {
		fmt.Fprintf(w, "%s\t%t\t%d\n", c, s.Toggles.Enabled(c), s.Threshold(c))
	}
	fmt.Fprintf(w, "%s\t%t\t%d in %ds\n", models.CategoryRaid, s.Toggles.Enabled(models.CategoryRaid), s.RaidThreshold, s.RaidTimeWindowSeconds)
	return w.Flush()
}

func (g guildOps) update(ctx context.Context, guildID string, fn func(*config.GuildSettings)) error {
	s, err := g.db.Load(ctx, guildID)
	if err != nil {
		return err
	}
	fn(s)
	return g.db.Save(ctx, s)
}

func (g guildOps) setEnabled(ctx context.Context, guildID string, on bool) error {
	if err := g.update(ctx, guildID, func(s *config.GuildSettings) { s.Enabled = on }); err != nil {
		return err
	}
	state := "disabled"
	if on {
		state = "enabled"
	}
	fmt.Fprintf(g.out, "Protection %s for %s\n", state, guildID)
	return nil
}

func (g guildOps) setPunishment(ctx context.Context, guildID, name string) error {
	p := models.ParsePolicy(name)
	if p.String() != strings.ToUpper(strings.TrimSpace(name)) {
		return fmt.Errorf("unknown punishment %q (BAN, KICK or REMOVE_ROLES)", name)
	}
	if err := g.update(ctx, guildID, func(s *config.GuildSettings) { s.Punishment = p }); err != nil {
		return err
	}
	fmt.Fprintf(g.out, "Punishment for %s set to %s\n", guildID, p)
	return nil
}

func (g guildOps) setLogChannel(ctx context.Context, guildID, channelID string) error {
	if err := g.update(ctx, guildID, func(s *config.GuildSettings) { s.LogChannelID = channelID }); err != nil {
		return err
	}
	fmt.Fprintf(g.out, "Log channel for %s set to %s\n", guildID, orNone(channelID))
	return nil
}

func (g guildOps) whitelistAdd(ctx context.Context, guildID, userID string) error {
	added, err := g.db.AddWhitelist(ctx, guildID, userID)
	if err != nil {
		return err
	}
	if !added {
		fmt.Fprintf(g.out, "%s is already whitelisted in %s\n", userID, guildID)
		return nil
	}
	fmt.Fprintf(g.out, "Whitelisted %s in %s\n", userID, guildID)
	return nil
}

func (g guildOps) whitelistRemove(ctx context.Context, guildID, userID string) error {
	removed, err := g.db.RemoveWhitelist(ctx, guildID, userID)
	if err != nil {
		return err
	}
	if !removed {
		fmt.Fprintf(g.out, "%s is not whitelisted in %s\n", userID, guildID)
		return nil
	}
	fmt.Fprintf(g.out, "Removed %s from the %s whitelist\n", userID, guildID)
	return nil
}

func (g guildOps) list(ctx context.Context) error {
	ids, err := g.db.Guilds(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		fmt.Fprintln(g.out, id)
	}
	return nil
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

func newGuildCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "guild",
		Short: "Inspect and edit stored guild settings",
	}

	// withOps opens the settings store for the duration of one command.
	withOps := func(fn func(ctx context.Context, g guildOps, args []string) error) func(*cobra.Command, []string) error {
		return func(c *cobra.Command, args []string) error {
			cfg, err := config.Load(v, cfgFile)
			if err != nil {
				return err
			}
			db, err := database.Open(c.Context(), cfg.Database.Path)
			if err != nil {
				return err
			}
			defer db.Close()
			return fn(c.Context(), guildOps{db: db, out: c.OutOrStdout()}, args)
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List guilds with stored settings",
			Args:  cobra.NoArgs,
			RunE: withOps(func(ctx context.Context, g guildOps, _ []string) error {
				return g.list(ctx)
			}),
		},
		&cobra.Command{
			Use:   "show <guild-id>",
			Short: "Print a guild's settings",
			Args:  cobra.ExactArgs(1),
			RunE: withOps(func(ctx context.Context, g guildOps, args []string) error {
				return g.show(ctx, args[0])
			}),
		},
		&cobra.Command{
			Use:   "enable <guild-id>",
			Short: "Turn protection on",
			Args:  cobra.ExactArgs(1),
			RunE: withOps(func(ctx context.Context, g guildOps, args []string) error {
				return g.setEnabled(ctx, args[0], true)
			}),
		},
		&cobra.Command{
			Use:   "disable <guild-id>",
			Short: "Turn protection off",
			Args:  cobra.ExactArgs(1),
			RunE: withOps(func(ctx context.Context, g guildOps, args []string) error {
				return g.setEnabled(ctx, args[0], false)
			}),
		},
		&cobra.Command{
			Use:   "punishment <guild-id> <BAN|KICK|REMOVE_ROLES>",
			Short: "Set the punishment applied on breach",
			Args:  cobra.ExactArgs(2),
			RunE: withOps(func(ctx context.Context, g guildOps, args []string) error {
				return g.setPunishment(ctx, args[0], args[1])
			}),
		},
		&cobra.Command{
			Use:   "log-channel <guild-id> [channel-id]",
			Short: "Set or clear the incident log channel",
			Args:  cobra.RangeArgs(1, 2),
			RunE: withOps(func(ctx context.Context, g guildOps, args []string) error {
				channelID := ""
				if len(args) == 2 {
					channelID = args[1]
				}
				return g.setLogChannel(ctx, args[0], channelID)
			}),
		},
	)

	wl := &cobra.Command{
		Use:   "whitelist",
		Short: "Manage users exempt from enforcement",
	}
	wl.AddCommand(
		&cobra.Command{
			Use:   "add <guild-id> <user-id>",
			Short: "Exempt a user",
			Args:  cobra.ExactArgs(2),
			RunE: withOps(func(ctx context.Context, g guildOps, args []string) error {
				return g.whitelistAdd(ctx, args[0], args[1])
			}),
		},
		&cobra.Command{
			Use:   "remove <guild-id> <user-id>",
			Short: "Remove a user's exemption",
			Args:  cobra.ExactArgs(2),
			RunE: withOps(func(ctx context.Context, g guildOps, args []string) error {
				return g.whitelistRemove(ctx, args[0], args[1])
			}),
		},
	)
	cmd.AddCommand(wl)
	return cmd
}
