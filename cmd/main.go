package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/drpramila84/600-commanddiscord/internal/bootstrap"
	"github.com/drpramila84/600-commanddiscord/internal/config"
	"github.com/drpramila84/600-commanddiscord/internal/logging"
)

var (
	cfgFile  string
	logLevel string

	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func newRootCmd() *cobra.Command {
	v := viper.New()

	root := &cobra.Command{
		Use:   "antinuke",
		Short: "Discord guild anti-abuse engine",
		Long: `antinuke watches administrative actions in Discord guilds and stops
accounts that perform too many destructive actions in a short window.

Protected actions: bans, kicks, channel and role create/delete, webhook
creation and bot additions. Mass joins are handled as raids.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./configs/config.yaml)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	_ = v.BindPFlag("logging.level", root.PersistentFlags().Lookup("log-level"))

	root.AddCommand(newRunCmd(v), newGuildCmd(v), newVersionCmd())
	return root
}

func newRunCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Connect to the gateway and start protecting guilds",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(v, cfgFile)
			if err != nil {
				return err
			}
			if cfg.Bot.Token == "" {
				return config.ErrMissingToken
			}
			if err := logging.InitGlobalLogger(cfg.Logging.Level, cfg.Logging.File, cfg.Logging.Pretty); err != nil {
				return fmt.Errorf("failed to initialize logging: %w", err)
			}

			logging.Info().Str("version", Version).Str("commit", Commit).Msg("Starting antinuke engine")

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return bootstrap.New(cfg).Run(ctx)
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "antinuke %s\n", Version)
			fmt.Fprintf(out, "Commit:  %s\n", Commit)
			fmt.Fprintf(out, "Built:   %s\n", BuildTime)
		},
	}
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
