package main

import (
	"fmt"

	"github.com/Sternrassler/streamlist/internal/config"
	"github.com/Sternrassler/streamlist/pkg/logging"
	"github.com/Sternrassler/streamlist/pkg/twitch"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// app carries the state shared by all commands.
type app struct {
	cfgFile  string
	envFile  string
	logLevel string

	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "streamlist",
		Short:         "Browse Twitch games and streams page by page",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default ./streamlist.yaml if present)")
	flags.StringVar(&a.envFile, "env-file", ".env", "dotenv file loaded before the environment is read")
	flags.StringVar(&a.logLevel, "log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(
		newBrowseCommand(a),
		newWarmCommand(a),
		newServeCommand(a),
	)

	return rootCmd
}

func (a *app) init(cmd *cobra.Command) error {
	if err := config.LoadDotEnv(a.envFile); err != nil {
		return err
	}

	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if a.logLevel != "" {
		if cfg.Log.Level, err = logging.ParseLevel(a.logLevel); err != nil {
			return err
		}
	}

	logging.Setup(logging.Config{
		Level:   cfg.Log.Level,
		Pretty:  cfg.Log.Pretty,
		Output:  cmd.ErrOrStderr(),
		Service: "streamlist",
	})

	a.cfg = cfg
	return nil
}

// newClient creates the Twitch client. The returned func releases it.
func (a *app) newClient() (*twitch.Client, func(), error) {
	var rdb *redis.Client
	if a.cfg.Redis.Enabled() {
		rdb = redis.NewClient(&redis.Options{
			Addr:     a.cfg.Redis.Addr,
			Password: a.cfg.Redis.Password,
			DB:       a.cfg.Redis.DB,
		})
	}

	tc := twitch.DefaultConfig(rdb, a.cfg.Twitch.ClientID)
	tc.BaseURL = a.cfg.Twitch.BaseURL
	tc.UserAgent = a.cfg.Twitch.UserAgent
	tc.Timeout = a.cfg.Twitch.Timeout
	tc.Revalidate = a.cfg.Twitch.Revalidate
	tc.Breaker.ConsecutiveFailures = a.cfg.Twitch.BreakerFailures
	tc.Breaker.Timeout = a.cfg.Twitch.BreakerTimeout

	client, err := twitch.New(tc)
	if err != nil {
		if rdb != nil {
			rdb.Close()
		}
		return nil, nil, fmt.Errorf("create twitch client: %w", err)
	}

	cleanup := func() {
		client.Close()
		if rdb != nil {
			rdb.Close()
		}
	}
	return client, cleanup, nil
}
