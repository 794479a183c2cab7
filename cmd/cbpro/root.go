package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/Sternrassler/cbpro-client/internal/config"
	"github.com/Sternrassler/cbpro-client/pkg/cbpro"
	"github.com/Sternrassler/cbpro-client/pkg/client"
	"github.com/Sternrassler/cbpro-client/pkg/logging"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// app carries what the subcommands share once the root command has run.
type app struct {
	cfgFile  string
	logLevel string
	pretty   bool
	baseURL  string

	out       io.Writer
	cfg       *config.Config
	logger    zerolog.Logger
	redis     *redis.Client
	transport *client.Client
	public    *cbpro.PublicClient
}

func newRootCommand(out io.Writer) *cobra.Command {
	a := &app{out: out}

	cmd := &cobra.Command{
		Use:           "cbpro",
		Short:         "Query Coinbase Pro public market data",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
	}
	cmd.SetOut(out)

	flags := cmd.PersistentFlags()
	flags.StringVarP(&a.cfgFile, "config", "c", "", "config file path (yaml)")
	flags.StringVar(&a.logLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
	flags.BoolVar(&a.pretty, "pretty", false, "human-readable log output")
	flags.StringVar(&a.baseURL, "base-url", "", "API root (default: sandbox)")

	cmd.AddCommand(
		newProductsCommand(a),
		newBookCommand(a),
		newTickerCommand(a),
		newTradesCommand(a),
		newCandlesCommand(a),
		newStatsCommand(a),
		newCurrenciesCommand(a),
		newTimeCommand(a),
		newCacheCommand(a),
		newServeCommand(a),
	)

	return cmd
}

// setup loads the configuration, applies flag overrides and builds the
// transport and endpoint clients.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level = a.logLevel
	}
	if flags.Changed("pretty") {
		cfg.Log.Pretty = a.pretty
	}
	if flags.Changed("base-url") {
		cfg.BaseURL = a.baseURL
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	logging.Setup(logging.Config{
		Level:  level,
		Pretty: cfg.Log.Pretty,
		Output: cmd.ErrOrStderr(),
	})
	a.logger = logging.NewLogger("cli")

	if cfg.RedisAddr != "" {
		a.redis = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})

		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
		defer cancel()
		if err := a.redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		a.logger.Debug().Str("addr", cfg.RedisAddr).Msg("Connected to Redis")
	}

	clientCfg := client.DefaultConfig(a.redis, cfg.UserAgent)
	clientCfg.BaseURL = cfg.BaseURL
	clientCfg.CacheTTL = cfg.CacheTTL
	clientCfg.Timeout = cfg.Timeout

	a.transport, err = client.New(clientCfg)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}

	a.public, err = cbpro.NewPublicClient(cfg.BaseURL, a.transport,
		cbpro.WithLogger(logging.NewLogger("cbpro")))
	if err != nil {
		return err
	}

	return nil
}

func (a *app) close() error {
	if a.transport != nil {
		a.transport.Close()
	}
	if a.redis != nil {
		return a.redis.Close()
	}
	return nil
}

// printJSON writes v as indented JSON.
func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
