package main

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/supergoodsystems/wiretap/internal/observability"
)

// app carries what every subcommand shares once the global flags are parsed.
type app struct {
	configPath string
	storeURI   string
	logLevel   string

	cfg   *config
	log   *zerolog.Logger
	store historyStore
}

func newRootCmd() *cobra.Command {
	return (&app{}).command()
}

func (a *app) command() *cobra.Command {
	root := &cobra.Command{
		Use:   "wiretap",
		Short: "wiretap records the HTTP exchanges of an instrumented client",
		Long: `wiretap makes requests through an instrumented HTTP client and lets you
review the recorded history.

Records and diagnostic settings live in a sqlite file or a redis server,
chosen with --store or the store key of the --config file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "YAML configuration file")
	root.PersistentFlags().StringVar(&a.storeURI, "store", "", "record store, sqlite://path or redis://host:port/db (default "+defaultStore+")")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "trace, debug, info, warn, error or off")

	root.AddCommand(
		newFetchCmd(a),
		newHistoryCmd(a),
		newCheckCmd(a),
		newSettingsCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := loadConfig(a.configPath)
	if err != nil {
		return err
	}
	if a.storeURI != "" {
		cfg.Store = a.storeURI
	}
	if cfg.Store == "" {
		cfg.Store = defaultStore
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "warn"
	}
	a.cfg = cfg
	a.log = observability.NewLogger(cfg.LogLevel, cfg.LogFile)

	a.store, err = openStore(cmd.Context(), cfg.Store, cfg.MaxRecords, a.log)
	return err
}

// run wraps a command body so the store is closed however it ends.
func (a *app) run(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		defer func() {
			if a.store == nil {
				return
			}
			if cerr := a.store.Close(); err == nil {
				err = cerr
			}
		}()
		return fn(cmd, args)
	}
}
