// Package cli implements the pollhttp command.
package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/frankli0324/pollhttp"
	"github.com/frankli0324/pollhttp/internal/config"
)

// Version is set at build time.
var Version = "dev"

type rootFlags struct {
	cfgFile  string
	logLevel string
	tick     time.Duration

	cfg    *config.Config
	logger *zap.Logger
}

// NewRootCmd returns the pollhttp command tree.
func NewRootCmd() *cobra.Command {
	f := &rootFlags{}
	root := &cobra.Command{
		Use:           "pollhttp",
		Short:         "Send HTTP requests through a polled transfer queue",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			path := f.cfgFile
			if path == "" {
				path = config.DefaultPath()
			}
			cfg, err := config.Load(path)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if f.logLevel != "" {
				cfg.Log.Level = f.logLevel
			}
			if f.tick > 0 {
				cfg.TickInterval = config.Duration(f.tick)
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			logger, err := cfg.Log.NewLogger()
			if err != nil {
				return fmt.Errorf("failed to build logger: %w", err)
			}
			f.cfg, f.logger = cfg, logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if f.logger != nil {
				f.logger.Sync()
			}
		},
	}
	root.PersistentFlags().StringVar(&f.cfgFile, "config", "", "config file (default is ~/.pollhttp/config.yaml)")
	root.PersistentFlags().StringVar(&f.logLevel, "log-level", "", "log level, overrides the config file")
	root.PersistentFlags().DurationVar(&f.tick, "tick", 0, "queue tick interval, overrides the config file")

	root.AddCommand(newFetchCmd(f), newVersionCmd())
	return root
}

// transport builds a transport from the loaded configuration.
func (f *rootFlags) transport() (*pollhttp.Transport, error) {
	cfg := f.cfg
	client, err := cfg.Client.NewClient(f.logger)
	if err != nil {
		return nil, err
	}
	return pollhttp.New(
		pollhttp.WithLogger(f.logger),
		pollhttp.WithClient(client),
		pollhttp.WithHeader(cfg.Client.HTTPHeader()),
		pollhttp.WithTickInterval(time.Duration(cfg.TickInterval)),
		pollhttp.WithMaxPollFailures(cfg.MaxPollFailures),
		pollhttp.WithMaxPending(cfg.MaxPending),
		pollhttp.WithDeliverFailures(true),
		pollhttp.WithCancelMessage(cfg.CancelMessage),
	), nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show the pollhttp version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "pollhttp version %s\n", Version)
		},
	}
}
