// Package cli wires configuration, logging and the harvest components into
// cobra commands.
package cli

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"poi-harvest/internal/middleware/logger"
	"poi-harvest/internal/poi_harvest/usage"
	"poi-harvest/pkg/config"
)

// Version is set at build time with -ldflags "-X poi-harvest/internal/cli.Version=...".
var Version = "dev"

type app struct {
	cfgFile string
	debug   bool

	cfg      *config.Config
	log      *zap.Logger
	registry *prometheus.Registry
	metrics  *usage.Metrics
}

// NewRootCommand builds the poi-harvest command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "poi-harvest",
		Short:         "Resumable, rate-limited bulk harvester for points of interest",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init()
		},
	}
	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "YAML config file (defaults and env only when empty)")
	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "enable debug logging")

	root.AddCommand(
		a.harvestCommand(),
		a.detailsCommand(),
		a.filterCommand(),
		a.serveCommand(),
		&cobra.Command{
			Use:   "version",
			Short: "Print the version number",
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "poi-harvest version %s\n", Version)
			},
		},
	)
	return root
}

// Execute runs the command line against os.Args.
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

func (a *app) init() error {
	cfg, err := config.LoadConfig(a.cfgFile)
	if err != nil {
		return err
	}
	log, err := logger.NewLogger(a.debug || cfg.Log.Debug)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	a.cfg = cfg
	a.log = log
	a.registry = prometheus.NewRegistry()
	a.metrics = usage.NewMetrics(a.registry)
	return nil
}

func (a *app) sync() {
	if a.log != nil {
		_ = a.log.Sync()
	}
}
