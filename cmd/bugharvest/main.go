package main

import (
	"fmt"
	"os"

	"github.com/agusespa/bugharvest/internal/interrupt"
	"github.com/agusespa/bugharvest/pkg/config"
	"github.com/agusespa/bugharvest/pkg/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var version = "dev"

type app struct {
	configFile string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
	stop   *interrupt.Token
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "bugharvest",
		Short:         "Mine defect-fixing pull requests into a paired function dataset",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(a.configFile)
			if err != nil {
				return fmt.Errorf("failed to load config from %s: %w", a.configFile, err)
			}
			a.cfg = cfg
			a.logger = logger.New(a.verbose)
			a.stop = interrupt.Notify(a.logger, nil)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&a.configFile, "config", config.DefaultPath, "Path to configuration file")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		newCrawlCmd(a),
		newWriteCmd(a),
		newDivideCmd(a),
	)
	return root
}
