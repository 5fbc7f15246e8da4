package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/goliatone/go-fieldtree/internal/config"
	"github.com/goliatone/go-fieldtree/internal/logging"
)

type rootFlags struct {
	configPath string
	logLevel   string
	seedPath   string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	cmd := &cobra.Command{
		Use:           "fieldtree",
		Short:         "Encode and decode CMS custom field trees",
		Long:          `fieldtree turns stored custom field values into nested, self-describing trees and flattens posted trees back into field updates.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Path to fieldtree.yaml (default: ./fieldtree.yaml when present)")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Override log.level")
	cmd.PersistentFlags().StringVar(&flags.seedPath, "seed", "", "YAML file with items, terms and field values to load before running")

	cmd.AddCommand(
		newServeCmd(flags),
		newEncodeCmd(flags),
		newFlattenCmd(),
		newSchemaCmd(flags),
	)
	return cmd
}

// setup loads the configuration and builds the logger.
func (f *rootFlags) setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, nil, err
	}
	if f.logLevel != "" {
		cfg.Log.Level = f.logLevel
	}
	logger, err := logging.New(cfg.Log.Level)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}
