package main

import (
	"log/slog"

	"catalogadmin/config"
	"catalogadmin/utils"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "catalog-admin",
		Short:         "Back-office server for the product catalog",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(
		newServeCmd(),
		newUserCmd(),
	)
	return cmd
}

// bootstrap loads the configuration and the logger shared by every command.
func bootstrap() (*config.Config, *slog.Logger, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, warning := configureLogger(cfg.App.LogLevel)
	if warning != "" {
		logger.Warn(warning)
	}
	utils.InitValidator()
	return cfg, logger, nil
}
