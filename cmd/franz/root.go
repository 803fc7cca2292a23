package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"franz/internal/config"
	"franz/internal/logging"
)

var version = "dev"

type commandContext struct {
	configFlag   *string
	logLevelFlag *string

	once    sync.Once
	manager *config.Manager
	logger  *slog.Logger
	err     error
}

// ensure loads the configuration and builds the logger once per process.
func (c *commandContext) ensure() (*config.Manager, *slog.Logger, error) {
	c.once.Do(func() {
		// Config loading logs through a bootstrap logger until the real one exists.
		boot, err := logging.New(logging.Options{Level: *c.logLevelFlag})
		if err != nil {
			c.err = err
			return
		}
		mgr, err := config.NewManager(strings.TrimSpace(*c.configFlag), boot)
		if err != nil {
			c.err = fmt.Errorf("resolve config path: %w", err)
			return
		}
		if err := mgr.Load(); err != nil {
			c.err = err
			return
		}

		cfg := mgr.Get()
		level := cfg.Logging.Level
		if *c.logLevelFlag != "" {
			level = *c.logLevelFlag
		}
		logger, err := logging.New(logging.Options{Level: level, Format: cfg.Logging.Format})
		if err != nil {
			c.err = err
			return
		}
		c.manager, c.logger = mgr, logger
	})
	return c.manager, c.logger, c.err
}

func newRootCommand() *cobra.Command {
	var configFlag, logLevelFlag string
	ctx := &commandContext{configFlag: &configFlag, logLevelFlag: &logLevelFlag}

	rootCmd := &cobra.Command{
		Use:           "franz",
		Short:         "Desktop agent that narrates what it sees and acts on it",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Override logging.level (debug, info, warn, error)")

	rootCmd.AddCommand(newRunCommand(ctx))
	rootCmd.AddCommand(newCaptureCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}
