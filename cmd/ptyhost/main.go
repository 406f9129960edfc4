// Command ptyhost hosts terminal sessions for local front ends.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/ptyhost/internal/infrastructure/config"
	"github.com/GriffinCanCode/ptyhost/internal/infrastructure/logging"
	"github.com/GriffinCanCode/ptyhost/internal/infrastructure/server"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "ptyhost",
		Short:         "ptyhost: terminal session host with tmux persistence",
		Long:          "Runs shells on pseudo-terminals for local front ends, optionally inside tmux so sessions survive restarts.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().String("config", "", "TOML config file (overrides environment)")

	root.AddCommand(
		serveCmd(),
		sweepCmd(),
		tmuxCmd(),
	)
	return root
}

// loadConfig reads the environment and the --config overlay.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadLogger(cfg *config.Config) (*logging.Logger, error) {
	logger, err := server.NewLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("invalid logging config: %w", err)
	}
	return logger, nil
}
