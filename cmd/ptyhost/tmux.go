package main

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/ptyhost/internal/infrastructure/server"
	"github.com/GriffinCanCode/ptyhost/internal/tmux"
)

func tmuxCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tmux",
		Short: "Inspect the tmux backend",
	}
	cmd.AddCommand(tmuxStatusCmd(), tmuxListCmd())
	return cmd
}

func newTmuxClient(cmd *cobra.Command) (*tmux.Client, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger, err := loadLogger(cfg)
	if err != nil {
		return nil, err
	}
	return server.NewTmuxClient(cfg.Terminal, logger.Logger, nil), nil
}

func tmuxStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report whether tmux is installed and its version",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newTmuxClient(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			version, err := client.Version(cmd.Context())
			if errors.Is(err, tmux.ErrNotInstalled) {
				fmt.Fprintf(out, "available: false\nbinary:    %s\n", client.Bin())
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "available: true\nversion:   %s\nbinary:    %s\nnamespace: %s\n",
				version, client.Bin(), client.Prefix())
			return nil
		},
	}
}

func tmuxListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List tmux sessions in the ptyhost namespace",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newTmuxClient(cmd)
			if err != nil {
				return err
			}

			sessions, err := client.ListSessions(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tCREATED\tPATH")
			for _, s := range sessions {
				fmt.Fprintf(w, "%s\t%s\t%s\n", s.Name, s.Created.Format(time.DateTime), s.Path)
			}
			return w.Flush()
		},
	}
}
