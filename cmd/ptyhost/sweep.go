package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/ptyhost/internal/infrastructure/server"
)

func sweepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Kill namespaced tmux sessions that no saved layout references",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger, err := loadLogger(cfg)
			if err != nil {
				return err
			}
			dryRun, _ := cmd.Flags().GetBool("dry-run")

			srv, err := server.NewServer(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer srv.Close()

			if !srv.Manager().MultiplexerStatus().Available {
				fmt.Fprintln(cmd.OutOrStdout(), "tmux not available; nothing to sweep")
				return nil
			}

			names, err := srv.SweepOrphans(cmd.Context(), dryRun)
			if err != nil {
				return err
			}
			verb := "killed"
			if dryRun {
				verb = "would kill"
			}
			for _, name := range names {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", verb, name)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d orphaned session(s) %s\n", len(names), verb)
			return nil
		},
	}
	cmd.Flags().Bool("dry-run", false, "list orphans without killing them")
	return cmd
}
