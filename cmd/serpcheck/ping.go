package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/use-agent/serpcheck/models"
)

// newCmdPing creates the ping command.
func newCmdPing() *cobra.Command {
	var storeName string

	cmd := &cobra.Command{
		Use:   "ping",
		Short: "Check connectivity to a result store",
		Long:  "Inserts a ping PASSED row into the selected store.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			s, err := selectStore(cfg, storeName)
			if err != nil {
				return err
			}

			row := models.TestResult{
				Name:    "ping",
				Status:  models.StatusPassed,
				Details: s.Name() + " connection test successful",
			}
			if err := s.Insert(cmd.Context(), row); err != nil {
				return fmt.Errorf("ping %s: %w", s.Name(), err)
			}
			slog.Info("store reachable", "store", s.Name())
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", s.Name(), row.Details)
			return nil
		},
	}

	cmd.Flags().StringVar(&storeName, "store", "primary", "store to ping: primary or secondary")
	return cmd
}
