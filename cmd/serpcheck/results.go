package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/use-agent/serpcheck/config"
	"github.com/use-agent/serpcheck/models"
	"github.com/use-agent/serpcheck/report"
	"github.com/use-agent/serpcheck/store"
)

// newCmdResults creates the results command.
func newCmdResults() *cobra.Command {
	var (
		storeName string
		limit     int
		all       bool
	)

	cmd := &cobra.Command{
		Use:   "results",
		Short: "Print recorded results",
		Long:  "Prints the most recent results of one store, oldest first, or every recorded result with --all.",
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
			if err := validateLimit(limit, all); err != nil {
				return err
			}

			var results []models.TestResult
			if all {
				results, err = s.All(cmd.Context())
			} else {
				results, err = s.Recent(cmd.Context(), limit)
			}
			if err != nil {
				return fmt.Errorf("read %s results: %w", s.Name(), err)
			}
			return report.WriteResults(cmd.OutOrStdout(), report.DefaultTheme(), s.Name(), results)
		},
	}

	cmd.Flags().StringVar(&storeName, "store", "primary", "store to read: primary or secondary")
	cmd.Flags().IntVar(&limit, "limit", 10, "number of most recent results")
	cmd.Flags().BoolVar(&all, "all", false, "print every result instead of the most recent ones")

	return cmd
}

// validateLimit requires a positive --limit unless --all ignores it.
func validateLimit(limit int, all bool) error {
	if all || limit > 0 {
		return nil
	}
	return models.NewConfigurationError("--limit must be positive, got "+strconv.Itoa(limit), nil)
}

// selectStore maps a --store value to its result store.
func selectStore(cfg *config.Config, name string) (store.Store, error) {
	switch name {
	case "primary":
		return store.NewPrimary(cfg.Primary), nil
	case "secondary":
		return store.NewSecondary(cfg.Secondary), nil
	default:
		return nil, models.NewConfigurationError(
			fmt.Sprintf("unknown store %q, want primary or secondary", name), nil)
	}
}
