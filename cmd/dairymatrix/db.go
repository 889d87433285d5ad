package main

import (
	"fmt"

	"dairy-matrix/internal/repository"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.repo.Migrate(cmd.Context()); err != nil {
			return fmt.Errorf("failed to migrate: %w", err)
		}
		a.logger.Info("schema migrated")
		return nil
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Replace all data with a deterministic demo set",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.repo.Migrate(cmd.Context()); err != nil {
			return fmt.Errorf("failed to migrate: %w", err)
		}
		summary, err := repository.NewSeedRepository(a.db).SeedDatabase(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "✓ Seeded database successfully:\n")
		fmt.Fprintf(out, "  - Companies: %d\n", summary.Companies)
		fmt.Fprintf(out, "  - Establishments: %d\n", summary.Establishments)
		fmt.Fprintf(out, "  - Daily records: %d\n", summary.DailyRecords)
		fmt.Fprintf(out, "  - Weekly aggregates: %d\n", summary.WeeklyRecords)
		fmt.Fprintf(out, "  - Historical records: %d\n", summary.HistoricRows)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd, seedCmd)
}
