package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"dairy-matrix/internal/ingest"
	"dairy-matrix/internal/service"

	"github.com/spf13/cobra"
)

var (
	ingestWeek int
	ingestYear int
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Load a spreadsheet into the database",
}

var ingestWeeklyCmd = &cobra.Command{
	Use:   "weekly FILE",
	Short: "Ingest a weekly consolidated report",
	Long: `Ingest a weekly consolidated report (.xlsx). The week and ISO year are
taken from the earliest date column unless both --week and --year are given.

Example usage:
  dairymatrix ingest weekly consolidado_s23.xlsx
  dairymatrix ingest weekly consolidado.xlsx --week 23 --year 2025`,
	Args: cobra.ExactArgs(1),
	RunE: runIngestWeekly,
}

var ingestHistoricCmd = &cobra.Command{
	Use:   "historic FILE",
	Short: "Ingest the historical report",
	Long: `Ingest the historical report (.xlsx). The "SIC PROM" sheet is read when
present, otherwise the first sheet.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngestHistoric,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.AddCommand(ingestWeeklyCmd, ingestHistoricCmd)

	ingestWeeklyCmd.Flags().IntVar(&ingestWeek, "week", 0, "Override the report week")
	ingestWeeklyCmd.Flags().IntVar(&ingestYear, "year", 0, "Override the report year")
}

func runIngestWeekly(cmd *cobra.Command, args []string) error {
	return runIngest(cmd, args[0], func(svc service.IngestService, f io.Reader) (*service.IngestResult, error) {
		return svc.IngestWeekly(cmd.Context(), f, ingest.WeeklyOptions{Week: ingestWeek, Year: ingestYear})
	})
}

func runIngestHistoric(cmd *cobra.Command, args []string) error {
	return runIngest(cmd, args[0], func(svc service.IngestService, f io.Reader) (*service.IngestResult, error) {
		return svc.IngestHistoric(cmd.Context(), f)
	})
}

func runIngest(cmd *cobra.Command, path string, run func(service.IngestService, io.Reader) (*service.IngestResult, error)) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	result, runErr := run(a.ingestService(), f)
	if result != nil {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return err
		}
	}
	if runErr != nil {
		return fmt.Errorf("ingest %s: %w", path, runErr)
	}
	return nil
}
