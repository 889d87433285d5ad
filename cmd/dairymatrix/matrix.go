package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"dairy-matrix/internal/matrix"

	"github.com/spf13/cobra"
)

var (
	matrixWeek int
	matrixYear int
	matrixJSON bool
)

var matrixCmd = &cobra.Command{
	Use:   "matrix",
	Short: "Print the comparison matrix of a stored week",
	Long: `Print the comparison matrix of a stored week, the latest one unless both
--week and --year are given.

Example usage:
  dairymatrix matrix
  dairymatrix matrix --week 23 --year 2025 --json`,
	RunE: runMatrix,
}

func init() {
	rootCmd.AddCommand(matrixCmd)

	matrixCmd.Flags().IntVar(&matrixWeek, "week", 0, "Report week")
	matrixCmd.Flags().IntVar(&matrixYear, "year", 0, "Report year")
	matrixCmd.Flags().BoolVar(&matrixJSON, "json", false, "Print JSON instead of a table")
}

func runMatrix(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	m, err := a.matrixService().Matrix(cmd.Context(), matrixWeek, matrixYear)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if matrixJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(m)
	}
	fmt.Fprintf(out, "Semana %d, %d\n\n", m.Week, m.Year)
	return renderTable(out, *m)
}

// renderTable prints the rows and the totals line with aligned columns.
// Missing values are left blank; a name shared by several companies is
// suffixed with the company code.
func renderTable(out io.Writer, m matrix.Matrix) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, strings.Join(matrix.Columns, "\t")+"\t")

	names := make(map[string]int)
	for _, r := range m.Rows {
		names[r.Establishment]++
	}

	rows := make([]matrix.Row, 0, len(m.Rows)+1)
	rows = append(append(rows, m.Rows...), m.Totals)
	for i, r := range rows {
		cells := r.Cells()
		line := make([]string, len(cells))
		line[0] = r.Establishment
		if names[r.Establishment] > 1 && r.CompanyCode != "" {
			line[0] = fmt.Sprintf("%s (%s)", r.Establishment, r.CompanyCode)
		}
		if i == len(rows)-1 {
			line[0] = matrix.TotalsLabel
		}
		for j := 1; j < len(cells); j++ {
			line[j] = formatCell(cells[j])
		}
		fmt.Fprintln(tw, strings.Join(line, "\t")+"\t")
	}
	return tw.Flush()
}

func formatCell(v matrix.Metric) string {
	if !v.Valid() {
		return ""
	}
	f := float64(v)
	if f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', 2, 64)
}
