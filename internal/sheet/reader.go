// Package sheet reads spreadsheet workbooks into plain string tables.
package sheet

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrEmpty is returned when the selected sheet has no header row.
var ErrEmpty = errors.New("sheet: workbook has no rows")

// Table is a header row plus data rows. Header cells are the text Excel
// displays, so date headers keep their day-month-year form; data cells are
// the stored values, so number formats such as "#,##0.00" or "0.00%" never
// reach the number parser. Rows are padded to the header width.
type Table struct {
	Sheet  string
	Header []string
	Rows   [][]string
	// Lines holds the 1-based sheet row of each entry in Rows. Tables built
	// by hand may leave it nil.
	Lines []int
}

// Cell returns the cell at (row, col) or "" when out of range.
func (t *Table) Cell(row, col int) string {
	if row < 0 || row >= len(t.Rows) || col < 0 || col >= len(t.Rows[row]) {
		return ""
	}
	return t.Rows[row][col]
}

// Line returns the sheet row number of Rows[row]. Without Lines the header is
// assumed on line 1 with no blank rows below it.
func (t *Table) Line(row int) int {
	if row >= 0 && row < len(t.Lines) {
		return t.Lines[row]
	}
	return row + 2
}

// Read parses an xlsx stream. The first sheet whose name matches one of
// preferred (case-insensitive) is used, otherwise the first sheet.
func Read(r io.Reader, preferred ...string) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()
	return fromFile(f, preferred)
}

// ReadFile is Read for a path on disk.
func ReadFile(path string, preferred ...string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", path, err)
	}
	defer f.Close()
	return fromFile(f, preferred)
}

func fromFile(f *excelize.File, preferred []string) (*Table, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmpty
	}
	name := sheets[0]
pick:
	for _, want := range preferred {
		for _, s := range sheets {
			if strings.EqualFold(strings.TrimSpace(s), want) {
				name = s
				break pick
			}
		}
	}

	display, err := f.GetRows(name)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows of %s: %w", name, err)
	}
	raw, err := f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to get raw rows of %s: %w", name, err)
	}
	return newTable(name, display, raw)
}

// newTable takes the header from the displayed rows and the data from the
// raw ones. Both slices are indexed by sheet row.
func newTable(name string, display, raw [][]string) (*Table, error) {
	// leading blank rows are common above the header
	start := 0
	for start < len(display) && blank(display[start]) {
		start++
	}
	if start == len(display) {
		return nil, ErrEmpty
	}

	header := display[start]
	t := &Table{Sheet: name, Header: header}
	for i := start + 1; i < len(raw); i++ {
		row := raw[i]
		if blank(row) {
			continue
		}
		padded := make([]string, len(header))
		copy(padded, row)
		t.Rows = append(t.Rows, padded)
		t.Lines = append(t.Lines, i+1)
	}
	return t, nil
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// Encode writes a table as a single-sheet xlsx workbook.
func Encode(t *Table) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	name := t.Sheet
	if name == "" {
		name = "Sheet1"
	}
	if name != "Sheet1" {
		if err := f.SetSheetName("Sheet1", name); err != nil {
			return nil, fmt.Errorf("failed to name sheet: %w", err)
		}
	}

	write := func(rowIdx int, cells []string) error {
		cell, err := excelize.CoordinatesToCellName(1, rowIdx)
		if err != nil {
			return err
		}
		values := make([]interface{}, len(cells))
		for i, c := range cells {
			values[i] = c
		}
		return f.SetSheetRow(name, cell, &values)
	}

	if err := write(1, t.Header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	for i, row := range t.Rows {
		if err := write(i+2, row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode workbook: %w", err)
	}
	return buf.Bytes(), nil
}
