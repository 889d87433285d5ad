package ingest

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"dairy-matrix/internal/concept"
	"dairy-matrix/internal/normalize"
	"dairy-matrix/internal/sheet"
)

// DefaultEpoch anchors synthetic dates for historical weeks that carry none.
var DefaultEpoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// textDateLayouts are tried in order before falling back to Excel serials.
// "01-02-06" is how excelize renders the built-in short date format.
var textDateLayouts = []string{
	"2-1-2006",
	"2/1/2006",
	"2006-01-02",
	"2006-01-02 15:04:05",
	"01-02-06",
}

// HistoricOptions configures ParseHistoric.
type HistoricOptions struct {
	Epoch time.Time
}

// MappedColumn records which header fed a historical column.
type MappedColumn struct {
	Header string
	Target string
	index  int
	rank   int
}

// HistoricRow is one (establishment, week) line of the historical report.
// Values holds the numeric columns by name; missing cells are absent.
type HistoricRow struct {
	Line          int
	Week          int
	Date          time.Time
	Establishment string
	Values        map[string]float64
}

// Historic is a parsed historical report.
type Historic struct {
	Columns   []MappedColumn
	Rows      []HistoricRow
	Omitted   []Omission
	Processed int
}

// Weeks returns the distinct week numbers, ascending.
func (h *Historic) Weeks() []int {
	seen := make(map[int]bool)
	var out []int
	for _, r := range h.Rows {
		if !seen[r.Week] {
			seen[r.Week] = true
			out = append(out, r.Week)
		}
	}
	sort.Ints(out)
	return out
}

// Establishments returns the distinct establishment names, sorted.
func (h *Historic) Establishments() []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range h.Rows {
		if !seen[r.Establishment] {
			seen[r.Establishment] = true
			out = append(out, r.Establishment)
		}
	}
	sort.Strings(out)
	return out
}

// ParseHistoric maps the historical headers, resolves a date for every row
// and reads the numeric columns. Rows without week or establishment are
// omitted with a reason.
func ParseHistoric(t *sheet.Table, opts HistoricOptions) (*Historic, error) {
	if t == nil || len(t.Rows) == 0 {
		return nil, &ValidationError{Messages: []string{"El archivo está vacío"}}
	}
	epoch := opts.Epoch
	if epoch.IsZero() {
		epoch = DefaultEpoch
	}

	claimed := make(map[string]*MappedColumn)
	for i, header := range t.Header {
		target, rank := concept.HistoricColumns.Match(header)
		if rank < 0 || target == "" {
			continue
		}
		if c, ok := claimed[target]; ok && c.rank <= rank {
			continue
		}
		claimed[target] = &MappedColumn{Header: strings.TrimSpace(header), Target: target, index: i, rank: rank}
	}

	var missing []string
	if claimed[concept.HistSemana] == nil {
		missing = append(missing, "N° Semana")
	}
	if claimed[concept.HistEstablecimiento] == nil {
		missing = append(missing, "Establecimiento")
	}
	if len(missing) > 0 {
		return nil, &ValidationError{Messages: []string{"Columnas faltantes: " + strings.Join(missing, ", ")}}
	}

	h := &Historic{}
	for _, c := range claimed {
		h.Columns = append(h.Columns, *c)
	}
	sort.Slice(h.Columns, func(a, b int) bool { return h.Columns[a].index < h.Columns[b].index })

	cell := func(row int, target string) string {
		c := claimed[target]
		if c == nil {
			return ""
		}
		return strings.TrimSpace(t.Cell(row, c.index))
	}

	type parsed struct {
		line    int
		week    int
		weekOK  bool
		est     string
		date    time.Time
		hasDate bool
	}
	rows := make([]parsed, len(t.Rows))

	// first pass: most frequent date per week
	counts := make(map[int]map[time.Time]int)
	for i := range t.Rows {
		p := parsed{line: t.Line(i), est: normalize.EstablishmentName(cell(i, concept.HistEstablecimiento))}
		if v, ok := normalize.Number(cell(i, concept.HistSemana)); ok {
			p.week, p.weekOK = int(v), true
		}
		p.date, p.hasDate = ParseDate(cell(i, concept.HistFecha))
		if p.weekOK && p.hasDate {
			if counts[p.week] == nil {
				counts[p.week] = make(map[time.Time]int)
			}
			counts[p.week][p.date]++
		}
		rows[i] = p
	}
	representative := make(map[int]time.Time, len(counts))
	for week, dates := range counts {
		var best time.Time
		bestN := 0
		for d, n := range dates {
			if n > bestN || (n == bestN && d.Before(best)) {
				best, bestN = d, n
			}
		}
		representative[week] = best
	}

	for i, p := range rows {
		h.Processed++

		var reasons []string
		if !p.weekOK {
			reasons = append(reasons, "Semana vacía")
		}
		if p.est == "" {
			reasons = append(reasons, "Establecimiento vacío")
		}
		if len(reasons) > 0 {
			h.Omitted = append(h.Omitted, Omission{
				Line:    p.line,
				Message: fmt.Sprintf("Fila %d omitida: %s", p.line, strings.Join(reasons, " | ")),
			})
			continue
		}

		date := p.date
		if !p.hasDate {
			if d, ok := representative[p.week]; ok {
				date = d
			} else {
				date = epoch.AddDate(0, 0, 7*(p.week-1))
			}
		}

		row := HistoricRow{
			Line:          p.line,
			Week:          p.week,
			Date:          date,
			Establishment: p.est,
			Values:        make(map[string]float64),
		}
		for target := range claimed {
			switch target {
			case concept.HistSemana, concept.HistFecha, concept.HistEstablecimiento:
				continue
			}
			if v, ok := normalize.Number(cell(i, target)); ok {
				row.Values[target] = v
			}
		}
		h.Rows = append(h.Rows, row)
	}

	return h, nil
}

// ParseDate reads a date cell written as day-first text or as an Excel
// serial number.
func ParseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range textDateLayouts {
		if d, err := time.Parse(layout, raw); err == nil {
			return d, true
		}
	}
	if v, ok := normalize.Number(raw); ok && v > 0 && v < 2958466 {
		d, err := excelize.ExcelDateToTime(v, false)
		if err == nil {
			y, m, dd := d.Date()
			return time.Date(y, m, dd, 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

// IntValue returns a column as an integer count, dropping any fraction.
func (r HistoricRow) IntValue(col string) (int, bool) {
	v, ok := r.Values[col]
	if !ok || math.IsNaN(v) {
		return 0, false
	}
	return int(v), true
}
