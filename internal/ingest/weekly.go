// Package ingest validates and parses the weekly consolidated report and the
// historical report into plain values. It performs no I/O; persistence is
// the service layer's job.
package ingest

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"dairy-matrix/internal/concept"
	"dairy-matrix/internal/matrix"
	"dairy-matrix/internal/normalize"
	"dairy-matrix/internal/sheet"
)

var datePattern = regexp.MustCompile(`^\d{1,2}-\d{1,2}-\d{4}$`)

// ValidationError lists every structural problem found in a spreadsheet.
// Nothing is written when parsing returns it.
type ValidationError struct {
	Messages []string
}

// Error joins the messages.
func (e *ValidationError) Error() string {
	return "invalid spreadsheet: " + strings.Join(e.Messages, "; ")
}

// DateColumn is a "D-M-YYYY" header and its position in the sheet.
type DateColumn struct {
	Index  int
	Header string
	Date   time.Time
}

// WeeklyRow is one (establishment, concept) line of the weekly report.
type WeeklyRow struct {
	Line          int // spreadsheet line, header is line 1
	Company       string
	CompanyCode   string
	Establishment string
	Category      string
	Concept       string     // cleaned label, "" when empty
	Values        []*float64 // aligned with Weekly.Dates
	Total         *float64
}

// Weekly is a parsed weekly report.
type Weekly struct {
	Week  int
	Year  int
	Start time.Time
	End   time.Time
	Dates []DateColumn
	Rows  []WeeklyRow
}

// WeeklyOptions overrides the period derived from the date columns. Both
// fields must be set for the override to apply.
type WeeklyOptions struct {
	Week int
	Year int
}

type weeklyHeader struct {
	empresa, empresaCod, establecimiento, categoria, concepto, total int
}

// ParseWeekly validates the weekly report layout and reads its rows.
func ParseWeekly(t *sheet.Table, opts WeeklyOptions) (*Weekly, error) {
	if t == nil {
		return nil, &ValidationError{Messages: []string{"El archivo está vacío"}}
	}

	h := weeklyHeader{-1, -1, -1, -1, -1, -1}
	var dates []DateColumn
	var problems []string

	for i, raw := range t.Header {
		label := strings.TrimSpace(raw)
		if datePattern.MatchString(label) {
			d, err := time.Parse("2-1-2006", label)
			if err != nil {
				problems = append(problems, fmt.Sprintf("Fecha inválida en encabezado '%s'", label))
				continue
			}
			dates = append(dates, DateColumn{Index: i, Header: label, Date: d})
			continue
		}
		idx := &h.total
		switch normalize.ColumnName(raw) {
		case "empresa":
			idx = &h.empresa
		case "empresa_cod":
			idx = &h.empresaCod
		case "establecimiento":
			idx = &h.establecimiento
		case "categoria":
			idx = &h.categoria
		case "concepto":
			idx = &h.concepto
		case "a_total":
		default:
			continue
		}
		if *idx < 0 {
			*idx = i
		}
	}

	var missing []string
	if h.empresa < 0 && h.empresaCod < 0 {
		missing = append(missing, "Empresa_COD")
	}
	if h.establecimiento < 0 {
		missing = append(missing, "Establecimiento")
	}
	if h.concepto < 0 {
		missing = append(missing, "CONCEPTO")
	}
	if len(missing) > 0 {
		problems = append([]string{"Columnas faltantes: " + strings.Join(missing, ", ")}, problems...)
	}
	if len(dates) == 0 {
		problems = append(problems, "No se encontraron columnas de fecha (formato: dd-mm-yyyy)")
	}
	if len(t.Rows) == 0 {
		problems = append(problems, "El archivo está vacío")
	}
	if len(problems) > 0 {
		return nil, &ValidationError{Messages: problems}
	}

	w := &Weekly{Dates: dates, Start: dates[0].Date, End: dates[0].Date}
	for _, d := range dates[1:] {
		if d.Date.Before(w.Start) {
			w.Start = d.Date
		}
		if d.Date.After(w.End) {
			w.End = d.Date
		}
	}
	if opts.Week > 0 && opts.Year > 0 {
		w.Week, w.Year = opts.Week, opts.Year
	} else {
		w.Year, w.Week = w.Start.ISOWeek()
	}

	cell := func(row, col int) string {
		if col < 0 {
			return ""
		}
		return strings.TrimSpace(t.Cell(row, col))
	}

	for i := range t.Rows {
		company := cell(i, h.empresa)
		rawCode := cell(i, h.empresaCod)
		if rawCode == "" {
			rawCode = company
		}
		code := strings.TrimSpace(strings.SplitN(rawCode, "_", 2)[0])
		if company == "" {
			company = code
		}

		r := WeeklyRow{
			Line:          t.Line(i),
			Company:       company,
			CompanyCode:   code,
			Establishment: normalize.EstablishmentName(cell(i, h.establecimiento)),
			Category:      cell(i, h.categoria),
			Concept:       normalize.ConceptString(cell(i, h.concepto)),
			Values:        make([]*float64, len(dates)),
		}
		for j, d := range dates {
			r.Values[j] = normalize.NumberPtr(cell(i, d.Index))
		}
		if h.total >= 0 {
			r.Total = normalize.NumberPtr(cell(i, h.total))
		}
		w.Rows = append(w.Rows, r)
	}

	return w, nil
}

// Establishments returns the distinct (company code, establishment) pairs in
// first-seen order. Rows without an establishment are skipped.
func (w *Weekly) Establishments() []EstablishmentRef {
	seen := make(map[EstablishmentRef]bool)
	var out []EstablishmentRef
	for _, r := range w.Rows {
		ref := EstablishmentRef{CompanyCode: r.CompanyCode, Company: r.Company, Name: r.Establishment}
		if r.Establishment == "" || r.CompanyCode == "" || seen[ref] {
			continue
		}
		seen[ref] = true
		out = append(out, ref)
	}
	return out
}

// EstablishmentRef names an establishment by its owning company code.
type EstablishmentRef struct {
	CompanyCode string
	Company     string
	Name        string
}

// LongRecords converts the report into the normalized long table consumed by
// the matrix builder.
func (w *Weekly) LongRecords() []matrix.LongRecord {
	out := make([]matrix.LongRecord, 0, len(w.Rows))
	for _, r := range w.Rows {
		lr := matrix.LongRecord{
			Company:       r.Company,
			CompanyCode:   r.CompanyCode,
			Establishment: r.Establishment,
			Category:      r.Category,
			Concept:       r.Concept,
			Key:           concept.Resolve(r.Concept),
			Week:          w.Week,
			Total:         metricOf(r.Total),
		}
		for j, d := range w.Dates {
			lr.Daily = append(lr.Daily, matrix.DailyValue{Date: d.Date, Value: metricOf(r.Values[j])})
		}
		sort.SliceStable(lr.Daily, func(a, b int) bool { return lr.Daily[a].Date.Before(lr.Daily[b].Date) })
		out = append(out, lr)
	}
	return out
}

func metricOf(v *float64) matrix.Metric {
	if v == nil {
		return matrix.NaN
	}
	return matrix.Metric(*v)
}
