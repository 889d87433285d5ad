package ingest

import (
	"fmt"
	"strings"
	"time"
)

// DailyCell is one staged (establishment, date, concept) value.
type DailyCell struct {
	Line          int
	CompanyCode   string
	Establishment string
	Category      string
	Concept       string
	Date          time.Time
	Value         float64
}

// Omission explains why a spreadsheet line was skipped, fully or in part.
type Omission struct {
	Line    int
	Message string
}

// DailyCells stages every non-empty day cell. A line with an empty concept,
// a missing establishment or any empty day cell yields one Omission listing
// all its reasons; its valid cells are still staged.
func (w *Weekly) DailyCells() ([]DailyCell, []Omission) {
	var cells []DailyCell
	var omitted []Omission

	for _, r := range w.Rows {
		var reasons []string
		switch {
		case r.Establishment == "":
			reasons = append(reasons, "Establecimiento vacío")
		case r.CompanyCode == "":
			reasons = append(reasons, "Empresa vacía")
		case r.Concept == "":
			reasons = append(reasons, "Concepto vacío")
		}

		if len(reasons) == 0 {
			for j, d := range w.Dates {
				v := r.Values[j]
				if v == nil {
					reasons = append(reasons, "Valor vacío en fecha "+d.Header)
					continue
				}
				cells = append(cells, DailyCell{
					Line:          r.Line,
					CompanyCode:   r.CompanyCode,
					Establishment: r.Establishment,
					Category:      r.Category,
					Concept:       r.Concept,
					Date:          d.Date,
					Value:         *v,
				})
			}
		}

		if len(reasons) > 0 {
			omitted = append(omitted, Omission{
				Line: r.Line,
				Message: fmt.Sprintf("Fila %d omitida: Empresa=%s, Establecimiento=%s, Concepto=%s, Motivo=%s",
					r.Line, r.CompanyCode, r.Establishment, r.Concept, strings.Join(reasons, " | ")),
			})
		}
	}
	return cells, omitted
}

type dailyKey struct {
	code, est, concept string
	date               time.Time
}

// Dedupe collapses cells sharing (company, establishment, date, concept),
// keeping the last value and the position of the first occurrence.
func Dedupe(cells []DailyCell) []DailyCell {
	pos := make(map[dailyKey]int, len(cells))
	out := make([]DailyCell, 0, len(cells))
	for _, c := range cells {
		k := dailyKey{c.CompanyCode, c.Establishment, c.Concept, c.Date}
		if i, ok := pos[k]; ok {
			out[i] = c
			continue
		}
		pos[k] = len(out)
		out = append(out, c)
	}
	return out
}
