package ingest

import (
	"fmt"

	"dairy-matrix/internal/concept"
	"dairy-matrix/internal/matrix"
	"dairy-matrix/internal/normalize"
)

// WeeklyValues are the weekly aggregate columns computed for one
// establishment, rounded to two decimals. Columns without data are absent.
type WeeklyValues struct {
	Ref    EstablishmentRef
	Values map[string]float64
}

// Aggregate classifies every row into a weekly column and reduces it with
// the metric fallback chain: mean of the A. TOTAL cells, else mean of the day
// cells. Labels that match no column are reported once per establishment.
func (w *Weekly) Aggregate() ([]WeeklyValues, []string) {
	var out []WeeklyValues
	var unmapped []string

	for _, ref := range w.Establishments() {
		id := matrix.EstablishmentID{CompanyCode: ref.CompanyCode, Name: ref.Name}
		var recs []matrix.LongRecord
		var fields []string
		seenField := make(map[string]bool)
		seenLabel := make(map[string]bool)

		for _, r := range w.Rows {
			if r.CompanyCode != ref.CompanyCode || r.Establishment != ref.Name || r.Concept == "" {
				continue
			}
			field, ok := concept.WeeklyField(r.Concept)
			if !ok {
				if !seenLabel[r.Concept] {
					seenLabel[r.Concept] = true
					unmapped = append(unmapped, fmt.Sprintf("Concepto no mapeado: '%s' en establecimiento '%s'", r.Concept, ref.Name))
				}
				continue
			}
			if field == "" {
				continue
			}
			if !seenField[field] {
				seenField[field] = true
				fields = append(fields, field)
			}

			lr := matrix.LongRecord{CompanyCode: ref.CompanyCode, Establishment: ref.Name, Key: field, Total: metricOf(r.Total)}
			for j := range w.Dates {
				lr.Daily = append(lr.Daily, matrix.DailyValue{Date: w.Dates[j].Date, Value: metricOf(r.Values[j])})
			}
			recs = append(recs, lr)
		}

		values := make(map[string]float64)
		for _, f := range fields {
			if v := matrix.ComputeMetric(recs, id, f, nil); v.Valid() {
				values[f] = normalize.Round2(float64(v))
			}
		}

		pr, hasPr := values[concept.FieldKgMSPraderaVaca]
		ve, hasVe := values[concept.FieldKgMSVerdeVaca]
		if hasPr || hasVe {
			values[concept.FieldPraderasOtrosVerdes] = normalize.Round2(pr + ve)
		}

		if len(values) > 0 {
			out = append(out, WeeklyValues{Ref: ref, Values: values})
		}
	}
	return out, unmapped
}
