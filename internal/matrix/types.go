// Package matrix turns normalized long-format records into the weekly
// per-establishment report: base metrics, derived ratios, rolling historical
// averages, rankings and the weighted totals row.
package matrix

import (
	"encoding/json"
	"math"
	"strconv"
	"time"
)

// TotalsLabel names the aggregate row appended after the establishments.
const TotalsLabel = "Sumas y Promedios"

// Metric is a float where NaN means "no data". It encodes NaN as JSON null.
type Metric float64

// NaN is the missing value.
var NaN = Metric(math.NaN())

// Valid reports whether m holds data.
func (m Metric) Valid() bool { return !math.IsNaN(float64(m)) }

// MarshalJSON writes missing and infinite values as null.
func (m Metric) MarshalJSON() ([]byte, error) {
	if !m.Valid() || math.IsInf(float64(m), 0) {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(float64(m), 'f', -1, 64)), nil
}

// UnmarshalJSON reads null back as NaN.
func (m *Metric) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*m = NaN
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*m = Metric(f)
	return nil
}

// DailyValue is one date column of a long record. Value is NaN when the cell
// was empty.
type DailyValue struct {
	Date  time.Time `json:"date"`
	Value Metric    `json:"value"`
}

// LongRecord is one (establishment, concept) observation for a week.
type LongRecord struct {
	Company       string       `json:"company"`
	CompanyCode   string       `json:"company_code"`
	Establishment string       `json:"establishment"`
	Category      string       `json:"category,omitempty"`
	Concept       string       `json:"concept"`
	Key           string       `json:"key,omitempty"` // "" when the concept is unmapped
	Week          int          `json:"week"`
	Total         Metric       `json:"total"`
	Daily         []DailyValue `json:"daily,omitempty"`
}

// ID returns the establishment the record belongs to.
func (r LongRecord) ID() EstablishmentID {
	return EstablishmentID{CompanyCode: r.CompanyCode, Name: r.Establishment}
}

// EstablishmentID identifies an establishment within its owning company.
// Farms with the same name under different companies are different rows.
type EstablishmentID struct {
	CompanyCode string
	Name        string
}

// DailyLookup returns the finer-grained daily values stored for an
// establishment and concept key. Implementations return nil on any failure.
type DailyLookup func(est EstablishmentID, key string) []float64

// HistoricPoint is one stored historical week for an establishment.
type HistoricPoint struct {
	Establishment string
	Week          int
	MDAT          Metric
	Cows          Metric
}

// HistoricWindow holds the trailing averages anchored on an establishment's
// own latest historical week.
type HistoricWindow struct {
	MDAT4w  Metric
	Cows4w  Metric
	MDAT52w Metric
	Cows52w Metric
}

// Row is one line of the report, in the fixed column order of Columns.
type Row struct {
	Establishment       string `json:"establecimiento"`
	CompanyCode         string `json:"empresa_cod,omitempty"`
	SuperficiePraderas  Metric `json:"superficie_praderas"`
	VacasMasa           Metric `json:"vacas_masa"`
	VacasOrdena         Metric `json:"vacas_ordena"`
	CargaAnimal         Metric `json:"carga_animal"`
	PorcGrasa           Metric `json:"porcentaje_grasa"`
	Proteinas           Metric `json:"proteinas"`
	CostoConcentrado    Metric `json:"costo_promedio_concentrado"`
	GramosPorLitro      Metric `json:"grms_concentrado_ltr_leche"`
	MSConcentrado       Metric `json:"kg_ms_concentrado_vaca"`
	MSConservado        Metric `json:"kg_ms_conservado_vaca"`
	PraderasOtrosVerdes Metric `json:"praderas_otros_verdes"`
	TotalMS             Metric `json:"total_ms"`
	ProduccionProm      Metric `json:"produccion_promedio"`
	CostoRacion         Metric `json:"costo_racion_vaca"`
	PrecioLeche         Metric `json:"precio_leche"`
	MDATLitros          Metric `json:"mdat_litros_vaca_dia"`
	PorcCostoAlimentos  Metric `json:"porcentaje_costo_alimentos"`
	MDAT                Metric `json:"mdat"`
	RankMDAT            *int   `json:"ranking_mdat"`
	MDAT4w              Metric `json:"mdat_4_sem"`
	Cows4w              Metric `json:"vacas_4_sem"`
	Rank4w              *int   `json:"ranking_4_sem"`
	MDAT52w             Metric `json:"mdat_52_sem"`
	Cows52w             Metric `json:"vacas_52_sem"`
	Rank52w             *int   `json:"ranking_52_sem"`
}

// Columns are the display headers, in report order.
var Columns = []string{
	"Establecimiento",
	"Superficie Praderas",
	"Vacas masa", "Vacas en ordeña",
	"Carga animal",
	"Porcentaje de grasa", "Proteinas",
	"Costo promedio concentrado",
	"Grms concentrado / ltr leche",
	"Kg MS Concentrado / vaca", "Kg MS Conservado / vaca", "Praderas y otros verdes", "Total MS",
	"Producción promedio",
	"Costo ración vaca",
	"Precio de la leche",
	"MDAT (L/vaca/día)",
	"Porcentaje costo alimentos",
	"MDAT",
	"Ranking MDAT",
	"MDAT 4 sem", "Vacas 4 sem", "Ranking 4 sem",
	"MDAT 52 sem", "Vacas 52 sem", "Ranking 52 sem",
}

// Cells returns the row's values aligned with Columns. Establishment is the
// first element; ranks are float64(rank) or NaN.
func (r Row) Cells() []Metric {
	rank := func(p *int) Metric {
		if p == nil {
			return NaN
		}
		return Metric(*p)
	}
	return []Metric{
		NaN, // establishment, see Row.Establishment
		r.SuperficiePraderas,
		r.VacasMasa, r.VacasOrdena,
		r.CargaAnimal,
		r.PorcGrasa, r.Proteinas,
		r.CostoConcentrado,
		r.GramosPorLitro,
		r.MSConcentrado, r.MSConservado, r.PraderasOtrosVerdes, r.TotalMS,
		r.ProduccionProm,
		r.CostoRacion,
		r.PrecioLeche,
		r.MDATLitros,
		r.PorcCostoAlimentos,
		r.MDAT,
		rank(r.RankMDAT),
		r.MDAT4w, r.Cows4w, rank(r.Rank4w),
		r.MDAT52w, r.Cows52w, rank(r.Rank52w),
	}
}

// Matrix is the report: establishment rows sorted by name and company code,
// then Totals.
type Matrix struct {
	Week   int   `json:"week,omitempty"`
	Year   int   `json:"year,omitempty"`
	Rows   []Row `json:"rows"`
	Totals Row   `json:"totals"`
}

// All returns the establishment rows followed by the totals row.
func (m Matrix) All() []Row {
	out := make([]Row, 0, len(m.Rows)+1)
	out = append(out, m.Rows...)
	return append(out, m.Totals)
}

// Find returns the row for an establishment name.
func (m Matrix) Find(establishment string) (Row, bool) {
	for _, r := range m.Rows {
		if r.Establishment == establishment {
			return r, true
		}
	}
	return Row{}, false
}
