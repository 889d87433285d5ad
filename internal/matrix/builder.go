package matrix

import (
	"sort"

	"dairy-matrix/internal/concept"
)

// BuildOptions carries the report period and the optional daily fallback.
type BuildOptions struct {
	Week  int
	Year  int
	Daily DailyLookup
}

// Build assembles the report for every establishment present in records.
// It is deterministic and keeps no state between calls.
func Build(records []LongRecord, hist []HistoricPoint, opts BuildOptions) Matrix {
	seen := make(map[EstablishmentID]bool)
	var ids []EstablishmentID
	for _, r := range records {
		id := r.ID()
		if id.Name == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if ids[i].Name != ids[j].Name {
			return ids[i].Name < ids[j].Name
		}
		return ids[i].CompanyCode < ids[j].CompanyCode
	})

	rows := make([]Row, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, buildRow(records, hist, id, opts))
	}
	assignRanks(rows)

	return Matrix{
		Week:   opts.Week,
		Year:   opts.Year,
		Rows:   rows,
		Totals: totalsRow(rows),
	}
}

func buildRow(records []LongRecord, hist []HistoricPoint, est EstablishmentID, opts BuildOptions) Row {
	base := make(map[string]Metric)
	for _, key := range concept.Vocabulary() {
		base[key] = ComputeMetric(records, est, key, opts.Daily)
	}

	r := Row{
		Establishment:      est.Name,
		CompanyCode:        est.CompanyCode,
		SuperficiePraderas: base[concept.KeySuperficie],
		VacasMasa:          base[concept.KeyVacasMasa],
		VacasOrdena:        base[concept.KeyVacasOrdena],
		PorcGrasa:          base[concept.KeyPorcGrasa],
		Proteinas:          base[concept.KeyProteinas],
		CostoConcentrado:   base[concept.KeyCostoConcentrado],
		GramosPorLitro:     base[concept.KeyGramosPorLitro],
		MSConcentrado:      base[concept.KeyMSConcentrado],
		MSConservado:       base[concept.KeyMSConservado],
		ProduccionProm:     base[concept.KeyProduccionProm],
		CostoRacion:        base[concept.KeyCostoRacion],
		PrecioLeche:        base[concept.KeyPrecioLeche],
	}

	// synthetic dry matter: missing components count as zero
	pv := base[concept.KeyPraderasOtrosVerdes]
	if !pv.Valid() || pv == 0 {
		pv = zeroIfMissing(base[concept.KeyMSPradera]) + zeroIfMissing(base[concept.KeyMSVerde])
	}
	r.PraderasOtrosVerdes = pv
	r.TotalMS = pv + zeroIfMissing(r.MSConservado) + zeroIfMissing(r.MSConcentrado)

	r.CargaAnimal = animalLoad(r.VacasMasa, r.SuperficiePraderas)
	r.PorcCostoAlimentos = feedCostShare(r.CostoRacion, r.PrecioLeche, r.ProduccionProm)
	r.MDAT = margin(r.PrecioLeche, r.ProduccionProm, r.CostoRacion)

	r.MDATLitros = NaN
	if r.MDAT.Valid() && r.PrecioLeche.Valid() && r.PrecioLeche != 0 {
		r.MDATLitros = r.MDAT / r.PrecioLeche
	}
	if !r.MDATLitros.Valid() {
		r.MDATLitros = dayMean(rowsFor(records, est, concept.KeyMDAT))
	}
	if !r.MDATLitros.Valid() {
		r.MDATLitros = ComputeMetric(records, est, concept.KeyMDATLitros, opts.Daily)
	}

	h := HistoricAverages(est.Name, opts.Week, hist)
	r.MDAT4w, r.Cows4w = h.MDAT4w, h.Cows4w
	r.MDAT52w, r.Cows52w = h.MDAT52w, h.Cows52w

	return r
}

func rowsFor(records []LongRecord, est EstablishmentID, key string) []LongRecord {
	var out []LongRecord
	for _, r := range records {
		if r.ID() == est && r.Key == key {
			out = append(out, r)
		}
	}
	return out
}

func zeroIfMissing(v Metric) Metric {
	if !v.Valid() {
		return 0
	}
	return v
}

// animalLoad is herd mass per hectare of pasture.
func animalLoad(mass, area Metric) Metric {
	if !mass.Valid() || !area.Valid() || area <= 0 {
		return NaN
	}
	return mass / area
}

// feedCostShare is ration cost over milk income (price x production).
func feedCostShare(cost, price, production Metric) Metric {
	for _, v := range []Metric{cost, price, production} {
		if !v.Valid() || v == 0 {
			return NaN
		}
	}
	income := price * production
	if income <= 0 {
		return NaN
	}
	return cost / income
}

// margin is milk income minus ration cost per cow and day (MDAT).
func margin(price, production, cost Metric) Metric {
	if !price.Valid() || !production.Valid() || !cost.Valid() {
		return NaN
	}
	return price*production - cost
}
