package matrix

// Wavg is the weighted mean of values. Pairs with a missing value, a missing
// weight or a zero weight are ignored; NaN when nothing is left or the
// remaining weights cancel out.
func Wavg(values, weights []Metric) Metric {
	var num, den float64
	n := 0
	for i := range values {
		if i >= len(weights) {
			break
		}
		v, w := values[i], weights[i]
		if !v.Valid() || !w.Valid() || w == 0 {
			continue
		}
		num += float64(v) * float64(w)
		den += float64(w)
		n++
	}
	if n == 0 || den == 0 {
		return NaN
	}
	return Metric(num / den)
}

// Sum adds the non-missing values; NaN when there are none.
func Sum(values []Metric) Metric {
	total, n := 0.0, 0
	for _, v := range values {
		if v.Valid() {
			total += float64(v)
			n++
		}
	}
	if n == 0 {
		return NaN
	}
	return Metric(total)
}

func column(rows []Row, f func(Row) Metric) []Metric {
	out := make([]Metric, len(rows))
	for i, r := range rows {
		out[i] = f(r)
	}
	return out
}

// totalsRow aggregates the establishment rows. Most per-cow figures are
// weighted by milking cows; milk price and grams per liter by liters
// (cows x production). MDAT is cow-weighted rather than recomputed from the
// weighted price and production.
func totalsRow(rows []Row) Row {
	t := Row{Establishment: TotalsLabel}

	cows := column(rows, func(r Row) Metric { return r.VacasOrdena })
	liters := make([]Metric, len(rows))
	for i, r := range rows {
		liters[i] = r.VacasOrdena * r.ProduccionProm
	}

	t.VacasOrdena = Sum(cows)
	t.VacasMasa = Sum(column(rows, func(r Row) Metric { return r.VacasMasa }))
	t.SuperficiePraderas = Sum(column(rows, func(r Row) Metric { return r.SuperficiePraderas }))

	byCows := func(f func(Row) Metric) Metric { return Wavg(column(rows, f), cows) }
	byLiters := func(f func(Row) Metric) Metric { return Wavg(column(rows, f), liters) }

	t.ProduccionProm = byCows(func(r Row) Metric { return r.ProduccionProm })
	t.CostoConcentrado = byCows(func(r Row) Metric { return r.CostoConcentrado })
	t.MSConcentrado = byCows(func(r Row) Metric { return r.MSConcentrado })
	t.MSConservado = byCows(func(r Row) Metric { return r.MSConservado })
	t.PraderasOtrosVerdes = byCows(func(r Row) Metric { return r.PraderasOtrosVerdes })
	t.TotalMS = byCows(func(r Row) Metric { return r.TotalMS })
	t.CostoRacion = byCows(func(r Row) Metric { return r.CostoRacion })
	t.PorcGrasa = byCows(func(r Row) Metric { return r.PorcGrasa })
	t.Proteinas = byCows(func(r Row) Metric { return r.Proteinas })
	t.MDAT = byCows(func(r Row) Metric { return r.MDAT })
	t.MDAT4w = byCows(func(r Row) Metric { return r.MDAT4w })
	t.MDAT52w = byCows(func(r Row) Metric { return r.MDAT52w })

	t.PrecioLeche = byLiters(func(r Row) Metric { return r.PrecioLeche })
	t.GramosPorLitro = byLiters(func(r Row) Metric { return r.GramosPorLitro })

	t.CargaAnimal = animalLoad(t.VacasMasa, t.SuperficiePraderas)

	t.Cows4w = Sum(column(rows, func(r Row) Metric { return r.Cows4w }))
	t.Cows52w = Sum(column(rows, func(r Row) Metric { return r.Cows52w }))

	t.MDATLitros = NaN
	if t.PrecioLeche.Valid() && t.PrecioLeche != 0 {
		t.MDATLitros = t.MDAT / t.PrecioLeche
	}
	t.PorcCostoAlimentos = feedCostShare(t.CostoRacion, t.PrecioLeche, t.ProduccionProm)

	return t
}
