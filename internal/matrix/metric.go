package matrix

// ComputeMetric returns the weekly value of a concept for an establishment.
// First success wins:
//  1. no rows for (est, key): mean of the stored daily values from daily
//  2. mean of the non-missing Total cells
//  3. mean of every non-missing day cell across the rows
//  4. NaN
func ComputeMetric(records []LongRecord, est EstablishmentID, key string, daily DailyLookup) Metric {
	rows := rowsFor(records, est, key)
	if len(rows) == 0 {
		if daily == nil {
			return NaN
		}
		var m mean
		for _, v := range daily(est, key) {
			m.add(Metric(v))
		}
		return m.value()
	}

	var totals mean
	for _, r := range rows {
		totals.add(r.Total)
	}
	if totals.n > 0 {
		return totals.value()
	}

	return dayMean(rows)
}

// dayMean flattens the day cells of rows and averages the non-missing ones.
func dayMean(rows []LongRecord) Metric {
	var m mean
	for _, r := range rows {
		for _, d := range r.Daily {
			m.add(d.Value)
		}
	}
	return m.value()
}

type mean struct {
	sum float64
	n   int
}

func (m *mean) add(v Metric) {
	if v.Valid() {
		m.sum += float64(v)
		m.n++
	}
}

func (m mean) value() Metric {
	if m.n == 0 {
		return NaN
	}
	return Metric(m.sum / float64(m.n))
}
