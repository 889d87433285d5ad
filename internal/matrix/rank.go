package matrix

// rankDesc ranks values from highest to lowest. Ties share the smallest rank
// of the group (10, 10, 5 -> 1, 1, 3). Missing values get no rank.
func rankDesc(values []Metric) []*int {
	ranks := make([]*int, len(values))
	for i, v := range values {
		if !v.Valid() {
			continue
		}
		r := 1
		for _, other := range values {
			if other.Valid() && other > v {
				r++
			}
		}
		ranks[i] = &r
	}
	return ranks
}

func assignRanks(rows []Row) {
	pick := func(f func(Row) Metric) []Metric {
		out := make([]Metric, len(rows))
		for i, r := range rows {
			out[i] = f(r)
		}
		return out
	}

	mdat := rankDesc(pick(func(r Row) Metric { return r.MDAT }))
	w4 := rankDesc(pick(func(r Row) Metric { return r.MDAT4w }))
	w52 := rankDesc(pick(func(r Row) Metric { return r.MDAT52w }))
	for i := range rows {
		rows[i].RankMDAT = mdat[i]
		rows[i].Rank4w = w4[i]
		rows[i].Rank52w = w52[i]
	}
}
