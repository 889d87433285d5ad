package matrix

import "strings"

// HistoricAverages computes the 4 and 52 week MDAT and milking-cow averages
// for est. currentWeek is the report week and does not move the windows:
// they end at the establishment's own latest historical week, because
// historical numbering does not follow the weekly reports and some
// establishments lag behind.
func HistoricAverages(est string, currentWeek int, table []HistoricPoint) HistoricWindow {
	name := strings.TrimSpace(est)
	var points []HistoricPoint
	maxWeek := 0
	for _, p := range table {
		if strings.TrimSpace(p.Establishment) != name {
			continue
		}
		if len(points) == 0 || p.Week > maxWeek {
			maxWeek = p.Week
		}
		points = append(points, p)
	}

	if len(points) == 0 {
		return HistoricWindow{MDAT4w: NaN, Cows4w: NaN, MDAT52w: NaN, Cows52w: NaN}
	}

	var mdat4, cows4, mdat52, cows52 mean
	for _, p := range points {
		if p.Week < maxWeek-51 || p.Week > maxWeek {
			continue
		}
		mdat52.add(p.MDAT)
		cows52.add(p.Cows)
		if p.Week >= maxWeek-3 {
			mdat4.add(p.MDAT)
			cows4.add(p.Cows)
		}
	}

	return HistoricWindow{
		MDAT4w:  mdat4.value(),
		Cows4w:  cows4.value(),
		MDAT52w: mdat52.value(),
		Cows52w: cows52.value(),
	}
}
