package normalize

import (
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// symbolReplacer strips currency, percent and whitespace characters that
// spreadsheets leave around numeric cells.
var symbolReplacer = strings.NewReplacer(
	"$", "",
	"%", "",
	" ", "",
	"\u00a0", "",
	"\t", "",
)

// Number parses a spreadsheet cell written with Spanish or English number
// conventions:
//   - "869.43"   dot decimal
//   - "869,43"   comma decimal
//   - "1.234,56" dot thousands, comma decimal
//
// The second return value is false when the cell is empty or cannot be parsed.
func Number(raw string) (float64, bool) {
	txt := symbolReplacer.Replace(strings.TrimSpace(raw))
	if txt == "" {
		return 0, false
	}

	hasDot := strings.Contains(txt, ".")
	hasComma := strings.Contains(txt, ",")

	switch {
	case hasDot && hasComma:
		txt = strings.ReplaceAll(txt, ".", "")
		txt = strings.ReplaceAll(txt, ",", ".")
	case hasComma:
		txt = strings.ReplaceAll(txt, ",", ".")
	}

	v, err := strconv.ParseFloat(txt, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// NumberPtr is Number returning nil for unparseable input.
func NumberPtr(raw string) *float64 {
	v, ok := Number(raw)
	if !ok {
		return nil
	}
	return &v
}

// Round2 rounds half away from zero to two decimals.
func Round2(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}
