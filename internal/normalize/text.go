package normalize

import (
	"regexp"
	"strings"
)

var conceptTag = regexp.MustCompile(`^\([A-Za-z0-9]+\)\s*`)

// corporatePrefixes must stay ordered longest first so "Soc. Agricola" is not
// reduced to "Agricola ..." by the shorter "Soc." entry.
var corporatePrefixes = []string{
	"Soc. Agricola",
	"Soc. Agr.",
	"Agricola",
	"Agr.",
	"Ag.",
	"Fundo",
	"Soc.",
}

// ColumnName converts a header cell into a stable snake_case key,
// e.g. "A. TOTAL" -> "a_total", "Empresa_COD" -> "empresa_cod".
func ColumnName(raw string) string {
	col := strings.TrimSpace(raw)
	col = strings.ReplaceAll(col, "\u00a0", "")
	col = strings.ReplaceAll(col, "\ufeff", "")
	col = strings.ToLower(strings.TrimSpace(col))
	col = strings.ReplaceAll(col, " ", "_")
	col = strings.ReplaceAll(col, ".", "")
	for strings.Contains(col, "__") {
		col = strings.ReplaceAll(col, "__", "_")
	}
	return col
}

// Concept removes a leading "(A) " style tag and stray double spaces from a
// concept label. Nil in, nil out; a label that cleans to nothing is nil too.
func Concept(raw *string) *string {
	if raw == nil {
		return nil
	}
	txt := conceptTag.ReplaceAllString(strings.TrimSpace(*raw), "")
	for strings.Contains(txt, "  ") {
		txt = strings.ReplaceAll(txt, "  ", " ")
	}
	txt = strings.TrimSpace(txt)
	if txt == "" {
		return nil
	}
	return &txt
}

// ConceptString is Concept for callers holding a plain string; it returns ""
// where Concept returns nil.
func ConceptString(raw string) string {
	c := Concept(&raw)
	if c == nil {
		return ""
	}
	return *c
}

// EstablishmentName trims a farm name and strips corporate prefixes such as
// "Soc. Agricola" or "Fundo" so the same farm matches across reports.
func EstablishmentName(raw string) string {
	clean := strings.TrimSpace(raw)
	for _, p := range corporatePrefixes {
		if len(clean) > len(p) && clean[len(p)] == ' ' && strings.EqualFold(clean[:len(p)], p) {
			clean = strings.TrimSpace(clean[len(p):])
		}
	}
	return clean
}
