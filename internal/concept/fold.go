package concept

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var foldReplacer = strings.NewReplacer(
	"\ufffd", "",
	"?", "",
	"\u00b0", "",
	"\u00ba", "",
)

// Fold reduces a label to a comparison form: mojibake repaired, accents
// removed, replacement characters and '?' dropped, lowercased, single spaced.
func Fold(s string) string {
	s = RepairMojibake(s)
	if folded, _, err := transform.String(newAccentStripper(), s); err == nil {
		s = folded
	}
	s = foldReplacer.Replace(s)
	s = strings.ToLower(s)
	return strings.Join(strings.Fields(s), " ")
}

// transform.Chain keeps internal state, so every call gets its own chain.
func newAccentStripper() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}

// RepairMojibake undoes the common "UTF-8 read as Windows-1252" corruption
// ("ordeÃ±a" -> "ordeña"). Strings that do not round-trip cleanly are
// returned unchanged.
func RepairMojibake(s string) string {
	if !strings.ContainsAny(s, "ÃÂ") {
		return s
	}
	raw, err := charmap.Windows1252.NewEncoder().String(s)
	if err != nil || !utf8.ValidString(raw) {
		return s
	}
	return raw
}
