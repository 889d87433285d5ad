package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNumber(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		want   float64
		wantOK bool
	}{
		{name: "dot decimal", raw: "869.43", want: 869.43, wantOK: true},
		{name: "comma decimal", raw: "869,43", want: 869.43, wantOK: true},
		{name: "dot thousands comma decimal", raw: "1.234,56", want: 1234.56, wantOK: true},
		{name: "several thousand groups", raw: "12.345.678,9", want: 12345678.9, wantOK: true},
		{name: "plain integer", raw: "200022", want: 200022, wantOK: true},
		{name: "currency symbol", raw: "$ 1.500,00", want: 1500, wantOK: true},
		{name: "percent sign", raw: "3,85%", want: 3.85, wantOK: true},
		{name: "non breaking space", raw: "1\u00a0234,5", want: 1234.5, wantOK: true},
		{name: "negative", raw: "-12,5", want: -12.5, wantOK: true},
		{name: "empty", raw: "", wantOK: false},
		{name: "blank", raw: "   ", wantOK: false},
		{name: "text", raw: "n/a", wantOK: false},
		{name: "not a number literal", raw: "NaN", wantOK: false},
		{name: "dash", raw: "-", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Number(tt.raw)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.InDelta(t, tt.want, got, 1e-9)
			}
		})
	}
}

func TestNumberSpanishGroupingPattern(t *testing.T) {
	// Every value shaped like ^\d{1,3}(\.\d{3})*,\d+$ reads the comma as the
	// decimal point.
	cases := map[string]float64{
		"1,5":           1.5,
		"999,99":        999.99,
		"1.000,1":       1000.1,
		"25.300,75":     25300.75,
		"1.000.000,001": 1000000.001,
	}
	for raw, want := range cases {
		got, ok := Number(raw)
		if assert.True(t, ok, raw) {
			assert.InDelta(t, want, got, 1e-9, raw)
		}
	}
}

func TestNumberPtr(t *testing.T) {
	assert.Nil(t, NumberPtr("abc"))
	if v := NumberPtr("2,5"); assert.NotNil(t, v) {
		assert.Equal(t, 2.5, *v)
	}
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 1.24, Round2(1.235))
	assert.Equal(t, -1.24, Round2(-1.235))
	assert.Equal(t, 20.0, Round2(20))
	assert.Equal(t, 0.33, Round2(1.0/3.0))
}

func TestColumnName(t *testing.T) {
	tests := map[string]string{
		"A. TOTAL":            "a_total",
		"Empresa_COD":         "empresa_cod",
		" Establecimiento ":   "establecimiento",
		"\ufeffEmpresa":       "empresa",
		"CATEGORIA":           "categoria",
		"N. Semana":           "n_semana",
		"Costo\u00a0total":    "costototal",
		"Precio  de la leche": "precio_de_la_leche",
		"01-06-2025":          "01-06-2025",
	}
	for raw, want := range tests {
		assert.Equal(t, want, ColumnName(raw), raw)
	}
}

func TestConcept(t *testing.T) {
	s := func(v string) *string { return &v }

	tests := []struct {
		name string
		raw  *string
		want *string
	}{
		{name: "letter tag", raw: s("(A) Vacas en ordeña"), want: s("Vacas en ordeña")},
		{name: "numeric tag", raw: s("(12) Producción promedio"), want: s("Producción promedio")},
		{name: "double letter tag", raw: s("(BB)  Precio de la leche"), want: s("Precio de la leche")},
		{name: "internal double spaces", raw: s("Costo   ración vaca"), want: s("Costo ración vaca")},
		{name: "no tag", raw: s("MDAT"), want: s("MDAT")},
		{name: "tag not at start", raw: s("MDAT (L/vaca/día)"), want: s("MDAT (L/vaca/día)")},
		{name: "nil", raw: nil, want: nil},
		{name: "only tag", raw: s("(A) "), want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Concept(tt.raw))
		})
	}
}

func TestConceptString(t *testing.T) {
	assert.Equal(t, "Vacas masa", ConceptString("(B) Vacas masa"))
	assert.Equal(t, "", ConceptString("  "))
}

func TestEstablishmentName(t *testing.T) {
	tests := map[string]string{
		"Soc. Agricola Los Robles": "Los Robles",
		"soc. agr. El Alamo":       "El Alamo",
		"Agricola Santa Ana":       "Santa Ana",
		"Agr. Las Vertientes":      "Las Vertientes",
		"Ag. Los Maitenes":         "Los Maitenes",
		"Fundo Eduvigis 2":         "Eduvigis 2",
		"Soc. Quilaco":             "Quilaco",
		"  Eduvigis 2  ":           "Eduvigis 2",
		"Agricolas Unidas":         "Agricolas Unidas",
		"Fundo":                    "Fundo",
	}
	for raw, want := range tests {
		assert.Equal(t, want, EstablishmentName(raw), raw)
	}
}
