package concept

import "strings"

// Pattern maps a folded substring to a target column. An empty Target marks
// labels that are recognized but intentionally not stored.
type Pattern struct {
	Needle string
	Target string
}

// PatternTable is an ordered list of substring rules; the first hit wins, so
// more specific needles must come before the generic ones they contain.
type PatternTable []Pattern

func newPatternTable(patterns ...Pattern) PatternTable {
	t := make(PatternTable, len(patterns))
	for i, p := range patterns {
		t[i] = Pattern{Needle: Fold(p.Needle), Target: p.Target}
	}
	return t
}

// Match returns the target of the first pattern contained in the folded
// label, together with that pattern's position. idx is -1 when nothing hits.
func (t PatternTable) Match(label string) (target string, idx int) {
	folded := Fold(label)
	if folded == "" {
		return "", -1
	}
	for i, p := range t {
		if strings.Contains(folded, p.Needle) {
			return p.Target, i
		}
	}
	return "", -1
}

// Weekly aggregate columns.
const (
	FieldSuperficiePradera     = "superficie_pradera"
	FieldVacasEnOrdena         = "vacas_en_ordena"
	FieldVacasMasa             = "vacas_masa"
	FieldProduccionPromedio    = "produccion_promedio"
	FieldPrecioLeche           = "precio_leche"
	FieldPorcentajeGrasa       = "porcentaje_grasa"
	FieldProteinas             = "proteinas"
	FieldKgMSPraderaVaca       = "kg_ms_pradera_vaca"
	FieldKgMSVerdeVaca         = "kg_ms_verde_vaca"
	FieldKgMSConservadoVaca    = "kg_ms_conservado_vaca"
	FieldKgMSConcentradoVaca   = "kg_ms_concentrado_vaca"
	FieldPraderasOtrosVerdes   = "praderas_otros_verdes"
	FieldTotalMS               = "total_ms"
	FieldCostoRacionVaca       = "costo_racion_vaca"
	FieldCostoConcentrado      = "costo_promedio_concentrado"
	FieldGrmsConcentradoLitro  = "grms_concentrado_por_litro"
	FieldMDAT                  = "mdat"
	FieldMDATLitros            = "mdat_litros_vaca_dia"
	FieldPorcCostoAlimentos    = "porcentaje_costo_alimentos"
	FieldCargaAnimal           = "carga_animal"
)

// weeklyFieldByKey covers labels that Map already recognizes, including the
// mis-decoded spellings substring rules cannot catch.
var weeklyFieldByKey = map[string]string{
	KeyVacasOrdena:         FieldVacasEnOrdena,
	KeyVacasMasa:           FieldVacasMasa,
	KeySuperficie:          FieldSuperficiePradera,
	KeyProduccionProm:      FieldProduccionPromedio,
	KeyPrecioLeche:         FieldPrecioLeche,
	KeyPorcGrasa:           FieldPorcentajeGrasa,
	KeyProteinas:           FieldProteinas,
	KeyMSPradera:           FieldKgMSPraderaVaca,
	KeyMSVerde:             FieldKgMSVerdeVaca,
	KeyMSConservado:        FieldKgMSConservadoVaca,
	KeyMSConcentrado:       FieldKgMSConcentradoVaca,
	KeyPraderasOtrosVerdes: FieldPraderasOtrosVerdes,
	KeyTotalMS:             FieldTotalMS,
	KeyCostoRacion:         FieldCostoRacionVaca,
	KeyCostoConcentrado:    FieldCostoConcentrado,
	KeyGramosPorLitro:      FieldGrmsConcentradoLitro,
	KeyMDAT:                FieldMDAT,
	KeyMDATLitros:          FieldMDATLitros,
	KeyPorcCostoAlimentos:  FieldPorcCostoAlimentos,
	KeyCargaAnimal:         FieldCargaAnimal,
}

// WeeklyFields classifies weekly concept labels that are not in the exact
// table, e.g. "Kg MS Pradera / vaca / día".
var WeeklyFields = newPatternTable(
	Pattern{"mdat (l/vaca", FieldMDATLitros},
	Pattern{"mdat", FieldMDAT},
	Pattern{"porcentaje costo alimentos", FieldPorcCostoAlimentos},
	Pattern{"superficie", FieldSuperficiePradera},
	Pattern{"relacion vaca", ""},
	Pattern{"vacas en orde", FieldVacasEnOrdena},
	Pattern{"vacas masa", FieldVacasMasa},
	Pattern{"costo promedio concentrado", FieldCostoConcentrado},
	Pattern{"grms concentrado", FieldGrmsConcentradoLitro},
	Pattern{"lactancia", ""},
	Pattern{"produccion promedio", FieldProduccionPromedio},
	Pattern{"precio de la leche", FieldPrecioLeche},
	Pattern{"porcentaje de grasa", FieldPorcentajeGrasa},
	Pattern{"% de grasa", FieldPorcentajeGrasa},
	Pattern{"proteina", FieldProteinas},
	Pattern{"kg ms pradera", FieldKgMSPraderaVaca},
	Pattern{"kg ms verde", FieldKgMSVerdeVaca},
	Pattern{"kg ms conservado", FieldKgMSConservadoVaca},
	Pattern{"kg ms concentrado", FieldKgMSConcentradoVaca},
	Pattern{"praderas y otros verdes", FieldPraderasOtrosVerdes},
	Pattern{"total ms", FieldTotalMS},
	Pattern{"costo raci", FieldCostoRacionVaca},
	Pattern{"carga animal", FieldCargaAnimal},
)

// WeeklyField resolves the weekly aggregate column for a concept label. ok is
// false for labels nobody recognizes; a recognized label without a weekly
// column returns ("", true).
func WeeklyField(label string) (field string, ok bool) {
	if key := Map(label); key != "" {
		field, has := weeklyFieldByKey[key]
		if has {
			return field, true
		}
		return "", true
	}
	field, idx := WeeklyFields.Match(label)
	return field, idx >= 0
}

// Historical record columns.
const (
	HistSemana                    = "semana"
	HistFecha                     = "fecha"
	HistEstablecimiento           = "establecimiento"
	HistVacasEnOrdena             = "vacas_en_ordena"
	HistVacasMasa                 = "vacas_masa"
	HistVacasEnProduccion         = "vacas_en_produccion"
	HistLecheEnviada              = "leche_enviada"
	HistLecheNoVendible           = "leche_no_vendible"
	HistPorcentajeLecheNoVendible = "porcentaje_leche_no_vendible"
	HistPNATerneros               = "pna_terneros"
	HistProduccionTotal           = "produccion_total"
	HistPrecioLeche               = "precio_leche"
	HistMDAT                      = "mdat"
	HistCargaAnimal               = "carga_animal"
	HistRelacionOrdenaMasa        = "relacion_ordena_masa"
	HistDiasLactancia             = "dias_lactancia"
	HistPorcentajeGrasa           = "porcentaje_grasa"
	HistPorcentajeProteina        = "porcentaje_proteina"
	HistKgMSPradera               = "kg_ms_pradera"
	HistKgMSConservado            = "kg_ms_conservado"
	HistKgMSConcentrado           = "kg_ms_concentrado"
	HistConsumoMS                 = "consumo_ms"
	HistMSPorHa                   = "ms_por_ha"
	HistCostoRacionVaca           = "costo_racion_vaca"
	HistEficiencia                = "eficiencia"
	HistSuperficiePraderas        = "superficie_praderas"
)

// HistoricColumns classifies the headers of the historical workbook. A
// target column is claimed by the header matched by the earliest pattern, so
// "Establecimiento" beats "Empresa" when both are present.
var HistoricColumns = newPatternTable(
	Pattern{"semana", HistSemana},
	Pattern{"fecha", HistFecha},
	Pattern{"establecimiento", HistEstablecimiento},
	Pattern{"empresa", HistEstablecimiento},
	Pattern{"relacion", HistRelacionOrdenaMasa},
	Pattern{"vacas en orde", HistVacasEnOrdena},
	Pattern{"vacas en ord", HistVacasEnOrdena},
	Pattern{"vacas masa", HistVacasMasa},
	Pattern{"vacas en produc", HistVacasEnProduccion},
	Pattern{"le envian", HistLecheEnviada},
	Pattern{"leche enviada", HistLecheEnviada},
	Pattern{"% leche no", HistPorcentajeLecheNoVendible},
	Pattern{"porcentaje leche no", HistPorcentajeLecheNoVendible},
	Pattern{"che no", HistLecheNoVendible},
	Pattern{"pna tern", HistPNATerneros},
	Pattern{"mdat (l/", ""},
	Pattern{"mdat", HistMDAT},
	Pattern{"carga animal", HistCargaAnimal},
	Pattern{"precio de", HistPrecioLeche},
	Pattern{"produccion", HistProduccionTotal},
	Pattern{"lactancia", HistDiasLactancia},
	Pattern{"grasa", HistPorcentajeGrasa},
	Pattern{"% prot", HistPorcentajeProteina},
	Pattern{"proteina", HistPorcentajeProteina},
	Pattern{"kg ms prad", HistKgMSPradera},
	Pattern{"ms pradera", HistKgMSPradera},
	Pattern{"kg ms cons", HistKgMSConservado},
	Pattern{"ms conserv", HistKgMSConservado},
	Pattern{"kg ms conc", HistKgMSConcentrado},
	Pattern{"ms concent", HistKgMSConcentrado},
	Pattern{"consumo ms", HistConsumoMS},
	Pattern{"consumo de mat", HistConsumoMS},
	Pattern{"ms por ha", HistMSPorHa},
	Pattern{"ms/ha", HistMSPorHa},
	Pattern{"seca por ha", HistMSPorHa},
	Pattern{"costo raci", HistCostoRacionVaca},
	Pattern{"eficie", HistEficiencia},
	Pattern{"superficie", HistSuperficiePraderas},
)

var keyByWeeklyField = func() map[string]string {
	m := make(map[string]string, len(weeklyFieldByKey))
	for k, f := range weeklyFieldByKey {
		m[f] = k
	}
	return m
}()

// KeyForField is the inverse of the weekly column lookup: it returns the
// concept key stored in a weekly aggregate column, or "".
func KeyForField(field string) string {
	return keyByWeeklyField[field]
}

// Resolve maps a label to a concept key, falling back to the weekly pattern
// table for spellings the exact table does not list.
func Resolve(label string) string {
	if key := Map(label); key != "" {
		return key
	}
	field, ok := WeeklyField(label)
	if !ok {
		return ""
	}
	return KeyForField(field)
}
