// Package concept maps the free-text concept labels found in weekly and
// historical spreadsheets to the fixed vocabulary the matrix works with.
package concept

// Concept keys.
const (
	KeyVacasOrdena         = "vacas_ordena"
	KeyVacasMasa           = "vacas_masa"
	KeySuperficie          = "superficie_praderas"
	KeyProduccionProm      = "produccion_prom"
	KeyPrecioLeche         = "precio_leche"
	KeyProduccionTotal     = "produccion_total"
	KeyMSPradera           = "ms_pradera"
	KeyMSVerde             = "ms_verde"
	KeyMSConservado        = "ms_conservado"
	KeyMSConcentrado       = "ms_concentrado"
	KeyPraderasOtrosVerdes = "praderas_otros_verdes"
	KeyTotalMS             = "total_ms"
	KeyConsumoMS           = "consumo_ms"
	KeyMSPorHa             = "ms_por_ha"
	KeyCostoRacion         = "costo_racion_vaca"
	KeyCostoConcentrado    = "costo_concentrado"
	KeyGramosPorLitro      = "gramos_por_litro"
	KeyPorcGrasa           = "porc_grasa"
	KeyProteinas           = "proteinas"
	KeyMDAT                = "mdat"
	KeyMDATLitros          = "mdat_litros"
	KeyPorcCostoAlimentos  = "porc_costo_alimentos"
	KeyCargaAnimal         = "carga_animal"
	KeyDiasLactancia       = "dias_lactancia"
	KeyPorcLecheNoVendible = "porc_leche_no_vendible"
	KeyRelacionOrdenaMasa  = "relacion_ordena_masa"
)

type labelKey struct {
	label string
	key   string
}

// labels is the exact lookup table. Accented, unaccented and mis-decoded
// spellings are listed separately on purpose; the order defines Vocabulary.
var labels = []labelKey{
	{"Vacas en ordeña", KeyVacasOrdena},
	{"Vacas en ordena", KeyVacasOrdena},
	{"Vacas en ordeÃ±a", KeyVacasOrdena},
	{"Vacas en orde\ufffda", KeyVacasOrdena},
	{"Vacas masa", KeyVacasMasa},
	{"Superficie Praderas", KeySuperficie},

	{"Producción promedio", KeyProduccionProm},
	{"Produccion promedio", KeyProduccionProm},
	{"ProducciÃ³n promedio", KeyProduccionProm},
	{"Producci\ufffdn promedio", KeyProduccionProm},
	{"Precio de la leche", KeyPrecioLeche},
	{"Producción total", KeyProduccionTotal},
	{"Produccion total", KeyProduccionTotal},
	{"Producci\ufffdn total", KeyProduccionTotal},

	{"Kg MS Pradera / vaca", KeyMSPradera},
	{"Kg MS Verde / vaca", KeyMSVerde},
	{"Kg MS Conservado / vaca", KeyMSConservado},
	{"Kg MS Concentrado / vaca", KeyMSConcentrado},
	{"Praderas y otros verdes", KeyPraderasOtrosVerdes},
	{"Total MS", KeyTotalMS},
	{"Consumo de mat. seca", KeyConsumoMS},
	{"Mat. Seca por Ha", KeyMSPorHa},

	{"Costo ración vaca", KeyCostoRacion},
	{"Costo racion vaca", KeyCostoRacion},
	{"Costo raci\ufffdn vaca", KeyCostoRacion},
	{"Costo promedio concentrado", KeyCostoConcentrado},
	{"Grms concentrado / ltr leche", KeyGramosPorLitro},

	{"Porcentaje de grasa", KeyPorcGrasa},
	{"Proteinas", KeyProteinas},
	{"Proteínas", KeyProteinas},

	{"MDAT", KeyMDAT},
	{"MDAT (L/vaca/día)", KeyMDATLitros},
	{"MDAT (L/vaca/dia)", KeyMDATLitros},
	{"Porcentaje costo alimentos", KeyPorcCostoAlimentos},
	{"Carga animal", KeyCargaAnimal},

	{"Días de lactancia promedio", KeyDiasLactancia},
	{"Dias de lactancia promedio", KeyDiasLactancia},
	{"D\ufffdas de lactancia promedio", KeyDiasLactancia},
	{"Porcentaje leche no vendible", KeyPorcLecheNoVendible},
	{"Relación vaca ordeña / vaca masa", KeyRelacionOrdenaMasa},
	{"Relacion vaca ordena / vaca masa", KeyRelacionOrdenaMasa},
}

var (
	exactIndex  = make(map[string]string, len(labels))
	foldedIndex = make(map[string]string, len(labels))
	vocabulary  []string
)

func init() {
	seen := make(map[string]bool)
	for _, l := range labels {
		exactIndex[l.label] = l.key
		if f := Fold(l.label); f != "" {
			if _, dup := foldedIndex[f]; !dup {
				foldedIndex[f] = l.key
			}
		}
		if !seen[l.key] {
			seen[l.key] = true
			vocabulary = append(vocabulary, l.key)
		}
	}
}

// Map returns the concept key for a spreadsheet label, or "" when the label
// is not recognized. Exact spellings win; otherwise the accent-folded form is
// looked up.
func Map(label string) string {
	if key, ok := exactIndex[label]; ok {
		return key
	}
	return foldedIndex[Fold(label)]
}

// Vocabulary lists every concept key once, in table order.
func Vocabulary() []string {
	out := make([]string, len(vocabulary))
	copy(out, vocabulary)
	return out
}

// Labels returns a display label for each key: the first spelling declared.
func Labels() map[string]string {
	out := make(map[string]string, len(vocabulary))
	for _, l := range labels {
		if _, ok := out[l.key]; !ok {
			out[l.key] = l.label
		}
	}
	return out
}
