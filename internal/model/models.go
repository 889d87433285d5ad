package model

import (
	"time"

	"dairy-matrix/internal/concept"
)

// Company owns establishments. Code is the prefix of Empresa_COD.
type Company struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Code string `gorm:"not null;size:64;uniqueIndex" json:"code"`
	Name string `gorm:"not null;size:255" json:"name"`

	// Relationships
	Establishments []Establishment `gorm:"foreignKey:CompanyID;constraint:OnDelete:CASCADE" json:"establishments,omitempty"`
}

// TableName specifies the table name for Company
func (Company) TableName() string {
	return "companies"
}

// Establishment is a dairy farm, identified by its canonical name within a
// company.
type Establishment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	CompanyID   uint     `gorm:"not null;uniqueIndex:idx_establishment_company_name,priority:1" json:"company_id"`
	Name        string   `gorm:"not null;size:255;uniqueIndex:idx_establishment_company_name,priority:2" json:"name"`
	PastureArea *float64 `gorm:"type:numeric(12,2)" json:"pasture_area"` // hectares

	// Relationships
	Company Company `gorm:"foreignKey:CompanyID" json:"company,omitempty"`
}

// TableName specifies the table name for Establishment
func (Establishment) TableName() string {
	return "establishments"
}

// DailyRecord is one concept value for one day of a weekly report.
type DailyRecord struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	EstablishmentID uint      `gorm:"not null;uniqueIndex:idx_daily_est_date_concept,priority:1" json:"establishment_id"`
	Date            time.Time `gorm:"type:date;not null;uniqueIndex:idx_daily_est_date_concept,priority:2" json:"date"`
	Concept         string    `gorm:"not null;size:255;uniqueIndex:idx_daily_est_date_concept,priority:3" json:"concept"`
	Category        string    `gorm:"size:255" json:"category"`
	Value           float64   `gorm:"not null" json:"value"`
}

// TableName specifies the table name for DailyRecord
func (DailyRecord) TableName() string {
	return "daily_records"
}

// WeeklyAggregate holds the weekly scalar per concept column for one
// establishment. Nil columns had no data in the report.
type WeeklyAggregate struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	EstablishmentID uint      `gorm:"not null;uniqueIndex:idx_weekly_est_week_year,priority:1" json:"establishment_id"`
	CompanyID       uint      `gorm:"not null;index" json:"company_id"`
	Week            int       `gorm:"not null;uniqueIndex:idx_weekly_est_week_year,priority:2;index:idx_weekly_year_week,priority:2" json:"week"`
	Year            int       `gorm:"not null;uniqueIndex:idx_weekly_est_week_year,priority:3;index:idx_weekly_year_week,priority:1" json:"year"`
	StartDate       time.Time `gorm:"type:date" json:"start_date"`
	EndDate         time.Time `gorm:"type:date" json:"end_date"`

	SuperficiePradera        *float64 `gorm:"column:superficie_pradera" json:"superficie_pradera"`
	VacasEnOrdena            *float64 `gorm:"column:vacas_en_ordena" json:"vacas_en_ordena"`
	VacasMasa                *float64 `gorm:"column:vacas_masa" json:"vacas_masa"`
	ProduccionPromedio       *float64 `gorm:"column:produccion_promedio" json:"produccion_promedio"`
	PrecioLeche              *float64 `gorm:"column:precio_leche" json:"precio_leche"`
	PorcentajeGrasa          *float64 `gorm:"column:porcentaje_grasa" json:"porcentaje_grasa"`
	Proteinas                *float64 `gorm:"column:proteinas" json:"proteinas"`
	KgMSPraderaVaca          *float64 `gorm:"column:kg_ms_pradera_vaca" json:"kg_ms_pradera_vaca"`
	KgMSVerdeVaca            *float64 `gorm:"column:kg_ms_verde_vaca" json:"kg_ms_verde_vaca"`
	KgMSConservadoVaca       *float64 `gorm:"column:kg_ms_conservado_vaca" json:"kg_ms_conservado_vaca"`
	KgMSConcentradoVaca      *float64 `gorm:"column:kg_ms_concentrado_vaca" json:"kg_ms_concentrado_vaca"`
	PraderasOtrosVerdes      *float64 `gorm:"column:praderas_otros_verdes" json:"praderas_otros_verdes"`
	TotalMS                  *float64 `gorm:"column:total_ms" json:"total_ms"`
	CostoRacionVaca          *float64 `gorm:"column:costo_racion_vaca" json:"costo_racion_vaca"`
	CostoPromedioConcentrado *float64 `gorm:"column:costo_promedio_concentrado" json:"costo_promedio_concentrado"`
	GrmsConcentradoPorLitro  *float64 `gorm:"column:grms_concentrado_por_litro" json:"grms_concentrado_por_litro"`
	MDAT                     *float64 `gorm:"column:mdat" json:"mdat"`
	MDATLitrosVacaDia        *float64 `gorm:"column:mdat_litros_vaca_dia" json:"mdat_litros_vaca_dia"`
	PorcentajeCostoAlimentos *float64 `gorm:"column:porcentaje_costo_alimentos" json:"porcentaje_costo_alimentos"`
	CargaAnimal              *float64 `gorm:"column:carga_animal" json:"carga_animal"`

	// Relationships
	Establishment Establishment `gorm:"foreignKey:EstablishmentID" json:"establishment,omitempty"`
}

// TableName specifies the table name for WeeklyAggregate
func (WeeklyAggregate) TableName() string {
	return "weekly_aggregates"
}

// fields binds the weekly column names to the struct fields.
func (w *WeeklyAggregate) fields() map[string]**float64 {
	return map[string]**float64{
		concept.FieldSuperficiePradera:    &w.SuperficiePradera,
		concept.FieldVacasEnOrdena:        &w.VacasEnOrdena,
		concept.FieldVacasMasa:            &w.VacasMasa,
		concept.FieldProduccionPromedio:   &w.ProduccionPromedio,
		concept.FieldPrecioLeche:          &w.PrecioLeche,
		concept.FieldPorcentajeGrasa:      &w.PorcentajeGrasa,
		concept.FieldProteinas:            &w.Proteinas,
		concept.FieldKgMSPraderaVaca:      &w.KgMSPraderaVaca,
		concept.FieldKgMSVerdeVaca:        &w.KgMSVerdeVaca,
		concept.FieldKgMSConservadoVaca:   &w.KgMSConservadoVaca,
		concept.FieldKgMSConcentradoVaca:  &w.KgMSConcentradoVaca,
		concept.FieldPraderasOtrosVerdes:  &w.PraderasOtrosVerdes,
		concept.FieldTotalMS:              &w.TotalMS,
		concept.FieldCostoRacionVaca:      &w.CostoRacionVaca,
		concept.FieldCostoConcentrado:     &w.CostoPromedioConcentrado,
		concept.FieldGrmsConcentradoLitro: &w.GrmsConcentradoPorLitro,
		concept.FieldMDAT:                 &w.MDAT,
		concept.FieldMDATLitros:           &w.MDATLitrosVacaDia,
		concept.FieldPorcCostoAlimentos:   &w.PorcentajeCostoAlimentos,
		concept.FieldCargaAnimal:          &w.CargaAnimal,
	}
}

// Set stores v in the named weekly column. It reports false for unknown
// columns.
func (w *WeeklyAggregate) Set(field string, v float64) bool {
	p, ok := w.fields()[field]
	if !ok {
		return false
	}
	*p = &v
	return true
}

// Values returns the non-nil weekly columns by name.
func (w *WeeklyAggregate) Values() map[string]float64 {
	out := make(map[string]float64)
	for name, p := range w.fields() {
		if *p != nil {
			out[name] = **p
		}
	}
	return out
}

// HistoricalRecord is one (establishment, week) line of the historical report.
// Week numbering is independent from WeeklyAggregate.
type HistoricalRecord struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Week          int       `gorm:"not null;uniqueIndex:idx_historic_est_week,priority:2;index" json:"week"`
	Date          time.Time `gorm:"type:date;not null" json:"date"`
	Establishment string    `gorm:"not null;size:255;uniqueIndex:idx_historic_est_week,priority:1" json:"establishment"`

	VacasEnProduccion         *int     `gorm:"column:vacas_en_produccion" json:"vacas_en_produccion"`
	LecheEnviada              *float64 `gorm:"column:leche_enviada" json:"leche_enviada"`
	LecheNoVendible           *float64 `gorm:"column:leche_no_vendible" json:"leche_no_vendible"`
	PNATerneros               *float64 `gorm:"column:pna_terneros" json:"pna_terneros"`
	ProduccionTotal           *float64 `gorm:"column:produccion_total" json:"produccion_total"`
	PrecioLeche               *float64 `gorm:"column:precio_leche" json:"precio_leche"`
	DiasLactancia             *int     `gorm:"column:dias_lactancia" json:"dias_lactancia"`
	PorcentajeGrasa           *float64 `gorm:"column:porcentaje_grasa" json:"porcentaje_grasa"`
	PorcentajeProteina        *float64 `gorm:"column:porcentaje_proteina" json:"porcentaje_proteina"`
	KgMSPradera               *float64 `gorm:"column:kg_ms_pradera" json:"kg_ms_pradera"`
	KgMSConservado            *float64 `gorm:"column:kg_ms_conservado" json:"kg_ms_conservado"`
	KgMSConcentrado           *float64 `gorm:"column:kg_ms_concentrado" json:"kg_ms_concentrado"`
	ConsumoMS                 *float64 `gorm:"column:consumo_ms" json:"consumo_ms"`
	MSPorHa                   *float64 `gorm:"column:ms_por_ha" json:"ms_por_ha"`
	CostoRacionVaca           *float64 `gorm:"column:costo_racion_vaca" json:"costo_racion_vaca"`
	MDAT                      *float64 `gorm:"column:mdat" json:"mdat"`
	Eficiencia                *float64 `gorm:"column:eficiencia" json:"eficiencia"`
	VacasMasa                 *int     `gorm:"column:vacas_masa" json:"vacas_masa"`
	VacasEnOrdena             *int     `gorm:"column:vacas_en_ordena" json:"vacas_en_ordena"`
	RelacionOrdenaMasa        *float64 `gorm:"column:relacion_ordena_masa" json:"relacion_ordena_masa"`
	SuperficiePraderas        *float64 `gorm:"column:superficie_praderas" json:"superficie_praderas"`
	PorcentajeLecheNoVendible *float64 `gorm:"column:porcentaje_leche_no_vendible" json:"porcentaje_leche_no_vendible"`
	CargaAnimal               *float64 `gorm:"column:carga_animal" json:"carga_animal"`
}

// TableName specifies the table name for HistoricalRecord
func (HistoricalRecord) TableName() string {
	return "historical_records"
}

// SetValue stores a parsed historical column; count columns are truncated
// to integers. It reports false for unknown columns.
func (h *HistoricalRecord) SetValue(col string, v float64) bool {
	floats := map[string]**float64{
		concept.HistLecheEnviada:              &h.LecheEnviada,
		concept.HistLecheNoVendible:           &h.LecheNoVendible,
		concept.HistPNATerneros:               &h.PNATerneros,
		concept.HistProduccionTotal:           &h.ProduccionTotal,
		concept.HistPrecioLeche:               &h.PrecioLeche,
		concept.HistPorcentajeGrasa:           &h.PorcentajeGrasa,
		concept.HistPorcentajeProteina:        &h.PorcentajeProteina,
		concept.HistKgMSPradera:               &h.KgMSPradera,
		concept.HistKgMSConservado:            &h.KgMSConservado,
		concept.HistKgMSConcentrado:           &h.KgMSConcentrado,
		concept.HistConsumoMS:                 &h.ConsumoMS,
		concept.HistMSPorHa:                   &h.MSPorHa,
		concept.HistCostoRacionVaca:           &h.CostoRacionVaca,
		concept.HistMDAT:                      &h.MDAT,
		concept.HistEficiencia:                &h.Eficiencia,
		concept.HistRelacionOrdenaMasa:        &h.RelacionOrdenaMasa,
		concept.HistSuperficiePraderas:        &h.SuperficiePraderas,
		concept.HistPorcentajeLecheNoVendible: &h.PorcentajeLecheNoVendible,
		concept.HistCargaAnimal:               &h.CargaAnimal,
	}
	if p, ok := floats[col]; ok {
		*p = &v
		return true
	}

	ints := map[string]**int{
		concept.HistVacasEnProduccion: &h.VacasEnProduccion,
		concept.HistDiasLactancia:     &h.DiasLactancia,
		concept.HistVacasMasa:         &h.VacasMasa,
		concept.HistVacasEnOrdena:     &h.VacasEnOrdena,
	}
	if p, ok := ints[col]; ok {
		n := int(v)
		*p = &n
		return true
	}
	return false
}
