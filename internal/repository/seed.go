package repository

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"dairy-matrix/internal/concept"
	"dairy-matrix/internal/model"
	"dairy-matrix/internal/normalize"

	"gorm.io/gorm"
)

// seedWeeks is how many weekly reports the demo data covers, starting on
// the Monday of ISO week 1 of 2025.
const seedWeeks = 8

var seedStart = time.Date(2024, 12, 30, 0, 0, 0, 0, time.UTC)

// SeedSummary counts what SeedDatabase wrote
type SeedSummary struct {
	Companies      int
	Establishments int
	DailyRecords   int
	WeeklyRecords  int
	HistoricRows   int
}

// SeedRepository handles database seeding operations
type SeedRepository struct {
	db *gorm.DB
}

// NewSeedRepository creates a new seed repository
func NewSeedRepository(db *gorm.DB) *SeedRepository {
	return &SeedRepository{db: db}
}

type seedFarm struct {
	name  string
	area  float64
	cows  float64
	mass  float64
	yield float64
}

var seedCompanies = []struct {
	code  string
	name  string
	farms []seedFarm
}{
	{"LSUR", "Lacteos del Sur", []seedFarm{
		{"Los Robles", 120, 310, 420, 26},
		{"El Alamo", 85, 190, 260, 23},
		{"Santa Ana", 150, 380, 500, 28},
	}},
	{"AGRO", "Agropecuaria Quilaco", []seedFarm{
		{"Quilaco", 60, 140, 190, 21},
		{"La Esperanza", 95, 230, 300, 24},
	}},
}

// SeedDatabase replaces all data with a deterministic demo set: two
// companies, their establishments, eight weeks of daily and weekly data and
// a full year of historical weeks
func (s *SeedRepository) SeedDatabase(ctx context.Context) (SeedSummary, error) {
	var summary SeedSummary
	db := s.db.WithContext(ctx)

	if err := s.clearExistingData(db); err != nil {
		return summary, fmt.Errorf("failed to clear existing data: %w", err)
	}

	rng := rand.New(rand.NewSource(42))
	labels := concept.Labels()

	for _, c := range seedCompanies {
		company := model.Company{Code: c.code, Name: c.name}
		if err := db.Create(&company).Error; err != nil {
			return summary, fmt.Errorf("failed to create company %s: %w", c.code, err)
		}
		summary.Companies++

		for _, f := range c.farms {
			area := f.area
			est := model.Establishment{CompanyID: company.ID, Name: f.name, PastureArea: &area}
			if err := db.Create(&est).Error; err != nil {
				return summary, fmt.Errorf("failed to create establishment %s: %w", f.name, err)
			}
			summary.Establishments++

			daily, weekly := s.weeklyData(rng, labels, company.ID, est.ID, f)
			if err := db.CreateInBatches(&daily, 100).Error; err != nil {
				return summary, fmt.Errorf("failed to create daily records: %w", err)
			}
			if err := db.CreateInBatches(&weekly, 100).Error; err != nil {
				return summary, fmt.Errorf("failed to create weekly aggregates: %w", err)
			}
			summary.DailyRecords += len(daily)
			summary.WeeklyRecords += len(weekly)

			historic := s.historicData(rng, f)
			if err := db.CreateInBatches(&historic, 100).Error; err != nil {
				return summary, fmt.Errorf("failed to create historical records: %w", err)
			}
			summary.HistoricRows += len(historic)
		}
	}

	return summary, nil
}

// clearExistingData removes existing data
func (s *SeedRepository) clearExistingData(db *gorm.DB) error {
	for _, table := range []string{"daily_records", "weekly_aggregates", "historical_records", "establishments", "companies"} {
		if err := db.Exec("TRUNCATE TABLE " + table + " CASCADE").Error; err != nil {
			return err
		}
	}
	return nil
}

// weeklyData generates seven days of concept values per week and the
// matching weekly aggregate
func (s *SeedRepository) weeklyData(rng *rand.Rand, labels map[string]string, companyID, estID uint, f seedFarm) ([]model.DailyRecord, []model.WeeklyAggregate) {
	var daily []model.DailyRecord
	var weekly []model.WeeklyAggregate

	for w := 0; w < seedWeeks; w++ {
		start := seedStart.AddDate(0, 0, 7*w)
		year, week := start.ISOWeek()

		sums := make(map[string]float64)
		for d := 0; d < 7; d++ {
			date := start.AddDate(0, 0, d)
			price := 380 + rng.Float64()*40
			day := map[string]float64{
				concept.KeyVacasOrdena:    f.cows + float64(rng.Intn(9)-4),
				concept.KeyVacasMasa:      f.mass,
				concept.KeyProduccionProm: f.yield + rng.Float64()*3 - 1.5,
				concept.KeyPrecioLeche:    price,
				concept.KeyCostoRacion:    f.yield * price * (0.35 + rng.Float64()*0.1),
				concept.KeyMSPradera:      6 + rng.Float64()*4,
				concept.KeyMSVerde:        rng.Float64() * 2,
				concept.KeyMSConservado:   4 + rng.Float64()*2,
				concept.KeyMSConcentrado:  5 + rng.Float64()*2,
				concept.KeyPorcGrasa:      3.8 + rng.Float64()*0.6,
				concept.KeyProteinas:      3.3 + rng.Float64()*0.4,
			}
			for key, v := range day {
				v = normalize.Round2(v)
				sums[key] += v
				daily = append(daily, model.DailyRecord{
					EstablishmentID: estID,
					Date:            date,
					Concept:         labels[key],
					Category:        "Demo",
					Value:           v,
				})
			}
		}

		agg := model.WeeklyAggregate{
			EstablishmentID: estID,
			CompanyID:       companyID,
			Week:            week,
			Year:            year,
			StartDate:       start,
			EndDate:         start.AddDate(0, 0, 6),
		}
		agg.Set(concept.FieldSuperficiePradera, f.area)
		for key, sum := range sums {
			if field, ok := concept.WeeklyField(labels[key]); ok && field != "" {
				agg.Set(field, normalize.Round2(sum/7))
			}
		}
		pr := normalize.Round2(sums[concept.KeyMSPradera] / 7)
		ve := normalize.Round2(sums[concept.KeyMSVerde] / 7)
		agg.Set(concept.FieldPraderasOtrosVerdes, normalize.Round2(pr+ve))
		weekly = append(weekly, agg)
	}

	return daily, weekly
}

// historicData generates 52 historical weeks for one establishment
func (s *SeedRepository) historicData(rng *rand.Rand, f seedFarm) []model.HistoricalRecord {
	epoch := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	records := make([]model.HistoricalRecord, 0, 52)

	for week := 1; week <= 52; week++ {
		cows := int(f.cows) + rng.Intn(21) - 10
		mass := int(f.mass)
		mdat := normalize.Round2(f.yield * (220 + rng.Float64()*60))
		production := normalize.Round2(float64(cows) * f.yield * 7)
		area := f.area

		records = append(records, model.HistoricalRecord{
			Week:               week,
			Date:               epoch.AddDate(0, 0, 7*(week-1)),
			Establishment:      f.name,
			VacasEnOrdena:      &cows,
			VacasMasa:          &mass,
			MDAT:               &mdat,
			ProduccionTotal:    &production,
			SuperficiePraderas: &area,
		})
	}

	return records
}
