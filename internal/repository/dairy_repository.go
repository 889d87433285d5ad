package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dairy-matrix/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("record not found")

// WeeklyFilter narrows WeeklyAggregates. Zero fields match everything.
type WeeklyFilter struct {
	Week            int
	Year            int
	EstablishmentID uint
}

// HistoricWeek summarizes one stored historical week
type HistoricWeek struct {
	Week           int       `gorm:"column:week" json:"week"`
	Date           time.Time `gorm:"column:date" json:"date"`
	Records        int       `gorm:"column:records" json:"records"`
	Establishments int       `gorm:"column:establishments" json:"establishments"`
}

// DairyRepository defines the persistence operations of the ingestion and
// matrix services
type DairyRepository interface {
	Migrate(ctx context.Context) error
	ResolveOrCreateCompany(ctx context.Context, code, name string) (*model.Company, bool, error)
	ResolveOrCreateEstablishment(ctx context.Context, companyID uint, name string) (*model.Establishment, bool, error)
	UpdatePastureArea(ctx context.Context, establishmentID uint, area float64) error
	UpsertDailyRecords(ctx context.Context, records []model.DailyRecord, batchSize int) (int, error)
	UpsertWeeklyAggregate(ctx context.Context, agg *model.WeeklyAggregate) error
	UpsertHistoricalRecords(ctx context.Context, records []model.HistoricalRecord, batchSize int) (int, error)
	LatestWeek(ctx context.Context) (week, year int, err error)
	WeeklyAggregates(ctx context.Context, filter WeeklyFilter) ([]model.WeeklyAggregate, error)
	DailyRecords(ctx context.Context, establishmentID uint, from, to time.Time) ([]model.DailyRecord, error)
	HistoricalRecords(ctx context.Context, establishment string) ([]model.HistoricalRecord, error)
	HistoricWeeks(ctx context.Context) ([]HistoricWeek, error)
}

// dairyRepository implements DairyRepository on gorm
type dairyRepository struct {
	db *gorm.DB
}

// NewDairyRepository creates a new dairy repository
func NewDairyRepository(db *gorm.DB) DairyRepository {
	return &dairyRepository{db: db}
}

// Migrate creates or updates the schema
func (r *dairyRepository) Migrate(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(
		&model.Company{},
		&model.Establishment{},
		&model.DailyRecord{},
		&model.WeeklyAggregate{},
		&model.HistoricalRecord{},
	)
}

// ResolveOrCreateCompany finds a company by code, creating it when absent.
// created reports whether a new row was inserted.
func (r *dairyRepository) ResolveOrCreateCompany(ctx context.Context, code, name string) (*model.Company, bool, error) {
	var company model.Company
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&company).Error
	if err == nil {
		return &company, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	if name == "" {
		name = code
	}
	company = model.Company{Code: code, Name: name}
	if err := r.db.WithContext(ctx).Create(&company).Error; err != nil {
		return nil, false, err
	}
	return &company, true, nil
}

// ResolveOrCreateEstablishment finds an establishment by (company, name),
// creating it when absent
func (r *dairyRepository) ResolveOrCreateEstablishment(ctx context.Context, companyID uint, name string) (*model.Establishment, bool, error) {
	var est model.Establishment
	err := r.db.WithContext(ctx).Where("company_id = ? AND name = ?", companyID, name).First(&est).Error
	if err == nil {
		return &est, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	est = model.Establishment{CompanyID: companyID, Name: name}
	if err := r.db.WithContext(ctx).Create(&est).Error; err != nil {
		return nil, false, err
	}
	return &est, true, nil
}

// UpdatePastureArea stores the establishment's pasture hectares
func (r *dairyRepository) UpdatePastureArea(ctx context.Context, establishmentID uint, area float64) error {
	res := r.db.WithContext(ctx).Model(&model.Establishment{}).
		Where("id = ?", establishmentID).
		Update("pasture_area", area)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpsertDailyRecords writes records in chunks of batchSize, each chunk in its
// own transaction. On failure the count of rows written by earlier chunks is
// returned with the error.
func (r *dairyRepository) UpsertDailyRecords(ctx context.Context, records []model.DailyRecord, batchSize int) (int, error) {
	onConflict := clause.OnConflict{
		Columns:   []clause.Column{{Name: "establishment_id"}, {Name: "date"}, {Name: "concept"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "category", "updated_at"}),
	}
	return upsertChunks(ctx, r.db, records, batchSize, onConflict)
}

// UpsertHistoricalRecords writes records in chunks keyed by (establishment, week)
func (r *dairyRepository) UpsertHistoricalRecords(ctx context.Context, records []model.HistoricalRecord, batchSize int) (int, error) {
	onConflict := clause.OnConflict{
		Columns:   []clause.Column{{Name: "establishment"}, {Name: "week"}},
		UpdateAll: true,
	}
	return upsertChunks(ctx, r.db, records, batchSize, onConflict)
}

func upsertChunks[T any](ctx context.Context, db *gorm.DB, records []T, batchSize int, onConflict clause.OnConflict) (int, error) {
	if batchSize <= 0 {
		batchSize = len(records)
	}
	written := 0
	for start := 0; start < len(records); start += batchSize {
		end := start + batchSize
		if end > len(records) {
			end = len(records)
		}
		chunk := records[start:end]
		err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return tx.Clauses(onConflict).Create(&chunk).Error
		})
		if err != nil {
			return written, fmt.Errorf("chunk %d-%d: %w", start, end, err)
		}
		written += len(chunk)
	}
	return written, nil
}

// UpsertWeeklyAggregate inserts or updates the aggregate keyed by
// (establishment, week, year). Nil columns leave stored values untouched.
func (r *dairyRepository) UpsertWeeklyAggregate(ctx context.Context, agg *model.WeeklyAggregate) error {
	columns := []string{"company_id", "start_date", "end_date", "updated_at"}
	for name := range agg.Values() {
		columns = append(columns, name)
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "establishment_id"}, {Name: "week"}, {Name: "year"}},
		DoUpdates: clause.AssignmentColumns(columns),
	}).Create(agg).Error
}

// LatestWeek returns the most recent (week, year) with stored aggregates
func (r *dairyRepository) LatestWeek(ctx context.Context) (int, int, error) {
	var agg model.WeeklyAggregate
	err := r.db.WithContext(ctx).Order("year DESC").Order("week DESC").First(&agg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, 0, ErrNotFound
	}
	if err != nil {
		return 0, 0, err
	}
	return agg.Week, agg.Year, nil
}

// WeeklyAggregates lists aggregates with their establishment and company
func (r *dairyRepository) WeeklyAggregates(ctx context.Context, filter WeeklyFilter) ([]model.WeeklyAggregate, error) {
	query := r.db.WithContext(ctx).Preload("Establishment.Company")
	if filter.Week > 0 {
		query = query.Where("week = ?", filter.Week)
	}
	if filter.Year > 0 {
		query = query.Where("year = ?", filter.Year)
	}
	if filter.EstablishmentID > 0 {
		query = query.Where("establishment_id = ?", filter.EstablishmentID)
	}

	var aggs []model.WeeklyAggregate
	if err := query.Order("establishment_id ASC").Find(&aggs).Error; err != nil {
		return nil, err
	}
	return aggs, nil
}

// DailyRecords lists one establishment's daily values between from and to
// inclusive
func (r *dairyRepository) DailyRecords(ctx context.Context, establishmentID uint, from, to time.Time) ([]model.DailyRecord, error) {
	var records []model.DailyRecord
	err := r.db.WithContext(ctx).
		Where("establishment_id = ? AND date >= ? AND date <= ?", establishmentID, from, to).
		Order("date ASC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

// HistoricalRecords lists the stored weeks of one establishment, ascending
func (r *dairyRepository) HistoricalRecords(ctx context.Context, establishment string) ([]model.HistoricalRecord, error) {
	var records []model.HistoricalRecord
	err := r.db.WithContext(ctx).
		Where("establishment = ?", establishment).
		Order("week ASC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

// HistoricWeeks groups the historical table by week
func (r *dairyRepository) HistoricWeeks(ctx context.Context) ([]HistoricWeek, error) {
	sqlQuery := `
		SELECT
			week,
			MIN(date) as date,
			COUNT(*) as records,
			COUNT(DISTINCT establishment) as establishments
		FROM historical_records
		GROUP BY week
		ORDER BY week ASC`

	var weeks []HistoricWeek
	if err := r.db.WithContext(ctx).Raw(sqlQuery).Scan(&weeks).Error; err != nil {
		return nil, err
	}
	return weeks, nil
}
