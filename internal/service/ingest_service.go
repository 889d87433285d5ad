package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"dairy-matrix/internal/concept"
	"dairy-matrix/internal/ingest"
	"dairy-matrix/internal/model"
	"dairy-matrix/internal/repository"
	"dairy-matrix/internal/sheet"

	"github.com/google/uuid"
)

// IngestConfig tunes the ingestion runs
type IngestConfig struct {
	BatchSize         int
	HistoricBatchSize int
	FallbackEpoch     time.Time
	HistoricSheet     string
}

// Recorder receives one observation per ingestion run
type Recorder interface {
	ObserveIngest(kind string, success bool, rows int, elapsed time.Duration)
}

// IngestService defines the spreadsheet ingestion operations
type IngestService interface {
	IngestWeekly(ctx context.Context, r io.Reader, opts ingest.WeeklyOptions) (*IngestResult, error)
	IngestHistoric(ctx context.Context, r io.Reader) (*IngestResult, error)
}

// IngestStats counts what one run did
type IngestStats struct {
	CompaniesCreated      int `json:"companies_created"`
	EstablishmentsCreated int `json:"establishments_created"`
	DailyRows             int `json:"daily_rows"`
	WeeklyRows            int `json:"weekly_rows"`
	OmittedRows           int `json:"omitted_rows"`
	RowsProcessed         int `json:"rows_processed"`
	RowsInserted          int `json:"rows_inserted"`
	UniqueWeeks           int `json:"unique_weeks"`
	UniqueEstablishments  int `json:"unique_establishments"`
}

// IngestResult is returned by every run, including failed ones, so callers
// keep the stats and logs gathered up to the failure
type IngestResult struct {
	RunID    string      `json:"run_id"`
	Kind     string      `json:"kind"`
	Success  bool        `json:"success"`
	Week     int         `json:"week,omitempty"`
	Year     int         `json:"year,omitempty"`
	Stats    IngestStats `json:"stats"`
	Warnings []string    `json:"warnings"`
	Logs     []string    `json:"logs"`
	Errors   []string    `json:"errors"`
}

func newResult(kind string) *IngestResult {
	return &IngestResult{
		RunID:    uuid.NewString(),
		Kind:     kind,
		Warnings: []string{},
		Logs:     []string{},
		Errors:   []string{},
	}
}

// ingestService implements IngestService
type ingestService struct {
	repo     repository.DairyRepository
	cfg      IngestConfig
	recorder Recorder
	logger   *slog.Logger
}

// NewIngestService creates a new ingestion service. recorder may be nil.
func NewIngestService(repo repository.DairyRepository, cfg IngestConfig, recorder Recorder, logger *slog.Logger) IngestService {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 1000
	}
	if cfg.HistoricBatchSize <= 0 {
		cfg.HistoricBatchSize = 500
	}
	if cfg.FallbackEpoch.IsZero() {
		cfg.FallbackEpoch = ingest.DefaultEpoch
	}
	if cfg.HistoricSheet == "" {
		cfg.HistoricSheet = "SIC PROM"
	}
	return &ingestService{repo: repo, cfg: cfg, recorder: recorder, logger: logger}
}

type estKey struct {
	code, name string
}

// IngestWeekly parses a weekly report and upserts its daily values and
// weekly aggregates
func (s *ingestService) IngestWeekly(ctx context.Context, r io.Reader, opts ingest.WeeklyOptions) (*IngestResult, error) {
	start := time.Now()
	res := newResult("weekly")
	logger := s.logger.With("run_id", res.RunID, "kind", res.Kind)

	if err := ctx.Err(); err != nil {
		return res, err
	}

	t, err := sheet.Read(r)
	if err != nil {
		return s.reject(res, logger, start, readError(err))
	}
	w, err := ingest.ParseWeekly(t, opts)
	if err != nil {
		return s.reject(res, logger, start, err)
	}
	res.Week, res.Year = w.Week, w.Year
	res.Stats.RowsProcessed = len(w.Rows)
	logger.Info("weekly report parsed",
		"week", w.Week,
		"year", w.Year,
		"rows", len(w.Rows),
		"dates", len(w.Dates),
	)

	cells, omitted := w.DailyCells()
	for _, o := range omitted {
		res.Logs = append(res.Logs, o.Message)
		logger.Warn("row omitted", "line", o.Line, "detail", o.Message)
	}
	res.Stats.OmittedRows = len(omitted)

	refs := w.Establishments()
	res.Stats.UniqueEstablishments = len(refs)
	res.Stats.UniqueWeeks = 1

	companies := make(map[string]uint)
	establishments := make(map[estKey]uint)
	for _, ref := range refs {
		companyID, ok := companies[ref.CompanyCode]
		if !ok {
			company, created, err := s.repo.ResolveOrCreateCompany(ctx, ref.CompanyCode, ref.Company)
			if err != nil {
				return s.fail(res, logger, start, fmt.Errorf("resolve company %s: %w", ref.CompanyCode, err))
			}
			if created {
				res.Stats.CompaniesCreated++
				msg := fmt.Sprintf("Empresa '%s' no existía y fue creada", ref.CompanyCode)
				res.Warnings = append(res.Warnings, msg)
				logger.Warn("company created", "code", ref.CompanyCode)
			}
			companyID = company.ID
			companies[ref.CompanyCode] = companyID
		}

		est, created, err := s.repo.ResolveOrCreateEstablishment(ctx, companyID, ref.Name)
		if err != nil {
			return s.fail(res, logger, start, fmt.Errorf("resolve establishment %s: %w", ref.Name, err))
		}
		if created {
			res.Stats.EstablishmentsCreated++
			res.Logs = append(res.Logs, fmt.Sprintf("Establecimiento creado: '%s'", ref.Name))
		}
		establishments[estKey{ref.CompanyCode, ref.Name}] = est.ID
	}

	cells = ingest.Dedupe(cells)
	records := make([]model.DailyRecord, 0, len(cells))
	for _, c := range cells {
		records = append(records, model.DailyRecord{
			EstablishmentID: establishments[estKey{c.CompanyCode, c.Establishment}],
			Date:            c.Date,
			Concept:         c.Concept,
			Category:        c.Category,
			Value:           c.Value,
		})
	}
	written, err := s.repo.UpsertDailyRecords(ctx, records, s.cfg.BatchSize)
	res.Stats.DailyRows = written
	res.Stats.RowsInserted = written
	if err != nil {
		return s.fail(res, logger, start, fmt.Errorf("upsert daily records: %w", err))
	}

	aggs, unmapped := w.Aggregate()
	for _, msg := range unmapped {
		res.Warnings = append(res.Warnings, msg)
		logger.Warn("concept not mapped", "detail", msg)
	}
	for _, a := range aggs {
		key := estKey{a.Ref.CompanyCode, a.Ref.Name}
		agg := &model.WeeklyAggregate{
			EstablishmentID: establishments[key],
			CompanyID:       companies[a.Ref.CompanyCode],
			Week:            w.Week,
			Year:            w.Year,
			StartDate:       w.Start,
			EndDate:         w.End,
		}
		for field, v := range a.Values {
			agg.Set(field, v)
		}
		if err := s.repo.UpsertWeeklyAggregate(ctx, agg); err != nil {
			return s.fail(res, logger, start, fmt.Errorf("upsert weekly aggregate %s: %w", a.Ref.Name, err))
		}
		res.Stats.WeeklyRows++
		res.Stats.RowsInserted++

		if area, ok := a.Values[concept.FieldSuperficiePradera]; ok {
			if err := s.repo.UpdatePastureArea(ctx, agg.EstablishmentID, area); err != nil {
				return s.fail(res, logger, start, fmt.Errorf("update pasture area %s: %w", a.Ref.Name, err))
			}
			res.Logs = append(res.Logs, fmt.Sprintf("Superficie actualizada para '%s': %v ha", a.Ref.Name, area))
		}
	}

	return s.succeed(res, logger, start)
}

// IngestHistoric parses the historical report and upserts it by
// (establishment, week)
func (s *ingestService) IngestHistoric(ctx context.Context, r io.Reader) (*IngestResult, error) {
	start := time.Now()
	res := newResult("historic")
	logger := s.logger.With("run_id", res.RunID, "kind", res.Kind)

	if err := ctx.Err(); err != nil {
		return res, err
	}

	t, err := sheet.Read(r, s.cfg.HistoricSheet)
	if err != nil {
		return s.reject(res, logger, start, readError(err))
	}
	h, err := ingest.ParseHistoric(t, ingest.HistoricOptions{Epoch: s.cfg.FallbackEpoch})
	if err != nil {
		return s.reject(res, logger, start, err)
	}

	res.Warnings = append(res.Warnings, fmt.Sprintf("Columnas mapeadas: %d", len(h.Columns)))
	for _, c := range h.Columns {
		res.Warnings = append(res.Warnings, fmt.Sprintf("  '%s' → %s", c.Header, c.Target))
	}
	logger.Info("historical report parsed", "sheet", t.Sheet, "rows", h.Processed, "columns", len(h.Columns))

	for _, o := range h.Omitted {
		res.Logs = append(res.Logs, o.Message)
		logger.Warn("row omitted", "line", o.Line, "detail", o.Message)
	}
	res.Stats.OmittedRows = len(h.Omitted)
	res.Stats.RowsProcessed = h.Processed
	res.Stats.UniqueWeeks = len(h.Weeks())
	res.Stats.UniqueEstablishments = len(h.Establishments())

	type histKey struct {
		est  string
		week int
	}
	pos := make(map[histKey]int)
	records := make([]model.HistoricalRecord, 0, len(h.Rows))
	for _, row := range h.Rows {
		rec := model.HistoricalRecord{Week: row.Week, Date: row.Date, Establishment: row.Establishment}
		for col, v := range row.Values {
			rec.SetValue(col, v)
		}
		k := histKey{row.Establishment, row.Week}
		if i, ok := pos[k]; ok {
			records[i] = rec
			continue
		}
		pos[k] = len(records)
		records = append(records, rec)
	}

	written, err := s.repo.UpsertHistoricalRecords(ctx, records, s.cfg.HistoricBatchSize)
	res.Stats.RowsInserted = written
	if err != nil {
		return s.fail(res, logger, start, fmt.Errorf("upsert historical records: %w", err))
	}

	return s.succeed(res, logger, start)
}

// readError turns an unreadable upload into a structural error
func readError(err error) error {
	if errors.Is(err, sheet.ErrEmpty) {
		return &ingest.ValidationError{Messages: []string{"El archivo está vacío"}}
	}
	return &ingest.ValidationError{Messages: []string{fmt.Sprintf("No se pudo leer el archivo: %v", err)}}
}

// reject records a structural error; nothing has been written
func (s *ingestService) reject(res *IngestResult, logger *slog.Logger, start time.Time, err error) (*IngestResult, error) {
	var verr *ingest.ValidationError
	if errors.As(err, &verr) {
		res.Errors = append(res.Errors, verr.Messages...)
	} else {
		res.Errors = append(res.Errors, err.Error())
	}
	logger.Warn("spreadsheet rejected", "errors", res.Errors)
	s.observe(res, start)
	return res, err
}

// fail records a persistence error; earlier chunks stay committed
func (s *ingestService) fail(res *IngestResult, logger *slog.Logger, start time.Time, err error) (*IngestResult, error) {
	res.Errors = append(res.Errors, err.Error())
	logger.Error("ingestion failed",
		"error", err.Error(),
		"rows_inserted", res.Stats.RowsInserted,
		"latency_ms", time.Since(start).Milliseconds(),
	)
	s.observe(res, start)
	return res, err
}

func (s *ingestService) succeed(res *IngestResult, logger *slog.Logger, start time.Time) (*IngestResult, error) {
	res.Success = true
	logger.Info("ingestion completed",
		"rows_processed", res.Stats.RowsProcessed,
		"rows_inserted", res.Stats.RowsInserted,
		"omitted_rows", res.Stats.OmittedRows,
		"latency_ms", time.Since(start).Milliseconds(),
	)
	s.observe(res, start)
	return res, nil
}

func (s *ingestService) observe(res *IngestResult, start time.Time) {
	if s.recorder != nil {
		s.recorder.ObserveIngest(res.Kind, res.Success, res.Stats.RowsInserted, time.Since(start))
	}
}
