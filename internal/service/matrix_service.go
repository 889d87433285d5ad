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
	"dairy-matrix/internal/matrix"
	"dairy-matrix/internal/model"
	"dairy-matrix/internal/repository"
	"dairy-matrix/internal/sheet"
)

// ErrNoData is returned when no weekly aggregates exist for the requested
// period
var ErrNoData = errors.New("no weekly data")

// MatrixService defines the report operations
type MatrixService interface {
	Matrix(ctx context.Context, week, year int) (*matrix.Matrix, error)
	Preview(ctx context.Context, r io.Reader, opts ingest.WeeklyOptions) (*PreviewResult, error)
	HistoricWeeks(ctx context.Context) ([]repository.HistoricWeek, error)
}

// PreviewResult is the normalized long table and report of an uploaded
// weekly file. Nothing is stored.
type PreviewResult struct {
	Week    int                 `json:"week"`
	Year    int                 `json:"year"`
	Records []matrix.LongRecord `json:"records"`
	Matrix  matrix.Matrix       `json:"matrix"`
}

// matrixService implements MatrixService
type matrixService struct {
	repo   repository.DairyRepository
	logger *slog.Logger
}

// NewMatrixService creates a new matrix service
func NewMatrixService(repo repository.DairyRepository, logger *slog.Logger) MatrixService {
	return &matrixService{repo: repo, logger: logger}
}

// Matrix builds the report for a stored week. A zero week or year selects
// the latest stored week.
func (s *matrixService) Matrix(ctx context.Context, week, year int) (*matrix.Matrix, error) {
	start := time.Now()

	if week <= 0 || year <= 0 {
		w, y, err := s.repo.LatestWeek(ctx)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNoData
		}
		if err != nil {
			return nil, fmt.Errorf("latest week: %w", err)
		}
		week, year = w, y
	}

	aggs, err := s.repo.WeeklyAggregates(ctx, repository.WeeklyFilter{Week: week, Year: year})
	if err != nil {
		return nil, fmt.Errorf("weekly aggregates: %w", err)
	}
	if len(aggs) == 0 {
		return nil, ErrNoData
	}

	records := longRecords(aggs)

	daily, err := s.dailyValues(ctx, aggs)
	if err != nil {
		return nil, err
	}

	hist, err := s.historicPoints(ctx, establishmentNames(records))
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m := matrix.Build(records, hist, matrix.BuildOptions{
		Week: week,
		Year: year,
		Daily: func(est matrix.EstablishmentID, key string) []float64 {
			return daily[est][key]
		},
	})

	s.logger.Info("matrix built",
		"week", week,
		"year", year,
		"establishments", len(m.Rows),
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return &m, nil
}

// Preview parses a weekly upload and builds its report without writing
func (s *matrixService) Preview(ctx context.Context, r io.Reader, opts ingest.WeeklyOptions) (*PreviewResult, error) {
	t, err := sheet.Read(r)
	if err != nil {
		return nil, readError(err)
	}
	w, err := ingest.ParseWeekly(t, opts)
	if err != nil {
		return nil, err
	}

	records := w.LongRecords()
	hist, err := s.historicPoints(ctx, establishmentNames(records))
	if err != nil {
		return nil, err
	}

	m := matrix.Build(records, hist, matrix.BuildOptions{Week: w.Week, Year: w.Year})
	return &PreviewResult{Week: w.Week, Year: w.Year, Records: records, Matrix: m}, nil
}

// HistoricWeeks lists the stored historical weeks
func (s *matrixService) HistoricWeeks(ctx context.Context) ([]repository.HistoricWeek, error) {
	weeks, err := s.repo.HistoricWeeks(ctx)
	if err != nil {
		return nil, fmt.Errorf("historic weeks: %w", err)
	}
	return weeks, nil
}

// longRecords expands stored aggregates into one long record per column
func longRecords(aggs []model.WeeklyAggregate) []matrix.LongRecord {
	labels := concept.Labels()
	var out []matrix.LongRecord
	for _, a := range aggs {
		for field, v := range a.Values() {
			key := concept.KeyForField(field)
			if key == "" {
				continue
			}
			out = append(out, matrix.LongRecord{
				Company:       a.Establishment.Company.Name,
				CompanyCode:   a.Establishment.Company.Code,
				Establishment: a.Establishment.Name,
				Concept:       labels[key],
				Key:           key,
				Week:          a.Week,
				Total:         matrix.Metric(v),
			})
		}
	}
	return out
}

func establishmentNames(records []matrix.LongRecord) []string {
	seen := make(map[string]bool)
	var names []string
	for _, r := range records {
		if r.Establishment != "" && !seen[r.Establishment] {
			seen[r.Establishment] = true
			names = append(names, r.Establishment)
		}
	}
	return names
}

// dailyValues loads the period's daily records, keyed by establishment and
// concept key
func (s *matrixService) dailyValues(ctx context.Context, aggs []model.WeeklyAggregate) (map[matrix.EstablishmentID]map[string][]float64, error) {
	out := make(map[matrix.EstablishmentID]map[string][]float64)
	for _, a := range aggs {
		records, err := s.repo.DailyRecords(ctx, a.EstablishmentID, a.StartDate, a.EndDate)
		if err != nil {
			return nil, fmt.Errorf("daily records for %s: %w", a.Establishment.Name, err)
		}
		id := matrix.EstablishmentID{CompanyCode: a.Establishment.Company.Code, Name: a.Establishment.Name}
		byKey := out[id]
		if byKey == nil {
			byKey = make(map[string][]float64)
			out[id] = byKey
		}
		for _, r := range records {
			if key := concept.Resolve(r.Concept); key != "" {
				byKey[key] = append(byKey[key], r.Value)
			}
		}
	}
	return out, nil
}

// historicPoints loads the MDAT and milking-cow series of each establishment
func (s *matrixService) historicPoints(ctx context.Context, names []string) ([]matrix.HistoricPoint, error) {
	var points []matrix.HistoricPoint
	for _, name := range names {
		records, err := s.repo.HistoricalRecords(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("historical records for %s: %w", name, err)
		}
		for _, r := range records {
			p := matrix.HistoricPoint{Establishment: r.Establishment, Week: r.Week, MDAT: matrix.NaN, Cows: matrix.NaN}
			if r.MDAT != nil {
				p.MDAT = matrix.Metric(*r.MDAT)
			}
			if r.VacasEnOrdena != nil {
				p.Cows = matrix.Metric(*r.VacasEnOrdena)
			}
			points = append(points, p)
		}
	}
	return points, nil
}
