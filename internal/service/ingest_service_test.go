package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"dairy-matrix/internal/concept"
	"dairy-matrix/internal/ingest"
	"dairy-matrix/internal/sheet"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordedRun struct {
	kind    string
	success bool
	rows    int
}

type stubRecorder struct {
	runs []recordedRun
}

func (r *stubRecorder) ObserveIngest(kind string, success bool, rows int, elapsed time.Duration) {
	r.runs = append(r.runs, recordedRun{kind, success, rows})
}

func workbook(t *testing.T, tbl *sheet.Table) *bytes.Reader {
	t.Helper()
	data, err := sheet.Encode(tbl)
	require.NoError(t, err)
	return bytes.NewReader(data)
}

func weeklyReport() *sheet.Table {
	return &sheet.Table{
		Header: []string{"Empresa", "Empresa_COD", "Establecimiento", "CATEGORIA", "CONCEPTO", "2-6-2025", "3-6-2025", "A. TOTAL"},
		Rows: [][]string{
			{"Lacteos Sur", "LSUR_01", "Los Robles", "Rebaño", "Vacas en ordeña", "102", "100", "101"},
			{"Lacteos Sur", "LSUR_01", "Los Robles", "Rebaño", "Vacas masa", "140", "140", ""},
			{"Lacteos Sur", "LSUR_01", "Los Robles", "Leche", "Precio de la leche", "310", "300", ""},
			{"Lacteos Sur", "LSUR_01", "Los Robles", "Leche", "Producción promedio", "25", "", ""},
			{"Lacteos Sur", "LSUR_01", "Los Robles", "Leche", "Producción total", "2500", "2600", ""},
			{"Lacteos Sur", "LSUR_01", "Los Robles", "Otros", "Color del tractor", "1", "1", ""},
			{"Lacteos Sur", "LSUR_01", "El Alamo", "Rebaño", "Vacas en ordeña", "50", "50", ""},
			{"Lacteos Sur", "LSUR_01", "El Alamo", "Tierra", "Superficie Praderas", "40", "40", "40"},
			{"Lacteos Sur", "LSUR_01", "El Alamo", "", "", "1", "1", ""},
		},
	}
}

func historicReport() *sheet.Table {
	return &sheet.Table{
		Sheet:  "SIC PROM",
		Header: []string{"N° Semana", "Fecha", "Establecimiento", "(I) MDAT", "Vacas en ordeña"},
		Rows: [][]string{
			{"20", "12-05-2025", "Los Robles", "5000", "98"},
			{"21", "19-05-2025", "Los Robles", "5200", "99"},
			{"21", "", "El Alamo", "3000", "50"},
			{"22", "", "Los Robles", "5400", "100"},
			{"", "", "Los Robles", "1", "1"},
		},
	}
}

func TestIngestWeekly(t *testing.T) {
	repo := newFakeRepository()
	rec := &stubRecorder{}
	svc := NewIngestService(repo, IngestConfig{BatchSize: 3}, rec, quietLogger())

	res, err := svc.IngestWeekly(context.Background(), workbook(t, weeklyReport()), ingest.WeeklyOptions{})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, 23, res.Week)
	assert.Equal(t, 2025, res.Year)

	assert.Equal(t, IngestStats{
		CompaniesCreated:      1,
		EstablishmentsCreated: 2,
		DailyRows:             15,
		WeeklyRows:            2,
		OmittedRows:           2,
		RowsProcessed:         9,
		RowsInserted:          17,
		UniqueWeeks:           1,
		UniqueEstablishments:  2,
	}, res.Stats)

	assert.Contains(t, res.Warnings, "Empresa 'LSUR' no existía y fue creada")
	assert.Contains(t, res.Warnings, "Concepto no mapeado: 'Color del tractor' en establecimiento 'Los Robles'")
	assert.Contains(t, res.Logs, "Superficie actualizada para 'El Alamo': 40 ha")
	assert.Contains(t, res.Logs, "Fila 5 omitida: Empresa=LSUR, Establecimiento=Los Robles, Concepto=Producción promedio, Motivo=Valor vacío en fecha 3-6-2025")
	assert.Empty(t, res.Errors)

	require.Len(t, repo.establishments, 2)
	require.NotNil(t, repo.establishments[1].PastureArea)
	assert.Equal(t, 40.0, *repo.establishments[1].PastureArea)

	aggs, err := repo.WeeklyAggregates(context.Background(), repositoryFilter(23, 2025))
	require.NoError(t, err)
	require.Len(t, aggs, 2)
	robles := aggs[0].Values()
	assert.Equal(t, 101.0, robles[concept.FieldVacasEnOrdena])
	assert.Equal(t, 305.0, robles[concept.FieldPrecioLeche])
	assert.Equal(t, 25.0, robles[concept.FieldProduccionPromedio])
	assert.Equal(t, 140.0, robles[concept.FieldVacasMasa])

	require.Len(t, rec.runs, 1)
	assert.Equal(t, recordedRun{"weekly", true, 17}, rec.runs[0])
}

func TestIngestWeeklyIsIdempotent(t *testing.T) {
	repo := newFakeRepository()
	svc := NewIngestService(repo, IngestConfig{}, nil, quietLogger())
	ctx := context.Background()

	_, err := svc.IngestWeekly(ctx, workbook(t, weeklyReport()), ingest.WeeklyOptions{})
	require.NoError(t, err)
	first, err := repo.WeeklyAggregates(ctx, repositoryFilter(0, 0))
	require.NoError(t, err)
	dailyCount := len(repo.daily)

	res, err := svc.IngestWeekly(ctx, workbook(t, weeklyReport()), ingest.WeeklyOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Stats.CompaniesCreated)
	assert.Equal(t, 0, res.Stats.EstablishmentsCreated)
	assert.NotContains(t, res.Warnings, "Empresa 'LSUR' no existía y fue creada")

	second, err := repo.WeeklyAggregates(ctx, repositoryFilter(0, 0))
	require.NoError(t, err)
	assert.Equal(t, dailyCount, len(repo.daily))
	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].Values(), second[i].Values())
	}
	assert.Len(t, repo.companies, 1)
	assert.Len(t, repo.establishments, 2)
}

func TestIngestWeeklyRejectsStructure(t *testing.T) {
	repo := newFakeRepository()
	rec := &stubRecorder{}
	svc := NewIngestService(repo, IngestConfig{}, rec, quietLogger())

	bad := &sheet.Table{Header: []string{"Foo", "Bar"}, Rows: [][]string{{"1", "2"}}}
	res, err := svc.IngestWeekly(context.Background(), workbook(t, bad), ingest.WeeklyOptions{})

	var verr *ingest.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.False(t, res.Success)
	assert.Equal(t, verr.Messages, res.Errors)
	assert.Equal(t, 0, repo.writes)
	assert.Equal(t, recordedRun{"weekly", false, 0}, rec.runs[0])

	_, err = svc.IngestWeekly(context.Background(), bytes.NewReader([]byte("not a workbook")), ingest.WeeklyOptions{})
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Messages[0], "No se pudo leer el archivo")
}

func TestIngestWeeklyPersistenceFailure(t *testing.T) {
	repo := newFakeRepository()
	repo.dailyErr = errors.New("connection reset")
	svc := NewIngestService(repo, IngestConfig{}, nil, quietLogger())

	res, err := svc.IngestWeekly(context.Background(), workbook(t, weeklyReport()), ingest.WeeklyOptions{})
	require.Error(t, err)
	var verr *ingest.ValidationError
	assert.False(t, errors.As(err, &verr))
	assert.ErrorIs(t, err, repo.dailyErr)

	assert.False(t, res.Success)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "upsert daily records")
	assert.Equal(t, 2, res.Stats.EstablishmentsCreated)
	assert.Empty(t, repo.weekly)
}

func TestIngestWeeklyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	repo := newFakeRepository()
	svc := NewIngestService(repo, IngestConfig{}, nil, quietLogger())
	res, err := svc.IngestWeekly(ctx, workbook(t, weeklyReport()), ingest.WeeklyOptions{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, res.Success)
	assert.Equal(t, 0, repo.writes)
}

func TestIngestHistoric(t *testing.T) {
	repo := newFakeRepository()
	svc := NewIngestService(repo, IngestConfig{HistoricBatchSize: 2}, nil, quietLogger())

	res, err := svc.IngestHistoric(context.Background(), workbook(t, historicReport()))
	require.NoError(t, err)
	assert.True(t, res.Success)

	assert.Equal(t, 5, res.Stats.RowsProcessed)
	assert.Equal(t, 4, res.Stats.RowsInserted)
	assert.Equal(t, 1, res.Stats.OmittedRows)
	assert.Equal(t, 3, res.Stats.UniqueWeeks)
	assert.Equal(t, 2, res.Stats.UniqueEstablishments)
	assert.Equal(t, []string{"Fila 6 omitida: Semana vacía"}, res.Logs)

	assert.Equal(t, "Columnas mapeadas: 5", res.Warnings[0])
	assert.Contains(t, res.Warnings, "  '(I) MDAT' → mdat")

	recs, err := repo.HistoricalRecords(context.Background(), "Los Robles")
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, 5200.0, *recs[1].MDAT)
	assert.Equal(t, 99, *recs[1].VacasEnOrdena)
	// week 22 has no dated row: epoch + 21 weeks
	assert.Equal(t, time.Date(2025, 5, 28, 0, 0, 0, 0, time.UTC), recs[2].Date)

	alamo, err := repo.HistoricalRecords(context.Background(), "El Alamo")
	require.NoError(t, err)
	require.Len(t, alamo, 1)
	assert.Equal(t, time.Date(2025, 5, 19, 0, 0, 0, 0, time.UTC), alamo[0].Date)
}

func TestIngestHistoricRejectsStructure(t *testing.T) {
	repo := newFakeRepository()
	svc := NewIngestService(repo, IngestConfig{}, nil, quietLogger())

	tbl := &sheet.Table{Header: []string{"MDAT"}, Rows: [][]string{{"1"}}}
	res, err := svc.IngestHistoric(context.Background(), workbook(t, tbl))
	var verr *ingest.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, []string{"Columnas faltantes: N° Semana, Establecimiento"}, res.Errors)
	assert.Equal(t, 0, repo.writes)
}

func TestIngestHistoricPersistenceFailure(t *testing.T) {
	repo := newFakeRepository()
	repo.historicErr = errors.New("disk full")
	svc := NewIngestService(repo, IngestConfig{}, nil, quietLogger())

	res, err := svc.IngestHistoric(context.Background(), workbook(t, historicReport()))
	assert.ErrorIs(t, err, repo.historicErr)
	assert.False(t, res.Success)
	assert.Equal(t, 5, res.Stats.RowsProcessed)
}
