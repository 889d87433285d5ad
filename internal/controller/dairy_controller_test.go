package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"dairy-matrix/internal/ingest"
	"dairy-matrix/internal/matrix"
	"dairy-matrix/internal/repository"
	"dairy-matrix/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockIngestService records the call and returns canned values
type mockIngestService struct {
	result   *service.IngestResult
	err      error
	body     []byte
	opts     ingest.WeeklyOptions
	historic bool
}

func (m *mockIngestService) IngestWeekly(ctx context.Context, r io.Reader, opts ingest.WeeklyOptions) (*service.IngestResult, error) {
	m.body, _ = io.ReadAll(r)
	m.opts = opts
	return m.result, m.err
}

func (m *mockIngestService) IngestHistoric(ctx context.Context, r io.Reader) (*service.IngestResult, error) {
	m.body, _ = io.ReadAll(r)
	m.historic = true
	return m.result, m.err
}

// mockMatrixService returns canned values
type mockMatrixService struct {
	matrix    *matrix.Matrix
	preview   *service.PreviewResult
	weeks     []repository.HistoricWeek
	err       error
	week      int
	year      int
	previewed bool
}

func (m *mockMatrixService) Matrix(ctx context.Context, week, year int) (*matrix.Matrix, error) {
	m.week, m.year = week, year
	return m.matrix, m.err
}

func (m *mockMatrixService) Preview(ctx context.Context, r io.Reader, opts ingest.WeeklyOptions) (*service.PreviewResult, error) {
	m.previewed = true
	return m.preview, m.err
}

func (m *mockMatrixService) HistoricWeeks(ctx context.Context) ([]repository.HistoricWeek, error) {
	return m.weeks, m.err
}

func setupRouter(controller *DairyController) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	controller.RegisterRoutes(r.Group("/v1"))
	return r
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// uploadRequest builds a multipart POST with a file and optional fields
func uploadRequest(t *testing.T, path string, file []byte, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if file != nil {
		part, err := w.CreateFormFile("file", "report.xlsx")
		require.NoError(t, err)
		_, err = part.Write(file)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestUploadWeekly_Success(t *testing.T) {
	ingestSvc := &mockIngestService{result: &service.IngestResult{
		RunID:   "run-1",
		Kind:    "weekly",
		Success: true,
		Stats:   service.IngestStats{DailyRows: 15, WeeklyRows: 2},
	}}
	router := setupRouter(NewDairyController(ingestSvc, &mockMatrixService{}, quietLogger()))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, uploadRequest(t, "/v1/uploads/weekly", []byte("xlsx-bytes"), map[string]string{"week": "23", "year": "2025"}))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []byte("xlsx-bytes"), ingestSvc.body)
	assert.Equal(t, ingest.WeeklyOptions{Week: 23, Year: 2025}, ingestSvc.opts)

	var res service.IngestResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.True(t, res.Success)
	assert.Equal(t, 15, res.Stats.DailyRows)
}

func TestUploadWeekly_MissingFile(t *testing.T) {
	router := setupRouter(NewDairyController(&mockIngestService{}, &mockMatrixService{}, quietLogger()))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, uploadRequest(t, "/v1/uploads/weekly", nil, nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Missing file", decode(t, w)["error"])
}

func TestUploadWeekly_InvalidWeek(t *testing.T) {
	tests := []struct {
		name   string
		fields map[string]string
	}{
		{"not a number", map[string]string{"week": "abc"}},
		{"out of range", map[string]string{"week": "54"}},
		{"bad year", map[string]string{"week": "10", "year": "20"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ingestSvc := &mockIngestService{}
			router := setupRouter(NewDairyController(ingestSvc, &mockMatrixService{}, quietLogger()))

			w := httptest.NewRecorder()
			router.ServeHTTP(w, uploadRequest(t, "/v1/uploads/weekly", []byte("x"), tt.fields))

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Nil(t, ingestSvc.body, "service must not be called")
		})
	}
}

func TestUploadWeekly_ValidationError(t *testing.T) {
	verr := &ingest.ValidationError{Messages: []string{"Columnas faltantes: CONCEPTO"}}
	ingestSvc := &mockIngestService{
		result: &service.IngestResult{Errors: verr.Messages},
		err:    verr,
	}
	router := setupRouter(NewDairyController(ingestSvc, &mockMatrixService{}, quietLogger()))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, uploadRequest(t, "/v1/uploads/weekly", []byte("x"), nil))

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	body := decode(t, w)
	assert.Equal(t, "Invalid spreadsheet", body["error"])
	assert.Equal(t, []interface{}{"Columnas faltantes: CONCEPTO"}, body["errors"])
	assert.NotNil(t, body["result"])
}

func TestUploadHistoric_PersistenceFailureKeepsResult(t *testing.T) {
	ingestSvc := &mockIngestService{
		result: &service.IngestResult{Kind: "historic", Stats: service.IngestStats{RowsProcessed: 40, RowsInserted: 20}},
		err:    errors.New("upsert historical records: chunk 20-40: deadlock"),
	}
	router := setupRouter(NewDairyController(ingestSvc, &mockMatrixService{}, quietLogger()))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, uploadRequest(t, "/v1/uploads/historic", []byte("x"), nil))

	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.True(t, ingestSvc.historic)
	body := decode(t, w)
	assert.Equal(t, "Ingestion failed", body["error"])
	result := body["result"].(map[string]interface{})
	stats := result["stats"].(map[string]interface{})
	assert.Equal(t, 20.0, stats["rows_inserted"])
}

func TestPreviewWeekly(t *testing.T) {
	m := matrix.Build([]matrix.LongRecord{
		{Establishment: "Los Robles", Key: "vacas_ordena", Total: 100},
	}, nil, matrix.BuildOptions{Week: 23, Year: 2025})
	matrixSvc := &mockMatrixService{preview: &service.PreviewResult{Week: 23, Year: 2025, Matrix: m}}
	router := setupRouter(NewDairyController(&mockIngestService{}, matrixSvc, quietLogger()))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, uploadRequest(t, "/v1/uploads/weekly/preview", []byte("x"), nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, matrixSvc.previewed)
	body := decode(t, w)
	assert.Equal(t, 23.0, body["week"])
	mat := body["matrix"].(map[string]interface{})
	assert.Len(t, mat["rows"], 1)
	assert.Len(t, mat["columns"], len(matrix.Columns))
}

func TestGetMatrix_Success(t *testing.T) {
	m := matrix.Build([]matrix.LongRecord{
		{Establishment: "Est A", Key: "vacas_ordena", Total: 100},
		{Establishment: "Est B", Key: "vacas_ordena", Total: 50},
	}, nil, matrix.BuildOptions{Week: 23, Year: 2025})
	matrixSvc := &mockMatrixService{matrix: &m}
	router := setupRouter(NewDairyController(&mockIngestService{}, matrixSvc, quietLogger()))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/matrix?week=23&year=2025", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 23, matrixSvc.week)
	assert.Equal(t, 2025, matrixSvc.year)

	body := decode(t, w)
	rows := body["rows"].([]interface{})
	require.Len(t, rows, 2)
	first := rows[0].(map[string]interface{})
	assert.Equal(t, "Est A", first["establecimiento"])
	// missing metrics are encoded as null, never NaN
	assert.Nil(t, first["mdat"])
	assert.NotNil(t, body["totals"])
}

func TestGetMatrix_LatestWhenOmitted(t *testing.T) {
	m := matrix.Build(nil, nil, matrix.BuildOptions{})
	matrixSvc := &mockMatrixService{matrix: &m}
	router := setupRouter(NewDairyController(&mockIngestService{}, matrixSvc, quietLogger()))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/matrix", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, matrixSvc.week)
	assert.Equal(t, 0, matrixSvc.year)
}

func TestGetMatrix_Errors(t *testing.T) {
	tests := []struct {
		name       string
		url        string
		err        error
		wantStatus int
	}{
		{"no data", "/v1/matrix?week=1&year=2020", service.ErrNoData, http.StatusNotFound},
		{"store failure", "/v1/matrix", errors.New("connection refused"), http.StatusInternalServerError},
		{"invalid week", "/v1/matrix?week=0", nil, http.StatusBadRequest},
		{"invalid year", "/v1/matrix?week=3&year=abc", nil, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := setupRouter(NewDairyController(&mockIngestService{}, &mockMatrixService{err: tt.err}, quietLogger()))

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.url, nil))

			assert.Equal(t, tt.wantStatus, w.Code)
			body := decode(t, w)
			assert.NotEmpty(t, body["error"])
			assert.NotEmpty(t, body["message"])
		})
	}
}

func TestGetHistoricWeeks(t *testing.T) {
	matrixSvc := &mockMatrixService{weeks: []repository.HistoricWeek{
		{Week: 40, Date: time.Date(2025, 9, 29, 0, 0, 0, 0, time.UTC), Records: 12, Establishments: 12},
	}}
	router := setupRouter(NewDairyController(&mockIngestService{}, matrixSvc, quietLogger()))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/historic/weeks", nil))

	require.Equal(t, http.StatusOK, w.Code)
	weeks := decode(t, w)["weeks"].([]interface{})
	require.Len(t, weeks, 1)
	assert.Equal(t, 12.0, weeks[0].(map[string]interface{})["records"])
}
