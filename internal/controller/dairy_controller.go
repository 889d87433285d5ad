package controller

import (
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"dairy-matrix/internal/ingest"
	"dairy-matrix/internal/matrix"
	"dairy-matrix/internal/service"

	"github.com/gin-gonic/gin"
)

// DairyController handles the upload and report HTTP requests
type DairyController struct {
	ingestService service.IngestService
	matrixService service.MatrixService
	logger        *slog.Logger
}

// NewDairyController creates a new dairy controller
func NewDairyController(ingestService service.IngestService, matrixService service.MatrixService, logger *slog.Logger) *DairyController {
	return &DairyController{
		ingestService: ingestService,
		matrixService: matrixService,
		logger:        logger,
	}
}

// RegisterRoutes mounts the handlers on the /v1 group
func (c *DairyController) RegisterRoutes(v1 *gin.RouterGroup) {
	uploads := v1.Group("/uploads")
	{
		uploads.POST("/weekly", c.UploadWeekly)
		uploads.POST("/weekly/preview", c.PreviewWeekly)
		uploads.POST("/historic", c.UploadHistoric)
	}
	v1.GET("/matrix", c.GetMatrix)
	v1.GET("/historic/weeks", c.GetHistoricWeeks)
}

// UploadWeekly handles POST /v1/uploads/weekly
// Form fields:
//   - file (required): weekly consolidated report (.xlsx)
//   - week, year (optional): override the period derived from the date columns
func (c *DairyController) UploadWeekly(ctx *gin.Context) {
	startTime := time.Now()

	opts, ok := c.weeklyOptions(ctx)
	if !ok {
		return
	}
	file, header, ok := c.openUpload(ctx)
	if !ok {
		return
	}
	defer file.Close()

	c.logger.Info("processing weekly upload",
		"filename", header.Filename,
		"size", header.Size,
		"week", opts.Week,
		"year", opts.Year,
	)

	result, err := c.ingestService.IngestWeekly(ctx.Request.Context(), file, opts)
	c.respondIngest(ctx, result, err, startTime)
}

// UploadHistoric handles POST /v1/uploads/historic
func (c *DairyController) UploadHistoric(ctx *gin.Context) {
	startTime := time.Now()

	file, header, ok := c.openUpload(ctx)
	if !ok {
		return
	}
	defer file.Close()

	c.logger.Info("processing historic upload",
		"filename", header.Filename,
		"size", header.Size,
	)

	result, err := c.ingestService.IngestHistoric(ctx.Request.Context(), file)
	c.respondIngest(ctx, result, err, startTime)
}

// PreviewWeekly handles POST /v1/uploads/weekly/preview. Nothing is stored.
func (c *DairyController) PreviewWeekly(ctx *gin.Context) {
	startTime := time.Now()

	opts, ok := c.weeklyOptions(ctx)
	if !ok {
		return
	}
	file, _, ok := c.openUpload(ctx)
	if !ok {
		return
	}
	defer file.Close()

	preview, err := c.matrixService.Preview(ctx.Request.Context(), file, opts)
	var verr *ingest.ValidationError
	if errors.As(err, &verr) {
		ctx.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":   "Invalid spreadsheet",
			"message": verr.Error(),
			"errors":  verr.Messages,
		})
		return
	}
	if err != nil {
		c.logger.Error("failed to build preview",
			"error", err.Error(),
			"latency_ms", time.Since(startTime).Milliseconds(),
		)
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Internal server error",
			"message": "Failed to build preview",
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"week":    preview.Week,
		"year":    preview.Year,
		"records": preview.Records,
		"matrix":  matrixBody(preview.Matrix),
	})
}

// GetMatrix handles GET /v1/matrix
// Query parameters:
//   - week, year (optional): stored period, latest when omitted
func (c *DairyController) GetMatrix(ctx *gin.Context) {
	startTime := time.Now()

	week, ok := c.intParam(ctx, ctx.Query("week"), "week", 1, 53)
	if !ok {
		return
	}
	year, ok := c.intParam(ctx, ctx.Query("year"), "year", 1900, 9999)
	if !ok {
		return
	}

	m, err := c.matrixService.Matrix(ctx.Request.Context(), week, year)
	if errors.Is(err, service.ErrNoData) {
		ctx.JSON(http.StatusNotFound, gin.H{
			"error":   "No data",
			"message": fmt.Sprintf("No weekly data stored for week %d of %d", week, year),
		})
		return
	}
	if err != nil {
		c.logger.Error("failed to build matrix",
			"week", week,
			"year", year,
			"error", err.Error(),
			"latency_ms", time.Since(startTime).Milliseconds(),
		)
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Internal server error",
			"message": "Failed to build matrix",
		})
		return
	}

	ctx.JSON(http.StatusOK, matrixBody(*m))
}

// GetHistoricWeeks handles GET /v1/historic/weeks
func (c *DairyController) GetHistoricWeeks(ctx *gin.Context) {
	weeks, err := c.matrixService.HistoricWeeks(ctx.Request.Context())
	if err != nil {
		c.logger.Error("failed to list historic weeks", "error", err.Error())
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Internal server error",
			"message": "Failed to list historic weeks",
		})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"weeks": weeks})
}

func matrixBody(m matrix.Matrix) gin.H {
	return gin.H{
		"week":    m.Week,
		"year":    m.Year,
		"columns": matrix.Columns,
		"rows":    m.Rows,
		"totals":  m.Totals,
	}
}

// respondIngest maps an ingestion outcome to a status code. The result is
// always returned so stats and logs survive a failure.
func (c *DairyController) respondIngest(ctx *gin.Context, result *service.IngestResult, err error, startTime time.Time) {
	latency := time.Since(startTime)
	var verr *ingest.ValidationError
	switch {
	case err == nil:
		ctx.JSON(http.StatusOK, result)
	case errors.As(err, &verr):
		c.logger.Warn("spreadsheet rejected",
			"errors", verr.Messages,
			"latency_ms", latency.Milliseconds(),
		)
		ctx.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":   "Invalid spreadsheet",
			"message": verr.Error(),
			"errors":  verr.Messages,
			"result":  result,
		})
	default:
		c.logger.Error("ingestion failed",
			"error", err.Error(),
			"latency_ms", latency.Milliseconds(),
		)
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Ingestion failed",
			"message": err.Error(),
			"result":  result,
		})
	}
}

func (c *DairyController) openUpload(ctx *gin.Context) (multipart.File, *multipart.FileHeader, bool) {
	header, err := ctx.FormFile("file")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"error":   "Missing file",
			"message": "a spreadsheet must be sent in the 'file' form field",
		})
		return nil, nil, false
	}
	file, err := header.Open()
	if err != nil {
		c.logger.Error("failed to open upload", "filename", header.Filename, "error", err.Error())
		ctx.JSON(http.StatusBadRequest, gin.H{
			"error":   "Unreadable file",
			"message": "the uploaded file could not be opened",
		})
		return nil, nil, false
	}
	return file, header, true
}

func (c *DairyController) weeklyOptions(ctx *gin.Context) (ingest.WeeklyOptions, bool) {
	week, ok := c.intParam(ctx, ctx.PostForm("week"), "week", 1, 53)
	if !ok {
		return ingest.WeeklyOptions{}, false
	}
	year, ok := c.intParam(ctx, ctx.PostForm("year"), "year", 1900, 9999)
	if !ok {
		return ingest.WeeklyOptions{}, false
	}
	return ingest.WeeklyOptions{Week: week, Year: year}, true
}

// intParam parses an optional bounded integer; empty means 0
func (c *DairyController) intParam(ctx *gin.Context, raw, name string, lo, hi int) (int, bool) {
	if raw == "" {
		return 0, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < lo || v > hi {
		c.logger.Warn("invalid parameter", name, raw)
		ctx.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid " + name,
			"message": fmt.Sprintf("%s must be an integer between %d and %d", name, lo, hi),
		})
		return 0, false
	}
	return v, true
}
