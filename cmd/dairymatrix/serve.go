package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"dairy-matrix/internal/controller"
	"dairy-matrix/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Serve the upload and report API:

  POST /v1/uploads/weekly           weekly report (multipart file, optional week/year)
  POST /v1/uploads/weekly/preview   long table and matrix, nothing stored
  POST /v1/uploads/historic         historical report
  GET  /v1/matrix?week=&year=       matrix of a stored week, latest by default
  GET  /v1/historic/weeks           stored historical weeks
  GET  /metrics, /healthz`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	router := newRouter(a)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       time.Duration(a.cfg.Server.ReadTimeoutS) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("server listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newRouter(a *app) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.StructuredLoggingMiddleware(a.logger, a.metrics))
	router.MaxMultipartMemory = int64(a.cfg.Server.MaxUploadMB) << 20

	ctrl := controller.NewDairyController(a.ingestService(), a.matrixService(), a.logger)
	ctrl.RegisterRoutes(router.Group("/v1"))

	router.GET("/metrics", a.metrics.Handler())
	router.GET("/healthz", func(c *gin.Context) {
		sqlDB, err := a.db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error":   "Database unavailable",
				"message": err.Error(),
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return router
}
