// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"stroke-pipeline/internal/cases"
	"stroke-pipeline/internal/formatters"
	"stroke-pipeline/internal/formatters/shared"
	"stroke-pipeline/internal/logging"
	"stroke-pipeline/internal/pipeline"
	"stroke-pipeline/internal/record"
	"stroke-pipeline/internal/sources"
	"stroke-pipeline/internal/version"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	// Import formatters to register them
	_ "stroke-pipeline/internal/formatters/csv"
	_ "stroke-pipeline/internal/formatters/json"
	_ "stroke-pipeline/internal/formatters/junit"
	_ "stroke-pipeline/internal/formatters/text"
	_ "stroke-pipeline/internal/formatters/yaml"
)

const (
	maxBodyBytes        = 1 << 20
	defaultHistoryLimit = 20
	shutdownTimeout     = 5 * time.Second
)

// HealthChecker is implemented by stores that can report connectivity
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Server exposes the pipeline over HTTP
type Server struct {
	runner      *pipeline.Runner
	corsOrigins []string
	logger      *slog.Logger
}

// CaseSummary is one entry of the case list
type CaseSummary struct {
	ID         string  `json:"id"`
	Slug       string  `json:"slug,omitempty"`
	Title      string  `json:"title"`
	Schema     string  `json:"schema"`
	Similarity float64 `json:"similarity"`
}

// CaseDetail is a case with its source documents and extraction output
type CaseDetail struct {
	CaseSummary
	Note       string             `json:"note"`
	Report     string             `json:"report"`
	Image      *sources.ImageInfo `json:"image,omitempty"`
	ImageError string             `json:"image_error,omitempty"`
	Extraction map[string]any     `json:"extraction"`
	Columns    []string           `json:"columns"`
}

type evaluateFunc func(ctx context.Context, caseID string, src pipeline.Sources) (*pipeline.Run, error)

type errorResponse struct {
	Error string `json:"error"`
}

// NewServer creates a server over a runner. corsOrigins may be empty, in
// which case any origin is allowed.
func NewServer(runner *pipeline.Runner, corsOrigins []string) *Server {
	return &Server{
		runner:      runner,
		corsOrigins: corsOrigins,
		logger:      logging.New("web"),
	}
}

// Router builds the gin engine with every route registered
func (s *Server) Router() *gin.Engine {
	origins := s.corsOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	router := gin.New()
	router.Use(
		requestLogger(s.logger),
		gin.Recovery(),
		limitBodySize(maxBodyBytes),
		cors.New(cors.Config{
			AllowOrigins: origins,
			AllowMethods: []string{"GET", "POST", "OPTIONS"},
			AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
			MaxAge:       12 * time.Hour,
		}),
	)

	router.GET("/healthz", s.handleHealth)
	router.GET("/readyz", s.handleReady)

	api := router.Group("/api")
	api.GET("/formats", s.handleFormats)
	api.GET("/cases", s.handleCases)
	api.GET("/cases/:id", s.handleCase)
	api.GET("/cases/:id/run", s.handlePreview)
	api.POST("/cases/:id/run", s.handleRun)
	api.GET("/cases/:id/export", s.handleExport)
	api.GET("/cases/:id/history", s.handleHistory)
	return router
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully
func (s *Server) Serve(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", slog.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(c *gin.Context) {
	info := version.Full()
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "stroke-pipeline",
		"version":   info["version"],
		"build_info": gin.H{
			"commit":     info["commit"],
			"build_date": info["buildDate"],
			"go_version": info["goVersion"],
			"platform":   info["platform"],
		},
	})
}

func (s *Server) handleReady(c *gin.Context) {
	checker, ok := s.runner.Store().(HealthChecker)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "store": "disabled"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := checker.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "degraded",
			"store":  fmt.Sprintf("unhealthy: %v", err),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "store": "ok"})
}

func (s *Server) handleFormats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"formats": formatters.GetSupportedFormats()})
}

func (s *Server) handleCases(c *gin.Context) {
	all := s.runner.Catalog().Cases
	out := make([]CaseSummary, 0, len(all))
	for _, cs := range all {
		out = append(out, summarize(cs))
	}
	c.JSON(http.StatusOK, gin.H{"cases": out})
}

func (s *Server) handleCase(c *gin.Context) {
	cs, err := s.runner.Catalog().Lookup(c.Param("id"))
	if err != nil {
		s.sendError(c, err)
		return
	}

	detail := CaseDetail{
		CaseSummary: summarize(cs),
		Note:        cs.Note,
		Report:      cs.Report,
		Extraction:  cs.Extraction.Plain(),
		Columns:     cs.Schema().Order(cs.Extraction),
	}
	if cs.Image != "" {
		info, err := sources.Image(sources.ResolveAsset(s.runner.AssetsDir(), cs.Image))
		if err != nil {
			detail.ImageError = err.Error()
		} else {
			detail.Image = info
		}
	}
	c.JSON(http.StatusOK, detail)
}

// handlePreview evaluates a case without recording it
func (s *Server) handlePreview(c *gin.Context) {
	s.respondRun(c, s.runner.Evaluate)
}

// handleRun evaluates a case, records it in the audit store and requests
// clinician review when needed
func (s *Server) handleRun(c *gin.Context) {
	s.respondRun(c, s.runner.Run)
}

func (s *Server) respondRun(c *gin.Context, eval evaluateFunc) {
	run, err := eval(c.Request.Context(), c.Param("id"), pipeline.Sources{})
	if err != nil {
		s.sendError(c, err)
		return
	}
	verbose, _ := strconv.ParseBool(c.Query("verbose"))
	c.JSON(http.StatusOK, shared.ConvertRun(run, formatters.FormatterOptions{Verbose: verbose, NoColor: true}))
}

func (s *Server) handleExport(c *gin.Context) {
	format := c.DefaultQuery("format", "csv")
	if _, ok := formatters.Get(format); !ok {
		c.JSON(http.StatusBadRequest, errorResponse{
			Error: fmt.Sprintf("unsupported format '%s'", format),
		})
		return
	}

	run, err := s.runner.Evaluate(c.Request.Context(), c.Param("id"), pipeline.Sources{})
	if err != nil {
		s.sendError(c, err)
		return
	}

	verbose, _ := strconv.ParseBool(c.Query("verbose"))
	content, mimeType, filename, err := formatters.ExportForWeb(format, []*pipeline.Run{run},
		formatters.FormatterOptions{Verbose: verbose, NoColor: true})
	if err != nil {
		s.sendError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Data(http.StatusOK, mimeType, []byte(content))
}

func (s *Server) handleHistory(c *gin.Context) {
	cs, err := s.runner.Catalog().Lookup(c.Param("id"))
	if err != nil {
		s.sendError(c, err)
		return
	}
	st := s.runner.Store()
	if st == nil {
		c.JSON(http.StatusNotFound, errorResponse{Error: "audit store is not configured"})
		return
	}

	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, errorResponse{Error: "limit must be a positive integer"})
			return
		}
		limit = n
	}

	entries, err := st.List(c.Request.Context(), cs.ID, limit)
	if err != nil {
		s.sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"case_id": cs.ID, "entries": entries})
}

// sendError maps domain errors to status codes
func (s *Server) sendError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, record.ErrUnknownCase):
		status = http.StatusNotFound
	case errors.Is(err, record.ErrIncompleteRecord), errors.Is(err, record.ErrValidationInapplicable):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", slog.String("path", c.Request.URL.Path), slog.Any("error", err))
	}
	c.JSON(status, errorResponse{Error: err.Error()})
}

func summarize(cs *cases.Case) CaseSummary {
	return CaseSummary{
		ID:         cs.ID,
		Slug:       cs.Slug,
		Title:      cs.Title,
		Schema:     cs.Schema().Name,
		Similarity: cs.Similarity,
	}
}

func limitBodySize(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("elapsed", time.Since(start)))
	}
}
