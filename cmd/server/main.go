package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/ldevries/kamervote/docs"
	"github.com/ldevries/kamervote/internal/adapters"
	"github.com/ldevries/kamervote/internal/analysis"
	"github.com/ldevries/kamervote/internal/database"
	"github.com/ldevries/kamervote/internal/errors"
	"github.com/ldevries/kamervote/internal/export"
	"github.com/ldevries/kamervote/internal/middleware"
	"github.com/ldevries/kamervote/internal/monitoring"
	"github.com/ldevries/kamervote/internal/security"
	"github.com/ldevries/kamervote/internal/types"
)

// signerSource fetches co-signer relationships of motion documents
type signerSource interface {
	FetchCoSigners(ctx context.Context, from, to time.Time) ([]types.SignatureRecord, error)
}

// server holds the wired pipeline and the result of the most recent study
// run. Derived artifacts live in memory per run; only raw fetched votes are
// persisted.
type server struct {
	analyzer    *analysis.Analyzer
	voteService *database.VoteService
	signers     signerSource
	config      *analysis.StudyConfig
	metrics     *monitoring.Metrics
	logger      *monitoring.Logger

	mu         sync.RWMutex
	lastResult *analysis.StudyResult
}

func main() {
	// Structured logging setup
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Local overrides from .env, if present
	if err := godotenv.Load(); err == nil {
		slog.Info("Loaded environment from .env")
	}

	// Configuration from environment with defaults
	dataDir := getEnvOrDefault("DATA_DIR", "./data")
	studyPath := os.Getenv("STUDY_CONFIG")
	baseURL := getEnvOrDefault("TK_BASE_URL", adapters.DefaultBaseURL)
	port := getEnvOrDefault("PORT", "8080")

	studyConfig := analysis.DefaultStudyConfig()
	if studyPath != "" {
		loaded, err := analysis.LoadStudyConfig(studyPath)
		if err != nil {
			slog.Error("Failed to load study config", "path", studyPath, "error", err)
			os.Exit(1)
		}
		studyConfig = loaded
	}

	db, err := database.NewDB(dataDir)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	appLogger := monitoring.NewLogger()
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		appLogger.SetLevel(parseLogLevel(level))
	}
	appMetrics := monitoring.NewMetrics()

	repo := database.NewRepository(db)
	adapter := adapters.NewTweedeKamerAdapterWithBaseURL(baseURL, appLogger)
	adapter.SetMetrics(appMetrics)
	voteService := database.NewVoteService(repo, adapter, appLogger)
	analyzer := analysis.NewAnalyzer(studyConfig, appLogger)

	srv := &server{
		analyzer:    analyzer,
		voteService: voteService,
		signers:     adapter,
		config:      studyConfig,
		metrics:     appMetrics,
		logger:      appLogger,
	}

	r := gin.New()

	r.Use(monitoring.RequestIDMiddleware())
	r.Use(monitoring.MonitoringMiddleware(appMetrics, appLogger))
	r.Use(security.HeadersMiddleware())
	r.Use(middleware.Compression())
	r.Use(errors.ErrorHandler())
	r.Use(errors.RecoveryHandler())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"http://localhost:3000", "http://localhost:5173"}
	r.Use(cors.New(corsConfig))

	srv.registerRoutes(r)

	httpServer := &http.Server{
		Addr:              ":" + port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		appLogger.SystemLogger("startup", fmt.Sprintf("listening on :%s with %d periods", port, len(studyConfig.Periods)))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.SystemLogger("shutdown", "signal received")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		slog.Error("Forced shutdown", "error", err)
	}
}

func (s *server) registerRoutes(r *gin.Engine) {
	r.GET("/health", s.handleHealth)
	r.GET("/metrics", s.handleMetrics)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := r.Group("/api/v1")
	{
		api.GET("/periods", s.handlePeriods)
		api.POST("/analyze", s.handleAnalyze)
		api.GET("/networks/:label", s.handleNetwork)
		api.GET("/networks/:label/edges.csv", s.handleEdgeListExport)
		api.GET("/networks/:label/nodes.csv", s.handleNodeListExport)
		api.GET("/comparison", s.handleComparison)
		api.GET("/comparison.csv", s.handleComparisonExport)
		api.GET("/coauthoring/:label", s.handleCoAuthoring)
		api.GET("/coauthoring/:label/signatures.csv", s.handleSignatureExport)
	}
}

// handleHealth reports service status
func (s *server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   "1.0.0",
	})
}

// handleMetrics exposes application metrics
func (s *server) handleMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"application": s.metrics.GetSummary(),
		"memory":      monitoring.ReadMemoryStats(),
	})
}

// handlePeriods lists the configured aggregation windows
func (s *server) handlePeriods(c *gin.Context) {
	periods, err := s.config.PeriodList()
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"periods": periods})
}

// handleAnalyze runs the full study: fetch (or read cached) votes per
// period, aggregate, build networks, and compare
func (s *server) handleAnalyze(c *gin.Context) {
	var req types.AnalyzeRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.Error(errors.NewValidationError("invalid analyze request", err.Error()))
			return
		}
	} else {
		req.Normalize = s.config.Normalize
	}

	if req.Refetch {
		periods, err := s.config.PeriodList()
		if err != nil {
			c.Error(err)
			return
		}
		for _, period := range periods {
			if _, err := s.voteService.Refetch(c.Request.Context(), period.Start, period.End); err != nil {
				s.logger.Warn("Refetch incomplete", "period", period.Label, "error", err.Error())
			}
		}
	}

	runID := uuid.New().String()
	result, err := s.analyzer.AnalyzeStudy(c.Request.Context(), runID, s.voteService, req.Normalize)
	if err != nil {
		c.Error(err)
		return
	}

	s.mu.Lock()
	s.lastResult = result
	s.mu.Unlock()

	s.metrics.IncrementStudyRun()

	c.JSON(http.StatusOK, result)
}

// latestPeriodResult looks up a period in the most recent run
func (s *server) latestPeriodResult(label string) (*analysis.PeriodResult, *errors.AppError) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.lastResult == nil {
		return nil, errors.NewValidationError("no study run available; POST /api/v1/analyze first")
	}

	periodResult := s.lastResult.PeriodResultByLabel(label)
	if periodResult == nil {
		return nil, errors.NewNotFoundError("period", label)
	}

	return periodResult, nil
}

// handleNetwork returns the full network for one period
func (s *server) handleNetwork(c *gin.Context) {
	periodResult, appErr := s.latestPeriodResult(c.Param("label"))
	if appErr != nil {
		c.Error(appErr)
		return
	}

	c.JSON(http.StatusOK, periodResult)
}

// handleEdgeListExport streams the period edge list as CSV
func (s *server) handleEdgeListExport(c *gin.Context) {
	periodResult, appErr := s.latestPeriodResult(c.Param("label"))
	if appErr != nil {
		c.Error(appErr)
		return
	}

	s.writeCSV(c, fmt.Sprintf("edges_%s.csv", periodResult.Period.Label), func() error {
		return export.WriteEdgeList(c.Writer, periodResult.Network)
	})
}

// handleNodeListExport streams the period node attributes as CSV
func (s *server) handleNodeListExport(c *gin.Context) {
	periodResult, appErr := s.latestPeriodResult(c.Param("label"))
	if appErr != nil {
		c.Error(appErr)
		return
	}

	s.writeCSV(c, fmt.Sprintf("nodes_%s.csv", periodResult.Period.Label), func() error {
		return export.WriteNodeList(c.Writer, periodResult.Network)
	})
}

// handleComparison returns the cross-period statistics table
func (s *server) handleComparison(c *gin.Context) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.lastResult == nil {
		c.Error(errors.NewValidationError("no study run available; POST /api/v1/analyze first"))
		return
	}

	c.JSON(http.StatusOK, s.lastResult.Comparison)
}

// handleComparisonExport streams the comparison table as CSV
func (s *server) handleComparisonExport(c *gin.Context) {
	s.mu.RLock()
	result := s.lastResult
	s.mu.RUnlock()

	if result == nil {
		c.Error(errors.NewValidationError("no study run available; POST /api/v1/analyze first"))
		return
	}

	s.writeCSV(c, "comparison.csv", func() error {
		return export.WriteComparison(c.Writer, result.Comparison)
	})
}

// periodByLabel resolves a configured period by its label
func (s *server) periodByLabel(label string) (types.Period, error) {
	periods, err := s.config.PeriodList()
	if err != nil {
		return types.Period{}, err
	}

	for _, period := range periods {
		if period.Label == label {
			return period, nil
		}
	}

	return types.Period{}, errors.NewNotFoundError("period", label)
}

// fetchSignatures fetches the co-signer relationships of a period. Unlike
// vote windows these are not cached: the document set is small next to the
// vote set and the endpoint is hit rarely. A failed fetch with partial rows
// is served with a warning, matching the vote fetch behavior.
func (s *server) fetchSignatures(c *gin.Context) (types.Period, []types.SignatureRecord, bool) {
	period, err := s.periodByLabel(c.Param("label"))
	if err != nil {
		c.Error(err)
		return types.Period{}, nil, false
	}

	records, fetchErr := s.signers.FetchCoSigners(c.Request.Context(), period.Start, period.End)
	if fetchErr != nil {
		if len(records) == 0 {
			c.Error(fetchErr)
			return types.Period{}, nil, false
		}
		s.logger.Warn("Co-signer fetch incomplete", "period", period.Label, "error", fetchErr.Error())
	}

	return period, records, true
}

// handleCoAuthoring returns the motion co-signers of a configured period
func (s *server) handleCoAuthoring(c *gin.Context) {
	period, records, ok := s.fetchSignatures(c)
	if !ok {
		return
	}

	motions := make(map[string]struct{})
	parties := make(map[string]struct{})
	for _, record := range records {
		motions[record.MotionID] = struct{}{}
		parties[record.PartyID] = struct{}{}
	}

	c.JSON(http.StatusOK, gin.H{
		"period":          period,
		"motion_count":    len(motions),
		"party_count":     len(parties),
		"signature_count": len(records),
		"signatures":      records,
	})
}

// handleSignatureExport streams the period co-signer list as CSV
func (s *server) handleSignatureExport(c *gin.Context) {
	period, records, ok := s.fetchSignatures(c)
	if !ok {
		return
	}

	s.writeCSV(c, fmt.Sprintf("signatures_%s.csv", period.Label), func() error {
		return export.WriteSignatureList(c.Writer, records)
	})
}

// writeCSV sets download headers and runs the writer
func (s *server) writeCSV(c *gin.Context, filename string, write func() error) {
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	if err := write(); err != nil {
		s.logger.Error("CSV export failed", "filename", filename, "error", err.Error())
	}
}

// getEnvOrDefault returns the environment variable or a fallback
func getEnvOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
