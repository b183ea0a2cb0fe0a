// Package httpapi exposes the engine over HTTP: read-only views, the execute
// command and a WebSocket feed of ticks and insights.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/fd1az/arbsim/business/arbitrage/app"
	"github.com/fd1az/arbsim/business/arbitrage/domain"
	marketDomain "github.com/fd1az/arbsim/business/market/domain"
	"github.com/fd1az/arbsim/internal/apm"
	"github.com/fd1az/arbsim/internal/logger"
	"github.com/fd1az/arbsim/internal/ratelimit"
	"github.com/fd1az/arbsim/internal/wsconn"
)

const (
	DefaultTimeout      = 10 * time.Second
	RequestIDContextKey = "request_id"
	RequestIDHeaderKey  = "X-Request-ID"
	tracerName          = "github.com/fd1az/arbsim/business/arbitrage/infra/httpapi"
)

// Engine is the slice of the arbitrage engine the API serves.
type Engine interface {
	Quotes() *marketDomain.Snapshot
	History(venue marketDomain.VenueID, symbol marketDomain.Symbol) ([]marketDomain.HistoryPoint, error)
	Opportunities() []domain.Opportunity
	ExecuteOpportunity(ctx context.Context, id domain.OpportunityID) (domain.Execution, error)
	Trades() []domain.TradeRecord
	Insights() []domain.Insight
	Stats() app.LedgerStats
	SchedulerStats() app.SchedulerStats
	Subscribe(buffer int) (<-chan app.TickResult, func())
	SubscribeInsights(buffer int) (<-chan domain.Insight, func())
}

var _ Engine = (*app.Engine)(nil)

// Config holds API settings.
type Config struct {
	ExecuteRatePerSec float64
	ExecuteBurst      int
	WebSocket         wsconn.Config
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		ExecuteRatePerSec: 20,
		ExecuteBurst:      5,
		WebSocket:         wsconn.DefaultConfig(),
	}
}

// APIHandler handles HTTP requests using Gin framework.
type APIHandler struct {
	engine  Engine
	limiter *ratelimit.Keyed
	config  Config
	logger  logger.LoggerInterface
	tracer  apm.Tracer
}

// NewAPIHandler creates a new API handler.
func NewAPIHandler(engine Engine, cfg Config, log logger.LoggerInterface) *APIHandler {
	return &APIHandler{
		engine:  engine,
		limiter: ratelimit.NewKeyed(cfg.ExecuteRatePerSec, cfg.ExecuteBurst, 10*time.Minute),
		config:  cfg,
		logger:  log,
		tracer:  apm.NewTracer(tracerName),
	}
}

// SetupRoutes configures all API routes.
func (h *APIHandler) SetupRoutes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	router.Use(requestIDMiddleware())
	router.Use(h.loggerMiddleware())
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	v1 := router.Group("/v1")
	v1.GET("/quotes", h.GetQuotes)
	v1.GET("/quotes/:venue/:symbol/history", h.GetHistory)
	v1.GET("/opportunities", h.GetOpportunities)
	v1.POST("/opportunities/:id/execute", h.ExecuteOpportunity)
	v1.GET("/trades", h.GetTrades)
	v1.GET("/insights", h.GetInsights)
	v1.GET("/stats", h.GetStats)
	v1.GET("/ws", h.Feed)

	return router
}

// Handler returns the router wrapped with OTEL HTTP instrumentation.
func (h *APIHandler) Handler() http.Handler {
	return otelhttp.NewHandler(h.SetupRoutes(), "arbsim-api")
}

// StartServer serves the API in the background and returns the server for
// shutdown.
func (h *APIHandler) StartServer(port int) *http.Server {
	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(port),
		Handler:           h.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			h.logger.Error(context.Background(), "api server failed", "addr", srv.Addr, "error", err)
		}
	}()

	return srv
}
