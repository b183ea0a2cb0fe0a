package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"

	"github.com/fd1az/arbsim/business/arbitrage/app"
	"github.com/fd1az/arbsim/business/arbitrage/domain"
	marketDomain "github.com/fd1az/arbsim/business/market/domain"
	"github.com/fd1az/arbsim/internal/apperror"
)

const maxLimit = 1000

type quotesResponse struct {
	Seq    uint64               `json:"seq"`
	At     time.Time            `json:"at"`
	Quotes []marketDomain.Quote `json:"quotes"`
}

type historyResponse struct {
	Venue  marketDomain.VenueID        `json:"venue"`
	Symbol marketDomain.Symbol         `json:"symbol"`
	Points []marketDomain.HistoryPoint `json:"points"`
}

type statsResponse struct {
	Ledger    app.LedgerStats    `json:"ledger"`
	Scheduler app.SchedulerStats `json:"scheduler"`
}

// GetQuotes handles GET /v1/quotes.
func (h *APIHandler) GetQuotes(c *gin.Context) {
	snap := h.engine.Quotes()
	c.JSON(http.StatusOK, quotesResponse{
		Seq:    snap.Seq,
		At:     snap.At,
		Quotes: snap.Quotes(),
	})
}

// GetHistory handles GET /v1/quotes/:venue/:symbol/history. The symbol is
// written with a dash in the path, e.g. EUR-USD.
func (h *APIHandler) GetHistory(c *gin.Context) {
	venue := marketDomain.VenueID(c.Param("venue"))
	symbol := marketDomain.Symbol(strings.ToUpper(strings.ReplaceAll(c.Param("symbol"), "-", "/")))

	points, err := h.engine.History(venue, symbol)
	if err != nil {
		h.handleError(c, err)
		return
	}

	limit, err := parseLimit(c)
	if err != nil {
		h.handleError(c, err)
		return
	}
	if limit > 0 && len(points) > limit {
		points = points[len(points)-limit:]
	}

	c.JSON(http.StatusOK, historyResponse{Venue: venue, Symbol: symbol, Points: points})
}

// GetOpportunities handles GET /v1/opportunities. Results are ranked by
// margin, best first.
func (h *APIHandler) GetOpportunities(c *gin.Context) {
	limit, err := parseLimit(c)
	if err != nil {
		h.handleError(c, err)
		return
	}
	opps := h.engine.Opportunities()
	if limit > 0 && len(opps) > limit {
		opps = opps[:limit]
	}
	c.JSON(http.StatusOK, opps)
}

// ExecuteOpportunity handles POST /v1/opportunities/:id/execute.
func (h *APIHandler) ExecuteOpportunity(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), DefaultTimeout)
	defer cancel()

	ctx, span := h.tracer.StartSpanFromContext(ctx, "httpapi.execute")
	defer span.End()

	id, err := domain.ParseOpportunityID(c.Param("id"))
	if err != nil {
		appErr := apperror.Validation(apperror.CodeInvalidInput, "opportunity id must be a uuid")
		span.NoticeError(appErr)
		h.handleError(c, appErr)
		return
	}
	span.SetAttributes(attribute.String("opportunity.id", string(id)))

	if !h.limiter.Allow(c.ClientIP()) {
		appErr := apperror.New(apperror.CodeRateLimitExceeded, apperror.WithContext("execute"))
		span.NoticeError(appErr)
		h.handleError(c, appErr)
		return
	}

	exec, err := h.engine.ExecuteOpportunity(ctx, id)
	if err != nil {
		span.NoticeError(err)
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"buy":  exec.Buy,
		"sell": exec.Sell,
		"pnl":  exec.RealizedPnL(),
	})
}

// GetTrades handles GET /v1/trades. Newest trades come last.
func (h *APIHandler) GetTrades(c *gin.Context) {
	limit, err := parseLimit(c)
	if err != nil {
		h.handleError(c, err)
		return
	}
	trades := h.engine.Trades()
	if limit > 0 && len(trades) > limit {
		trades = trades[len(trades)-limit:]
	}
	c.JSON(http.StatusOK, trades)
}

// GetInsights handles GET /v1/insights.
func (h *APIHandler) GetInsights(c *gin.Context) {
	c.JSON(http.StatusOK, h.engine.Insights())
}

// GetStats handles GET /v1/stats.
func (h *APIHandler) GetStats(c *gin.Context) {
	c.JSON(http.StatusOK, statsResponse{
		Ledger:    h.engine.Stats(),
		Scheduler: h.engine.SchedulerStats(),
	})
}

func parseLimit(c *gin.Context) (int, error) {
	raw := strings.TrimSpace(c.Query("limit"))
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 || limit > maxLimit {
		return 0, apperror.Validation(apperror.CodeInvalidInput, "limit must be between 0 and 1000")
	}
	return limit, nil
}

// handleError logs the error and sends the coded error body.
func (h *APIHandler) handleError(c *gin.Context, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		appErr = apperror.Internal(apperror.CodeInternalError, c.FullPath(), err)
	}
	status := appErr.StatusCode
	if status == 0 {
		status = http.StatusInternalServerError
	}

	args := append([]any{
		"request_id", c.GetString(RequestIDContextKey),
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"status_code", status,
	}, appErr.LogArgs()...)

	if status >= http.StatusInternalServerError {
		h.logger.Error(c.Request.Context(), "api error", args...)
	} else {
		h.logger.Debug(c.Request.Context(), "api request rejected", args...)
	}

	c.JSON(status, appErr.ToResponse())
}
