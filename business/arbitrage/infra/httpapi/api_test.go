package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/arbsim/business/arbitrage/app"
	"github.com/fd1az/arbsim/business/arbitrage/domain"
	marketDomain "github.com/fd1az/arbsim/business/market/domain"
	"github.com/fd1az/arbsim/internal/apperror"
	"github.com/fd1az/arbsim/internal/logger"
)

// MockEngine implements Engine for testing
type MockEngine struct {
	mock.Mock
}

func (m *MockEngine) Quotes() *marketDomain.Snapshot {
	return m.Called().Get(0).(*marketDomain.Snapshot)
}

func (m *MockEngine) History(venue marketDomain.VenueID, symbol marketDomain.Symbol) ([]marketDomain.HistoryPoint, error) {
	args := m.Called(venue, symbol)
	return args.Get(0).([]marketDomain.HistoryPoint), args.Error(1)
}

func (m *MockEngine) Opportunities() []domain.Opportunity {
	return m.Called().Get(0).([]domain.Opportunity)
}

func (m *MockEngine) ExecuteOpportunity(ctx context.Context, id domain.OpportunityID) (domain.Execution, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Execution), args.Error(1)
}

func (m *MockEngine) Trades() []domain.TradeRecord {
	return m.Called().Get(0).([]domain.TradeRecord)
}

func (m *MockEngine) Insights() []domain.Insight {
	return m.Called().Get(0).([]domain.Insight)
}

func (m *MockEngine) Stats() app.LedgerStats {
	return m.Called().Get(0).(app.LedgerStats)
}

func (m *MockEngine) SchedulerStats() app.SchedulerStats {
	return m.Called().Get(0).(app.SchedulerStats)
}

func (m *MockEngine) Subscribe(buffer int) (<-chan app.TickResult, func()) {
	args := m.Called(buffer)
	return args.Get(0).(<-chan app.TickResult), args.Get(1).(func())
}

func (m *MockEngine) SubscribeInsights(buffer int) (<-chan domain.Insight, func()) {
	args := m.Called(buffer)
	return args.Get(0).(<-chan domain.Insight), args.Get(1).(func())
}

func setupHandler(t *testing.T, engine Engine, cfg Config) http.Handler {
	t.Helper()
	gin.SetMode(gin.TestMode)
	return NewAPIHandler(engine, cfg, logger.NewNop()).Handler()
}

func do(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) apperror.Code {
	t.Helper()
	var body struct {
		Error struct {
			Code apperror.Code `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error.Code
}

func TestGetQuotes(t *testing.T) {
	engine := new(MockEngine)
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	engine.On("Quotes").Return(marketDomain.NewSnapshot(7, at, []marketDomain.Quote{
		{Venue: "lmax", Symbol: "EUR/USD", Bid: 1.0849, Ask: 1.0851, At: at},
	}))

	rec := do(t, setupHandler(t, engine, DefaultConfig()), http.MethodGet, "/v1/quotes")
	require.Equal(t, http.StatusOK, rec.Code)

	var body quotesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, uint64(7), body.Seq)
	require.Len(t, body.Quotes, 1)
	assert.Equal(t, marketDomain.VenueID("lmax"), body.Quotes[0].Venue)
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeaderKey))
	engine.AssertExpectations(t)
}

func TestGetHistory(t *testing.T) {
	points := []marketDomain.HistoryPoint{
		{Bid: 1.1, Ask: 1.2},
		{Bid: 1.3, Ask: 1.4},
	}

	tests := []struct {
		name       string
		path       string
		setup      func(*MockEngine)
		wantStatus int
		wantCode   apperror.Code
		wantPoints int
	}{
		{
			name: "dash symbol",
			path: "/v1/quotes/lmax/eur-usd/history",
			setup: func(m *MockEngine) {
				m.On("History", marketDomain.VenueID("lmax"), marketDomain.Symbol("EUR/USD")).Return(points, nil)
			},
			wantStatus: http.StatusOK,
			wantPoints: 2,
		},
		{
			name: "limit keeps newest",
			path: "/v1/quotes/lmax/EUR-USD/history?limit=1",
			setup: func(m *MockEngine) {
				m.On("History", marketDomain.VenueID("lmax"), marketDomain.Symbol("EUR/USD")).Return(points, nil)
			},
			wantStatus: http.StatusOK,
			wantPoints: 1,
		},
		{
			name: "unknown venue",
			path: "/v1/quotes/nyse/EUR-USD/history",
			setup: func(m *MockEngine) {
				m.On("History", marketDomain.VenueID("nyse"), marketDomain.Symbol("EUR/USD")).
					Return([]marketDomain.HistoryPoint(nil), apperror.New(apperror.CodeUnknownVenue, apperror.WithContext("nyse")))
			},
			wantStatus: http.StatusNotFound,
			wantCode:   apperror.CodeUnknownVenue,
		},
		{
			name: "bad limit",
			path: "/v1/quotes/lmax/EUR-USD/history?limit=abc",
			setup: func(m *MockEngine) {
				m.On("History", marketDomain.VenueID("lmax"), marketDomain.Symbol("EUR/USD")).Return(points, nil)
			},
			wantStatus: http.StatusBadRequest,
			wantCode:   apperror.CodeInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := new(MockEngine)
			tt.setup(engine)

			rec := do(t, setupHandler(t, engine, DefaultConfig()), http.MethodGet, tt.path)
			require.Equal(t, tt.wantStatus, rec.Code)

			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, decodeError(t, rec))
				return
			}
			var body historyResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Len(t, body.Points, tt.wantPoints)
			assert.Equal(t, points[len(points)-1], body.Points[len(body.Points)-1])
		})
	}
}

func TestGetOpportunities_Limit(t *testing.T) {
	engine := new(MockEngine)
	engine.On("Opportunities").Return([]domain.Opportunity{
		{ID: "a", MarginPct: 0.3},
		{ID: "b", MarginPct: 0.2},
		{ID: "c", MarginPct: 0.1},
	})
	h := setupHandler(t, engine, DefaultConfig())

	rec := do(t, h, http.MethodGet, "/v1/opportunities?limit=2")
	require.Equal(t, http.StatusOK, rec.Code)

	var opps []domain.Opportunity
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &opps))
	require.Len(t, opps, 2)
	assert.Equal(t, domain.OpportunityID("a"), opps[0].ID)

	rec = do(t, h, http.MethodGet, "/v1/opportunities?limit=5000")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExecuteOpportunity(t *testing.T) {
	id := domain.OpportunityID(domain.NewID())
	exec := domain.Execution{
		Buy:  domain.TradeRecord{ID: "b", OpportunityID: id, Side: domain.SideBuy, Price: 1.0, Volume: 10},
		Sell: domain.TradeRecord{ID: "s", OpportunityID: id, Side: domain.SideSell, Price: 1.5, Volume: 10},
	}

	tests := []struct {
		name       string
		id         string
		setup      func(*MockEngine)
		wantStatus int
		wantCode   apperror.Code
	}{
		{
			name: "success",
			id:   string(id),
			setup: func(m *MockEngine) {
				m.On("ExecuteOpportunity", mock.Anything, id).Return(exec, nil).Once()
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "stale",
			id:   string(id),
			setup: func(m *MockEngine) {
				m.On("ExecuteOpportunity", mock.Anything, id).
					Return(domain.Execution{}, domain.NewStaleOpportunityError(id)).Once()
			},
			wantStatus: http.StatusConflict,
			wantCode:   apperror.CodeStaleOpportunity,
		},
		{
			name:       "malformed id",
			id:         "not-a-uuid",
			setup:      func(*MockEngine) {},
			wantStatus: http.StatusBadRequest,
			wantCode:   apperror.CodeInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := new(MockEngine)
			tt.setup(engine)

			rec := do(t, setupHandler(t, engine, DefaultConfig()), http.MethodPost, "/v1/opportunities/"+tt.id+"/execute")
			require.Equal(t, tt.wantStatus, rec.Code)
			engine.AssertExpectations(t)

			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, decodeError(t, rec))
				return
			}
			var body struct {
				Buy  domain.TradeRecord `json:"buy"`
				Sell domain.TradeRecord `json:"sell"`
				PnL  decimal.Decimal    `json:"pnl"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, domain.SideBuy, body.Buy.Side)
			assert.Equal(t, domain.SideSell, body.Sell.Side)
			assert.Equal(t, id, body.Sell.OpportunityID)
			assert.Equal(t, "5", body.PnL.String())
		})
	}
}

func TestExecuteOpportunity_RateLimited(t *testing.T) {
	id := domain.OpportunityID(domain.NewID())
	engine := new(MockEngine)
	engine.On("ExecuteOpportunity", mock.Anything, id).
		Return(domain.Execution{}, domain.NewStaleOpportunityError(id)).Once()

	cfg := DefaultConfig()
	cfg.ExecuteRatePerSec = 0.001
	cfg.ExecuteBurst = 1
	h := setupHandler(t, engine, cfg)

	first := do(t, h, http.MethodPost, "/v1/opportunities/"+string(id)+"/execute")
	assert.Equal(t, http.StatusConflict, first.Code)

	second := do(t, h, http.MethodPost, "/v1/opportunities/"+string(id)+"/execute")
	require.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, apperror.CodeRateLimitExceeded, decodeError(t, second))
	engine.AssertExpectations(t)
}

func TestGetTradesInsightsStats(t *testing.T) {
	engine := new(MockEngine)
	engine.On("Trades").Return([]domain.TradeRecord{{ID: "t1"}, {ID: "t2"}, {ID: "t3"}})
	engine.On("Insights").Return([]domain.Insight{{ID: "i1", Kind: domain.InsightArbitrageCluster}})
	engine.On("Stats").Return(app.LedgerStats{
		Executions:  2,
		PnLBySymbol: map[marketDomain.Symbol]decimal.Decimal{"EUR/USD": decimal.RequireFromString("12.5")},
	})
	engine.On("SchedulerStats").Return(app.SchedulerStats{Ticks: 40, Overruns: 1, Skipped: 1})
	h := setupHandler(t, engine, DefaultConfig())

	rec := do(t, h, http.MethodGet, "/v1/trades?limit=2")
	require.Equal(t, http.StatusOK, rec.Code)
	var trades []domain.TradeRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &trades))
	require.Len(t, trades, 2)
	assert.Equal(t, "t3", trades[1].ID)

	rec = do(t, h, http.MethodGet, "/v1/insights")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ARBITRAGE_CLUSTER"`)

	rec = do(t, h, http.MethodGet, "/v1/stats")
	require.Equal(t, http.StatusOK, rec.Code)
	var stats statsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, uint64(2), stats.Ledger.Executions)
	assert.Equal(t, "12.5", stats.Ledger.PnLBySymbol["EUR/USD"].String())
	assert.Equal(t, uint64(40), stats.Scheduler.Ticks)
}

func TestRequestIDIsEchoed(t *testing.T) {
	engine := new(MockEngine)
	engine.On("Insights").Return([]domain.Insight{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/insights", nil)
	req.Header.Set(RequestIDHeaderKey, "req-42")
	setupHandler(t, engine, DefaultConfig()).ServeHTTP(rec, req)

	assert.Equal(t, "req-42", rec.Header().Get(RequestIDHeaderKey))
}

func TestFeed_StreamsTicksAndInsights(t *testing.T) {
	ticks := make(chan app.TickResult, 1)
	insights := make(chan domain.Insight, 1)

	engine := new(MockEngine)
	engine.On("Subscribe", 1).Return((<-chan app.TickResult)(ticks), func() {})
	engine.On("SubscribeInsights", 8).Return((<-chan domain.Insight)(insights), func() {})

	server := httptest.NewServer(setupHandler(t, engine, DefaultConfig()))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(server.URL, "http")+"/v1/ws", nil)
	require.NoError(t, err)
	defer conn.CloseNow()

	ticks <- app.TickResult{
		Seq:      3,
		Duration: 2 * time.Millisecond,
		Quotes: marketDomain.NewSnapshot(3, time.Now(), []marketDomain.Quote{
			{Venue: "lmax", Symbol: "EUR/USD", Bid: 1.0849, Ask: 1.0851},
		}),
	}

	var tick struct {
		Type string      `json:"type"`
		Data TickMessage `json:"data"`
	}
	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &tick))
	assert.Equal(t, MessageTick, tick.Type)
	assert.Equal(t, uint64(3), tick.Data.Seq)
	assert.Equal(t, 2.0, tick.Data.DurationMs)
	assert.Len(t, tick.Data.Quotes, 1)
	assert.Empty(t, tick.Data.Opportunities)

	insights <- domain.Insight{ID: "i9", Kind: domain.InsightVolatilitySpike}

	var insight struct {
		Type string         `json:"type"`
		Data domain.Insight `json:"data"`
	}
	_, data, err = conn.Read(ctx)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &insight))
	assert.Equal(t, MessageInsight, insight.Type)
	assert.Equal(t, "i9", insight.Data.ID)

	conn.Close(websocket.StatusNormalClosure, "")
	engine.AssertExpectations(t)
}
