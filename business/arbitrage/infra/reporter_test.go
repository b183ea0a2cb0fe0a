package infra

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/arbsim/business/arbitrage/app"
	"github.com/fd1az/arbsim/business/arbitrage/domain"
	marketDomain "github.com/fd1az/arbsim/business/market/domain"
	"github.com/fd1az/arbsim/internal/apperror"
	"github.com/fd1az/arbsim/internal/asset"
	"github.com/fd1az/arbsim/internal/logger"
)

type instrumentMap map[marketDomain.Symbol]marketDomain.Instrument

func (m instrumentMap) Instrument(symbol marketDomain.Symbol) (marketDomain.Instrument, error) {
	inst, ok := m[symbol]
	if !ok {
		return marketDomain.Instrument{}, apperror.New(apperror.CodeUnknownInstrument)
	}
	return inst, nil
}

func lookup(t *testing.T) instrumentMap {
	t.Helper()
	pair, err := asset.DefaultRegistry().ParsePair("USD/JPY")
	require.NoError(t, err)
	return instrumentMap{
		"USD/JPY": {Symbol: "USD/JPY", Pair: pair, BasePrice: 149.5, VolatilityIndex: 1, SpreadBps: 0.8},
	}
}

func sampleOpportunity(i int) domain.Opportunity {
	return domain.Opportunity{
		ID:         domain.OpportunityID(domain.NewID()),
		Symbol:     "USD/JPY",
		BuyVenue:   "lmax",
		SellVenue:  "ebs",
		BuyPrice:   149.5,
		SellPrice:  149.6,
		MarginPct:  0.0669 - float64(i)*0.001,
		Volume:     100_000,
		Risk:       domain.RiskMedium,
		Confidence: 0.8,
		CreatedAt:  time.Now(),
	}
}

func sampleExecution() domain.Execution {
	now := time.Now()
	return domain.Execution{
		Buy: domain.TradeRecord{
			ID: "b", OpportunityID: "opp-1", Symbol: "USD/JPY", Side: domain.SideBuy,
			Venue: "lmax", Price: 149.5, Volume: 1000, Timestamp: now,
		},
		Sell: domain.TradeRecord{
			ID: "s", OpportunityID: "opp-1", Symbol: "USD/JPY", Side: domain.SideSell,
			Venue: "ebs", Price: 149.6, Volume: 1000, Timestamp: now,
		},
	}
}

func TestConsoleReporter_Tick(t *testing.T) {
	var buf bytes.Buffer
	r := NewConsoleReporter(&buf, lookup(t))

	opps := make([]domain.Opportunity, 7)
	for i := range opps {
		opps[i] = sampleOpportunity(i)
	}

	require.NoError(t, r.Start(context.Background()))
	r.ReportTick(context.Background(), app.TickResult{Seq: 40, At: time.Now(), Opportunities: opps})

	out := buf.String()
	assert.Contains(t, out, "TICK #40")
	assert.Contains(t, out, "149.500")
	assert.Contains(t, out, "buy lmax → sell ebs")
	assert.Contains(t, out, "... 2 more")
	assert.Contains(t, out, "6.69 bps")
	assert.Contains(t, out, "exp 10000.00")
	assert.Equal(t, consoleTopN, strings.Count(out, "MEDIUM"))
}

func TestConsoleReporter_EmptyTick(t *testing.T) {
	var buf bytes.Buffer
	r := NewConsoleReporter(&buf, lookup(t))

	r.ReportTick(context.Background(), app.TickResult{Seq: 1})
	assert.Contains(t, buf.String(), "no opportunities above threshold")
}

func TestConsoleReporter_ExecutionAndInsight(t *testing.T) {
	var buf bytes.Buffer
	r := NewConsoleReporter(&buf, lookup(t))

	r.ReportExecution(context.Background(), sampleExecution())
	r.ReportInsight(context.Background(), domain.Insight{
		Kind:       domain.InsightSpreadWidening,
		Severity:   domain.SeverityWarning,
		Summary:    "USD/JPY spread on ebs widened",
		Confidence: 0.72,
		Timestamp:  time.Now(),
	})
	require.NoError(t, r.Stop())

	out := buf.String()
	assert.Contains(t, out, "EXECUTED USD/JPY")
	assert.Contains(t, out, "BUY  lmax")
	assert.Contains(t, out, "SELL ebs")
	assert.Contains(t, out, "x 1000 ")
	assert.Contains(t, out, "P&L:  100.00")
	assert.Contains(t, out, "USD/JPY spread on ebs widened (confidence 0.72)")
	assert.Contains(t, out, "Arbitrage Simulator Stopped")
}

func TestConsoleReporter_UnknownSymbolFallsBack(t *testing.T) {
	var buf bytes.Buffer
	r := NewConsoleReporter(&buf, instrumentMap{})

	assert.Equal(t, "1.08500", r.price("EUR/USD", 1.085))
}

func TestLogReporter(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(&buf, logger.LevelInfo, "arbsim-test", nil)
	r := NewLogReporter(log, lookup(t))

	ctx := context.Background()
	require.NoError(t, r.Start(ctx))
	r.ReportTick(ctx, app.TickResult{Seq: 3, Opportunities: []domain.Opportunity{sampleOpportunity(0)}})
	r.ReportExecution(ctx, sampleExecution())
	r.ReportInsight(ctx, domain.Insight{Kind: domain.InsightVolatilitySpike, Severity: domain.SeverityInfo})
	require.NoError(t, r.Stop())

	out := buf.String()
	assert.Contains(t, out, `"best_buy":"149.500"`)
	assert.Contains(t, out, `"best_expected_profit":"10000.00"`)
	assert.Contains(t, out, `"pnl":"100.00"`)
	assert.Contains(t, out, `"kind":"VOLATILITY_SPIKE"`)
	assert.Contains(t, out, `"msg":"reporter stopped"`)
}
