package app

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/arbsim/business/arbitrage/domain"
	marketDomain "github.com/fd1az/arbsim/business/market/domain"
	"github.com/fd1az/arbsim/internal/apperror"
	"github.com/fd1az/arbsim/internal/logger"
)

func newExecutor(t *testing.T, ledgerCap int) *Executor {
	t.Helper()
	e, err := NewExecutor(ledgerCap, testCatalog(t), marketDomain.NewSeededSource(5), logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(e.Close)
	return e
}

func opportunity(symbol string, margin float64) domain.Opportunity {
	buy := 1.0
	return domain.Opportunity{
		ID:                domain.OpportunityID(domain.NewID()),
		Symbol:            marketDomain.Symbol(symbol),
		BuyVenue:          "v1",
		SellVenue:         "v2",
		BuyPrice:          buy,
		SellPrice:         buy * (1 + margin/100),
		MarginPct:         margin,
		Volume:            100_000,
		Risk:              domain.ClassifyRisk(margin),
		Confidence:        0.9,
		EstimatedSlippage: margin * 0.2,
		CreatedAt:         time.Now(),
	}
}

func TestExecutor_ExecuteProducesMatchedLegs(t *testing.T) {
	e := newExecutor(t, 100)
	opp := opportunity("EUR/USD", 0.2)
	e.Replace([]domain.Opportunity{opp})

	exec, err := e.Execute(t.Context(), opp.ID)
	require.NoError(t, err)

	assert.Equal(t, domain.SideBuy, exec.Buy.Side)
	assert.Equal(t, domain.SideSell, exec.Sell.Side)
	assert.Equal(t, opp.BuyVenue, exec.Buy.Venue)
	assert.Equal(t, opp.SellVenue, exec.Sell.Venue)
	assert.Equal(t, opp.BuyPrice, exec.Buy.Price)
	assert.Equal(t, opp.SellPrice, exec.Sell.Price)
	assert.Equal(t, opp.ID, exec.Buy.OpportunityID)
	assert.Equal(t, opp.ID, exec.Sell.OpportunityID)
	assert.NotEqual(t, exec.Buy.ID, exec.Sell.ID)
	assert.GreaterOrEqual(t, exec.Buy.ExecutionTime, 4*time.Millisecond)
	assert.GreaterOrEqual(t, exec.Sell.ExecutionTime, 7*time.Millisecond)
	assert.Positive(t, exec.Buy.SlippagePct)

	trades := e.Trades()
	require.Len(t, trades, 2)
	assert.Empty(t, e.Active())
}

func TestExecutor_SecondExecutionIsStale(t *testing.T) {
	e := newExecutor(t, 100)
	opp := opportunity("EUR/USD", 0.2)
	e.Replace([]domain.Opportunity{opp})

	_, err := e.Execute(t.Context(), opp.ID)
	require.NoError(t, err)

	_, err = e.Execute(t.Context(), opp.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrStaleOpportunity))
	assert.Equal(t, apperror.CodeStaleOpportunity, apperror.GetCode(err))
	assert.Len(t, e.Trades(), 2)

	stats := e.Stats()
	assert.Equal(t, uint64(1), stats.Executions)
	assert.Equal(t, uint64(1), stats.StaleRejections)
}

func TestExecutor_UnknownIDIsStale(t *testing.T) {
	e := newExecutor(t, 100)

	_, err := e.Execute(t.Context(), domain.OpportunityID(domain.NewID()))
	assert.ErrorIs(t, err, domain.ErrStaleOpportunity)
}

func TestExecutor_ReplaceDecaysUnexecuted(t *testing.T) {
	e := newExecutor(t, 100)
	old := opportunity("EUR/USD", 0.2)
	e.Replace([]domain.Opportunity{old})

	fresh := opportunity("EUR/USD", 0.2)
	e.Replace([]domain.Opportunity{fresh})

	active := e.Active()
	require.Len(t, active, 1)
	assert.Equal(t, fresh.ID, active[0].ID)

	_, err := e.Execute(t.Context(), old.ID)
	assert.ErrorIs(t, err, domain.ErrStaleOpportunity)
}

func TestExecutor_ConcurrentExecutionSucceedsOnce(t *testing.T) {
	e := newExecutor(t, 100)
	opp := opportunity("EUR/USD", 0.2)
	e.Replace([]domain.Opportunity{opp})

	const callers = 64
	var (
		wg        sync.WaitGroup
		successes atomic.Int32
		stale     atomic.Int32
		start     = make(chan struct{})
	)

	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := e.Execute(t.Context(), opp.ID)
			switch {
			case err == nil:
				successes.Add(1)
			case errors.Is(err, domain.ErrStaleOpportunity):
				stale.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), successes.Load())
	assert.Equal(t, int32(callers-1), stale.Load())
	assert.Len(t, e.Trades(), 2)
}

func TestExecutor_LedgerKeepsMostRecent(t *testing.T) {
	e := newExecutor(t, 10)

	opps := make([]domain.Opportunity, 20)
	for i := range opps {
		opps[i] = opportunity("EUR/USD", 0.2)
	}
	e.Replace(opps)

	for _, o := range opps {
		_, err := e.Execute(t.Context(), o.ID)
		require.NoError(t, err)
	}

	trades := e.Trades()
	require.Len(t, trades, 10)
	for i, tr := range trades {
		assert.Equal(t, opps[15+i/2].ID, tr.OpportunityID)
	}

	stats := e.Stats()
	assert.Equal(t, uint64(20), stats.Executions)
	assert.Equal(t, 10, stats.TradesRetained)
	assert.Equal(t, uint64(40), stats.TradesTotal)
	assert.True(t, stats.PnLBySymbol["EUR/USD"].IsPositive())
}

func TestExecutor_SubscribeExecutions(t *testing.T) {
	e := newExecutor(t, 100)
	ch, cancel := e.SubscribeExecutions(4)
	defer cancel()

	opp := opportunity("XAU/USD", 0.3)
	e.Replace([]domain.Opportunity{opp})
	_, err := e.Execute(t.Context(), opp.ID)
	require.NoError(t, err)

	select {
	case exec := <-ch:
		assert.Equal(t, opp.ID, exec.Buy.OpportunityID)
	case <-time.After(time.Second):
		t.Fatal("no execution published")
	}
}
