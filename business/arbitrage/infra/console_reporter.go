// Package infra contains infrastructure adapters for the arbitrage context.
package infra

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/fd1az/arbsim/business/arbitrage/app"
	"github.com/fd1az/arbsim/business/arbitrage/domain"
	marketDomain "github.com/fd1az/arbsim/business/market/domain"
)

// consoleTopN is how many ranked opportunities a tick report prints.
const consoleTopN = 5

// InstrumentLookup resolves instrument metadata for display.
type InstrumentLookup interface {
	Instrument(symbol marketDomain.Symbol) (marketDomain.Instrument, error)
}

// ConsoleReporter implements Reporter for plain text CLI output.
type ConsoleReporter struct {
	mu          sync.Mutex
	out         io.Writer
	instruments InstrumentLookup
}

// NewConsoleReporter creates a new ConsoleReporter writing to out.
func NewConsoleReporter(out io.Writer, instruments InstrumentLookup) *ConsoleReporter {
	return &ConsoleReporter{
		out:         out,
		instruments: instruments,
	}
}

// Start prints the banner.
func (r *ConsoleReporter) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	fmt.Fprintln(r.out, "Arbitrage Simulator Started")
	fmt.Fprintln(r.out, "===========================")
	return nil
}

// ReportTick prints the top ranked opportunities of a tick.
func (r *ConsoleReporter) ReportTick(ctx context.Context, result app.TickResult) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fmt.Fprintln(r.out, "")
	fmt.Fprintln(r.out, "================================================================================")
	fmt.Fprintf(r.out, "TICK #%d  %s  (%s, %d opportunities)\n",
		result.Seq, result.At.Format("15:04:05.000"), result.Duration.Round(time.Microsecond), len(result.Opportunities))
	fmt.Fprintln(r.out, "================================================================================")

	if len(result.Opportunities) == 0 {
		fmt.Fprintln(r.out, "  no opportunities above threshold")
		return
	}

	for i, opp := range result.Opportunities {
		if i == consoleTopN {
			fmt.Fprintf(r.out, "  ... %d more\n", len(result.Opportunities)-consoleTopN)
			break
		}
		fmt.Fprintf(r.out, "  %-8s %-22s buy %s  sell %s  %6.2f bps  exp %s  %-6s conf %.2f\n",
			opp.Symbol,
			opp.Direction().String(),
			r.price(opp.Symbol, opp.BuyPrice),
			r.price(opp.Symbol, opp.SellPrice),
			opp.MarginBps(),
			opp.ExpectedProfit().StringFixed(2),
			opp.Risk,
			opp.Confidence,
		)
	}
}

// ReportExecution prints both legs of an executed pair.
func (r *ConsoleReporter) ReportExecution(ctx context.Context, exec domain.Execution) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fmt.Fprintln(r.out, "")
	fmt.Fprintln(r.out, "--------------------------------------------------------------------------------")
	fmt.Fprintf(r.out, "EXECUTED %s  (opportunity %s)\n", exec.Buy.Symbol, exec.Buy.OpportunityID)
	for _, leg := range []domain.TradeRecord{exec.Buy, exec.Sell} {
		fmt.Fprintf(r.out, "  %-4s %-10s %s x %s  slip %.4f%%  %s\n",
			leg.Side,
			leg.Venue,
			r.price(leg.Symbol, leg.Price),
			formatVolume(leg.Volume),
			leg.SlippagePct,
			leg.ExecutionTime.Round(time.Microsecond),
		)
	}
	fmt.Fprintf(r.out, "  P&L:  %s\n", exec.RealizedPnL().StringFixed(2))
	fmt.Fprintln(r.out, "--------------------------------------------------------------------------------")
}

// ReportInsight prints one insight line.
func (r *ConsoleReporter) ReportInsight(ctx context.Context, insight domain.Insight) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fmt.Fprintf(r.out, "[%s] %-8s %-18s %s (confidence %.2f)\n",
		insight.Timestamp.Format("15:04:05"),
		insight.Severity,
		insight.Kind,
		insight.Summary,
		insight.Confidence,
	)
}

// Stop prints the closing line.
func (r *ConsoleReporter) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	fmt.Fprintln(r.out, "")
	fmt.Fprintln(r.out, "Arbitrage Simulator Stopped")
	return nil
}

func (r *ConsoleReporter) price(symbol marketDomain.Symbol, v float64) string {
	inst, err := r.instruments.Instrument(symbol)
	if err != nil {
		return fmt.Sprintf("%.5f", v)
	}
	return inst.FormatPrice(v)
}

func formatVolume(v float64) string {
	s := fmt.Sprintf("%.4f", v)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
