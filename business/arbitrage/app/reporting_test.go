package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/arbsim/business/arbitrage/domain"
)

type recordingReporter struct {
	started    chan struct{}
	ticks      chan TickResult
	executions chan domain.Execution
	insights   chan domain.Insight
	stopped    chan struct{}
}

func newRecordingReporter() *recordingReporter {
	return &recordingReporter{
		started:    make(chan struct{}),
		ticks:      make(chan TickResult, 8),
		executions: make(chan domain.Execution, 8),
		insights:   make(chan domain.Insight, 8),
		stopped:    make(chan struct{}),
	}
}

func (r *recordingReporter) Start(context.Context) error { close(r.started); return nil }
func (r *recordingReporter) ReportTick(_ context.Context, res TickResult) {
	r.ticks <- res
}
func (r *recordingReporter) ReportExecution(_ context.Context, e domain.Execution) {
	r.executions <- e
}
func (r *recordingReporter) ReportInsight(_ context.Context, i domain.Insight) {
	r.insights <- i
}
func (r *recordingReporter) Stop() error { close(r.stopped); return nil }

func TestRunReporter_ForwardsFeeds(t *testing.T) {
	feed := newHubFeed()
	rep := newRecordingReporter()

	ctx, cancel := context.WithCancel(t.Context())
	errc := make(chan error, 1)
	go func() { errc <- RunReporter(ctx, feed, rep, 2) }()

	<-rep.started
	require.Eventually(t, func() bool {
		return feed.ticks.Len() == 1 && feed.insights.Len() == 1 && feed.executions.Len() == 1
	}, time.Second, time.Millisecond)

	feed.ticks.Publish(TickResult{Seq: 1})
	feed.ticks.Publish(TickResult{Seq: 2})
	feed.insights.Publish(domain.Insight{ID: "i1"})
	feed.executions.Publish(domain.Execution{Buy: domain.TradeRecord{ID: "b1"}})

	select {
	case res := <-rep.ticks:
		assert.Equal(t, uint64(2), res.Seq)
	case <-time.After(time.Second):
		t.Fatal("tick not reported")
	}
	select {
	case ins := <-rep.insights:
		assert.Equal(t, "i1", ins.ID)
	case <-time.After(time.Second):
		t.Fatal("insight not reported")
	}
	select {
	case e := <-rep.executions:
		assert.Equal(t, "b1", e.Buy.ID)
	case <-time.After(time.Second):
		t.Fatal("execution not reported")
	}

	cancel()
	require.NoError(t, <-errc)
	<-rep.stopped
}
