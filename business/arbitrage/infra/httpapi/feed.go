package httpapi

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fd1az/arbsim/business/arbitrage/app"
	"github.com/fd1az/arbsim/business/arbitrage/domain"
	marketDomain "github.com/fd1az/arbsim/business/market/domain"
	"github.com/fd1az/arbsim/internal/wsconn"
)

// Feed message types.
const (
	MessageTick    = "tick"
	MessageInsight = "insight"
)

// Envelope is one WebSocket feed message.
type Envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// TickMessage is the wire form of a tick result.
type TickMessage struct {
	Seq           uint64               `json:"seq"`
	At            time.Time            `json:"at"`
	DurationMs    float64              `json:"duration_ms"`
	Quotes        []marketDomain.Quote `json:"quotes"`
	Opportunities []domain.Opportunity `json:"opportunities"`
}

func newTickMessage(r app.TickResult) TickMessage {
	msg := TickMessage{
		Seq:           r.Seq,
		At:            r.At,
		DurationMs:    float64(r.Duration) / float64(time.Millisecond),
		Opportunities: r.Opportunities,
	}
	if r.Quotes != nil {
		msg.Quotes = r.Quotes.Quotes()
	}
	if msg.Opportunities == nil {
		msg.Opportunities = []domain.Opportunity{}
	}
	return msg
}

// Feed handles GET /v1/ws. It streams every tick and insight until the
// client disconnects. A slow client loses messages rather than slowing the
// engine.
func (h *APIHandler) Feed(c *gin.Context) {
	session, err := wsconn.Accept(c.Writer, c.Request, h.config.WebSocket)
	if err != nil {
		h.logger.Warn(c.Request.Context(), "websocket upgrade failed", "error", err)
		return
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	ticks, cancelTicks := h.engine.Subscribe(1)
	defer cancelTicks()
	insights, cancelInsights := h.engine.SubscribeInsights(8)
	defer cancelInsights()

	go func() {
		defer cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case r, ok := <-ticks:
				if !ok {
					return
				}
				session.SendJSON(Envelope{Type: MessageTick, Data: newTickMessage(r)})
			case ins, ok := <-insights:
				if !ok {
					return
				}
				session.SendJSON(Envelope{Type: MessageInsight, Data: ins})
			}
		}
	}()

	h.logger.Debug(ctx, "feed client connected", "request_id", c.GetString(RequestIDContextKey))
	if err := session.Run(ctx); err != nil {
		h.logger.Warn(ctx, "feed session ended", "error", err)
	}
	h.logger.Debug(ctx, "feed client disconnected",
		"request_id", c.GetString(RequestIDContextKey),
		"dropped", session.Dropped(),
	)
}
