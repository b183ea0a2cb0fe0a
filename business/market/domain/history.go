package domain

import "time"

// HistoryPoint is one recorded quote.
type HistoryPoint struct {
	At  time.Time `json:"at"`
	Bid float64   `json:"bid"`
	Ask float64   `json:"ask"`
}

// History is a fixed-capacity ring of quotes. Once full, appending evicts
// the oldest point. Not safe for concurrent use.
type History struct {
	points []HistoryPoint
	start  int
	size   int
}

// NewHistory creates a ring holding at most depth points.
func NewHistory(depth int) *History {
	if depth < 1 {
		depth = 1
	}
	return &History{points: make([]HistoryPoint, depth)}
}

// Append records p, evicting the oldest point when full.
func (h *History) Append(p HistoryPoint) {
	capacity := len(h.points)
	if h.size < capacity {
		h.points[(h.start+h.size)%capacity] = p
		h.size++
		return
	}
	h.points[h.start] = p
	h.start = (h.start + 1) % capacity
}

// Points returns a copy, oldest first.
func (h *History) Points() []HistoryPoint {
	out := make([]HistoryPoint, h.size)
	for i := range h.size {
		out[i] = h.points[(h.start+i)%len(h.points)]
	}
	return out
}

// Last returns the most recent n points, oldest first.
func (h *History) Last(n int) []HistoryPoint {
	if n > h.size {
		n = h.size
	}
	if n <= 0 {
		return nil
	}
	out := make([]HistoryPoint, n)
	offset := h.size - n
	for i := range n {
		out[i] = h.points[(h.start+offset+i)%len(h.points)]
	}
	return out
}

// Len returns the number of stored points.
func (h *History) Len() int {
	return h.size
}

// Cap returns the ring capacity.
func (h *History) Cap() int {
	return len(h.points)
}
