package domain

import (
	"testing"
	"time"
)

func TestHistory_EvictsOldestWhenFull(t *testing.T) {
	h := NewHistory(3)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := range 5 {
		h.Append(HistoryPoint{At: base.Add(time.Duration(i) * time.Second), Bid: float64(i), Ask: float64(i) + 1})
	}

	if h.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", h.Len())
	}

	got := h.Points()
	want := []float64{2, 3, 4}
	for i, p := range got {
		if p.Bid != want[i] {
			t.Errorf("Points()[%d].Bid = %v, want %v", i, p.Bid, want[i])
		}
	}
}

func TestHistory_Last(t *testing.T) {
	tests := []struct {
		name    string
		appends int
		n       int
		want    []float64
	}{
		{name: "empty", appends: 0, n: 2, want: nil},
		{name: "fewer_than_requested", appends: 2, n: 5, want: []float64{0, 1}},
		{name: "partial", appends: 4, n: 2, want: []float64{2, 3}},
		{name: "wrapped", appends: 7, n: 3, want: []float64{4, 5, 6}},
		{name: "non_positive", appends: 3, n: 0, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHistory(4)
			for i := range tt.appends {
				h.Append(HistoryPoint{Bid: float64(i)})
			}
			got := h.Last(tt.n)
			if len(got) != len(tt.want) {
				t.Fatalf("Last(%d) len = %d, want %d", tt.n, len(got), len(tt.want))
			}
			for i := range got {
				if got[i].Bid != tt.want[i] {
					t.Errorf("Last(%d)[%d] = %v, want %v", tt.n, i, got[i].Bid, tt.want[i])
				}
			}
		})
	}
}

func TestHistory_PointsIsACopy(t *testing.T) {
	h := NewHistory(2)
	h.Append(HistoryPoint{Bid: 1})

	pts := h.Points()
	pts[0].Bid = 99

	if h.Points()[0].Bid != 1 {
		t.Error("mutating Points() result changed the history")
	}
}
