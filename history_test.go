package ganlab

import (
	"math"
	"testing"
)

func TestHistoryAppendOrder(t *testing.T) {
	var h History
	if h.Len() != 0 {
		t.Fatalf("fresh history must be empty, got %d", h.Len())
	}
	if !math.IsNaN(h.Last()) {
		t.Fatal("Last on empty history must be NaN")
	}
	h.Append(0.5)
	h.Append(0.25)
	if h.Len() != 2 {
		t.Fatalf("expected 2 values, got %d", h.Len())
	}
	if h.Last() != 0.25 {
		t.Fatalf("expected last value 0.25, got %f", h.Last())
	}
	values := h.Values()
	if values[0] != 0.5 || values[1] != 0.25 {
		t.Fatalf("values out of order: %v", values)
	}
	// Mutating the copy must not touch the history
	values[0] = 100
	if h.Values()[0] != 0.5 {
		t.Fatal("Values must return a copy")
	}
}

func TestHistoryFirstNonFinite(t *testing.T) {
	var h History
	h.Append(1.0)
	h.Append(0.1)
	if idx := h.FirstNonFinite(); idx != -1 {
		t.Fatalf("finite series reported non-finite at %d", idx)
	}
	h.Append(math.NaN())
	h.Append(0.2)
	if idx := h.FirstNonFinite(); idx != 2 {
		t.Fatalf("expected first NaN at index 2, got %d", idx)
	}

	var inf History
	inf.Append(math.Inf(1))
	if idx := inf.FirstNonFinite(); idx != 0 {
		t.Fatalf("expected Inf at index 0, got %d", idx)
	}
}
