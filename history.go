package ganlab

import (
	"math"
)

// History Append-only loss series, one value per training step.
// Divergence (NaN/Inf, saturation at zero) is never handled anywhere in this
// package; it stays observable through the recorded values only.
type History struct {
	values []float64
}

// Append Records next loss value
func (h *History) Append(v float64) {
	h.values = append(h.values, v)
}

// Len Number of recorded steps
func (h *History) Len() int {
	return len(h.values)
}

// Last Most recent value. Returns NaN when nothing has been recorded yet.
func (h *History) Last() float64 {
	if len(h.values) == 0 {
		return math.NaN()
	}
	return h.values[len(h.values)-1]
}

// Values Copy of the whole series in recording order
func (h *History) Values() []float64 {
	out := make([]float64, len(h.values))
	copy(out, h.values)
	return out
}

// FirstNonFinite Index of the first NaN/Inf value, or -1 when the whole
// series is finite. Cheap post-hoc divergence check.
func (h *History) FirstNonFinite() int {
	for i, v := range h.values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return i
		}
	}
	return -1
}
