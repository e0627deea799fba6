package reward

import (
	"github.com/chewxy/math32"
	omwmath "github.com/sw965/omw/math"
)

// Discount folds rs right to left: ds[i] = rs[i] + rate*ds[i+1].
func Discount(rs []float32, rate float32) []float32 {
	n := len(rs)
	ds := make([]float32, n)
	var future float32
	for i := n - 1; i >= 0; i-- {
		future = rs[i] + rate*future
		ds[i] = future
	}
	return ds
}

func DiscountAll(episodes [][]float32, rate float32) [][]float32 {
	ds := make([][]float32, len(episodes))
	for i, rs := range episodes {
		ds[i] = Discount(rs, rate)
	}
	return ds
}

// Normalize centers and scales all episodes by the mean and the
// population standard deviation of the flattened batch.
// A zero-variance batch divides by zero and propagates ±Inf/NaN;
// that is intentionally not guarded here.
func Normalize(episodes [][]float32) [][]float32 {
	n := 0
	for _, ds := range episodes {
		n += len(ds)
	}

	var sum float32
	for _, ds := range episodes {
		sum += omwmath.Sum(ds...)
	}
	mean := sum / float32(n)

	var sqSum float32
	for _, ds := range episodes {
		for _, d := range ds {
			diff := d - mean
			sqSum += diff * diff
		}
	}
	std := math32.Sqrt(sqSum / float32(n))

	normalized := make([][]float32, len(episodes))
	for i, ds := range episodes {
		ns := make([]float32, len(ds))
		for j, d := range ds {
			ns[j] = (d - mean) / std
		}
		normalized[i] = ns
	}
	return normalized
}
