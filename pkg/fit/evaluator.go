package fit

import (
	"time"

	"golang.org/x/exp/slices"
)

// Sample is one evaluated ECEF position/velocity at a requested instant.
type Sample struct {
	Time       time.Time
	X, Y, Z    float64
	VX, VY, VZ float64
}

// Evaluate returns the interpolated ECEF position and velocity at t.
// No side effects. Idempotent. Safe for concurrent use.
func (pp *PiecewisePolynomial) Evaluate(t time.Time) (Sample, error) {
	if t.Before(pp.MinimumTime) {
		return Sample{}, &OutOfRangeError{Side: "before", Time: t}
	}
	if !t.Before(pp.MaximumTime) {
		return Sample{}, &OutOfRangeError{Side: "after", Time: t}
	}

	tau := t.Sub(pp.ReferenceTime).Seconds()
	j := pp.locateInterval(tau)
	local := tau - pp.offset[j]

	return Sample{
		Time: t,
		X:    horner(pp.position[0][j], local),
		Y:    horner(pp.position[1][j], local),
		Z:    horner(pp.position[2][j], local),
		VX:   horner(pp.velocity[0][j], local),
		VY:   horner(pp.velocity[1][j], local),
		VZ:   horner(pp.velocity[2][j], local),
	}, nil
}

// EvaluateBatch evaluates an ordered batch of instants. It fails closed:
// the first out-of-range instant aborts the whole batch.
func (pp *PiecewisePolynomial) EvaluateBatch(obstimes []time.Time) ([]Sample, error) {
	out := make([]Sample, len(obstimes))
	for i, t := range obstimes {
		s, err := pp.Evaluate(t)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

// locateInterval finds the largest j with begin[j] <= tau, via a
// right-insertion (upper-bound) binary search: the comparator never
// reports equality, so slices.BinarySearchFunc returns the first index
// strictly past tau, and we step back one.
func (pp *PiecewisePolynomial) locateInterval(tau float64) int {
	pos, _ := slices.BinarySearchFunc(pp.begin, tau, func(b, target float64) int {
		if b <= target {
			return -1
		}
		return 1
	})
	if pos == 0 {
		pos = 1
	}
	return pos - 1
}
