// Package fit builds piecewise polynomial interpolants over SP3 records
// and evaluates them at arbitrary UTC instants.
package fit

import (
	"time"

	"github.com/gnss-tools/sp3eph/pkg/sp3"
)

const (
	defaultWindow = 5
	defaultDegree = 10
)

// Option configures Build.
type Option func(*buildConfig)

type buildConfig struct {
	window int
	degree int
}

// WithWindow sets the half-window size w (default 5).
func WithWindow(w int) Option {
	return func(c *buildConfig) { c.window = w }
}

// WithDegree sets the fit polynomial degree d (default 10).
func WithDegree(d int) Option {
	return func(c *buildConfig) { c.degree = d }
}

// PiecewisePolynomial is an immutable, piecewise polynomial interpolant
// over one satellite's position and velocity. Safe for concurrent read-only
// use once built.
type PiecewisePolynomial struct {
	ReferenceTime time.Time
	Window        int
	Degree        int

	// offset[j] and begin[j] are seconds relative to ReferenceTime.
	offset []float64
	begin  []float64

	position [3]axisCoefficients
	velocity [3]axisCoefficients

	MinimumTime time.Time
	MaximumTime time.Time
}

func component(v sp3.Vector3, axis int) float64 {
	switch axis {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}

// Build fits a piecewise polynomial to a strictly time-ascending sequence
// of records, per the window/degree configured by opts (defaults w=5,
// d=10).
func Build(records []sp3.Record, opts ...Option) (*PiecewisePolynomial, error) {
	cfg := buildConfig{window: defaultWindow, degree: defaultDegree}
	for _, opt := range opts {
		opt(&cfg)
	}
	w, d := cfg.window, cfg.degree
	if w < 1 || d < 0 || 2*w+1 <= d {
		return nil, &InvalidParametersError{Window: w, Degree: d}
	}

	n := len(records)
	need := 2*w + 1
	if n < need {
		return nil, &InsufficientRecordsError{Have: n, Need: need}
	}

	referenceTime := records[0].Time
	t := make([]float64, n)
	for k, r := range records {
		t[k] = r.Time.Sub(referenceTime).Seconds()
	}

	haveAllVelocities := true
	for _, r := range records {
		if r.Velocity == nil {
			haveAllVelocities = false
			break
		}
	}

	numIntervals := n - 2*w
	pp := &PiecewisePolynomial{
		ReferenceTime: referenceTime,
		Window:        w,
		Degree:        d,
		offset:        make([]float64, numIntervals),
		begin:         make([]float64, numIntervals),
	}
	for axis := 0; axis < 3; axis++ {
		pp.position[axis] = make(axisCoefficients, numIntervals)
		pp.velocity[axis] = make(axisCoefficients, numIntervals)
	}

	localT := make([]float64, need)
	samples := make([]float64, need)

	for idx := 0; idx < numIntervals; idx++ {
		i := idx + w
		pp.offset[idx] = t[i]
		pp.begin[idx] = t[i] - (t[i]-t[i-1])/2

		lo := i - w
		for k := 0; k < need; k++ {
			localT[k] = t[lo+k] - pp.offset[idx]
		}

		for axis := 0; axis < 3; axis++ {
			for k := 0; k < need; k++ {
				samples[k] = component(records[lo+k].Position, axis)
			}
			coeffs := fitNormalized(localT, samples, d)
			pp.position[axis][idx] = coeffs

			if haveAllVelocities {
				for k := 0; k < need; k++ {
					samples[k] = component(*records[lo+k].Velocity, axis)
				}
				pp.velocity[axis][idx] = fitNormalized(localT, samples, d)
			} else {
				pp.velocity[axis][idx] = derivative(coeffs)
			}
		}
	}

	lastCentre := n - w - 1
	nextSample := lastCentre + 1
	endBoundary := t[nextSample] - (t[nextSample]-t[lastCentre])/2

	pp.MinimumTime = referenceTime.Add(secondsToDuration(pp.begin[0]))
	pp.MaximumTime = referenceTime.Add(secondsToDuration(endBoundary))

	return pp, nil
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
