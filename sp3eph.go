// Package sp3eph ties together satellite identifier resolution, product
// stitching, and piecewise polynomial interpolation into one convenience
// entry point: Interpolate.
package sp3eph

import (
	"context"
	"fmt"
	"time"

	"github.com/gnss-tools/sp3eph/pkg/fit"
	"github.com/gnss-tools/sp3eph/pkg/gnss"
	"github.com/gnss-tools/sp3eph/pkg/provider"
)

const (
	defaultWindow = 5
	defaultDegree = 10
)

// Option configures Interpolate.
type Option func(*config)

type config struct {
	window      int
	degree      int
	loadOptions []provider.LoadOption
}

// WithWindow overrides the half-window size passed to both the provider
// coverage check and the polynomial builder (default 5).
func WithWindow(w int) Option {
	return func(c *config) { c.window = w }
}

// WithDegree overrides the fit polynomial degree (default 10).
func WithDegree(d int) Option {
	return func(c *config) { c.degree = d }
}

// WithLoadOptions forwards options to the underlying provider.Load call,
// e.g. provider.WithProviders for tests or provider.WithForce.
func WithLoadOptions(opts ...provider.LoadOption) Option {
	return func(c *config) { c.loadOptions = append(c.loadOptions, opts...) }
}

// resolveSp3Id accepts either a gnss.Sp3Id or a gnss.NoradId, mirroring the
// original's isinstance dispatch over its polymorphic Id type.
func resolveSp3Id(id any) (string, error) {
	switch v := id.(type) {
	case gnss.Sp3Id:
		return v.String(), nil
	case gnss.NoradId:
		sp3, err := gnss.NoradToSp3(v)
		if err != nil {
			return "", err
		}
		return sp3.String(), nil
	default:
		return "", fmt.Errorf("sp3eph: unsupported id type %T", id)
	}
}

// Interpolate resolves id to an SP3 satellite, loads and stitches enough
// product coverage for [begin, end], fits a piecewise polynomial over it,
// and evaluates samplesCount instants evenly spaced across [begin, end).
//
// id must be a gnss.Sp3Id or a gnss.NoradId. begin and end must be UTC.
func Interpolate(ctx context.Context, id any, begin, end time.Time, samplesCount int, downloadDir string, opts ...Option) ([]fit.Sample, error) {
	if !begin.Before(end) {
		return nil, fmt.Errorf("sp3eph: begin %s must be before end %s", begin, end)
	}
	if samplesCount < 1 {
		return nil, fmt.Errorf("sp3eph: samplesCount must be positive, got %d", samplesCount)
	}

	cfg := config{window: defaultWindow, degree: defaultDegree}
	for _, opt := range opts {
		opt(&cfg)
	}

	sp3Id, err := resolveSp3Id(id)
	if err != nil {
		return nil, err
	}

	records, err := provider.Load(ctx, sp3Id, begin, end, cfg.window, downloadDir, cfg.loadOptions...)
	if err != nil {
		return nil, err
	}

	pp, err := fit.Build(records, fit.WithWindow(cfg.window), fit.WithDegree(cfg.degree))
	if err != nil {
		return nil, err
	}

	sampleInterval := end.Sub(begin) / time.Duration(samplesCount)
	obstimes := make([]time.Time, samplesCount)
	for i := 0; i < samplesCount; i++ {
		obstimes[i] = begin.Add(time.Duration(i) * sampleInterval)
	}

	return pp.EvaluateBatch(obstimes)
}
