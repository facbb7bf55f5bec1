package provider

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/gnss-tools/sp3eph/pkg/sp3"
)

// LoadOption configures Load.
type LoadOption func(*loadConfig)

type loadConfig struct {
	force      bool
	candidates []Provider
	log        *logrus.Logger
}

// WithForce re-fetches a product even if it is already cached locally.
func WithForce(force bool) LoadOption {
	return func(c *loadConfig) { c.force = force }
}

// WithProviders overrides the provider search order, bypassing the
// embedded default registry. Useful for tests.
func WithProviders(providers []Provider) LoadOption {
	return func(c *loadConfig) { c.candidates = providers }
}

// WithLogger overrides the logger Load reports progress to.
func WithLogger(log *logrus.Logger) LoadOption {
	return func(c *loadConfig) { c.log = log }
}

// Load gathers the contiguous record sequence for sp3Id covering
// [begin − window samples, end + window samples], stitching adjacent
// product files from the first provider whose coverage is sufficient.
// Concatenation dedups on equal time: a newer record replaces an existing
// one with equal time, otherwise records are appended in strict time
// order (mirroring the bidirectional offset search of the source
// provider/interpolate implementation this is grounded on).
func Load(ctx context.Context, sp3Id string, begin, end time.Time, window int, downloadDir string, opts ...LoadOption) ([]sp3.Record, error) {
	cfg := loadConfig{candidates: Registry(), log: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(&cfg)
	}

	candidates := make([]Provider, 0, len(cfg.candidates))
	for _, p := range cfg.candidates {
		if p.Covers(sp3Id) {
			candidates = append(candidates, p)
		}
	}
	if len(candidates) == 0 {
		return nil, &ErrNoSuitableProvider{Sp3Id: sp3Id}
	}

	var records []sp3.Record
	providerFound := false

	for _, candidate := range candidates {
		records = nil
		offset := 0.0
		durationSeconds := candidate.Duration().Seconds()

		for {
			nativeTime, err := candidate.TimeSystem().OffsetSeconds(begin, offset)
			if err != nil {
				return nil, err
			}
			path, err := candidate.Resolve(ctx, nativeTime, downloadDir, cfg.force)
			if err != nil {
				var notFound *ErrProductNotFound
				if errors.As(err, &notFound) {
					fetchAttempts.WithLabelValues("not_found").Inc()
					break
				}
				fetchAttempts.WithLabelValues("error").Inc()
				return nil, err
			}
			fetchAttempts.WithLabelValues("ok").Inc()

			product, err := sp3.ParseFile(path)
			if err != nil {
				return nil, err
			}
			satellite, err := product.SatelliteWithId(sp3Id)
			if err != nil {
				var unknown *sp3.UnknownSatelliteError
				if errors.As(err, &unknown) {
					break
				}
				return nil, err
			}

			records = mergeRecords(records, satellite.Records, offset < 0)

			if len(records) > window {
				beginCovered := !begin.Before(records[window].Time)
				endCovered := end.Before(records[len(records)-window].Time)
				if beginCovered && endCovered {
					providerFound = true
					break
				}
				if !beginCovered {
					offset = math.Min(offset, 0) - durationSeconds
				} else {
					offset = math.Max(offset, 0) + durationSeconds
				}
			} else if offset <= 0 {
				offset -= durationSeconds
			} else {
				offset += durationSeconds
			}
		}
		if providerFound {
			break
		}
	}

	if !providerFound {
		return nil, &ErrNoSuitableProvider{Sp3Id: sp3Id}
	}

	stitchedRecords.Observe(float64(len(records)))
	cfg.log.WithFields(logrus.Fields{
		"sp3_id":  sp3Id,
		"records": len(records),
	}).Debug("provider: stitched record window")

	return records, nil
}

// mergeRecords folds newRecords into existing, preserving strict ascending
// time order and deduplicating on equal time (the newer record wins).
func mergeRecords(existing []sp3.Record, newRecords []sp3.Record, prepend bool) []sp3.Record {
	if prepend {
		for i := len(newRecords) - 1; i >= 0; i-- {
			rec := newRecords[i]
			if len(existing) == 0 || rec.Time.Before(existing[0].Time) {
				existing = append([]sp3.Record{rec}, existing...)
			} else if rec.Time.Equal(existing[0].Time) {
				existing[0] = rec
			}
		}
		return existing
	}
	for _, rec := range newRecords {
		switch {
		case len(existing) == 0 || rec.Time.After(existing[len(existing)-1].Time):
			existing = append(existing, rec)
		case rec.Time.Equal(existing[len(existing)-1].Time):
			existing[len(existing)-1] = rec
		}
	}
	return existing
}
