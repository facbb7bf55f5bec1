package provider

import "github.com/prometheus/client_golang/prometheus"

var (
	fetchAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sp3eph",
			Subsystem: "provider",
			Name:      "fetch_attempts_total",
			Help:      "Product resolution attempts, by outcome.",
		},
		[]string{"outcome"},
	)

	stitchedRecords = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "sp3eph",
			Subsystem: "provider",
			Name:      "stitched_records",
			Help:      "Number of records accumulated by a single Load call.",
			Buckets:   prometheus.ExponentialBuckets(8, 2, 8),
		},
	)
)

func init() {
	prometheus.MustRegister(fetchAttempts, stitchedRecords)
}
