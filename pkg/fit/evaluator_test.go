package fit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocateInterval_RightInsertionTieBreak(t *testing.T) {
	records := syntheticRecords(40, 15*time.Minute, false)
	pp, err := Build(records, WithWindow(5), WithDegree(10))
	require.NoError(t, err)

	for j := 1; j < len(pp.begin); j++ {
		got := pp.locateInterval(pp.begin[j])
		assert.Equal(t, j, got, "a query exactly on begin[j] must resolve to interval j, not j-1")
	}
}

func TestLocateInterval_MidIntervalResolvesToSameInterval(t *testing.T) {
	records := syntheticRecords(40, 15*time.Minute, false)
	pp, err := Build(records, WithWindow(5), WithDegree(10))
	require.NoError(t, err)

	for j := 0; j < len(pp.begin)-1; j++ {
		mid := (pp.begin[j] + pp.begin[j+1]) / 2
		assert.Equal(t, j, pp.locateInterval(mid))
	}
}
