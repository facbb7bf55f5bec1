package gnss

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeSystem(t *testing.T) {
	sys, err := ParseTimeSystem("GPS")
	require.NoError(t, err)
	assert.Equal(t, GPS, sys)

	_, err = ParseTimeSystem("XYZ")
	assert.Error(t, err)
}

func TestTimeSystem_String(t *testing.T) {
	assert.Equal(t, "GPS", GPS.String())
	assert.Equal(t, "BDT", BDT.String())
}

func TestGPS_ToUTC_RoundTrip(t *testing.T) {
	// GPS = TAI - 19s, so GPS is 19s behind TAI and (in 2020) 18s ahead of
	// UTC; ToUTC followed by FromUTC must undo that offset exactly.
	gpsTime := time.Date(2020, 4, 4, 23, 59, 42, 0, time.UTC)
	utc, err := GPS.ToUTC(gpsTime)
	require.NoError(t, err)
	// Round trip through FromUTC must recover the original instant.
	back, err := GPS.FromUTC(utc)
	require.NoError(t, err)
	assert.WithinDuration(t, gpsTime, back, time.Microsecond)
}

func TestGLO_ToUTC_ThreeHourShift(t *testing.T) {
	gloTime := time.Date(2021, 1, 1, 3, 0, 0, 0, time.UTC)
	utc, err := GLO.ToUTC(gloTime)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC), utc)

	back, err := GLO.FromUTC(utc)
	require.NoError(t, err)
	assert.Equal(t, gloTime, back)
}

func TestBDT_IsIdentityWithUTC(t *testing.T) {
	bdtTime := time.Date(2022, 6, 15, 12, 0, 0, 0, time.UTC)
	utc, err := BDT.ToUTC(bdtTime)
	require.NoError(t, err)
	assert.Equal(t, bdtTime, utc)
}

func TestTAI_OffsetSeconds(t *testing.T) {
	base := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	shifted, err := TAI_.OffsetSeconds(base, 30)
	require.NoError(t, err)
	assert.Equal(t, base.Add(30*time.Second), shifted)
}

func TestUTC_OffsetSeconds(t *testing.T) {
	base := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	shifted, err := UTC.OffsetSeconds(base, 900.5)
	require.NoError(t, err)
	assert.Equal(t, base.Add(900*time.Second+500*time.Millisecond), shifted)
}

func TestGAL_RoundTrip(t *testing.T) {
	galTime := time.Date(2023, 3, 10, 8, 15, 0, 500000000, time.UTC)
	utc, err := GAL.ToUTC(galTime)
	require.NoError(t, err)
	back, err := GAL.FromUTC(utc)
	require.NoError(t, err)
	assert.WithinDuration(t, galTime, back, time.Microsecond)
}
