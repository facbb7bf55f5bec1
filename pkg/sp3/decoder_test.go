package sp3

import (
	"fmt"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixtureOptions controls the small knobs exercised by the decoder tests;
// the two satellites, interval and epoch count are fixed to keep the
// header cross-checks in decoder.go satisfied by construction.
type fixtureOptions struct {
	timeSystem  string
	fileType    string
	secondEpoch bool
}

func positionLine(satId string, x, y, z float64, clock *float64) string {
	clockField := strings.Repeat(" ", 14)
	if clock != nil {
		clockField = fmt.Sprintf("%14.6f", *clock)
	}
	return fmt.Sprintf("P%s%14.6f%14.6f%14.6f%s", satId, x, y, z, clockField)
}

// velocityLine builds a V record with the optional clock-rate field and
// the trailing velocity-std/clock-rate-std exponent columns filled in.
func velocityLine(satId string, vx, vy, vz, rate float64, stdX, stdY, stdZ, rateStd int) string {
	return fmt.Sprintf("V%s%14.6f%14.6f%14.6f%14.6f %2d %2d %2d %3d",
		satId, vx, vy, vz, rate, stdX, stdY, stdZ, rateStd)
}

func buildFixture(opt fixtureOptions) string {
	lines := []string{
		fmt.Sprintf("#d%s%04d %2d %2d %2d %2d %2d.%08d %7d %5s %5s %3s %4s",
			"P", 2023, 1, 1, 0, 0, 0, 0, 2, "ORBIT", "IGS14", "HLM", "IGSC"),
		fmt.Sprintf("## %4d %6d.%08d %5d.%08d %5d %1d.%013d", 2243, 0, 0, 900, 0, 59945, 0, 0),
		fmt.Sprintf("+  %3d   %s", 2, "G01R01"),
		fmt.Sprintf("++       %3d%3d", 0, 0),
		fmt.Sprintf("%%c %-2s cc %-3s ccc cccc cccc cccc.cccc ccccc ccccc ccccc ccccc", opt.fileType, opt.timeSystem),
		"%c cc cc ccc ccc cccc cccc cccc.cccc ccccc ccccc ccccc ccccc",
		fmt.Sprintf("%%f %2d.%07d %2d.%09d  0.00000000000  0.000000000000000", 2, 0, 2, 0),
		"%f  0.0000000  0.000000000  0.00000000000  0.000000000000000",
		"%i    0    0    0    0      0      0      0      0         0",
		"%i    0    0    0    0      0      0      0      0         0",
		"/* synthetic fixture for decoder tests",
		fmt.Sprintf("*  %04d %2d %2d %2d %2d %2d.%08d", 2023, 1, 1, 0, 0, 0, 0),
	}

	clock1 := 100.123456
	lines = append(lines,
		positionLine("G01", -11044.123456, 21000.654321, 5000.0, &clock1),
		positionLine("R01", 7000.111111, -8000.222222, 9000.333333, nil),
	)

	if opt.secondEpoch {
		lines = append(lines,
			fmt.Sprintf("*  %04d %2d %2d %2d %2d %2d.%08d", 2023, 1, 1, 0, 15, 0, 0),
			positionLine("G01", -11044.123456, 21000.654321, 5000.0, &clock1),
			positionLine("R01", 7000.111111, -8000.222222, 9000.333333, nil),
		)
	}

	lines = append(lines, "EOF")
	return strings.Join(lines, "\n") + "\n"
}

func validFixture() string {
	return buildFixture(fixtureOptions{timeSystem: "UTC", fileType: "M", secondEpoch: true})
}

func TestParse_ValidTwoSatelliteTwoEpoch(t *testing.T) {
	product, err := Parse([]byte(validFixture()))
	require.NoError(t, err)

	assert.Equal(t, VersionD, product.Version)
	assert.Equal(t, FileTypeMixed, product.FileType)
	assert.Equal(t, "ORBIT", product.DataUsed)
	assert.Equal(t, "IGS14", product.CoordSystem)
	assert.Equal(t, "HLM", product.OrbitType)
	assert.Equal(t, "IGSC", product.Agency)
	assert.Len(t, product.Comments, 1)
	assert.Equal(t, "synthetic fixture for decoder tests", product.Comments[0])
	require.Len(t, product.Satellites, 2)

	g01, err := product.SatelliteWithId("G01")
	require.NoError(t, err)
	require.Len(t, g01.Records, 2)
	assert.InDelta(t, -11044123.456, g01.Records[0].Position.X, 1e-6)
	assert.InDelta(t, 21000654.321, g01.Records[0].Position.Y, 1e-6)
	assert.InDelta(t, 5000000.0, g01.Records[0].Position.Z, 1e-6)
	require.NotNil(t, g01.Records[0].Clock)
	assert.InDelta(t, 100.123456e-6, *g01.Records[0].Clock, 1e-15)

	r01, err := product.SatelliteWithId("R01")
	require.NoError(t, err)
	assert.Nil(t, r01.Records[0].Clock)

	assert.Equal(t, product.Satellites[0].Records[0].Time.Add(15*time.Minute), product.Satellites[0].Records[1].Time)
}

func TestParse_UnknownSatelliteLookup(t *testing.T) {
	product, err := Parse([]byte(validFixture()))
	require.NoError(t, err)

	_, err = product.SatelliteWithId("Z99")
	require.Error(t, err)
	var unknown *UnknownSatelliteError
	assert.ErrorAs(t, err, &unknown)
}

func TestParse_MalformedHeaderLine(t *testing.T) {
	_, err := Parse([]byte("not a valid header line at all\n"))
	require.Error(t, err)
	var malformed *MalformedLineError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, 1, malformed.Line)
}

func TestParse_TrailingGarbageAfterEOF(t *testing.T) {
	data := validFixture() + "garbage that should never be here\n"
	_, err := Parse([]byte(data))
	require.Error(t, err)
	var trailing *TrailingGarbageError
	assert.ErrorAs(t, err, &trailing)
}

func TestParse_HeaderDeclaresMoreSatellitesThanRecordsCover(t *testing.T) {
	data := strings.Replace(validFixture(), "+  "+fmt.Sprintf("%3d", 2), "+  "+fmt.Sprintf("%3d", 3), 1)
	_, err := Parse([]byte(data))
	require.Error(t, err)
}

func TestParse_VelocityRecordPopulatesStdDeviations(t *testing.T) {
	lines := []string{
		fmt.Sprintf("#d%s%04d %2d %2d %2d %2d %2d.%08d %7d %5s %5s %3s %4s",
			"V", 2023, 1, 1, 0, 0, 0, 0, 1, "ORBIT", "IGS14", "HLM", "IGSC"),
		fmt.Sprintf("## %4d %6d.%08d %5d.%08d %5d %1d.%013d", 2243, 0, 0, 900, 0, 59945, 0, 0),
		fmt.Sprintf("+  %3d   %s", 1, "G01"),
		fmt.Sprintf("++       %3d", 0),
		fmt.Sprintf("%%c %-2s cc %-3s ccc cccc cccc cccc.cccc ccccc ccccc ccccc ccccc", "G", "UTC"),
		"%c cc cc ccc ccc cccc cccc cccc.cccc ccccc ccccc ccccc ccccc",
		fmt.Sprintf("%%f %2d.%07d %2d.%09d  0.00000000000  0.000000000000000", 2, 0, 2, 0),
		"%f  0.0000000  0.000000000  0.00000000000  0.000000000000000",
		"%i    0    0    0    0      0      0      0      0         0",
		"%i    0    0    0    0      0      0      0      0         0",
		"/* synthetic fixture for velocity-std decoder test",
		fmt.Sprintf("*  %04d %2d %2d %2d %2d %2d.%08d", 2023, 1, 1, 0, 0, 0, 0),
		positionLine("G01", -11044.123456, 21000.654321, 5000.0, nil),
		velocityLine("G01", 1.1, 2.2, 3.3, 0.5, 10, 11, 12, 20),
		"EOF",
	}
	data := strings.Join(lines, "\n") + "\n"

	product, err := Parse([]byte(data))
	require.NoError(t, err)

	g01, err := product.SatelliteWithId("G01")
	require.NoError(t, err)
	require.Len(t, g01.Records, 1)

	rec := g01.Records[0]
	require.NotNil(t, rec.Velocity)
	assert.InDelta(t, 0.11, rec.Velocity.X, 1e-9)
	assert.InDelta(t, 0.22, rec.Velocity.Y, 1e-9)
	assert.InDelta(t, 0.33, rec.Velocity.Z, 1e-9)

	require.NotNil(t, rec.ClockRate)
	assert.InDelta(t, 0.5e-4, *rec.ClockRate, 1e-12)

	require.NotNil(t, rec.VelocityStd)
	assert.InDelta(t, math.Pow(2.0, 10)*1e-7, rec.VelocityStd.X, 1e-12)
	assert.InDelta(t, math.Pow(2.0, 11)*1e-7, rec.VelocityStd.Y, 1e-12)
	assert.InDelta(t, math.Pow(2.0, 12)*1e-7, rec.VelocityStd.Z, 1e-12)

	require.NotNil(t, rec.ClockRateStd)
	assert.InDelta(t, math.Pow(2.0, 20)*1e-16, *rec.ClockRateStd, 1e-20)
}
