package provider

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnss-tools/sp3eph/pkg/gnss"
)

// buildSingleSatelliteFixture writes a minimal, internally-consistent SP3
// file with one satellite and n UTC-system epochs at a 15-minute cadence,
// following the same column layout as pkg/sp3's decoder tests.
func buildSingleSatelliteFixture(satId string, n int) string {
	lines := []string{
		fmt.Sprintf("#d%s%04d %2d %2d %2d %2d %2d.%08d %7d %5s %5s %3s %4s",
			"P", 2023, 1, 1, 0, 0, 0, 0, n, "ORBIT", "IGS14", "HLM", "IGSC"),
		fmt.Sprintf("## %4d %6d.%08d %5d.%08d %5d %1d.%013d", 2243, 0, 0, 900, 0, 59945, 0, 0),
		fmt.Sprintf("+  %3d   %s", 1, satId),
		fmt.Sprintf("++       %3d", 0),
		fmt.Sprintf("%%c %-2s cc %-3s ccc cccc cccc cccc.cccc ccccc ccccc ccccc ccccc", "G", "UTC"),
		"%c cc cc ccc ccc cccc cccc cccc.cccc ccccc ccccc ccccc ccccc",
		fmt.Sprintf("%%f %2d.%07d %2d.%09d  0.00000000000  0.000000000000000", 2, 0, 2, 0),
		"%f  0.0000000  0.000000000  0.00000000000  0.000000000000000",
		"%i    0    0    0    0      0      0      0      0         0",
		"%i    0    0    0    0      0      0      0      0         0",
		"/* synthetic fixture for provider tests",
	}

	for k := 0; k < n; k++ {
		minutes := k * 15
		hour := minutes / 60
		minute := minutes % 60
		lines = append(lines, fmt.Sprintf("*  %04d %2d %2d %2d %2d %2d.%08d", 2023, 1, 1, hour, minute, 0, 0))
		x := 7000e3 + float64(k)*10
		y := -8000e3 + float64(k)*5
		z := 9000e3 - float64(k)*3
		lines = append(lines, fmt.Sprintf("P%s%14.6f%14.6f%14.6f%s", satId, x, y, z, strings.Repeat(" ", 14)))
	}
	lines = append(lines, "EOF")
	return strings.Join(lines, "\n") + "\n"
}

func TestFileProvider_ResolveAndLoad(t *testing.T) {
	dir := t.TempDir()
	fixture := buildSingleSatelliteFixture("G01", 20)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fixture.sp3"), []byte(fixture), 0o644))

	fp := &FileProvider{
		NameTemplate: "fixture.sp3",
		Sp3IdSet:     map[string]struct{}{"G01": {}},
		TimeSys:      gnss.UTC,
		DurationVal:  24 * time.Hour,
	}

	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	begin := start.Add(75 * time.Minute)  // record index 5
	end := start.Add(225 * time.Minute)   // record index 15

	records, err := Load(context.Background(), "G01", begin, end, 3, dir, WithProviders([]Provider{fp}))
	require.NoError(t, err)
	assert.Greater(t, len(records), 10)
	assert.True(t, records[0].Time.Before(begin) || records[0].Time.Equal(begin))
}

func TestLoad_UnknownSatelliteFallsThroughProviders(t *testing.T) {
	dir := t.TempDir()
	fixture := buildSingleSatelliteFixture("G01", 20)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fixture.sp3"), []byte(fixture), 0o644))

	fp := &FileProvider{
		NameTemplate: "fixture.sp3",
		Sp3IdSet:     map[string]struct{}{"G99": {}}, // claims to cover a satellite it doesn't carry
		TimeSys:      gnss.UTC,
		DurationVal:  24 * time.Hour,
	}

	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := Load(context.Background(), "G99", start.Add(75*time.Minute), start.Add(225*time.Minute), 3, dir,
		WithProviders([]Provider{fp}))
	require.Error(t, err)
	var noProvider *ErrNoSuitableProvider
	assert.ErrorAs(t, err, &noProvider)
}

func TestLoad_NoProviderCoversId(t *testing.T) {
	_, err := Load(context.Background(), "Z99", time.Now(), time.Now(), 3, t.TempDir(), WithProviders(nil))
	require.Error(t, err)
	var noProvider *ErrNoSuitableProvider
	assert.ErrorAs(t, err, &noProvider)
}
