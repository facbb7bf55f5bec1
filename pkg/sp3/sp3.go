// Package sp3 decodes IGS SP3 (versions c and d) precise ephemeris files
// into a typed Product with physical units normalized to metres, metres
// per second and seconds.
package sp3

import (
	"fmt"
	"time"

	"github.com/gnss-tools/sp3eph/pkg/gnss"
)

// Version is the SP3 format revision.
type Version byte

const (
	VersionC Version = 'c'
	VersionD Version = 'd'
)

func (v Version) String() string { return string(v) }

// FileType is the constellation (or MIXED) the product covers.
type FileType byte

const (
	FileTypeGPS     FileType = 'G'
	FileTypeMixed   FileType = 'M'
	FileTypeGlonass FileType = 'R'
	FileTypeLeo     FileType = 'L'
	FileTypeSBAS    FileType = 'S'
	FileTypeIRNSS   FileType = 'I'
	FileTypeGalileo FileType = 'E'
	FileTypeBeidou  FileType = 'C'
	FileTypeQZSS    FileType = 'J'
)

func (f FileType) String() string {
	switch f {
	case FileTypeGPS:
		return "GPS"
	case FileTypeMixed:
		return "MIXED"
	case FileTypeGlonass:
		return "GLONASS"
	case FileTypeLeo:
		return "LEO"
	case FileTypeSBAS:
		return "SBAS"
	case FileTypeIRNSS:
		return "IRNSS"
	case FileTypeGalileo:
		return "GALILEO"
	case FileTypeBeidou:
		return "BEIDOU"
	case FileTypeQZSS:
		return "QZSS"
	default:
		return fmt.Sprintf("FileType(%q)", byte(f))
	}
}

// Vector3 is a 3-component (x, y, z) tuple, reused for position, velocity
// and their standard deviations.
type Vector3 struct {
	X, Y, Z float64
}

// Record is one tabulated sample for one satellite at one epoch.
type Record struct {
	Time time.Time

	Position    Vector3  // metres, ECEF
	PositionStd *Vector3 // metres

	Velocity    *Vector3 // m/s
	VelocityStd *Vector3 // m/s

	Clock    *float64 // seconds
	ClockStd *float64 // seconds

	ClockRate    *float64 // s/s
	ClockRateStd *float64 // s/s

	ClockEvent     bool
	ClockPredicted bool

	// Correlation scalars reserved for EP/EV lines. Parsing EP/EV is
	// deferred (UnsupportedFeatureError); these are always nil today.
	PositionClockCorrelation     *PositionClockCorrelation
	VelocityClockRateCorrelation *PositionClockCorrelation
}

// PositionClockCorrelation holds the six correlation scalars carried by an
// EP (or, for velocity, EV) line.
type PositionClockCorrelation struct {
	XY, XZ, XC, YZ, YC, ZC float64
}

// Satellite is one SP3 satellite's ordered record sequence.
type Satellite struct {
	// Id is the 3-byte SP3 identifier, matching [A-Z]\d\d.
	Id string
	// Accuracy is the satellite's declared accuracy exponent, converted
	// to metres, or nil if unset (exponent 0 in the "++" line).
	Accuracy *float64
	Records  []Record
}

// Product is a fully decoded SP3 file.
type Product struct {
	Version       Version
	FileType      FileType
	TimeSystem    gnss.TimeSystem
	DataUsed      string
	CoordSystem   string
	OrbitType     string
	Agency        string
	Comments      []string
	EpochInterval time.Duration
	Satellites    []Satellite
}

// SatelliteWithId returns the satellite matching sp3Id, or an
// UnknownSatelliteError if none is present.
func (p *Product) SatelliteWithId(sp3Id string) (*Satellite, error) {
	for i := range p.Satellites {
		if p.Satellites[i].Id == sp3Id {
			return &p.Satellites[i], nil
		}
	}
	return nil, &UnknownSatelliteError{Id: sp3Id}
}
