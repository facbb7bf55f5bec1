// Package gnss provides the epoch time systems and satellite identifier
// vocabulary shared by the SP3 decoder and the interpolation core.
package gnss

import (
	"fmt"
	"time"

	"github.com/brandondube/tai"
)

// TimeSystem is one of the eight epoch time bases recognised in an SP3
// header's "%c" line.
type TimeSystem int

// Available time systems.
const (
	GPS TimeSystem = iota + 1
	GLO
	GAL
	BDT
	TAI_
	UTC
	IRN
	QZS
)

// gpsLeapOffset is the constant TAI-GPS offset: GPS time was aligned with
// UTC (then TAI-19s) at the GPS epoch and has not applied leap seconds since.
const gpsLeapOffset = 19 * time.Second

// glonassUTCOffset is GLONASS time's fixed civil offset from UTC (Moscow
// time, UTC+3h, with no leap-second adjustment of its own).
const glonassUTCOffset = 3 * time.Hour

func (sys TimeSystem) String() string {
	switch sys {
	case GPS:
		return "GPS"
	case GLO:
		return "GLO"
	case GAL:
		return "GAL"
	case BDT:
		return "BDT"
	case TAI_:
		return "TAI"
	case UTC:
		return "UTC"
	case IRN:
		return "IRN"
	case QZS:
		return "QZS"
	default:
		return ""
	}
}

// timeSystemPerAbbr maps the 3-byte tag used in SP3 "%c" lines to a
// TimeSystem value.
var timeSystemPerAbbr = map[string]TimeSystem{
	"GPS": GPS,
	"GLO": GLO,
	"GAL": GAL,
	"BDT": BDT,
	"TAI": TAI_,
	"UTC": UTC,
	"IRN": IRN,
	"QZS": QZS,
}

// ParseTimeSystem resolves the 3-character SP3 time system tag.
func ParseTimeSystem(tag string) (TimeSystem, error) {
	sys, ok := timeSystemPerAbbr[tag]
	if !ok {
		return 0, fmt.Errorf("gnss: unknown time system %q", tag)
	}
	return sys, nil
}

// civilTAI lifts calendar digits directly onto the TAI scale, bypassing
// the leap-second table: the caller-supplied wall-clock fields are
// interpreted as genuine TAI digits, not UTC ones.
func civilTAI(t time.Time) tai.TAI {
	h, m, s := t.Clock()
	v := tai.Date(t.Year(), int(t.Month()), t.Day()).AddHMS(h, m, s)
	if ns := t.Nanosecond(); ns != 0 {
		v = v.Add(0, int64(ns)*tai.Nanosecond)
	}
	return v
}

// civilFromTAI is the inverse of civilTAI: it renders a TAI value back
// into calendar digits on the TAI scale (not converting it to UTC).
func civilFromTAI(v tai.TAI) time.Time {
	g := v.AsGregorian()
	return time.Date(g.Year, time.Month(g.Month), g.Day, g.Hour, g.Min, g.Sec,
		int(g.Asec/tai.Nanosecond), time.UTC)
}

// ToUTC interprets t as an instant in this time system and returns the
// corresponding UTC instant.
func (sys TimeSystem) ToUTC(t time.Time) (time.Time, error) {
	switch sys {
	case GPS, IRN, QZS:
		// GPS/IRN/QZS run on TAI-19s: read t as TAI-19s, i.e. add 19s to
		// land on the TAI scale, then drop to UTC through the leap table.
		taiValue := civilTAI(t).Add(int64(gpsLeapOffset/time.Second), 0)
		secs, nsecs := taiValue.Unix()
		return time.Unix(secs, nsecs).UTC(), nil
	case GLO:
		return t.Add(-glonassUTCOffset), nil
	case GAL, TAI_:
		secs, nsecs := civilTAI(t).Unix()
		return time.Unix(secs, nsecs).UTC(), nil
	case BDT, UTC:
		// BDT is treated as identical to UTC in this core; see the
		// project notes on this known simplification.
		return t, nil
	default:
		return time.Time{}, fmt.Errorf("gnss: unsupported time system %d", sys)
	}
}

// FromUTC is the inverse of ToUTC.
func (sys TimeSystem) FromUTC(utc time.Time) (time.Time, error) {
	switch sys {
	case GPS, IRN, QZS:
		v := tai.FromTime(utc).Add(-int64(gpsLeapOffset/time.Second), 0)
		return civilFromTAI(v), nil
	case GLO:
		return utc.Add(glonassUTCOffset), nil
	case GAL, TAI_:
		return civilFromTAI(tai.FromTime(utc)), nil
	case BDT, UTC:
		return utc, nil
	default:
		return time.Time{}, fmt.Errorf("gnss: unsupported time system %d", sys)
	}
}

// OffsetSeconds adds delta seconds, in this system's native scale, to the
// UTC instant t and returns the resulting UTC instant.
func (sys TimeSystem) OffsetSeconds(t time.Time, delta float64) (time.Time, error) {
	switch sys {
	case GPS, IRN, QZS, GAL, TAI_:
		whole := int64(delta)
		frac := delta - float64(whole)
		v := tai.FromTime(t).Add(whole, int64(frac*1e18))
		secs, nsecs := v.Unix()
		return time.Unix(secs, nsecs).UTC(), nil
	case GLO, BDT, UTC:
		return t.Add(time.Duration(delta * float64(time.Second))), nil
	default:
		return time.Time{}, fmt.Errorf("gnss: unsupported time system %d", sys)
	}
}
