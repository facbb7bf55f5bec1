package sp3

import "fmt"

// MalformedLineError is raised when a line does not match any accepted
// pattern for the decoder's current state.
type MalformedLineError struct {
	Line            int
	ExpectedPattern string
	Content         string
}

func (e *MalformedLineError) Error() string {
	return fmt.Sprintf("sp3: line %d: expected %s, got %q", e.Line, e.ExpectedPattern, e.Content)
}

// HeaderInconsistentError is raised when a cross-check between header
// fields, or between the header and the body, fails.
type HeaderInconsistentError struct {
	Detail string
}

func (e *HeaderInconsistentError) Error() string {
	return fmt.Sprintf("sp3: header inconsistent: %s", e.Detail)
}

// UnsupportedFeatureError is raised when an EP or EV correlation line is
// encountered; their parsing is deferred (see package docs).
type UnsupportedFeatureError struct {
	Kind string
	Line int
}

func (e *UnsupportedFeatureError) Error() string {
	return fmt.Sprintf("sp3: line %d: unsupported feature %q", e.Line, e.Kind)
}

// TrailingGarbageError is raised when non-blank content follows the EOF
// sentinel.
type TrailingGarbageError struct {
	Line int
}

func (e *TrailingGarbageError) Error() string {
	return fmt.Sprintf("sp3: line %d: trailing garbage after EOF", e.Line)
}

// UnknownSatelliteError is raised by Product.SatelliteWithId when the
// requested id is not present.
type UnknownSatelliteError struct {
	Id string
}

func (e *UnknownSatelliteError) Error() string {
	return fmt.Sprintf("sp3: unknown satellite %q", e.Id)
}
