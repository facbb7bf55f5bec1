package fit

import (
	"fmt"
	"time"
)

// InsufficientRecordsError is raised by Build when fewer than 2w+1 records
// are supplied for the requested window.
type InsufficientRecordsError struct {
	Have int
	Need int
}

func (e *InsufficientRecordsError) Error() string {
	return fmt.Sprintf("fit: insufficient records: have %d, need at least %d", e.Have, e.Need)
}

// InvalidParametersError is raised by Build when the window/degree pair
// violates w >= 1, d >= 0 or 2w+1 > d.
type InvalidParametersError struct {
	Window int
	Degree int
}

func (e *InvalidParametersError) Error() string {
	return fmt.Sprintf("fit: invalid parameters: window=%d degree=%d (require window>=1, degree>=0, 2*window+1>degree)", e.Window, e.Degree)
}

// OutOfRangeError is raised by Evaluate when a query instant falls outside
// [minimum_time, maximum_time).
type OutOfRangeError struct {
	Side string // "before" or "after"
	Time time.Time
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("fit: query time %s is %s the covered range", e.Time.Format(time.RFC3339Nano), e.Side)
}
