package music

import (
	"fmt"
	"time"
)

const (
	BoundBegin = "begin"
	BoundEnd   = "end"
)

var (
	beginOfTime = time.Date(1, time.January, 1, 0, 0, 0, 0, time.UTC)
	endOfTime   = time.Date(9999, time.December, 31, 0, 0, 0, 0, time.UTC)
)

// BoundDate returns the open-ended placeholder date for "begin" or "end".
func BoundDate(bound string) (time.Time, error) {
	switch bound {
	case BoundBegin:
		return beginOfTime, nil
	case BoundEnd:
		return endOfTime, nil
	}
	return time.Time{}, fmt.Errorf("%w: invalid bound %q, should be 'begin' or 'end'", ErrValidation, bound)
}

// ToDate parses a year, year-month or full date string. A nil date resolves
// to the placeholder for bound.
func ToDate(bound string, date *string) (time.Time, error) {
	if date == nil {
		if bound == "" {
			return time.Time{}, fmt.Errorf("%w: need a bound or a date string", ErrValidation)
		}
		return BoundDate(bound)
	}
	var layout string
	switch len(*date) {
	case 4:
		layout = "2006"
	case 7:
		layout = "2006-01"
	case 10:
		layout = time.DateOnly
	default:
		return time.Time{}, fmt.Errorf("%w: unexpected date string format: %q", ErrValidation, *date)
	}
	t, err := time.Parse(layout, *date)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: parse date %q: %v", ErrValidation, *date, err)
	}
	return t, nil
}
