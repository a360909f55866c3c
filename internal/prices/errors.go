package prices

import "errors"

var (
	// ErrPeriodNotFound indicates the table has no price for the period.
	ErrPeriodNotFound = errors.New("no price for period")

	// ErrMalformedTable indicates the cache or download could not be parsed.
	ErrMalformedTable = errors.New("malformed price table")

	// ErrFetchFailed indicates the download retry budget was exhausted.
	ErrFetchFailed = errors.New("price download failed")
)
