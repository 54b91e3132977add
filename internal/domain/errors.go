package domain

import "errors"

var (
	// ErrIndexOutOfRange is returned when an EMA window extends outside the
	// sample slice.
	ErrIndexOutOfRange = errors.New("index out of range")

	// ErrNoData is returned when a price series is empty.
	ErrNoData = errors.New("no data")

	// ErrDivisionByZero is returned when the initial valuation is zero and a
	// profit percentage cannot be computed.
	ErrDivisionByZero = errors.New("division by zero")

	// ErrInvalidConfig is returned for out-of-range simulation settings.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrLengthMismatch is returned when a row count disagrees with the
	// length of the input series.
	ErrLengthMismatch = errors.New("length mismatch")

	// ErrInvalidPeriod is returned for negative or inconsistent indicator
	// periods.
	ErrInvalidPeriod = errors.New("invalid period")

	// ErrInvalidSeries is returned when a price series breaks ordering or
	// positivity rules.
	ErrInvalidSeries = errors.New("invalid price series")
)
