package marketdata

import "errors"

var (
	// ErrCacheError is returned when a cache read or write fails for a
	// reason other than a plain cache miss.
	ErrCacheError = errors.New("cache error")

	// ErrNoData is returned on a cache miss.
	ErrNoData = errors.New("no data available")
)
