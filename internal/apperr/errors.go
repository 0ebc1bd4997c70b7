package apperr

import "errors"

var (
	// ErrSourceUnavailable means the data source could not be fetched and
	// no cached snapshot exists to fall back on.
	ErrSourceUnavailable = errors.New("knowledge source unavailable")
)
