package js5

import "errors"

// Sentinel errors for cache operations.
//
// Errors returned by this package wrap one of these sentinels together with
// the index and group id involved, so callers can both match with
// [errors.Is] and report the offending identifier.
var (
	// ErrNotFound is returned when the cache data or index file is missing.
	ErrNotFound = errors.New("js5: cache file not found")

	// ErrOutOfRange is returned when a group id is outside the index bounds.
	ErrOutOfRange = errors.New("js5: group out of range")

	// ErrEmptyGroup is returned for a valid index slot with no stored payload.
	ErrEmptyGroup = errors.New("js5: empty group")

	// ErrCorruptHeader is returned when a container or group header is
	// truncated or carries an unrecognized compression tag.
	ErrCorruptHeader = errors.New("js5: corrupt container header")

	// ErrDecompression is returned when a container body fails to decompress
	// to its declared length.
	ErrDecompression = errors.New("js5: decompression failed")

	// ErrSectorCorrupt is returned when a data-file sector fails validation
	// against the group being read.
	ErrSectorCorrupt = errors.New("js5: corrupt sector")

	// ErrGroupTooLarge is returned when an index entry declares a size above
	// the configured limit.
	ErrGroupTooLarge = errors.New("js5: group too large")
)
