package domain

import "errors"

var (
	// ErrEntryNotFound indicates a cache key has no stored entry.
	ErrEntryNotFound = errors.New("cache entry not found")
	// ErrPartitionsNotConfigured indicates missing partition store wiring.
	ErrPartitionsNotConfigured = errors.New("partition store is not configured")
	// ErrFetcherNotConfigured indicates missing origin fetcher wiring.
	ErrFetcherNotConfigured = errors.New("origin fetcher is not configured")
	// ErrMethodIneligible indicates a side-effecting method reached an
	// intercept-only code path.
	ErrMethodIneligible = errors.New("method is not eligible for interception")
	// ErrTagRequired indicates a deferred task registration without a tag.
	ErrTagRequired = errors.New("task tag is required")
	// ErrHandlerRequired indicates a deferred task registration without a handler.
	ErrHandlerRequired = errors.New("task handler is required")
)
