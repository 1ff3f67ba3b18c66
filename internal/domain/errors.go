package domain

import "errors"

var (
	// ErrNoFeeds is returned when no merchant feed is configured
	ErrNoFeeds = errors.New("no merchant feeds configured")

	// ErrCatalogNotFound is returned when the editorial catalog document is missing
	ErrCatalogNotFound = errors.New("editorial catalog not found")

	// ErrMalformedCatalog is returned when the editorial catalog cannot be decoded
	ErrMalformedCatalog = errors.New("malformed editorial catalog")

	// ErrMalformedMap is returned when the persisted affiliate map cannot be decoded
	ErrMalformedMap = errors.New("malformed affiliate map")

	// ErrNoMatch is returned when no candidate matches a product name
	ErrNoMatch = errors.New("no matching offer")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrFeedUnavailable is returned when a feed cannot be fetched
	ErrFeedUnavailable = errors.New("feed request failed")

	// ErrMapUnavailable is returned when the affiliate map cannot be fetched
	ErrMapUnavailable = errors.New("affiliate map unavailable")
)
