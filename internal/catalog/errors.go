package catalog

import "errors"

var (
	// ErrCatalogUnavailable is returned when a catalog could not be fetched
	// or the bundled resource is missing or unreadable.
	ErrCatalogUnavailable = errors.New("catalog unavailable")

	// ErrCountryNotFound is returned by lookups for a code that is not in the
	// loaded catalog.
	ErrCountryNotFound = errors.New("country not found")
)
