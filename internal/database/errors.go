package database

import "errors"

var (
	// ErrCodeExists is returned when an attempt is made to create
	// a new link with a short code that already exists.
	ErrCodeExists = errors.New("short code exists")
	// ErrLinkNotFound is returned when an attempt is made to retrieve
	// a link using a short code that doesn't exist.
	ErrLinkNotFound = errors.New("link not found")
	// ErrLinkExpired is returned when a link exists but its expiry
	// has elapsed, so resolution must refuse the redirect.
	ErrLinkExpired = errors.New("link expired")
)
