package models

import "time"

// Link represents a shortened link and its associated metadata.
type Link struct {
	// ID is the unique identifier for the link record. Generated short
	// codes are the base62 encoding of this value.
	ID int64
	// Code is the short code associated with the target URL, either
	// user-chosen or derived from ID.
	Code string
	// TargetURL is the original, full-length URL that the code points to.
	TargetURL string
	// ClickCount tracks the number of times the link has been resolved.
	ClickCount int64
	// CreatedAt is the timestamp indicating when the link was created.
	CreatedAt time.Time
	// LastAccessedAt is set on each successful resolution, nil until the
	// first one.
	LastAccessedAt *time.Time
	// ExpiresAt, when set, marks the moment after which resolution is
	// refused. Nil means the link never expires.
	ExpiresAt *time.Time
}

// Expired reports whether the link is past its expiry at the given moment.
func (l *Link) Expired(now time.Time) bool {
	return l.ExpiresAt != nil && !now.Before(*l.ExpiresAt)
}
