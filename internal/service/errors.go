package service

import "errors"

var (
	// ErrInvalidURL is returned when the target URL is not an absolute
	// http or https URL.
	ErrInvalidURL = errors.New("invalid target url")
	// ErrAliasInvalid is returned when a requested alias violates the
	// allowed character set or length bounds.
	ErrAliasInvalid = errors.New("invalid alias")
	// ErrAliasTaken is returned when a requested alias collides with an
	// existing short code.
	ErrAliasTaken = errors.New("alias taken")
	// ErrInvalidExpiry is returned when the requested expiry is not a
	// positive number of days.
	ErrInvalidExpiry = errors.New("invalid expiry")
)
