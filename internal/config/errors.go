package config

import "errors"

var (
	// ErrNotFound is returned when a requested resource does not exist in the store.
	ErrNotFound = errors.New("not found")

	// ErrAdminExists is returned by CreateFirstAdmin when any admin is already present.
	ErrAdminExists = errors.New("admin already exists")

	// ErrDuplicateEmail is returned when an insert collides with an existing email.
	ErrDuplicateEmail = errors.New("email already registered")

	// ErrDuplicateSlug is returned when a portfolio write collides with an
	// existing slug.
	ErrDuplicateSlug = errors.New("slug already in use")

	// ErrUnsupportedDriver is returned by Open for drivers without a dialect.
	ErrUnsupportedDriver = errors.New("unsupported store driver")
)
