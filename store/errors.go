package store

import "errors"

var (
	// ErrEmptyPage is returned when a page view is recorded without a page.
	ErrEmptyPage = errors.New("page is required")

	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("user already exists")
)
