// Package repository defines error values shared by every storage
// backend.  The lending engine and the handlers match on these
// sentinels with errors.Is instead of inspecting driver errors, so
// the MySQL and in-memory implementations stay interchangeable.
package repository

import "errors"

// ErrNotFound is returned when a requested entity does not exist.
// Handlers translate it into an HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert violates a uniqueness
// constraint, such as registering an already-taken username or
// ISBN.  Handlers translate it into an HTTP 409 response.
var ErrDuplicate = errors.New("duplicate")
