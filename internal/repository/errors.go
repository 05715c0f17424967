// Package repository implements MySQL persistence for the booking engine.
// This file defines error values reused across repositories so that
// handlers can distinguish failure scenarios. For example, ErrForbidden
// indicates that the caller is not allowed to act on a reservation that
// belongs to someone else, while ErrNotFound signals that the requested
// row does not exist (distinct from sql.ErrNoRows so callers are not
// coupled to database/sql).
package repository

import "errors"

// ErrNotFound is returned when a schedule, override or reservation
// lookup matches no row. Handlers should translate this into an HTTP
// 404 response.
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when a customer attempts a self-service
// operation on a reservation whose contact details do not match.
// Handlers should translate this into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrInvalidTransition is returned when a lifecycle operation is
// requested from a status that does not permit it, e.g. seating a
// cancelled reservation. It is distinct from ErrNotFound so the admin
// UI can tell "no such reservation" from "invalid request for its
// current state". Handlers should translate this into an HTTP 409
// response carrying the current status.
var ErrInvalidTransition = errors.New("invalid transition")

// ErrDuplicate is returned when an insert violates a uniqueness
// constraint, such as publishing a schedule version that already
// exists for a weekday and effective date. Handlers should translate
// this into an HTTP 409 response.
var ErrDuplicate = errors.New("duplicate")
