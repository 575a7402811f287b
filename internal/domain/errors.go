package domain

import "errors"

var (
	// ErrNotFound is returned when a document or record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrPermissionDenied is returned when the caller may not read or write a record.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrUnavailable wraps transport and backend failures of the document store.
	ErrUnavailable = errors.New("store unavailable")
	// ErrInvalidInput indicates a malformed request (bad option index, empty id, bad CSV).
	ErrInvalidInput = errors.New("invalid input")
	// ErrAlreadyExists is returned when creating a keyed record whose key is taken.
	ErrAlreadyExists = errors.New("already exists")
	// ErrInUse is returned when deleting a record that other records still reference.
	ErrInUse = errors.New("still referenced")
	// ErrNotSignedIn is returned by session operations for a user without an active session.
	ErrNotSignedIn = errors.New("no active session")
)
