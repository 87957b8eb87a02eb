// Package apperr defines the sentinel errors shared across Ansuz services.
package apperr

import "errors"

var (
	// ErrNotFound signals a missing file or index row.
	ErrNotFound = errors.New("not found")
	// ErrForbidden signals a path resolving outside the content root.
	ErrForbidden = errors.New("forbidden path")
	// ErrAlreadyPublished signals a publish attempt on a non-draft article.
	ErrAlreadyPublished = errors.New("already published")
	// ErrLockTimeout signals that the per-file advisory lock could not be
	// acquired within the configured timeout.
	ErrLockTimeout = errors.New("lock timeout")
	// ErrConflict signals an optimistic-concurrency checksum mismatch.
	ErrConflict = errors.New("conflict")
	// ErrStorage signals a failed database operation; the underlying
	// driver error is wrapped alongside it.
	ErrStorage = errors.New("storage failure")
)
