// Package storage defines the content-directory file-system abstraction.
package storage

import "github.com/starford/ansuz/internal/models"

// Provider is the interface for content file operations.
type Provider interface {
	// List returns path and mtime for every eligible .md file under the
	// content root (regular files only, paths relative to the root).
	List() ([]models.FileMeta, error)
	// Read returns the raw bytes of the file at path (relative to the root).
	Read(path string) ([]byte, error)
	// Write atomically writes content to path (relative to the root).
	Write(path string, content []byte) error
	// Delete removes the file at path (relative to the root).
	Delete(path string) error
	// Abs resolves a relative or absolute path against the content root and
	// rejects anything escaping it with apperr.ErrForbidden.
	Abs(path string) (string, error)
	// Rel converts an absolute path under the root to a root-relative one.
	Rel(abs string) string
	// Root returns the absolute content root directory.
	Root() string
}
