// Package models defines the domain types for Ansuz.
package models

import "time"

// Post represents a parsed Hugo article. The identity of a post is the
// absolute path of its backing Markdown file.
type Post struct {
	Path         string         `json:"full_path"`
	RelativePath string         `json:"path"`
	Title        string         `json:"title"`
	Date         *time.Time     `json:"date,omitempty"`
	Description  string         `json:"description"`
	Excerpt      string         `json:"excerpt"`
	Tags         []string       `json:"tags"`
	Categories   []string       `json:"categories"`
	Draft        bool           `json:"draft"`
	Body         string         `json:"-"`
	// Meta carries frontmatter keys the typed fields do not cover, so that
	// status and editor responses can pass the full frontmatter through.
	Meta map[string]any `json:"metadata,omitempty"`
	// ModTime is the file mtime in Unix nanoseconds. It is the sole
	// staleness signal used by reconciliation; 0 means "not a regular file".
	ModTime int64 `json:"mod_time"`
}

// FileMeta is a lightweight listing entry for one eligible content file.
type FileMeta struct {
	Path    string    // relative to the content root
	ModTime time.Time // filesystem mtime
}

// NameCount is one entry of a tag or category aggregate.
type NameCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}
