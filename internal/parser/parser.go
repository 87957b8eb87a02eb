// Package parser extracts YAML frontmatter and article metadata from Hugo
// Markdown files.
package parser

import (
	"bytes"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/starford/ansuz/internal/models"
)

var (
	headingRe  = regexp.MustCompile(`(?m)#+ `)
	mdLinkRe   = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	mdMarkerRe = regexp.MustCompile("[*_`]")
)

const excerptLen = 200

// Result holds the raw output of splitting a Markdown file.
type Result struct {
	Frontmatter map[string]any
	Body        string
}

// Parse separates YAML frontmatter (between leading --- delimiters) from the
// Markdown body. Both delimiters must be lines containing exactly ---; a
// line like ---- or ---suffix never opens or closes a block. Absent,
// unclosed, or invalid frontmatter is never an error: the entire content
// becomes the body and the metadata stays empty.
func Parse(data []byte) *Result {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return &Result{Body: string(data)}
	}
	rest := trimmed[len(delim):]
	if len(rest) > 0 && rest[0] != '\n' && rest[0] != '\r' {
		return &Result{Body: string(data)}
	}

	idx := closingDelim(rest)
	if idx < 0 {
		return &Result{Body: string(data)}
	}

	yamlBlock := rest[:idx]
	afterDelim := rest[idx+1+len(delim):]
	body := strings.TrimLeft(string(afterDelim), "\n\r")

	var fm map[string]any
	if err := yaml.Unmarshal(yamlBlock, &fm); err != nil {
		return &Result{Body: string(data)}
	}
	return &Result{Frontmatter: fm, Body: body}
}

// closingDelim finds the first \n--- whose delimiter line ends right there
// (newline or EOF follows), returning the offset of the newline or -1.
func closingDelim(rest []byte) int {
	const marker = "\n---"
	from := 0
	for {
		i := bytes.Index(rest[from:], []byte(marker))
		if i < 0 {
			return -1
		}
		pos := from + i
		after := pos + len(marker)
		if after == len(rest) || rest[after] == '\n' || rest[after] == '\r' {
			return pos
		}
		from = pos + 1
	}
}

// ParseFile reads and parses one content file into a Post.
//
// A directory yields a zero-value Post with ModTime 0 rather than an error;
// reconciliation treats such records as not indexable. A missing file is an
// error the caller maps to its own not-found handling.
func ParseFile(absPath string) (*models.Post, error) {
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return &models.Post{Path: absPath, Tags: []string{}, Categories: []string{}, Draft: true}, nil
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, err
	}

	post := FromContent(absPath, data)
	post.ModTime = info.ModTime().UnixNano()
	return post, nil
}

// FromContent builds a Post from raw file bytes. ModTime is left to the
// caller since the bytes alone carry no filesystem identity.
func FromContent(absPath string, data []byte) *models.Post {
	res := Parse(data)
	fm := res.Frontmatter

	post := &models.Post{
		Path:        absPath,
		Title:       stringField(fm, "title"),
		Description: stringField(fm, "description"),
		Date:        dateField(fm, "date"),
		Tags:        listField(fm, "tags"),
		Categories:  listField(fm, "categories"),
		Draft:       IsDraft(fm),
		Body:        res.Body,
		Excerpt:     Excerpt(res.Body),
		Meta:        residualMeta(fm),
	}
	return post
}

// Excerpt strips Markdown syntax from body and truncates to 200 characters,
// appending an ellipsis only when the text was actually cut.
func Excerpt(body string) string {
	if body == "" {
		return ""
	}
	text := headingRe.ReplaceAllString(body, "")
	text = mdLinkRe.ReplaceAllString(text, "$1")
	text = mdMarkerRe.ReplaceAllString(text, "")
	text = strings.TrimSpace(text)

	runes := []rune(text)
	if len(runes) <= excerptLen {
		return text
	}
	return string(runes[:excerptLen]) + "..."
}

func stringField(fm map[string]any, key string) string {
	if fm == nil {
		return ""
	}
	if s, ok := fm[key].(string); ok {
		return s
	}
	return ""
}

// IsDraft reads the draft flag; articles without one are drafts.
func IsDraft(fm map[string]any) bool {
	if fm == nil {
		return true
	}
	if b, ok := fm["draft"].(bool); ok {
		return b
	}
	return true
}

// dateField decodes the publication date. String values are tried as full
// RFC 3339 first (offset or Z suffix), then as a bare YYYY-MM-DD date.
// Anything else leaves the date nil.
func dateField(fm map[string]any, key string) *time.Time {
	if fm == nil {
		return nil
	}
	switch v := fm[key].(type) {
	case time.Time:
		return &v
	case string:
		return ParseDate(v)
	default:
		return nil
	}
}

// ParseDate parses an ISO-8601-like date string, or returns nil.
func ParseDate(s string) *time.Time {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return &t
	}
	return nil
}

// listField normalises a scalar-or-sequence frontmatter field into a string
// slice, preserving authored order. A bare string becomes a one-element
// slice; the ambiguity never leaks past this package.
func listField(fm map[string]any, key string) []string {
	out := []string{}
	if fm == nil {
		return out
	}
	switch v := fm[key].(type) {
	case string:
		out = append(out, v)
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
	case []string:
		out = append(out, v...)
	}
	return out
}

// residualMeta returns the frontmatter keys not covered by typed Post fields.
func residualMeta(fm map[string]any) map[string]any {
	if len(fm) == 0 {
		return nil
	}
	known := map[string]struct{}{
		"title": {}, "date": {}, "description": {},
		"tags": {}, "categories": {}, "draft": {},
	}
	var out map[string]any
	for k, v := range fm {
		if _, ok := known[k]; ok {
			continue
		}
		if out == nil {
			out = make(map[string]any)
		}
		out[k] = v
	}
	return out
}
