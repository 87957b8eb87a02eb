package parser

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParseFrontmatterAndBody(t *testing.T) {
	content := `---
title: "Hello"
date: 2024-03-01
tags:
  - go
  - hugo
draft: false
---

Body text here.
`
	res := Parse([]byte(content))
	if res.Frontmatter["title"] != "Hello" {
		t.Errorf("title = %v, want Hello", res.Frontmatter["title"])
	}
	if res.Body != "Body text here.\n" {
		t.Errorf("body = %q", res.Body)
	}
}

func TestParseNoFrontmatter(t *testing.T) {
	content := "# Just a heading\n\nSome text."
	res := Parse([]byte(content))
	if res.Frontmatter != nil {
		t.Errorf("frontmatter = %v, want nil", res.Frontmatter)
	}
	if res.Body != content {
		t.Errorf("body = %q, want full content", res.Body)
	}
}

func TestParseUnclosedFrontmatter(t *testing.T) {
	content := "---\ntitle: Broken\n\nnever closed"
	res := Parse([]byte(content))
	if res.Frontmatter != nil {
		t.Errorf("frontmatter = %v, want nil", res.Frontmatter)
	}
	if res.Body != content {
		t.Errorf("body = %q, want full content preserved", res.Body)
	}
}

func TestParseDelimiterMustBeExact(t *testing.T) {
	for _, content := range []string{
		"---\ntitle: T\n---suffix\n\nbody",
		"---\ntitle: T\n----\n\nbody",
		"----\ntitle: T\n---\n\nbody",
	} {
		res := Parse([]byte(content))
		if res.Frontmatter != nil {
			t.Errorf("frontmatter = %v for %q, want nil", res.Frontmatter, content)
		}
		if res.Body != content {
			t.Errorf("body = %q, want full content preserved", res.Body)
		}
	}
}

func TestParseClosingDelimiterAtEOF(t *testing.T) {
	res := Parse([]byte("---\ntitle: T\n---"))
	if res.Frontmatter["title"] != "T" {
		t.Errorf("frontmatter = %v", res.Frontmatter)
	}
	if res.Body != "" {
		t.Errorf("body = %q, want empty", res.Body)
	}
}

func TestParseInvalidYAML(t *testing.T) {
	content := "---\ntitle: [unbalanced\n---\n\nbody"
	res := Parse([]byte(content))
	if res.Frontmatter != nil {
		t.Errorf("frontmatter = %v, want nil on invalid YAML", res.Frontmatter)
	}
	if res.Body != content {
		t.Errorf("body = %q, want full content preserved", res.Body)
	}
}

func TestFromContentFields(t *testing.T) {
	content := `---
title: Post
date: "2024-05-10"
description: a description
tags: solo
categories:
  - tech
  - life
weight: 5
---

Content.
`
	post := FromContent("/content/post/a.md", []byte(content))
	if post.Title != "Post" {
		t.Errorf("title = %q", post.Title)
	}
	if post.Date == nil || post.Date.Format("2006-01-02") != "2024-05-10" {
		t.Errorf("date = %v", post.Date)
	}
	if len(post.Tags) != 1 || post.Tags[0] != "solo" {
		t.Errorf("scalar tag not normalised to slice: %v", post.Tags)
	}
	if len(post.Categories) != 2 || post.Categories[0] != "tech" {
		t.Errorf("categories = %v", post.Categories)
	}
	if !post.Draft {
		t.Error("post without draft flag should default to draft")
	}
	if post.Meta["weight"] != 5 {
		t.Errorf("residual meta weight = %v", post.Meta["weight"])
	}
	if _, ok := post.Meta["title"]; ok {
		t.Error("typed field leaked into residual meta")
	}
}

func TestIsDraftDefaults(t *testing.T) {
	if !IsDraft(nil) {
		t.Error("nil frontmatter should be draft")
	}
	if !IsDraft(map[string]any{"title": "x"}) {
		t.Error("absent draft flag should be draft")
	}
	if IsDraft(map[string]any{"draft": false}) {
		t.Error("draft: false should not be draft")
	}
	if !IsDraft(map[string]any{"draft": "yes"}) {
		t.Error("non-bool draft value should fall back to draft")
	}
}

func TestExcerptTruncation(t *testing.T) {
	long := strings.Repeat("a", 250)
	got := Excerpt(long)
	if len([]rune(got)) != 203 {
		t.Errorf("excerpt length = %d, want 200 + ellipsis", len([]rune(got)))
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("truncated excerpt missing ellipsis: %q", got[190:])
	}

	short := strings.Repeat("b", 150)
	if got := Excerpt(short); got != short {
		t.Errorf("short body should pass through untruncated, got %d runes", len([]rune(got)))
	}
}

func TestExcerptStripsMarkdown(t *testing.T) {
	body := "## Heading\n\nSee [the docs](https://example.com) for *emphasis* and `code`."
	got := Excerpt(body)
	if strings.ContainsAny(got, "#*`[") {
		t.Errorf("markdown syntax survived: %q", got)
	}
	if !strings.Contains(got, "the docs") {
		t.Errorf("link text dropped: %q", got)
	}
}

func TestParseDate(t *testing.T) {
	if d := ParseDate("2024-01-15T10:30:00+08:00"); d == nil {
		t.Error("RFC3339 with offset should parse")
	}
	if d := ParseDate("2024-01-15"); d == nil || !d.Equal(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("bare date parse = %v", d)
	}
	if d := ParseDate("not a date"); d != nil {
		t.Errorf("garbage should yield nil, got %v", d)
	}
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "post.md")
	if err := os.WriteFile(path, []byte("---\ntitle: T\n---\n\nbody"), 0o644); err != nil {
		t.Fatal(err)
	}

	post, err := ParseFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if post.Title != "T" {
		t.Errorf("title = %q", post.Title)
	}
	if post.ModTime == 0 {
		t.Error("mod time should be recorded for regular files")
	}
}

func TestParseFileDirectory(t *testing.T) {
	dir := t.TempDir()
	post, err := ParseFile(dir)
	if err != nil {
		t.Fatalf("directory should not error: %v", err)
	}
	if post.ModTime != 0 {
		t.Error("directory record should carry zero mod time")
	}
}
