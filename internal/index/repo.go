package index

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/models"
)

const postColumns = `path, relative_path, title, date, description, excerpt, tags, categories, draft, mod_time`

// Upsert inserts or fully replaces the row for p.Path.
// The cache insertion timestamp is refreshed on every call.
func (db *DB) Upsert(p *models.Post) error {
	tagsJSON, _ := json.Marshal(nonNil(p.Tags))
	catsJSON, _ := json.Marshal(nonNil(p.Categories))

	var date any
	if p.Date != nil {
		date = p.Date.Format(time.RFC3339)
	}

	_, err := db.conn.Exec(`
		INSERT INTO posts (path, relative_path, title, date, description, excerpt, tags, categories, draft, mod_time, cached_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			relative_path = excluded.relative_path,
			title         = excluded.title,
			date          = excluded.date,
			description   = excluded.description,
			excerpt       = excluded.excerpt,
			tags          = excluded.tags,
			categories    = excluded.categories,
			draft         = excluded.draft,
			mod_time      = excluded.mod_time,
			cached_at     = excluded.cached_at
	`, p.Path, p.RelativePath, p.Title, date, p.Description, p.Excerpt,
		string(tagsJSON), string(catsJSON), p.Draft, p.ModTime, time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("index: upsert post: %w: %w", apperr.ErrStorage, err)
	}
	return nil
}

// Delete removes a post row. Deleting an absent path is not an error.
func (db *DB) Delete(path string) error {
	if _, err := db.conn.Exec(`DELETE FROM posts WHERE path = ?`, path); err != nil {
		return fmt.Errorf("index: delete post: %w: %w", apperr.ErrStorage, err)
	}
	return nil
}

// Get returns the cached post for path, or apperr.ErrNotFound.
func (db *DB) Get(path string) (*models.Post, error) {
	row := db.conn.QueryRow(`SELECT `+postColumns+` FROM posts WHERE path = ?`, path)
	p, err := scanPost(row)
	if err == sql.ErrNoRows {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("index: get post: %w: %w", apperr.ErrStorage, err)
	}
	return p, nil
}

// ListAll returns every cached post ordered by the given field.
// Unknown or empty order falls back to publication date, newest first
// (dateless posts sort last).
func (db *DB) ListAll(order string) ([]models.Post, error) {
	clause := "date DESC, path ASC"
	switch order {
	case "mod_time":
		clause = "mod_time DESC, path ASC"
	case "title":
		clause = "title ASC, path ASC"
	case "cached_at":
		clause = "cached_at DESC, path ASC"
	}
	rows, err := db.conn.Query(`SELECT ` + postColumns + ` FROM posts ORDER BY ` + clause)
	if err != nil {
		return nil, fmt.Errorf("index: list all: %w: %w", apperr.ErrStorage, err)
	}
	return collectPosts(rows)
}

// Search returns posts matching all given filters, ordered by date descending.
//
// query is a case-insensitive substring match over title, description and
// excerpt. category and tag are exact-element membership tests against the
// respective sequence field: the JSON-quoted LIKE below only prefilters, and
// membership is verified on the decoded slice so that e.g. "eng" can never
// match a tag "engineering".
func (db *DB) Search(query, category, tag string) ([]models.Post, error) {
	sqlStr := `SELECT ` + postColumns + ` FROM posts WHERE 1=1`
	var params []any

	if query != "" {
		sqlStr += ` AND (LOWER(title) LIKE ? OR LOWER(description) LIKE ? OR LOWER(excerpt) LIKE ?)`
		term := "%" + strings.ToLower(query) + "%"
		params = append(params, term, term, term)
	}
	if category != "" {
		sqlStr += ` AND categories LIKE ?`
		params = append(params, jsonElemPattern(category))
	}
	if tag != "" {
		sqlStr += ` AND tags LIKE ?`
		params = append(params, jsonElemPattern(tag))
	}
	sqlStr += ` ORDER BY date DESC, path ASC`

	rows, err := db.conn.Query(sqlStr, params...)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w: %w", apperr.ErrStorage, err)
	}
	posts, err := collectPosts(rows)
	if err != nil {
		return nil, err
	}

	if category == "" && tag == "" {
		return posts, nil
	}
	out := posts[:0]
	for _, p := range posts {
		if category != "" && !slices.Contains(p.Categories, category) {
			continue
		}
		if tag != "" && !slices.Contains(p.Tags, tag) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// AllPaths returns every indexed post path.
func (db *DB) AllPaths() (map[string]struct{}, error) {
	rows, err := db.conn.Query(`SELECT path FROM posts`)
	if err != nil {
		return nil, fmt.Errorf("index: all paths: %w: %w", apperr.ErrStorage, err)
	}
	defer rows.Close()
	out := make(map[string]struct{})
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out[p] = struct{}{}
	}
	return out, rows.Err()
}

// AllModTimes returns path -> stored mtime for every indexed post.
func (db *DB) AllModTimes() (map[string]int64, error) {
	rows, err := db.conn.Query(`SELECT path, mod_time FROM posts`)
	if err != nil {
		return nil, fmt.Errorf("index: all mod times: %w: %w", apperr.ErrStorage, err)
	}
	defer rows.Close()
	out := make(map[string]int64)
	for rows.Next() {
		var p string
		var mt int64
		if err := rows.Scan(&p, &mt); err != nil {
			return nil, err
		}
		out[p] = mt
	}
	return out, rows.Err()
}

// TagCounts returns tag occurrence counts across all posts, sorted by count
// descending. Ties keep first-encountered order.
func (db *DB) TagCounts() ([]models.NameCount, error) {
	return db.countColumn("tags")
}

// CategoryCounts returns category occurrence counts across all posts, sorted
// by count descending. Ties keep first-encountered order.
func (db *DB) CategoryCounts() ([]models.NameCount, error) {
	return db.countColumn("categories")
}

func (db *DB) countColumn(column string) ([]models.NameCount, error) {
	// rowid order makes the tie-break deterministic across runs.
	rows, err := db.conn.Query(`SELECT ` + column + ` FROM posts ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("index: count %s: %w: %w", column, apperr.ErrStorage, err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	var order []string
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var names []string
		if err := json.Unmarshal([]byte(raw), &names); err != nil {
			continue
		}
		for _, name := range names {
			if counts[name] == 0 {
				order = append(order, name)
			}
			counts[name]++
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]models.NameCount, len(order))
	for i, name := range order {
		out[i] = models.NameCount{Name: name, Count: counts[name]}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out, nil
}

// jsonElemPattern builds the LIKE prefilter for a JSON array element.
// The surrounding quotes restrict hits to whole serialized elements.
func jsonElemPattern(elem string) string {
	quoted, _ := json.Marshal(elem)
	return "%" + string(quoted) + "%"
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (*models.Post, error) {
	var p models.Post
	var date sql.NullString
	var tagsRaw, catsRaw string
	if err := row.Scan(&p.Path, &p.RelativePath, &p.Title, &date, &p.Description,
		&p.Excerpt, &tagsRaw, &catsRaw, &p.Draft, &p.ModTime); err != nil {
		return nil, err
	}
	if date.Valid {
		if t, err := time.Parse(time.RFC3339, date.String); err == nil {
			p.Date = &t
		}
	}
	if err := json.Unmarshal([]byte(tagsRaw), &p.Tags); err != nil {
		p.Tags = []string{}
	}
	if err := json.Unmarshal([]byte(catsRaw), &p.Categories); err != nil {
		p.Categories = []string{}
	}
	p.Tags = nonNil(p.Tags)
	p.Categories = nonNil(p.Categories)
	return &p, nil
}

func collectPosts(rows *sql.Rows) ([]models.Post, error) {
	defer rows.Close()
	var out []models.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("index: scan post: %w: %w", apperr.ErrStorage, err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
