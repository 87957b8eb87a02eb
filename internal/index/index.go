package index

import "github.com/starford/ansuz/internal/models"

// PostIndex defines the interface for post cache operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type PostIndex interface {
	Upsert(p *models.Post) error
	Delete(path string) error
	Get(path string) (*models.Post, error)
	ListAll(order string) ([]models.Post, error)
	Search(query, category, tag string) ([]models.Post, error)
	AllPaths() (map[string]struct{}, error)
	AllModTimes() (map[string]int64, error)
	TagCounts() ([]models.NameCount, error)
	CategoryCounts() ([]models.NameCount, error)
	Close() error
}

// Verify *DB satisfies PostIndex at compile time.
var _ PostIndex = (*DB)(nil)
