// Package memory is an in-process ArticleRepository for runs without a
// database. Dedup state lives for the lifetime of the process only.
package memory

import (
	"context"
	"fmt"
	"sync"

	"cyberbrief/internal/domain"
)

// Repo keeps articles in a map guarded by a mutex.
type Repo struct {
	mu       sync.RWMutex
	articles map[string]domain.Article
}

// NewRepo returns an empty in-memory repository.
func NewRepo() *Repo {
	return &Repo{articles: make(map[string]domain.Article)}
}

// Exists reports whether the content hash was saved before.
func (r *Repo) Exists(_ context.Context, contentHash string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.articles[contentHash]
	return ok, nil
}

// Save stores or replaces the article under its content hash.
func (r *Repo) Save(_ context.Context, a domain.Article) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.articles[a.ContentHash] = a
	return nil
}

// MarkPublished is a no-op for known hashes; unknown hashes error the
// same way the database repository does.
func (r *Repo) MarkPublished(_ context.Context, contentHash string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.articles[contentHash]; !ok {
		return fmt.Errorf("op=article.mark_published: %w", domain.ErrNotFound)
	}
	return nil
}
