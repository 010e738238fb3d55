package memory

import (
	"context"
	"time"

	"notebook-sources-be/internal/entity"
	"notebook-sources-be/internal/repository/contract"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// NotebookStatusCache fronts the notebook status read with a short-lived
// cache. Entries are dropped with Invalidate once a generation settles, so the
// next read sees whatever the job wrote.
type NotebookStatusCache struct {
	repo  contract.NotebookRepository
	cache *cache.Cache
}

func NewNotebookStatusCache(repo contract.NotebookRepository, ttl time.Duration) *NotebookStatusCache {
	return &NotebookStatusCache{
		repo:  repo,
		cache: cache.New(ttl, 2*ttl),
	}
}

func (c *NotebookStatusCache) GetGenerationStatus(ctx context.Context, notebookID uuid.UUID) (entity.GenerationStatus, error) {
	key := notebookID.String()
	if x, found := c.cache.Get(key); found {
		return x.(entity.GenerationStatus), nil
	}

	status, err := c.repo.GetGenerationStatus(ctx, notebookID)
	if err != nil {
		return "", err
	}
	c.cache.Set(key, status, cache.DefaultExpiration)
	return status, nil
}

func (c *NotebookStatusCache) Invalidate(notebookID uuid.UUID) {
	c.cache.Delete(notebookID.String())
}
