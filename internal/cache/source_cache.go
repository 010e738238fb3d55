// Package cache holds the in-memory view of each notebook's sources. It is
// written only by the reconciler and read by everyone else.
package cache

import (
	"sort"
	"sync"

	"notebook-sources-be/internal/entity"
	"notebook-sources-be/internal/pkg/logger"

	"github.com/google/uuid"
)

// Change describes what applying one feed event did to a scope.
type Change struct {
	Event      entity.SourceEvent
	Applied    bool
	PriorCount int
	Previous   *entity.Source
}

// SourceCache keeps one newest-first list of sources per notebook. Every
// mutation is idempotent, so duplicated or replayed feed events are harmless
// and a scope never holds two records with the same id.
type SourceCache struct {
	mu     sync.RWMutex
	scopes map[uuid.UUID][]entity.Source
	logger logger.ILogger
}

func NewSourceCache(log logger.ILogger) *SourceCache {
	return &SourceCache{
		scopes: make(map[uuid.UUID][]entity.Source),
		logger: log,
	}
}

// Get returns a copy of the scope's sources, newest first. The bool is false
// when the scope is not loaded.
func (c *SourceCache) Get(notebookID uuid.UUID) ([]entity.Source, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	list, ok := c.scopes[notebookID]
	if !ok {
		return nil, false
	}
	out := make([]entity.Source, len(list))
	copy(out, list)
	return out, true
}

func (c *SourceCache) Count(notebookID uuid.UUID) (int, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	list, ok := c.scopes[notebookID]
	return len(list), ok
}

// Load replaces the scope with a snapshot from the store.
func (c *SourceCache) Load(notebookID uuid.UUID, sources []*entity.Source) {
	list := make([]entity.Source, 0, len(sources))
	seen := make(map[uuid.UUID]struct{}, len(sources))
	for _, s := range sources {
		if s == nil {
			continue
		}
		if _, dup := seen[s.Id]; dup {
			continue
		}
		seen[s.Id] = struct{}{}
		list = append(list, *s)
	}
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})

	c.mu.Lock()
	c.scopes[notebookID] = list
	c.mu.Unlock()
}

// Drop forgets a scope entirely.
func (c *SourceCache) Drop(notebookID uuid.UUID) {
	c.mu.Lock()
	delete(c.scopes, notebookID)
	c.mu.Unlock()
}

func (c *SourceCache) ApplyInsert(notebookID uuid.UUID, source entity.Source) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.insertLocked(notebookID, source)
}

func (c *SourceCache) ApplyUpdate(notebookID uuid.UUID, source entity.Source) (*entity.Source, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.updateLocked(notebookID, source)
}

func (c *SourceCache) ApplyDelete(notebookID uuid.UUID, id uuid.UUID) (*entity.Source, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deleteLocked(notebookID, id)
}

// Apply routes a feed event to the matching mutation. Events for another
// notebook and unknown kinds are logged and ignored.
func (c *SourceCache) Apply(notebookID uuid.UUID, event entity.SourceEvent) Change {
	change := Change{Event: event}

	if event.Record.NotebookId != notebookID {
		c.logger.Warn("SourceCache", "Ignoring event for another notebook", map[string]interface{}{
			"scope":       notebookID,
			"notebook_id": event.Record.NotebookId,
			"source_id":   event.Record.Id,
		})
		return change
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	change.PriorCount = len(c.scopes[notebookID])

	switch event.Kind {
	case entity.ChangeInsert:
		change.Applied = c.insertLocked(notebookID, event.Record)
		if !change.Applied {
			c.logger.Debug("SourceCache", "Source already cached, skipping insert", map[string]interface{}{"source_id": event.Record.Id})
		}
	case entity.ChangeUpdate:
		change.Previous, change.Applied = c.updateLocked(notebookID, event.Record)
	case entity.ChangeDelete:
		change.Previous, change.Applied = c.deleteLocked(notebookID, event.Record.Id)
	default:
		c.logger.Info("SourceCache", "Unknown event kind", map[string]interface{}{"kind": event.Kind})
	}

	return change
}

func (c *SourceCache) insertLocked(notebookID uuid.UUID, source entity.Source) bool {
	list := c.scopes[notebookID]
	if indexOf(list, source.Id) >= 0 {
		return false
	}

	// list is newest first; new records land before anything not newer than
	// them, which is a plain prepend for fresh inserts.
	pos := sort.Search(len(list), func(i int) bool {
		return !list[i].CreatedAt.After(source.CreatedAt)
	})
	list = append(list, entity.Source{})
	copy(list[pos+1:], list[pos:])
	list[pos] = source
	c.scopes[notebookID] = list
	return true
}

func (c *SourceCache) updateLocked(notebookID uuid.UUID, source entity.Source) (*entity.Source, bool) {
	list := c.scopes[notebookID]
	i := indexOf(list, source.Id)
	if i < 0 {
		return nil, false
	}
	prev := list[i]
	list[i] = source
	return &prev, true
}

func (c *SourceCache) deleteLocked(notebookID uuid.UUID, id uuid.UUID) (*entity.Source, bool) {
	list := c.scopes[notebookID]
	i := indexOf(list, id)
	if i < 0 {
		return nil, false
	}
	prev := list[i]
	c.scopes[notebookID] = append(list[:i], list[i+1:]...)
	return &prev, true
}

func indexOf(list []entity.Source, id uuid.UUID) int {
	for i := range list {
		if list[i].Id == id {
			return i
		}
	}
	return -1
}
