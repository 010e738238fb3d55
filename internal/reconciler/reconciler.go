// Package reconciler keeps the source cache in step with the store's change
// feed, one subscription per notebook that somebody is watching.
package reconciler

import (
	"context"
	"sync"

	"notebook-sources-be/internal/cache"
	"notebook-sources-be/internal/entity"
	"notebook-sources-be/internal/pkg/logger"
	"notebook-sources-be/internal/repository/contract"
	"notebook-sources-be/internal/repository/specification"

	"github.com/google/uuid"
)

// Snapshotter is the read side of the store used to seed a scope.
type Snapshotter interface {
	Select(ctx context.Context, specs ...specification.Specification) ([]*entity.Source, error)
}

// Observer is told about every event that changed a scope. It runs on the
// feed's delivery goroutine with the scope locked, so it must not block.
type Observer interface {
	ObserveSourceChange(ctx context.Context, notebookID uuid.UUID, change cache.Change)
}

type Reconciler struct {
	feed      contract.ChangeFeed
	store     Snapshotter
	cache     *cache.SourceCache
	logger    logger.ILogger
	observers []Observer

	mu     sync.Mutex
	scopes map[uuid.UUID]*scope
}

type scope struct {
	refs  int
	ready chan struct{}
	err   error
	sub   contract.Subscription

	mu      sync.Mutex
	seeded  bool
	closed  bool
	pending []entity.SourceEvent
}

func New(feed contract.ChangeFeed, store Snapshotter, c *cache.SourceCache, log logger.ILogger, observers ...Observer) *Reconciler {
	return &Reconciler{
		feed:      feed,
		store:     store,
		cache:     c,
		logger:    log,
		observers: observers,
		scopes:    make(map[uuid.UUID]*scope),
	}
}

// Acquire registers interest in a notebook. The first caller subscribes to
// the feed and seeds the cache; later callers share that subscription. Every
// successful Acquire must be paired with one Release.
func (r *Reconciler) Acquire(ctx context.Context, notebookID uuid.UUID) error {
	r.mu.Lock()
	if sc, ok := r.scopes[notebookID]; ok {
		sc.refs++
		r.mu.Unlock()

		select {
		case <-sc.ready:
		case <-ctx.Done():
			r.Release(notebookID)
			return ctx.Err()
		}
		// On failure the opener has already removed the scope.
		return sc.err
	}

	sc := &scope{refs: 1, ready: make(chan struct{})}
	r.scopes[notebookID] = sc
	r.mu.Unlock()

	sc.err = r.open(ctx, notebookID, sc)
	if sc.err != nil {
		r.mu.Lock()
		if r.scopes[notebookID] == sc {
			delete(r.scopes, notebookID)
		}
		r.mu.Unlock()
	}
	close(sc.ready)
	return sc.err
}

// Release drops one unit of interest. The last release unsubscribes and
// unloads the scope from the cache.
func (r *Reconciler) Release(notebookID uuid.UUID) {
	r.mu.Lock()
	sc, ok := r.scopes[notebookID]
	if !ok {
		r.mu.Unlock()
		return
	}
	sc.refs--
	if sc.refs > 0 {
		r.mu.Unlock()
		return
	}
	delete(r.scopes, notebookID)

	sc.mu.Lock()
	sc.closed = true
	sc.pending = nil
	sc.mu.Unlock()
	r.cache.Drop(notebookID)
	r.mu.Unlock()

	<-sc.ready
	if sc.sub != nil {
		if err := sc.sub.Unsubscribe(); err != nil {
			r.logger.Warn("Reconciler", "Unsubscribe failed", map[string]interface{}{
				"notebook_id": notebookID,
				"error":       err.Error(),
			})
		}
	}
	r.logger.Info("Reconciler", "Scope released", map[string]interface{}{"notebook_id": notebookID})
}

// Active reports whether a notebook currently has a live subscription.
func (r *Reconciler) Active(notebookID uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.scopes[notebookID]
	return ok
}

// open subscribes before reading the snapshot so nothing committed in between
// is missed; events that arrive before the seed is in place are held and
// replayed on top of it.
func (r *Reconciler) open(ctx context.Context, notebookID uuid.UUID, sc *scope) error {
	sub, err := r.feed.Subscribe(ctx, notebookID, func(ctx context.Context, event entity.SourceEvent) {
		r.handle(ctx, notebookID, sc, event)
	})
	if err != nil {
		r.logger.Error("Reconciler", "Subscribe failed", map[string]interface{}{
			"notebook_id": notebookID,
			"error":       err.Error(),
		})
		return err
	}
	sc.sub = sub

	snapshot, err := r.store.Select(ctx,
		specification.ByNotebookID{NotebookID: notebookID},
		specification.NewestFirst(),
	)
	if err != nil {
		_ = sub.Unsubscribe()
		sc.sub = nil
		r.logger.Error("Reconciler", "Snapshot failed", map[string]interface{}{
			"notebook_id": notebookID,
			"error":       err.Error(),
		})
		return err
	}

	sc.mu.Lock()
	if sc.closed {
		sc.mu.Unlock()
		return nil
	}
	r.cache.Load(notebookID, snapshot)
	pending := sc.pending
	sc.pending = nil
	sc.seeded = true
	for _, ev := range pending {
		r.apply(ctx, notebookID, ev)
	}
	sc.mu.Unlock()

	r.logger.Info("Reconciler", "Scope subscribed", map[string]interface{}{
		"notebook_id": notebookID,
		"sources":     len(snapshot),
		"replayed":    len(pending),
	})
	return nil
}

func (r *Reconciler) handle(ctx context.Context, notebookID uuid.UUID, sc *scope, event entity.SourceEvent) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.closed {
		return
	}
	if event.Record.NotebookId != notebookID {
		r.logger.Warn("Reconciler", "Dropping mis-scoped event", map[string]interface{}{
			"scope":       notebookID,
			"notebook_id": event.Record.NotebookId,
			"kind":        event.Kind,
		})
		return
	}
	if !sc.seeded {
		sc.pending = append(sc.pending, event)
		return
	}
	r.apply(ctx, notebookID, event)
}

func (r *Reconciler) apply(ctx context.Context, notebookID uuid.UUID, event entity.SourceEvent) {
	change := r.cache.Apply(notebookID, event)
	r.logger.Debug("Reconciler", "Event applied", map[string]interface{}{
		"notebook_id": notebookID,
		"source_id":   event.Record.Id,
		"kind":        event.Kind,
		"applied":     change.Applied,
	})
	if !change.Applied {
		return
	}
	for _, o := range r.observers {
		o.ObserveSourceChange(ctx, notebookID, change)
	}
}
