// Package generation decides when a notebook's content generation should run
// and makes sure at most one run per notebook is in flight.
package generation

import (
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Guard is a process-wide single-flight set keyed by notebook id. It is not
// persisted: a restart forgets every in-flight key.
//
// A key is held until Release; if the holder never releases (a hung job, a
// panic outside a deferred release) the key stays held for the life of the
// process.
type Guard struct {
	mu       sync.Mutex
	inFlight map[uuid.UUID]struct{}
}

func NewGuard() *Guard {
	return &Guard{inFlight: make(map[uuid.UUID]struct{})}
}

// TryAcquire atomically claims key. It reports false, and changes nothing,
// when key is already held.
func (g *Guard) TryAcquire(key uuid.UUID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, held := g.inFlight[key]; held {
		return false
	}
	g.inFlight[key] = struct{}{}
	return true
}

// Release frees key. Only the caller that got true from TryAcquire may call
// it; releasing a free key is a no-op.
func (g *Guard) Release(key uuid.UUID) {
	g.mu.Lock()
	delete(g.inFlight, key)
	g.mu.Unlock()
}

func (g *Guard) Held(key uuid.UUID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	_, held := g.inFlight[key]
	return held
}

// InFlight lists held keys in a stable order.
func (g *Guard) InFlight() []uuid.UUID {
	g.mu.Lock()
	keys := make([]uuid.UUID, 0, len(g.inFlight))
	for k := range g.inFlight {
		keys = append(keys, k)
	}
	g.mu.Unlock()

	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys
}
