package contract

import (
	"context"

	"notebook-sources-be/internal/entity"

	"github.com/google/uuid"
)

// SourceEventHandler receives feed events for one notebook, one at a time and
// in emission order.
type SourceEventHandler func(ctx context.Context, event entity.SourceEvent)

// Subscription is a live feed subscription. Unsubscribe is safe to call more
// than once; an event already being handled runs to completion.
type Subscription interface {
	Unsubscribe() error
}

// ChangeFeed delivers source changes per notebook, at least once, starting
// from the moment of subscription.
type ChangeFeed interface {
	Subscribe(ctx context.Context, notebookID uuid.UUID, handler SourceEventHandler) (Subscription, error)
}

// ChangePublisher is the write side of the feed, used by the store after a
// successful write.
type ChangePublisher interface {
	PublishSourceChange(ctx context.Context, event entity.SourceEvent) error
}
