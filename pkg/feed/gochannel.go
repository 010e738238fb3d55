// Package feed is the in-process change feed, used when the service runs as a
// single instance and in tests.
package feed

import (
	"context"
	"sync"

	"notebook-sources-be/internal/entity"
	"notebook-sources-be/internal/pkg/logger"
	"notebook-sources-be/internal/repository/contract"
	"notebook-sources-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
)

// GoChannelFeed is a contract.ChangeFeed and contract.ChangePublisher over a
// watermill gochannel. Publishing blocks until every subscriber has handled
// the message, which keeps per-notebook delivery in emission order. Messages
// published while nobody is subscribed are dropped, so a subscription only
// ever sees changes made after it started.
type GoChannelFeed struct {
	pubSub *gochannel.GoChannel
	logger logger.ILogger
}

func NewGoChannelFeed(log logger.ILogger) *GoChannelFeed {
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{
			OutputChannelBuffer:            64,
			BlockPublishUntilSubscriberAck: true,
		},
		watermill.NewStdLogger(false, false),
	)
	return &GoChannelFeed{pubSub: pubSub, logger: log}
}

func (f *GoChannelFeed) PublishSourceChange(ctx context.Context, event entity.SourceEvent) error {
	payload, err := events.EncodeSourceEvent(event)
	if err != nil {
		return err
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	return f.pubSub.Publish(events.SourceSubject(event.NotebookId()), msg)
}

func (f *GoChannelFeed) Subscribe(ctx context.Context, notebookID uuid.UUID, handler contract.SourceEventHandler) (contract.Subscription, error) {
	// The subscription outlives the request that opened it.
	subCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	messages, err := f.pubSub.Subscribe(subCtx, events.SourceSubject(notebookID))
	if err != nil {
		cancel()
		return nil, err
	}

	sub := &goChannelSubscription{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(sub.done)
		for msg := range messages {
			ev, err := events.DecodeSourceEvent(msg.Payload)
			if err != nil {
				f.logger.Warn("Feed", "Dropping undecodable message", map[string]interface{}{"error": err.Error()})
				msg.Ack()
				continue
			}
			handler(subCtx, ev)
			msg.Ack()
		}
	}()

	return sub, nil
}

func (f *GoChannelFeed) Close() error {
	return f.pubSub.Close()
}

type goChannelSubscription struct {
	once   sync.Once
	cancel context.CancelFunc
	done   chan struct{}
}

// Unsubscribe stops delivery and waits for the event in hand, if any.
func (s *goChannelSubscription) Unsubscribe() error {
	s.once.Do(s.cancel)
	<-s.done
	return nil
}
