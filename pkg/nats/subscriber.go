package nats

import (
	"context"
	"fmt"
	"sync"

	"notebook-sources-be/internal/pkg/logger"
	"notebook-sources-be/internal/repository/contract"
	"notebook-sources-be/pkg/events"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// Subscriber opens one ordered consumer per notebook. Ordered consumers are
// ephemeral, deliver in stream order from a single goroutine, and with
// DeliverNewPolicy never replay what was published before they started.
type Subscriber struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	stream string
	logger logger.ILogger
}

// NewSubscriber creates a new NATS subscriber.
func NewSubscriber(url, stream string, log logger.ILogger) (*Subscriber, error) {
	nc, js, err := connect(url)
	if err != nil {
		return nil, err
	}
	return &Subscriber{nc: nc, js: js, stream: stream, logger: log}, nil
}

func (s *Subscriber) Subscribe(ctx context.Context, notebookID uuid.UUID, handler contract.SourceEventHandler) (contract.Subscription, error) {
	subject := events.SourceSubject(notebookID)

	consumer, err := s.js.OrderedConsumer(ctx, s.stream, jetstream.OrderedConsumerConfig{
		FilterSubjects: []string{subject},
		DeliverPolicy:  jetstream.DeliverNewPolicy,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer for %s: %w", subject, err)
	}

	handlerCtx := context.WithoutCancel(ctx)
	cc, err := consumer.Consume(func(msg jetstream.Msg) {
		ev, err := events.DecodeSourceEvent(msg.Data())
		if err != nil {
			fields := map[string]interface{}{
				"subject": msg.Subject(),
				"error":   err.Error(),
			}
			if id, perr := events.NotebookFromSubject(msg.Subject()); perr == nil {
				fields["notebook_id"] = id.String()
			}
			s.logger.Warn("NatsFeed", "Dropping undecodable message", fields)
			return
		}
		handler(handlerCtx, ev)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start consuming %s: %w", subject, err)
	}

	s.logger.Info("NatsFeed", "Subscribed", map[string]interface{}{"subject": subject})
	return &natsSubscription{cc: cc}, nil
}

// Close closes the connection.
func (s *Subscriber) Close() {
	if s.nc != nil {
		s.nc.Close()
	}
}

type natsSubscription struct {
	once sync.Once
	cc   jetstream.ConsumeContext
}

// Unsubscribe stops the consumer and waits until its handler goroutine has
// returned.
func (s *natsSubscription) Unsubscribe() error {
	s.once.Do(s.cc.Stop)
	<-s.cc.Closed()
	return nil
}
