package nats

import (
	"context"
	"fmt"

	"notebook-sources-be/internal/entity"
	"notebook-sources-be/internal/pkg/logger"
	"notebook-sources-be/pkg/events"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// Publisher emits source changes on sources.<notebookId>.
type Publisher struct {
	nc *nats.Conn
	js jetstream.JetStream
}

// NewPublisher creates a new NATS publisher.
func NewPublisher(url, stream string, log logger.ILogger) (*Publisher, error) {
	nc, js, err := connect(url)
	if err != nil {
		return nil, err
	}

	if err := ensureStream(js, stream); err != nil {
		// It may already exist with another config, or NATS is still starting.
		log.Warn("NATS", "Failed to ensure stream", map[string]interface{}{
			"stream": stream,
			"error":  err.Error(),
		})
	}

	return &Publisher{nc: nc, js: js}, nil
}

func (p *Publisher) PublishSourceChange(ctx context.Context, event entity.SourceEvent) error {
	data, err := events.EncodeSourceEvent(event)
	if err != nil {
		return err
	}

	subject := events.SourceSubject(event.NotebookId())
	if _, err := p.js.Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("failed to publish event to subject %s: %w", subject, err)
	}
	return nil
}

// Close closes the NATS connection.
func (p *Publisher) Close() {
	if p.nc != nil {
		p.nc.Close()
	}
}
