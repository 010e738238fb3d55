package events

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"notebook-sources-be/internal/entity"

	"github.com/google/uuid"
)

// SubjectPrefix is the subject (NATS) / topic (in-process) namespace for
// source changes. Each notebook gets its own subject so that the transport's
// filter is what scopes a subscription.
const SubjectPrefix = "sources"

func SourceSubject(notebookID uuid.UUID) string {
	return fmt.Sprintf("%s.%s", SubjectPrefix, notebookID)
}

// NotebookFromSubject is the inverse of SourceSubject.
func NotebookFromSubject(subject string) (uuid.UUID, error) {
	return uuid.Parse(strings.TrimPrefix(subject, SubjectPrefix+"."))
}

// envelope is the wire form of a source change.
type envelope struct {
	Kind       entity.ChangeKind `json:"kind"`
	Record     entity.Source     `json:"record"`
	OccurredAt time.Time         `json:"occurred_at"`
}

func EncodeSourceEvent(event entity.SourceEvent) ([]byte, error) {
	data, err := json.Marshal(envelope{
		Kind:       event.Kind,
		Record:     event.Record,
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal source event: %w", err)
	}
	return data, nil
}

// DecodeSourceEvent keeps unknown kinds as-is; deciding what to do with them
// is the consumer's business.
func DecodeSourceEvent(data []byte) (entity.SourceEvent, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return entity.SourceEvent{}, fmt.Errorf("failed to unmarshal source event: %w", err)
	}
	return entity.SourceEvent{Kind: env.Kind, Record: env.Record}, nil
}
