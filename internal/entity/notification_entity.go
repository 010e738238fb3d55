package entity

import (
	"time"

	"github.com/google/uuid"
)

const (
	NotificationGenerationCompleted = "GENERATION_COMPLETED"
	NotificationGenerationFailed    = "GENERATION_FAILED"
)

// Notification is a transient, push-only message for connected clients.
type Notification struct {
	ID         uuid.UUID              `json:"id"`
	TypeCode   string                 `json:"type_code"`
	Title      string                 `json:"title"`
	Message    string                 `json:"message"`
	NotebookId uuid.UUID              `json:"notebook_id"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt  time.Time              `json:"created_at"`
}
