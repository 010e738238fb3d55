// internal\entity\notebook_entity.go
package entity

import (
	"time"

	"github.com/google/uuid"
)

type GenerationStatus string

const (
	GenerationStatusPending    GenerationStatus = "pending"
	GenerationStatusGenerating GenerationStatus = "generating"
	GenerationStatusDone       GenerationStatus = "completed"
	GenerationStatusFailed     GenerationStatus = "failed"
)

// Notebook is read-only here; title, description and generation status are
// written by the generation job.
type Notebook struct {
	Id               uuid.UUID
	Title            string
	Description      string
	UserId           uuid.UUID
	GenerationStatus GenerationStatus
	CreatedAt        time.Time
	UpdatedAt        *time.Time
}
