package dto

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type CreateSourceRequest struct {
	NotebookId       uuid.UUID              `json:"notebook_id" validate:"required"`
	Title            string                 `json:"title" validate:"required,max=255"`
	Type             string                 `json:"type" validate:"required,oneof=pdf text website youtube audio"`
	Content          string                 `json:"content"`
	Url              string                 `json:"url" validate:"omitempty,url"`
	FilePath         string                 `json:"file_path"`
	FileSize         *int64                 `json:"file_size" validate:"omitempty,gte=0"`
	ProcessingStatus string                 `json:"processing_status"`
	Metadata         map[string]interface{} `json:"metadata"`
}

type UpdateSourceRequest struct {
	Id               uuid.UUID `json:"-"`
	Title            *string   `json:"title" validate:"omitempty,min=1,max=255"`
	FilePath         *string   `json:"file_path"`
	FileSize         *int64    `json:"file_size" validate:"omitempty,gte=0"`
	ProcessingStatus *string   `json:"processing_status"`
}

type SourceResponse struct {
	Id               uuid.UUID              `json:"id"`
	NotebookId       uuid.UUID              `json:"notebook_id"`
	Type             string                 `json:"type"`
	Title            string                 `json:"title"`
	Content          string                 `json:"content,omitempty"`
	Url              string                 `json:"url,omitempty"`
	FilePath         string                 `json:"file_path,omitempty"`
	FileSize         *int64                 `json:"file_size,omitempty"`
	ProcessingStatus string                 `json:"processing_status,omitempty"`
	Metadata         map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt        time.Time              `json:"created_at"`
	UpdatedAt        *time.Time             `json:"updated_at,omitempty"`
}

type GenerateNotebookRequest struct {
	NotebookId uuid.UUID `json:"-"`
	FilePath   string    `json:"file_path"`
	SourceType string    `json:"source_type" validate:"required,oneof=pdf text website youtube audio"`
}

type GenerateNotebookResponse struct {
	NotebookId uuid.UUID       `json:"notebook_id"`
	InProgress bool            `json:"in_progress"`
	Result     json.RawMessage `json:"result,omitempty"`
}

type InFlightGenerationResponse struct {
	NotebookIds []uuid.UUID `json:"notebook_ids"`
}
