package entity

import (
	"time"

	"github.com/google/uuid"
)

type SourceType string

const (
	SourceTypePDF     SourceType = "pdf"
	SourceTypeText    SourceType = "text"
	SourceTypeWebsite SourceType = "website"
	SourceTypeYoutube SourceType = "youtube"
	SourceTypeAudio   SourceType = "audio"
)

// Source is one piece of material attached to a notebook. Which payload
// field is populated depends on Type: Content for text, Url for
// website/youtube, FilePath (+FileSize) for pdf/audio.
type Source struct {
	Id               uuid.UUID              `json:"id"`
	NotebookId       uuid.UUID              `json:"notebook_id"`
	Type             SourceType             `json:"type"`
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

// JobTarget is the location handed to the generation job: the uploaded file
// when there is one, otherwise the remote url.
func (s *Source) JobTarget() string {
	if s.FilePath != "" {
		return s.FilePath
	}
	return s.Url
}

// SourceDraft carries the caller-supplied fields of a new source. The id and
// creation time are assigned by the store.
type SourceDraft struct {
	NotebookId       uuid.UUID
	Type             SourceType
	Title            string
	Content          string
	Url              string
	FilePath         string
	FileSize         *int64
	ProcessingStatus string
	Metadata         map[string]interface{}
}

// SourcePatch is a partial update. Nil fields are left untouched.
type SourcePatch struct {
	Title            *string
	FilePath         *string
	FileSize         *int64
	ProcessingStatus *string
}

func (p SourcePatch) IsEmpty() bool {
	return p.Title == nil && p.FilePath == nil && p.FileSize == nil && p.ProcessingStatus == nil
}
