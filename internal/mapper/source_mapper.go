package mapper

import (
	"encoding/json"
	"time"

	"notebook-sources-be/internal/entity"
	"notebook-sources-be/internal/model"

	"gorm.io/datatypes"
)

type SourceMapper struct{}

func NewSourceMapper() *SourceMapper {
	return &SourceMapper{}
}

func (m *SourceMapper) ToEntity(s *model.Source) *entity.Source {
	if s == nil {
		return nil
	}

	var updatedAt *time.Time
	if !s.UpdatedAt.IsZero() {
		t := s.UpdatedAt
		updatedAt = &t
	}

	var metadata map[string]interface{}
	if len(s.Metadata) > 0 {
		// Malformed metadata is dropped rather than failing the whole read.
		_ = json.Unmarshal(s.Metadata, &metadata)
	}

	return &entity.Source{
		Id:               s.Id,
		NotebookId:       s.NotebookId,
		Type:             entity.SourceType(s.Type),
		Title:            s.Title,
		Content:          deref(s.Content),
		Url:              deref(s.Url),
		FilePath:         deref(s.FilePath),
		FileSize:         s.FileSize,
		ProcessingStatus: deref(s.ProcessingStatus),
		Metadata:         metadata,
		CreatedAt:        s.CreatedAt,
		UpdatedAt:        updatedAt,
	}
}

func (m *SourceMapper) ToModel(s *entity.Source) *model.Source {
	if s == nil {
		return nil
	}

	metadata := datatypes.JSON([]byte("{}"))
	if len(s.Metadata) > 0 {
		if raw, err := json.Marshal(s.Metadata); err == nil {
			metadata = datatypes.JSON(raw)
		}
	}

	var updatedAt time.Time
	if s.UpdatedAt != nil {
		updatedAt = *s.UpdatedAt
	}

	return &model.Source{
		Id:               s.Id,
		NotebookId:       s.NotebookId,
		Type:             string(s.Type),
		Title:            s.Title,
		Content:          nullable(s.Content),
		Url:              nullable(s.Url),
		FilePath:         nullable(s.FilePath),
		FileSize:         s.FileSize,
		ProcessingStatus: nullable(s.ProcessingStatus),
		Metadata:         metadata,
		CreatedAt:        s.CreatedAt,
		UpdatedAt:        updatedAt,
	}
}

func (m *SourceMapper) FromDraft(d *entity.SourceDraft) *model.Source {
	return m.ToModel(&entity.Source{
		NotebookId:       d.NotebookId,
		Type:             d.Type,
		Title:            d.Title,
		Content:          d.Content,
		Url:              d.Url,
		FilePath:         d.FilePath,
		FileSize:         d.FileSize,
		ProcessingStatus: d.ProcessingStatus,
		Metadata:         d.Metadata,
	})
}

// PatchColumns converts a partial update into the column map gorm's Updates
// expects, so that only the supplied fields are written.
func (m *SourceMapper) PatchColumns(p entity.SourcePatch) map[string]interface{} {
	cols := make(map[string]interface{})
	if p.Title != nil {
		cols["title"] = *p.Title
	}
	if p.FilePath != nil {
		cols["file_path"] = nullable(*p.FilePath)
	}
	if p.FileSize != nil {
		cols["file_size"] = *p.FileSize
	}
	if p.ProcessingStatus != nil {
		cols["processing_status"] = nullable(*p.ProcessingStatus)
	}
	return cols
}

func (m *SourceMapper) ToEntities(sources []*model.Source) []*entity.Source {
	entities := make([]*entity.Source, len(sources))
	for i, s := range sources {
		entities[i] = m.ToEntity(s)
	}
	return entities
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
