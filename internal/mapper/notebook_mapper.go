package mapper

import (
	"time"

	"notebook-sources-be/internal/entity"
	"notebook-sources-be/internal/model"
)

type NotebookMapper struct{}

func NewNotebookMapper() *NotebookMapper {
	return &NotebookMapper{}
}

func (m *NotebookMapper) ToEntity(n *model.Notebook) *entity.Notebook {
	if n == nil {
		return nil
	}

	var updatedAt *time.Time
	if !n.UpdatedAt.IsZero() {
		t := n.UpdatedAt
		updatedAt = &t
	}

	return &entity.Notebook{
		Id:               n.Id,
		Title:            n.Title,
		Description:      deref(n.Description),
		UserId:           n.UserId,
		GenerationStatus: entity.GenerationStatus(n.GenerationStatus),
		CreatedAt:        n.CreatedAt,
		UpdatedAt:        updatedAt,
	}
}

func (m *NotebookMapper) ToEntities(notebooks []*model.Notebook) []*entity.Notebook {
	entities := make([]*entity.Notebook, len(notebooks))
	for i, n := range notebooks {
		entities[i] = m.ToEntity(n)
	}
	return entities
}
