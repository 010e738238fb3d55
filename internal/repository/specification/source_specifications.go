package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ByNotebookID scopes sources to one notebook.
type ByNotebookID struct {
	NotebookID uuid.UUID
}

func (s ByNotebookID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("notebook_id = ?", s.NotebookID)
}

// NewestFirst is the default source ordering.
func NewestFirst() OrderBy {
	return OrderBy{Field: "created_at", Desc: true}
}
