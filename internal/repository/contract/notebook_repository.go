package contract

import (
	"context"

	"notebook-sources-be/internal/entity"
	"notebook-sources-be/internal/repository/specification"

	"github.com/google/uuid"
)

type NotebookRepository interface {
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Notebook, error)
	GetGenerationStatus(ctx context.Context, id uuid.UUID) (entity.GenerationStatus, error)
}
