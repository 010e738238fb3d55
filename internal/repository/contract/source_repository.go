package contract

import (
	"context"
	"errors"

	"notebook-sources-be/internal/entity"
	"notebook-sources-be/internal/repository/specification"

	"github.com/google/uuid"
)

// ErrSourceNotFound is returned by Update and Delete when no row matches.
var ErrSourceNotFound = errors.New("source not found")

// SourceRepository is the remote store for sources. Every successful write is
// followed by a change event on the notebook's feed.
type SourceRepository interface {
	Select(ctx context.Context, specs ...specification.Specification) ([]*entity.Source, error)
	Insert(ctx context.Context, draft *entity.SourceDraft) (*entity.Source, error)
	Update(ctx context.Context, id uuid.UUID, patch entity.SourcePatch) (*entity.Source, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
