package implementation

import (
	"context"
	"errors"
	"fmt"

	"notebook-sources-be/internal/entity"
	"notebook-sources-be/internal/mapper"
	"notebook-sources-be/internal/model"
	"notebook-sources-be/internal/repository/contract"
	"notebook-sources-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NotebookRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.NotebookMapper
}

func NewNotebookRepository(db *gorm.DB) contract.NotebookRepository {
	return &NotebookRepositoryImpl{
		db:     db,
		mapper: mapper.NewNotebookMapper(),
	}
}

func (r *NotebookRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *NotebookRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Notebook, error) {
	var m model.Notebook
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *NotebookRepositoryImpl) GetGenerationStatus(ctx context.Context, id uuid.UUID) (entity.GenerationStatus, error) {
	var statuses []string
	err := r.db.WithContext(ctx).
		Model(&model.Notebook{}).
		Where("id = ?", id).
		Limit(1).
		Pluck("generation_status", &statuses).Error
	if err != nil {
		return "", err
	}
	if len(statuses) == 0 {
		return "", fmt.Errorf("notebook %s not found", id)
	}
	status := statuses[0]
	return entity.GenerationStatus(status), nil
}
