package implementation

import (
	"context"
	"errors"

	"notebook-sources-be/internal/entity"
	"notebook-sources-be/internal/mapper"
	"notebook-sources-be/internal/model"
	"notebook-sources-be/internal/pkg/logger"
	"notebook-sources-be/internal/repository/contract"
	"notebook-sources-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SourceRepositoryImpl struct {
	db        *gorm.DB
	mapper    *mapper.SourceMapper
	publisher contract.ChangePublisher
	logger    logger.ILogger
}

func NewSourceRepository(db *gorm.DB, publisher contract.ChangePublisher, log logger.ILogger) contract.SourceRepository {
	return &SourceRepositoryImpl{
		db:        db,
		mapper:    mapper.NewSourceMapper(),
		publisher: publisher,
		logger:    log,
	}
}

func (r *SourceRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *SourceRepositoryImpl) Select(ctx context.Context, specs ...specification.Specification) ([]*entity.Source, error) {
	var models []*model.Source
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *SourceRepositoryImpl) Insert(ctx context.Context, draft *entity.SourceDraft) (*entity.Source, error) {
	m := r.mapper.FromDraft(draft)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return nil, err
	}

	source := r.mapper.ToEntity(m)
	r.publish(ctx, entity.ChangeInsert, *source)
	return source, nil
}

func (r *SourceRepositoryImpl) Update(ctx context.Context, id uuid.UUID, patch entity.SourcePatch) (*entity.Source, error) {
	cols := r.mapper.PatchColumns(patch)
	if len(cols) > 0 {
		res := r.db.WithContext(ctx).Model(&model.Source{}).Where("id = ?", id).Updates(cols)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, contract.ErrSourceNotFound
		}
	}

	var m model.Source
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, contract.ErrSourceNotFound
		}
		return nil, err
	}

	source := r.mapper.ToEntity(&m)
	r.publish(ctx, entity.ChangeUpdate, *source)
	return source, nil
}

func (r *SourceRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	var m model.Source
	if err := r.db.WithContext(ctx).Select("id", "notebook_id").First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return contract.ErrSourceNotFound
		}
		return err
	}
	if err := r.db.WithContext(ctx).Delete(&model.Source{}, "id = ?", id).Error; err != nil {
		return err
	}

	r.publish(ctx, entity.ChangeDelete, entity.Source{Id: m.Id, NotebookId: m.NotebookId})
	return nil
}

func (r *SourceRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.Source{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// publish never fails the write: the row is already committed, and readers
// recover from a missed event on their next scope seed.
func (r *SourceRepositoryImpl) publish(ctx context.Context, kind entity.ChangeKind, record entity.Source) {
	if r.publisher == nil {
		return
	}
	evt := entity.SourceEvent{Kind: kind, Record: record}
	if err := r.publisher.PublishSourceChange(ctx, evt); err != nil {
		r.logger.Error("SourceRepository", "Failed to publish source change", map[string]interface{}{
			"kind":        kind,
			"source_id":   record.Id,
			"notebook_id": record.NotebookId,
			"error":       err.Error(),
		})
	}
}
