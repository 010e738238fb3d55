package service

import (
	"context"
	"errors"
	"fmt"

	"notebook-sources-be/internal/auth"
	"notebook-sources-be/internal/cache"
	"notebook-sources-be/internal/dto"
	"notebook-sources-be/internal/entity"
	"notebook-sources-be/internal/pkg/logger"
	"notebook-sources-be/internal/repository/contract"
	"notebook-sources-be/internal/repository/specification"

	"github.com/google/uuid"
)

type ISourceService interface {
	List(ctx context.Context, notebookID uuid.UUID) ([]*dto.SourceResponse, error)
	Add(ctx context.Context, req *dto.CreateSourceRequest) (*dto.SourceResponse, error)
	Update(ctx context.Context, req *dto.UpdateSourceRequest) (*dto.SourceResponse, error)
}

type sourceService struct {
	repo       contract.SourceRepository
	notebooks  contract.NotebookRepository
	cache      *cache.SourceCache
	generation IGenerationService
	logger     logger.ILogger
}

func NewSourceService(repo contract.SourceRepository, notebooks contract.NotebookRepository, c *cache.SourceCache, generation IGenerationService, log logger.ILogger) ISourceService {
	return &sourceService{
		repo:       repo,
		notebooks:  notebooks,
		cache:      c,
		generation: generation,
		logger:     log,
	}
}

// List serves from the cache while the notebook is being watched and reads
// the store otherwise.
func (s *sourceService) List(ctx context.Context, notebookID uuid.UUID) ([]*dto.SourceResponse, error) {
	userID, ok := auth.UserFromContext(ctx)
	if !ok {
		return nil, ErrUnauthenticated
	}
	if _, err := findOwnedNotebook(ctx, s.notebooks, userID, notebookID); err != nil {
		return nil, err
	}

	if cached, ok := s.cache.Get(notebookID); ok {
		res := make([]*dto.SourceResponse, 0, len(cached))
		for i := range cached {
			res = append(res, toSourceResponse(&cached[i]))
		}
		return res, nil
	}

	sources, err := s.repo.Select(ctx,
		specification.ByNotebookID{NotebookID: notebookID},
		specification.NewestFirst(),
	)
	if err != nil {
		return nil, &StoreError{Op: "select", Err: err}
	}

	res := make([]*dto.SourceResponse, 0, len(sources))
	for _, source := range sources {
		res = append(res, toSourceResponse(source))
	}
	return res, nil
}

func (s *sourceService) Add(ctx context.Context, req *dto.CreateSourceRequest) (*dto.SourceResponse, error) {
	userID, ok := auth.UserFromContext(ctx)
	if !ok {
		return nil, ErrUnauthenticated
	}

	draft := &entity.SourceDraft{
		NotebookId:       req.NotebookId,
		Type:             entity.SourceType(req.Type),
		Title:            req.Title,
		Content:          req.Content,
		Url:              req.Url,
		FilePath:         req.FilePath,
		FileSize:         req.FileSize,
		ProcessingStatus: req.ProcessingStatus,
		Metadata:         req.Metadata,
	}
	if err := validateDraft(draft); err != nil {
		return nil, err
	}
	if _, err := findOwnedNotebook(ctx, s.notebooks, userID, draft.NotebookId); err != nil {
		return nil, err
	}

	// Measured before the write so a feed echo of this insert cannot make
	// the first source look like the second.
	priorCount, err := s.countSources(ctx, draft.NotebookId)
	if err != nil {
		return nil, err
	}

	source, err := s.repo.Insert(ctx, draft)
	if err != nil {
		s.logger.Error("SOURCE", "Failed to add source", map[string]interface{}{
			"notebook_id": draft.NotebookId.String(),
			"error":       err.Error(),
		})
		return nil, &StoreError{Op: "insert", Err: err}
	}

	s.logger.Info("SOURCE", "Source added", map[string]interface{}{
		"source_id":   source.Id.String(),
		"notebook_id": source.NotebookId.String(),
		"user_id":     userID.String(),
		"type":        string(source.Type),
		"prior_count": priorCount,
	})

	if _, err := s.generation.TriggerIfFirst(ctx, source, priorCount == 0); err != nil {
		logGenerationError(s.logger, source.NotebookId, err)
	}

	return toSourceResponse(source), nil
}

func (s *sourceService) Update(ctx context.Context, req *dto.UpdateSourceRequest) (*dto.SourceResponse, error) {
	userID, ok := auth.UserFromContext(ctx)
	if !ok {
		return nil, ErrUnauthenticated
	}

	patch := entity.SourcePatch{
		Title:            req.Title,
		FilePath:         req.FilePath,
		FileSize:         req.FileSize,
		ProcessingStatus: req.ProcessingStatus,
	}
	if patch.IsEmpty() {
		return nil, fmt.Errorf("%w: nothing to update", ErrInvalidSource)
	}

	// A source in someone else's notebook is reported as missing.
	existing, err := s.repo.Select(ctx, specification.ByID{ID: req.Id})
	if err != nil {
		return nil, &StoreError{Op: "select", Err: err}
	}
	if len(existing) == 0 {
		return nil, ErrSourceNotFound
	}
	if _, err := findOwnedNotebook(ctx, s.notebooks, userID, existing[0].NotebookId); err != nil {
		if errors.Is(err, ErrNotebookNotFound) {
			return nil, ErrSourceNotFound
		}
		return nil, err
	}

	source, err := s.repo.Update(ctx, req.Id, patch)
	if err != nil {
		if errors.Is(err, contract.ErrSourceNotFound) {
			return nil, ErrSourceNotFound
		}
		s.logger.Error("SOURCE", "Failed to update source", map[string]interface{}{
			"source_id": req.Id.String(),
			"error":     err.Error(),
		})
		return nil, &StoreError{Op: "update", Err: err}
	}

	s.logger.Info("SOURCE", "Source updated", map[string]interface{}{
		"source_id":   source.Id.String(),
		"notebook_id": source.NotebookId.String(),
	})

	// Only a file path arriving after the insert can complete a source that
	// was first saved without its payload.
	if req.FilePath != nil && source.FilePath != "" {
		count, err := s.countSources(ctx, source.NotebookId)
		if err != nil {
			logGenerationError(s.logger, source.NotebookId, err)
			return toSourceResponse(source), nil
		}
		if _, err := s.generation.TriggerIfFirst(ctx, source, count == 1); err != nil {
			logGenerationError(s.logger, source.NotebookId, err)
		}
	}

	return toSourceResponse(source), nil
}

// findOwnedNotebook loads notebookID only when userID owns it.
func findOwnedNotebook(ctx context.Context, repo contract.NotebookRepository, userID, notebookID uuid.UUID) (*entity.Notebook, error) {
	notebook, err := repo.FindOne(ctx,
		specification.ByID{ID: notebookID},
		specification.ByUserID{UserID: userID},
	)
	if err != nil {
		return nil, &StoreError{Op: "find notebook", Err: err}
	}
	if notebook == nil {
		return nil, ErrNotebookNotFound
	}
	return notebook, nil
}

// countSources prefers the live cache and falls back to the store for
// notebooks nobody is watching.
func (s *sourceService) countSources(ctx context.Context, notebookID uuid.UUID) (int, error) {
	if n, ok := s.cache.Count(notebookID); ok {
		return n, nil
	}
	n, err := s.repo.Count(ctx, specification.ByNotebookID{NotebookID: notebookID})
	if err != nil {
		return 0, &StoreError{Op: "count", Err: err}
	}
	return int(n), nil
}

// validateDraft rejects payload fields that do not belong to the source type.
// A pdf or audio source may arrive without its file and be completed by a
// later update.
func validateDraft(draft *entity.SourceDraft) error {
	var foreign []string
	switch draft.Type {
	case entity.SourceTypeText:
		if draft.Url != "" {
			foreign = append(foreign, "url")
		}
		if draft.FilePath != "" {
			foreign = append(foreign, "file_path")
		}
	case entity.SourceTypeWebsite, entity.SourceTypeYoutube:
		if draft.Content != "" {
			foreign = append(foreign, "content")
		}
		if draft.FilePath != "" {
			foreign = append(foreign, "file_path")
		}
	case entity.SourceTypePDF, entity.SourceTypeAudio:
		if draft.Url != "" {
			foreign = append(foreign, "url")
		}
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidSource, draft.Type)
	}
	if len(foreign) > 0 {
		return fmt.Errorf("%w: %s source cannot carry %v", ErrInvalidSource, draft.Type, foreign)
	}
	return nil
}

func toSourceResponse(source *entity.Source) *dto.SourceResponse {
	return &dto.SourceResponse{
		Id:               source.Id,
		NotebookId:       source.NotebookId,
		Type:             string(source.Type),
		Title:            source.Title,
		Content:          source.Content,
		Url:              source.Url,
		FilePath:         source.FilePath,
		FileSize:         source.FileSize,
		ProcessingStatus: source.ProcessingStatus,
		Metadata:         source.Metadata,
		CreatedAt:        source.CreatedAt,
		UpdatedAt:        source.UpdatedAt,
	}
}
