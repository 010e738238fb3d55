package service

import (
	"context"
	"errors"

	"notebook-sources-be/internal/auth"
	"notebook-sources-be/internal/dto"
	"notebook-sources-be/internal/entity"
	"notebook-sources-be/internal/pkg/logger"
	"notebook-sources-be/internal/repository/contract"

	"github.com/google/uuid"
)

type INotebookService interface {
	// Generate runs the notebook's generation job on demand, regardless of
	// its current status. A job already running for the notebook is reported
	// through InProgress rather than as an error.
	Generate(ctx context.Context, req *dto.GenerateNotebookRequest) (*dto.GenerateNotebookResponse, error)
	InFlight(ctx context.Context) *dto.InFlightGenerationResponse
	// CheckAccess fails with ErrNotebookNotFound unless the caller owns the
	// notebook.
	CheckAccess(ctx context.Context, notebookID uuid.UUID) error
}

type notebookService struct {
	repo       contract.NotebookRepository
	generation IGenerationService
	logger     logger.ILogger
}

func NewNotebookService(repo contract.NotebookRepository, generation IGenerationService, log logger.ILogger) INotebookService {
	return &notebookService{
		repo:       repo,
		generation: generation,
		logger:     log,
	}
}

func (s *notebookService) Generate(ctx context.Context, req *dto.GenerateNotebookRequest) (*dto.GenerateNotebookResponse, error) {
	userID, ok := auth.UserFromContext(ctx)
	if !ok {
		return nil, ErrUnauthenticated
	}

	notebook, err := findOwnedNotebook(ctx, s.repo, userID, req.NotebookId)
	if err != nil {
		return nil, err
	}

	result, err := s.generation.RequestGeneration(ctx, GenerationRequest{
		NotebookId: notebook.Id,
		FilePath:   req.FilePath,
		SourceType: entity.SourceType(req.SourceType),
	})
	if errors.Is(err, ErrGenerationInProgress) {
		return &dto.GenerateNotebookResponse{NotebookId: notebook.Id, InProgress: true}, nil
	}
	if err != nil {
		return nil, err
	}

	return &dto.GenerateNotebookResponse{
		NotebookId: notebook.Id,
		Result:     result,
	}, nil
}

func (s *notebookService) InFlight(ctx context.Context) *dto.InFlightGenerationResponse {
	return &dto.InFlightGenerationResponse{NotebookIds: s.generation.InFlight()}
}

func (s *notebookService) CheckAccess(ctx context.Context, notebookID uuid.UUID) error {
	userID, ok := auth.UserFromContext(ctx)
	if !ok {
		return ErrUnauthenticated
	}
	_, err := findOwnedNotebook(ctx, s.repo, userID, notebookID)
	return err
}
