package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"notebook-sources-be/internal/auth"
	"notebook-sources-be/internal/cache"
	"notebook-sources-be/internal/entity"
	"notebook-sources-be/internal/generation"
	"notebook-sources-be/internal/pkg/logger"
	"notebook-sources-be/pkg/jobs"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// NotificationDelivery pushes transient notifications to connected clients.
// Implemented by the websocket hub.
type NotificationDelivery interface {
	Send(userID uuid.UUID, notification entity.Notification)
	SendToNotebook(notebookID uuid.UUID, notification entity.Notification)
}

// NotebookStatusReader reads the notebook's generation status and drops any
// cached copy once a generation finishes.
type NotebookStatusReader interface {
	GetGenerationStatus(ctx context.Context, notebookID uuid.UUID) (entity.GenerationStatus, error)
	Invalidate(notebookID uuid.UUID)
}

type GenerationRequest struct {
	NotebookId uuid.UUID
	FilePath   string
	SourceType entity.SourceType
}

type IGenerationService interface {
	// RequestGeneration runs the notebook's generation job. At most one call
	// per notebook runs at a time; a concurrent call gets
	// ErrGenerationInProgress without invoking anything.
	RequestGeneration(ctx context.Context, req GenerationRequest) (json.RawMessage, error)

	// TriggerIfFirst starts generation when source is the notebook's first
	// usable source and the notebook is still pending. It reports whether a
	// job was requested.
	TriggerIfFirst(ctx context.Context, source *entity.Source, isFirst bool) (bool, error)

	InFlight() []uuid.UUID

	// ObserveSourceChange lets feed events trigger generation for changes
	// made by other writers.
	ObserveSourceChange(ctx context.Context, notebookID uuid.UUID, change cache.Change)
}

type GenerationOptions struct {
	JobName       string
	TriggerOnFeed bool
}

type generationService struct {
	guard    *generation.Guard
	invoker  jobs.Invoker
	status   NotebookStatusReader
	delivery NotificationDelivery
	opts     GenerationOptions
	logger   logger.ILogger
	tracer   trace.Tracer

	background sync.WaitGroup
}

// jobPayload is the body the generation job expects.
type jobPayload struct {
	NotebookId string `json:"notebookId"`
	FilePath   string `json:"filePath,omitempty"`
	SourceType string `json:"sourceType"`
}

func NewGenerationService(
	guard *generation.Guard,
	invoker jobs.Invoker,
	status NotebookStatusReader,
	delivery NotificationDelivery,
	opts GenerationOptions,
	log logger.ILogger,
) IGenerationService {
	return &generationService{
		guard:    guard,
		invoker:  invoker,
		status:   status,
		delivery: delivery,
		opts:     opts,
		logger:   log,
		tracer:   otel.Tracer("notebook-sources-be/generation"),
	}
}

func (s *generationService) RequestGeneration(ctx context.Context, req GenerationRequest) (json.RawMessage, error) {
	if !s.guard.TryAcquire(req.NotebookId) {
		s.logger.Info("GENERATION", "Generation already in progress, skipping", map[string]interface{}{
			"notebook_id": req.NotebookId.String(),
			"in_flight":   len(s.guard.InFlight()),
		})
		return nil, ErrGenerationInProgress
	}
	defer func() {
		s.guard.Release(req.NotebookId)
		s.logger.Debug("GENERATION", "Guard released", map[string]interface{}{
			"notebook_id": req.NotebookId.String(),
			"in_flight":   len(s.guard.InFlight()),
		})
	}()

	ctx, span := s.tracer.Start(ctx, "generation.request", trace.WithAttributes(
		attribute.String("notebook.id", req.NotebookId.String()),
		attribute.String("source.type", string(req.SourceType)),
	))
	defer span.End()

	s.logger.Info("GENERATION", "Starting notebook generation", map[string]interface{}{
		"notebook_id": req.NotebookId.String(),
		"source_type": string(req.SourceType),
		"file_path":   req.FilePath,
	})

	started := time.Now()
	result, err := s.invoker.Invoke(ctx, s.opts.JobName, jobPayload{
		NotebookId: req.NotebookId.String(),
		FilePath:   req.FilePath,
		SourceType: string(req.SourceType),
	})

	// The job writes the notebook row, so the cached status is stale
	// whichever way it went.
	s.status.Invalidate(req.NotebookId)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generation job failed")
		s.logger.Error("GENERATION", "Generation job failed", map[string]interface{}{
			"notebook_id": req.NotebookId.String(),
			"error":       err.Error(),
			"duration_ms": time.Since(started).Milliseconds(),
		})
		s.notify(ctx, req.NotebookId, entity.Notification{
			TypeCode: entity.NotificationGenerationFailed,
			Title:    "Generation failed",
			Message:  "Failed to generate notebook content. Please try again.",
			Metadata: map[string]interface{}{"error": err.Error()},
		})
		return nil, &JobInvocationError{NotebookId: req.NotebookId, Err: err}
	}

	s.logger.Info("GENERATION", "Generation job completed", map[string]interface{}{
		"notebook_id": req.NotebookId.String(),
		"duration_ms": time.Since(started).Milliseconds(),
	})
	s.notify(ctx, req.NotebookId, entity.Notification{
		TypeCode: entity.NotificationGenerationCompleted,
		Title:    "Content generated",
		Message:  "Notebook title and description have been generated.",
	})
	return result, nil
}

func (s *generationService) TriggerIfFirst(ctx context.Context, source *entity.Source, isFirst bool) (bool, error) {
	// Cheap checks first so non-first changes never touch the store.
	if source == nil || !isFirst || !generation.HasPayload(source) {
		return false, nil
	}

	status, err := s.status.GetGenerationStatus(ctx, source.NotebookId)
	if err != nil {
		return false, &StoreError{Op: "read generation status", Err: err}
	}
	if !generation.ShouldTrigger(source, isFirst, status) {
		s.logger.Debug("GENERATION", "Notebook not pending, no generation", map[string]interface{}{
			"notebook_id": source.NotebookId.String(),
			"status":      string(status),
		})
		return false, nil
	}

	_, err = s.RequestGeneration(ctx, GenerationRequest{
		NotebookId: source.NotebookId,
		FilePath:   source.JobTarget(),
		SourceType: source.Type,
	})
	return true, err
}

func (s *generationService) InFlight() []uuid.UUID {
	return s.guard.InFlight()
}

func (s *generationService) ObserveSourceChange(ctx context.Context, notebookID uuid.UUID, change cache.Change) {
	if !s.opts.TriggerOnFeed || !change.Applied {
		return
	}

	var isFirst bool
	switch change.Event.Kind {
	case entity.ChangeInsert:
		isFirst = change.PriorCount == 0
	case entity.ChangeUpdate:
		isFirst = change.PriorCount == 1 && change.Previous != nil && !generation.HasPayload(change.Previous)
	default:
		return
	}
	if !isFirst {
		return
	}

	source := change.Event.Record
	s.background.Add(1)
	go func() {
		defer s.background.Done()
		ctx := context.WithoutCancel(ctx)
		if _, err := s.TriggerIfFirst(ctx, &source, true); err != nil {
			logGenerationError(s.logger, notebookID, err)
		}
	}()
}

// wait blocks until feed-triggered generations have returned.
func (s *generationService) wait() {
	s.background.Wait()
}

func (s *generationService) notify(ctx context.Context, notebookID uuid.UUID, n entity.Notification) {
	if s.delivery == nil {
		return
	}
	n.ID = uuid.New()
	n.NotebookId = notebookID
	n.CreatedAt = time.Now()

	if userID, ok := auth.UserFromContext(ctx); ok {
		s.delivery.Send(userID, n)
		return
	}
	s.delivery.SendToNotebook(notebookID, n)
}

// logGenerationError records a generation failure that must not fail the
// surrounding write. Losing a race to another trigger is expected.
func logGenerationError(log logger.ILogger, notebookID uuid.UUID, err error) {
	if errors.Is(err, ErrGenerationInProgress) {
		log.Info("GENERATION", "Generation already running for notebook", map[string]interface{}{
			"notebook_id": notebookID.String(),
		})
		return
	}
	log.Error("GENERATION", "Generation did not complete", map[string]interface{}{
		"notebook_id": notebookID.String(),
		"error":       err.Error(),
	})
}
