package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"notebook-sources-be/internal/auth"
	"notebook-sources-be/internal/cache"
	"notebook-sources-be/internal/entity"
	"notebook-sources-be/internal/generation"
	"notebook-sources-be/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

type generationFixture struct {
	svc      *generationService
	guard    *generation.Guard
	invoker  *fakeInvoker
	status   *fakeStatus
	delivery *fakeDelivery
}

func newGenerationFixture(opts GenerationOptions) *generationFixture {
	f := &generationFixture{
		guard:    generation.NewGuard(),
		invoker:  &fakeInvoker{},
		status:   newFakeStatus(),
		delivery: newFakeDelivery(),
	}
	if opts.JobName == "" {
		opts.JobName = "generate-notebook-content"
	}
	f.svc = NewGenerationService(f.guard, f.invoker, f.status, f.delivery, opts, logger.NewNopLogger()).(*generationService)
	return f
}

func TestRequestGenerationSuccess(t *testing.T) {
	f := newGenerationFixture(GenerationOptions{})
	notebookID := uuid.New()
	userID := uuid.New()
	ctx := auth.WithUser(context.Background(), userID)

	result, err := f.svc.RequestGeneration(ctx, GenerationRequest{
		NotebookId: notebookID,
		FilePath:   "uploads/a.pdf",
		SourceType: entity.SourceTypePDF,
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true}`, string(result))

	require.Equal(t, 1, f.invoker.callCount())
	assert.Equal(t, jobPayload{
		NotebookId: notebookID.String(),
		FilePath:   "uploads/a.pdf",
		SourceType: "pdf",
	}, f.invoker.lastCall())

	assert.Empty(t, f.svc.InFlight())
	assert.Equal(t, 1, f.status.invalidated)

	notes := f.delivery.userNotifications(userID)
	require.Len(t, notes, 1)
	assert.Equal(t, entity.NotificationGenerationCompleted, notes[0].TypeCode)
	assert.Equal(t, notebookID, notes[0].NotebookId)
}

func TestRequestGenerationFailureReleasesGuard(t *testing.T) {
	f := newGenerationFixture(GenerationOptions{})
	f.invoker.failWith = errBoom
	notebookID := uuid.New()

	_, err := f.svc.RequestGeneration(context.Background(), GenerationRequest{NotebookId: notebookID, SourceType: entity.SourceTypeText})
	require.Error(t, err)

	var jobErr *JobInvocationError
	require.ErrorAs(t, err, &jobErr)
	assert.Equal(t, notebookID, jobErr.NotebookId)
	assert.ErrorIs(t, err, errBoom)

	assert.False(t, f.guard.Held(notebookID))
	assert.Equal(t, 1, f.status.invalidated)

	// No caller on the context, so the notebook's watchers hear about it.
	notes := f.delivery.notebookNotifications(notebookID)
	require.Len(t, notes, 1)
	assert.Equal(t, entity.NotificationGenerationFailed, notes[0].TypeCode)

	// The key is free again.
	f.invoker.mu.Lock()
	f.invoker.failWith = nil
	f.invoker.mu.Unlock()
	_, err = f.svc.RequestGeneration(context.Background(), GenerationRequest{NotebookId: notebookID, SourceType: entity.SourceTypeText})
	require.NoError(t, err)
	assert.Equal(t, 2, f.invoker.callCount())
}

func TestRequestGenerationSingleFlight(t *testing.T) {
	f := newGenerationFixture(GenerationOptions{})
	f.invoker.gate = make(chan struct{})
	f.invoker.entered = make(chan struct{}, 1)
	notebookID := uuid.New()
	req := GenerationRequest{NotebookId: notebookID, SourceType: entity.SourceTypeText}

	first := make(chan error, 1)
	go func() {
		_, err := f.svc.RequestGeneration(context.Background(), req)
		first <- err
	}()
	<-f.invoker.entered
	assert.Equal(t, []uuid.UUID{notebookID}, f.svc.InFlight())

	var rejected atomic.Int32
	var g errgroup.Group
	for i := 0; i < 16; i++ {
		g.Go(func() error {
			_, err := f.svc.RequestGeneration(context.Background(), req)
			if errors.Is(err, ErrGenerationInProgress) {
				rejected.Add(1)
				return nil
			}
			return err
		})
	}
	require.NoError(t, g.Wait())
	assert.EqualValues(t, 16, rejected.Load())

	close(f.invoker.gate)
	require.NoError(t, <-first)

	assert.Equal(t, 1, f.invoker.callCount())
	assert.Empty(t, f.svc.InFlight())

	// Rejected calls never notify.
	assert.Len(t, f.delivery.notebookNotifications(notebookID), 1)
}

func TestRequestGenerationIndependentNotebooks(t *testing.T) {
	f := newGenerationFixture(GenerationOptions{})

	var g errgroup.Group
	for i := 0; i < 8; i++ {
		g.Go(func() error {
			_, err := f.svc.RequestGeneration(context.Background(), GenerationRequest{
				NotebookId: uuid.New(),
				SourceType: entity.SourceTypeText,
			})
			return err
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, 8, f.invoker.callCount())
}

func TestTriggerIfFirst(t *testing.T) {
	notebookID := uuid.New()
	text := &entity.Source{Id: uuid.New(), NotebookId: notebookID, Type: entity.SourceTypeText, Content: "hello"}
	emptyPDF := &entity.Source{Id: uuid.New(), NotebookId: notebookID, Type: entity.SourceTypePDF}
	site := &entity.Source{Id: uuid.New(), NotebookId: notebookID, Type: entity.SourceTypeWebsite, Url: "https://example.com"}

	tests := []struct {
		name      string
		source    *entity.Source
		isFirst   bool
		status    entity.GenerationStatus
		triggered bool
		target    string
	}{
		{name: "first text source on pending notebook", source: text, isFirst: true, status: entity.GenerationStatusPending, triggered: true},
		{name: "website passes its url", source: site, isFirst: true, status: entity.GenerationStatusPending, triggered: true, target: "https://example.com"},
		{name: "not first", source: text, isFirst: false, status: entity.GenerationStatusPending},
		{name: "pdf without file", source: emptyPDF, isFirst: true, status: entity.GenerationStatusPending},
		{name: "already completed", source: text, isFirst: true, status: entity.GenerationStatusDone},
		{name: "currently generating", source: text, isFirst: true, status: entity.GenerationStatusGenerating},
		{name: "failed notebook", source: text, isFirst: true, status: entity.GenerationStatusFailed},
		{name: "nil source", source: nil, isFirst: true, status: entity.GenerationStatusPending},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newGenerationFixture(GenerationOptions{})
			f.status.set(notebookID, tt.status)

			triggered, err := f.svc.TriggerIfFirst(context.Background(), tt.source, tt.isFirst)
			require.NoError(t, err)
			assert.Equal(t, tt.triggered, triggered)
			if tt.triggered {
				require.Equal(t, 1, f.invoker.callCount())
				assert.Equal(t, tt.target, f.invoker.lastCall().FilePath)
				assert.Equal(t, string(tt.source.Type), f.invoker.lastCall().SourceType)
			} else {
				assert.Zero(t, f.invoker.callCount())
			}
		})
	}
}

func TestTriggerIfFirstStatusError(t *testing.T) {
	f := newGenerationFixture(GenerationOptions{})
	f.status.failWith = errBoom
	source := &entity.Source{NotebookId: uuid.New(), Type: entity.SourceTypeText, Content: "x"}

	triggered, err := f.svc.TriggerIfFirst(context.Background(), source, true)
	assert.False(t, triggered)
	var storeErr *StoreError
	assert.ErrorAs(t, err, &storeErr)
	assert.Zero(t, f.invoker.callCount())
}

func TestObserveSourceChange(t *testing.T) {
	notebookID := uuid.New()
	withText := entity.Source{Id: uuid.New(), NotebookId: notebookID, Type: entity.SourceTypeText, Content: "x"}
	pdfEmpty := entity.Source{Id: uuid.New(), NotebookId: notebookID, Type: entity.SourceTypePDF}
	pdfFull := pdfEmpty
	pdfFull.FilePath = "uploads/a.pdf"

	tests := []struct {
		name    string
		enabled bool
		change  cache.Change
		invoked bool
	}{
		{
			name:    "first insert",
			enabled: true,
			change:  cache.Change{Event: entity.SourceEvent{Kind: entity.ChangeInsert, Record: withText}, Applied: true},
			invoked: true,
		},
		{
			name:    "disabled",
			enabled: false,
			change:  cache.Change{Event: entity.SourceEvent{Kind: entity.ChangeInsert, Record: withText}, Applied: true},
		},
		{
			name:    "not applied",
			enabled: true,
			change:  cache.Change{Event: entity.SourceEvent{Kind: entity.ChangeInsert, Record: withText}},
		},
		{
			name:    "second insert",
			enabled: true,
			change:  cache.Change{Event: entity.SourceEvent{Kind: entity.ChangeInsert, Record: withText}, Applied: true, PriorCount: 1},
		},
		{
			name:    "update completes only source",
			enabled: true,
			change:  cache.Change{Event: entity.SourceEvent{Kind: entity.ChangeUpdate, Record: pdfFull}, Applied: true, PriorCount: 1, Previous: &pdfEmpty},
			invoked: true,
		},
		{
			name:    "update of already complete source",
			enabled: true,
			change:  cache.Change{Event: entity.SourceEvent{Kind: entity.ChangeUpdate, Record: pdfFull}, Applied: true, PriorCount: 1, Previous: &pdfFull},
		},
		{
			name:    "delete",
			enabled: true,
			change:  cache.Change{Event: entity.SourceEvent{Kind: entity.ChangeDelete, Record: withText}, Applied: true, PriorCount: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newGenerationFixture(GenerationOptions{TriggerOnFeed: tt.enabled})
			f.svc.ObserveSourceChange(context.Background(), notebookID, tt.change)
			f.svc.wait()

			if tt.invoked {
				assert.Equal(t, 1, f.invoker.callCount())
			} else {
				assert.Zero(t, f.invoker.callCount())
			}
		})
	}
}
