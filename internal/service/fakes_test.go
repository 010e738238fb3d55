package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"notebook-sources-be/internal/entity"
	"notebook-sources-be/internal/repository/contract"
	"notebook-sources-be/internal/repository/specification"

	"github.com/google/uuid"
)

// memorySourceRepo is an in-memory store that publishes change events after
// each write, the same way the gorm repository does.
type memorySourceRepo struct {
	mu        sync.Mutex
	rows      map[uuid.UUID]entity.Source
	publisher contract.ChangePublisher
	failWith  error
	inserts   int
}

func newMemorySourceRepo(publisher contract.ChangePublisher) *memorySourceRepo {
	return &memorySourceRepo{rows: make(map[uuid.UUID]entity.Source), publisher: publisher}
}

func (r *memorySourceRepo) Select(ctx context.Context, specs ...specification.Specification) ([]*entity.Source, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return nil, r.failWith
	}
	notebookID, id := notebookFilter(specs), idFilter(specs)
	var res []*entity.Source
	for _, row := range r.rows {
		if (id != uuid.Nil && row.Id == id) || (id == uuid.Nil && row.NotebookId == notebookID) {
			row := row
			res = append(res, &row)
		}
	}
	return res, nil
}

func (r *memorySourceRepo) Insert(ctx context.Context, draft *entity.SourceDraft) (*entity.Source, error) {
	r.mu.Lock()
	if r.failWith != nil {
		r.mu.Unlock()
		return nil, r.failWith
	}
	r.inserts++
	source := entity.Source{
		Id:         uuid.New(),
		NotebookId: draft.NotebookId,
		Type:       draft.Type,
		Title:      draft.Title,
		Content:    draft.Content,
		Url:        draft.Url,
		FilePath:   draft.FilePath,
		FileSize:   draft.FileSize,
		CreatedAt:  time.Now().Add(time.Duration(r.inserts) * time.Millisecond),
	}
	r.rows[source.Id] = source
	r.mu.Unlock()

	r.publish(ctx, entity.ChangeInsert, source)
	return &source, nil
}

func (r *memorySourceRepo) Update(ctx context.Context, id uuid.UUID, patch entity.SourcePatch) (*entity.Source, error) {
	r.mu.Lock()
	source, ok := r.rows[id]
	if !ok {
		r.mu.Unlock()
		return nil, contract.ErrSourceNotFound
	}
	if patch.Title != nil {
		source.Title = *patch.Title
	}
	if patch.FilePath != nil {
		source.FilePath = *patch.FilePath
	}
	if patch.FileSize != nil {
		source.FileSize = patch.FileSize
	}
	if patch.ProcessingStatus != nil {
		source.ProcessingStatus = *patch.ProcessingStatus
	}
	now := time.Now()
	source.UpdatedAt = &now
	r.rows[id] = source
	r.mu.Unlock()

	r.publish(ctx, entity.ChangeUpdate, source)
	return &source, nil
}

func (r *memorySourceRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	source, ok := r.rows[id]
	if !ok {
		r.mu.Unlock()
		return contract.ErrSourceNotFound
	}
	delete(r.rows, id)
	r.mu.Unlock()

	r.publish(ctx, entity.ChangeDelete, entity.Source{Id: source.Id, NotebookId: source.NotebookId})
	return nil
}

func (r *memorySourceRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	sources, err := r.Select(ctx, specs...)
	return int64(len(sources)), err
}

func (r *memorySourceRepo) publish(ctx context.Context, kind entity.ChangeKind, source entity.Source) {
	if r.publisher == nil {
		return
	}
	_ = r.publisher.PublishSourceChange(ctx, entity.SourceEvent{Kind: kind, Record: source})
}

func notebookFilter(specs []specification.Specification) uuid.UUID {
	for _, spec := range specs {
		if s, ok := spec.(specification.ByNotebookID); ok {
			return s.NotebookID
		}
	}
	return uuid.Nil
}

func idFilter(specs []specification.Specification) uuid.UUID {
	for _, spec := range specs {
		if s, ok := spec.(specification.ByID); ok {
			return s.ID
		}
	}
	return uuid.Nil
}

// fakeNotebookRepo answers FindOne only for the owner, like the ByUserID
// filter does in SQL.
type fakeNotebookRepo struct {
	mu        sync.Mutex
	notebooks map[uuid.UUID]*entity.Notebook
	failWith  error
	finds     int
}

func newFakeNotebookRepo() *fakeNotebookRepo {
	return &fakeNotebookRepo{notebooks: make(map[uuid.UUID]*entity.Notebook)}
}

func (r *fakeNotebookRepo) add(owner uuid.UUID) uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	nb := &entity.Notebook{Id: uuid.New(), UserId: owner, GenerationStatus: entity.GenerationStatusPending}
	r.notebooks[nb.Id] = nb
	return nb.Id
}

func (r *fakeNotebookRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Notebook, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finds++
	if r.failWith != nil {
		return nil, r.failWith
	}
	var id, owner uuid.UUID
	for _, spec := range specs {
		switch s := spec.(type) {
		case specification.ByID:
			id = s.ID
		case specification.ByUserID:
			owner = s.UserID
		}
	}
	nb, ok := r.notebooks[id]
	if !ok || nb.UserId != owner {
		return nil, nil
	}
	return nb, nil
}

func (r *fakeNotebookRepo) GetGenerationStatus(ctx context.Context, id uuid.UUID) (entity.GenerationStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	nb, ok := r.notebooks[id]
	if !ok {
		return "", errors.New("notebook not found")
	}
	return nb.GenerationStatus, nil
}

type fakeStatus struct {
	mu          sync.Mutex
	statuses    map[uuid.UUID]entity.GenerationStatus
	invalidated int
	failWith    error
}

func newFakeStatus() *fakeStatus {
	return &fakeStatus{statuses: make(map[uuid.UUID]entity.GenerationStatus)}
}

func (s *fakeStatus) GetGenerationStatus(ctx context.Context, notebookID uuid.UUID) (entity.GenerationStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return "", s.failWith
	}
	status, ok := s.statuses[notebookID]
	if !ok {
		return entity.GenerationStatusPending, nil
	}
	return status, nil
}

func (s *fakeStatus) Invalidate(notebookID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalidated++
}

func (s *fakeStatus) set(notebookID uuid.UUID, status entity.GenerationStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[notebookID] = status
}

// fakeInvoker records job calls. When gate is set each call signals entered
// and waits for the gate to close.
type fakeInvoker struct {
	mu       sync.Mutex
	calls    []jobPayload
	failWith error
	gate     chan struct{}
	entered  chan struct{}
	onInvoke func(p jobPayload)
}

func (f *fakeInvoker) Invoke(ctx context.Context, jobName string, payload interface{}) (json.RawMessage, error) {
	p := payload.(jobPayload)
	f.mu.Lock()
	f.calls = append(f.calls, p)
	gate, entered, onInvoke, err := f.gate, f.entered, f.onInvoke, f.failWith
	f.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	if onInvoke != nil {
		onInvoke(p)
	}
	if err != nil {
		return nil, err
	}
	return json.RawMessage(`{"success":true}`), nil
}

func (f *fakeInvoker) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeInvoker) lastCall() jobPayload {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

type fakeDelivery struct {
	mu         sync.Mutex
	toUser     map[uuid.UUID][]entity.Notification
	toNotebook map[uuid.UUID][]entity.Notification
}

func newFakeDelivery() *fakeDelivery {
	return &fakeDelivery{
		toUser:     make(map[uuid.UUID][]entity.Notification),
		toNotebook: make(map[uuid.UUID][]entity.Notification),
	}
}

func (d *fakeDelivery) Send(userID uuid.UUID, n entity.Notification) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.toUser[userID] = append(d.toUser[userID], n)
}

func (d *fakeDelivery) SendToNotebook(notebookID uuid.UUID, n entity.Notification) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.toNotebook[notebookID] = append(d.toNotebook[notebookID], n)
}

func (d *fakeDelivery) userNotifications(userID uuid.UUID) []entity.Notification {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]entity.Notification(nil), d.toUser[userID]...)
}

func (d *fakeDelivery) notebookNotifications(notebookID uuid.UUID) []entity.Notification {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]entity.Notification(nil), d.toNotebook[notebookID]...)
}

var errBoom = errors.New("boom")
