package service

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/lasprendas/tryon-api/internal/domain"
	"github.com/lasprendas/tryon-api/internal/events"
	"github.com/lasprendas/tryon-api/internal/store"
)

// passthroughTxRunner runs the function directly, without a transaction.
// Store mocks tolerate the nil *sql.Tx by returning themselves from WithTx.
type passthroughTxRunner struct {
	Calls int
}

func (r *passthroughTxRunner) RunInTransaction(ctx context.Context, fn store.TxFn) error {
	r.Calls++
	return fn(ctx, nil)
}

// memGarmentStore is an in-memory store.GarmentStore for service tests.
type memGarmentStore struct {
	garments map[uuid.UUID]*domain.Garment
	CreateFn func(ctx context.Context, garment *domain.Garment) error
}

func newMemGarmentStore() *memGarmentStore {
	return &memGarmentStore{
		garments: make(map[uuid.UUID]*domain.Garment),
	}
}

func (m *memGarmentStore) Create(ctx context.Context, garment *domain.Garment) error {
	if m.CreateFn != nil {
		if err := m.CreateFn(ctx, garment); err != nil {
			return err
		}
	}
	m.garments[garment.ID] = garment
	return nil
}

func (m *memGarmentStore) GetByID(ctx context.Context, id, ownerID uuid.UUID) (*domain.Garment, error) {
	garment, ok := m.garments[id]
	if !ok || garment.OwnerID != ownerID {
		return nil, store.ErrGarmentNotFound
	}
	return garment, nil
}

func (m *memGarmentStore) FindByHash(ctx context.Context, hash string, ownerID uuid.UUID) (*domain.Garment, error) {
	for _, garment := range m.garments {
		if garment.Hash == hash && garment.OwnerID == ownerID && !garment.IsDeleted() {
			return garment, nil
		}
	}
	return nil, store.ErrGarmentNotFound
}

func (m *memGarmentStore) FindUnprocessed(ctx context.Context) ([]*domain.Garment, error) {
	var out []*domain.Garment
	for _, garment := range m.garments {
		if garment.Metadata == nil && !garment.IsDeleted() {
			out = append(out, garment)
		}
	}
	return out, nil
}

func (m *memGarmentStore) UpdateEnrichment(ctx context.Context, garment *domain.Garment) error {
	m.garments[garment.ID] = garment
	return nil
}

func (m *memGarmentStore) SoftDelete(ctx context.Context, id, ownerID uuid.UUID) error {
	return nil
}

func (m *memGarmentStore) WithTx(tx *sql.Tx) store.GarmentStore {
	return m
}

// memSessionStore is an in-memory store.SessionStore for service tests.
type memSessionStore struct {
	sessions map[uuid.UUID]*domain.TryOnSession
	CreateFn func(ctx context.Context, session *domain.TryOnSession) error
}

func newMemSessionStore() *memSessionStore {
	return &memSessionStore{
		sessions: make(map[uuid.UUID]*domain.TryOnSession),
	}
}

func (m *memSessionStore) Create(ctx context.Context, session *domain.TryOnSession) error {
	if m.CreateFn != nil {
		if err := m.CreateFn(ctx, session); err != nil {
			return err
		}
	}
	m.sessions[session.ID] = session
	return nil
}

func (m *memSessionStore) GetByID(ctx context.Context, id, ownerID uuid.UUID) (*domain.TryOnSession, error) {
	session, ok := m.sessions[id]
	if !ok || session.OwnerID != ownerID {
		return nil, store.ErrSessionNotFound
	}
	return session, nil
}

func (m *memSessionStore) SetResult(ctx context.Context, id uuid.UUID, resultURL string) error {
	session, ok := m.sessions[id]
	if !ok {
		return store.ErrSessionNotFound
	}
	if session.ResultURL != nil {
		return nil
	}
	session.ResultURL = &resultURL
	return nil
}

func (m *memSessionStore) UpdateEnrichment(ctx context.Context, session *domain.TryOnSession) error {
	m.sessions[session.ID] = session
	return nil
}

func (m *memSessionStore) FindUnprocessed(ctx context.Context) ([]*domain.TryOnSession, error) {
	var out []*domain.TryOnSession
	for _, session := range m.sessions {
		if session.Metadata == nil && !session.IsDeleted() {
			out = append(out, session)
		}
	}
	return out, nil
}

func (m *memSessionStore) SoftDelete(ctx context.Context, id, ownerID uuid.UUID) error {
	return nil
}

func (m *memSessionStore) WithTx(tx *sql.Tx) store.SessionStore {
	return m
}

// fakeObjectStore resolves keys to stable URLs.
type fakeObjectStore struct{}

func (fakeObjectStore) Put(ctx context.Context, key string, data []byte, mimeType string) (string, error) {
	return "https://cdn.test/" + key, nil
}

func (fakeObjectStore) Get(ctx context.Context, key string) ([]byte, error) {
	return nil, store.ErrNotFound
}

func (fakeObjectStore) URL(key string) string {
	return "https://cdn.test/" + key
}

func (fakeObjectStore) KeyFromURL(url string) (string, error) {
	return url, nil
}

// fakeQueue reports a fixed queue depth.
type fakeQueue struct {
	Depth int
	Err   error
}

func (q *fakeQueue) CountWaiting(ctx context.Context) (int, error) {
	return q.Depth, q.Err
}

// recordingEmitter captures emitted events.
type recordingEmitter struct {
	Events []*events.TaskRequestEvent
	EmitFn func(ctx context.Context, event *events.TaskRequestEvent) error
}

func (e *recordingEmitter) EmitEvent(ctx context.Context, event *events.TaskRequestEvent) error {
	e.Events = append(e.Events, event)
	if e.EmitFn != nil {
		return e.EmitFn(ctx, event)
	}
	return nil
}
