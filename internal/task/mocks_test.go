package task

import (
	"context"
	"database/sql"
	"sync"

	"github.com/google/uuid"

	"github.com/lasprendas/tryon-api/internal/domain"
	"github.com/lasprendas/tryon-api/internal/store"
)

// mockSessionStore is a hand-rolled store.SessionStore for task tests.
type mockSessionStore struct {
	GetByIDFn          func(ctx context.Context, id, ownerID uuid.UUID) (*domain.TryOnSession, error)
	SetResultFn        func(ctx context.Context, id uuid.UUID, resultURL string) error
	UpdateEnrichmentFn func(ctx context.Context, session *domain.TryOnSession) error
	FindUnprocessedFn  func(ctx context.Context) ([]*domain.TryOnSession, error)
	SetResultCalls     []string
	EnrichmentCalls    int
}

func (m *mockSessionStore) Create(ctx context.Context, session *domain.TryOnSession) error {
	return nil
}

func (m *mockSessionStore) GetByID(ctx context.Context, id, ownerID uuid.UUID) (*domain.TryOnSession, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id, ownerID)
	}
	return nil, store.ErrSessionNotFound
}

func (m *mockSessionStore) SetResult(ctx context.Context, id uuid.UUID, resultURL string) error {
	m.SetResultCalls = append(m.SetResultCalls, resultURL)
	if m.SetResultFn != nil {
		return m.SetResultFn(ctx, id, resultURL)
	}
	return nil
}

func (m *mockSessionStore) UpdateEnrichment(ctx context.Context, session *domain.TryOnSession) error {
	m.EnrichmentCalls++
	if m.UpdateEnrichmentFn != nil {
		return m.UpdateEnrichmentFn(ctx, session)
	}
	return nil
}

func (m *mockSessionStore) FindUnprocessed(ctx context.Context) ([]*domain.TryOnSession, error) {
	if m.FindUnprocessedFn != nil {
		return m.FindUnprocessedFn(ctx)
	}
	return nil, nil
}

func (m *mockSessionStore) SoftDelete(ctx context.Context, id, ownerID uuid.UUID) error {
	return nil
}

func (m *mockSessionStore) WithTx(tx *sql.Tx) store.SessionStore {
	return m
}

// mockGarmentStore is a hand-rolled store.GarmentStore for task tests.
type mockGarmentStore struct {
	GetByIDFn          func(ctx context.Context, id, ownerID uuid.UUID) (*domain.Garment, error)
	FindUnprocessedFn  func(ctx context.Context) ([]*domain.Garment, error)
	UpdateEnrichmentFn func(ctx context.Context, garment *domain.Garment) error
	EnrichmentCalls    int
}

func (m *mockGarmentStore) Create(ctx context.Context, garment *domain.Garment) error {
	return nil
}

func (m *mockGarmentStore) GetByID(ctx context.Context, id, ownerID uuid.UUID) (*domain.Garment, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id, ownerID)
	}
	return nil, store.ErrGarmentNotFound
}

func (m *mockGarmentStore) FindByHash(ctx context.Context, hash string, ownerID uuid.UUID) (*domain.Garment, error) {
	return nil, store.ErrGarmentNotFound
}

func (m *mockGarmentStore) FindUnprocessed(ctx context.Context) ([]*domain.Garment, error) {
	if m.FindUnprocessedFn != nil {
		return m.FindUnprocessedFn(ctx)
	}
	return nil, nil
}

func (m *mockGarmentStore) UpdateEnrichment(ctx context.Context, garment *domain.Garment) error {
	m.EnrichmentCalls++
	if m.UpdateEnrichmentFn != nil {
		return m.UpdateEnrichmentFn(ctx, garment)
	}
	return nil
}

func (m *mockGarmentStore) SoftDelete(ctx context.Context, id, ownerID uuid.UUID) error {
	return nil
}

func (m *mockGarmentStore) WithTx(tx *sql.Tx) store.GarmentStore {
	return m
}

// mockObjectStore is a hand-rolled storage.ObjectStore for task tests. By
// default it serves objects from the Objects map and records puts back into
// it under "https://cdn.test/" URLs.
type mockObjectStore struct {
	mu      sync.Mutex
	Objects map[string][]byte
	PutFn   func(ctx context.Context, key string, data []byte, mimeType string) (string, error)
	GetFn   func(ctx context.Context, key string) ([]byte, error)
	Puts    []string
}

func newMockObjectStore() *mockObjectStore {
	return &mockObjectStore{
		Objects: make(map[string][]byte),
	}
}

func (m *mockObjectStore) Put(ctx context.Context, key string, data []byte, mimeType string) (string, error) {
	m.mu.Lock()
	m.Puts = append(m.Puts, key)
	m.mu.Unlock()
	if m.PutFn != nil {
		return m.PutFn(ctx, key, data, mimeType)
	}
	m.mu.Lock()
	m.Objects[key] = data
	m.mu.Unlock()
	return m.URL(key), nil
}

func (m *mockObjectStore) Get(ctx context.Context, key string) ([]byte, error) {
	if m.GetFn != nil {
		return m.GetFn(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.Objects[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	return data, nil
}

func (m *mockObjectStore) URL(key string) string {
	return "https://cdn.test/" + key
}

func (m *mockObjectStore) KeyFromURL(url string) (string, error) {
	const prefix = "https://cdn.test/"
	if len(url) > len(prefix) && url[:len(prefix)] == prefix {
		return url[len(prefix):], nil
	}
	return url, nil
}

// mockComposer is a hand-rolled generation.Composer for task tests.
type mockComposer struct {
	ComposeFn func(ctx context.Context, anchor []byte, garments [][]byte, instruction string) ([]byte, error)
	Calls     int
}

func (m *mockComposer) Compose(ctx context.Context, anchor []byte, garments [][]byte, instruction string) ([]byte, error) {
	m.Calls++
	return m.ComposeFn(ctx, anchor, garments, instruction)
}

// mockAnalyzer is a hand-rolled generation.Analyzer for task tests.
type mockAnalyzer struct {
	ExtractMetadataFn   func(ctx context.Context, image []byte) (*domain.GarmentMetadata, error)
	GenerateEmbeddingFn func(ctx context.Context, text string) ([]float32, error)
}

func (m *mockAnalyzer) ExtractMetadata(ctx context.Context, image []byte) (*domain.GarmentMetadata, error) {
	if m.ExtractMetadataFn != nil {
		return m.ExtractMetadataFn(ctx, image)
	}
	return testMetadata(), nil
}

func (m *mockAnalyzer) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if m.GenerateEmbeddingFn != nil {
		return m.GenerateEmbeddingFn(ctx, text)
	}
	return make([]float32, domain.EmbeddingDimensions), nil
}

// mockSubmitter records submitted tasks.
type mockSubmitter struct {
	mu       sync.Mutex
	SubmitFn func(ctx context.Context, task Task) error
	Tasks    []Task
}

func (m *mockSubmitter) Submit(ctx context.Context, task Task) error {
	m.mu.Lock()
	m.Tasks = append(m.Tasks, task)
	m.mu.Unlock()
	if m.SubmitFn != nil {
		return m.SubmitFn(ctx, task)
	}
	return nil
}

// mockRecurringJobStore is an in-memory store.RecurringJobStore.
type mockRecurringJobStore struct {
	mu      sync.Mutex
	Jobs    map[string]store.RecurringJob
	Removed []string
}

func newMockRecurringJobStore() *mockRecurringJobStore {
	return &mockRecurringJobStore{
		Jobs: make(map[string]store.RecurringJob),
	}
}

func (m *mockRecurringJobStore) List(ctx context.Context) ([]store.RecurringJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	jobs := make([]store.RecurringJob, 0, len(m.Jobs))
	for _, job := range m.Jobs {
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func (m *mockRecurringJobStore) Remove(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Removed = append(m.Removed, key)
	delete(m.Jobs, key)
	return nil
}

func (m *mockRecurringJobStore) Register(ctx context.Context, job store.RecurringJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Jobs[job.Key] = job
	return nil
}

// testMetadata builds a minimal valid metadata value.
func testMetadata() *domain.GarmentMetadata {
	return &domain.GarmentMetadata{
		Description: domain.LocalizedText{
			ES: "camiseta azul de algodón",
			EN: "blue cotton t-shirt",
		},
	}
}
