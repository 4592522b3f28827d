package task

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lasprendas/tryon-api/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAnalyzeGarmentTask_Execute_Success(t *testing.T) {
	t.Parallel()

	ownerID := uuid.New()
	objects := newMockObjectStore()
	key := "garments/original.png"
	objects.Objects[key] = []byte("image-bytes")

	garment, err := domain.NewGarment(ownerID, objects.URL(key), "tops", "abc123")
	require.NoError(t, err)

	garments := &mockGarmentStore{
		GetByIDFn: func(ctx context.Context, id, oid uuid.UUID) (*domain.Garment, error) {
			return garment, nil
		},
	}

	var embeddedText string
	analyzer := &mockAnalyzer{
		GenerateEmbeddingFn: func(ctx context.Context, text string) ([]float32, error) {
			embeddedText = text
			return make([]float32, domain.EmbeddingDimensions), nil
		},
	}

	task, err := NewAnalyzeGarmentTask(garment.ID, ownerID, garments, objects, analyzer, discardLogger())
	require.NoError(t, err)

	require.NoError(t, task.Execute(context.Background()))

	assert.Equal(t, 1, garments.EnrichmentCalls)
	assert.True(t, garment.IsEnriched())
	assert.Equal(t, "blue cotton t-shirt", embeddedText,
		"the embedding input should be the English description")
	assert.Equal(t, TaskStatusCompleted, task.Status())
}

func TestAnalyzeGarmentTask_Execute_MissingGarmentIsNoOp(t *testing.T) {
	t.Parallel()

	garments := &mockGarmentStore{} // GetByID defaults to not-found
	task, err := NewAnalyzeGarmentTask(uuid.New(), uuid.New(), garments, newMockObjectStore(), &mockAnalyzer{}, discardLogger())
	require.NoError(t, err)

	assert.NoError(t, task.Execute(context.Background()))
	assert.Zero(t, garments.EnrichmentCalls)
}

func TestAnalyzeGarmentTask_Execute_DeletedGarmentIsNoOp(t *testing.T) {
	t.Parallel()

	ownerID := uuid.New()
	garment, err := domain.NewGarment(ownerID, "https://cdn.test/garments/x.png", "tops", "")
	require.NoError(t, err)
	now := time.Now().UTC()
	garment.DeletedAt = &now

	garments := &mockGarmentStore{
		GetByIDFn: func(ctx context.Context, id, oid uuid.UUID) (*domain.Garment, error) {
			return garment, nil
		},
	}

	task, err := NewAnalyzeGarmentTask(garment.ID, ownerID, garments, newMockObjectStore(), &mockAnalyzer{}, discardLogger())
	require.NoError(t, err)

	assert.NoError(t, task.Execute(context.Background()))
	assert.Zero(t, garments.EnrichmentCalls)
	assert.False(t, garment.IsEnriched())
}

func TestAnalyzeGarmentTask_Execute_UpstreamFailurePropagates(t *testing.T) {
	t.Parallel()

	ownerID := uuid.New()
	objects := newMockObjectStore()
	key := "garments/original.png"
	objects.Objects[key] = []byte("image-bytes")

	garment, err := domain.NewGarment(ownerID, objects.URL(key), "tops", "")
	require.NoError(t, err)

	garments := &mockGarmentStore{
		GetByIDFn: func(ctx context.Context, id, oid uuid.UUID) (*domain.Garment, error) {
			return garment, nil
		},
	}

	wantErr := errors.New("metadata service unavailable")
	analyzer := &mockAnalyzer{
		ExtractMetadataFn: func(ctx context.Context, image []byte) (*domain.GarmentMetadata, error) {
			return nil, wantErr
		},
	}

	task, err := NewAnalyzeGarmentTask(garment.ID, ownerID, garments, objects, analyzer, discardLogger())
	require.NoError(t, err)

	err = task.Execute(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, wantErr)
	assert.Equal(t, TaskStatusFailed, task.Status())
	assert.Zero(t, garments.EnrichmentCalls)
}

func TestAnalyzeSessionTask_Execute_Success(t *testing.T) {
	t.Parallel()

	ownerID := uuid.New()
	objects := newMockObjectStore()
	resultKey := "results/result.png"
	objects.Objects[resultKey] = []byte("result-bytes")

	session := completedSession(t, ownerID, objects.URL(resultKey))
	sessions := &mockSessionStore{
		GetByIDFn: func(ctx context.Context, id, oid uuid.UUID) (*domain.TryOnSession, error) {
			return session, nil
		},
	}

	task, err := NewAnalyzeSessionTask(session.ID, ownerID, sessions, objects, &mockAnalyzer{}, discardLogger())
	require.NoError(t, err)

	require.NoError(t, task.Execute(context.Background()))
	assert.Equal(t, 1, sessions.EnrichmentCalls)
	assert.True(t, session.IsEnriched())
}

func TestAnalyzeSessionTask_Execute_PendingSessionIsSkipped(t *testing.T) {
	t.Parallel()

	ownerID := uuid.New()
	session := pendingSession(t, ownerID)
	sessions := &mockSessionStore{
		GetByIDFn: func(ctx context.Context, id, oid uuid.UUID) (*domain.TryOnSession, error) {
			return session, nil
		},
	}

	task, err := NewAnalyzeSessionTask(session.ID, ownerID, sessions, newMockObjectStore(), &mockAnalyzer{}, discardLogger())
	require.NoError(t, err)

	assert.NoError(t, task.Execute(context.Background()),
		"a session with no result yet is skipped, not failed")
	assert.Zero(t, sessions.EnrichmentCalls)
}

func TestAnalyzeSessionTask_Execute_DeletedSessionIsSkipped(t *testing.T) {
	t.Parallel()

	ownerID := uuid.New()
	session := completedSession(t, ownerID, "https://cdn.test/results/r.png")
	now := time.Now().UTC()
	session.DeletedAt = &now

	sessions := &mockSessionStore{
		GetByIDFn: func(ctx context.Context, id, oid uuid.UUID) (*domain.TryOnSession, error) {
			return session, nil
		},
	}

	task, err := NewAnalyzeSessionTask(session.ID, ownerID, sessions, newMockObjectStore(), &mockAnalyzer{}, discardLogger())
	require.NoError(t, err)

	assert.NoError(t, task.Execute(context.Background()))
	assert.Zero(t, sessions.EnrichmentCalls)
}

// pendingSession builds a valid session with no result.
func pendingSession(t *testing.T, ownerID uuid.UUID) *domain.TryOnSession {
	t.Helper()

	garment, err := domain.NewGarment(ownerID, "https://cdn.test/garments/g.png", "tops", "")
	require.NoError(t, err)

	session, err := domain.NewTryOnSession(
		ownerID,
		domain.StanceFemale,
		"https://cdn.test/"+domain.StanceFemale.AnchorKey(),
		[]*domain.Garment{garment},
	)
	require.NoError(t, err)
	return session
}

// completedSession builds a valid session whose result is already stored.
func completedSession(t *testing.T, ownerID uuid.UUID, resultURL string) *domain.TryOnSession {
	t.Helper()

	session := pendingSession(t, ownerID)
	require.NoError(t, session.SetResult(resultURL))
	return session
}
