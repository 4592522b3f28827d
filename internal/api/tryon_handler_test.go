package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lasprendas/tryon-api/internal/api/shared"
	"github.com/lasprendas/tryon-api/internal/domain"
	"github.com/lasprendas/tryon-api/internal/service"
)

// mockTryOnService implements service.TryOnService with overridable behavior.
type mockTryOnService struct {
	SubmitFn     func(ctx context.Context, req service.SubmitRequest) (*service.SubmitResult, error)
	GetSessionFn func(ctx context.Context, id, ownerID uuid.UUID) (*domain.TryOnSession, error)

	LastSubmit *service.SubmitRequest
}

func (m *mockTryOnService) Submit(ctx context.Context, req service.SubmitRequest) (*service.SubmitResult, error) {
	m.LastSubmit = &req
	if m.SubmitFn != nil {
		return m.SubmitFn(ctx, req)
	}
	return &service.SubmitResult{SessionID: uuid.New()}, nil
}

func (m *mockTryOnService) GetSession(ctx context.Context, id, ownerID uuid.UUID) (*domain.TryOnSession, error) {
	if m.GetSessionFn != nil {
		return m.GetSessionFn(ctx, id, ownerID)
	}
	return nil, service.ErrSessionNotFound
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestRouter mounts the handler behind a middleware that injects the
// given owner ID, mirroring the production router shape.
func newTestRouter(svc service.TryOnService, ownerID uuid.UUID) http.Handler {
	handler := NewTryOnHandler(svc, testLogger())

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := req.Context()
			if ownerID != uuid.Nil {
				ctx = context.WithValue(ctx, shared.OwnerIDContextKey, ownerID)
			}
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	r.Post("/try-on", handler.SubmitTryOn)
	r.Get("/try-on/{id}", handler.GetSession)
	return r
}

func postJSON(t *testing.T, router http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	data, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestSubmitTryOn_Success(t *testing.T) {
	t.Parallel()

	ownerID := uuid.New()
	sessionID := uuid.New()
	garment, err := domain.NewGarment(ownerID, "https://cdn.test/uploads/shirt.png", "upper_body", "h1")
	require.NoError(t, err)

	svc := &mockTryOnService{
		SubmitFn: func(ctx context.Context, req service.SubmitRequest) (*service.SubmitResult, error) {
			return &service.SubmitResult{
				SessionID:   sessionID,
				NewGarments: []*domain.Garment{garment},
			}, nil
		},
	}
	router := newTestRouter(svc, ownerID)

	existingID := uuid.New()
	rec := postJSON(t, router, "/try-on", map[string]interface{}{
		"uploads":              []map[string]string{{"key": "uploads/shirt.png", "hash": "h1"}},
		"category":             "upper_body",
		"existing_garment_ids": []string{existingID.String()},
		"stance":               "male",
	})

	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp SubmitTryOnResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, sessionID.String(), resp.SessionID)
	assert.Equal(t, "pending", resp.Status)
	require.Len(t, resp.NewGarments, 1)
	assert.Equal(t, garment.ID.String(), resp.NewGarments[0].ID)

	require.NotNil(t, svc.LastSubmit)
	assert.Equal(t, ownerID, svc.LastSubmit.OwnerID)
	assert.Equal(t, "male", svc.LastSubmit.Stance)
	assert.Equal(t, []uuid.UUID{existingID}, svc.LastSubmit.ExistingGarmentIDs)
	require.Len(t, svc.LastSubmit.Uploads, 1)
	assert.Equal(t, "uploads/shirt.png", svc.LastSubmit.Uploads[0].Key)
}

func TestSubmitTryOn_MissingOwner(t *testing.T) {
	t.Parallel()

	svc := &mockTryOnService{}
	router := newTestRouter(svc, uuid.Nil)

	rec := postJSON(t, router, "/try-on", map[string]interface{}{
		"uploads": []map[string]string{{"key": "uploads/shirt.png"}},
	})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, svc.LastSubmit, "service must not be called without an owner")
}

func TestSubmitTryOn_InvalidBody(t *testing.T) {
	t.Parallel()

	svc := &mockTryOnService{}
	router := newTestRouter(svc, uuid.New())

	req := httptest.NewRequest(http.MethodPost, "/try-on", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, svc.LastSubmit)
}

func TestSubmitTryOn_ValidationFailure(t *testing.T) {
	t.Parallel()

	svc := &mockTryOnService{}
	router := newTestRouter(svc, uuid.New())

	// Upload entry with an empty key fails struct validation.
	rec := postJSON(t, router, "/try-on", map[string]interface{}{
		"uploads": []map[string]string{{"key": ""}},
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, svc.LastSubmit)
}

func TestSubmitTryOn_MalformedExistingID(t *testing.T) {
	t.Parallel()

	svc := &mockTryOnService{}
	router := newTestRouter(svc, uuid.New())

	rec := postJSON(t, router, "/try-on", map[string]interface{}{
		"existing_garment_ids": []string{"not-a-uuid"},
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, svc.LastSubmit)
}

func TestSubmitTryOn_ServiceErrorMapping(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"capacity exceeded maps to 429", service.ErrCapacityExceeded, http.StatusTooManyRequests},
		{"empty garment set maps to 400", service.ErrNoGarments, http.StatusBadRequest},
		{"missing session maps to 404", service.ErrSessionNotFound, http.StatusNotFound},
		{"unknown error maps to 500", assert.AnError, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			svc := &mockTryOnService{
				SubmitFn: func(ctx context.Context, req service.SubmitRequest) (*service.SubmitResult, error) {
					return nil, tc.err
				},
			}
			router := newTestRouter(svc, uuid.New())

			rec := postJSON(t, router, "/try-on", map[string]interface{}{
				"uploads": []map[string]string{{"key": "uploads/shirt.png"}},
			})

			assert.Equal(t, tc.wantStatus, rec.Code)

			var resp shared.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.NotContains(t, resp.Error, "assert.AnError", "raw error details must not leak")
		})
	}
}

func TestGetSession(t *testing.T) {
	t.Parallel()

	ownerID := uuid.New()
	garment, err := domain.NewGarment(ownerID, "https://cdn.test/uploads/shirt.png", "upper_body", "")
	require.NoError(t, err)
	session, err := domain.NewTryOnSession(
		ownerID,
		domain.StanceFemale,
		"https://cdn.test/assets/female_mannequin_anchor.png",
		[]*domain.Garment{garment},
	)
	require.NoError(t, err)
	resultURL := "https://cdn.test/results/abc.png"
	require.NoError(t, session.SetResult(resultURL))

	svc := &mockTryOnService{
		GetSessionFn: func(ctx context.Context, id, owner uuid.UUID) (*domain.TryOnSession, error) {
			if id == session.ID && owner == ownerID {
				return session, nil
			}
			return nil, service.ErrSessionNotFound
		},
	}
	router := newTestRouter(svc, ownerID)

	t.Run("returns the session with garments and result", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/try-on/"+session.ID.String(), nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		var resp SessionResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, session.ID.String(), resp.ID)
		assert.Equal(t, "female", resp.Stance)
		require.NotNil(t, resp.ResultURL)
		assert.Equal(t, resultURL, *resp.ResultURL)
		require.Len(t, resp.Garments, 1)
		assert.Equal(t, garment.ID.String(), resp.Garments[0].ID)
	})

	t.Run("unknown session id returns 404", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/try-on/"+uuid.New().String(), nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("malformed session id returns 400", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/try-on/not-a-uuid", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
