package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/lasprendas/tryon-api/internal/api/shared"
	"github.com/lasprendas/tryon-api/internal/domain"
	"github.com/lasprendas/tryon-api/internal/service"
)

// UploadedGarmentRequest references one uploaded image by its storage key.
type UploadedGarmentRequest struct {
	Key  string `json:"key"  validate:"required,min=1"`
	Hash string `json:"hash" validate:"omitempty,min=1"`
}

// SubmitTryOnRequest represents the request body for submitting a try-on.
// Uploads and existing garment ids may both be empty individually, but the
// service rejects submissions where neither resolves to a garment.
type SubmitTryOnRequest struct {
	Uploads            []UploadedGarmentRequest `json:"uploads"              validate:"dive"`
	Category           string                   `json:"category"             validate:"omitempty,min=1,max=64"`
	ExistingGarmentIDs []string                 `json:"existing_garment_ids" validate:"dive,uuid"`
	Stance             string                   `json:"stance"               validate:"omitempty,min=1,max=32"`
}

// GarmentResponse represents the response data for a garment.
type GarmentResponse struct {
	ID          string    `json:"id"`
	OriginalURL string    `json:"original_url"`
	Category    string    `json:"category,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// SubmitTryOnResponse is the synchronous answer to a submission. The visual
// result is produced asynchronously and retrieved via GetSession.
type SubmitTryOnResponse struct {
	SessionID   string            `json:"session_id"`
	Status      string            `json:"status"`
	NewGarments []GarmentResponse `json:"new_garments"`
}

// SessionResponse represents the response data for a try-on session.
type SessionResponse struct {
	ID           string                  `json:"id"`
	Stance       string                  `json:"stance"`
	MannequinURL string                  `json:"mannequin_url"`
	ResultURL    *string                 `json:"result_url,omitempty"`
	Metadata     *domain.GarmentMetadata `json:"metadata,omitempty"`
	Garments     []GarmentResponse       `json:"garments"`
	CreatedAt    time.Time               `json:"created_at"`
}

// TryOnHandler handles try-on HTTP requests.
type TryOnHandler struct {
	tryOnService service.TryOnService
	validator    *validator.Validate
	logger       *slog.Logger
}

// NewTryOnHandler creates a new TryOnHandler.
func NewTryOnHandler(tryOnService service.TryOnService, logger *slog.Logger) *TryOnHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TryOnHandler{
		tryOnService: tryOnService,
		validator:    validator.New(),
		logger:       logger.With("component", "tryon_handler"),
	}
}

// SubmitTryOn handles POST /api/try-on requests.
func (h *TryOnHandler) SubmitTryOn(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := getOwnerIDFromContext(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Owner ID not found or invalid")
		return
	}

	var req SubmitTryOnRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	existingIDs := make([]uuid.UUID, 0, len(req.ExistingGarmentIDs))
	for _, raw := range req.ExistingGarmentIDs {
		// Format already validated by the uuid tag.
		id, err := uuid.Parse(raw)
		if err != nil {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid garment ID")
			return
		}
		existingIDs = append(existingIDs, id)
	}

	uploads := make([]service.UploadedGarment, 0, len(req.Uploads))
	for _, upload := range req.Uploads {
		uploads = append(uploads, service.UploadedGarment{
			Key:  upload.Key,
			Hash: upload.Hash,
		})
	}

	result, err := h.tryOnService.Submit(r.Context(), service.SubmitRequest{
		OwnerID:            ownerID,
		Uploads:            uploads,
		Category:           req.Category,
		ExistingGarmentIDs: existingIDs,
		Stance:             req.Stance,
	})
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	response := SubmitTryOnResponse{
		SessionID:   result.SessionID.String(),
		Status:      "pending",
		NewGarments: garmentsToDTOResponse(result.NewGarments),
	}

	// Processing happens asynchronously, so the submission is only accepted.
	shared.RespondWithJSON(w, r, http.StatusAccepted, response)
}

// GetSession handles GET /api/try-on/{id} requests.
func (h *TryOnHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := getOwnerIDFromContext(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Owner ID not found or invalid")
		return
	}

	sessionID, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	session, err := h.tryOnService.GetSession(r.Context(), sessionID, ownerID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, sessionToDTOResponse(session))
}

// garmentsToDTOResponse converts domain garments to response DTOs.
func garmentsToDTOResponse(garments []*domain.Garment) []GarmentResponse {
	out := make([]GarmentResponse, 0, len(garments))
	for _, garment := range garments {
		out = append(out, GarmentResponse{
			ID:          garment.ID.String(),
			OriginalURL: garment.OriginalURL,
			Category:    garment.Category,
			CreatedAt:   garment.CreatedAt,
		})
	}
	return out
}

// sessionToDTOResponse converts a domain.TryOnSession to a SessionResponse.
func sessionToDTOResponse(session *domain.TryOnSession) SessionResponse {
	return SessionResponse{
		ID:           session.ID.String(),
		Stance:       string(session.Stance),
		MannequinURL: session.MannequinURL,
		ResultURL:    session.ResultURL,
		Metadata:     session.Metadata,
		Garments:     garmentsToDTOResponse(session.Garments),
		CreatedAt:    session.CreatedAt,
	}
}
