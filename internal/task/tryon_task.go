package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/lasprendas/tryon-api/internal/domain"
	"github.com/lasprendas/tryon-api/internal/generation"
	"github.com/lasprendas/tryon-api/internal/media"
	"github.com/lasprendas/tryon-api/internal/storage"
	"github.com/lasprendas/tryon-api/internal/store"
)

// Common errors
var (
	ErrNilSessionStore = errors.New("session store cannot be nil")
	ErrNilGarmentStore = errors.New("garment store cannot be nil")
	ErrNilObjectStore  = errors.New("object store cannot be nil")
	ErrNilNormalizer   = errors.New("normalizer cannot be nil")
	ErrNilComposer     = errors.New("composer cannot be nil")
	ErrNilAnalyzer     = errors.New("analyzer cannot be nil")
	ErrNilLogger       = errors.New("logger cannot be nil")
	ErrNilFactory      = errors.New("task factory cannot be nil")
	ErrNilSubmitter    = errors.New("task submitter cannot be nil")
	ErrEmptySessionID  = errors.New("session ID cannot be empty")
	ErrEmptyOwnerID    = errors.New("owner ID cannot be empty")
)

// tryOnInstruction is the fixed instruction template sent alongside the
// anchor and garment images. It pins the anchor's pose, identity and
// background and asks for all garments to be fitted at once.
const tryOnInstruction = `STRICT ADHERENCE TO ANCHOR IMAGE (Image 1):
The gray mannequin in Image 1 is your ABSOLUTE ANCHOR.
Do NOT change its pose, face (no face), skin color (gray), body shape, underwear or background.

TRANSFER TASK:
Analyze the clothing items in the additional images (Images 2, 3, etc.).
Remove copyrighted or branded content from the images.
Fit ALL these items onto the mannequin from Image 1 simultaneously.
- Tops/Shirts go to the torso.
- Bottoms/Pants go to the legs.
- Accessories go to their respective natural positions.

REALISM & CONSISTENCY:
- Maintain the original lighting and neutral background.
- Ensure fabric draping, shadows, and scale are realistic for the mannequin's pose.
- The output MUST look like the original mannequin wearing the new clothes.
- Maintain the EXACT resolution and aspect ratio of Image 1 in the output.
- NO hallucinations, NO added people, NO changed environment.`

// tryOnPayload represents the serialized data stored in the task
type tryOnPayload struct {
	SessionID uuid.UUID     `json:"session_id"`
	OwnerID   uuid.UUID     `json:"owner_id"`
	Stance    domain.Stance `json:"stance"`
}

// TryOnTask implements the Task interface for compositing one try-on
// session. One task equals one session.
type TryOnTask struct {
	id           uuid.UUID
	sessionID    uuid.UUID
	ownerID      uuid.UUID
	stance       domain.Stance
	sessionStore store.SessionStore
	objects      storage.ObjectStore
	normalizer   *media.Normalizer
	composer     generation.Composer
	analyzer     generation.Analyzer
	logger       *slog.Logger
	status       TaskStatus
}

// NewTryOnTask creates a new try-on task for the given session
func NewTryOnTask(
	sessionID uuid.UUID,
	ownerID uuid.UUID,
	stance domain.Stance,
	sessionStore store.SessionStore,
	objects storage.ObjectStore,
	normalizer *media.Normalizer,
	composer generation.Composer,
	analyzer generation.Analyzer,
	logger *slog.Logger,
) (*TryOnTask, error) {
	// Validate dependencies
	if sessionStore == nil {
		return nil, ErrNilSessionStore
	}
	if objects == nil {
		return nil, ErrNilObjectStore
	}
	if normalizer == nil {
		return nil, ErrNilNormalizer
	}
	if composer == nil {
		return nil, ErrNilComposer
	}
	if analyzer == nil {
		return nil, ErrNilAnalyzer
	}
	if logger == nil {
		return nil, ErrNilLogger
	}

	if sessionID == uuid.Nil {
		return nil, ErrEmptySessionID
	}
	if ownerID == uuid.Nil {
		return nil, ErrEmptyOwnerID
	}

	return &TryOnTask{
		id:           uuid.New(),
		sessionID:    sessionID,
		ownerID:      ownerID,
		stance:       stance,
		sessionStore: sessionStore,
		objects:      objects,
		normalizer:   normalizer,
		composer:     composer,
		analyzer:     analyzer,
		logger:       logger.With("task_type", TaskTypeTryOn, "session_id", sessionID),
		status:       TaskStatusPending,
	}, nil
}

// ID returns the task's unique identifier
func (t *TryOnTask) ID() uuid.UUID {
	return t.id
}

// Type returns the task type identifier
func (t *TryOnTask) Type() string {
	return TaskTypeTryOn
}

// Payload returns the task data as a byte slice
func (t *TryOnTask) Payload() []byte {
	payload := tryOnPayload{
		SessionID: t.sessionID,
		OwnerID:   t.ownerID,
		Stance:    t.stance,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		// If marshal fails, return an empty payload with error logged
		t.logger.Error("failed to marshal task payload", "error", err)
		return []byte{}
	}

	return data
}

// Status returns the current task status
func (t *TryOnTask) Status() TaskStatus {
	return t.status
}

// Execute runs the try-on pipeline: load the session, normalize its garment
// images, invoke the compositing model, persist the result and record its
// URL. A model response without an image degrades to the anchor image rather
// than failing. Enrichment of the result is attempted last and is strictly
// best-effort; the job's success is defined by the result write alone.
func (t *TryOnTask) Execute(ctx context.Context) error {
	t.status = TaskStatusProcessing
	t.logger.Info("starting try-on task")

	if err := ctx.Err(); err != nil {
		t.status = TaskStatusFailed
		return fmt.Errorf("task cancelled by context: %w", err)
	}

	// 1. Load the session
	session, err := t.sessionStore.GetByID(ctx, t.sessionID, t.ownerID)
	if err != nil {
		t.status = TaskStatusFailed
		t.logger.Error("failed to load session", "error", err)
		return fmt.Errorf("failed to load session: %w", err)
	}

	if session.IsDeleted() {
		t.logger.Warn("session was deleted before processing, skipping")
		t.status = TaskStatusCompleted
		return nil
	}

	// 2. Load the anchor image for the session's recorded stance
	anchor, err := t.objects.Get(ctx, session.Stance.AnchorKey())
	if err != nil {
		t.status = TaskStatusFailed
		t.logger.Error("failed to load anchor image", "error", err, "stance", session.Stance)
		return fmt.Errorf("failed to load anchor image: %w", err)
	}

	// 3. Fetch and normalize every garment image, in submission order
	normalized := make([][]byte, 0, len(session.Garments))
	for _, garment := range session.Garments {
		key, err := t.objects.KeyFromURL(garment.OriginalURL)
		if err != nil {
			t.status = TaskStatusFailed
			t.logger.Error("failed to resolve garment storage key",
				"error", err,
				"garment_id", garment.ID)
			return fmt.Errorf("failed to resolve garment storage key: %w", err)
		}

		raw, err := t.objects.Get(ctx, key)
		if err != nil {
			t.status = TaskStatusFailed
			t.logger.Error("failed to fetch garment image",
				"error", err,
				"garment_id", garment.ID)
			return fmt.Errorf("failed to fetch garment image: %w", err)
		}

		img, err := t.normalizer.Normalize(raw)
		if err != nil {
			t.status = TaskStatusFailed
			t.logger.Error("failed to normalize garment image",
				"error", err,
				"garment_id", garment.ID)
			return fmt.Errorf("failed to normalize garment image: %w", err)
		}

		normalized = append(normalized, img)
	}

	// 4. Invoke the compositing model
	result, err := t.composer.Compose(ctx, anchor, normalized, tryOnInstruction)
	if err != nil {
		if errors.Is(err, generation.ErrNoImage) || errors.Is(err, generation.ErrContentBlocked) {
			// 5. Degraded result: the model answered without a usable image,
			// whatever the response shape. The anchor image becomes the
			// result and the job still succeeds; only transport and
			// persistence failures fail the task.
			t.logger.Warn("model returned no usable image, substituting anchor image",
				"error", err)
			result = anchor
		} else {
			t.status = TaskStatusFailed
			t.logger.Error("compositing call failed", "error", err)
			return fmt.Errorf("compositing call failed: %w", err)
		}
	}

	// 6. Persist the result under a fresh key
	resultKey := fmt.Sprintf("results/%s.png", uuid.New())
	resultURL, err := t.objects.Put(ctx, resultKey, result, media.NormalizedMIMEType)
	if err != nil {
		t.status = TaskStatusFailed
		t.logger.Error("failed to persist result image", "error", err)
		return fmt.Errorf("failed to persist result image: %w", err)
	}

	// 7. Record the result URL (the Pending -> Completed transition)
	if err := t.sessionStore.SetResult(ctx, session.ID, resultURL); err != nil {
		t.status = TaskStatusFailed
		t.logger.Error("failed to record session result", "error", err)
		return fmt.Errorf("failed to record session result: %w", err)
	}

	t.logger.Info("session result recorded", "result_key", resultKey)

	// 8. Best-effort enrichment of the result. Failures here are logged and
	// swallowed; the session stays Completed and reconciliation picks the
	// enrichment up later.
	t.enrichResult(ctx, session, resultURL, result)

	t.status = TaskStatusCompleted
	t.logger.Info("try-on task completed successfully")
	return nil
}

// enrichResult attaches metadata and an embedding to a freshly completed
// session. Never fails the task.
func (t *TryOnTask) enrichResult(
	ctx context.Context,
	session *domain.TryOnSession,
	resultURL string,
	result []byte,
) {
	metadata, err := t.analyzer.ExtractMetadata(ctx, result)
	if err != nil {
		t.logger.Warn("inline enrichment skipped: metadata extraction failed", "error", err)
		return
	}

	embedding, err := t.analyzer.GenerateEmbedding(ctx, metadata.Description.EN)
	if err != nil {
		t.logger.Warn("inline enrichment skipped: embedding generation failed", "error", err)
		return
	}

	session.ResultURL = &resultURL
	if err := session.SetEnrichment(metadata, embedding); err != nil {
		t.logger.Warn("inline enrichment skipped: invalid enrichment", "error", err)
		return
	}

	if err := t.sessionStore.UpdateEnrichment(ctx, session); err != nil {
		t.logger.Warn("inline enrichment skipped: persist failed", "error", err)
		return
	}

	t.logger.Info("session enriched inline")
}
