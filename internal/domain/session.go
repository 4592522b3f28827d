package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common validation errors for TryOnSession
var (
	ErrEmptySessionID       = errors.New("session ID cannot be empty")
	ErrEmptySessionOwnerID  = errors.New("session owner ID cannot be empty")
	ErrEmptyMannequinURL    = errors.New("session mannequin URL cannot be empty")
	ErrNoSessionGarments    = errors.New("session must reference at least one garment")
	ErrResultAlreadySet     = errors.New("session result URL is already set")
	ErrEnrichBeforeComplete = errors.New("session cannot be enriched before a result exists")
)

// TryOnSession represents one try-on request and its outcome. A session is
// Pending while ResultURL is nil, Completed once the worker stores a result,
// and Enriched once metadata has been attached on top of that. No stored flag
// distinguishes these states; they are inferred from the nullable fields.
//
// Garments are shared references: a garment may belong to many sessions, and
// sessions never manage garment lifecycle.
type TryOnSession struct {
	ID           uuid.UUID        `json:"id"`
	OwnerID      uuid.UUID        `json:"owner_id"`
	Stance       Stance           `json:"stance"`
	MannequinURL string           `json:"mannequin_url"`
	ResultURL    *string          `json:"result_url,omitempty"`
	Garments     []*Garment       `json:"garments"`
	Metadata     *GarmentMetadata `json:"metadata,omitempty"`
	Embedding    []float32        `json:"embedding,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	DeletedAt    *time.Time       `json:"deleted_at,omitempty"`
}

// NewTryOnSession creates a new pending session for the given owner. The
// garment list must be non-empty; its order is preserved because the
// compositing call receives the garments in submission order.
// Returns an error if validation fails.
func NewTryOnSession(
	ownerID uuid.UUID,
	stance Stance,
	mannequinURL string,
	garments []*Garment,
) (*TryOnSession, error) {
	session := &TryOnSession{
		ID:           uuid.New(),
		OwnerID:      ownerID,
		Stance:       stance,
		MannequinURL: mannequinURL,
		Garments:     garments,
		CreatedAt:    time.Now().UTC(),
	}

	if err := session.Validate(); err != nil {
		return nil, err
	}

	return session, nil
}

// Validate checks if the TryOnSession has valid data.
// Returns an error if any field fails validation.
func (s *TryOnSession) Validate() error {
	if s.ID == uuid.Nil {
		return ErrEmptySessionID
	}

	if s.OwnerID == uuid.Nil {
		return ErrEmptySessionOwnerID
	}

	if s.MannequinURL == "" {
		return ErrEmptyMannequinURL
	}

	if len(s.Garments) == 0 {
		return ErrNoSessionGarments
	}

	return nil
}

// IsDeleted reports whether the session carries a tombstone.
func (s *TryOnSession) IsDeleted() bool {
	return s.DeletedAt != nil
}

// IsCompleted reports whether the try-on worker has stored a result.
func (s *TryOnSession) IsCompleted() bool {
	return s.ResultURL != nil
}

// IsEnriched reports whether the enrichment pipeline has populated the
// derived metadata.
func (s *TryOnSession) IsEnriched() bool {
	return s.Metadata != nil
}

// SetResult records the composited result URL. The transition is one-way:
// once set, the result is never reverted or replaced.
func (s *TryOnSession) SetResult(resultURL string) error {
	if resultURL == "" {
		return errors.New("result URL cannot be empty")
	}
	if s.ResultURL != nil {
		return ErrResultAlreadySet
	}

	s.ResultURL = &resultURL
	return nil
}

// SetEnrichment attaches the extracted metadata and its embedding. Enrichment
// is only valid after a result exists, and both fields are always written
// together.
func (s *TryOnSession) SetEnrichment(metadata *GarmentMetadata, embedding []float32) error {
	if s.ResultURL == nil {
		return ErrEnrichBeforeComplete
	}
	if metadata == nil {
		return errors.New("metadata cannot be nil")
	}
	if len(embedding) == 0 {
		return errors.New("embedding cannot be empty")
	}

	s.Metadata = metadata
	s.Embedding = embedding
	return nil
}
