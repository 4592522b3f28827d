package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common validation errors for Garment
var (
	ErrEmptyGarmentID      = errors.New("garment ID cannot be empty")
	ErrEmptyGarmentOwnerID = errors.New("garment owner ID cannot be empty")
	ErrEmptyGarmentURL     = errors.New("garment original URL cannot be empty")
)

// Garment represents a stored reference to a single clothing or accessory
// image. The image bytes themselves live in object storage; OriginalURL is
// the public storage reference. Metadata and Embedding stay nil until the
// enrichment pipeline succeeds, and are always written together.
type Garment struct {
	ID          uuid.UUID        `json:"id"`
	OwnerID     uuid.UUID        `json:"owner_id"`
	OriginalURL string           `json:"original_url"`
	Category    string           `json:"category"`
	Hash        string           `json:"hash,omitempty"`
	Metadata    *GarmentMetadata `json:"metadata,omitempty"`
	Embedding   []float32        `json:"embedding,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	DeletedAt   *time.Time       `json:"deleted_at,omitempty"`
}

// NewGarment creates a new Garment owned by the given user. The hash is an
// optional content fingerprint used for upload deduplication; pass "" when
// the client did not supply one.
// Returns an error if validation fails.
func NewGarment(ownerID uuid.UUID, originalURL, category, hash string) (*Garment, error) {
	garment := &Garment{
		ID:          uuid.New(),
		OwnerID:     ownerID,
		OriginalURL: originalURL,
		Category:    category,
		Hash:        hash,
		CreatedAt:   time.Now().UTC(),
	}

	if err := garment.Validate(); err != nil {
		return nil, err
	}

	return garment, nil
}

// Validate checks if the Garment has valid data.
// Returns an error if any field fails validation.
func (g *Garment) Validate() error {
	if g.ID == uuid.Nil {
		return ErrEmptyGarmentID
	}

	if g.OwnerID == uuid.Nil {
		return ErrEmptyGarmentOwnerID
	}

	if g.OriginalURL == "" {
		return ErrEmptyGarmentURL
	}

	return nil
}

// IsDeleted reports whether the garment carries a tombstone. Tombstoned rows
// are excluded from listing, search and reconciliation but are never
// physically removed.
func (g *Garment) IsDeleted() bool {
	return g.DeletedAt != nil
}

// IsEnriched reports whether the enrichment pipeline has populated the
// derived metadata.
func (g *Garment) IsEnriched() bool {
	return g.Metadata != nil
}

// SetEnrichment attaches the extracted metadata and its embedding. Both are
// required; the two fields are never set independently.
func (g *Garment) SetEnrichment(metadata *GarmentMetadata, embedding []float32) error {
	if metadata == nil {
		return errors.New("metadata cannot be nil")
	}
	if len(embedding) == 0 {
		return errors.New("embedding cannot be empty")
	}

	g.Metadata = metadata
	g.Embedding = embedding
	return nil
}
