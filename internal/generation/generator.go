package generation

import (
	"context"

	"github.com/lasprendas/tryon-api/internal/domain"
)

// Composer defines the interface for the generative compositing service.
// This interface serves as a boundary between the application core and
// external AI services, following the hexagonal architecture pattern.
type Composer interface {
	// Compose sends the anchor image, the ordered garment images and the
	// instruction text to the model and returns the composited output image.
	//
	// The external service is unreliable and may respond without an image;
	// that case is reported as ErrNoImage so callers can degrade gracefully
	// instead of failing the job.
	Compose(ctx context.Context, anchor []byte, garments [][]byte, instruction string) ([]byte, error)
}

// Analyzer defines the interface for the metadata and embedding service.
type Analyzer interface {
	// ExtractMetadata derives the structured multilingual taxonomy from an
	// image of a garment or a composited result.
	ExtractMetadata(ctx context.Context, image []byte) (*domain.GarmentMetadata, error)

	// GenerateEmbedding produces a fixed-length vector for the given free-text
	// description. The vector length is domain.EmbeddingDimensions.
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}
