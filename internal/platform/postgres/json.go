package postgres

import (
	"encoding/json"
	"fmt"

	"github.com/lasprendas/tryon-api/internal/domain"
)

// Metadata and embeddings are stored as JSONB. The helpers below keep the
// marshalling symmetric between the garment and session stores: a nil
// metadata/embedding maps to SQL NULL, never to a JSON "null" value.

func marshalMetadata(metadata *domain.GarmentMetadata) (any, error) {
	if metadata == nil {
		return nil, nil
	}
	data, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metadata: %w", err)
	}
	return data, nil
}

func unmarshalMetadata(raw []byte) (*domain.GarmentMetadata, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var metadata domain.GarmentMetadata
	if err := json.Unmarshal(raw, &metadata); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
	}
	return &metadata, nil
}

func marshalEmbedding(embedding []float32) (any, error) {
	if len(embedding) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(embedding)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embedding: %w", err)
	}
	return data, nil
}

func unmarshalEmbedding(raw []byte) ([]float32, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var embedding []float32
	if err := json.Unmarshal(raw, &embedding); err != nil {
		return nil, fmt.Errorf("failed to unmarshal embedding: %w", err)
	}
	return embedding, nil
}
