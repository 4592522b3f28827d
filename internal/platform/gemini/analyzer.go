package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"google.golang.org/genai"

	"github.com/lasprendas/tryon-api/internal/config"
	"github.com/lasprendas/tryon-api/internal/domain"
	"github.com/lasprendas/tryon-api/internal/generation"
)

// Sampling parameters for metadata extraction. Near-zero temperature keeps
// the JSON output deterministic.
const (
	metadataTemperature float32 = 0.1
	metadataTopP        float32 = 0.95
)

// metadataPrompt instructs the model to return the garment taxonomy as JSON.
// The key structure mirrors domain.GarmentMetadata exactly.
const metadataPrompt = `
Analyze the attached image of a garment and extract its metadata in the following JSON format.
Keys must be exactly as specified in English.
Values for descriptive fields must be an object with 'es' and 'en' keys for Spanish and English translations.

JSON Structure:
{
  "physical": {
    "category": { "es": "...", "en": "..." },
    "subcategory": { "es": "...", "en": "..." },
    "dominant_color": {
      "name": { "es": "...", "en": "..." },
      "hex": "#..."
    },
    "color_palette": ["#...", "#..."],
    "material": { "es": "...", "en": "..." },
    "texture_pattern": { "es": "...", "en": "..." }
  },
  "design": {
    "neckline": { "es": "...", "en": "..." },
    "sleeve_length": { "es": "...", "en": "..." },
    "fit": { "es": "...", "en": "..." },
    "closure_type": { "es": "...", "en": "..." },
    "details": [
      { "es": "...", "en": "..." }
    ]
  },
  "context": {
    "occasion": [
      { "es": "...", "en": "..." }
    ],
    "season": { "es": "...", "en": "..." },
    "gender": { "es": "...", "en": "..." },
    "visual_style": { "es": "...", "en": "..." }
  },
  "ai_description": {
    "es": "...",
    "en": "..."
  }
}

Be specific and professional. For colors, use standard CSS hex codes.
`

// Analyzer implements the generation.Analyzer interface using Gemini models:
// one text model in JSON mode for metadata extraction and one embedding model
// for description vectors.
type Analyzer struct {
	logger         *slog.Logger
	client         *genai.Client
	metadataModel  string
	embeddingModel string
}

// Ensure Analyzer implements generation.Analyzer interface
var _ generation.Analyzer = (*Analyzer)(nil)

// NewAnalyzer creates a new Analyzer with the provided configuration.
func NewAnalyzer(ctx context.Context, logger *slog.Logger, cfg config.GeminiConfig) (*Analyzer, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}

	if cfg.MetadataModel == "" || cfg.EmbeddingModel == "" {
		return nil, fmt.Errorf("%w: metadata and embedding model names cannot be empty",
			generation.ErrInvalidConfig)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v",
			generation.ErrInvalidConfig, err)
	}

	return &Analyzer{
		logger:         logger.With("component", "gemini_analyzer"),
		client:         client,
		metadataModel:  cfg.MetadataModel,
		embeddingModel: cfg.EmbeddingModel,
	}, nil
}

// ExtractMetadata derives the multilingual garment taxonomy from an image.
func (a *Analyzer) ExtractMetadata(ctx context.Context, image []byte) (*domain.GarmentMetadata, error) {
	if len(image) == 0 {
		return nil, fmt.Errorf("%w: image is empty", generation.ErrInvalidConfig)
	}

	parts := []*genai.Part{
		genai.NewPartFromText(metadataPrompt),
		genai.NewPartFromBytes(image, "image/png"),
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	genConfig := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(metadataTemperature),
		TopP:             genai.Ptr(metadataTopP),
		ResponseMIMEType: "application/json",
	}

	resp, err := a.client.Models.GenerateContent(ctx, a.metadataModel, contents, genConfig)
	if err != nil {
		a.logger.ErrorContext(ctx, "metadata extraction call failed", "error", err)
		return nil, fmt.Errorf("%w: %v", generation.ErrTransientFailure, err)
	}

	text, err := extractText(resp)
	if err != nil {
		return nil, err
	}

	var metadata domain.GarmentMetadata
	if err := json.Unmarshal([]byte(text), &metadata); err != nil {
		a.logger.ErrorContext(ctx, "failed to parse metadata JSON",
			"error", err,
			"response_length", len(text))
		return nil, fmt.Errorf("%w: failed to parse metadata JSON: %v",
			generation.ErrInvalidResponse, err)
	}

	if metadata.Description.EN == "" {
		return nil, fmt.Errorf("%w: metadata is missing the English description",
			generation.ErrInvalidResponse)
	}

	return &metadata, nil
}

// GenerateEmbedding produces a fixed-length vector for the given text.
func (a *Analyzer) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: embedding text is empty", generation.ErrInvalidConfig)
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{genai.NewPartFromText(text)}, genai.RoleUser),
	}

	embedConfig := &genai.EmbedContentConfig{
		OutputDimensionality: genai.Ptr(int32(domain.EmbeddingDimensions)),
	}

	resp, err := a.client.Models.EmbedContent(ctx, a.embeddingModel, contents, embedConfig)
	if err != nil {
		a.logger.ErrorContext(ctx, "embedding call failed", "error", err)
		return nil, fmt.Errorf("%w: %v", generation.ErrTransientFailure, err)
	}

	if resp == nil || len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		return nil, fmt.Errorf("%w: no embedding in response", generation.ErrInvalidResponse)
	}

	return resp.Embeddings[0].Values, nil
}

// extractText concatenates the text parts of a model response.
func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: no candidates in response", generation.ErrInvalidResponse)
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return "", fmt.Errorf("%w: metadata output", generation.ErrContentBlocked)
	}

	if candidate.Content == nil {
		return "", fmt.Errorf("%w: empty content in response", generation.ErrInvalidResponse)
	}

	text := ""
	for _, part := range candidate.Content.Parts {
		if part != nil {
			text += part.Text
		}
	}

	if text == "" {
		return "", fmt.Errorf("%w: no text in response", generation.ErrInvalidResponse)
	}

	return text, nil
}
