// Package gemini implements the generation interfaces against Google's
// Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"google.golang.org/genai"

	"github.com/lasprendas/tryon-api/internal/config"
	"github.com/lasprendas/tryon-api/internal/generation"
)

// Sampling parameters for the compositing call. Low temperature keeps the
// model close to the anchor image.
const (
	composeTemperature float32 = 0.2
	composeTopP        float32 = 0.95
)

// Composer implements the generation.Composer interface using an
// image-capable Gemini model.
type Composer struct {
	logger *slog.Logger
	client *genai.Client
	model  string
}

// Ensure Composer implements generation.Composer interface
var _ generation.Composer = (*Composer)(nil)

// NewComposer creates a new Composer with the provided configuration.
// Returns an error if the configuration is incomplete or the API client
// cannot be created.
func NewComposer(ctx context.Context, logger *slog.Logger, cfg config.GeminiConfig) (*Composer, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}

	if cfg.ComposeModel == "" {
		return nil, fmt.Errorf("%w: compose model name cannot be empty", generation.ErrInvalidConfig)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v",
			generation.ErrInvalidConfig, err)
	}

	return &Composer{
		logger: logger.With("component", "gemini_composer"),
		client: client,
		model:  cfg.ComposeModel,
	}, nil
}

// Compose sends the anchor image, the garment images (in order) and the
// instruction to the model and returns the first embedded output image.
// Responses without an image are reported as generation.ErrNoImage so the
// caller can degrade gracefully.
func (c *Composer) Compose(
	ctx context.Context,
	anchor []byte,
	garments [][]byte,
	instruction string,
) ([]byte, error) {
	if len(anchor) == 0 {
		return nil, fmt.Errorf("%w: anchor image is empty", generation.ErrInvalidConfig)
	}

	// Anchor first, garments in submission order, instruction last. The
	// instruction refers to "Image 1" and "the additional images", so the
	// ordering is part of the contract.
	parts := make([]*genai.Part, 0, len(garments)+2)
	parts = append(parts, genai.NewPartFromBytes(anchor, "image/png"))
	for _, garment := range garments {
		parts = append(parts, genai.NewPartFromBytes(garment, "image/png"))
	}
	parts = append(parts, genai.NewPartFromText(instruction))

	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	genConfig := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(composeTemperature),
		TopP:        genai.Ptr(composeTopP),
	}

	c.logger.InfoContext(ctx, "calling Gemini compose",
		"model", c.model,
		"garment_count", len(garments))

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, genConfig)
	if err != nil {
		c.logger.ErrorContext(ctx, "Gemini compose call failed", "error", err)
		return nil, fmt.Errorf("%w: %v", generation.ErrTransientFailure, err)
	}

	return extractImage(resp)
}

// extractImage pulls the first inline image out of a model response.
// Every imageless response shape (no candidates, no content, no inline
// part) maps to ErrNoImage so the compositing path can degrade instead of
// failing; only transport errors are reported as failures by Compose.
func extractImage(resp *genai.GenerateContentResponse) ([]byte, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("%w: no candidates in response", generation.ErrNoImage)
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return nil, fmt.Errorf("%w: compose output", generation.ErrContentBlocked)
	}

	if candidate.Content == nil {
		return nil, fmt.Errorf("%w: empty content in response", generation.ErrNoImage)
	}

	for _, part := range candidate.Content.Parts {
		if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
			return part.InlineData.Data, nil
		}
	}

	return nil, generation.ErrNoImage
}
