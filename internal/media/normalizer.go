// Package media handles image transformations for the try-on pipeline.
package media

import (
	"bytes"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// Target canvas every garment image is normalized onto before it is handed
// to the compositing model. Uniform framing keeps the model's input stable
// regardless of the source image shape.
const (
	TargetWidth  = 784
	TargetHeight = 1024
)

// NormalizedMIMEType is the MIME type of normalizer output.
const NormalizedMIMEType = "image/png"

// Normalizer rescales garment images onto the fixed target canvas.
type Normalizer struct{}

// NewNormalizer creates a Normalizer.
func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Normalize decodes the input bytes, scales the image down to fit within the
// target canvas while preserving its aspect ratio, pads the remainder with a
// fully transparent background, and re-encodes the result as PNG.
func (n *Normalizer) Normalize(input []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(input))
	if err != nil {
		return nil, fmt.Errorf("failed to decode garment image: %w", err)
	}

	fitted := imaging.Fit(img, TargetWidth, TargetHeight, imaging.Lanczos)

	canvas := imaging.New(TargetWidth, TargetHeight, color.NRGBA{R: 0, G: 0, B: 0, A: 0})
	composed := imaging.PasteCenter(canvas, fitted)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, composed, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode normalized image: %w", err)
	}

	return buf.Bytes(), nil
}

// Bounds returns the target canvas as an image.Rectangle. Exposed for
// callers that need to validate output dimensions.
func (n *Normalizer) Bounds() image.Rectangle {
	return image.Rect(0, 0, TargetWidth, TargetHeight)
}
