package domain

// EmbeddingDimensions is the fixed length of description embeddings.
// Embeddings and metadata are always written together by the enrichment
// pipeline; neither is ever set on its own.
const EmbeddingDimensions = 768

// LocalizedText holds a value in the two taxonomy languages.
type LocalizedText struct {
	ES string `json:"es"`
	EN string `json:"en"`
}

// DominantColor describes the primary color of a garment.
type DominantColor struct {
	Name LocalizedText `json:"name"`
	Hex  string        `json:"hex"`
}

// PhysicalAttributes covers the material properties of a garment.
type PhysicalAttributes struct {
	Category       LocalizedText `json:"category"`
	Subcategory    LocalizedText `json:"subcategory"`
	DominantColor  DominantColor `json:"dominant_color"`
	ColorPalette   []string      `json:"color_palette"`
	Material       LocalizedText `json:"material"`
	TexturePattern LocalizedText `json:"texture_pattern"`
}

// DesignAttributes covers cut and construction details.
type DesignAttributes struct {
	Neckline     LocalizedText   `json:"neckline"`
	SleeveLength LocalizedText   `json:"sleeve_length"`
	Fit          LocalizedText   `json:"fit"`
	ClosureType  LocalizedText   `json:"closure_type"`
	Details      []LocalizedText `json:"details"`
}

// ContextAttributes covers usage context (occasion, season, style).
type ContextAttributes struct {
	Occasion    []LocalizedText `json:"occasion"`
	Season      LocalizedText   `json:"season"`
	Gender      LocalizedText   `json:"gender"`
	VisualStyle LocalizedText   `json:"visual_style"`
}

// GarmentMetadata is the structured description extracted from an image by
// the metadata service. It is nil on an entity until enrichment succeeds.
type GarmentMetadata struct {
	Physical    PhysicalAttributes `json:"physical"`
	Design      DesignAttributes   `json:"design"`
	Context     ContextAttributes  `json:"context"`
	Description LocalizedText      `json:"ai_description"`
}
