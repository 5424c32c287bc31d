package leonardo

// Status is the state of a Leonardo generation.
type Status string

// Generation states reported by Leonardo.
const (
	StatusPending  Status = "PENDING"
	StatusComplete Status = "COMPLETE"
	StatusFailed   Status = "FAILED"
)

// GenerationParams are the fixed model settings sent with every prompt.
type GenerationParams struct {
	ModelID     string
	Width       int
	Height      int
	Alchemy     bool
	PresetStyle string
}

// DefaultGenerationParams returns 1024x768 alchemy renders on the default model.
func DefaultGenerationParams() GenerationParams {
	return GenerationParams{
		ModelID:     defaultModelID,
		Width:       1024,
		Height:      768,
		Alchemy:     true,
		PresetStyle: "NONE",
	}
}

// Generation is the polled state of a generation job.
type Generation struct {
	Status    Status
	ImageURLs []string
}

type generationRequest struct {
	Prompt      string `json:"prompt"`
	ModelID     string `json:"modelId"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	NumImages   int    `json:"num_images"`
	Alchemy     bool   `json:"alchemy"`
	PresetStyle string `json:"presetStyle"`
}

type generationResponse struct {
	Job struct {
		GenerationID string `json:"generationId"`
	} `json:"sdGenerationJob"`
}

type statusResponse struct {
	Generation struct {
		Status string `json:"status"`
		Images []struct {
			URL string `json:"url"`
		} `json:"generated_images"`
	} `json:"generations_by_pk"`
}
