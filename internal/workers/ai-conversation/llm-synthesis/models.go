// internal/workers/ai-conversation/llm-synthesis/models.go
package llmsynthesis

import "askora/internal/models"

type Input struct {
	Question string          `json:"question"`
	Intent   string          `json:"intent"`
	Context  string          `json:"context"`
	Sources  []models.Source `json:"sources"`
}

type Output struct {
	Answer string `json:"answer"`
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
}
