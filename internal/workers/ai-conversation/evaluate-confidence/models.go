// internal/workers/ai-conversation/evaluate-confidence/models.go
package evaluateconfidence

import "askora/internal/models"

type Input struct {
	Intent           string          `json:"intent"`
	IntentConfidence *float64        `json:"intentConfidence,omitempty"`
	Sources          []models.Source `json:"sources"`
	Answer           string          `json:"answer"`
}

type Output struct {
	Confidence models.Confidence `json:"confidence"`
}
