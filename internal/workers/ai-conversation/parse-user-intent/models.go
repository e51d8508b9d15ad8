// internal/workers/ai-conversation/parse-user-intent/models.go
package parseuserintent

import "askora/internal/models"

type Input struct {
	Question string `json:"question"`
	Context  string `json:"context"`
	// Intent is an optional caller hint. A known label overrides the
	// classifier's choice.
	Intent string `json:"intent,omitempty"`
}

type Output struct {
	IntentAnalysis models.IntentResult `json:"intentAnalysis"`
}
