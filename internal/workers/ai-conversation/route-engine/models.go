// internal/workers/ai-conversation/route-engine/models.go
package routeengine

import "askora/internal/models"

// Request is one question as received from the HTTP API, the CLI or a job.
type Request struct {
	Question  string `json:"question"`
	Q         string `json:"q,omitempty"`
	Context   string `json:"context,omitempty"`
	Intent    string `json:"intent,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
}

// Text returns the question, falling back to the short "q" alias.
func (r Request) Text() string {
	if r.Question != "" {
		return r.Question
	}
	return r.Q
}

type Input = Request

type Output struct {
	Answer models.Answer `json:"answer"`
}
