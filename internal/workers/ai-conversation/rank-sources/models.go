// internal/workers/ai-conversation/rank-sources/models.go
package ranksources

import "askora/internal/models"

// Input.Results may be any decoded JSON shape; see sources.Coerce.
type Input struct {
	Results interface{} `json:"results"`
	Intent  string      `json:"intent"`
	Limit   int         `json:"limit,omitempty"`
}

type Output struct {
	Sources []models.Source `json:"sources"`
}
