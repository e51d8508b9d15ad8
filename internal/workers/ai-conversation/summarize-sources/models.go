// internal/workers/ai-conversation/summarize-sources/models.go
package summarizesources

import (
	"askora/internal/common/textproc"
	"askora/internal/models"
)

type Input struct {
	Question string          `json:"question"`
	Intent   string          `json:"intent"`
	Sources  []models.Source `json:"sources"`
}

type Output struct {
	Answer string `json:"answer"`
}

// candidate is one sentence-like unit taken from a source.
type candidate struct {
	text      string
	folded    string
	tokens    textproc.TokenSet
	link      string
	fromTitle bool
	score     float64
}
