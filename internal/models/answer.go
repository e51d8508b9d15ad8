package models

const (
	LevelLow    = "low"
	LevelMedium = "medium"
	LevelHigh   = "high"
)

type Confidence struct {
	Score  float64 `json:"score"`
	Level  string  `json:"level"`
	Label  string  `json:"label"`
	Reason string  `json:"reason,omitempty"`
}

// Answer is the terminal value of one request. Sources is never nil and
// AnswerText is never empty once built by the assembler.
type Answer struct {
	Question   string      `json:"question"`
	Intent     string      `json:"intent"`
	Context    string      `json:"context"`
	AnswerText string      `json:"answer"`
	Sources    []Source    `json:"sources"`
	Note       string      `json:"note"`
	Confidence *Confidence `json:"confidence,omitempty"`
}

// Clone returns a deep copy so cached answers are never shared mutably.
func (a *Answer) Clone() *Answer {
	if a == nil {
		return nil
	}
	out := *a
	out.Sources = make([]Source, len(a.Sources))
	copy(out.Sources, a.Sources)
	if a.Confidence != nil {
		c := *a.Confidence
		out.Confidence = &c
	}
	return &out
}

// Routing notes recorded on Answer.Note. Fallback notes may carry a
// ":detail" suffix.
const (
	NoteNoQuestion         = "no_question"
	NoteMemoryHit          = "memory_hit"
	NoteCacheHit           = "cache_hit"
	NoteAIGenerated        = "ai_generated"
	NoteFallbackSummarizer = "fallback_summarizer"
)
