package memory

import (
	"context"
	"strings"
	"time"

	"askora/internal/common/textproc"
)

const (
	LongTermLimit  = 200
	SessionLimit   = 50
	ContextTurns   = 8
	contextAnswerN = 140
)

// Turn is one answered question.
type Turn struct {
	SessionID string    `json:"sessionId,omitempty"`
	Question  string    `json:"user"`
	Intent    string    `json:"intent,omitempty"`
	Answer    string    `json:"answer"`
	At        time.Time `json:"time"`
}

// Entry is a long-term memory hit.
type Entry struct {
	Question string    `json:"user"`
	Answer   string    `json:"answer"`
	At       time.Time `json:"time"`
}

// LongTermStore keeps answers worth reusing across sessions.
type LongTermStore interface {
	Find(ctx context.Context, query string) (*Entry, error)
	Append(ctx context.Context, turn Turn) error
}

// SessionLog keeps the rolling per-session history.
type SessionLog interface {
	Record(ctx context.Context, turn Turn) error
	Recent(ctx context.Context, sessionID string, n int) ([]Turn, error)
}

// ContextFromTurns renders turns as the "U:... | A:..." lines handed to the
// classifier and the completion prompt.
func ContextFromTurns(turns []Turn) string {
	if len(turns) > ContextTurns {
		turns = turns[len(turns)-ContextTurns:]
	}
	lines := make([]string, 0, len(turns))
	for _, t := range turns {
		lines = append(lines, "U:"+textproc.Collapse(t.Question)+" | A:"+textproc.Truncate(textproc.Collapse(t.Answer), contextAnswerN))
	}
	return strings.Join(lines, "\n")
}

// matches reports whether a stored question contains query after folding.
func matches(stored, foldedQuery string) bool {
	return foldedQuery != "" && strings.Contains(textproc.Fold(stored), foldedQuery)
}

func foldQuery(query string) string {
	return textproc.Collapse(textproc.Fold(query))
}

// Nop satisfies both interfaces and remembers nothing.
type Nop struct{}

func (Nop) Find(context.Context, string) (*Entry, error)        { return nil, nil }
func (Nop) Append(context.Context, Turn) error                  { return nil }
func (Nop) Record(context.Context, Turn) error                  { return nil }
func (Nop) Recent(context.Context, string, int) ([]Turn, error) { return nil, nil }
