// internal/workers/ai-conversation/route-engine/engine_test.go
package routeengine

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	apperrors "askora/internal/common/errors"
	"askora/internal/common/logger"
	"askora/internal/common/memory"
	"askora/internal/models"
	llmsynthesis "askora/internal/workers/ai-conversation/llm-synthesis"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// ==========================
// Test Doubles
// ==========================

type stubSearcher struct {
	name    string
	results []models.RawResult
	err     error
	delay   time.Duration
	calls   int32
}

func (s *stubSearcher) Name() string { return s.name }

func (s *stubSearcher) Search(ctx context.Context, _ models.SearchRequest) ([]models.RawResult, error) {
	atomic.AddInt32(&s.calls, 1)
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, apperrors.NewSearchTimeoutError(s.name)
		}
	}
	return s.results, s.err
}

type stubCompleter struct {
	available bool
	text      string
	err       error

	mu      sync.Mutex
	calls   int
	lastReq models.CompletionRequest
}

func (c *stubCompleter) Available() bool { return c.available }

func (c *stubCompleter) Complete(_ context.Context, req models.CompletionRequest) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	c.lastReq = req
	return c.text, c.err
}

func (c *stubCompleter) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

type stubLongTerm struct {
	entry    *memory.Entry
	err      error
	mu       sync.Mutex
	appended []memory.Turn
}

func (s *stubLongTerm) Find(context.Context, string) (*memory.Entry, error) {
	return s.entry, s.err
}

func (s *stubLongTerm) Append(_ context.Context, turn memory.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appended = append(s.appended, turn)
	return nil
}

// ==========================
// Test Helper Functions
// ==========================

func newTestEngine(t *testing.T, deps Dependencies, limit int) *Engine {
	cfg := LoadConfig()
	cfg.DailyAILimit = limit
	cfg.OutboundTimeout = time.Second
	return NewEngine(cfg, NewState(limit), deps, logger.NewTestLogger(t))
}

func webResults() []models.RawResult {
	return []models.RawResult{
		{
			Title:   "الثقب الأسود - ويكيبيديا",
			Link:    "https://ar.wikipedia.org/wiki/ثقب_أسود",
			Snippet: "الثقب الأسود منطقة في الزمكان تكون فيها الجاذبية شديدة بحيث لا يفلت منها شيء حتى الضوء.",
		},
		{
			Title:   "ما هو الثقب الأسود",
			Link:    "https://www.nasa.gov/black-holes",
			Snippet: "تتكون الثقوب السوداء عادة بعد انهيار نجم ضخم على نفسه في نهاية حياته.",
		},
	}
}

// ==========================
// Routing Scenarios
// ==========================

func TestAnswer_EmptyQuestionMakesNoCalls(t *testing.T) {
	searcher := &stubSearcher{name: "web"}
	completer := &stubCompleter{available: true, text: "x"}
	e := newTestEngine(t, Dependencies{Searchers: []Searcher{searcher}, Completer: completer}, 20)

	for _, q := range []string{"", "   \n\t"} {
		answer := e.Answer(context.Background(), Request{Question: q})

		assert.Equal(t, "السؤال فارغ.", answer.AnswerText)
		assert.Equal(t, models.NoteNoQuestion, answer.Note)
		assert.Equal(t, models.IntentGeneral, answer.Intent)
		assert.NotNil(t, answer.Sources)
		assert.Empty(t, answer.Sources)
	}
	assert.Equal(t, int32(0), atomic.LoadInt32(&searcher.calls))
	assert.Equal(t, 0, completer.callCount())
	assert.Equal(t, 0, e.State().Quota.Used())
}

func TestAnswer_ScheduleInjectsPortalLink(t *testing.T) {
	e := newTestEngine(t, Dependencies{}, 20)

	answer := e.Answer(context.Background(), Request{Question: "مباريات اليوم"})

	assert.Equal(t, models.IntentSchedule, answer.Intent)
	require.NotEmpty(t, answer.Sources)
	assert.Contains(t, answer.Sources[0].Link, "yallakora.com")
	assert.Contains(t, answer.AnswerText, "https://www.yallakora.com/match-center")
	assert.Equal(t, "fallback_summarizer:llm_unavailable", answer.Note)
}

func TestAnswer_AllCollaboratorsFail(t *testing.T) {
	searcher := &stubSearcher{name: "web", err: apperrors.NewSearchTimeoutError("web")}
	completer := &stubCompleter{available: true, err: apperrors.NewLLMTimeoutError()}
	e := newTestEngine(t, Dependencies{Searchers: []Searcher{searcher}, Completer: completer}, 20)

	answer := e.Answer(context.Background(), Request{Question: "ما هو الثقب الأسود"})

	assert.Contains(t, answer.AnswerText, "لم أجد نتائج كافية الآن.")
	assert.Empty(t, answer.Sources)
	assert.True(t, strings.HasPrefix(answer.Note, "fallback_summarizer:LLM_TIMEOUT"), answer.Note)
	require.NotNil(t, answer.Confidence)
}

func TestAnswer_GeneratedTextIsVerbatim(t *testing.T) {
	searcher := &stubSearcher{name: "web", results: webResults()}
	completer := &stubCompleter{available: true, text: "  الثقب الأسود جسم كثيف جدًا [#1]\n"}
	e := newTestEngine(t, Dependencies{Searchers: []Searcher{searcher}, Completer: completer}, 20)

	answer := e.Answer(context.Background(), Request{Question: "ما هو الثقب الأسود"})

	assert.Equal(t, "الثقب الأسود جسم كثيف جدًا [#1]", answer.AnswerText)
	assert.Equal(t, "ai_generated:1/20", answer.Note)
	assert.Len(t, answer.Sources, 2)
	assert.Len(t, completer.lastReq.Sources, 2)
	assert.Equal(t, "ما هو الثقب الأسود", completer.lastReq.Question)
}

func TestAnswer_SecondCallServedFromCache(t *testing.T) {
	searcher := &stubSearcher{name: "web", results: webResults()}
	e := newTestEngine(t, Dependencies{Searchers: []Searcher{searcher}}, 20)

	first := e.Answer(context.Background(), Request{Question: "ما هو الثقب الأسود"})
	second := e.Answer(context.Background(), Request{Question: "  ما   هو الثقب الأسود "})

	assert.Equal(t, first.AnswerText, second.AnswerText)
	assert.Equal(t, models.NoteCacheHit, second.Note)
	assert.NotEqual(t, models.NoteCacheHit, first.Note)
	assert.Equal(t, first.Sources, second.Sources)
	assert.Equal(t, int32(1), atomic.LoadInt32(&searcher.calls))
}

func TestAnswer_CacheIsPerEngineState(t *testing.T) {
	searcher := &stubSearcher{name: "web", results: webResults()}
	deps := Dependencies{Searchers: []Searcher{searcher}}

	a := newTestEngine(t, deps, 20)
	b := newTestEngine(t, deps, 20)

	a.Answer(context.Background(), Request{Question: "ما هو الثقب الأسود"})
	answer := b.Answer(context.Background(), Request{Question: "ما هو الثقب الأسود"})

	assert.NotEqual(t, models.NoteCacheHit, answer.Note)
	assert.Equal(t, int32(2), atomic.LoadInt32(&searcher.calls))
}

func TestAnswer_MemoryHitSkipsSearch(t *testing.T) {
	searcher := &stubSearcher{name: "web", results: webResults()}
	longTerm := &stubLongTerm{entry: &memory.Entry{Question: "ما هو الثقب الأسود", Answer: "جواب محفوظ"}}
	e := newTestEngine(t, Dependencies{Searchers: []Searcher{searcher}, LongTerm: longTerm}, 20)

	answer := e.Answer(context.Background(), Request{Question: "ما هو الثقب الأسود"})

	assert.Equal(t, "جواب محفوظ", answer.AnswerText)
	assert.Equal(t, models.NoteMemoryHit, answer.Note)
	require.Len(t, answer.Sources, 1)
	assert.Equal(t, "Long-term memory", answer.Sources[0].Title)
	assert.Equal(t, "", answer.Sources[0].Link)
	assert.Equal(t, int32(0), atomic.LoadInt32(&searcher.calls))
}

func TestAnswer_MemoryErrorIsIgnored(t *testing.T) {
	longTerm := &stubLongTerm{err: errors.New("disk gone")}
	e := newTestEngine(t, Dependencies{LongTerm: longTerm}, 20)

	answer := e.Answer(context.Background(), Request{Question: "ما هو الثقب الأسود"})

	assert.NotEmpty(t, answer.AnswerText)
	assert.Equal(t, "fallback_summarizer:llm_unavailable", answer.Note)
}

// ==========================
// Quota Tests
// ==========================

func TestAnswer_QuotaExceededSkipsCompletion(t *testing.T) {
	completer := &stubCompleter{available: true, text: "جواب"}
	e := newTestEngine(t, Dependencies{Completer: completer}, 1)

	first := e.Answer(context.Background(), Request{Question: "ما هو الثقب الأسود"})
	second := e.Answer(context.Background(), Request{Question: "من هو المتنبي"})

	assert.Equal(t, "ai_generated:1/1", first.Note)
	assert.Equal(t, "fallback_summarizer:quota_exceeded", second.Note)
	assert.NotEmpty(t, second.AnswerText)
	assert.Equal(t, 1, completer.callCount())
}

func TestAnswer_UnavailableCompleterKeepsQuota(t *testing.T) {
	completer := &stubCompleter{available: false}
	e := newTestEngine(t, Dependencies{Completer: completer}, 20)

	answer := e.Answer(context.Background(), Request{Question: "ما هو الثقب الأسود"})

	assert.Equal(t, "fallback_summarizer:llm_unavailable", answer.Note)
	assert.Equal(t, 0, completer.callCount())
	assert.Equal(t, 0, e.State().Quota.Used())
}

func TestAnswer_FailedAttemptCountsAgainstQuota(t *testing.T) {
	completer := &stubCompleter{available: true, err: apperrors.NewLLMQuotaExhaustedError("429")}
	e := newTestEngine(t, Dependencies{Completer: completer}, 20)

	answer := e.Answer(context.Background(), Request{Question: "ما هو الثقب الأسود"})

	assert.True(t, strings.HasPrefix(answer.Note, "fallback_summarizer:LLM_QUOTA_EXHAUSTED"), answer.Note)
	assert.Equal(t, 1, e.State().Quota.Used())
}

func TestAnswer_EmptyCompletionFallsBack(t *testing.T) {
	searcher := &stubSearcher{name: "web", results: webResults()}
	completer := &stubCompleter{available: true, text: "   "}
	e := newTestEngine(t, Dependencies{Searchers: []Searcher{searcher}, Completer: completer}, 20)

	answer := e.Answer(context.Background(), Request{Question: "ما هو الثقب الأسود"})

	assert.Equal(t, "fallback_summarizer:empty_completion", answer.Note)
	assert.NotEmpty(t, strings.TrimSpace(answer.AnswerText))
}

func TestAnswer_FallbackNoteIsSanitized(t *testing.T) {
	raw := errors.New(`POST https://api.example.com/v1?key=SECRET123 failed: {"error":{"code":500,"message":"boom"}} ` +
		strings.Repeat("x", 300))
	completer := &stubCompleter{available: true, err: raw}
	e := newTestEngine(t, Dependencies{Completer: completer}, 20)

	answer := e.Answer(context.Background(), Request{Question: "ما هو الثقب الأسود"})

	require.True(t, strings.HasPrefix(answer.Note, "fallback_summarizer:"))
	detail := strings.TrimPrefix(answer.Note, "fallback_summarizer:")
	assert.NotContains(t, detail, "SECRET123")
	assert.NotContains(t, detail, "https://")
	assert.NotContains(t, detail, "{")
	assert.LessOrEqual(t, utf8.RuneCountInString(detail), 120)
}

func TestAnswer_MultiLineProviderErrorStaysOutOfNote(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		leaked      []string
	}{
		{
			name:        "pretty printed json",
			contentType: "application/json",
			body: `{
  "error": {
    "code": 503,
    "message": "The model is overloaded. Please try again later.",
    "status": "UNAVAILABLE"
  }
}`,
			leaked: []string{"{", "overloaded", "UNAVAILABLE"},
		},
		{
			name:        "html proxy page",
			contentType: "text/html",
			body:        "<html>\n<body>\n<h1>502 Bad Gateway</h1>\n<p>nginx internal-host-7</p>\n</body>\n</html>",
			leaked:      []string{"<", "nginx", "internal-host-7"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", tt.contentType)
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			cfg := llmsynthesis.LoadConfig()
			cfg.BaseURL = server.URL
			cfg.APIKey = "secret-key"
			cfg.MaxRetries = 0
			cfg.Timeout = 2 * time.Second
			completer := llmsynthesis.NewHandler(cfg, logger.NewTestLogger(t))
			e := newTestEngine(t, Dependencies{Completer: completer}, 20)

			answer := e.Answer(context.Background(), Request{Question: "ما هو الثقب الأسود"})

			require.True(t, strings.HasPrefix(answer.Note, "fallback_summarizer:"), answer.Note)
			detail := strings.TrimPrefix(answer.Note, "fallback_summarizer:")
			assert.Contains(t, detail, string(apperrors.ErrCodeLLMSynthesisFailed))
			assert.Contains(t, detail, "HTTP 503")
			assert.NotContains(t, detail, "secret-key")
			for _, s := range tt.leaked {
				assert.NotContains(t, detail, s)
			}
			assert.NotContains(t, answer.Note, "\n")
		})
	}
}

func TestAnswer_FailureLogsKeepErrorCode(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	completer := &stubCompleter{available: true, err: apperrors.NewLLMSynthesisFailedError(errors.New("HTTP 503"))}
	web := &stubSearcher{name: "web", err: apperrors.NewSearchFailedError("web", errors.New("HTTP 500"))}
	cfg := LoadConfig()
	cfg.OutboundTimeout = time.Second
	e := NewEngine(cfg, NewState(20), Dependencies{Searchers: []Searcher{web}, Completer: completer},
		logger.NewZapAdapter(zap.New(core)))

	e.Answer(context.Background(), Request{Question: "ما هو الثقب الأسود"})

	tests := []struct {
		message string
		code    apperrors.ErrorCode
		detail  string
	}{
		{"completion failed, falling back to summarizer", apperrors.ErrCodeLLMSynthesisFailed, "HTTP 503"},
		{"search provider failed", apperrors.ErrCodeSearchFailed, "HTTP 500"},
	}
	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			entries := logs.FilterMessage(tt.message).All()
			require.Len(t, entries, 1)
			fields := entries[0].ContextMap()
			assert.Equal(t, string(tt.code), fields["errorCode"])
			assert.Contains(t, fields["error"], tt.detail)
			assert.NotContains(t, fields["error"], "StandardError")
		})
	}
}

func TestDailyQuota_RollsOverAtLocalMidnight(t *testing.T) {
	now := time.Date(2026, 10, 17, 23, 59, 0, 0, time.Local)
	q := NewDailyQuota(2).WithClock(func() time.Time { return now })

	assert.Equal(t, 1, q.Consume())
	assert.Equal(t, 2, q.Consume())
	assert.True(t, q.Exceeded())

	now = now.Add(2 * time.Minute)
	assert.Equal(t, 0, q.Used())
	assert.False(t, q.Exceeded())
}

func TestNewDailyQuota_DefaultsNonPositiveLimit(t *testing.T) {
	assert.Equal(t, 20, NewDailyQuota(0).Limit())
	assert.Equal(t, 20, NewDailyQuota(-3).Limit())
	assert.Equal(t, 7, NewDailyQuota(7).Limit())
}

// ==========================
// Search Fan-out Tests
// ==========================

func TestAnswer_OneProviderFailingKeepsTheOther(t *testing.T) {
	web := &stubSearcher{name: "web", err: apperrors.NewSearchFailedError("web", errors.New("HTTP 500"))}
	knowledge := &stubSearcher{name: "knowledge", results: webResults()[:1]}
	completer := &stubCompleter{available: true, text: "جواب"}
	e := newTestEngine(t, Dependencies{Searchers: []Searcher{web, knowledge}, Completer: completer}, 20)

	answer := e.Answer(context.Background(), Request{Question: "ما هو الثقب الأسود"})

	require.Len(t, answer.Sources, 1)
	assert.Contains(t, answer.Sources[0].Link, "wikipedia.org")
	assert.Equal(t, int32(1), atomic.LoadInt32(&web.calls))
	assert.Equal(t, int32(1), atomic.LoadInt32(&knowledge.calls))
}

func TestAnswer_SlowProviderTimesOut(t *testing.T) {
	slow := &stubSearcher{name: "slow", results: webResults(), delay: 5 * time.Second}
	fast := &stubSearcher{name: "fast", results: webResults()[1:]}
	cfg := LoadConfig()
	cfg.OutboundTimeout = 50 * time.Millisecond
	e := NewEngine(cfg, nil, Dependencies{Searchers: []Searcher{slow, fast}}, logger.NewTestLogger(t))

	start := time.Now()
	answer := e.Answer(context.Background(), Request{Question: "ما هو الثقب الأسود"})

	assert.Less(t, time.Since(start), 2*time.Second)
	require.Len(t, answer.Sources, 1)
	assert.Contains(t, answer.Sources[0].Link, "nasa.gov")
}

// ==========================
// Memory Tests
// ==========================

func TestAnswer_SessionHistoryBecomesContext(t *testing.T) {
	store, err := memory.NewFileStore(t.TempDir())
	require.NoError(t, err)
	completer := &stubCompleter{available: true, text: "جواب ثان"}
	e := newTestEngine(t, Dependencies{Completer: completer, Sessions: store}, 20)

	first := e.Answer(context.Background(), Request{Question: "من هو المتنبي", SessionID: "s1"})
	require.Equal(t, "جواب ثان", first.AnswerText)

	e.Answer(context.Background(), Request{Question: "متى توفي", SessionID: "s1"})
	assert.Contains(t, completer.lastReq.Context, "من هو المتنبي")

	turns, err := store.Recent(context.Background(), "s1", 10)
	require.NoError(t, err)
	assert.Len(t, turns, 2)
}

func TestAnswer_ExplicitContextWinsOverSession(t *testing.T) {
	store, err := memory.NewFileStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Record(context.Background(), memory.Turn{SessionID: "s1", Question: "سؤال قديم", Answer: "جواب قديم"}))

	completer := &stubCompleter{available: true, text: "جواب"}
	e := newTestEngine(t, Dependencies{Completer: completer, Sessions: store}, 20)

	e.Answer(context.Background(), Request{Question: "ما هو الثقب الأسود", Context: "سياق صريح", SessionID: "s1"})
	assert.Contains(t, completer.lastReq.Context, "سياق صريح")
	assert.NotContains(t, completer.lastReq.Context, "سؤال قديم")
}

func TestAnswer_LongTermAppendOnlyForExplanatoryGeneratedAnswers(t *testing.T) {
	tests := []struct {
		name       string
		intent     string
		available  bool
		wantAppend bool
	}{
		{"define on generative path", models.IntentDefine, true, true},
		{"why on generative path", models.IntentWhy, true, true},
		{"define on fallback path", models.IntentDefine, false, false},
		{"news on generative path", models.IntentNews, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			longTerm := &stubLongTerm{}
			completer := &stubCompleter{available: tt.available, text: "شرح مفصل"}
			e := newTestEngine(t, Dependencies{Completer: completer, LongTerm: longTerm}, 20)

			answer := e.Answer(context.Background(), Request{Question: "الثقب الأسود", Intent: tt.intent})
			require.Equal(t, tt.intent, answer.Intent)

			if tt.wantAppend {
				require.Len(t, longTerm.appended, 1)
				assert.Equal(t, "شرح مفصل", longTerm.appended[0].Answer)
				assert.Equal(t, tt.intent, longTerm.appended[0].Intent)
			} else {
				assert.Empty(t, longTerm.appended)
			}
		})
	}
}

func TestRequest_TextPrefersQuestion(t *testing.T) {
	assert.Equal(t, "a", Request{Question: "a", Q: "b"}.Text())
	assert.Equal(t, "b", Request{Q: "b"}.Text())
}

func TestNotePath(t *testing.T) {
	assert.Equal(t, "ai_generated", notePath("ai_generated:3/20"))
	assert.Equal(t, "cache_hit", notePath("cache_hit"))
}
