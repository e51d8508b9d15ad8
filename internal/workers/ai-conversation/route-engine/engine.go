// internal/workers/ai-conversation/route-engine/engine.go
package routeengine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"askora/internal/common/cache"
	apperrors "askora/internal/common/errors"
	"askora/internal/common/logger"
	"askora/internal/common/memory"
	"askora/internal/common/metrics"
	"askora/internal/common/observability"
	"askora/internal/models"
	evaluateconfidence "askora/internal/workers/ai-conversation/evaluate-confidence"
	normalizeinput "askora/internal/workers/ai-conversation/normalize-input"
	parseuserintent "askora/internal/workers/ai-conversation/parse-user-intent"
	ranksources "askora/internal/workers/ai-conversation/rank-sources"
	summarizesources "askora/internal/workers/ai-conversation/summarize-sources"
	buildanswer "askora/internal/workers/infrastructure/build-answer"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

const (
	memorySourceTitle = "Long-term memory"
	noteDetailMax     = 120
)

// Searcher is a search provider: web search or the internal knowledge index.
type Searcher interface {
	Name() string
	Search(ctx context.Context, req models.SearchRequest) ([]models.RawResult, error)
}

// Completer is a generative model. Available is false when it has no
// credentials, in which case Complete is never called.
type Completer interface {
	Available() bool
	Complete(ctx context.Context, req models.CompletionRequest) (string, error)
}

// Dependencies are the engine's collaborators. Any of them may be nil.
type Dependencies struct {
	Searchers     []Searcher
	Completer     Completer
	LongTerm      memory.LongTermStore
	Sessions      memory.SessionLog
	Observability *observability.Observability
}

// Engine routes one question through memory, cache, search, completion and
// the summarizer fallback. It never fails: every collaborator error turns
// into a degraded answer and a note.
type Engine struct {
	config    *Config
	state     *State
	searchers []Searcher
	completer Completer
	longTerm  memory.LongTermStore
	sessions  memory.SessionLog
	obs       *observability.Observability
	logger    logger.Logger

	normalizer *normalizeinput.Handler
	classifier *parseuserintent.Handler
	ranker     *ranksources.Handler
	evaluator  *evaluateconfidence.Handler
	summarizer *summarizesources.Handler
	assembler  *buildanswer.Handler
}

func NewEngine(config *Config, state *State, deps Dependencies, log logger.Logger) *Engine {
	if state == nil {
		state = NewState(config.DailyAILimit)
	}
	e := &Engine{
		config:    config,
		state:     state,
		searchers: deps.Searchers,
		completer: deps.Completer,
		longTerm:  deps.LongTerm,
		sessions:  deps.Sessions,
		obs:       deps.Observability,
		logger:    log.WithFields(map[string]interface{}{"taskType": TaskType}),

		normalizer: normalizeinput.NewHandler(normalizeinput.LoadConfig(), log),
		classifier: parseuserintent.NewHandler(parseuserintent.LoadConfig(), log),
		ranker:     ranksources.NewHandler(ranksources.LoadConfig(), log),
		evaluator:  evaluateconfidence.NewHandler(evaluateconfidence.LoadConfig(), log),
		summarizer: summarizesources.NewHandler(summarizesources.LoadConfig(), log),
		assembler:  buildanswer.NewHandler(buildanswer.LoadConfig(), log),
	}
	if e.longTerm == nil {
		e.longTerm = memory.Nop{}
	}
	if e.sessions == nil {
		e.sessions = memory.Nop{}
	}
	return e
}

// State exposes the engine's shared cache and quota.
func (e *Engine) State() *State {
	return e.state
}

// Answer runs the full routing pipeline. The returned answer always has
// non-empty text and non-nil sources.
func (e *Engine) Answer(ctx context.Context, req Request) *models.Answer {
	ctx, span := e.obs.StartSpan(ctx, "route-engine.answer")
	defer span.End()

	start := time.Now()
	answer := e.route(ctx, req)

	path := notePath(answer.Note)
	metrics.AnswerPaths.WithLabelValues(path).Inc()
	span.SetAttributes(
		attribute.String("askora.intent", answer.Intent),
		attribute.String("askora.path", path),
		attribute.Int("askora.sources", len(answer.Sources)),
	)
	e.logger.Info("question answered", map[string]interface{}{
		"intent":     answer.Intent,
		"note":       answer.Note,
		"sources":    len(answer.Sources),
		"durationMs": time.Since(start).Milliseconds(),
	})
	return answer
}

func (e *Engine) route(ctx context.Context, req Request) *models.Answer {
	normalized := e.normalizer.Normalize(req.Text(), req.Context)
	if normalized.Text == "" {
		return e.assembler.Build("", models.IntentGeneral, normalized.Context,
			e.summarizer.Summarize("", models.IntentGeneral, nil), nil, models.NoteNoQuestion, nil)
	}

	if strings.TrimSpace(req.Context) == "" && req.SessionID != "" {
		if history := e.sessionContext(ctx, req.SessionID); history != "" {
			normalized = e.normalizer.Normalize(req.Text(), history)
		}
	}
	question := normalized.Text
	convContext := normalized.Context

	intent := e.classifier.Classify(question, convContext, req.Intent)

	if entry := e.lookupMemory(ctx, question); entry != nil {
		srcs := []models.Source{{Title: memorySourceTitle, Content: entry.Answer}}
		conf := e.evaluator.Evaluate(intent.Label, intent.Confidence, srcs, entry.Answer)
		answer := e.assembler.Build(question, intent.Label, convContext, entry.Answer, srcs, models.NoteMemoryHit, &conf)
		e.recordTurn(ctx, req.SessionID, answer)
		return answer
	}

	key := cache.Key(intent.Label, normalized.TextNormalized)
	if cached, ok := e.state.Cache.Get(ctx, key); ok {
		metrics.CacheLookups.WithLabelValues("hit").Inc()
		cached.Note = models.NoteCacheHit
		e.recordTurn(ctx, req.SessionID, cached)
		return cached
	}
	metrics.CacheLookups.WithLabelValues("miss").Inc()

	raw := e.search(ctx, models.SearchRequest{
		Query:    question,
		Intent:   intent.Label,
		Keywords: intent.Keywords,
		Count:    e.config.SearchCount,
	})

	rankStart := time.Now()
	ranked := e.ranker.Rank(raw, intent.Label, e.config.MaxSources)
	observeStage("rank", rankStart)

	final, note, generated := e.complete(ctx, models.CompletionRequest{
		Question: question,
		Intent:   intent.Label,
		Context:  convContext,
		Sources:  ranked,
	})
	if !generated {
		summarizeStart := time.Now()
		final = e.summarizer.Summarize(question, intent.Label, ranked)
		observeStage("summarize", summarizeStart)
	}

	conf := e.evaluator.Evaluate(intent.Label, intent.Confidence, ranked, final)
	answer := e.assembler.Build(question, intent.Label, convContext, final, ranked, note, &conf)

	e.state.Cache.Set(ctx, key, answer, e.config.CacheTTL)
	e.recordTurn(ctx, req.SessionID, answer)
	if generated && e.remembers(intent.Label) {
		e.appendLongTerm(ctx, answer)
	}
	return answer
}

// search queries every provider concurrently. A failing provider contributes
// nothing; it never cancels the others.
func (e *Engine) search(ctx context.Context, req models.SearchRequest) []models.RawResult {
	if len(e.searchers) == 0 {
		return nil
	}
	ctx, span := e.obs.StartSpan(ctx, "route-engine.search")
	defer span.End()
	defer observeStage("search", time.Now())

	results := make([][]models.RawResult, len(e.searchers))
	var g errgroup.Group
	for i, s := range e.searchers {
		i, s := i, s
		g.Go(func() error {
			callCtx, cancel := context.WithTimeout(ctx, e.config.OutboundTimeout)
			defer cancel()

			items, err := s.Search(callCtx, req)
			if err != nil {
				e.searchFailed(s.Name(), err)
				return nil
			}
			metrics.SearchResults.WithLabelValues(s.Name()).Add(float64(len(items)))
			results[i] = items
			return nil
		})
	}
	_ = g.Wait()

	var merged []models.RawResult
	for _, items := range results {
		merged = append(merged, items...)
	}
	span.SetAttributes(attribute.Int("askora.results", len(merged)))
	return merged
}

func (e *Engine) searchFailed(provider string, err error) {
	if apperrors.HasCode(err, apperrors.ErrCodeSearchNotConfigured) {
		e.logger.Debug("search provider not configured", map[string]interface{}{"provider": provider})
		return
	}
	metrics.SearchFailures.WithLabelValues(provider).Inc()
	e.logger.Warn("search provider failed", withError(map[string]interface{}{"provider": provider}, err))
}

// complete tries the generative model. It returns the text, the routing note
// and whether the text should be used verbatim.
func (e *Engine) complete(ctx context.Context, req models.CompletionRequest) (string, string, bool) {
	if e.completer == nil || !e.completer.Available() {
		metrics.CompletionAttempts.WithLabelValues("unavailable").Inc()
		return "", fallbackNote("llm_unavailable"), false
	}

	quota := e.state.Quota
	if quota.Exceeded() {
		metrics.CompletionAttempts.WithLabelValues("quota_exceeded").Inc()
		return "", fallbackNote("quota_exceeded"), false
	}
	used := quota.Consume()

	ctx, span := e.obs.StartSpan(ctx, "route-engine.complete")
	defer span.End()
	defer observeStage("complete", time.Now())

	callCtx, cancel := context.WithTimeout(ctx, e.config.OutboundTimeout)
	defer cancel()

	text, err := e.completer.Complete(callCtx, req)
	if err != nil {
		metrics.CompletionAttempts.WithLabelValues("failure").Inc()
		e.logger.Warn("completion failed, falling back to summarizer", withError(nil, err))
		return "", fallbackNote(errorDetail(err)), false
	}
	text = strings.TrimSpace(text)
	if text == "" {
		metrics.CompletionAttempts.WithLabelValues("empty").Inc()
		return "", fallbackNote("empty_completion"), false
	}

	metrics.CompletionAttempts.WithLabelValues("success").Inc()
	return text, fmt.Sprintf("%s:%d/%d", models.NoteAIGenerated, used, quota.Limit()), true
}

func (e *Engine) lookupMemory(ctx context.Context, question string) *memory.Entry {
	entry, err := e.longTerm.Find(ctx, question)
	if err != nil {
		e.warnMemory("long-term memory lookup failed", err, nil)
		return nil
	}
	if entry == nil || strings.TrimSpace(entry.Answer) == "" {
		return nil
	}
	return entry
}

func (e *Engine) sessionContext(ctx context.Context, sessionID string) string {
	turns, err := e.sessions.Recent(ctx, sessionID, e.contextTurns())
	if err != nil {
		e.warnMemory("session history unavailable", err, map[string]interface{}{"sessionId": sessionID})
		return ""
	}
	return memory.ContextFromTurns(turns)
}

func (e *Engine) recordTurn(ctx context.Context, sessionID string, answer *models.Answer) {
	if sessionID == "" {
		return
	}
	err := e.sessions.Record(ctx, memory.Turn{
		SessionID: sessionID,
		Question:  answer.Question,
		Intent:    answer.Intent,
		Answer:    answer.AnswerText,
		At:        time.Now(),
	})
	if err != nil {
		e.warnMemory("failed to record session turn", err, map[string]interface{}{"sessionId": sessionID})
	}
}

func (e *Engine) appendLongTerm(ctx context.Context, answer *models.Answer) {
	err := e.longTerm.Append(ctx, memory.Turn{
		Question: answer.Question,
		Intent:   answer.Intent,
		Answer:   answer.AnswerText,
		At:       time.Now(),
	})
	if err != nil {
		e.warnMemory("failed to append long-term memory", err, nil)
	}
}

// warnMemory logs a memory failure. Memory is best effort and never fails
// the request.
func (e *Engine) warnMemory(msg string, err error, fields map[string]interface{}) {
	e.logger.Warn(msg, withError(fields, apperrors.NewMemoryUnavailableError(err)))
}

func (e *Engine) remembers(intent string) bool {
	for _, i := range e.config.LongTermIntents {
		if i == intent {
			return true
		}
	}
	return false
}

func fallbackNote(detail string) string {
	return models.NoteFallbackSummarizer + ":" + detail
}

// errorDetail renders a completion error for the note: code plus the most
// specific text available, scrubbed and capped.
func errorDetail(err error) string {
	stdErr := apperrors.AsStandardError(err)
	return apperrors.Sanitize(string(stdErr.Code)+": "+errorMessage(stdErr), noteDetailMax)
}

func errorMessage(stdErr *apperrors.StandardError) string {
	if stdErr.Details != "" {
		return stdErr.Details
	}
	return stdErr.Message
}

// withError adds the error code and a sanitized message to fields.
func withError(fields map[string]interface{}, err error) map[string]interface{} {
	if fields == nil {
		fields = make(map[string]interface{}, 2)
	}
	stdErr := apperrors.AsStandardError(err)
	fields["errorCode"] = string(stdErr.Code)
	fields["error"] = apperrors.Sanitize(errorMessage(stdErr), noteDetailMax)
	return fields
}

func notePath(note string) string {
	if i := strings.IndexByte(note, ':'); i >= 0 {
		return note[:i]
	}
	return note
}

func observeStage(stage string, start time.Time) {
	metrics.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

func (e *Engine) contextTurns() int {
	if e.config.ContextTurns > 0 {
		return e.config.ContextTurns
	}
	return memory.ContextTurns
}
