// internal/workers/ai-conversation/parse-user-intent/handler.go
package parseuserintent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"askora/internal/common/logger"
	"askora/internal/common/textproc"
	"askora/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "parse-user-intent"

	emptyConfidence = 0.35
	minConfidence   = 0.35
	maxConfidence   = 0.98
	hintConfidence  = 0.75
	maxMarginBonus  = 0.22
	marginFactor    = 0.006
)

var (
	ErrNilInput = errors.New("input cannot be nil")
)

// confidenceSteps maps a winning score to its base confidence. The first
// threshold the score reaches wins.
var confidenceSteps = []struct {
	minScore   int
	confidence float64
}{
	{55, 0.92},
	{45, 0.86},
	{35, 0.78},
	{25, 0.68},
	{15, 0.58},
	{5, 0.48},
	{math.MinInt32, 0.42},
}

type Handler struct {
	config *Config
	logger logger.Logger
}

func NewHandler(config *Config, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.failJob(client, job, "PARSE_ERROR", fmt.Sprintf("parse input: %v", err), 0)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.failJob(client, job, "INVALID_INPUT", err.Error(), 0)
		return
	}

	h.completeJob(client, job, output)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}

func (h *Handler) execute(_ context.Context, input *Input) (*Output, error) {
	if input == nil {
		return nil, ErrNilInput
	}

	result := h.Classify(input.Question, input.Context, input.Intent)

	h.logger.Debug("intent classified", map[string]interface{}{
		"intent":     result.Label,
		"confidence": result.Confidence,
		"language":   result.Language,
	})

	return &Output{IntentAnalysis: result}, nil
}

// Classify scores text against the rule table and returns exactly one
// label. It accepts raw or already normalized text and never fails.
func (h *Handler) Classify(text, ctxText, hint string) models.IntentResult {
	folded := textproc.Squash(textproc.Fold(textproc.ASCIIDigits(textproc.Clean(text))))
	if folded == "" {
		return models.IntentResult{
			Label:      models.IntentGeneral,
			Confidence: emptyConfidence,
			Keywords:   []string{},
			Language:   "unknown",
			Domain:     "general",
			Depth:      "short",
		}
	}

	tokens := textproc.Words(folded)
	scores := scoreRules(folded, textproc.Fold(ctxText), len(tokens))

	label := argmax(scores)
	if hint != "" && models.IsIntentLabel(hint) && hint != label {
		label = hint
	}
	confidence := confidenceFor(scores, label, len(tokens))
	if label == hint {
		confidence = math.Max(confidence, hintConfidence)
	}

	return models.IntentResult{
		Label:           label,
		Confidence:      round(confidence),
		Keywords:        keywords(folded, h.config.MaxKeywords),
		Language:        detectLanguage(folded),
		Domain:          detectDomain(folded),
		Depth:           estimateDepth(text),
		RequiresNumbers: requiresNumberRe.MatchString(folded),
		Temporal:        temporalArabicRe.MatchString(folded) || temporalLatinRe.MatchString(folded),
		Scores:          scores,
	}
}

func scoreRules(folded, foldedCtx string, tokenCount int) map[string]int {
	scores := make(map[string]int, len(models.IntentLabels))
	for _, r := range rules {
		if r.pattern.MatchString(folded) {
			scores[r.label] += r.weight
		}
	}

	if foldedCtx != "" {
		for _, r := range contextBoosts {
			if r.pattern.MatchString(foldedCtx) {
				scores[r.label] += r.weight
			}
		}
	}

	if tokenCount >= 1 && tokenCount <= 4 && !interrogativeRe.MatchString(folded) {
		applyShortQueryBoosts(scores, folded, tokenCount)
	}
	return scores
}

// applyShortQueryBoosts compensates for keyword-style queries such as
// "مباريات اليوم" or "اخبار".
func applyShortQueryBoosts(scores map[string]int, folded string, tokenCount int) {
	switch {
	case sportsVocabRe.MatchString(folded):
		boost := 25
		if sportsWhenRe.MatchString(folded) {
			boost = 40
		}
		scores[models.IntentSchedule] += boost
	case newsVocabRe.MatchString(folded):
		scores[models.IntentNews] += 25
	case tokenCount == 1 && onlyGeneral(scores):
		scores[models.IntentDefine] += 20
	}
}

func onlyGeneral(scores map[string]int) bool {
	for label, s := range scores {
		if label != models.IntentGeneral && s > 0 {
			return false
		}
	}
	return true
}

// argmax walks labels in declaration order so the first of equal scores
// wins. With no positive score the answer is general.
func argmax(scores map[string]int) string {
	best, bestScore := models.IntentGeneral, 0
	for _, label := range models.IntentLabels {
		if s := scores[label]; s > bestScore {
			best, bestScore = label, s
		}
	}
	return best
}

func confidenceFor(scores map[string]int, label string, tokenCount int) float64 {
	score := scores[label]
	runnerUp := 0
	for l, s := range scores {
		if l != label && s > runnerUp {
			runnerUp = s
		}
	}

	conf := 0.0
	for _, step := range confidenceSteps {
		if score >= step.minScore {
			conf = step.confidence
			break
		}
	}

	if margin := score - runnerUp; margin > 0 {
		conf += math.Min(maxMarginBonus, float64(margin)*marginFactor)
	}

	switch tokenCount {
	case 1:
		conf -= 0.12
	case 2:
		conf -= 0.06
	}

	return math.Max(minConfidence, math.Min(maxConfidence, conf))
}

func keywords(folded string, max int) []string {
	out := make([]string, 0, max)
	seen := make(map[string]struct{})
	for _, tok := range textproc.Tokenize(folded) {
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
		if len(out) == max {
			break
		}
	}
	return out
}

func detectLanguage(folded string) string {
	switch {
	case arabicLetterRe.MatchString(folded):
		return "ar"
	case latinLetterRe.MatchString(folded):
		return "en"
	default:
		return "unknown"
	}
}

func detectDomain(folded string) string {
	for _, d := range domainKeywords {
		if d.re.MatchString(folded) {
			return d.domain
		}
	}
	return "general"
}

func estimateDepth(text string) string {
	n := textproc.RuneLen(textproc.Clean(text))
	switch {
	case n <= 40:
		return "short"
	case n <= 90:
		return "summary"
	default:
		return "detailed"
	}
}

func round(v float64) float64 {
	return math.Round(v*1000) / 1000
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}

	if _, err := cmd.Send(context.Background()); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
	}
}

func (h *Handler) failJob(client worker.JobClient, job entities.Job, errorCode, errorMessage string, retries int32) {
	h.logger.Error("job failed", map[string]interface{}{
		"jobKey":    job.Key,
		"errorCode": errorCode,
		"error":     errorMessage,
	})

	_, _ = client.NewFailJobCommand().
		JobKey(job.Key).
		Retries(retries).
		ErrorMessage(errorCode + ": " + errorMessage).
		Send(context.Background())
}
