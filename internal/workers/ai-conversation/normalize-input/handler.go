// internal/workers/ai-conversation/normalize-input/handler.go
package normalizeinput

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"askora/internal/common/logger"
	"askora/internal/common/textproc"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "normalize-input"
)

var (
	ErrNilInput = errors.New("input cannot be nil")

	urlPrefixRe = regexp.MustCompile(`(?i)^https?://\S+`)
	urlAnyRe    = regexp.MustCompile(`(?i)https?://\S+`)
)

// contextTag is appended to the context when the question mentions any of
// its triggers. Token triggers must match a whole word.
type contextTag struct {
	tag        string
	substrings []string
	tokens     []string
}

var contextTags = []contextTag{
	{tag: "vercel deploy", substrings: []string{"vercel", "deploy", "نشر"}},
	{tag: "github repo", substrings: []string{"github", "repo", "جيت"}},
	{tag: "customs hs", substrings: []string{"بند", "جمارك"}, tokens: []string{"hs"}},
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
	return h.Normalize(input.question(), input.Context), nil
}

// Normalize cleans a question and its rolling context. It never fails; empty
// input produces empty strings.
func (h *Handler) Normalize(text, ctxText string) *Output {
	q := textproc.Truncate(textproc.Clean(text), h.config.MaxQuestionRunes)
	c := textproc.Truncate(textproc.Clean(ctxText), h.config.MaxContextRunes)

	return &Output{
		Text:           q,
		TextNormalized: NormalizeForMatch(q),
		Context:        enrichContext(q, c),
		IsURL:          urlPrefixRe.MatchString(q),
		Length:         textproc.RuneLen(q),
	}
}

// NormalizeForMatch is the folded, lowercased and squashed matching form.
func NormalizeForMatch(s string) string {
	return textproc.Squash(textproc.Fold(textproc.Clean(s)))
}

func enrichContext(question, ctxText string) string {
	lower := strings.ToLower(question)
	tokens := make(map[string]struct{})
	for _, w := range textproc.Words(question) {
		tokens[w] = struct{}{}
	}

	out := strings.ToLower(ctxText)
	for _, ct := range contextTags {
		if strings.Contains(out, ct.tag) || !ct.matches(lower, tokens) {
			continue
		}
		out += " " + ct.tag
	}
	if urlAnyRe.MatchString(question) && !hasWord(out, "url") {
		out += " url"
	}
	return textproc.Collapse(out)
}

func (ct contextTag) matches(lower string, tokens map[string]struct{}) bool {
	for _, s := range ct.substrings {
		if strings.Contains(lower, s) {
			return true
		}
	}
	for _, tok := range ct.tokens {
		if _, ok := tokens[tok]; ok {
			return true
		}
	}
	return false
}

func hasWord(s, word string) bool {
	for _, f := range strings.Fields(s) {
		if f == word {
			return true
		}
	}
	return false
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
