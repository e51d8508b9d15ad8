// internal/workers/ai-conversation/summarize-sources/handler.go
package summarizesources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"askora/internal/common/logger"
	"askora/internal/common/sources"
	"askora/internal/common/textproc"
	"askora/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "summarize-sources"
)

var (
	ErrNilInput = errors.New("input cannot be nil")
)

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
	return &Output{Answer: h.Summarize(input.Question, input.Intent, input.Sources)}, nil
}

// Summarize builds an extractive answer from the ranked sources without
// any generative provider. The result is never empty.
func (h *Handler) Summarize(question, intent string, srcs []models.Source) string {
	start := time.Now()
	q := textproc.Clean(question)
	if q == "" {
		return emptyQuestionText
	}
	if len(srcs) == 0 {
		return fmt.Sprintf(noResultsText, q)
	}

	tpl := templateFor(intent)
	if tpl.linksFirst && hasLinks(srcs) {
		return h.linksFirst(tpl, q, srcs)
	}

	cands := extract(srcs, h.config.MinUnitRunes)
	if len(cands) == 0 {
		cands = extract(srcs, h.config.RelaxedUnitRunes)
	}
	if len(cands) == 0 {
		return h.sourceListing(srcs) + "\n\n" + shortTextNote
	}

	score(cands, textproc.NewTokenSet(textproc.Tokenize(q)))
	picked := selectTop(cands, h.config.MaxSelected, h.config.SimilarityThreshold)

	answer := h.compose(tpl, intent, q, picked)
	h.logger.Debug("summary built", map[string]interface{}{
		"intent":     intent,
		"candidates": len(cands),
		"selected":   len(picked),
		"durationMs": time.Since(start).Milliseconds(),
	})
	return answer
}

func (h *Handler) compose(tpl answerTemplate, intent, question string, picked []candidate) string {
	used := make([]bool, len(picked))

	direct := 0
	if tpl.cue != nil {
		for i, c := range picked {
			if tpl.cue.MatchString(c.folded) {
				direct = i
				break
			}
		}
	}
	used[direct] = true

	var sections []string
	sections = append(sections, tpl.leadIn+clipAtPunctuation(picked[direct].text, h.config.DirectAnswerRunes))

	var summaryParts []string
	for i := range picked {
		if len(summaryParts) == 2 {
			break
		}
		if used[i] {
			continue
		}
		used[i] = true
		summaryParts = append(summaryParts, picked[i].text)
	}
	if len(summaryParts) > 0 {
		summary := textproc.Clip(strings.Join(summaryParts, " "), h.config.SummaryRunes)
		if tpl.expect != nil && !tpl.expect.MatchString(textproc.Fold(textproc.ASCIIDigits(summary))) {
			summary = tpl.clarify + summary
		}
		sections = append(sections, summary)
	}

	var bullets []string
	for i := range picked {
		if len(bullets) == h.config.MaxBullets {
			break
		}
		if used[i] {
			continue
		}
		used[i] = true
		bullets = append(bullets, "• "+textproc.Clip(picked[i].text, h.config.BulletRunes))
	}
	if len(bullets) > 0 {
		sections = append(sections, tpl.header+"\n"+strings.Join(bullets, "\n"))
	}

	if wantsNumbers(intent, question) {
		dates, numbers := figures(picked, h.config.MaxFigures)
		var lines []string
		if len(dates) > 0 {
			lines = append(lines, datesLabel+strings.Join(dates, "، "))
		}
		if len(numbers) > 0 {
			lines = append(lines, figuresLabel+strings.Join(numbers, "، "))
		}
		if len(lines) > 0 {
			sections = append(sections, strings.Join(lines, "\n"))
		}
	}

	if picked[0].score < h.config.WeakScore {
		sections = append(sections, weakMatchNote)
	}

	answer := strings.TrimSpace(strings.Join(sections, "\n\n"))
	if answer == "" {
		return quickSummaryHeader + "\n" + picked[0].text
	}
	return answer
}

// linksFirst answers schedule and news questions with the sources
// themselves, then a short excerpt and a hint to narrow the question.
func (h *Handler) linksFirst(tpl answerTemplate, question string, srcs []models.Source) string {
	var b strings.Builder
	b.WriteString(tpl.heading)
	count := 0
	for _, s := range srcs {
		if count == h.config.MaxLinks {
			break
		}
		if s.Link == "" {
			continue
		}
		b.WriteString("\n• " + linkTitle(s) + ": " + s.Link)
		count++
	}

	cands := extract(srcs, h.config.MinUnitRunes)
	if len(cands) > 0 {
		score(cands, textproc.NewTokenSet(textproc.Tokenize(question)))
		best := selectTop(cands, 1, h.config.SimilarityThreshold)
		if len(best) == 1 && !best[0].fromTitle {
			b.WriteString("\n\n" + briefLeadIn + clipAtPunctuation(best[0].text, h.config.DirectAnswerRunes))
		}
	}

	b.WriteString("\n\n" + tpl.guidance)
	return b.String()
}

// sourceListing is used when no source has text long enough to summarize.
func (h *Handler) sourceListing(srcs []models.Source) string {
	var b strings.Builder
	b.WriteString(sourcesHeader)
	count := 0
	for _, s := range srcs {
		if count == h.config.MaxLinks {
			break
		}
		line := linkTitle(s)
		if s.Link != "" {
			line += ": " + s.Link
		}
		b.WriteString("\n• " + line)
		count++
	}
	return b.String()
}

func linkTitle(s models.Source) string {
	if t := textproc.Collapse(s.Title); t != "" {
		return t
	}
	if d := sources.Domain(s.Link); d != "" {
		return d
	}
	return "مصدر"
}

func hasLinks(srcs []models.Source) bool {
	for _, s := range srcs {
		if s.Link != "" {
			return true
		}
	}
	return false
}

// clipAtPunctuation cuts s to max runes, preferring to end on the last
// comma or sentence mark when one sits past the first 80 runes.
func clipAtPunctuation(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	cut := r[:max]
	for i := len(cut) - 1; i > 80; i-- {
		switch cut[i] {
		case '،', '.', '!', '؟':
			return string(cut[:i+1]) + textproc.Ellipsis
		}
	}
	return strings.TrimSpace(string(cut)) + textproc.Ellipsis
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
