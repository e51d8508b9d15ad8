// internal/workers/ai-conversation/rank-sources/handler.go
package ranksources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"askora/internal/common/logger"
	"askora/internal/common/sources"
	"askora/internal/common/textproc"
	"askora/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "rank-sources"

	longContentRunes   = 120
	preferredBonus     = 10
	intentDomainBonus  = 8
	contentKeyMaxRunes = 200
)

var (
	ErrNilInput = errors.New("input cannot be nil")
)

type scoredSource struct {
	source models.Source
	domain string
	score  int
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
		h.failJob(client, job, "RANKING_FAILED", err.Error(), 0)
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
	return &Output{Sources: h.Rank(input.Results, input.Intent, input.Limit)}, nil
}

// Rank turns raw provider results of any shape into at most limit clean,
// de-duplicated sources, best first. It never fails; unusable input gives
// an empty slice.
func (h *Handler) Rank(raw interface{}, intent string, limit int) []models.Source {
	start := time.Now()
	limit = h.effectiveLimit(limit)

	items := sources.Coerce(raw)
	candidates := make([]scoredSource, 0, len(items))
	for _, item := range items {
		if item.Link != "" && (sources.IsBlocked(item.Link) || sources.IsListingPage(item.Link)) {
			continue
		}
		if item.Title == "" && item.Content == "" {
			continue
		}
		candidates = append(candidates, scoredSource{
			source: item,
			domain: sources.Domain(item.Link),
			score:  score(item, intent),
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	out := make([]models.Source, 0, limit)
	seenLinks := make(map[string]bool)
	seenContent := make(map[string]bool)
	perDomain := make(map[string]int)

	for _, c := range candidates {
		if len(out) == limit {
			break
		}
		if c.source.Link != "" {
			key := sources.CanonicalLink(c.source.Link)
			if seenLinks[key] {
				continue
			}
			seenLinks[key] = true
		}
		if key := contentKey(c.source); key != "" {
			if seenContent[key] {
				continue
			}
			seenContent[key] = true
		}
		if c.domain != "" {
			if perDomain[c.domain] >= h.config.MaxPerDomain {
				continue
			}
			perDomain[c.domain]++
		}

		out = append(out, models.Source{
			Title:   textproc.Clip(c.source.Title, h.config.MaxTitleRunes),
			Link:    c.source.Link,
			Content: textproc.Clip(c.source.Content, h.config.MaxContentRunes),
		})
	}

	out = h.injectFallback(out, intent, limit)

	duration := time.Since(start).Milliseconds()
	h.logger.Debug("ranking completed", map[string]interface{}{
		"inputCount":  len(items),
		"outputCount": len(out),
		"intent":      intent,
		"durationMs":  duration,
	})
	if duration > 500 {
		h.logger.Warn("ranking exceeded 500ms", map[string]interface{}{
			"durationMs": duration,
		})
	}

	return out
}

func (h *Handler) effectiveLimit(limit int) int {
	if limit <= 0 {
		limit = h.config.DefaultLimit
	}
	if limit > h.config.MaxLimit {
		limit = h.config.MaxLimit
	}
	return limit
}

func score(s models.Source, intent string) int {
	total := 0
	if s.Title != "" {
		total++
	}
	if s.Content != "" {
		total++
	}
	if textproc.RuneLen(s.Content) > longContentRunes {
		total += 2
	}
	if s.Link != "" {
		if sources.IsPreferred(s.Link) {
			total += preferredBonus
		}
		if sources.IsIntentDomain(s.Link, intent) {
			total += intentDomainBonus
		}
	}
	return total
}

// contentKey identifies near-identical snippets regardless of link.
func contentKey(s models.Source) string {
	body := s.Content
	if body == "" {
		if s.Link != "" {
			return ""
		}
		body = s.Title
	}
	key := textproc.Collapse(textproc.Fold(body))
	if r := []rune(key); len(r) > contentKeyMaxRunes {
		key = string(r[:contentKeyMaxRunes])
	}
	return key
}

// injectFallback puts the intent's portal link first when no source comes
// from an authoritative domain for that intent.
func (h *Handler) injectFallback(out []models.Source, intent string, limit int) []models.Source {
	fallback, ok := sources.FallbackLinks[intent]
	if !ok {
		return out
	}
	for _, s := range out {
		if sources.IsIntentDomain(s.Link, intent) {
			return out
		}
	}

	withFallback := make([]models.Source, 0, len(out)+1)
	withFallback = append(withFallback, fallback)
	withFallback = append(withFallback, out...)
	if len(withFallback) > limit {
		withFallback = withFallback[:limit]
	}
	return withFallback
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
