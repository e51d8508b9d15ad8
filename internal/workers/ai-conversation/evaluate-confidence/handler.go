// internal/workers/ai-conversation/evaluate-confidence/handler.go
package evaluateconfidence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"askora/internal/common/logger"
	"askora/internal/common/sources"
	"askora/internal/common/textproc"
	"askora/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "evaluate-confidence"

	minScore          = 0.15
	maxScore          = 0.95
	neutralConfidence = 0.5
	intentDomainBonus = 0.08
	preferredBonus    = 0.05
)

var (
	ErrNilInput = errors.New("input cannot be nil")
)

type tier struct {
	threshold int
	bonus     float64
}

// sourceTiers are cumulative.
var sourceTiers = []tier{
	{1, 0.08},
	{3, 0.06},
	{5, 0.04},
}

// lengthTiers award only the first tier the answer length exceeds.
var lengthTiers = []tier{
	{400, 0.12},
	{200, 0.09},
	{80, 0.06},
	{0, 0.03},
}

var levelLabels = map[string]string{
	models.LevelHigh:   "عالية",
	models.LevelMedium: "متوسطة",
	models.LevelLow:    "منخفضة",
}

var levelReasons = map[string]string{
	models.LevelHigh:   "مصادر قوية ومتعددة مع تطابق جيد جدًا مع السؤال.",
	models.LevelMedium: "المصادر متوفرة لكن قوتها أو تطابقها متوسط.",
	models.LevelLow:    "المعلومات محدودة أو المصادر ضعيفة نسبيًا.",
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
	conf := neutralConfidence
	if input.IntentConfidence != nil {
		conf = *input.IntentConfidence
	}
	return &Output{Confidence: h.Evaluate(input.Intent, conf, input.Sources, input.Answer)}, nil
}

// Evaluate scores how far the answer can be trusted. It always returns a
// value; an intent confidence outside [0,1] counts as neutral.
func (h *Handler) Evaluate(intent string, intentConfidence float64, srcs []models.Source, answer string) models.Confidence {
	if math.IsNaN(intentConfidence) || intentConfidence < 0 || intentConfidence > 1 {
		intentConfidence = neutralConfidence
	}

	score := 0.20 + 0.30*intentConfidence

	for _, t := range sourceTiers {
		if len(srcs) >= t.threshold {
			score += t.bonus
		}
	}

	intentMatch, trusted := false, false
	for _, s := range srcs {
		if s.Link == "" {
			continue
		}
		if sources.IsIntentDomain(s.Link, intent) {
			intentMatch = true
		}
		if sources.IsPreferred(s.Link) {
			trusted = true
		}
	}
	if intentMatch {
		score += intentDomainBonus
	}
	if trusted {
		score += preferredBonus
	}

	length := textproc.RuneLen(answer)
	for _, t := range lengthTiers {
		if length > t.threshold {
			score += t.bonus
			break
		}
	}

	score = math.Round(math.Max(minScore, math.Min(maxScore, score))*100) / 100
	level := h.level(score)

	return models.Confidence{
		Score:  score,
		Level:  level,
		Label:  levelLabels[level],
		Reason: reason(level, len(srcs), trusted || intentMatch),
	}
}

func (h *Handler) level(score float64) string {
	switch {
	case score >= h.config.HighThreshold:
		return models.LevelHigh
	case score >= h.config.MediumThreshold:
		return models.LevelMedium
	default:
		return models.LevelLow
	}
}

func reason(level string, count int, trusted bool) string {
	r := levelReasons[level] + fmt.Sprintf(" عدد المصادر: %d", count)
	if trusted {
		r += "، بينها مصادر موثوقة."
	} else {
		r += "."
	}
	return r
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
