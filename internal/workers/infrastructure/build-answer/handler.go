// internal/workers/infrastructure/build-answer/handler.go
package buildanswer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	apperrors "askora/internal/common/errors"
	"askora/internal/common/logger"
	"askora/internal/common/metrics"
	"askora/internal/common/sources"
	"askora/internal/common/textproc"
	"askora/internal/common/validation"
	"askora/internal/models"
	"askora/pkg/registry"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "build-answer"

	defaultSourceTitle = "source"
)

var (
	ErrNilInput = errors.New("input cannot be nil")
)

type Handler struct {
	config *Config
	logger logger.Logger
	schema map[string]interface{}
}

func NewHandler(config *Config, log logger.Logger) *Handler {
	h := &Handler{
		config: config,
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
	h.schema = h.loadContract()
	return h
}

func (h *Handler) loadContract() map[string]interface{} {
	reg, err := registry.Default()
	if err != nil {
		h.logger.Warn("activity registry unavailable, answers will not be validated", map[string]interface{}{
			"error": err.Error(),
		})
		return nil
	}
	activity, ok := reg.Get(h.config.ContractID)
	if !ok {
		h.logger.Warn("answer contract not found in registry", map[string]interface{}{
			"activity": h.config.ContractID,
		})
		return nil
	}
	return activity.OutputSchema
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
	answer := h.Build(input.Question, input.Intent, input.Context, input.Final, input.Sources, input.Note, input.Confidence)
	return &Output{Answer: *answer}, nil
}

// Build assembles the final answer. Sources may be any shape the ranker
// accepts; the result always has a non-nil Sources slice and a non-empty
// answer text.
func (h *Handler) Build(question, intent, context, final string, rawSources interface{}, note string, confidence *models.Confidence) *models.Answer {
	if !models.IsIntentLabel(intent) {
		intent = models.IntentGeneral
	}

	text := strings.TrimSpace(final)
	if text == "" {
		text = h.config.FallbackText
	}

	answer := &models.Answer{
		Question:   question,
		Intent:     intent,
		Context:    context,
		AnswerText: text,
		Sources:    h.cleanSources(rawSources),
		Note:       note,
	}
	if confidence != nil {
		c := *confidence
		answer.Confidence = &c
	}

	h.checkContract(answer)
	return answer
}

func (h *Handler) cleanSources(raw interface{}) []models.Source {
	coerced := sources.Coerce(raw)
	if len(coerced) > h.config.MaxSources {
		coerced = coerced[:h.config.MaxSources]
	}
	for i := range coerced {
		if textproc.Collapse(coerced[i].Title) == "" {
			coerced[i].Title = defaultSourceTitle
		}
	}
	return coerced
}

// checkContract never rejects the answer; violations are logged and counted.
func (h *Handler) checkContract(answer *models.Answer) {
	if h.schema == nil {
		return
	}
	result := validation.ValidateDocument(h.schema, answer)
	if result.Valid {
		return
	}
	metrics.ContractViolations.Inc()
	stdErr := apperrors.NewContractViolationError(result.Error())
	h.logger.Warn("answer violates output contract", map[string]interface{}{
		"intent":    answer.Intent,
		"errorCode": string(stdErr.Code),
		"errors":    result.GetErrorMessages(),
	})
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
