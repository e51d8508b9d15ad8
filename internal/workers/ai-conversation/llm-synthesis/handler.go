// internal/workers/ai-conversation/llm-synthesis/handler.go
package llmsynthesis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "askora/internal/common/errors"
	httpclient "askora/internal/common/http"
	"askora/internal/common/logger"
	"askora/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "llm-synthesis"
)

var (
	ErrNilInput        = errors.New("input cannot be nil")
	ErrEmptyCompletion = errors.New("empty completion")
)

type Handler struct {
	config       *Config
	client       *httpclient.Client
	logger       logger.Logger
	errorHandler *apperrors.ErrorHandler
}

func NewHandler(config *Config, log logger.Logger) *Handler {
	scoped := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		client:       httpclient.NewClient(config.Timeout),
		logger:       scoped,
		errorHandler: apperrors.NewErrorHandler(scoped),
	}
}

// Available reports whether an API key is configured. Callers skip the
// completion entirely when it is not.
func (h *Handler) Available() bool {
	return strings.TrimSpace(h.config.APIKey) != ""
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.errorHandler.HandleJobError(context.Background(), client, job,
			apperrors.NewInvalidInputError(fmt.Sprintf("parse input: %v", err)))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.errorHandler.HandleJobError(ctx, client, job, err)
		return
	}

	h.completeJob(client, job, output)
}

// Execute method for direct usage
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil {
		return nil, ErrNilInput
	}
	if strings.TrimSpace(input.Question) == "" {
		return nil, apperrors.NewEmptyQuestionError()
	}
	text, err := h.Complete(ctx, models.CompletionRequest{
		Question: input.Question,
		Intent:   input.Intent,
		Context:  input.Context,
		Sources:  input.Sources,
	})
	if err != nil {
		return nil, err
	}
	return &Output{Answer: text}, nil
}

// Complete asks Gemini for an answer grounded on the request's sources.
// Server errors and network failures are retried with exponential backoff;
// quota exhaustion and other client errors are not.
func (h *Handler) Complete(ctx context.Context, req models.CompletionRequest) (string, error) {
	if !h.Available() {
		return "", apperrors.NewLLMNotConfiguredError()
	}

	body := generateRequest{
		Contents: []content{{
			Role:  "user",
			Parts: []part{{Text: h.buildPrompt(req)}},
		}},
		GenerationConfig: generationConfig{
			Temperature:     h.config.Temperature,
			MaxOutputTokens: h.config.MaxTokens,
		},
	}

	start := time.Now()
	var resp generateResponse
	var lastErr error

	for attempt := 0; attempt <= h.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(100*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", apperrors.NewLLMTimeoutError()
			}
		}

		lastErr = h.client.PostJSON(ctx, h.endpoint(), body, &resp)
		if lastErr == nil {
			break
		}
		if ctx.Err() != nil || httpclient.IsTimeout(lastErr) {
			return "", apperrors.NewLLMTimeoutError()
		}
		if isQuotaError(lastErr) {
			return "", apperrors.NewLLMQuotaExhaustedError(apperrors.Sanitize(lastErr.Error(), 120)).
				WithMetadata("statusCode", httpclient.StatusCode(lastErr))
		}
		if !retryable(lastErr) {
			break
		}
		h.logger.Warn("completion attempt failed, retrying", map[string]interface{}{
			"attempt": attempt + 1,
			"status":  httpclient.StatusCode(lastErr),
		})
	}

	if lastErr != nil {
		return "", apperrors.NewLLMSynthesisFailedError(lastErr)
	}

	text := extractText(resp)
	if text == "" {
		return "", apperrors.NewLLMSynthesisFailedError(ErrEmptyCompletion)
	}

	h.logger.Info("LLM synthesis completed", map[string]interface{}{
		"model":       h.config.Model,
		"sourceCount": len(req.Sources),
		"answerRunes": len([]rune(text)),
		"durationMs":  time.Since(start).Milliseconds(),
	})
	return text, nil
}

func (h *Handler) endpoint() string {
	base := strings.TrimRight(h.config.BaseURL, "/")
	return fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		base, url.PathEscape(h.config.Model), url.QueryEscape(h.config.APIKey))
}

func extractText(resp generateResponse) string {
	if len(resp.Candidates) == 0 {
		return ""
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	return strings.TrimSpace(b.String())
}

func isQuotaError(err error) bool {
	if httpclient.StatusCode(err) == http.StatusTooManyRequests {
		return true
	}
	msg := httpclient.ResponseBody(err)
	return strings.Contains(msg, "RESOURCE_EXHAUSTED") || strings.Contains(strings.ToLower(msg), "quota")
}

// retryable is true for 5xx responses and transport errors.
func retryable(err error) bool {
	status := httpclient.StatusCode(err)
	return status == 0 || status >= http.StatusInternalServerError
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)

	if err != nil {
		h.logger.Error("Failed to create complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}

	_, err = cmd.Send(context.Background())
	if err != nil {
		h.logger.Error("Failed to send complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
	}
}
