// internal/workers/ai-conversation/enrich-web-search/handler.go
package enrichwebsearch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
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
	TaskType = "enrich-web-search"

	// ProviderName labels results and metrics from this provider.
	ProviderName = "google_cse"

	maxNum = 10
)

var (
	ErrNilInput   = errors.New("input cannot be nil")
	ErrEmptyQuery = errors.New("query cannot be empty")
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

func (h *Handler) Name() string {
	return ProviderName
}

// Configured reports whether both the API key and engine id are set.
func (h *Handler) Configured() bool {
	return h.config.SearchAPIKey != "" && h.config.SearchEngineID != ""
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
		if apperrors.HasCode(err, apperrors.ErrCodeSearchNotConfigured) {
			h.logger.Warn("web search not configured, returning empty results", nil)
			h.completeJob(client, job, &Output{Results: []models.RawResult{}, Queries: []string{}})
			return
		}
		h.errorHandler.HandleJobError(ctx, client, job, err)
		return
	}

	h.completeJob(client, job, output)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil {
		return nil, ErrNilInput
	}
	query := input.Query
	if strings.TrimSpace(query) == "" {
		query = input.Question
	}
	if strings.TrimSpace(query) == "" {
		return nil, apperrors.NewInvalidInputError(ErrEmptyQuery.Error())
	}

	req := models.SearchRequest{Query: query, Intent: input.Intent, Count: input.Count}
	results, err := h.Search(ctx, req)
	if err != nil {
		return nil, err
	}
	return &Output{
		Results: results,
		Queries: RewriteQueries(query, input.Intent, h.config.MaxQueries),
	}, nil
}

// Search runs every rewritten query in turn and merges the items. A query
// that fails is skipped; an error is returned only when nothing came back
// and at least one query failed.
func (h *Handler) Search(ctx context.Context, req models.SearchRequest) ([]models.RawResult, error) {
	if !h.Configured() {
		return nil, apperrors.NewSearchNotConfiguredError(ProviderName)
	}

	start := time.Now()
	queries := RewriteQueries(req.Query, req.Intent, h.config.MaxQueries)
	num := h.num(req.Count)

	results := make([]models.RawResult, 0, num*len(queries))
	seen := make(map[string]bool)
	var lastErr error

	for _, q := range queries {
		items, err := h.fetch(ctx, q, num)
		if err != nil {
			lastErr = err
			h.logger.Warn("search query failed", map[string]interface{}{
				"query":  q,
				"status": httpclient.StatusCode(err),
				"error":  apperrors.Sanitize(err.Error(), 200),
			})
			if ctx.Err() != nil {
				break
			}
			continue
		}
		for _, item := range items {
			if item.Link == "" || seen[item.Link] {
				continue
			}
			// PDFs and other documents carry no usable snippet.
			if item.Mime != "" && !strings.Contains(item.Mime, "html") {
				continue
			}
			seen[item.Link] = true
			results = append(results, models.RawResult{
				Title:       item.Title,
				Link:        item.Link,
				Snippet:     item.Snippet,
				HTMLSnippet: item.HTMLSnippet,
				Mime:        item.Mime,
				Provider:    ProviderName,
			})
		}
	}

	if len(results) == 0 && lastErr != nil {
		if httpclient.IsTimeout(lastErr) {
			return nil, apperrors.NewSearchTimeoutError(ProviderName)
		}
		return nil, apperrors.NewSearchFailedError(ProviderName, lastErr)
	}

	h.logger.Info("web search completed", map[string]interface{}{
		"queries":     len(queries),
		"resultCount": len(results),
		"durationMs":  time.Since(start).Milliseconds(),
	})
	return results, nil
}

func (h *Handler) num(count int) int {
	n := count
	if n <= 0 {
		n = h.config.MaxResults
	}
	if n <= 0 || n > maxNum {
		n = maxNum
	}
	return n
}

func (h *Handler) fetch(ctx context.Context, query string, num int) ([]searchItem, error) {
	var resp searchResponse
	if err := h.client.GetJSON(ctx, h.buildSearchURL(query, num), &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

func (h *Handler) buildSearchURL(query string, num int) string {
	baseURL, err := url.Parse(h.config.SearchAPIBaseURL)
	if err != nil {
		baseURL = &url.URL{Scheme: "https", Host: "www.googleapis.com", Path: "/customsearch/v1"}
	}
	params := url.Values{}
	params.Add("key", h.config.SearchAPIKey)
	params.Add("cx", h.config.SearchEngineID)
	params.Add("q", query)
	params.Add("num", strconv.Itoa(num))
	if h.config.Language != "" {
		params.Add("hl", h.config.Language)
	}
	if h.config.SafeSearch != "" {
		params.Add("safe", h.config.SafeSearch)
	}
	baseURL.RawQuery = params.Encode()
	return baseURL.String()
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
