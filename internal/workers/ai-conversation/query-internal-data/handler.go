// internal/workers/ai-conversation/query-internal-data/handler.go
package queryinternaldata

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "askora/internal/common/errors"
	"askora/internal/common/logger"
	"askora/internal/common/textproc"
	"askora/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/redis/go-redis/v9"
)

const (
	TaskType = "query-internal-data"

	ProviderName = "internal_knowledge"

	cacheKeyPrefix = "ai:internal:"
)

var (
	ErrNilInput   = errors.New("input cannot be nil")
	ErrEmptyQuery = errors.New("query cannot be empty")
)

type Handler struct {
	config       *Config
	esClient     *elasticsearch.Client
	redisClient  redis.Cmdable
	logger       logger.Logger
	errorHandler *apperrors.ErrorHandler
}

// NewHandler builds the knowledge provider. redisClient may be nil, in
// which case results are not cached.
func NewHandler(config *Config, esClient *elasticsearch.Client, redisClient redis.Cmdable, log logger.Logger) *Handler {
	scoped := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		esClient:     esClient,
		redisClient:  redisClient,
		logger:       scoped,
		errorHandler: apperrors.NewErrorHandler(scoped),
	}
}

func (h *Handler) Name() string {
	return ProviderName
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

	results, err := h.Search(ctx, models.SearchRequest{Query: query, Intent: input.Intent, Count: input.Count})
	if err != nil {
		return nil, err
	}
	return &Output{Results: results}, nil
}

// Search runs a multi_match query against the knowledge index, reading and
// filling the Redis result cache around it.
func (h *Handler) Search(ctx context.Context, req models.SearchRequest) ([]models.RawResult, error) {
	if h.esClient == nil {
		return nil, apperrors.NewSearchNotConfiguredError(ProviderName)
	}

	size := req.Count
	if size <= 0 || size > h.config.MaxResults {
		size = h.config.MaxResults
	}

	cacheKey := h.buildCacheKey(req.Intent, req.Query, size)
	if cached, ok := h.readCache(ctx, cacheKey); ok {
		return cached, nil
	}

	start := time.Now()
	results, err := h.queryElasticsearch(ctx, req.Query, size)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, apperrors.NewSearchTimeoutError(ProviderName)
		}
		return nil, apperrors.NewKnowledgeQueryFailedError(h.config.Index, err)
	}

	if len(results) > 0 {
		h.writeCache(ctx, cacheKey, results)
	}

	h.logger.Info("internal knowledge queried", map[string]interface{}{
		"index":       h.config.Index,
		"resultCount": len(results),
		"durationMs":  time.Since(start).Milliseconds(),
	})
	return results, nil
}

func (h *Handler) buildCacheKey(intent, query string, size int) string {
	return fmt.Sprintf("%s%s|%d|%s", cacheKeyPrefix, intent, size, textproc.Collapse(textproc.Fold(query)))
}

func (h *Handler) readCache(ctx context.Context, key string) ([]models.RawResult, bool) {
	if h.redisClient == nil {
		return nil, false
	}
	val, err := h.redisClient.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			h.logger.Warn("knowledge cache read failed", map[string]interface{}{"error": err.Error()})
		}
		return nil, false
	}
	var results []models.RawResult
	if err := json.Unmarshal([]byte(val), &results); err != nil {
		return nil, false
	}
	return results, true
}

func (h *Handler) writeCache(ctx context.Context, key string, results []models.RawResult) {
	if h.redisClient == nil {
		return
	}
	data, err := json.Marshal(results)
	if err != nil {
		return
	}
	if err := h.redisClient.Set(ctx, key, data, h.config.CacheTTL).Err(); err != nil {
		h.logger.Warn("knowledge cache write failed", map[string]interface{}{"error": err.Error()})
	}
}

func (h *Handler) queryElasticsearch(ctx context.Context, query string, size int) ([]models.RawResult, error) {
	queryBody := map[string]interface{}{
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  query,
				"fields": []string{"title^2", "content", "tags"},
			},
		},
		"size": size,
	}

	body, err := json.Marshal(queryBody)
	if err != nil {
		return nil, err
	}
	req := esapi.SearchRequest{
		Index: []string{h.config.Index},
		Body:  bytes.NewReader(body),
	}

	res, err := req.Do(ctx, h.esClient)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("search failed: %s", res.Status())
	}

	var r searchResult
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	results := make([]models.RawResult, 0, len(r.Hits.Hits))
	for _, hit := range r.Hits.Hits {
		doc := hit.Source
		if doc.Title == "" && doc.Content == "" {
			continue
		}
		results = append(results, models.RawResult{
			Title:    doc.Title,
			Link:     doc.URL,
			Snippet:  doc.Content,
			Provider: ProviderName,
		})
	}
	return results, nil
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	_, err = cmd.Send(context.Background())
	if err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err.Error(),
		})
	}
}
