// cmd/askora/app.go
package main

import (
	"context"
	"path/filepath"

	"askora/internal/api"
	"askora/internal/common/cache"
	"askora/internal/common/config"
	"askora/internal/common/database"
	"askora/internal/common/logger"
	"askora/internal/common/memory"
	"askora/internal/common/observability"
	enrichwebsearch "askora/internal/workers/ai-conversation/enrich-web-search"
	llmsynthesis "askora/internal/workers/ai-conversation/llm-synthesis"
	queryinternaldata "askora/internal/workers/ai-conversation/query-internal-data"
	routeengine "askora/internal/workers/ai-conversation/route-engine"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

// app holds everything built from the configuration. Backends that are not
// configured or not reachable are left nil and the engine degrades.
type app struct {
	cfg *config.Config
	log logger.Logger
	obs *observability.Observability

	redis    *database.RedisClient
	postgres *database.PostgresClient
	es       *database.ElasticsearchClient

	webSearch *enrichwebsearch.Handler
	knowledge *queryinternaldata.Handler
	completer *llmsynthesis.Handler
	files     *memory.FileStore
	longTerm  memory.LongTermStore
	sessions  memory.SessionLog
	engine    *routeengine.Engine

	readiness map[string]api.ReadinessCheck
}

func newApp(ctx context.Context, cfg *config.Config, log logger.Logger, reg prometheus.Registerer) (*app, error) {
	a := &app{cfg: cfg, log: log, readiness: make(map[string]api.ReadinessCheck)}

	obs, err := observability.New(observability.Config{
		ServiceName:    cfg.Observability.ServiceName,
		JaegerEndpoint: cfg.Observability.JaegerEndpoint,
		Registerer:     reg,
	})
	if err != nil {
		return nil, err
	}
	a.obs = obs

	a.connectRedis(ctx)
	a.connectPostgres(ctx)
	a.connectElasticsearch(ctx)

	a.webSearch = enrichwebsearch.NewHandler(a.webSearchConfig(), log)
	a.knowledge = queryinternaldata.NewHandler(a.knowledgeConfig(), a.esClient(), a.redisCmdable(), log)
	a.completer = llmsynthesis.NewHandler(a.completionConfig(), log)
	a.longTerm = a.buildLongTerm()
	a.sessions = a.buildSessions()

	state := &routeengine.State{
		Cache: a.buildCache(),
		Quota: routeengine.NewDailyQuota(cfg.Engine.DailyAILimit),
	}
	a.engine = routeengine.NewEngine(a.engineConfig(), state, routeengine.Dependencies{
		Searchers:     a.searchers(),
		Completer:     a.completer,
		LongTerm:      a.longTerm,
		Sessions:      a.sessions,
		Observability: obs,
	}, log)

	log.Info("engine ready", map[string]interface{}{
		"webSearch":      a.webSearch.Configured(),
		"knowledge":      a.es != nil,
		"completion":     a.completer.Available(),
		"cacheBackend":   cfg.Engine.CacheBackend,
		"memoryBackend":  cfg.Engine.MemoryBackend,
		"sessionBackend": cfg.Engine.SessionBackend,
		"dailyAILimit":   state.Quota.Limit(),
	})
	return a, nil
}

func (a *app) connectRedis(ctx context.Context) {
	if a.cfg.Database.Redis.Address == "" {
		return
	}
	client, err := database.NewRedis(a.cfg.Database.Redis)
	if err == nil {
		err = client.Ping(ctx)
	}
	if err != nil {
		a.log.Warn("redis unavailable, using local backends", map[string]interface{}{"error": err.Error()})
		if client != nil {
			_ = client.Close()
		}
		return
	}
	a.redis = client
	a.readiness["redis"] = client.Ping
}

func (a *app) connectPostgres(ctx context.Context) {
	if a.cfg.Engine.SessionBackend != "postgres" || !a.cfg.Database.Postgres.Configured() {
		return
	}
	client, err := database.NewPostgres(a.cfg.Database.Postgres)
	if err == nil {
		err = client.Ping(ctx)
	}
	if err == nil {
		err = client.EnsureSchema(ctx)
	}
	if err != nil {
		a.log.Warn("postgres unavailable, session log falls back to files", map[string]interface{}{"error": err.Error()})
		if client != nil {
			_ = client.Close()
		}
		return
	}
	a.postgres = client
	a.readiness["postgres"] = client.Ping
}

func (a *app) connectElasticsearch(ctx context.Context) {
	if !a.cfg.Knowledge.Enabled || a.cfg.Database.Elasticsearch.GetURL() == "" {
		return
	}
	client, err := database.NewElasticsearch(a.cfg.Database.Elasticsearch)
	if err == nil {
		err = client.Ping(ctx)
	}
	if err == nil {
		err = client.EnsureIndex(ctx, a.cfg.Knowledge.Index)
	}
	if err != nil {
		a.log.Warn("elasticsearch unavailable, internal knowledge disabled", map[string]interface{}{"error": err.Error()})
		return
	}
	a.es = client
	a.readiness["elasticsearch"] = client.Ping
}

func (a *app) esClient() *elasticsearch.Client {
	if a.es == nil {
		return nil
	}
	return a.es.Client
}

func (a *app) redisCmdable() redis.Cmdable {
	if a.redis == nil {
		return nil
	}
	return a.redis.Client
}

func (a *app) searchers() []routeengine.Searcher {
	out := []routeengine.Searcher{a.webSearch}
	if a.es != nil {
		out = append(out, a.knowledge)
	}
	return out
}

func (a *app) buildCache() cache.AnswerCache {
	if a.cfg.Engine.CacheBackend == "redis" {
		if a.redis != nil {
			return cache.NewRedisCache(a.redis.Client, a.log)
		}
		a.log.Warn("redis cache requested without redis, using memory cache", nil)
	}
	return cache.NewMemoryCache()
}

func (a *app) buildLongTerm() memory.LongTermStore {
	switch a.cfg.Engine.MemoryBackend {
	case "none":
		return memory.Nop{}
	case "redis":
		if a.redis != nil {
			return memory.NewRedisStore(a.redis.Client)
		}
		a.log.Warn("redis memory requested without redis, using files", nil)
	}
	return a.fileStore()
}

func (a *app) buildSessions() memory.SessionLog {
	switch a.cfg.Engine.SessionBackend {
	case "none":
		return memory.Nop{}
	case "postgres":
		if a.postgres != nil {
			return memory.NewPostgresSessionLog(a.postgres.DB)
		}
	}
	return a.fileStore()
}

// fileStore is shared by the long-term and session backends so both read
// and write the same data directory.
func (a *app) fileStore() fileBackend {
	if a.files != nil {
		return a.files
	}
	store, err := memory.NewFileStore(dataPath(a.cfg.Engine.DataDir))
	if err != nil {
		a.log.Warn("memory directory unavailable, memory disabled", map[string]interface{}{"error": err.Error()})
		return memory.Nop{}
	}
	a.files = store
	return store
}

type fileBackend interface {
	memory.LongTermStore
	memory.SessionLog
}

func (a *app) engineConfig() *routeengine.Config {
	cfg := routeengine.LoadConfig()
	if a.cfg.Engine.DailyAILimit > 0 {
		cfg.DailyAILimit = a.cfg.Engine.DailyAILimit
	}
	if a.cfg.Engine.CacheTTL > 0 {
		cfg.CacheTTL = config.GetDuration(a.cfg.Engine.CacheTTL)
	}
	if a.cfg.Engine.MaxSources > 0 {
		cfg.MaxSources = a.cfg.Engine.MaxSources
	}
	if a.cfg.Engine.ContextTurns > 0 {
		cfg.ContextTurns = a.cfg.Engine.ContextTurns
	}
	if a.cfg.Engine.OutboundTimeout > 0 {
		cfg.OutboundTimeout = config.GetDuration(a.cfg.Engine.OutboundTimeout)
	}
	if a.cfg.Engine.RequestTimeout > 0 {
		cfg.Timeout = config.GetDuration(a.cfg.Engine.RequestTimeout)
	}
	return cfg
}

func (a *app) webSearchConfig() *enrichwebsearch.Config {
	ws := a.cfg.APIs.WebSearch
	cfg := enrichwebsearch.LoadConfig()
	cfg.SearchAPIKey = ws.APIKey
	cfg.SearchEngineID = ws.EngineID
	if ws.BaseURL != "" {
		cfg.SearchAPIBaseURL = ws.BaseURL
	}
	if ws.Timeout > 0 {
		cfg.Timeout = config.GetDuration(ws.Timeout)
	}
	if ws.MaxResults > 0 {
		cfg.MaxResults = ws.MaxResults
	}
	if ws.Language != "" {
		cfg.Language = ws.Language
	}
	if ws.SafeSearch != "" {
		cfg.SafeSearch = ws.SafeSearch
	}
	return cfg
}

func (a *app) knowledgeConfig() *queryinternaldata.Config {
	k := a.cfg.Knowledge
	cfg := queryinternaldata.LoadConfig()
	if k.Index != "" {
		cfg.Index = k.Index
	}
	if k.MaxResults > 0 {
		cfg.MaxResults = k.MaxResults
	}
	if k.CacheTTL > 0 {
		cfg.CacheTTL = config.GetDuration(k.CacheTTL)
	}
	if a.cfg.Engine.OutboundTimeout > 0 {
		cfg.Timeout = config.GetDuration(a.cfg.Engine.OutboundTimeout)
	}
	return cfg
}

func (a *app) completionConfig() *llmsynthesis.Config {
	g := a.cfg.APIs.Gemini
	cfg := llmsynthesis.LoadConfig()
	cfg.APIKey = g.APIKey
	if g.BaseURL != "" {
		cfg.BaseURL = g.BaseURL
	}
	if g.Model != "" {
		cfg.Model = g.Model
	}
	if g.Timeout > 0 {
		cfg.Timeout = config.GetDuration(g.Timeout)
	}
	if g.MaxTokens > 0 {
		cfg.MaxTokens = g.MaxTokens
	}
	cfg.Temperature = g.Temperature
	cfg.MaxRetries = g.MaxRetries
	return cfg
}

func (a *app) Close(ctx context.Context) {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.postgres != nil {
		_ = a.postgres.Close()
	}
	if err := a.obs.Shutdown(ctx); err != nil {
		a.log.Warn("observability shutdown failed", map[string]interface{}{"error": err.Error()})
	}
}

func dataPath(dir string) string {
	if dir == "" {
		return filepath.Join("data", "memory")
	}
	return filepath.Clean(dir)
}
