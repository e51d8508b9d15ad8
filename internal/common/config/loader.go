package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "ASKORA"

var (
	cacheBackends   = []string{"memory", "redis"}
	memoryBackends  = []string{"file", "redis", "none"}
	sessionBackends = []string{"file", "postgres", "none"}
)

// Load reads .env, configs/config.yaml, the per-environment overlay and
// ASKORA_* variables, in that order of increasing precedence.
func Load() (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	if root := findProjectRoot(); root != "" {
		v.AddConfigPath(filepath.Join(root, "configs"))
	}
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}
	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig()

	return build(v)
}

// LoadFromFile reads a single YAML file plus environment overrides.
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return build(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

func build(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyWorkerDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "askora")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.environment", "development")

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15000)
	v.SetDefault("server.write_timeout", 30000)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.max_body_bytes", 64*1024)

	v.SetDefault("engine.daily_ai_limit", 20)
	v.SetDefault("engine.cache_ttl", 120000)
	v.SetDefault("engine.cache_backend", "memory")
	v.SetDefault("engine.memory_backend", "file")
	v.SetDefault("engine.session_backend", "file")
	v.SetDefault("engine.data_dir", "data")
	v.SetDefault("engine.max_sources", 8)
	v.SetDefault("engine.context_turns", 8)
	v.SetDefault("engine.outbound_timeout", 12000)
	v.SetDefault("engine.request_timeout", 30000)

	v.SetDefault("camunda.broker_address", "")
	v.SetDefault("camunda.max_jobs_active", 10)
	v.SetDefault("camunda.timeout", 30000)
	v.SetDefault("camunda.request_timeout", 30000)

	v.SetDefault("database.postgres.host", "")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.database", "")
	v.SetDefault("database.postgres.user", "")
	v.SetDefault("database.postgres.password", "")
	v.SetDefault("database.postgres.max_connections", 25)
	v.SetDefault("database.postgres.max_idle", 5)
	v.SetDefault("database.postgres.sslmode", "disable")
	v.SetDefault("database.elasticsearch.url", "")
	v.SetDefault("database.elasticsearch.username", "")
	v.SetDefault("database.elasticsearch.password", "")
	v.SetDefault("database.redis.address", "")
	v.SetDefault("database.redis.password", "")
	v.SetDefault("database.redis.db", 0)

	v.SetDefault("knowledge.enabled", false)
	v.SetDefault("knowledge.index", "askora-knowledge")
	v.SetDefault("knowledge.max_results", 5)
	v.SetDefault("knowledge.cache_ttl", 300000)

	v.SetDefault("apis.gemini.base_url", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("apis.gemini.api_key", "")
	v.SetDefault("apis.gemini.model", "gemini-1.5-flash")
	v.SetDefault("apis.gemini.timeout", 12000)
	v.SetDefault("apis.gemini.max_tokens", 800)
	v.SetDefault("apis.gemini.temperature", 0.35)
	v.SetDefault("apis.gemini.max_retries", 1)
	v.SetDefault("apis.web_search.base_url", "https://www.googleapis.com/customsearch/v1")
	v.SetDefault("apis.web_search.api_key", "")
	v.SetDefault("apis.web_search.engine_id", "")
	v.SetDefault("apis.web_search.timeout", 12000)
	v.SetDefault("apis.web_search.max_results", 5)
	v.SetDefault("apis.web_search.language", "ar")
	v.SetDefault("apis.web_search.safe_search", "active")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("observability.service_name", "askora")
	v.SetDefault("observability.jaeger_endpoint", "")
}

func loadEnvFile() string {
	possiblePaths := []string{".env", "../.env", "../../.env"}
	if root := findProjectRoot(); root != "" {
		possiblePaths = append(possiblePaths, filepath.Join(root, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err == nil {
			return path
		}
	}
	return ""
}

func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok || !strings.Contains(strVal, "$") {
			continue
		}
		if expanded := os.ExpandEnv(strVal); expanded != strVal {
			v.Set(key, expanded)
		}
	}
}

// overrideEmptyConfig honours the plain variable names the service has always
// been deployed with.
func overrideEmptyConfig(cfg *Config) {
	setIfEmpty(&cfg.APIs.Gemini.APIKey, "GEMINI_API_KEY")
	setIfEmpty(&cfg.APIs.WebSearch.APIKey, "GOOGLE_CSE_KEY")
	setIfEmpty(&cfg.APIs.WebSearch.EngineID, "GOOGLE_CSE_CX")
	setIfEmpty(&cfg.Database.Redis.Address, "REDIS_ADDR")
	setIfEmpty(&cfg.Database.Postgres.User, "DB_USER")
	setIfEmpty(&cfg.Database.Postgres.Password, "DB_PASSWORD")
	setIfEmpty(&cfg.Database.Elasticsearch.URL, "ELASTICSEARCH_URL")
	setIfEmpty(&cfg.Observability.JaegerEndpoint, "JAEGER_ENDPOINT")

	if val := os.Getenv("GEMINI_MODEL"); val != "" {
		cfg.APIs.Gemini.Model = val
	}
	if val := os.Getenv("DAILY_AI_LIMIT"); val != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(val)); err == nil && n >= 0 {
			cfg.Engine.DailyAILimit = n
		}
	}
	if val := os.Getenv("PORT"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			cfg.Server.Port = n
		}
	}

	if cfg.Database.Elasticsearch.URL == "" && len(cfg.Database.Elasticsearch.Addresses) > 0 {
		cfg.Database.Elasticsearch.URL = cfg.Database.Elasticsearch.Addresses[0]
	}
}

func setIfEmpty(field *string, envKey string) {
	if *field != "" {
		return
	}
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}

func applyWorkerDefaults(cfg *Config) {
	for key, worker := range cfg.Workers {
		if worker.MaxJobsActive == 0 {
			worker.MaxJobsActive = 5
		}
		if worker.Timeout == 0 {
			worker.Timeout = 30000
		}
		if worker.MaxRetries == 0 {
			worker.MaxRetries = 3
		}
		cfg.Workers[key] = worker
	}
}

// validateConfig rejects only settings that are wrong, never ones that are
// missing: absent credentials route the engine onto its fallback paths.
func validateConfig(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", cfg.Server.Port)
	}
	if cfg.Engine.DailyAILimit < 0 {
		return fmt.Errorf("engine.daily_ai_limit must not be negative")
	}
	if cfg.Engine.MaxSources <= 0 || cfg.Engine.MaxSources > 10 {
		return fmt.Errorf("engine.max_sources must be between 1 and 10")
	}
	if !oneOf(cfg.Engine.CacheBackend, cacheBackends) {
		return fmt.Errorf("engine.cache_backend %q not one of %v", cfg.Engine.CacheBackend, cacheBackends)
	}
	if !oneOf(cfg.Engine.MemoryBackend, memoryBackends) {
		return fmt.Errorf("engine.memory_backend %q not one of %v", cfg.Engine.MemoryBackend, memoryBackends)
	}
	if !oneOf(cfg.Engine.SessionBackend, sessionBackends) {
		return fmt.Errorf("engine.session_backend %q not one of %v", cfg.Engine.SessionBackend, sessionBackends)
	}
	if cfg.APIs.Gemini.Temperature < 0 || cfg.APIs.Gemini.Temperature > 2 {
		return fmt.Errorf("apis.gemini.temperature must be within [0, 2]")
	}
	return nil
}

func oneOf(value string, allowed []string) bool {
	for _, a := range allowed {
		if value == a {
			return true
		}
	}
	return false
}

func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

func GetWorkerConfig(cfg *Config, workerName string) WorkerConfig {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker
	}
	return WorkerConfig{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       30000,
		MaxRetries:    3,
	}
}

func IsWorkerEnabled(cfg *Config, workerName string) bool {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker.Enabled
	}
	return true
}
