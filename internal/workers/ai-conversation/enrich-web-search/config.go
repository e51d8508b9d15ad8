// internal/workers/ai-conversation/enrich-web-search/config.go
package enrichwebsearch

import "time"

type Config struct {
	SearchAPIBaseURL string
	SearchAPIKey     string
	SearchEngineID   string
	Language         string
	SafeSearch       string
	Timeout          time.Duration
	MaxResults       int
	MaxQueries       int
}

func LoadConfig() *Config {
	return &Config{
		SearchAPIBaseURL: "https://www.googleapis.com/customsearch/v1",
		Language:         "ar",
		SafeSearch:       "active",
		Timeout:          12 * time.Second,
		MaxResults:       5,
		MaxQueries:       3,
	}
}
