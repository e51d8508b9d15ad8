// internal/workers/ai-conversation/query-internal-data/config.go
package queryinternaldata

import "time"

type Config struct {
	Index      string
	Timeout    time.Duration
	CacheTTL   time.Duration
	MaxResults int
}

func LoadConfig() *Config {
	return &Config{
		Index:      "askora-knowledge",
		Timeout:    12 * time.Second,
		CacheTTL:   5 * time.Minute,
		MaxResults: 5,
	}
}
