// internal/workers/ai-conversation/parse-user-intent/config.go
package parseuserintent

import "time"

type Config struct {
	MaxKeywords int
	Timeout     time.Duration
}

func LoadConfig() *Config {
	return &Config{
		MaxKeywords: 8,
		Timeout:     5 * time.Second,
	}
}
