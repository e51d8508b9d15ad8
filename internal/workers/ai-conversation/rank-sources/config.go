// internal/workers/ai-conversation/rank-sources/config.go
package ranksources

import "time"

type Config struct {
	DefaultLimit    int
	MaxLimit        int
	MaxPerDomain    int
	MaxTitleRunes   int
	MaxContentRunes int
	Timeout         time.Duration
}

func LoadConfig() *Config {
	return &Config{
		DefaultLimit:    8,
		MaxLimit:        10,
		MaxPerDomain:    2,
		MaxTitleRunes:   140,
		MaxContentRunes: 400,
		Timeout:         5 * time.Second,
	}
}
