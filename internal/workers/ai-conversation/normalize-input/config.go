// internal/workers/ai-conversation/normalize-input/config.go
package normalizeinput

import "time"

type Config struct {
	MaxQuestionRunes int
	MaxContextRunes  int
	Timeout          time.Duration
}

func LoadConfig() *Config {
	return &Config{
		MaxQuestionRunes: 1200,
		MaxContextRunes:  800,
		Timeout:          5 * time.Second,
	}
}
