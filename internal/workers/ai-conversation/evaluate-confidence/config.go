// internal/workers/ai-conversation/evaluate-confidence/config.go
package evaluateconfidence

import "time"

type Config struct {
	HighThreshold   float64
	MediumThreshold float64
	Timeout         time.Duration
}

func LoadConfig() *Config {
	return &Config{
		HighThreshold:   0.78,
		MediumThreshold: 0.56,
		Timeout:         5 * time.Second,
	}
}
