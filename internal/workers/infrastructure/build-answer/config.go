// internal/workers/infrastructure/build-answer/config.go
package buildanswer

import "time"

type Config struct {
	MaxSources   int
	FallbackText string
	// ContractID names the registry activity whose output schema the
	// assembled answer must satisfy.
	ContractID string
	Timeout    time.Duration
}

func LoadConfig() *Config {
	return &Config{
		MaxSources:   8,
		FallbackText: "تعذر توليد إجابة الآن. حاول مرة أخرى بعد قليل.",
		ContractID:   "route-engine",
		Timeout:      5 * time.Second,
	}
}
