// internal/workers/ai-conversation/llm-synthesis/config.go
package llmsynthesis

import "time"

type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Timeout     time.Duration
	MaxRetries  int
	MaxTokens   int
	Temperature float64
	// MaxPromptSources bounds how many sources are quoted in the prompt.
	MaxPromptSources int
}

func LoadConfig() *Config {
	return &Config{
		BaseURL:          "https://generativelanguage.googleapis.com/v1beta",
		Model:            "gemini-1.5-flash",
		Timeout:          12 * time.Second,
		MaxRetries:       1,
		MaxTokens:        800,
		Temperature:      0.35,
		MaxPromptSources: 5,
	}
}
