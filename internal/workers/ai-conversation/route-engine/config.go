// internal/workers/ai-conversation/route-engine/config.go
package routeengine

import "time"

type Config struct {
	DailyAILimit    int
	CacheTTL        time.Duration
	MaxSources      int
	SearchCount     int
	ContextTurns    int
	OutboundTimeout time.Duration
	Timeout         time.Duration
	// LongTermIntents are remembered across sessions when answered on the
	// generative path.
	LongTermIntents []string
}

func LoadConfig() *Config {
	return &Config{
		DailyAILimit:    20,
		CacheTTL:        2 * time.Minute,
		MaxSources:      8,
		SearchCount:     5,
		ContextTurns:    8,
		OutboundTimeout: 12 * time.Second,
		Timeout:         30 * time.Second,
		LongTermIntents: []string{"define", "compare", "how", "why", "who_is"},
	}
}
