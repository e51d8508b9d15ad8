// internal/workers/ai-conversation/summarize-sources/config.go
package summarizesources

import "time"

type Config struct {
	MinUnitRunes        int
	RelaxedUnitRunes    int
	MaxSelected         int
	SimilarityThreshold float64
	WeakScore           float64
	DirectAnswerRunes   int
	SummaryRunes        int
	BulletRunes         int
	MaxBullets          int
	MaxFigures          int
	MaxLinks            int
	Timeout             time.Duration
}

func LoadConfig() *Config {
	return &Config{
		MinUnitRunes:        20,
		RelaxedUnitRunes:    8,
		MaxSelected:         8,
		SimilarityThreshold: 0.82,
		WeakScore:           0.08,
		DirectAnswerRunes:   220,
		SummaryRunes:        320,
		BulletRunes:         200,
		MaxBullets:          5,
		MaxFigures:          5,
		MaxLinks:            5,
		Timeout:             5 * time.Second,
	}
}
