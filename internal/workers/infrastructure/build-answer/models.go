// internal/workers/infrastructure/build-answer/models.go
package buildanswer

import "askora/internal/models"

type Input struct {
	Question   string             `json:"question"`
	Intent     string             `json:"intent"`
	Context    string             `json:"context"`
	Final      string             `json:"final"`
	Sources    interface{}        `json:"sources"`
	Note       string             `json:"note"`
	Confidence *models.Confidence `json:"confidence,omitempty"`
}

type Output struct {
	Answer models.Answer `json:"answer"`
}
