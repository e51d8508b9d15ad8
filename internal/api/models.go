package api

import "askora/internal/models"

type askResponse struct {
	OK         bool               `json:"ok"`
	Answer     string             `json:"answer"`
	Sources    []models.Source    `json:"sources"`
	Note       string             `json:"note"`
	Intent     string             `json:"intent"`
	Confidence *models.Confidence `json:"confidence,omitempty"`
	Error      string             `json:"error,omitempty"`
	RequestID  string             `json:"requestId"`
}

type errorResponse struct {
	OK        bool   `json:"ok"`
	Error     string `json:"error"`
	RequestID string `json:"requestId,omitempty"`
}

type statusResponse struct {
	Status  string            `json:"status"`
	Service string            `json:"service,omitempty"`
	Checks  map[string]string `json:"checks,omitempty"`
}

func fromAnswer(a *models.Answer, requestID string) askResponse {
	srcs := a.Sources
	if srcs == nil {
		srcs = []models.Source{}
	}
	return askResponse{
		OK:         true,
		Answer:     a.AnswerText,
		Sources:    srcs,
		Note:       a.Note,
		Intent:     a.Intent,
		Confidence: a.Confidence,
		RequestID:  requestID,
	}
}

// failure is the body for application-level errors. It still carries a
// readable answer so clients can render something.
func failure(code, answer, requestID string) askResponse {
	return askResponse{
		OK:        false,
		Answer:    answer,
		Sources:   []models.Source{},
		Note:      code,
		Intent:    models.IntentGeneral,
		Error:     code,
		RequestID: requestID,
	}
}
