// internal/workers/infrastructure/build-answer/handler_test.go
package buildanswer

import (
	"context"
	"encoding/json"
	"testing"

	"askora/internal/common/logger"
	"askora/internal/common/metrics"
	"askora/internal/models"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(t *testing.T) *Handler {
	return NewHandler(LoadConfig(), logger.NewTestLogger(t))
}

// ==========================
// Build Tests
// ==========================

func TestBuild_SourceShapes(t *testing.T) {
	tests := []struct {
		name     string
		raw      interface{}
		expected int
	}{
		{"nil", nil, 0},
		{"string is not a list", "just text", 1},
		{"typed slice", []models.Source{{Title: "a", Content: "x"}}, 1},
		{"wrapper", map[string]interface{}{"sources": []interface{}{
			map[string]interface{}{"title": "a", "link": "https://a.com"},
			map[string]interface{}{"name": "b", "url": "https://b.com"},
		}}, 2},
		{"garbage", 42, 0},
	}

	h := newTestHandler(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := h.Build("q", models.IntentGeneral, "", "answer", tt.raw, "", nil)
			require.NotNil(t, a.Sources)
			assert.Len(t, a.Sources, tt.expected)
		})
	}
}

func TestBuild_MissingTitlesAndCap(t *testing.T) {
	h := newTestHandler(t)
	raw := make([]interface{}, 12)
	for i := range raw {
		raw[i] = map[string]interface{}{"content": "بعض النص"}
	}

	a := h.Build("q", models.IntentGeneral, "", "answer", raw, "", nil)
	require.Len(t, a.Sources, 8)
	for _, s := range a.Sources {
		assert.Equal(t, "source", s.Title)
	}
}

func TestBuild_EmptyFinalUsesFallback(t *testing.T) {
	h := newTestHandler(t)
	a := h.Build("q", models.IntentDefine, "ctx", "   ", nil, "fallback_summarizer:x", nil)

	assert.Equal(t, LoadConfig().FallbackText, a.AnswerText)
	assert.Equal(t, models.IntentDefine, a.Intent)
	assert.Equal(t, "ctx", a.Context)
	assert.Equal(t, "fallback_summarizer:x", a.Note)
}

func TestBuild_UnknownIntentBecomesGeneral(t *testing.T) {
	h := newTestHandler(t)
	assert.Equal(t, models.IntentGeneral, h.Build("q", "price", "", "a", nil, "", nil).Intent)
	assert.Equal(t, models.IntentGeneral, h.Build("q", "", "", "a", nil, "", nil).Intent)
}

func TestBuild_ConfidenceIsCopied(t *testing.T) {
	h := newTestHandler(t)
	conf := &models.Confidence{Score: 0.8, Level: models.LevelHigh, Label: "عالية"}

	a := h.Build("q", models.IntentGeneral, "", "a", nil, "", conf)
	conf.Score = 0.1

	require.NotNil(t, a.Confidence)
	assert.Equal(t, 0.8, a.Confidence.Score)
}

func TestBuild_SourcesSerializeAsEmptyArray(t *testing.T) {
	h := newTestHandler(t)
	data, err := json.Marshal(h.Build("q", models.IntentGeneral, "", "a", nil, "", nil))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"sources":[]`)
}

// ==========================
// Contract Tests
// ==========================

func TestBuild_ValidAnswerPassesContract(t *testing.T) {
	h := newTestHandler(t)
	require.NotNil(t, h.schema)

	before := testutil.ToFloat64(metrics.ContractViolations)
	h.Build("q", models.IntentWhere, "", "الرياض في وسط المملكة", []models.Source{
		{Title: "الرياض", Link: "https://ar.wikipedia.org/wiki/الرياض", Content: "مدينة"},
		{Content: "بلا عنوان"},
	}, "ai_generated:1/20", &models.Confidence{Score: 0.9, Level: models.LevelHigh, Label: "عالية"})

	assert.Equal(t, before, testutil.ToFloat64(metrics.ContractViolations))
}

func TestBuild_ViolationIsCountedNotFatal(t *testing.T) {
	h := newTestHandler(t)
	h.schema = map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"answer": map[string]interface{}{"type": "string", "minLength": 500},
		},
	}

	before := testutil.ToFloat64(metrics.ContractViolations)
	a := h.Build("q", models.IntentGeneral, "", "short", nil, "", nil)

	assert.Equal(t, "short", a.AnswerText)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.ContractViolations))
}

// ==========================
// Execute Tests
// ==========================

func TestExecute(t *testing.T) {
	h := newTestHandler(t)

	_, err := h.Execute(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNilInput)

	var input Input
	require.NoError(t, json.Unmarshal([]byte(`{"question":"q","intent":"how","final":"a","sources":{"sources":[{"title":"t","link":"https://x.com"}]}}`), &input))
	out, err := h.Execute(context.Background(), &input)
	require.NoError(t, err)
	assert.Equal(t, models.IntentHow, out.Answer.Intent)
	require.Len(t, out.Answer.Sources, 1)
	assert.Equal(t, "https://x.com", out.Answer.Sources[0].Link)
}
