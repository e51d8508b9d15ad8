// internal/workers/ai-conversation/llm-synthesis/handler_test.go
package llmsynthesis

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	apperrors "askora/internal/common/errors"
	"askora/internal/common/logger"
	"askora/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func createTestConfig(baseURL string) *Config {
	cfg := LoadConfig()
	cfg.BaseURL = baseURL
	cfg.APIKey = "test-key"
	cfg.Timeout = 2 * time.Second
	return cfg
}

func writeCompletion(t *testing.T, w http.ResponseWriter, parts ...string) {
	ps := make([]map[string]string, 0, len(parts))
	for _, p := range parts {
		ps = append(ps, map[string]string{"text": p})
	}
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(map[string]interface{}{
		"candidates": []map[string]interface{}{
			{"content": map[string]interface{}{"role": "model", "parts": ps}, "finishReason": "STOP"},
		},
	}))
}

func testRequest() models.CompletionRequest {
	return models.CompletionRequest{
		Question: "ما هي عاصمة اليابان؟",
		Intent:   models.IntentWhere,
		Sources: []models.Source{
			{Title: "طوكيو", Link: "https://ar.wikipedia.org/wiki/طوكيو", Content: "طوكيو هي عاصمة اليابان."},
		},
	}
}

// ==========================
// Core Functionality Tests
// ==========================

func TestComplete_Success(t *testing.T) {
	var got generateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/models/gemini-1.5-flash:generateContent", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeCompletion(t, w, "عاصمة اليابان ", "هي طوكيو [#1]\n")
	}))
	defer server.Close()

	h := NewHandler(createTestConfig(server.URL), logger.NewTestLogger(t))
	text, err := h.Complete(context.Background(), testRequest())

	require.NoError(t, err)
	assert.Equal(t, "عاصمة اليابان هي طوكيو [#1]", text)

	require.Len(t, got.Contents, 1)
	assert.Equal(t, "user", got.Contents[0].Role)
	prompt := got.Contents[0].Parts[0].Text
	assert.Contains(t, prompt, "ASKORA")
	assert.Contains(t, prompt, "ما هي عاصمة اليابان؟")
	assert.Contains(t, prompt, "[#1] طوكيو")
	assert.Contains(t, prompt, "(empty)")
	assert.Equal(t, 800, got.GenerationConfig.MaxOutputTokens)
	assert.InDelta(t, 0.35, got.GenerationConfig.Temperature, 0.0001)
}

func TestAvailable(t *testing.T) {
	cfg := LoadConfig()
	h := NewHandler(cfg, logger.NewTestLogger(t))
	assert.False(t, h.Available())

	cfg.APIKey = "  "
	assert.False(t, h.Available())

	cfg.APIKey = "k"
	assert.True(t, h.Available())
}

func TestComplete_NotConfigured(t *testing.T) {
	h := NewHandler(LoadConfig(), logger.NewTestLogger(t))
	_, err := h.Complete(context.Background(), testRequest())

	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeLLMNotConfigured))
}

// ==========================
// Error and Retry Tests
// ==========================

func TestComplete_QuotaExhaustedIsNotRetried(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"status":"RESOURCE_EXHAUSTED"}}`))
	}))
	defer server.Close()

	h := NewHandler(createTestConfig(server.URL), logger.NewTestLogger(t))
	_, err := h.Complete(context.Background(), testRequest())

	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeLLMQuotaExhausted))
	assert.Equal(t, http.StatusTooManyRequests, apperrors.AsStandardError(err).Metadata["statusCode"])
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestComplete_ServerErrorRetried(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		writeCompletion(t, w, "ok")
	}))
	defer server.Close()

	h := NewHandler(createTestConfig(server.URL), logger.NewTestLogger(t))
	text, err := h.Complete(context.Background(), testRequest())

	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestComplete_ClientErrorNotRetried(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"bad model"}}`))
	}))
	defer server.Close()

	h := NewHandler(createTestConfig(server.URL), logger.NewTestLogger(t))
	_, err := h.Complete(context.Background(), testRequest())

	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeLLMSynthesisFailed))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestComplete_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		writeCompletion(t, w, "late")
	}))
	defer server.Close()

	h := NewHandler(createTestConfig(server.URL), logger.NewTestLogger(t))
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := h.Complete(ctx, testRequest())
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeLLMTimeout))
}

func TestComplete_EmptyCandidates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}))
	defer server.Close()

	h := NewHandler(createTestConfig(server.URL), logger.NewTestLogger(t))
	_, err := h.Complete(context.Background(), testRequest())

	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeLLMSynthesisFailed))
}

// ==========================
// Prompt Tests
// ==========================

func TestBuildPrompt(t *testing.T) {
	cfg := LoadConfig()
	cfg.MaxPromptSources = 2
	h := NewHandler(cfg, logger.NewTestLogger(t))

	t.Run("no sources", func(t *testing.T) {
		p := h.buildPrompt(models.CompletionRequest{Question: "سؤال"})
		assert.Contains(t, p, "(no sources)")
		assert.Contains(t, p, "النية: unknown")
	})

	t.Run("caps sources", func(t *testing.T) {
		p := h.buildPrompt(models.CompletionRequest{
			Question: "سؤال",
			Context:  "user: مرحبا",
			Sources:  []models.Source{{Title: "a"}, {Title: "b"}, {Title: "c"}},
		})
		assert.Contains(t, p, "[#2] b")
		assert.NotContains(t, p, "[#3]")
		assert.Contains(t, p, "user: مرحبا")
	})
}

// ==========================
// Execute Tests
// ==========================

func TestExecute(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeCompletion(t, w, "جواب")
	}))
	defer server.Close()

	h := NewHandler(createTestConfig(server.URL), logger.NewTestLogger(t))

	out, err := h.Execute(context.Background(), &Input{Question: "سؤال", Intent: models.IntentGeneral})
	require.NoError(t, err)
	assert.Equal(t, "جواب", out.Answer)

	_, err = h.Execute(context.Background(), &Input{Question: "   "})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeEmptyQuestion))

	_, err = h.Execute(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNilInput)
}
