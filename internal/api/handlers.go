package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	apperrors "askora/internal/common/errors"
	"askora/internal/common/metrics"
	"askora/internal/common/validation"
	routeengine "askora/internal/workers/ai-conversation/route-engine"
	"askora/pkg/registry"

	"github.com/google/uuid"
)

const (
	entrypoint = "http"

	errInvalidRequest   = "invalid_request"
	errInternal         = "internal_error"
	errMethodNotAllowed = "method_not_allowed"
	errNotFound         = "not_found"

	invalidRequestAnswer = "تعذر قراءة الطلب. أرسل JSON يحتوي على الحقل question."
	internalErrorAnswer  = "حدث خطأ غير متوقع. حاول مرة أخرى بعد قليل."

	requestIDHeader = "X-Request-ID"
)

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	requestID := uuid.NewString()
	w.Header().Set(requestIDHeader, requestID)

	req, err := s.decodeAsk(w, r)
	if err != nil {
		stdErr := apperrors.NewInvalidRequestError(err)
		s.logger.Warn("invalid ask request", map[string]interface{}{
			"requestId": requestID,
			"errorCode": string(stdErr.Code),
			"error":     apperrors.Sanitize(stdErr.Details, 200),
		})
		metrics.RequestsTotal.WithLabelValues(entrypoint, errInvalidRequest).Inc()
		writeJSON(w, http.StatusOK, failure(errInvalidRequest, invalidRequestAnswer, requestID))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.config.RequestTimeout)
	defer cancel()

	answer := s.engine.Answer(ctx, req)

	metrics.RequestsTotal.WithLabelValues(entrypoint, "ok").Inc()
	s.obs.RecordRequest(ctx, entrypoint, answer.Note, time.Since(start))
	writeJSON(w, http.StatusOK, fromAnswer(answer, requestID))
}

// decodeAsk reads at most MaxBodyBytes, checks the body against the
// route-engine input contract and decodes it. An empty body is an empty
// question, not an error.
func (s *Server) decodeAsk(w http.ResponseWriter, r *http.Request) (routeengine.Request, error) {
	var req routeengine.Request

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.config.MaxBodyBytes))
	if err != nil {
		return req, fmt.Errorf("read body: %w", err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return req, nil
	}

	var doc interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		return req, fmt.Errorf("decode body: %w", err)
	}
	if schema := requestSchema(); schema != nil {
		if result := validation.ValidateDocument(schema, doc); !result.Valid {
			return req, errors.New(result.Error())
		}
	} else if _, ok := doc.(map[string]interface{}); !ok {
		return req, errors.New("body must be a JSON object")
	}

	if err := json.Unmarshal(body, &req); err != nil {
		return req, fmt.Errorf("decode request: %w", err)
	}
	return req, nil
}

func requestSchema() map[string]interface{} {
	reg, err := registry.Default()
	if err != nil {
		return nil
	}
	activity, ok := reg.Get(routeengine.TaskType)
	if !ok {
		return nil
	}
	return activity.InputSchema
}

func (s *Server) handlePreflight(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Allow", "POST, OPTIONS")
	writeJSON(w, http.StatusMethodNotAllowed, errorResponse{OK: false, Error: errMethodNotAllowed})
}

func (s *Server) notFound(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusNotFound, errorResponse{OK: false, Error: errNotFound})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{Status: "ok", Service: s.config.ServiceName})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	status := statusResponse{Status: "ready", Service: s.config.ServiceName}
	code := http.StatusOK
	if len(s.checks) > 0 {
		status.Checks = make(map[string]string, len(s.checks))
	}
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			status.Checks[name] = "unavailable"
			status.Status = "not_ready"
			code = http.StatusServiceUnavailable
			s.logger.Warn("readiness check failed", map[string]interface{}{
				"check": name,
				"error": err.Error(),
			})
			continue
		}
		status.Checks[name] = "ok"
	}
	writeJSON(w, code, status)
}

// recoverer turns a panic into the regular 200 error envelope. The panic
// value is logged, never returned.
func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			requestID := w.Header().Get(requestIDHeader)
			s.logger.Error("panic while handling request", map[string]interface{}{
				"requestId": requestID,
				"path":      r.URL.Path,
				"panic":     fmt.Sprint(rec),
			})
			metrics.RequestsTotal.WithLabelValues(entrypoint, errInternal).Inc()
			writeJSON(w, http.StatusOK, failure(errInternal, internalErrorAnswer, requestID))
		}()
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
