package errors

import (
	stderrors "errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

// ==========================
// Error Codes
// ==========================

type ErrorCode string

const (
	ErrCodeInvalidInput   ErrorCode = "INVALID_INPUT"
	ErrCodeEmptyQuestion  ErrorCode = "EMPTY_QUESTION"
	ErrCodeInvalidRequest ErrorCode = "INVALID_REQUEST"

	ErrCodeSearchNotConfigured ErrorCode = "SEARCH_NOT_CONFIGURED"
	ErrCodeSearchTimeout       ErrorCode = "SEARCH_TIMEOUT"
	ErrCodeSearchFailed        ErrorCode = "SEARCH_FAILED"
	ErrCodeKnowledgeFailed     ErrorCode = "KNOWLEDGE_QUERY_FAILED"

	ErrCodeLLMNotConfigured   ErrorCode = "LLM_NOT_CONFIGURED"
	ErrCodeLLMTimeout         ErrorCode = "LLM_TIMEOUT"
	ErrCodeLLMQuotaExhausted  ErrorCode = "LLM_QUOTA_EXHAUSTED"
	ErrCodeLLMSynthesisFailed ErrorCode = "LLM_SYNTHESIS_FAILED"

	ErrCodeCacheUnavailable  ErrorCode = "CACHE_UNAVAILABLE"
	ErrCodeMemoryUnavailable ErrorCode = "MEMORY_UNAVAILABLE"

	ErrCodeContractViolation ErrorCode = "CONTRACT_VIOLATION"
	ErrCodeInternal          ErrorCode = "INTERNAL_ERROR"
)

// ==========================
// Standard Error
// ==========================

type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// WithMetadata returns the error with key set in its metadata.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// BPMNError is the shape thrown back to the workflow engine in worker mode.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// Constructors
// ==========================

func NewInvalidInputError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidInput,
		Message:   "Invalid input payload",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewEmptyQuestionError() *StandardError {
	return &StandardError{
		Code:      ErrCodeEmptyQuestion,
		Message:   "Question is empty",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewInvalidRequestError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidRequest,
		Message:   "Request body could not be decoded",
		Details:   errDetails(err),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewSearchNotConfiguredError(provider string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSearchNotConfigured,
		Message:   "Search provider is not configured",
		Details:   fmt.Sprintf("provider: %s", provider),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewSearchTimeoutError(provider string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSearchTimeout,
		Message:   "Search provider timeout",
		Details:   fmt.Sprintf("provider: %s", provider),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewSearchFailedError(provider string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSearchFailed,
		Message:   "Search provider error",
		Details:   fmt.Sprintf("provider: %s, error: %s", provider, errDetails(err)),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewKnowledgeQueryFailedError(index string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeKnowledgeFailed,
		Message:   "Knowledge index query error",
		Details:   fmt.Sprintf("index: %s, error: %s", index, errDetails(err)),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewLLMNotConfiguredError() *StandardError {
	return &StandardError{
		Code:      ErrCodeLLMNotConfigured,
		Message:   "Completion provider credentials missing",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewLLMTimeoutError() *StandardError {
	return &StandardError{
		Code:      ErrCodeLLMTimeout,
		Message:   "Completion provider timeout",
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewLLMQuotaExhaustedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeLLMQuotaExhausted,
		Message:   "Completion quota exhausted",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewLLMSynthesisFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeLLMSynthesisFailed,
		Message:   "Completion provider error",
		Details:   errDetails(err),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewCacheUnavailableError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCacheUnavailable,
		Message:   "Answer cache unavailable",
		Details:   errDetails(err),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewMemoryUnavailableError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeMemoryUnavailable,
		Message:   "Memory store unavailable",
		Details:   errDetails(err),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewContractViolationError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeContractViolation,
		Message:   "Output contract violation",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewInternalError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   errDetails(err),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func errDetails(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// ==========================
// Classification Helpers
// ==========================

var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeInvalidInput:        "INVALID_INPUT",
	ErrCodeEmptyQuestion:       "EMPTY_QUESTION",
	ErrCodeSearchNotConfigured: "SEARCH_NOT_CONFIGURED",
	ErrCodeSearchTimeout:       "WEB_SEARCH_TIMEOUT",
	ErrCodeSearchFailed:        "SEARCH_FAILED",
	ErrCodeKnowledgeFailed:     "KNOWLEDGE_QUERY_FAILED",
	ErrCodeLLMNotConfigured:    "LLM_NOT_CONFIGURED",
	ErrCodeLLMTimeout:          "LLM_TIMEOUT",
	ErrCodeLLMQuotaExhausted:   "LLM_QUOTA_EXHAUSTED",
	ErrCodeLLMSynthesisFailed:  "LLM_SYNTHESIS_FAILED",
	ErrCodeContractViolation:   "CONTRACT_VIOLATION",
}

func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeSearchFailed,
		ErrCodeKnowledgeFailed,
		ErrCodeLLMSynthesisFailed,
		ErrCodeCacheUnavailable,
		ErrCodeMemoryUnavailable:
		return 3

	case ErrCodeLLMTimeout:
		return 1

	default:
		return 0
	}
}

func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      bpmnCode,
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "SEARCH") || strings.Contains(codeStr, "KNOWLEDGE"):
		return "SEARCH"
	case strings.Contains(codeStr, "LLM"):
		return "AI"
	case strings.Contains(codeStr, "CACHE") || strings.Contains(codeStr, "MEMORY"):
		return "STORAGE"
	case strings.Contains(codeStr, "INVALID") || strings.Contains(codeStr, "EMPTY") || strings.Contains(codeStr, "CONTRACT"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}

// AsStandardError unwraps err into a StandardError, wrapping unknown errors as INTERNAL_ERROR.
func AsStandardError(err error) *StandardError {
	if err == nil {
		return nil
	}
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	return NewInternalError(err)
}

// HasCode reports whether err is a StandardError carrying code.
func HasCode(err error, code ErrorCode) bool {
	var stdErr *StandardError
	return stderrors.As(err, &stdErr) && stdErr.Code == code
}

// ==========================
// Sanitizing
// ==========================

var (
	secretParamPattern = regexp.MustCompile(`(?i)(key|token|cx|secret|password)=[^&\s"']+`)
	urlPattern         = regexp.MustCompile(`https?://[^\s"']+`)
	jsonBlobPattern    = regexp.MustCompile(`(?s)[{\[].*[}\]]`)
	openBlobPattern    = regexp.MustCompile(`(?s)[{\[<][^}\]>]*$`)
	markupPattern      = regexp.MustCompile(`(?s)<[^>]*>`)
	whitespacePattern  = regexp.MustCompile(`\s+`)
)

// Sanitize turns a raw provider error into a short single-line excerpt safe to
// show to callers. Credentials, URLs, markup and JSON payloads are removed,
// including multi-line and truncated ones.
func Sanitize(msg string, max int) string {
	s := secretParamPattern.ReplaceAllString(msg, "$1=***")
	s = urlPattern.ReplaceAllString(s, "")
	s = whitespacePattern.ReplaceAllString(s, " ")
	s = jsonBlobPattern.ReplaceAllString(s, "")
	s = markupPattern.ReplaceAllString(s, "")
	s = openBlobPattern.ReplaceAllString(s, "")
	s = whitespacePattern.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	if max > 0 && utf8.RuneCountInString(s) > max {
		r := []rune(s)
		s = strings.TrimSpace(string(r[:max]))
	}
	return s
}
