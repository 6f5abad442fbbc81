// Package types defines the canonical request/response/content/tool-call
// shapes shared by every adapter, the credential store, the executor, and
// the tool orchestrator.
package types

import (
	"errors"
	"fmt"
)

// ErrorKind is the stable error taxonomy every component raises against.
type ErrorKind string

const (
	ErrConfig              ErrorKind = "ConfigError"
	ErrNoCredentials       ErrorKind = "NoCredentialsAvailable"
	ErrAuth                ErrorKind = "AuthError"
	ErrRateLimited         ErrorKind = "RateLimited"
	ErrTransientNetwork    ErrorKind = "TransientNetwork"
	ErrServer              ErrorKind = "ServerError"
	ErrBadRequest          ErrorKind = "BadRequest"
	ErrContentFiltered     ErrorKind = "ContentFiltered"
	ErrUnsupportedFeature  ErrorKind = "UnsupportedFeature"
	ErrToolExecutionFailed ErrorKind = "ToolExecutionFailed"
	ErrToolLoopExhausted   ErrorKind = "ToolLoopExhausted"
	ErrParse               ErrorKind = "ParseError"
	ErrModelNotFound       ErrorKind = "ModelNotFound"
	ErrCanceled            ErrorKind = "Canceled"
	ErrUnknownAdapter      ErrorKind = "UnknownAdapter"
)

// LLMError is the user-visible error surface every public operation raises.
// It always carries enough context to decide whether a caller can retry.
type LLMError struct {
	Kind         ErrorKind
	Provider     string
	Model        string
	AttemptCount int
	Message      string
	Retryable    bool
	Cause        error
}

func (e *LLMError) Error() string {
	if e.Provider != "" {
		return fmt.Sprintf("%s (%s/%s): %s", e.Kind, e.Provider, e.Model, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *LLMError) Unwrap() error {
	return e.Cause
}

// New builds an LLMError for the given kind with a formatted message.
func New(kind ErrorKind, format string, args ...any) *LLMError {
	return &LLMError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an LLMError that carries an underlying cause.
func Wrap(kind ErrorKind, cause error, format string, args ...any) *LLMError {
	return &LLMError{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// WithProvider annotates the error with provider/model context.
func (e *LLMError) WithProvider(provider, model string) *LLMError {
	e.Provider = provider
	e.Model = model
	return e
}

// WithRetryable marks whether the error is retryable by the executor.
func (e *LLMError) WithRetryable(retryable bool) *LLMError {
	e.Retryable = retryable
	return e
}

// WithAttempts records the number of HTTP attempts made before this error
// was raised. RequestFailed sets AttemptCount from len(attempts) itself.
func (e *LLMError) WithAttempts(n int) *LLMError {
	e.AttemptCount = n
	return e
}

// Attempt is one entry in a RequestFailed's attempt history.
type Attempt struct {
	CredentialID string
	Kind         ErrorKind
	Err          error
	LatencyMs    int64
}

// RequestFailed wraps the most recent classified error together with the
// full attempt history once the executor exhausts its retry budget.
type RequestFailed struct {
	Last     *LLMError
	Attempts []Attempt
}

func (e *RequestFailed) Error() string {
	return fmt.Sprintf("request failed after %d attempt(s): %v", len(e.Attempts), e.Last)
}

func (e *RequestFailed) Unwrap() error {
	return e.Last
}

// AsLLMError extracts an *LLMError from err, following both RequestFailed
// and wrapped-error chains.
func AsLLMError(err error) (*LLMError, bool) {
	var le *LLMError
	if errors.As(err, &le) {
		return le, true
	}
	return nil, false
}
