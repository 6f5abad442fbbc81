package executor

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/nexusllm/gateway/types"
)

// classify turns an arbitrary error from a Caller into a *types.LLMError
// carrying a stable Kind and a Retryable verdict. Grounded on core.py's
// _should_retry_llm_error: ModelNotFound/BadRequest/ConfigError never
// retry, most transport and server errors always retry, and errors are
// passed through unchanged if already classified by the adapter.
//
// A mid-flight ctx cancellation is checked before anything else, since an
// adapter's own classifier has no way to tell "the transport failed
// because the caller gave up" apart from "the transport failed" and so
// wraps both the same way (typically ErrServer/ErrTransientNetwork,
// retryable). errors.Is walks the whole cause chain a *types.LLMError
// carries via Unwrap, so this still catches a context.Canceled/
// DeadlineExceeded buried under an adapter's wrapping.
func classify(err error) *types.LLMError {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return types.Wrap(types.ErrCanceled, err, "request canceled").WithRetryable(false)
	}

	var le *types.LLMError
	if errors.As(err, &le) {
		if le.Kind == "" {
			le.Kind = types.ErrServer
		}
		return withDefaultRetryable(le)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return types.Wrap(types.ErrTransientNetwork, err, "network error").WithRetryable(true)
	}

	return types.Wrap(types.ErrServer, err, "unclassified error").WithRetryable(true)
}

// withDefaultRetryable fills in Retryable from Kind when the adapter did
// not already set it explicitly (Retryable's zero value is false, so
// adapters that classified but forgot to mark retryable fall back here).
func withDefaultRetryable(le *types.LLMError) *types.LLMError {
	if le.Retryable {
		return le
	}
	switch le.Kind {
	case types.ErrModelNotFound, types.ErrBadRequest, types.ErrConfig,
		types.ErrUnsupportedFeature, types.ErrUnknownAdapter, types.ErrCanceled:
		return le.WithRetryable(false)
	case types.ErrAuth, types.ErrRateLimited, types.ErrTransientNetwork,
		types.ErrServer, types.ErrContentFiltered, types.ErrParse:
		return le.WithRetryable(true)
	default:
		return le.WithRetryable(false)
	}
}

// retryCap returns the maximum number of retries (attempts after the
// first) a classified error kind earns, overriding the policy's
// MaxRetries when it is lower. Grounded on core.py's
// _should_retry_llm_error, which caps a content-filtered response to one
// retry rather than letting it exhaust the generic retry budget — a
// filtered response rarely clears on a plain retry, so burning the full
// budget on it only delays the inevitable failure. Every other kind
// defers entirely to the policy.
func retryCap(kind types.ErrorKind, policyMax int) int {
	if kind == types.ErrContentFiltered && policyMax > 1 {
		return 1
	}
	return policyMax
}

// classifyHTTPStatus maps a provider's HTTP status code to an ErrorKind.
// Nothing in this package calls it; adapters map status codes themselves.
func classifyHTTPStatus(status int) types.ErrorKind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return types.ErrAuth
	case status == http.StatusTooManyRequests:
		return types.ErrRateLimited
	case status == http.StatusNotFound:
		return types.ErrModelNotFound
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return types.ErrBadRequest
	case status >= 500:
		return types.ErrServer
	case status >= 400:
		return types.ErrBadRequest
	default:
		return types.ErrServer
	}
}
