package zhipu

import (
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/nexusllm/gateway/types"
)

// classifyZhipuError inspects GLM's idiosyncratic numeric error code
// ("1113", "1301", ...), which go-openai unmarshals into APIError.Code
// since GLM's {"error": {"code", "message"}} envelope has the same shape
// OpenAI's does, falling back to HTTP-status classification otherwise.
func classifyZhipuError(err error) error {
	var apiErr *openai.APIError
	if !errors.As(err, &apiErr) {
		return types.Wrap(types.ErrServer, err, "zhipu request failed").WithRetryable(true)
	}

	code := fmt.Sprintf("%v", apiErr.Code)
	switch code {
	case "1113", "1114": // invalid / expired token
		return types.Wrap(types.ErrAuth, err, "%s", apiErr.Message).WithRetryable(true)
	case "1302", "1303": // rate limit / concurrency limit
		return types.Wrap(types.ErrRateLimited, err, "%s", apiErr.Message).WithRetryable(true)
	case "1301": // content filtered
		return types.Wrap(types.ErrContentFiltered, err, "%s", apiErr.Message).WithRetryable(true)
	}

	switch {
	case apiErr.HTTPStatusCode == 401 || apiErr.HTTPStatusCode == 403:
		return types.Wrap(types.ErrAuth, err, "authentication rejected").WithRetryable(true)
	case apiErr.HTTPStatusCode == 429:
		return types.Wrap(types.ErrRateLimited, err, "rate limited").WithRetryable(true)
	case apiErr.HTTPStatusCode == 404:
		return types.Wrap(types.ErrModelNotFound, err, "model not found").WithRetryable(false)
	case apiErr.HTTPStatusCode == 400 || apiErr.HTTPStatusCode == 422:
		return types.Wrap(types.ErrBadRequest, err, "bad request").WithRetryable(false)
	case apiErr.HTTPStatusCode >= 500:
		return types.Wrap(types.ErrServer, err, "server error").WithRetryable(true)
	default:
		return types.Wrap(types.ErrServer, err, "request failed").WithRetryable(true)
	}
}
