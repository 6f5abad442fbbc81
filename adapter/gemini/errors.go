package gemini

import (
	"errors"

	"google.golang.org/genai"

	"github.com/nexusllm/gateway/types"
)

// classifyGeminiError maps a genai.APIError's HTTP status to the
// canonical ErrorKind taxonomy.
func classifyGeminiError(err error) error {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return types.Wrap(types.ErrServer, err, "gemini request failed").WithRetryable(true)
	}

	switch {
	case apiErr.Code == 401 || apiErr.Code == 403:
		return types.Wrap(types.ErrAuth, err, "authentication rejected").WithRetryable(true)
	case apiErr.Code == 429:
		return types.Wrap(types.ErrRateLimited, err, "rate limited").WithRetryable(true)
	case apiErr.Code == 404:
		return types.Wrap(types.ErrModelNotFound, err, "model not found").WithRetryable(false)
	case apiErr.Code == 400:
		return types.Wrap(types.ErrBadRequest, err, "bad request").WithRetryable(false)
	case apiErr.Code >= 500:
		return types.Wrap(types.ErrServer, err, "server error").WithRetryable(true)
	default:
		return types.Wrap(types.ErrServer, err, "request failed").WithRetryable(true)
	}
}
