// Package oaiwire translates between the canonical types.Request/Response
// shapes and the OpenAI Chat Completions wire format. It is shared by
// every adapter that speaks that protocol (package openaicompat for
// OpenAI/DeepSeek/generic endpoints, package zhipu for GLM's dialect of
// it), so the translation rules live in exactly one place.
package oaiwire

import (
	"encoding/base64"
	"encoding/json"

	openai "github.com/sashabaranov/go-openai"

	"github.com/nexusllm/gateway/adapter"
	"github.com/nexusllm/gateway/types"
)

// ToRequest converts a canonical Request into an openai.ChatCompletionRequest.
// A message carrying a media part (image, video, audio, file) the target
// model's inferred Capabilities don't support returns UnsupportedFeature
// rather than silently dropping the part.
func ToRequest(req types.Request) (openai.ChatCompletionRequest, error) {
	messages, err := toMessages(req.Messages, types.GetCapabilities(req.Model))
	if err != nil {
		return openai.ChatCompletionRequest{}, err
	}

	wireReq := openai.ChatCompletionRequest{
		Model:    req.Model,
		Messages: messages,
		Tools:    toTools(req.Tools),
	}

	if req.Config.Temperature != nil {
		wireReq.Temperature = float32(*req.Config.Temperature)
	}
	if req.Config.MaxTokens != nil {
		wireReq.MaxTokens = *req.Config.MaxTokens
	}
	if req.Config.TopP != nil {
		wireReq.TopP = float32(*req.Config.TopP)
	}
	if req.Config.FrequencyPenalty != nil {
		wireReq.FrequencyPenalty = float32(*req.Config.FrequencyPenalty)
	}
	if req.Config.PresencePenalty != nil {
		wireReq.PresencePenalty = float32(*req.Config.PresencePenalty)
	}
	wireReq.Stop = req.Config.Stop

	if rf := req.Config.ResponseFormat; rf != nil {
		wireReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatType(rf.Type),
		}
		if rf.Type == types.ResponseFormatJSONSchema {
			wireReq.ResponseFormat.JSONSchema = &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   rf.Name,
				Schema: json.RawMessage(rf.Schema),
				Strict: true,
			}
		}
	}

	if tc := req.ToolChoice; tc != nil {
		switch tc.Mode {
		case types.ToolChoiceAuto:
			wireReq.ToolChoice = "auto"
		case types.ToolChoiceNone:
			wireReq.ToolChoice = "none"
		case types.ToolChoiceRequired:
			wireReq.ToolChoice = "required"
		case types.ToolChoiceSpecific:
			wireReq.ToolChoice = openai.ToolChoice{
				Type:     openai.ToolTypeFunction,
				Function: openai.ToolFunction{Name: tc.Name},
			}
		}
	}

	return wireReq, nil
}

func toMessages(messages []types.Message, caps types.Capabilities) ([]openai.ChatCompletionMessage, error) {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		wm := openai.ChatCompletionMessage{Role: string(m.Role)}

		if hasMedia(m) {
			parts, err := toMultiContent(m, caps)
			if err != nil {
				return nil, err
			}
			wm.MultiContent = parts
		} else {
			wm.Content = m.Text()
		}

		if m.ToolCallID != "" {
			wm.ToolCallID = m.ToolCallID
		}
		for _, tc := range m.ToolCalls() {
			wm.ToolCalls = append(wm.ToolCalls, openai.ToolCall{
				ID:   tc.ToolCallID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.ToolCallName,
					Arguments: string(tc.ToolCallArguments),
				},
			})
		}
		out = append(out, wm)
	}
	return out, nil
}

func hasMedia(m types.Message) bool {
	for _, p := range m.Content {
		switch p.Kind {
		case types.PartImage, types.PartVideo, types.PartAudio, types.PartFile:
			return true
		}
	}
	return false
}

// toMultiContent builds the content: [{type: "image_url", ...}, ...] shape
// Chat Completions expects for a message carrying media, interleaved with
// any text parts in order. Only image parts have a representation in this
// wire format; video/audio/file parts raise UnsupportedFeature unless the
// model's capabilities claim that modality, in which case there is still
// nothing to marshal them into here and the call fails fast rather than
// silently dropping the part.
func toMultiContent(m types.Message, caps types.Capabilities) ([]openai.ChatMessagePart, error) {
	var parts []openai.ChatMessagePart
	for _, p := range m.Content {
		switch p.Kind {
		case types.PartText:
			parts = append(parts, openai.ChatMessagePart{Type: openai.ChatMessagePartTypeText, Text: p.Text})
		case types.PartImage:
			if !caps.AcceptsModality(types.ModalityImage) {
				return nil, adapter.Unsupported("openai-compatible", "image content parts for this model")
			}
			parts = append(parts, openai.ChatMessagePart{
				Type:     openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{URL: mediaURL(p.Media)},
			})
		case types.PartVideo:
			return nil, adapter.Unsupported("openai-compatible", "video content parts")
		case types.PartAudio:
			return nil, adapter.Unsupported("openai-compatible", "audio content parts")
		case types.PartFile:
			return nil, adapter.Unsupported("openai-compatible", "file content parts")
		}
	}
	return parts, nil
}

// mediaURL renders a MediaSource as the single URL string Chat
// Completions' image_url expects: the URI as-is, or a base64 data URI for
// inline bytes.
func mediaURL(media *types.MediaSource) string {
	if media == nil {
		return ""
	}
	if media.IsURI() {
		return media.URI
	}
	mime := media.MimeType
	if mime == "" {
		mime = "application/octet-stream"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(media.Data)
}

func toTools(tools []types.ToolDefinition) []openai.Tool {
	if len(tools) == 0 {
		return nil
	}
	out := make([]openai.Tool, len(tools))
	for i, t := range tools {
		var params map[string]any
		_ = json.Unmarshal(t.Parameters, &params)
		out[i] = openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  params,
			},
		}
	}
	return out
}

// FromResponse converts an openai.ChatCompletionResponse into a canonical
// Response, tagging it with providerName for caller-side diagnostics.
func FromResponse(resp openai.ChatCompletionResponse, providerName string) types.Response {
	var content []types.ContentPart
	finish := types.FinishStop

	if len(resp.Choices) > 0 {
		choice := resp.Choices[0]
		if choice.Message.Content != "" {
			content = append(content, types.TextPart(choice.Message.Content))
		}
		for _, tc := range choice.Message.ToolCalls {
			content = append(content, types.ToolCallPart(tc.ID, tc.Function.Name, json.RawMessage(tc.Function.Arguments)))
		}
		switch choice.FinishReason {
		case openai.FinishReasonLength:
			finish = types.FinishLength
		case openai.FinishReasonToolCalls, openai.FinishReasonFunctionCall:
			finish = types.FinishToolCalls
		case openai.FinishReasonContentFilter:
			finish = types.FinishContentFilter
		}
	}

	return types.Response{
		Content:      content,
		FinishReason: finish,
		Model:        resp.Model,
		Provider:     providerName,
		Usage: &types.TokenUsage{
			PromptTokens:     uint32(resp.Usage.PromptTokens),
			CompletionTokens: uint32(resp.Usage.CompletionTokens),
			TotalTokens:      uint32(resp.Usage.TotalTokens),
		},
	}
}

// ClassifyError maps a go-openai error's HTTP status to the canonical
// ErrorKind taxonomy, grounded on the status-code thresholds core.py's
// _should_retry_llm_error applies to LLMErrorCode.
func ClassifyError(err error, apiErr *openai.APIError) error {
	if apiErr == nil {
		return types.Wrap(types.ErrServer, err, "request failed").WithRetryable(true)
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
