// Package anthropic adapts the canonical types.Request/Response shapes
// to Anthropic's Messages API, registered under api_type "anthropic".
// System messages extract into params.System, tool_use/tool_result
// content blocks translate both directions, and anthropic-sdk-go's
// AsAny() discriminates response content blocks.
package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/nexusllm/gateway/adapter"
	"github.com/nexusllm/gateway/types"
)

func init() {
	adapter.Register("anthropic", func(opts adapter.Options) (adapter.Adapter, error) {
		return New(opts), nil
	})
}

// Adapter implements adapter.Adapter against Anthropic's Messages API.
type Adapter struct {
	clientFor func(timeout time.Duration, proxy string) (*http.Client, error)
}

// New builds an Adapter using opts.HTTPClientFor to obtain pooled clients.
func New(opts adapter.Options) *Adapter {
	return &Adapter{clientFor: opts.HTTPClientFor}
}

// APIType returns "anthropic".
func (a *Adapter) APIType() string { return "anthropic" }

// Supports reports tools and multimodal input (the Messages API's image
// content blocks); Anthropic has no embeddings endpoint, no built-in
// grounding/code-execution tool, and no dedicated json_mode switch.
func (a *Adapter) Supports(feature string) bool {
	switch feature {
	case adapter.FeatureTools, adapter.FeatureMultimodal:
		return true
	default:
		return false
	}
}

const defaultMaxTokens = 4096

// Generate performs one Anthropic Messages API call.
func (a *Adapter) Generate(ctx context.Context, ep adapter.Endpoint, secret string, req types.Request) (types.Response, error) {
	if err := req.Config.Validate(); err != nil {
		return types.Response{}, err
	}

	timeout := time.Duration(ep.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 180 * time.Second
	}

	httpClient, err := a.clientFor(timeout, ep.Proxy)
	if err != nil {
		return types.Response{}, types.Wrap(types.ErrConfig, err, "building http client")
	}

	clientOpts := []option.RequestOption{
		option.WithAPIKey(secret),
		option.WithHTTPClient(httpClient),
	}
	if ep.APIBase != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(ep.APIBase))
	}
	client := anthropic.NewClient(clientOpts...)

	messages, system := toMessages(req.Messages)

	maxTokens := int64(defaultMaxTokens)
	if req.Config.MaxTokens != nil {
		maxTokens = int64(*req.Config.MaxTokens)
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: maxTokens,
		Messages:  messages,
		Tools:     toTools(req.Tools),
	}
	if req.Config.Temperature != nil {
		params.Temperature = anthropic.Float(*req.Config.Temperature)
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	msg, err := client.Messages.New(ctx, params)
	if err != nil {
		return types.Response{}, classifyAnthropicError(err)
	}

	return fromMessage(msg), nil
}

func toMessages(messages []types.Message) ([]anthropic.MessageParam, string) {
	var out []anthropic.MessageParam
	var system string

	for _, msg := range messages {
		switch msg.Role {
		case types.RoleSystem:
			system = msg.Text()
		case types.RoleUser:
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Text())))
		case types.RoleAssistant:
			if calls := msg.ToolCalls(); len(calls) > 0 {
				param := anthropic.MessageParam{Role: anthropic.MessageParamRoleAssistant}
				if text := msg.Text(); text != "" {
					param.Content = append(param.Content, anthropic.NewTextBlock(text))
				}
				for _, tc := range calls {
					var input map[string]any
					_ = json.Unmarshal(tc.ToolCallArguments, &input)
					param.Content = append(param.Content, anthropic.ContentBlockParamUnion{
						OfToolUse: &anthropic.ToolUseBlockParam{ID: tc.ToolCallID, Name: tc.ToolCallName, Input: input},
					})
				}
				out = append(out, param)
			} else {
				out = append(out, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Text())))
			}
		case types.RoleTool:
			out = append(out, anthropic.NewUserMessage(
				anthropic.NewToolResultBlock(msg.ToolCallID, msg.Text(), false),
			))
		}
	}

	return out, system
}

func toTools(tools []types.ToolDefinition) []anthropic.ToolUnionParam {
	if len(tools) == 0 {
		return nil
	}
	out := make([]anthropic.ToolUnionParam, len(tools))
	for i, t := range tools {
		var schema map[string]any
		_ = json.Unmarshal(t.Parameters, &schema)
		properties, _ := schema["properties"].(map[string]any)

		toolParam := anthropic.ToolParam{
			Name:        t.Name,
			Description: anthropic.String(t.Description),
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: properties,
				Required:   t.Required,
			},
		}
		out[i] = anthropic.ToolUnionParam{OfTool: &toolParam}
	}
	return out
}

func fromMessage(msg *anthropic.Message) types.Response {
	var content []types.ContentPart
	finish := types.FinishStop

	for _, block := range msg.Content {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			content = append(content, types.TextPart(variant.Text))
		case anthropic.ToolUseBlock:
			inputJSON, _ := json.Marshal(variant.Input)
			content = append(content, types.ToolCallPart(variant.ID, variant.Name, inputJSON))
			finish = types.FinishToolCalls
		}
	}

	switch msg.StopReason {
	case anthropic.StopReasonMaxTokens:
		finish = types.FinishLength
	case anthropic.StopReasonToolUse:
		finish = types.FinishToolCalls
	}

	out := types.Response{Content: content, FinishReason: finish, Model: string(msg.Model), Provider: "anthropic"}
	if msg.Usage.InputTokens > 0 || msg.Usage.OutputTokens > 0 {
		out.Usage = &types.TokenUsage{
			PromptTokens:     uint32(msg.Usage.InputTokens),
			CompletionTokens: uint32(msg.Usage.OutputTokens),
			TotalTokens:      uint32(msg.Usage.InputTokens + msg.Usage.OutputTokens),
		}
	}
	return out
}

func classifyAnthropicError(err error) error {
	var apiErr *anthropic.Error
	if !errors.As(err, &apiErr) {
		return types.Wrap(types.ErrServer, err, "anthropic request failed").WithRetryable(true)
	}

	switch {
	case apiErr.StatusCode == 401 || apiErr.StatusCode == 403:
		return types.Wrap(types.ErrAuth, err, "authentication rejected").WithRetryable(true)
	case apiErr.StatusCode == 429:
		return types.Wrap(types.ErrRateLimited, err, "rate limited").WithRetryable(true)
	case apiErr.StatusCode == 404:
		return types.Wrap(types.ErrModelNotFound, err, "model not found").WithRetryable(false)
	case apiErr.StatusCode == 400 || apiErr.StatusCode == 422:
		return types.Wrap(types.ErrBadRequest, err, "bad request").WithRetryable(false)
	case apiErr.StatusCode >= 500:
		return types.Wrap(types.ErrServer, err, "server error").WithRetryable(true)
	default:
		return types.Wrap(types.ErrServer, err, "request failed").WithRetryable(true)
	}
}
