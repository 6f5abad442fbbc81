// Package gemini adapts the canonical types.Request/Response shapes to
// Google's Gemini generateContent API using the official
// google.golang.org/genai SDK client, built over the pooled http.Client
// with its base URL overridden so an arbitrary api_base is reachable.
// System messages fold into SystemInstruction, the assistant
// role maps to "model", and JSON-Schema tool parameters are walked
// recursively into genai.Schema.
package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"google.golang.org/genai"

	"github.com/nexusllm/gateway/adapter"
	"github.com/nexusllm/gateway/types"
)

func init() {
	adapter.Register("gemini", func(opts adapter.Options) (adapter.Adapter, error) {
		return New(opts), nil
	})
}

// Adapter implements adapter.Adapter against the Gemini API.
type Adapter struct {
	clientFor func(timeout time.Duration, proxy string) (*http.Client, error)
}

// New builds an Adapter using opts.HTTPClientFor to obtain pooled clients.
func New(opts adapter.Options) *Adapter {
	return &Adapter{clientFor: opts.HTTPClientFor}
}

// APIType returns "gemini".
func (a *Adapter) APIType() string { return "gemini" }

// Supports reports tools, multimodal input, grounding (GoogleSearch),
// code execution, json_mode (response_mime_type), and embeddings — the
// full feature set Gemini's generateContent/embedContent APIs expose.
func (a *Adapter) Supports(feature string) bool {
	switch feature {
	case adapter.FeatureTools, adapter.FeatureMultimodal, adapter.FeatureGrounding,
		adapter.FeatureCodeExecution, adapter.FeatureJSONMode, adapter.FeatureEmbeddings:
		return true
	default:
		return false
	}
}

// newClient builds a genai client pooled through clientFor, reaching
// ep.APIBase instead of genai's hardcoded default endpoint.
func (a *Adapter) newClient(ctx context.Context, ep adapter.Endpoint, secret string) (*genai.Client, error) {
	timeout := time.Duration(ep.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 180 * time.Second
	}

	httpClient, err := a.clientFor(timeout, ep.Proxy)
	if err != nil {
		return nil, types.Wrap(types.ErrConfig, err, "building http client")
	}

	clientCfg := &genai.ClientConfig{
		APIKey:     secret,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	}
	if ep.APIBase != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: ep.APIBase}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, types.Wrap(types.ErrConfig, err, "initializing gemini client")
	}
	return client, nil
}

// Generate performs one Gemini generateContent call.
func (a *Adapter) Generate(ctx context.Context, ep adapter.Endpoint, secret string, req types.Request) (types.Response, error) {
	if err := req.Config.Validate(); err != nil {
		return types.Response{}, err
	}

	client, err := a.newClient(ctx, ep, secret)
	if err != nil {
		return types.Response{}, err
	}

	contents, systemInstruction := toContents(req.Messages)
	genConfig := toGenerateContentConfig(req, systemInstruction)

	resp, err := client.Models.GenerateContent(ctx, req.Model, contents, genConfig)
	if err != nil {
		return types.Response{}, classifyGeminiError(err)
	}

	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return types.Response{}, types.New(types.ErrContentFiltered, "blocked: %s", resp.PromptFeedback.BlockReason).WithRetryable(false)
	}

	return fromResponse(resp), nil
}

// Embed performs one Gemini embedContent call, embedding every input
// string against req.Model in a single batched request.
func (a *Adapter) Embed(ctx context.Context, ep adapter.Endpoint, secret string, req types.EmbedRequest) (types.EmbedResponse, error) {
	client, err := a.newClient(ctx, ep, secret)
	if err != nil {
		return types.EmbedResponse{}, err
	}

	contents := make([]*genai.Content, len(req.Input))
	for i, text := range req.Input {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}

	var cfg *genai.EmbedContentConfig
	if req.TaskType != "" {
		cfg = &genai.EmbedContentConfig{TaskType: req.TaskType}
	}

	resp, err := client.Models.EmbedContent(ctx, req.Model, contents, cfg)
	if err != nil {
		return types.EmbedResponse{}, classifyGeminiError(err)
	}

	vectors := make([][]float64, len(resp.Embeddings))
	for i, e := range resp.Embeddings {
		vec := make([]float64, len(e.Values))
		for j, v := range e.Values {
			vec[j] = float64(v)
		}
		vectors[i] = vec
	}

	return types.EmbedResponse{Embeddings: vectors, Model: req.Model, Provider: "gemini"}, nil
}

func toGenerateContentConfig(req types.Request, systemInstruction string) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{}

	if req.Config.Temperature != nil {
		t := float32(*req.Config.Temperature)
		cfg.Temperature = &t
	}
	if req.Config.MaxTokens != nil {
		cfg.MaxOutputTokens = int32(*req.Config.MaxTokens)
	}
	if req.Config.TopP != nil {
		p := float32(*req.Config.TopP)
		cfg.TopP = &p
	}
	if req.Config.TopK != nil {
		k := float32(*req.Config.TopK)
		cfg.TopK = &k
	}
	if req.Config.ResponseMimeType != "" {
		cfg.ResponseMIMEType = req.Config.ResponseMimeType
	}

	if systemInstruction != "" {
		cfg.SystemInstruction = genai.NewContentFromText(systemInstruction, genai.RoleUser)
	}

	if tools := toTools(req.Tools, req.Config); len(tools) > 0 {
		cfg.Tools = tools
	}

	if len(req.Config.SafetySettings) > 0 {
		for category, threshold := range req.Config.SafetySettings {
			cfg.SafetySettings = append(cfg.SafetySettings, &genai.SafetySetting{
				Category:  genai.HarmCategory(category),
				Threshold: toGeminiThreshold(threshold),
			})
		}
	}

	return cfg
}

func toGeminiThreshold(t types.SafetyThreshold) genai.HarmBlockThreshold {
	switch t {
	case types.SafetyBlockNone:
		return genai.HarmBlockThresholdBlockNone
	case types.SafetyBlockLow:
		return genai.HarmBlockThresholdBlockLowAndAbove
	case types.SafetyBlockMedium:
		return genai.HarmBlockThresholdBlockMediumAndAbove
	case types.SafetyBlockHigh:
		return genai.HarmBlockThresholdBlockOnlyHigh
	default:
		return genai.HarmBlockThresholdBlockMediumAndAbove
	}
}

// toContents converts the canonical message list to Gemini's contents
// array, folding any system-role message into a separate system
// instruction string (Gemini has no system role).
func toContents(messages []types.Message) ([]*genai.Content, string) {
	var contents []*genai.Content
	var systemInstruction string

	for _, msg := range messages {
		switch msg.Role {
		case types.RoleSystem:
			systemInstruction = msg.Text()
		case types.RoleUser:
			contents = append(contents, &genai.Content{Role: genai.RoleUser, Parts: toUserParts(msg.Content)})
		case types.RoleAssistant:
			if calls := msg.ToolCalls(); len(calls) > 0 {
				content := &genai.Content{Role: genai.RoleModel}
				if text := msg.Text(); text != "" {
					content.Parts = append(content.Parts, &genai.Part{Text: text})
				}
				for _, tc := range calls {
					var args map[string]any
					_ = json.Unmarshal(tc.ToolCallArguments, &args)
					content.Parts = append(content.Parts, &genai.Part{
						FunctionCall: &genai.FunctionCall{Name: tc.ToolCallName, Args: args},
					})
				}
				contents = append(contents, content)
			} else {
				contents = append(contents, genai.NewContentFromText(msg.Text(), genai.RoleModel))
			}
		case types.RoleTool:
			var result map[string]any
			text := msg.Text()
			if err := json.Unmarshal([]byte(text), &result); err != nil {
				result = map[string]any{"result": text}
			}
			contents = append(contents, &genai.Content{
				Role: genai.RoleUser,
				Parts: []*genai.Part{{
					FunctionResponse: &genai.FunctionResponse{Name: msg.ToolCallID, Response: result},
				}},
			})
		}
	}

	return contents, systemInstruction
}

// toUserParts converts one user message's content parts into Gemini
// Parts, representing images/video/audio/file parts as InlineData (a raw
// byte payload carries straight through) or FileData (a URI stays a
// reference, Gemini fetches it rather than receiving bytes inline).
func toUserParts(content []types.ContentPart) []*genai.Part {
	var parts []*genai.Part
	for _, p := range content {
		switch p.Kind {
		case types.PartText:
			parts = append(parts, &genai.Part{Text: p.Text})
		case types.PartImage, types.PartVideo, types.PartAudio, types.PartFile:
			if part := toMediaPart(p.Media); part != nil {
				parts = append(parts, part)
			}
		}
	}
	if len(parts) == 0 {
		parts = append(parts, &genai.Part{Text: ""})
	}
	return parts
}

func toMediaPart(media *types.MediaSource) *genai.Part {
	if media == nil {
		return nil
	}
	if media.IsURI() {
		return &genai.Part{FileData: &genai.FileData{FileURI: media.URI, MIMEType: media.MimeType}}
	}
	if media.IsInline() {
		return &genai.Part{InlineData: &genai.Blob{MIMEType: media.MimeType, Data: media.Data}}
	}
	return nil
}

func toTools(tools []types.ToolDefinition, cfg types.GenerationConfig) []*genai.Tool {
	var out []*genai.Tool

	if len(tools) > 0 {
		var declarations []*genai.FunctionDeclaration
		for _, t := range tools {
			var params map[string]any
			_ = json.Unmarshal(t.Parameters, &params)
			declarations = append(declarations, &genai.FunctionDeclaration{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  toSchema(params),
			})
		}
		out = append(out, &genai.Tool{FunctionDeclarations: declarations})
	}

	if cfg.EnableCodeExecution {
		out = append(out, &genai.Tool{CodeExecution: &genai.ToolCodeExecution{}})
	}
	if cfg.EnableGrounding {
		out = append(out, &genai.Tool{GoogleSearch: &genai.GoogleSearch{}})
	}

	return out
}

// toSchema recursively converts a JSON-Schema-shaped map into a
// genai.Schema, handling the array "items" requirement Gemini enforces.
func toSchema(params map[string]any) *genai.Schema {
	schema := &genai.Schema{Type: genai.TypeObject}

	if t, ok := params["type"].(string); ok {
		schema.Type = mapType(t)
	}
	if req, ok := params["required"].([]any); ok {
		for _, r := range req {
			if s, ok := r.(string); ok {
				schema.Required = append(schema.Required, s)
			}
		}
	}
	if props, ok := params["properties"].(map[string]any); ok {
		schema.Properties = make(map[string]*genai.Schema, len(props))
		for name, prop := range props {
			if propMap, ok := prop.(map[string]any); ok {
				schema.Properties[name] = toPropertySchema(propMap)
			}
		}
	}
	return schema
}

func toPropertySchema(prop map[string]any) *genai.Schema {
	schema := &genai.Schema{}
	if t, ok := prop["type"].(string); ok {
		schema.Type = mapType(t)
	}
	if d, ok := prop["description"].(string); ok {
		schema.Description = d
	}
	if schema.Type == genai.TypeArray {
		if items, ok := prop["items"].(map[string]any); ok {
			schema.Items = toPropertySchema(items)
		} else {
			schema.Items = &genai.Schema{Type: genai.TypeString}
		}
	}
	if schema.Type == genai.TypeObject {
		if props, ok := prop["properties"].(map[string]any); ok {
			schema.Properties = make(map[string]*genai.Schema, len(props))
			for name, p := range props {
				if pMap, ok := p.(map[string]any); ok {
					schema.Properties[name] = toPropertySchema(pMap)
				}
			}
		}
	}
	return schema
}

func mapType(t string) genai.Type {
	switch t {
	case "string":
		return genai.TypeString
	case "integer", "number":
		return genai.TypeNumber
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	case "object":
		return genai.TypeObject
	default:
		return genai.TypeString
	}
}

func fromResponse(resp *genai.GenerateContentResponse) types.Response {
	var content []types.ContentPart
	var codeResults []types.CodeExecutionResult
	finish := types.FinishStop

	if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			switch {
			case part.Text != "":
				content = append(content, types.TextPart(part.Text))
			case part.FunctionCall != nil:
				argsJSON, _ := json.Marshal(part.FunctionCall.Args)
				content = append(content, types.ToolCallPart(part.FunctionCall.Name, part.FunctionCall.Name, argsJSON))
			case part.ExecutableCode != nil:
				codeResults = append(codeResults, types.CodeExecutionResult{
					Language: string(part.ExecutableCode.Language),
					Code:     part.ExecutableCode.Code,
				})
			case part.CodeExecutionResult != nil:
				result := part.CodeExecutionResult
				if len(codeResults) > 0 {
					last := &codeResults[len(codeResults)-1]
					last.Outcome = string(result.Outcome)
					last.Output = result.Output
				} else {
					codeResults = append(codeResults, types.CodeExecutionResult{
						Outcome: string(result.Outcome),
						Output:  result.Output,
					})
				}
			}
		}
		switch resp.Candidates[0].FinishReason {
		case genai.FinishReasonMaxTokens:
			finish = types.FinishLength
		case genai.FinishReasonSafety:
			finish = types.FinishContentFilter
		}
		if len(content) > 0 {
			for _, p := range content {
				if p.Kind == types.PartToolCall {
					finish = types.FinishToolCalls
					break
				}
			}
		}
	}

	out := types.Response{Content: content, FinishReason: finish, Provider: "gemini", CodeExecutionResults: codeResults}
	if resp.UsageMetadata != nil {
		out.Usage = &types.TokenUsage{
			PromptTokens:     uint32(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: uint32(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      uint32(resp.UsageMetadata.TotalTokenCount),
		}
	}
	if len(resp.Candidates) > 0 && resp.Candidates[0].GroundingMetadata != nil {
		out.GroundingMetadata = toGroundingMetadata(resp.Candidates[0].GroundingMetadata)
	}
	if raw, err := json.Marshal(resp); err == nil {
		out.Raw = raw
	}
	return out
}

// toGroundingMetadata flattens genai's GroundingMetadata into the
// canonical shape: the search queries issued and the web sources
// attributed, dropping the SDK-specific chunk/segment indices callers
// outside this adapter have no use for.
func toGroundingMetadata(gm *genai.GroundingMetadata) *types.GroundingMetadata {
	out := &types.GroundingMetadata{WebSearchQueries: gm.WebSearchQueries}
	for _, chunk := range gm.GroundingChunks {
		if chunk == nil || chunk.Web == nil {
			continue
		}
		out.Sources = append(out.Sources, types.GroundingSource{
			Title: chunk.Web.Title,
			URI:   chunk.Web.URI,
		})
	}
	return out
}
