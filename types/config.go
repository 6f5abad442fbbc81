package types

import "encoding/json"

// ResponseFormatType discriminates GenerationConfig.ResponseFormat.
type ResponseFormatType string

const (
	ResponseFormatText       ResponseFormatType = "text"
	ResponseFormatJSONObject ResponseFormatType = "json_object"
	ResponseFormatJSONSchema ResponseFormatType = "json_schema"
)

// ResponseFormat discriminates between free-text, a loose JSON object, or
// output constrained to a named JSON Schema.
type ResponseFormat struct {
	Type   ResponseFormatType `json:"type"`
	Name   string             `json:"name,omitempty"`
	Schema json.RawMessage    `json:"schema,omitempty"`
}

// SafetyThreshold is a provider-agnostic harm-category threshold, used by
// Gemini's safety_settings.
type SafetyThreshold string

const (
	SafetyBlockNone   SafetyThreshold = "block_none"
	SafetyBlockLow    SafetyThreshold = "block_low_and_above"
	SafetyBlockMedium SafetyThreshold = "block_medium_and_above"
	SafetyBlockHigh   SafetyThreshold = "block_only_high"
)

// GenerationConfig enumerates every recognized generation option.
// Adapters translate only the subset they support and ignore the rest;
// zero values mean "unset", not "zero".
type GenerationConfig struct {
	Temperature         *float64 `json:"temperature,omitempty"`
	MaxTokens           *int     `json:"max_tokens,omitempty"`
	TopP                *float64 `json:"top_p,omitempty"`
	TopK                *int     `json:"top_k,omitempty"`
	FrequencyPenalty    *float64 `json:"frequency_penalty,omitempty"`
	PresencePenalty     *float64 `json:"presence_penalty,omitempty"`
	RepetitionPenalty   *float64 `json:"repetition_penalty,omitempty"`
	Stop                []string `json:"stop,omitempty"`
	ResponseFormat      *ResponseFormat `json:"response_format,omitempty"`
	ResponseMimeType    string          `json:"response_mime_type,omitempty"`
	EnableCodeExecution bool            `json:"enable_code_execution,omitempty"`
	EnableGrounding     bool            `json:"enable_grounding,omitempty"`
	ThinkingBudget      *float64        `json:"thinking_budget,omitempty"`

	SafetySettings map[string]SafetyThreshold `json:"safety_settings,omitempty"`
}

// Validate enforces each option's valid range and the
// response_format/response_mime_type precedence rule: raise BadRequest
// when both are set and disagree on whether JSON output was requested.
func (c GenerationConfig) Validate() error {
	if c.Temperature != nil && (*c.Temperature < 0.0 || *c.Temperature > 2.0) {
		return New(ErrBadRequest, "temperature must be within [0.0, 2.0], got %v", *c.Temperature)
	}
	if c.ThinkingBudget != nil && (*c.ThinkingBudget < 0.0 || *c.ThinkingBudget > 1.0) {
		return New(ErrBadRequest, "thinking_budget must be within [0.0, 1.0], got %v", *c.ThinkingBudget)
	}
	if c.ResponseFormat != nil && c.ResponseMimeType != "" {
		wantsJSON := c.ResponseFormat.Type == ResponseFormatJSONObject || c.ResponseFormat.Type == ResponseFormatJSONSchema
		mimeIsJSON := c.ResponseMimeType == "application/json"
		if wantsJSON != mimeIsJSON {
			return New(ErrBadRequest, "response_format (%s) conflicts with response_mime_type (%s)", c.ResponseFormat.Type, c.ResponseMimeType)
		}
	}
	return nil
}

// Merge returns a copy of c with every non-nil/non-empty field of override
// applied on top, used to layer a per-call override onto a model's default
// GenerationConfig (manager.py's validate_override_params equivalent).
func (c GenerationConfig) Merge(override GenerationConfig) GenerationConfig {
	out := c
	if override.Temperature != nil {
		out.Temperature = override.Temperature
	}
	if override.MaxTokens != nil {
		out.MaxTokens = override.MaxTokens
	}
	if override.TopP != nil {
		out.TopP = override.TopP
	}
	if override.TopK != nil {
		out.TopK = override.TopK
	}
	if override.FrequencyPenalty != nil {
		out.FrequencyPenalty = override.FrequencyPenalty
	}
	if override.PresencePenalty != nil {
		out.PresencePenalty = override.PresencePenalty
	}
	if override.RepetitionPenalty != nil {
		out.RepetitionPenalty = override.RepetitionPenalty
	}
	if len(override.Stop) > 0 {
		out.Stop = override.Stop
	}
	if override.ResponseFormat != nil {
		out.ResponseFormat = override.ResponseFormat
	}
	if override.ResponseMimeType != "" {
		out.ResponseMimeType = override.ResponseMimeType
	}
	if override.EnableCodeExecution {
		out.EnableCodeExecution = override.EnableCodeExecution
	}
	if override.EnableGrounding {
		out.EnableGrounding = override.EnableGrounding
	}
	if override.ThinkingBudget != nil {
		out.ThinkingBudget = override.ThinkingBudget
	}
	if len(override.SafetySettings) > 0 {
		out.SafetySettings = override.SafetySettings
	}
	return out
}

// ToolChoiceMode is the discriminant for ToolChoice.
type ToolChoiceMode string

const (
	ToolChoiceAuto     ToolChoiceMode = "auto"
	ToolChoiceNone     ToolChoiceMode = "none"
	ToolChoiceRequired ToolChoiceMode = "required"
	ToolChoiceSpecific ToolChoiceMode = "specific"
)

// ToolChoice controls whether and which tool the model must call.
type ToolChoice struct {
	Mode ToolChoiceMode
	Name string // set only when Mode == ToolChoiceSpecific
}

// ToolDefinition declares a callable tool and its JSON-Schema parameters.
type ToolDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
	Required    []string        `json:"required,omitempty"`
}

// Request is the canonical, library-internal wire shape passed to an
// adapter's Generate method.
type Request struct {
	RequestID  string           `json:"request_id,omitempty"`
	Model      string           `json:"model"`
	Messages   []Message        `json:"messages"`
	Config     GenerationConfig `json:"config"`
	Tools      []ToolDefinition `json:"tools,omitempty"`
	ToolChoice *ToolChoice      `json:"tool_choice,omitempty"`
}
