package types

import "encoding/json"

// FinishReason reports why a generation stopped.
type FinishReason string

const (
	FinishStop          FinishReason = "stop"
	FinishLength        FinishReason = "length"
	FinishToolCalls     FinishReason = "tool_calls"
	FinishContentFilter FinishReason = "content_filter"
)

// TokenUsage carries the token accounting a provider reports back.
type TokenUsage struct {
	PromptTokens     uint32
	CompletionTokens uint32
	TotalTokens      uint32
}

// CodeExecutionResult captures one code-execution round trip a provider's
// built-in interpreter performed while answering a request (Gemini's
// code_execution tool): the code it ran and the output that came back.
type CodeExecutionResult struct {
	Language string
	Code     string
	Outcome  string
	Output   string
}

// GroundingSource is one web source a provider's search-grounding tool
// attributed part of its answer to.
type GroundingSource struct {
	Title string
	URI   string
}

// GroundingMetadata carries the search-grounding attribution a provider
// returns when grounding is enabled on the request: the queries it issued
// and the sources it grounded its answer against.
type GroundingMetadata struct {
	WebSearchQueries []string
	Sources          []GroundingSource
}

// Response is the canonical result of a single Model.Generate call: zero
// or more content parts (text, thought, tool_call) plus usage and a
// finish reason. CodeExecutionResults and GroundingMetadata are populated
// only by adapters whose provider supports those tools (currently
// Gemini); Raw carries the provider's unparsed response body for callers
// that need a field this library doesn't model yet.
type Response struct {
	Content              []ContentPart
	FinishReason         FinishReason
	Usage                *TokenUsage
	Model                string
	Provider             string
	CodeExecutionResults []CodeExecutionResult
	GroundingMetadata    *GroundingMetadata
	Raw                  json.RawMessage
}

// Text concatenates every text-kind part of the response.
func (r Response) Text() string {
	var out string
	for _, p := range r.Content {
		if p.Kind == PartText {
			out += p.Text
		}
	}
	return out
}

// ToolCalls returns every tool_call part of the response.
func (r Response) ToolCalls() []ContentPart {
	var out []ContentPart
	for _, p := range r.Content {
		if p.Kind == PartToolCall {
			out = append(out, p)
		}
	}
	return out
}

// AsMessage folds the response into an assistant Message, the shape the
// tool orchestrator appends to conversation history between turns.
func (r Response) AsMessage() Message {
	return Message{Role: RoleAssistant, Content: r.Content}
}

// EmbedRequest asks a provider to embed one or more input strings against
// a single model. Unlike Request, an embedding call carries no message
// history or tools. TaskType is only forwarded to providers that honor
// it (Gemini's embedContent task_type, e.g. "RETRIEVAL_DOCUMENT" or
// "SEMANTIC_SIMILARITY"); adapters that don't support it ignore it.
type EmbedRequest struct {
	Model    string
	Input    []string
	TaskType string
}

// EmbedResponse carries one embedding vector per EmbedRequest.Input entry,
// in the same order.
type EmbedResponse struct {
	Embeddings [][]float64
	Model      string
	Provider   string
	Usage      *TokenUsage
}
