package gemini

import (
	"encoding/json"
	"testing"

	"google.golang.org/genai"

	"github.com/nexusllm/gateway/types"
)

func TestToContentsFoldsSystemMessage(t *testing.T) {
	messages := []types.Message{
		types.SystemMessage("be terse"),
		types.UserMessage("hi"),
	}

	contents, sys := toContents(messages)
	if sys != "be terse" {
		t.Errorf("expected system instruction 'be terse', got %q", sys)
	}
	if len(contents) != 1 {
		t.Fatalf("expected 1 content entry (system folded out), got %d", len(contents))
	}
	if contents[0].Role != genai.RoleUser {
		t.Errorf("expected user role, got %q", contents[0].Role)
	}
}

func TestToContentsTranslatesToolResult(t *testing.T) {
	messages := []types.Message{
		types.ToolResultMessage("call_1", `{"ok":true}`),
	}
	contents, _ := toContents(messages)
	if len(contents) != 1 {
		t.Fatalf("expected 1 content entry, got %d", len(contents))
	}
	part := contents[0].Parts[0]
	if part.FunctionResponse == nil || part.FunctionResponse.Name != "call_1" {
		t.Errorf("expected function response named call_1, got %+v", part.FunctionResponse)
	}
}

func TestToContentsCarriesInlineImage(t *testing.T) {
	messages := []types.Message{
		{
			Role: types.RoleUser,
			Content: []types.ContentPart{
				types.TextPart("what is this?"),
				types.ImagePart([]byte("fakebytes"), "image/png"),
			},
		},
	}
	contents, _ := toContents(messages)
	if len(contents) != 1 {
		t.Fatalf("expected 1 content entry, got %d", len(contents))
	}
	parts := contents[0].Parts
	if len(parts) != 2 {
		t.Fatalf("expected 2 parts, got %d", len(parts))
	}
	if parts[0].Text != "what is this?" {
		t.Errorf("expected first part to be the text, got %+v", parts[0])
	}
	if parts[1].InlineData == nil || parts[1].InlineData.MIMEType != "image/png" {
		t.Errorf("expected second part to be inline image data, got %+v", parts[1])
	}
}

func TestToSchemaHandlesArrayItems(t *testing.T) {
	raw := `{"type":"object","properties":{"tags":{"type":"array","items":{"type":"string"}}},"required":["tags"]}`
	var params map[string]any
	if err := json.Unmarshal([]byte(raw), &params); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	schema := toSchema(params)
	if schema.Type != genai.TypeObject {
		t.Errorf("expected object type, got %v", schema.Type)
	}
	tags, ok := schema.Properties["tags"]
	if !ok {
		t.Fatal("expected 'tags' property")
	}
	if tags.Type != genai.TypeArray {
		t.Errorf("expected array type for tags, got %v", tags.Type)
	}
	if tags.Items == nil || tags.Items.Type != genai.TypeString {
		t.Errorf("expected string items, got %+v", tags.Items)
	}
}

func TestFromResponseDetectsToolCallFinish(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{
				Content: &genai.Content{
					Parts: []*genai.Part{
						{FunctionCall: &genai.FunctionCall{Name: "search", Args: map[string]any{"q": "go"}}},
					},
				},
			},
		},
	}
	out := fromResponse(resp)
	if out.FinishReason != types.FinishToolCalls {
		t.Errorf("expected finish reason tool_calls, got %v", out.FinishReason)
	}
	calls := out.ToolCalls()
	if len(calls) != 1 || calls[0].ToolCallName != "search" {
		t.Errorf("expected a single 'search' tool call, got %+v", calls)
	}
}

func TestFromResponseSurfacesCodeExecutionResult(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{
				Content: &genai.Content{
					Parts: []*genai.Part{
						{ExecutableCode: &genai.ExecutableCode{Language: genai.LanguagePython, Code: "print(1+1)"}},
						{CodeExecutionResult: &genai.CodeExecutionResult{Outcome: genai.OutcomeOK, Output: "2"}},
					},
				},
			},
		},
	}
	out := fromResponse(resp)
	if len(out.CodeExecutionResults) != 1 {
		t.Fatalf("expected 1 code execution result, got %d", len(out.CodeExecutionResults))
	}
	r := out.CodeExecutionResults[0]
	if r.Code != "print(1+1)" || r.Output != "2" {
		t.Errorf("expected code/output to be paired, got %+v", r)
	}
}

func TestFromResponseSurfacesGroundingMetadata(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{
				Content: &genai.Content{
					Parts: []*genai.Part{{Text: "Go was released in 2009."}},
				},
				GroundingMetadata: &genai.GroundingMetadata{
					WebSearchQueries: []string{"when was go released"},
					GroundingChunks: []*genai.GroundingChunk{
						{Web: &genai.GroundingChunkWeb{Title: "Go (programming language)", URI: "https://example.com/go"}},
					},
				},
			},
		},
	}
	out := fromResponse(resp)
	if out.GroundingMetadata == nil {
		t.Fatal("expected grounding metadata to be populated")
	}
	if len(out.GroundingMetadata.WebSearchQueries) != 1 || out.GroundingMetadata.WebSearchQueries[0] != "when was go released" {
		t.Errorf("expected the search query to carry through, got %+v", out.GroundingMetadata.WebSearchQueries)
	}
	if len(out.GroundingMetadata.Sources) != 1 || out.GroundingMetadata.Sources[0].URI != "https://example.com/go" {
		t.Errorf("expected one source with the example URI, got %+v", out.GroundingMetadata.Sources)
	}
}
