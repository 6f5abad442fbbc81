package anthropic

import (
	"testing"

	"github.com/nexusllm/gateway/types"
)

func TestToMessagesExtractsSystemPrompt(t *testing.T) {
	messages := []types.Message{
		types.SystemMessage("be terse"),
		types.UserMessage("hi"),
	}

	out, system := toMessages(messages)
	if system != "be terse" {
		t.Errorf("expected system prompt 'be terse', got %q", system)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 message (system folded out), got %d", len(out))
	}
}

func TestToMessagesTranslatesToolResult(t *testing.T) {
	messages := []types.Message{
		types.ToolResultMessage("call_1", "42"),
	}
	out, _ := toMessages(messages)
	if len(out) != 1 {
		t.Fatalf("expected 1 message, got %d", len(out))
	}
}

func TestToToolsCarriesRequiredAndProperties(t *testing.T) {
	tools := []types.ToolDefinition{
		{
			Name:        "search",
			Description: "search",
			Parameters:  []byte(`{"type":"object","properties":{"q":{"type":"string"}},"required":["q"]}`),
			Required:    []string{"q"},
		},
	}
	out := toTools(tools)
	if len(out) != 1 || out[0].OfTool.Name != "search" {
		t.Fatalf("expected a single 'search' tool, got %+v", out)
	}
	schema := out[0].OfTool.InputSchema
	if len(schema.Required) != 1 || schema.Required[0] != "q" {
		t.Errorf("expected required=[q], got %+v", schema.Required)
	}
	if _, ok := schema.Properties.(map[string]any)["q"]; !ok {
		t.Errorf("expected properties to carry 'q', got %+v", schema.Properties)
	}
}
