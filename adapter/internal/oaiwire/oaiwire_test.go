package oaiwire

import (
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"github.com/nexusllm/gateway/types"
)

func TestToRequestBuildsImageURLContentForVisionModel(t *testing.T) {
	req := types.Request{
		Model: "gpt-4o-mini",
		Messages: []types.Message{
			{
				Role: types.RoleUser,
				Content: []types.ContentPart{
					types.TextPart("what is this?"),
					types.ImagePart([]byte("fakebytes"), "image/png"),
				},
			},
		},
	}

	wire, err := ToRequest(req)
	if err != nil {
		t.Fatalf("ToRequest: %v", err)
	}
	if len(wire.Messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(wire.Messages))
	}
	parts := wire.Messages[0].MultiContent
	if len(parts) != 2 {
		t.Fatalf("expected 2 content parts, got %d", len(parts))
	}
	if parts[0].Type != openai.ChatMessagePartTypeText {
		t.Errorf("expected first part text, got %v", parts[0].Type)
	}
	if parts[1].Type != openai.ChatMessagePartTypeImageURL {
		t.Errorf("expected second part image_url, got %v", parts[1].Type)
	}
	if !strings.HasPrefix(parts[1].ImageURL.URL, "data:image/png;base64,") {
		t.Errorf("expected inline image to become a data URI, got %q", parts[1].ImageURL.URL)
	}
}

func TestToRequestRejectsImageForTextOnlyModel(t *testing.T) {
	req := types.Request{
		Model: "deepseek-chat",
		Messages: []types.Message{
			{
				Role:    types.RoleUser,
				Content: []types.ContentPart{types.ImageURLPart("https://example.com/cat.png")},
			},
		},
	}

	_, err := ToRequest(req)
	if err == nil {
		t.Fatal("expected an UnsupportedFeature error for a text-only model")
	}
}
