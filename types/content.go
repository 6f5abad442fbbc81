package types

import (
	"encoding/json"
	"fmt"
)

// PartKind discriminates the ContentPart union, matching the Kind/Source
// split the original LLMContentPart validated in its post-init hook.
type PartKind string

const (
	PartText       PartKind = "text"
	PartImage      PartKind = "image"
	PartVideo      PartKind = "video"
	PartAudio      PartKind = "audio"
	PartFile       PartKind = "file"
	PartToolCall   PartKind = "tool_call"
	PartToolResult PartKind = "tool_result"
	PartThought    PartKind = "thought"
)

// MediaSource carries one of an inline byte payload, a remote URI, or a
// local path pending upload. Exactly one of Data, URI, or Path is set.
type MediaSource struct {
	Data     []byte `json:"data,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
	URI      string `json:"uri,omitempty"`
	Path     string `json:"path,omitempty"`
}

// IsInline reports whether the source carries inline bytes.
func (m MediaSource) IsInline() bool { return len(m.Data) > 0 }

// IsURI reports whether the source is a remote reference.
func (m MediaSource) IsURI() bool { return m.URI != "" }

// IsPendingUpload reports whether the source is a local path awaiting upload.
func (m MediaSource) IsPendingUpload() bool { return m.Path != "" }

// ContentPart is one element of a Message's ordered content list.
type ContentPart struct {
	Kind PartKind `json:"kind"`

	Text string `json:"text,omitempty"`

	Media *MediaSource `json:"media,omitempty"`

	// tool_call fields (model-emitted)
	ToolCallID        string          `json:"tool_call_id,omitempty"`
	ToolCallName      string          `json:"tool_call_name,omitempty"`
	ToolCallArguments json.RawMessage `json:"tool_call_arguments,omitempty"`

	// tool_result fields
	ToolResultCallID string `json:"tool_result_call_id,omitempty"`
	ToolResultText   string `json:"tool_result_text,omitempty"`
}

// TextPart creates a text content part.
func TextPart(s string) ContentPart { return ContentPart{Kind: PartText, Text: s} }

// ThoughtPart creates an opaque provider-emitted reasoning part.
func ThoughtPart(s string) ContentPart { return ContentPart{Kind: PartThought, Text: s} }

// ImagePart creates an inline-bytes image part.
func ImagePart(data []byte, mimeType string) ContentPart {
	return ContentPart{Kind: PartImage, Media: &MediaSource{Data: data, MimeType: mimeType}}
}

// ImageURLPart creates a URI-referenced image part.
func ImageURLPart(uri string) ContentPart {
	return ContentPart{Kind: PartImage, Media: &MediaSource{URI: uri}}
}

// ToolCallPart creates a model-emitted function-call part.
func ToolCallPart(id, name string, args json.RawMessage) ContentPart {
	return ContentPart{Kind: PartToolCall, ToolCallID: id, ToolCallName: name, ToolCallArguments: args}
}

// ToolResultPart creates a tool-result content part.
func ToolResultPart(callID, text string) ContentPart {
	return ContentPart{Kind: PartToolResult, ToolResultCallID: callID, ToolResultText: text}
}

// Validate checks that the part carries the fields its Kind requires,
// mirroring LLMContentPart.model_post_init's per-type validation rules.
func (p ContentPart) Validate() error {
	switch p.Kind {
	case PartText, PartThought:
		if p.Text == "" {
			return fmt.Errorf("content part %q requires text", p.Kind)
		}
	case PartImage, PartVideo, PartAudio, PartFile:
		if p.Media == nil {
			return fmt.Errorf("content part %q requires a media source", p.Kind)
		}
	case PartToolCall:
		if p.ToolCallName == "" {
			return fmt.Errorf("tool_call part requires a name")
		}
	case PartToolResult:
		if p.ToolResultCallID == "" {
			return fmt.Errorf("tool_result part requires a call id")
		}
	default:
		return fmt.Errorf("unknown content part kind %q", p.Kind)
	}
	return nil
}

// Role is the message role tag.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one turn of the canonical conversation.
type Message struct {
	Role       Role          `json:"role"`
	Content    []ContentPart `json:"content"`
	ToolCallID string        `json:"tool_call_id,omitempty"`
}

// SystemMessage creates a system message with plain text content.
func SystemMessage(text string) Message {
	return Message{Role: RoleSystem, Content: []ContentPart{TextPart(text)}}
}

// UserMessage creates a user message with plain text content.
func UserMessage(text string) Message {
	return Message{Role: RoleUser, Content: []ContentPart{TextPart(text)}}
}

// AssistantMessage creates an assistant message with plain text content.
func AssistantMessage(text string) Message {
	return Message{Role: RoleAssistant, Content: []ContentPart{TextPart(text)}}
}

// ToolResultMessage creates a tool-role message carrying a result for the
// given call ID.
func ToolResultMessage(toolCallID, content string) Message {
	return Message{
		Role:       RoleTool,
		Content:    []ContentPart{ToolResultPart(toolCallID, content)},
		ToolCallID: toolCallID,
	}
}

// Text concatenates all text-kind and tool_result parts of the message,
// for adapters that flatten content to a single string (the OpenAI-compat
// wire format, and the textual result of a tool-role message).
func (m Message) Text() string {
	var out string
	for _, p := range m.Content {
		switch p.Kind {
		case PartText:
			out += p.Text
		case PartToolResult:
			out += p.ToolResultText
		}
	}
	return out
}

// ToolCalls returns every tool_call part carried by the message.
func (m Message) ToolCalls() []ContentPart {
	var out []ContentPart
	for _, p := range m.Content {
		if p.Kind == PartToolCall {
			out = append(out, p)
		}
	}
	return out
}
