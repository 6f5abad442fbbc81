package jsonextract

import (
	"strings"
	"testing"
)

type testStruct struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

func TestExtractPureJSON(t *testing.T) {
	var out testStruct
	if err := Into(`{"name": "test", "value": 42}`, &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Name != "test" || out.Value != 42 {
		t.Errorf("unexpected result: %+v", out)
	}
}

func TestExtractCodeFence(t *testing.T) {
	var out testStruct
	response := "```json\n{\"name\": \"test\", \"value\": 42}\n```"
	if err := Into(response, &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Name != "test" || out.Value != 42 {
		t.Errorf("unexpected result: %+v", out)
	}
}

func TestExtractSurroundingText(t *testing.T) {
	var out testStruct
	response := `Let me think... {"name": "test", "value": 42} Done!`
	if err := Into(response, &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Name != "test" || out.Value != 42 {
		t.Errorf("unexpected result: %+v", out)
	}
}

func TestExtractNoJSON(t *testing.T) {
	_, err := Extract("This is just plain text without any JSON.")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "no valid JSON found") {
		t.Errorf("expected 'no valid JSON found' in error, got: %v", err)
	}
}

func TestExtractInvalidJSON(t *testing.T) {
	_, err := Extract(`{"name": "test", value: }`)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}
