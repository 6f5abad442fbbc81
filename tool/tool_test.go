package tool

import (
	"encoding/json"
	"testing"
)

func TestRegistryValidateAgainstSchema(t *testing.T) {
	reg := NewRegistry()
	err := reg.Register(Definition{
		Name:       "search",
		Parameters: json.RawMessage(`{"type":"object","properties":{"query":{"type":"string"}},"required":["query"]}`),
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if err := reg.Validate("search", json.RawMessage(`{"query":"go"}`)); err != nil {
		t.Errorf("expected valid args to pass, got %v", err)
	}
	if err := reg.Validate("search", json.RawMessage(`{}`)); err == nil {
		t.Error("expected missing required field to fail validation")
	}
}

func TestRegistryRejectsDuplicateName(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register(Definition{Name: "a"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := reg.Register(Definition{Name: "a"}); err == nil {
		t.Error("expected duplicate registration to fail")
	}
}

func TestRegistryNoSchemaAlwaysValidates(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register(Definition{Name: "noop"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := reg.Validate("noop", json.RawMessage(`{"anything":1}`)); err != nil {
		t.Errorf("expected schema-less tool to always validate, got %v", err)
	}
}

func TestRegistryValidateUnknownTool(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Validate("missing", json.RawMessage(`{}`)); err == nil {
		t.Error("expected unknown tool name to error")
	}
}

func TestDefinitionsSortedByName(t *testing.T) {
	reg := NewRegistry()
	_ = reg.Register(Definition{Name: "zebra"})
	_ = reg.Register(Definition{Name: "apple"})

	defs := reg.Definitions()
	if len(defs) != 2 || defs[0].Name != "apple" || defs[1].Name != "zebra" {
		t.Errorf("expected sorted [apple zebra], got %+v", defs)
	}
}
