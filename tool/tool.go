// Package tool implements the multi-turn tool-calling orchestrator: a
// registry of callable tool definitions plus a loop that dispatches
// provider-emitted tool calls, validates their arguments against a JSON
// schema, and re-invokes the model until a terminal response is produced.
package tool

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/nexusllm/gateway/types"
)

// Definition describes one callable tool: its name, description, and the
// JSON Schema its arguments must satisfy. It is the orchestrator's
// bookkeeping counterpart to types.ToolDefinition, which is the
// wire-facing shape adapters send to providers.
type Definition struct {
	Name        string
	Description string
	Parameters  json.RawMessage
}

// ToWire converts a Definition to the canonical types.ToolDefinition sent
// to an adapter.
func (d Definition) ToWire() types.ToolDefinition {
	return types.ToolDefinition{Name: d.Name, Description: d.Description, Parameters: d.Parameters}
}

// Registry holds callable tool definitions keyed by name, each with a
// compiled JSON Schema validator for its arguments. It stores only
// metadata plus a compiled schema; actual dispatch goes through the
// caller-supplied Executor function rather than an in-process tool
// implementation.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

type entry struct {
	def    Definition
	schema *jsonschema.Schema
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*entry)}
}

// Register adds a tool definition, compiling its JSON Schema if one is
// present. Returns an error if the name is already registered or the
// schema fails to compile, grounded on alfred-ai's WithSchemaValidation.
func (r *Registry) Register(def Definition) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[def.Name]; exists {
		return fmt.Errorf("tool %q already registered", def.Name)
	}

	e := &entry{def: def}
	if len(def.Parameters) > 0 && string(def.Parameters) != "null" {
		compiler := jsonschema.NewCompiler()
		resource := def.Name + ".json"
		if err := compiler.AddResource(resource, bytes.NewReader(def.Parameters)); err != nil {
			return fmt.Errorf("add schema resource for %q: %w", def.Name, err)
		}
		schema, err := compiler.Compile(resource)
		if err != nil {
			return fmt.Errorf("compile schema for %q: %w", def.Name, err)
		}
		e.schema = schema
	}

	r.entries[def.Name] = e
	return nil
}

// Get returns the definition for name, if registered.
func (r *Registry) Get(name string) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[name]
	if !ok {
		return Definition{}, false
	}
	return e.def, true
}

// Validate checks args against the tool's compiled JSON Schema. A tool
// with no schema always validates. Unknown tool names are an error, not
// a silent pass.
func (r *Registry) Validate(name string, args json.RawMessage) error {
	r.mu.RLock()
	e, ok := r.entries[name]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("unknown tool %q", name)
	}
	if e.schema == nil {
		return nil
	}

	var v any
	if err := json.Unmarshal(args, &v); err != nil {
		return fmt.Errorf("invalid JSON arguments: %w", err)
	}
	if err := e.schema.Validate(v); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}

// Definitions returns every registered tool as a wire-facing
// types.ToolDefinition, in sorted-name order, for inclusion in a
// types.Request.
func (r *Registry) Definitions() []types.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]types.ToolDefinition, len(names))
	for i, name := range names {
		out[i] = r.entries[name].def.ToWire()
	}
	return out
}
