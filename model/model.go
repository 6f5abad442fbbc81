// Package model ties a provider configuration, credential store, adapter,
// and executor together into a single callable handle, and maintains the
// process-wide registry/cache of those handles plus the global default
// model name.
//
// Grounded on zhenxun's services/llm/manager.py (get_model_instance's
// resolution flow) and services/llm/service.py's LLMModel, rebuilt as a
// Go struct wiring the already-built credential/transport/adapter/executor
// packages instead of owning HTTP logic itself.
package model

import (
	"context"
	"errors"

	"github.com/nexusllm/gateway/adapter"
	"github.com/nexusllm/gateway/credential"
	"github.com/nexusllm/gateway/executor"
	"github.com/nexusllm/gateway/internal/jsonextract"
	"github.com/nexusllm/gateway/tool"
	"github.com/nexusllm/gateway/types"
)

// Model is a single resolved "provider/model" target: an adapter bound to
// an endpoint, a credential store to draw secrets from, and the default
// generation config/capabilities for that model entry.
type Model struct {
	ref          types.ModelRef
	adapter      adapter.Adapter
	endpoint     adapter.Endpoint
	creds        *credential.Store
	exec         *executor.Executor
	capabilities types.Capabilities
	defaults     types.GenerationConfig
}

// Ref returns the provider/model identifier this handle resolves to.
func (m *Model) Ref() types.ModelRef { return m.ref }

// Capabilities returns the inferred input/output modalities and
// tool-calling support for this model.
func (m *Model) Capabilities() types.Capabilities { return m.capabilities }

// Generate issues a single request, merging override over the model's
// configured defaults per GenerationConfig.Merge.
func (m *Model) Generate(ctx context.Context, messages []types.Message, override types.GenerationConfig, tools []types.ToolDefinition) (types.Response, error) {
	cfg := m.defaults.Merge(override)
	if err := cfg.Validate(); err != nil {
		return types.Response{}, err
	}

	req := types.Request{
		Model:    m.ref.Model,
		Messages: messages,
		Config:   cfg,
		Tools:    tools,
	}
	return m.exec.Run(ctx, req)
}

// GenerateStructured issues a request with response_format set to schema
// (a json_schema or json_object format, used as given) and unmarshals the
// result into out. Some providers wrap JSON output in markdown fences or
// leading commentary despite the requested format, so the raw text is run
// through jsonextract before giving up.
func (m *Model) GenerateStructured(ctx context.Context, messages []types.Message, schema types.ResponseFormat, out interface{}) (types.Response, error) {
	resp, err := m.Generate(ctx, messages, types.GenerationConfig{ResponseFormat: &schema}, nil)
	if err != nil {
		return types.Response{}, err
	}
	if err := jsonextract.Into(resp.Text(), out); err != nil {
		return resp, types.Wrap(types.ErrBadRequest, err, "model %q did not return the requested structured output", m.ref)
	}
	return resp, nil
}

// Embed embeds every string in input against this model, if the
// underlying adapter supports the embed operation. Adapters that don't
// (Anthropic has no embeddings endpoint) report UnsupportedFeature.
// taskType is forwarded to providers that honor it (Gemini); adapters
// that don't support it ignore it.
func (m *Model) Embed(ctx context.Context, input []string, taskType string) (types.EmbedResponse, error) {
	embedder, ok := m.adapter.(adapter.EmbeddingAdapter)
	if !ok {
		return types.EmbedResponse{}, types.New(types.ErrUnsupportedFeature, "%s adapter does not support embed", m.ref.Provider)
	}

	cred, err := m.creds.Acquire(nil)
	if err != nil {
		return types.EmbedResponse{}, types.Wrap(types.ErrNoCredentials, err, "no credential available")
	}

	resp, err := embedder.Embed(ctx, m.endpoint, cred.Secret, types.EmbedRequest{Model: m.ref.Model, Input: input, TaskType: taskType})
	if err != nil {
		kind := types.ErrServer
		var le *types.LLMError
		if errors.As(err, &le) {
			kind = le.Kind
		}
		m.creds.ReportFailure(cred.ID, kind, err.Error())
		return types.EmbedResponse{}, err
	}

	m.creds.ReportSuccess(cred.ID, 0)
	return resp, nil
}

// caller adapts Model.Generate to tool.Caller, binding a fixed config and
// tool set so the orchestrator can re-issue requests across rounds without
// needing to know about credentials or adapters.
func (m *Model) caller(cfg types.GenerationConfig, tools []types.ToolDefinition) tool.Caller {
	return func(ctx context.Context, messages []types.Message) (types.Response, error) {
		req := types.Request{Model: m.ref.Model, Messages: messages, Config: cfg, Tools: tools}
		return m.exec.Run(ctx, req)
	}
}

// RunWithTools drives a multi-turn tool-calling conversation: it issues
// requests through this Model, carrying tools in every request so the
// provider can emit tool_calls, and dispatching any that appear through
// orch until a terminal response or the round budget is exhausted.
func (m *Model) RunWithTools(ctx context.Context, orch *tool.Orchestrator, messages []types.Message, override types.GenerationConfig, tools []types.ToolDefinition, opts tool.Options) (types.Response, error) {
	cfg := m.defaults.Merge(override)
	if err := cfg.Validate(); err != nil {
		return types.Response{}, err
	}
	return orch.Run(ctx, m.caller(cfg, tools), messages, opts)
}
