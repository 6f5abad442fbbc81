package tool

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/nexusllm/gateway/types"
)

func newRegistryWithSearch(t *testing.T) *Registry {
	t.Helper()
	reg := NewRegistry()
	err := reg.Register(Definition{
		Name:       "search",
		Parameters: json.RawMessage(`{"type":"object","properties":{"query":{"type":"string"}},"required":["query"]}`),
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return reg
}

func TestOrchestratorReturnsImmediatelyWhenNoToolCalls(t *testing.T) {
	reg := newRegistryWithSearch(t)
	orch := New(reg, func(ctx context.Context, name string, args json.RawMessage) (string, error) {
		t.Fatal("executor should not be invoked")
		return "", nil
	})

	call := func(ctx context.Context, messages []types.Message) (types.Response, error) {
		return types.Response{Content: []types.ContentPart{types.TextPart("done")}, FinishReason: types.FinishStop}, nil
	}

	resp, err := orch.Run(context.Background(), call, []types.Message{types.UserMessage("hi")}, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text() != "done" {
		t.Errorf("expected 'done', got %q", resp.Text())
	}
}

func TestOrchestratorDispatchesToolCallAndLoops(t *testing.T) {
	reg := newRegistryWithSearch(t)

	var executed []string
	orch := New(reg, func(ctx context.Context, name string, args json.RawMessage) (string, error) {
		executed = append(executed, name)
		return "42", nil
	})

	round := 0
	call := func(ctx context.Context, messages []types.Message) (types.Response, error) {
		round++
		if round == 1 {
			return types.Response{
				Content: []types.ContentPart{
					types.ToolCallPart("call_1", "search", json.RawMessage(`{"query":"go"}`)),
				},
				FinishReason: types.FinishToolCalls,
			}, nil
		}
		// second round: verify tool result was appended
		for _, m := range messages {
			if m.Role == types.RoleTool && m.ToolCallID == "call_1" {
				return types.Response{Content: []types.ContentPart{types.TextPart("answer: " + m.Text())}, FinishReason: types.FinishStop}, nil
			}
		}
		t.Fatal("expected tool-result message to be present in second round")
		return types.Response{}, nil
	}

	resp, err := orch.Run(context.Background(), call, []types.Message{types.UserMessage("search for go")}, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(executed) != 1 || executed[0] != "search" {
		t.Errorf("expected search to be executed once, got %v", executed)
	}
	if resp.Text() != "answer: 42" {
		t.Errorf("expected 'answer: 42', got %q", resp.Text())
	}
}

func TestOrchestratorSynthesizesErrorResultOnValidationFailure(t *testing.T) {
	reg := newRegistryWithSearch(t)

	orch := New(reg, func(ctx context.Context, name string, args json.RawMessage) (string, error) {
		t.Fatal("executor should not run when arguments fail schema validation")
		return "", nil
	})

	round := 0
	call := func(ctx context.Context, messages []types.Message) (types.Response, error) {
		round++
		if round == 1 {
			return types.Response{
				Content: []types.ContentPart{
					types.ToolCallPart("call_1", "search", json.RawMessage(`{}`)),
				},
				FinishReason: types.FinishToolCalls,
			}, nil
		}
		for _, m := range messages {
			if m.Role == types.RoleTool {
				if m.Text() == "" {
					t.Error("expected a synthesized error result, got empty text")
				}
				return types.Response{Content: []types.ContentPart{types.TextPart("handled")}, FinishReason: types.FinishStop}, nil
			}
		}
		return types.Response{}, nil
	}

	if _, err := orch.Run(context.Background(), call, []types.Message{types.UserMessage("go")}, Options{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestOrchestratorRaisesOnExhaustion(t *testing.T) {
	reg := newRegistryWithSearch(t)
	orch := New(reg, func(ctx context.Context, name string, args json.RawMessage) (string, error) {
		return "ok", nil
	})

	call := func(ctx context.Context, messages []types.Message) (types.Response, error) {
		return types.Response{
			Content:      []types.ContentPart{types.ToolCallPart("call_1", "search", json.RawMessage(`{"query":"go"}`))},
			FinishReason: types.FinishToolCalls,
		}, nil
	}

	_, err := orch.Run(context.Background(), call, []types.Message{types.UserMessage("go")}, Options{MaxRounds: 2, OnExhaustion: RaiseError})
	if err == nil {
		t.Fatal("expected ToolLoopExhausted error")
	}
	le, ok := types.AsLLMError(err)
	if !ok || le.Kind != types.ErrToolLoopExhausted {
		t.Errorf("expected ErrToolLoopExhausted, got %v", err)
	}
}

func TestOrchestratorDispatchesParallelCallsInOrder(t *testing.T) {
	reg := NewRegistry()
	_ = reg.Register(Definition{Name: "a"})
	_ = reg.Register(Definition{Name: "b"})

	orch := New(reg, func(ctx context.Context, name string, args json.RawMessage) (string, error) {
		return "result_" + name, nil
	})

	round := 0
	call := func(ctx context.Context, messages []types.Message) (types.Response, error) {
		round++
		if round == 1 {
			return types.Response{
				Content: []types.ContentPart{
					types.ToolCallPart("call_a", "a", json.RawMessage(`{}`)),
					types.ToolCallPart("call_b", "b", json.RawMessage(`{}`)),
				},
				FinishReason: types.FinishToolCalls,
			}, nil
		}
		var ids []string
		for _, m := range messages {
			if m.Role == types.RoleTool {
				ids = append(ids, m.ToolCallID)
			}
		}
		if len(ids) != 2 || ids[0] != "call_a" || ids[1] != "call_b" {
			t.Errorf("expected tool results in original call order [call_a call_b], got %v", ids)
		}
		return types.Response{Content: []types.ContentPart{types.TextPart("done")}, FinishReason: types.FinishStop}, nil
	}

	if _, err := orch.Run(context.Background(), call, []types.Message{types.UserMessage("go")}, Options{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
