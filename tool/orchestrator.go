package tool

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/nexusllm/gateway/types"
)

// Executor is the caller-supplied tool-dispatch function. The orchestrator
// never interprets its return value beyond passing it back to the model
// as a tool result.
type Executor func(ctx context.Context, name string, args json.RawMessage) (string, error)

// Caller issues one model request and returns its response. Supplied by
// the model package so the orchestrator stays independent of how a
// request actually reaches an adapter.
type Caller func(ctx context.Context, messages []types.Message) (types.Response, error)

// ExhaustionPolicy controls what happens when the round limit is hit.
type ExhaustionPolicy int

const (
	// ReturnLastResponse returns the last response as-is, with unresolved
	// tool calls still attached and FinishReason left at tool_calls.
	ReturnLastResponse ExhaustionPolicy = iota
	// RaiseError returns a types.LLMError of kind ErrToolLoopExhausted.
	RaiseError
)

// Options configures one orchestrator Run.
type Options struct {
	MaxRounds    int // default 5
	OnExhaustion ExhaustionPolicy
}

func (o Options) withDefaults() Options {
	if o.MaxRounds <= 0 {
		o.MaxRounds = 5
	}
	return o
}

// Orchestrator runs the multi-turn tool-calling loop: issue a request,
// dispatch any tool calls the model emits, append results, and repeat
// until a terminal response appears or the round budget is exhausted.
type Orchestrator struct {
	registry *Registry
	exec     Executor
}

// New builds an Orchestrator dispatching through exec and validating
// arguments against the tools registered in reg.
func New(reg *Registry, exec Executor) *Orchestrator {
	return &Orchestrator{registry: reg, exec: exec}
}

// Run executes the loop against an initial message list. The tool
// definitions sent to the model are whatever the Caller binds; the
// registry is used only to validate each call's arguments.
func (o *Orchestrator) Run(ctx context.Context, call Caller, messages []types.Message, opts Options) (types.Response, error) {
	opts = opts.withDefaults()

	conversation := append([]types.Message{}, messages...)

	var last types.Response
	for round := 0; ; round++ {
		if err := ctx.Err(); err != nil {
			return last, err
		}

		resp, err := call(ctx, conversation)
		if err != nil {
			return types.Response{}, err
		}
		last = resp

		calls := resp.ToolCalls()
		if len(calls) == 0 {
			return resp, nil
		}

		if round >= opts.MaxRounds {
			if opts.OnExhaustion == RaiseError {
				return resp, types.New(types.ErrToolLoopExhausted, "exceeded %d tool rounds", opts.MaxRounds)
			}
			return resp, nil
		}

		conversation = append(conversation, resp.AsMessage())

		results := o.dispatch(ctx, calls)
		for i, call := range calls {
			conversation = append(conversation, types.ToolResultMessage(call.ToolCallID, results[i]))
		}

		if err := ctx.Err(); err != nil {
			return last, err
		}
	}
}

// dispatch runs every tool call concurrently, preserving the original
// call order in the returned result slice regardless of completion
// order.
func (o *Orchestrator) dispatch(ctx context.Context, calls []types.ContentPart) []string {
	results := make([]string, len(calls))

	var wg sync.WaitGroup
	for i, c := range calls {
		wg.Add(1)
		go func(i int, c types.ContentPart) {
			defer wg.Done()
			results[i] = o.invoke(ctx, c)
		}(i, c)
	}
	wg.Wait()

	return results
}

// invoke validates one tool call's arguments and, if they pass, dispatches
// to the caller-supplied Executor. A validation failure or executor error
// becomes a synthesized error tool result rather than aborting the round.
func (o *Orchestrator) invoke(ctx context.Context, call types.ContentPart) string {
	if err := ctx.Err(); err != nil {
		return errorResult(err)
	}

	if err := o.registry.Validate(call.ToolCallName, call.ToolCallArguments); err != nil {
		return errorResult(err)
	}

	out, err := o.exec(ctx, call.ToolCallName, call.ToolCallArguments)
	if err != nil {
		return errorResult(err)
	}
	return out
}

func errorResult(err error) string {
	b, _ := json.Marshal(map[string]string{"error": err.Error()})
	return string(b)
}
