// Package adapter defines the pluggable translation layer between the
// canonical types.Request/types.Response shapes and a specific provider's
// wire format, plus a process-wide registry keyed by api_type so new
// adapters can be added without touching gateway internals. The registry
// is an open string-keyed map rather than a fixed enum, since a provider
// can be hosted at an arbitrary api_base rather than one fixed endpoint.
package adapter

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/nexusllm/gateway/types"
)

// Endpoint is the connection information an Adapter needs to reach a
// specific provider deployment: its base URL, timeout, and proxy.
type Endpoint struct {
	APIBase string
	Timeout int // seconds; 0 means use the adapter's default
	Proxy   string
}

// Feature names a capability a caller can probe for with Adapter.Supports
// ahead of issuing a request, rather than discovering an UnsupportedFeature
// error only after sending one.
const (
	FeatureTools         = "tools"
	FeatureMultimodal    = "multimodal"
	FeatureGrounding     = "grounding"
	FeatureCodeExecution = "code_execution"
	FeatureEmbeddings    = "embeddings"
	FeatureStreaming     = "streaming"
	FeatureJSONMode      = "json_mode"
)

// Adapter translates a canonical Request into a provider's wire format,
// performs the HTTP call using the given credential secret, and translates
// the wire response back into a canonical Response.
//
// Implementations must not retry or rotate credentials themselves — that
// policy lives in package executor. An Adapter call either succeeds or
// returns a single classified *types.LLMError.
type Adapter interface {
	// APIType returns the api_type this adapter registers under (e.g.
	// "openai", "gemini", "zhipu", "anthropic").
	APIType() string

	// Generate performs one non-streaming completion.
	Generate(ctx context.Context, endpoint Endpoint, secret string, req types.Request) (types.Response, error)

	// Supports reports whether this adapter's provider can serve feature
	// (one of the Feature constants), so a caller can check ahead of a
	// request instead of only finding out from an UnsupportedFeature error.
	Supports(feature string) bool
}

// EmbeddingAdapter is implemented by adapters whose provider serves the
// embed operation. Not every Adapter supports it (the registry's Generate
// method is the only mandatory surface), so model.Model type-asserts for
// this interface rather than requiring every adapter to implement it.
type EmbeddingAdapter interface {
	Embed(ctx context.Context, endpoint Endpoint, secret string, req types.EmbedRequest) (types.EmbedResponse, error)
}

// Factory builds a new Adapter instance, given per-provider construction
// options supplied by the config package (e.g. a shared transport Manager).
type Factory func(opts Options) (Adapter, error)

// Options carries the dependencies a Factory needs to build an Adapter,
// notably a pooled-client lookup so adapters share connections through
// package transport instead of each dialing its own *http.Client.
type Options struct {
	HTTPClientFor func(timeout time.Duration, proxy string) (*http.Client, error)
}

// registry is the process-wide api_type -> Factory map.
type registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

var global = &registry{factories: make(map[string]Factory)}

// Register adds a Factory under apiType. Calling Register twice for the
// same apiType replaces the previous factory, which lets tests and
// downstream users override a built-in adapter.
func Register(apiType string, factory Factory) {
	global.mu.Lock()
	defer global.mu.Unlock()
	global.factories[apiType] = factory
}

// Build constructs a new Adapter for apiType using its registered Factory.
func Build(apiType string, opts Options) (Adapter, error) {
	global.mu.RLock()
	factory, ok := global.factories[apiType]
	global.mu.RUnlock()
	if !ok {
		return nil, types.New(types.ErrUnknownAdapter, "no adapter registered for api_type %q", apiType)
	}
	return factory(opts)
}

// Registered lists every api_type currently registered, for diagnostics.
func Registered() []string {
	global.mu.RLock()
	defer global.mu.RUnlock()
	out := make([]string, 0, len(global.factories))
	for k := range global.factories {
		out = append(out, k)
	}
	return out
}

// Unsupported builds a standard UnsupportedFeature error for adapterName
// rejecting feature, used whenever a request field or content part has no
// equivalent in that adapter's wire format.
func Unsupported(adapterName, feature string) error {
	return fmt.Errorf("%w", types.New(types.ErrUnsupportedFeature, "%s adapter does not support %s", adapterName, feature))
}
