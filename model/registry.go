package model

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/nexusllm/gateway/adapter"
	"github.com/nexusllm/gateway/credential"
	"github.com/nexusllm/gateway/executor"
	"github.com/nexusllm/gateway/transport"
	"github.com/nexusllm/gateway/types"
)

// modelRefPattern is the canonical "provider/model" identifier shape:
// the provider segment allows letters, digits, underscore, dot, and
// hyphen; the model segment additionally allows a colon (for tagged
// model names like "llama3:8b").
var modelRefPattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+/[A-Za-z0-9_.:-]+$`)

const (
	cacheTTL     = 30 * time.Minute
	maxCacheSize = 64
)

type cacheEntry struct {
	model     *Model
	createdAt time.Time
}

// Info describes one configured model for listing purposes, grounded on
// manager.py's list_available_models dict shape.
type Info struct {
	Provider    string
	Model       string
	FullName    string
	APIType     string
	APIBase     string
	IsEmbedding bool
}

// Registry resolves "provider/model" names against a set of configured
// providers, lazily building and caching Model handles.
//
// Grounded on manager.py's module-level _model_cache: a
// map[string]tuple[Model,createdAt] with TTL-on-access expiry and
// oldest-entry eviction once the cache is full, rebuilt here as a
// mutex-guarded map instead of relying on the GIL for safety.
type Registry struct {
	mu        sync.Mutex
	providers map[string]types.ProviderConfig
	creds     map[string]*credential.Store
	transport *transport.Manager
	cache     map[string]*cacheEntry
	policy    executor.Policy
	now       func() time.Time

	// defaultName is guarded by mu, the same lock that protects the
	// provider/cache maps, rather than a lock of its own.
	defaultName string
}

// NewRegistry builds a Registry over a set of configured providers, each
// backed by its own credential.Store, sharing one transport.Manager for
// pooled HTTP clients across every adapter.
func NewRegistry(providers []types.ProviderConfig, transportMgr *transport.Manager, policy executor.Policy) (*Registry, error) {
	r := &Registry{
		providers: make(map[string]types.ProviderConfig, len(providers)),
		creds:     make(map[string]*credential.Store, len(providers)),
		transport: transportMgr,
		cache:     make(map[string]*cacheEntry),
		policy:    policy,
		now:       time.Now,
	}

	for _, p := range providers {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		creds := make([]types.Credential, len(p.APIKeys))
		for i, key := range p.APIKeys {
			creds[i] = types.Credential{ID: fmt.Sprintf("%s-%d", p.Name, i), Secret: key}
		}
		store, err := credential.New(p.Name, creds)
		if err != nil {
			return nil, err
		}
		r.providers[strings.ToLower(p.Name)] = p
		r.creds[strings.ToLower(p.Name)] = store
	}

	return r, nil
}

// Credentials returns the credential.Store backing provider, for callers
// that need direct access to key-usage statistics or reset operations
// (cmd/gatewayctl's "keys" subcommands).
func (r *Registry) Credentials(provider string) (*credential.Store, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.creds[strings.ToLower(provider)]
	return s, ok
}

// Get resolves a "provider/model" identifier to a Model handle, building
// and caching it on first use. An empty name resolves to the current
// global default, per manager.py's get_model_instance fallback chain.
func (r *Registry) Get(name string, override *types.GenerationConfig) (*Model, error) {
	resolved := name
	if resolved == "" {
		resolved = r.Default()
		if resolved == "" {
			available := r.ListAvailable()
			if len(available) == 0 {
				return nil, types.New(types.ErrConfig, "no AI models configured")
			}
			resolved = available[0].FullName
		}
	}

	ref, err := parseModelRef(resolved)
	if err != nil {
		return nil, err
	}

	key := cacheKey(resolved, override)

	r.mu.Lock()
	if cached, ok := r.cache[key]; ok {
		if r.now().Sub(cached.createdAt) <= cacheTTL {
			m := cached.model
			r.mu.Unlock()
			return m, nil
		}
		delete(r.cache, key)
	}
	r.mu.Unlock()

	m, err := r.build(ref, override)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	if len(r.cache) >= maxCacheSize {
		r.evictOldestLocked()
	}
	r.cache[key] = &cacheEntry{model: m, createdAt: r.now()}
	r.mu.Unlock()

	return m, nil
}

// Flush clears every cached Model handle, forcing the next Get to rebuild.
func (r *Registry) Flush() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache = make(map[string]*cacheEntry)
}

func (r *Registry) evictOldestLocked() {
	var oldestKey string
	var oldestTime time.Time
	first := true
	for k, e := range r.cache {
		if first || e.createdAt.Before(oldestTime) {
			oldestKey, oldestTime, first = k, e.createdAt, false
		}
	}
	if oldestKey != "" {
		delete(r.cache, oldestKey)
	}
}

// Default returns the current global default "provider/model" name, or
// "" if none is set.
func (r *Registry) Default() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.defaultName
}

// SetDefault sets the global default model name, validating it resolves
// to a configured provider/model. Passing "" clears the default.
// findModelEntry takes and releases mu itself before SetDefault takes it
// again to write defaultName, since mu is a plain Mutex and cannot be
// acquired twice by the same goroutine.
func (r *Registry) SetDefault(name string) error {
	if name != "" {
		ref, err := parseModelRef(name)
		if err != nil {
			return err
		}
		if _, _, ok := r.findModelEntry(ref); !ok {
			return types.New(types.ErrModelNotFound, "cannot set default: %q is not configured", name)
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defaultName = name
	return nil
}

// ListAvailable lists every configured model across every provider,
// grounded on manager.py's list_available_models.
func (r *Registry) ListAvailable() []Info {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Info
	for _, p := range r.providers {
		for _, me := range p.Models {
			out = append(out, Info{
				Provider:    p.Name,
				Model:       me.Name,
				FullName:    p.Name + "/" + me.Name,
				APIType:     p.APIType,
				APIBase:     p.APIBase,
				IsEmbedding: me.IsEmbedding,
			})
		}
	}
	return out
}

// ListEmbeddingModels filters ListAvailable down to embedding-only
// models, grounded on manager.py's list_embedding_models.
func (r *Registry) ListEmbeddingModels() []Info {
	var out []Info
	for _, info := range r.ListAvailable() {
		if info.IsEmbedding {
			out = append(out, info)
		}
	}
	return out
}

func (r *Registry) findModelEntry(ref types.ModelRef) (types.ProviderConfig, types.ModelEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.providers[strings.ToLower(ref.Provider)]
	if !ok {
		return types.ProviderConfig{}, types.ModelEntry{}, false
	}
	for _, me := range p.Models {
		if strings.EqualFold(me.Name, ref.Model) {
			return p, me, true
		}
	}
	return types.ProviderConfig{}, types.ModelEntry{}, false
}

// build constructs a new Model handle for ref, wiring its adapter,
// credential store, and executor together. Grounded on manager.py's
// get_model_instance body past the cache check: config lookup,
// capability inference, and LLMModel construction.
func (r *Registry) build(ref types.ModelRef, override *types.GenerationConfig) (*Model, error) {
	provider, entry, ok := r.findModelEntry(ref)
	if !ok {
		return nil, types.New(types.ErrModelNotFound, "model %q is not configured", ref.String())
	}

	r.mu.Lock()
	store := r.creds[strings.ToLower(provider.Name)]
	r.mu.Unlock()

	a, err := adapter.Build(provider.APIType, adapter.Options{HTTPClientFor: r.clientFor})
	if err != nil {
		return nil, err
	}

	endpoint := adapter.Endpoint{APIBase: provider.APIBase, Timeout: provider.TimeoutSec, Proxy: provider.Proxy}

	call := func(ctx context.Context, cred types.Credential, req types.Request) (types.Response, error) {
		return a.Generate(ctx, endpoint, cred.Secret, req)
	}

	exec := executor.New(store, call, r.policy)

	defaults := types.GenerationConfig{}
	if provider.Temperature != nil {
		defaults.Temperature = provider.Temperature
	}
	if provider.MaxTokens != nil {
		defaults.MaxTokens = provider.MaxTokens
	}
	if entry.DefaultTemp != nil {
		defaults.Temperature = entry.DefaultTemp
	}
	if entry.DefaultMaxToken != nil {
		defaults.MaxTokens = entry.DefaultMaxToken
	}
	if override != nil {
		defaults = defaults.Merge(*override)
	}

	capabilities := types.GetCapabilities(entry.Name)

	return &Model{
		ref:          ref,
		adapter:      a,
		endpoint:     endpoint,
		creds:        store,
		exec:         exec,
		capabilities: capabilities,
		defaults:     defaults,
	}, nil
}

func (r *Registry) clientFor(timeout time.Duration, proxy string) (*http.Client, error) {
	return r.transport.Client(timeout, proxy)
}

func parseModelRef(name string) (types.ModelRef, error) {
	if !modelRefPattern.MatchString(name) {
		return types.ModelRef{}, types.New(types.ErrModelNotFound, "invalid model identifier %q, expected \"provider/model\"", name)
	}
	parts := strings.SplitN(name, "/", 2)
	return types.ModelRef{Provider: parts[0], Model: parts[1]}, nil
}

// cacheKey mirrors manager.py's _make_cache_key: an md5 hash of the
// resolved name plus a canonical JSON encoding of the override config, so
// two calls with equivalent overrides share a cached Model.
func cacheKey(name string, override *types.GenerationConfig) string {
	payload := "None"
	if override != nil {
		b, _ := json.Marshal(override)
		payload = string(b)
	}
	sum := md5.Sum([]byte(name + ":" + payload))
	return hex.EncodeToString(sum[:])
}
