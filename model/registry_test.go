package model

import (
	"context"
	"testing"
	"time"

	"github.com/nexusllm/gateway/adapter"
	"github.com/nexusllm/gateway/executor"
	"github.com/nexusllm/gateway/transport"
	"github.com/nexusllm/gateway/types"
)

type fakeAdapter struct{ calls int }

func (f *fakeAdapter) APIType() string { return "model-test-fake" }

func (f *fakeAdapter) Generate(ctx context.Context, ep adapter.Endpoint, secret string, req types.Request) (types.Response, error) {
	f.calls++
	return types.Response{Content: []types.ContentPart{types.TextPart("ok")}, FinishReason: types.FinishStop}, nil
}

func (f *fakeAdapter) Supports(feature string) bool { return false }

func init() {
	adapter.Register("model-test-fake", func(opts adapter.Options) (adapter.Adapter, error) {
		return &fakeAdapter{}, nil
	})
}

func testFloat(f float64) *float64 { return &f }

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	providers := []types.ProviderConfig{
		{
			Name:        "testprov",
			APIKeys:     []string{"key-a", "key-b"},
			APIType:     "model-test-fake",
			Temperature: testFloat(0.5),
			Models:      []types.ModelEntry{{Name: "test-model"}},
		},
	}
	reg, err := NewRegistry(providers, transport.NewManager(transport.PoolConfig{}), executor.DefaultPolicy())
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return reg
}

func TestRegistryGetResolvesAndCaches(t *testing.T) {
	reg := newTestRegistry(t)

	m1, err := reg.Get("testprov/test-model", nil)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	m2, err := reg.Get("testprov/test-model", nil)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if m1 != m2 {
		t.Error("expected cached Model handle to be reused")
	}
}

func TestRegistryGetUnknownModel(t *testing.T) {
	reg := newTestRegistry(t)
	if _, err := reg.Get("testprov/missing", nil); err == nil {
		t.Error("expected error for unconfigured model")
	}
}

func TestRegistrySetDefaultRejectsUnconfigured(t *testing.T) {
	reg := newTestRegistry(t)
	if err := reg.SetDefault("testprov/missing"); err == nil {
		t.Error("expected error setting default to an unconfigured model")
	}
	if err := reg.SetDefault("testprov/test-model"); err != nil {
		t.Fatalf("SetDefault: %v", err)
	}
	if reg.Default() != "testprov/test-model" {
		t.Errorf("expected default to be set, got %q", reg.Default())
	}
}

func TestRegistryGetFallsBackToDefault(t *testing.T) {
	reg := newTestRegistry(t)
	if err := reg.SetDefault("testprov/test-model"); err != nil {
		t.Fatalf("SetDefault: %v", err)
	}
	m, err := reg.Get("", nil)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if m.Ref().String() != "testprov/test-model" {
		t.Errorf("expected default model, got %v", m.Ref())
	}
}

func TestRegistryListAvailable(t *testing.T) {
	reg := newTestRegistry(t)
	list := reg.ListAvailable()
	if len(list) != 1 || list[0].FullName != "testprov/test-model" {
		t.Errorf("expected 1 model 'testprov/test-model', got %+v", list)
	}
}

func TestModelGenerateMergesDefaults(t *testing.T) {
	reg := newTestRegistry(t)
	m, err := reg.Get("testprov/test-model", nil)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	resp, err := m.Generate(context.Background(), []types.Message{types.UserMessage("hi")}, types.GenerationConfig{}, nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if resp.Text() != "ok" {
		t.Errorf("expected 'ok', got %q", resp.Text())
	}
}

func TestRegistryFlushClearsCache(t *testing.T) {
	reg := newTestRegistry(t)
	m1, _ := reg.Get("testprov/test-model", nil)
	reg.Flush()
	m2, _ := reg.Get("testprov/test-model", nil)
	if m1 == m2 {
		t.Error("expected Flush to force a rebuild")
	}
}

func TestParseModelRefRejectsMalformedIdentifiers(t *testing.T) {
	bad := []string{"", "noslash", "/missing-provider", "provider/", "has space/model", "provider/model/extra"}
	for _, name := range bad {
		if _, err := parseModelRef(name); err == nil {
			t.Errorf("expected error for malformed identifier %q", name)
		}
	}
}

func TestRegistryGetExpiresEntryAfterTTL(t *testing.T) {
	reg := newTestRegistry(t)

	clock := time.Now()
	reg.now = func() time.Time { return clock }

	h1, err := reg.Get("testprov/test-model", nil)
	if err != nil {
		t.Fatalf("Get at t=0: %v", err)
	}

	clock = clock.Add(50 * time.Millisecond)
	h2, err := reg.Get("testprov/test-model", nil)
	if err != nil {
		t.Fatalf("Get at t=50ms: %v", err)
	}
	if h1 != h2 {
		t.Error("expected the cached handle to still be returned well within the TTL")
	}

	clock = clock.Add(cacheTTL)
	h3, err := reg.Get("testprov/test-model", nil)
	if err != nil {
		t.Fatalf("Get past TTL: %v", err)
	}
	if h3 == h1 {
		t.Error("expected a new handle once the cached entry's TTL has elapsed")
	}
}

func TestRegistryEvictsOldestEntryAtCapacity(t *testing.T) {
	reg := newTestRegistry(t)

	clock := time.Now()
	reg.now = func() time.Time { return clock }

	first, err := reg.Get("testprov/test-model", &types.GenerationConfig{Temperature: testFloat(0.1)})
	if err != nil {
		t.Fatalf("Get seed entry: %v", err)
	}

	for i := 0; i < maxCacheSize; i++ {
		clock = clock.Add(time.Millisecond)
		temp := 0.2 + float64(i)*0.001
		if _, err := reg.Get("testprov/test-model", &types.GenerationConfig{Temperature: testFloat(temp)}); err != nil {
			t.Fatalf("Get filler entry %d: %v", i, err)
		}
	}

	reg.mu.Lock()
	cacheSize := len(reg.cache)
	reg.mu.Unlock()
	if cacheSize != maxCacheSize {
		t.Fatalf("expected cache capped at %d entries, got %d", maxCacheSize, cacheSize)
	}

	again, err := reg.Get("testprov/test-model", &types.GenerationConfig{Temperature: testFloat(0.1)})
	if err != nil {
		t.Fatalf("Get evicted entry: %v", err)
	}
	if again == first {
		t.Error("expected the oldest entry to have been evicted and rebuilt, not reused")
	}
}

func TestParseModelRefAcceptsTaggedModelName(t *testing.T) {
	ref, err := parseModelRef("ollama/llama3:8b")
	if err != nil {
		t.Fatalf("parseModelRef: %v", err)
	}
	if ref.Provider != "ollama" || ref.Model != "llama3:8b" {
		t.Errorf("expected provider=ollama model=llama3:8b, got %+v", ref)
	}
}
