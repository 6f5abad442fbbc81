package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "gateway.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing temp config: %v", err)
	}
	return path
}

func TestLoadProvidersValidConfig(t *testing.T) {
	path := writeTempConfig(t, `
proxy: http://127.0.0.1:7890
timeout: 60
providers:
  - name: GLM
    api_key: ["key-a"]
    api_type: zhipu
    models:
      - name: glm-4-flash
`)

	providers, err := LoadProviders(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(providers) != 1 {
		t.Fatalf("expected 1 provider, got %d", len(providers))
	}
	p := providers[0]
	if p.Proxy != "http://127.0.0.1:7890" {
		t.Errorf("expected global proxy to apply, got %q", p.Proxy)
	}
	if p.APIBase != "https://open.bigmodel.cn" {
		t.Errorf("expected default api_base for zhipu, got %q", p.APIBase)
	}
	if p.TimeoutSec != 60 {
		t.Errorf("expected global timeout to apply, got %d", p.TimeoutSec)
	}
}

func TestLoadAcceptsScalarAPIKey(t *testing.T) {
	path := writeTempConfig(t, `
providers:
  - name: GLM
    api_key: sk-single-key
    api_type: zhipu
    models:
      - name: glm-4-flash
`)

	providers, err := LoadProviders(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(providers) != 1 {
		t.Fatalf("expected 1 provider, got %d", len(providers))
	}
	keys := providers[0].APIKeys
	if len(keys) != 1 || keys[0] != "sk-single-key" {
		t.Errorf("expected a single key [sk-single-key], got %v", keys)
	}
}

func TestLoadRejectsDuplicateProviderNames(t *testing.T) {
	path := writeTempConfig(t, `
providers:
  - name: GLM
    api_key: ["a"]
    api_type: zhipu
    models: [{name: glm-4-flash}]
  - name: glm
    api_key: ["b"]
    api_type: zhipu
    models: [{name: glm-4-plus}]
`)

	if _, err := Load(path); err == nil {
		t.Error("expected error for duplicate provider names")
	}
}

func TestLoadRejectsUnknownDefaultModel(t *testing.T) {
	path := writeTempConfig(t, `
default_model_name: GLM/does-not-exist
providers:
  - name: GLM
    api_key: ["a"]
    api_type: zhipu
    models: [{name: glm-4-flash}]
`)

	if _, err := Load(path); err == nil {
		t.Error("expected error for unresolvable default_model_name")
	}
}

func TestLoadRejectsEmptyProviderList(t *testing.T) {
	path := writeTempConfig(t, `providers: []`)
	if _, err := Load(path); err == nil {
		t.Error("expected error for empty provider list")
	}
}

func TestExecutorPolicyOverridesDefaults(t *testing.T) {
	f := File{MaxRetries: 5, RetryDelaySec: 2}
	policy := f.ExecutorPolicy()
	if policy.MaxRetries != 5 {
		t.Errorf("expected MaxRetries 5, got %d", policy.MaxRetries)
	}
}
