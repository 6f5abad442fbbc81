// Package config loads the gateway's provider configuration from YAML:
// parse, validate, apply defaults, and fail loudly on anything malformed.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nexusllm/gateway/executor"
	"github.com/nexusllm/gateway/types"
)

// File is the top-level shape of the gateway's YAML configuration file,
// grounded on zhenxun's LLMConfig.
type File struct {
	DefaultModelName string                 `yaml:"default_model_name"`
	Proxy            string                 `yaml:"proxy"`
	TimeoutSec       int                    `yaml:"timeout"`
	MaxRetries       int                    `yaml:"max_retries_llm"`
	RetryDelaySec    int                    `yaml:"retry_delay_llm"`
	Providers        []types.ProviderConfig `yaml:"providers"`
}

// Load reads and parses a gateway configuration file from path.
func Load(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("reading config file %q: %w", path, err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return File{}, fmt.Errorf("parsing config file %q: %w", path, err)
	}

	if err := f.applyGlobalDefaults(); err != nil {
		return File{}, err
	}
	if err := f.Validate(); err != nil {
		return File{}, err
	}
	return f, nil
}

// LoadProviders reads path and returns just the validated provider list.
func LoadProviders(path string) ([]types.ProviderConfig, error) {
	f, err := Load(path)
	if err != nil {
		return nil, err
	}
	return f.Providers, nil
}

// applyGlobalDefaults pushes the file-level proxy/timeout down onto any
// provider that didn't set its own, grounded on manager.py's
// get_model_instance layering ai_config's global proxy/timeout under a
// provider's own settings.
func (f *File) applyGlobalDefaults() error {
	for i := range f.Providers {
		p := &f.Providers[i]
		if p.Proxy == "" {
			p.Proxy = f.Proxy
		}
		if p.TimeoutSec == 0 {
			if f.TimeoutSec > 0 {
				p.TimeoutSec = f.TimeoutSec
			}
		}
		if p.APIBase == "" {
			if base, ok := defaultAPIBase(p.APIType); ok {
				p.APIBase = base
			}
		}
	}
	return nil
}

// defaultAPIBase mirrors manager.py's get_default_api_base_for_type.
func defaultAPIBase(apiType string) (string, bool) {
	switch apiType {
	case "openai":
		return "https://api.openai.com", true
	case "zhipu":
		return "https://open.bigmodel.cn", true
	case "gemini":
		return "https://generativelanguage.googleapis.com", true
	case "anthropic":
		return "https://api.anthropic.com", true
	default:
		return "", false
	}
}

// Validate enforces validate_llm_config's checks: non-negative
// timeout/retry values, at least one provider, no duplicate provider names, no
// duplicate model names within a provider, and a default model name that
// actually resolves.
func (f File) Validate() error {
	if f.TimeoutSec < 0 {
		return types.New(types.ErrConfig, "timeout must not be negative")
	}
	if f.MaxRetries < 0 {
		return types.New(types.ErrConfig, "max_retries_llm must not be negative")
	}
	if f.RetryDelaySec < 0 {
		return types.New(types.ErrConfig, "retry_delay_llm must not be negative")
	}
	if len(f.Providers) == 0 {
		return types.New(types.ErrConfig, "at least one provider must be configured")
	}

	seenProviders := make(map[string]bool, len(f.Providers))
	for _, p := range f.Providers {
		if err := p.Validate(); err != nil {
			return err
		}
		lower := strings.ToLower(p.Name)
		if seenProviders[lower] {
			return types.New(types.ErrConfig, "duplicate provider name %q", p.Name)
		}
		seenProviders[lower] = true

		seenModels := make(map[string]bool, len(p.Models))
		for _, m := range p.Models {
			lowerModel := strings.ToLower(m.Name)
			if seenModels[lowerModel] {
				return types.New(types.ErrConfig, "provider %q has duplicate model name %q", p.Name, m.Name)
			}
			seenModels[lowerModel] = true
		}
	}

	if f.DefaultModelName != "" && !f.hasModel(f.DefaultModelName) {
		return types.New(types.ErrConfig, "default_model_name %q does not match any configured model", f.DefaultModelName)
	}

	return nil
}

func (f File) hasModel(providerModelName string) bool {
	parts := strings.SplitN(providerModelName, "/", 2)
	if len(parts) != 2 {
		return false
	}
	for _, p := range f.Providers {
		if !strings.EqualFold(p.Name, parts[0]) {
			continue
		}
		for _, m := range p.Models {
			if strings.EqualFold(m.Name, parts[1]) {
				return true
			}
		}
	}
	return false
}

// ExecutorPolicy builds an executor.Policy from the file's top-level
// retry settings, falling back to executor.DefaultPolicy for any unset
// field.
func (f File) ExecutorPolicy() executor.Policy {
	policy := executor.DefaultPolicy()
	if f.MaxRetries > 0 {
		policy.MaxRetries = f.MaxRetries
	}
	if f.RetryDelaySec > 0 {
		policy.BaseDelay = time.Duration(f.RetryDelaySec) * time.Second
	}
	return policy
}
