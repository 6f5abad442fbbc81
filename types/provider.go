package types

import (
	"time"

	"gopkg.in/yaml.v3"
)

// ModelEntry describes one model a ProviderConfig exposes, grounded on
// zhenxun's types/models.py ModelDetail.
type ModelEntry struct {
	Name            string   `yaml:"name"`
	IsEmbedding     bool     `yaml:"is_embedding"`
	DefaultTemp     *float64 `yaml:"default_temperature"`
	DefaultMaxToken *int     `yaml:"default_max_tokens"`
}

// APIKeys is a provider's rotatable credential list. A config file may
// write it as a YAML list or, in the common single-key case, as a bare
// scalar string — UnmarshalYAML accepts either instead of forcing every
// provider with one key to spell it as a one-element list.
type APIKeys []string

// UnmarshalYAML accepts api_key as either a scalar string or a list.
func (k *APIKeys) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		var s string
		if err := value.Decode(&s); err != nil {
			return err
		}
		*k = APIKeys{s}
		return nil
	}
	var list []string
	if err := value.Decode(&list); err != nil {
		return err
	}
	*k = APIKeys(list)
	return nil
}

// ProviderConfig is a provider's static configuration: its credentials,
// endpoint, api_type, and the models it exposes. Grounded on zhenxun's
// types/models.py ProviderConfig, translated from Pydantic to a plain Go
// struct the config package loads from YAML.
type ProviderConfig struct {
	Name         string       `yaml:"name"`
	APIKeys      APIKeys      `yaml:"api_key"`
	APIBase      string       `yaml:"api_base"`
	APIType      string       `yaml:"api_type"`
	OpenAICompat bool         `yaml:"openai_compat"`
	Temperature  *float64     `yaml:"temperature"`
	MaxTokens    *int         `yaml:"max_tokens"`
	Models       []ModelEntry `yaml:"models"`
	TimeoutSec   int          `yaml:"timeout"`
	Proxy        string       `yaml:"proxy"`
}

// Validate ensures a ProviderConfig names at least one credential, one
// model, and a recognized api_type.
func (p ProviderConfig) Validate() error {
	if p.Name == "" {
		return New(ErrConfig, "provider config missing name")
	}
	if len(p.APIKeys) == 0 {
		return New(ErrConfig, "provider %q must declare at least one api_key", p.Name)
	}
	if len(p.Models) == 0 {
		return New(ErrConfig, "provider %q must declare at least one model", p.Name)
	}
	if p.APIType == "" {
		return New(ErrConfig, "provider %q missing api_type", p.Name)
	}
	return nil
}

// Timeout returns the configured request timeout, defaulting to 180s to
// match the original's HttpClientConfig default.
func (p ProviderConfig) Timeout() time.Duration {
	if p.TimeoutSec <= 0 {
		return 180 * time.Second
	}
	return time.Duration(p.TimeoutSec) * time.Second
}

// ModelRef names a specific model as "provider/model", the identifier
// callers pass to the gateway's Get/Generate entry points.
type ModelRef struct {
	Provider string
	Model    string
}

func (r ModelRef) String() string {
	return r.Provider + "/" + r.Model
}
