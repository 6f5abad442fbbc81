// Package openaicompat adapts the canonical types.Request/types.Response
// shapes to the OpenAI Chat Completions wire format, reused by any
// provider that speaks the same protocol against a custom api_base
// (OpenAI itself, DeepSeek, and any other OpenAI-compatible endpoint),
// parameterized by adapter.Endpoint.APIBase rather than hardcoded to one
// host.
package openaicompat

import (
	"context"
	"errors"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/nexusllm/gateway/adapter"
	"github.com/nexusllm/gateway/adapter/internal/oaiwire"
	"github.com/nexusllm/gateway/types"
)

func init() {
	adapter.Register("openai", func(opts adapter.Options) (adapter.Adapter, error) {
		return New(opts), nil
	})
}

// Adapter implements adapter.Adapter against an OpenAI-compatible endpoint.
type Adapter struct {
	clientFor func(timeout time.Duration, proxy string) (*http.Client, error)
}

// New builds an Adapter using opts.HTTPClientFor to obtain pooled clients.
func New(opts adapter.Options) *Adapter {
	return &Adapter{clientFor: opts.HTTPClientFor}
}

// APIType returns "openai".
func (a *Adapter) APIType() string { return "openai" }

// Supports reports tools, json_mode, embeddings (via CreateEmbeddings),
// and multimodal input — the last gated per-model by
// types.GetCapabilities rather than unconditionally, since not every
// Chat Completions model accepts an image part.
func (a *Adapter) Supports(feature string) bool {
	switch feature {
	case adapter.FeatureTools, adapter.FeatureJSONMode, adapter.FeatureMultimodal, adapter.FeatureEmbeddings:
		return true
	default:
		return false
	}
}

// Generate performs one OpenAI Chat Completions call.
func (a *Adapter) Generate(ctx context.Context, ep adapter.Endpoint, secret string, req types.Request) (types.Response, error) {
	if err := req.Config.Validate(); err != nil {
		return types.Response{}, err
	}

	timeout := time.Duration(ep.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 180 * time.Second
	}

	httpClient, err := a.clientFor(timeout, ep.Proxy)
	if err != nil {
		return types.Response{}, types.Wrap(types.ErrConfig, err, "building http client")
	}

	cfg := openai.DefaultConfig(secret)
	if ep.APIBase != "" {
		cfg.BaseURL = ep.APIBase
	}
	cfg.HTTPClient = httpClient
	client := openai.NewClientWithConfig(cfg)

	wireReq, err := oaiwire.ToRequest(req)
	if err != nil {
		return types.Response{}, err
	}

	resp, err := client.CreateChatCompletion(ctx, wireReq)
	if err != nil {
		var apiErr *openai.APIError
		errors.As(err, &apiErr)
		return types.Response{}, oaiwire.ClassifyError(err, apiErr)
	}

	return oaiwire.FromResponse(resp, "openai"), nil
}

// Embed performs one OpenAI-compatible embeddings call.
func (a *Adapter) Embed(ctx context.Context, ep adapter.Endpoint, secret string, req types.EmbedRequest) (types.EmbedResponse, error) {
	timeout := time.Duration(ep.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 180 * time.Second
	}

	httpClient, err := a.clientFor(timeout, ep.Proxy)
	if err != nil {
		return types.EmbedResponse{}, types.Wrap(types.ErrConfig, err, "building http client")
	}

	cfg := openai.DefaultConfig(secret)
	if ep.APIBase != "" {
		cfg.BaseURL = ep.APIBase
	}
	cfg.HTTPClient = httpClient
	client := openai.NewClientWithConfig(cfg)

	resp, err := client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: req.Input,
		Model: openai.EmbeddingModel(req.Model),
	})
	if err != nil {
		var apiErr *openai.APIError
		errors.As(err, &apiErr)
		return types.EmbedResponse{}, oaiwire.ClassifyError(err, apiErr)
	}

	vectors := make([][]float64, len(resp.Data))
	for i, d := range resp.Data {
		vec := make([]float64, len(d.Embedding))
		for j, f := range d.Embedding {
			vec[j] = float64(f)
		}
		vectors[i] = vec
	}

	return types.EmbedResponse{
		Embeddings: vectors,
		Model:      string(resp.Model),
		Provider:   "openai",
		Usage: &types.TokenUsage{
			PromptTokens: uint32(resp.Usage.PromptTokens),
			TotalTokens:  uint32(resp.Usage.TotalTokens),
		},
	}, nil
}
