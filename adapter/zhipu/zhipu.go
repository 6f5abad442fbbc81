// Package zhipu adapts the canonical types.Request/Response shapes to
// Zhipu's GLM Chat Completions API, an OpenAI-compatible dialect that
// differs in its auth header (a short-lived JWT derived from the
// "id.secret" API key) and its error envelope. It reuses the same
// sashabaranov/go-openai client and oaiwire translation openaicompat does,
// substituting its own token signing and error extraction in place of a
// bare bearer token.
package zhipu

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/nexusllm/gateway/adapter"
	"github.com/nexusllm/gateway/adapter/internal/oaiwire"
	"github.com/nexusllm/gateway/types"
)

const defaultBaseURL = "https://open.bigmodel.cn/api/paas/v4"

const tokenTTL = 5 * time.Minute

func init() {
	adapter.Register("zhipu", func(opts adapter.Options) (adapter.Adapter, error) {
		return New(opts), nil
	})
}

// Adapter implements adapter.Adapter against Zhipu's GLM API.
type Adapter struct {
	clientFor func(timeout time.Duration, proxy string) (*http.Client, error)
}

// New builds an Adapter using opts.HTTPClientFor to obtain pooled clients.
func New(opts adapter.Options) *Adapter {
	return &Adapter{clientFor: opts.HTTPClientFor}
}

// APIType returns "zhipu".
func (a *Adapter) APIType() string { return "zhipu" }

// Supports mirrors openaicompat's answer, since zhipu speaks the same
// Chat Completions dialect over the same go-openai client.
func (a *Adapter) Supports(feature string) bool {
	switch feature {
	case adapter.FeatureTools, adapter.FeatureJSONMode, adapter.FeatureMultimodal, adapter.FeatureEmbeddings:
		return true
	default:
		return false
	}
}

// Generate performs one GLM Chat Completions call, authenticating with a
// signed JWT instead of a bare bearer token.
func (a *Adapter) Generate(ctx context.Context, ep adapter.Endpoint, secret string, req types.Request) (types.Response, error) {
	if err := req.Config.Validate(); err != nil {
		return types.Response{}, err
	}

	token, err := signToken(secret)
	if err != nil {
		return types.Response{}, types.Wrap(types.ErrAuth, err, "signing zhipu api key")
	}

	timeout := time.Duration(ep.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 180 * time.Second
	}

	httpClient, err := a.clientFor(timeout, ep.Proxy)
	if err != nil {
		return types.Response{}, types.Wrap(types.ErrConfig, err, "building http client")
	}

	cfg := openai.DefaultConfig(token)
	cfg.BaseURL = defaultBaseURL
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
		return types.Response{}, classifyZhipuError(err)
	}

	return oaiwire.FromResponse(resp, "zhipu"), nil
}

// Embed performs one GLM embeddings call, authenticating the same way
// Generate does.
func (a *Adapter) Embed(ctx context.Context, ep adapter.Endpoint, secret string, req types.EmbedRequest) (types.EmbedResponse, error) {
	token, err := signToken(secret)
	if err != nil {
		return types.EmbedResponse{}, types.Wrap(types.ErrAuth, err, "signing zhipu api key")
	}

	timeout := time.Duration(ep.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 180 * time.Second
	}

	httpClient, err := a.clientFor(timeout, ep.Proxy)
	if err != nil {
		return types.EmbedResponse{}, types.Wrap(types.ErrConfig, err, "building http client")
	}

	cfg := openai.DefaultConfig(token)
	cfg.BaseURL = defaultBaseURL
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
		return types.EmbedResponse{}, classifyZhipuError(err)
	}

	vectors := make([][]float64, len(resp.Data))
	for i, d := range resp.Data {
		vec := make([]float64, len(d.Embedding))
		for j, f := range d.Embedding {
			vec[j] = float64(f)
		}
		vectors[i] = vec
	}

	return types.EmbedResponse{Embeddings: vectors, Model: string(resp.Model), Provider: "zhipu"}, nil
}

// signToken builds the short-lived JWT GLM's API expects, derived from an
// "id.secret" shaped API key: header {alg: HS256, sign_type: SIGN}, payload
// {api_key: id, exp, timestamp}, signed with HMAC-SHA256 over the secret.
func signToken(apiKey string) (string, error) {
	parts := strings.SplitN(apiKey, ".", 2)
	if len(parts) != 2 {
		return "", fmt.Errorf("zhipu api key must be in \"id.secret\" form")
	}
	id, secret := parts[0], parts[1]

	now := time.Now()
	header := map[string]string{"alg": "HS256", "sign_type": "SIGN"}
	payload := map[string]int64{
		"timestamp": now.UnixMilli(),
		"exp":       now.Add(tokenTTL).UnixMilli(),
	}
	payload2 := map[string]any{"api_key": id, "timestamp": payload["timestamp"], "exp": payload["exp"]}

	headerJSON, _ := json.Marshal(header)
	payloadJSON, _ := json.Marshal(payload2)

	headerB64 := base64.RawURLEncoding.EncodeToString(headerJSON)
	payloadB64 := base64.RawURLEncoding.EncodeToString(payloadJSON)

	signingInput := headerB64 + "." + payloadB64
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(signingInput))
	sig := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))

	return signingInput + "." + sig, nil
}
