// Package executor drives one logical LLM call through retry, credential
// rotation, and error classification, isolating that policy from the
// adapter that actually speaks a provider's wire protocol.
//
// Information Hiding:
// - backoff algorithm is hidden behind backoff
// - the decision of which credential to retry with is hidden behind the
//   classification table in classify.go
package executor

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nexusllm/gateway/types"
)

// CredentialStore is the subset of credential.Store the executor depends
// on, kept as an interface so executor does not import credential
// directly and can be tested with a fake.
type CredentialStore interface {
	Acquire(excluded map[string]bool) (types.Credential, error)
	ReportSuccess(credentialID string, latencyMs float64)
	ReportFailure(credentialID string, kind types.ErrorKind, errMsg string)
}

// Caller performs one HTTP round trip against a provider using the given
// credential, returning a Response or a classified *types.LLMError.
type Caller func(ctx context.Context, cred types.Credential, req types.Request) (types.Response, error)

// Policy configures retry behavior. Grounded on core.py's RetryConfig.
type Policy struct {
	MaxRetries         int
	BaseDelay          time.Duration
	MaxDelay           time.Duration
	ExponentialBackoff bool
	Jitter             bool
}

// DefaultPolicy is a bounded exponential backoff with ±25% jitter: 2
// retries (3 total attempts), starting at 500ms and doubling up to an 8s
// cap.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:         2,
		BaseDelay:          500 * time.Millisecond,
		MaxDelay:           8 * time.Second,
		ExponentialBackoff: true,
		Jitter:             true,
	}
}

// Executor retries a Caller across credentials according to a Policy,
// classifying each failure to decide whether to retry at all, and if so,
// whether to keep or rotate the credential.
type Executor struct {
	policy Policy
	store  CredentialStore
	call   Caller
	now    func() time.Time
	sleep  func(context.Context, time.Duration) error
	rngMu  sync.Mutex
	rng    *rand.Rand
	logger *slog.Logger
}

// New builds an Executor over store using call to perform each attempt.
func New(store CredentialStore, call Caller, policy Policy) *Executor {
	return &Executor{
		policy: policy,
		store:  store,
		call:   call,
		now:    time.Now,
		sleep:  sleepCtx,
		rng:    rand.New(rand.NewSource(1)),
		logger: slog.Default(),
	}
}

// WithLogger overrides the Executor's *slog.Logger, injected explicitly by
// the caller rather than read from a package global.
func (e *Executor) WithLogger(logger *slog.Logger) *Executor {
	e.logger = logger
	return e
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// Run executes req, retrying per policy until success, exhaustion, or a
// fatal classification. On exhaustion it returns a *types.RequestFailed
// carrying the full attempt history.
func (e *Executor) Run(ctx context.Context, req types.Request) (types.Response, error) {
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}

	excluded := make(map[string]bool)
	var attempts []types.Attempt

	for attempt := 0; attempt <= e.policy.MaxRetries; attempt++ {
		if ctx.Err() != nil {
			return types.Response{}, ctx.Err()
		}

		cred, err := e.store.Acquire(excluded)
		if err != nil {
			attempts = append(attempts, types.Attempt{Kind: types.ErrNoCredentials, Err: err})
			return types.Response{}, &types.RequestFailed{
				Last:     types.Wrap(types.ErrNoCredentials, err, "no credential available"),
				Attempts: attempts,
			}
		}

		start := e.now()
		resp, callErr := e.call(ctx, cred, req)
		latencyMs := float64(e.now().Sub(start).Milliseconds())

		if callErr == nil {
			e.store.ReportSuccess(cred.ID, latencyMs)
			return resp, nil
		}

		classified := classify(callErr)
		attempts = append(attempts, types.Attempt{
			CredentialID: cred.ID,
			Kind:         classified.Kind,
			Err:          classified,
			LatencyMs:    int64(latencyMs),
		})

		if classified.Kind == types.ErrCanceled {
			e.logger.Warn("request canceled", "request_id", req.RequestID, "model", req.Model, "credential", cred.ID)
			return types.Response{}, &types.RequestFailed{Last: classified, Attempts: attempts}
		}

		e.store.ReportFailure(cred.ID, classified.Kind, classified.Message)

		if !classified.Retryable {
			e.logger.Error("request failed, non-retryable", "request_id", req.RequestID, "model", req.Model, "credential", cred.ID, "kind", classified.Kind)
			return types.Response{}, &types.RequestFailed{Last: classified, Attempts: attempts}
		}

		if needsNewCredential(classified.Kind) {
			excluded[cred.ID] = true
		}

		if attempt >= retryCap(classified.Kind, e.policy.MaxRetries) {
			e.logger.Error("request failed, retries exhausted", "request_id", req.RequestID, "model", req.Model, "attempts", len(attempts), "kind", classified.Kind)
			return types.Response{}, &types.RequestFailed{Last: classified, Attempts: attempts}
		}

		delay := e.backoff(attempt)
		e.logger.Warn("retrying request", "request_id", req.RequestID, "model", req.Model, "credential", cred.ID, "attempt", attempt+1, "kind", classified.Kind, "delay", delay)
		if err := e.sleep(ctx, delay); err != nil {
			return types.Response{}, err
		}
	}

	return types.Response{}, &types.RequestFailed{Last: types.New(types.ErrServer, "retry loop exited unexpectedly"), Attempts: attempts}
}

// backoff computes the delay before the next attempt: min(base*2^n, max)
// with ±25% jitter applied on top, grounded on tools/executor.go's
// calculateBackoff and spec'd exactly as `min(base·2^(n-1), max)·(1±jitter)`.
// A single Executor is shared by every concurrent Run call against the
// same cached Model handle, so the rng draw is guarded by rngMu rather
// than relying on *rand.Rand's (unsynchronized) default safety.
func (e *Executor) backoff(attempt int) time.Duration {
	delay := e.policy.BaseDelay
	if e.policy.ExponentialBackoff {
		delay = e.policy.BaseDelay * time.Duration(1<<uint(attempt))
	}
	if delay > e.policy.MaxDelay {
		delay = e.policy.MaxDelay
	}
	if e.policy.Jitter {
		e.rngMu.Lock()
		jitter := e.rng.Float64()
		e.rngMu.Unlock()
		delay = time.Duration(float64(delay) * (0.75 + jitter*0.5))
	}
	return delay
}

// needsNewCredential reports whether a classified error kind should
// exclude the current credential from the next attempt.
func needsNewCredential(kind types.ErrorKind) bool {
	switch kind {
	case types.ErrAuth, types.ErrRateLimited:
		return true
	default:
		return false
	}
}
