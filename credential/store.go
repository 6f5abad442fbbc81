// Package credential implements round-robin credential rotation with
// cooldown-based health tracking, one Store per provider.
//
// Information Hiding:
// - rotation index and per-credential stats are hidden behind the Store API
// - cooldown/disable escalation policy is encapsulated in ReportFailure
// - persistence (if any) is a pluggable Persister, not a hard SQLite dependency
package credential

import (
	"log/slog"
	"sync"
	"time"

	"github.com/nexusllm/gateway/types"
)

// Persister durably records credential stats so cooldowns and health
// survive a process restart. SQLitePersister is the bundled implementation.
type Persister interface {
	Load(provider string) (map[string]types.CredentialStats, error)
	Save(provider, credentialID string, stats types.CredentialStats) error
}

// entry is the store's internal per-credential bookkeeping.
type entry struct {
	cred  types.Credential
	stats types.CredentialStats
}

// Store rotates a provider's credentials round-robin, skipping any still
// in cooldown, and records success/failure outcomes to adjust health.
// Grounded on core.py's KeyStatusStore.
type Store struct {
	mu        sync.Mutex
	provider  string
	entries   []*entry
	next      int
	persister Persister
	now       func() time.Time
	logger    *slog.Logger
}

// Option configures a Store at construction time.
type Option func(*Store)

// WithPersister attaches a Persister that Store loads from at New and
// writes to after every recorded outcome.
func WithPersister(p Persister) Option {
	return func(s *Store) { s.persister = p }
}

// WithLogger attaches a *slog.Logger for cooldown/exhaustion events.
// Call sites inject this explicitly; Store never reaches for a package
// global logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// withClock overrides the time source, for deterministic tests.
func withClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New builds a Store for provider over the given credentials.
func New(provider string, creds []types.Credential, opts ...Option) (*Store, error) {
	s := &Store{
		provider: provider,
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	entries := make([]*entry, len(creds))
	for i, c := range creds {
		entries[i] = &entry{cred: c}
	}
	s.entries = entries

	if s.persister != nil {
		saved, err := s.persister.Load(provider)
		if err != nil {
			return nil, types.Wrap(types.ErrConfig, err, "loading credential stats for provider %q", provider)
		}
		for _, e := range s.entries {
			if st, ok := saved[e.cred.ID]; ok {
				e.stats = st
			}
		}
	}
	return s, nil
}

// Acquire returns the next available credential in round-robin order,
// skipping any whose cooldown has not elapsed. It never returns the same
// credential twice within a single caller-tracked `excluded` set, letting
// the executor avoid a credential that just failed within the same request.
func (s *Store) Acquire(excluded map[string]bool) (types.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.entries)
	if n == 0 {
		return types.Credential{}, types.New(types.ErrNoCredentials, "provider %q has no configured credentials", s.provider)
	}

	now := s.now()
	for i := 0; i < n; i++ {
		idx := (s.next + i) % n
		e := s.entries[idx]
		if excluded[e.cred.ID] {
			continue
		}
		if !e.stats.IsAvailable(now) {
			continue
		}
		s.next = (idx + 1) % n
		return e.cred, nil
	}
	s.logger.Warn("no available credential", "provider", s.provider, "candidates", n)
	return types.Credential{}, types.New(types.ErrNoCredentials, "no available credential for provider %q (all in cooldown or excluded)", s.provider)
}

// ReportSuccess records a successful call, clears any cooldown, and resets
// the consecutive-failure counter that drives cooldown escalation.
func (s *Store) ReportSuccess(credentialID string, latencyMs float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.find(credentialID)
	if e == nil {
		return
	}
	e.stats.SuccessCount++
	e.stats.TotalLatencyMs += latencyMs
	e.stats.CooldownUntil = time.Time{}
	e.stats.ConsecutiveFailures = 0
	s.persist(e)
}

// ReportFailure records a failed call and, for a retryable error kind,
// puts the credential into cooldown or disables it outright. Grounded on
// core.py's record_failure: an auth error disables the credential
// (core.py fakes this with a 1-year cooldown; Store uses an explicit
// flag instead), a rate limit backs off exponentially with each repeated
// hit up to a 10-minute cap, and a generic transient/server error only
// earns a cooldown once it has failed 3 times in a row.
func (s *Store) ReportFailure(credentialID string, kind types.ErrorKind, errMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.find(credentialID)
	if e == nil {
		return
	}
	e.stats.FailureCount++
	e.stats.LastError = errMsg
	e.stats.ConsecutiveFailures++

	switch kind {
	case types.ErrAuth:
		e.stats.Disabled = true
		s.logger.Warn("credential disabled",
			"provider", s.provider,
			"credential", maskSecret(e.cred.Secret),
			"kind", kind,
		)
	case types.ErrRateLimited:
		cooldown := rateLimitCooldown(e.stats.ConsecutiveFailures)
		e.stats.CooldownUntil = s.now().Add(cooldown)
		s.logger.Warn("credential entering cooldown",
			"provider", s.provider,
			"credential", maskSecret(e.cred.Secret),
			"kind", kind,
			"cooldown", cooldown,
			"consecutive_failures", e.stats.ConsecutiveFailures,
		)
	case types.ErrTransientNetwork, types.ErrServer:
		if e.stats.ConsecutiveFailures >= 3 {
			e.stats.CooldownUntil = s.now().Add(transientCooldown)
			s.logger.Warn("credential entering cooldown",
				"provider", s.provider,
				"credential", maskSecret(e.cred.Secret),
				"kind", kind,
				"cooldown", transientCooldown,
				"consecutive_failures", e.stats.ConsecutiveFailures,
			)
		}
	}
	s.persist(e)
}

// maskSecret truncates a credential secret to its first 4 and last 4
// characters for log correlation, mirroring core.py's _get_key_id so a
// live API key is never written to a log line in full.
func maskSecret(secret string) string {
	if len(secret) <= 8 {
		return "***"
	}
	return secret[:4] + "..." + secret[len(secret)-4:]
}

// transientCooldown is the fixed cooldown a transient/server error earns
// once it has recurred 3 times in a row for the same credential.
const transientCooldown = 300 * time.Second

// rateLimitCooldown grows with repeated rate-limit hits so a credential
// that keeps getting throttled backs off further each time, capped at 10
// minutes rather than growing unbounded.
func rateLimitCooldown(consecutiveFailures int) time.Duration {
	const base = 30 * time.Second
	const maxCooldown = 10 * time.Minute

	shift := consecutiveFailures - 1
	if shift < 0 {
		shift = 0
	}
	if shift > 10 {
		return maxCooldown
	}
	d := base * time.Duration(1<<uint(shift))
	if d > maxCooldown {
		return maxCooldown
	}
	return d
}

// Reset clears a credential's cooldown and stats, or all credentials if
// credentialID is empty.
func (s *Store) Reset(credentialID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.entries {
		if credentialID != "" && e.cred.ID != credentialID {
			continue
		}
		e.stats = types.CredentialStats{}
		s.persist(e)
	}
}

// Stats returns a snapshot of every credential's current health.
func (s *Store) Stats() []types.CredentialSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	out := make([]types.CredentialSnapshot, 0, len(s.entries))
	for _, e := range s.entries {
		cooldownLeft := e.stats.CooldownUntil.Sub(now).Seconds()
		if cooldownLeft < 0 {
			cooldownLeft = 0
		}
		out = append(out, types.CredentialSnapshot{
			ID:                  e.cred.ID,
			Status:              e.stats.Status(now),
			SuccessCount:        e.stats.SuccessCount,
			FailureCount:        e.stats.FailureCount,
			SuccessRate:         e.stats.SuccessRate(),
			AvgLatencyMs:        e.stats.AvgLatencyMs(),
			CooldownSecondsLeft: cooldownLeft,
			LastError:           e.stats.LastError,
		})
	}
	return out
}

func (s *Store) find(credentialID string) *entry {
	for _, e := range s.entries {
		if e.cred.ID == credentialID {
			return e
		}
	}
	return nil
}

func (s *Store) persist(e *entry) {
	if s.persister == nil {
		return
	}
	// Best-effort: a persistence failure must not break request handling.
	_ = s.persister.Save(s.provider, e.cred.ID, e.stats)
}
