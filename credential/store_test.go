package credential

import (
	"testing"
	"time"

	"github.com/nexusllm/gateway/types"
)

func TestStoreAcquireRoundRobin(t *testing.T) {
	s, err := New("openai", []types.Credential{{ID: "a"}, {ID: "b"}, {ID: "c"}})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	var order []string
	for i := 0; i < 6; i++ {
		c, err := s.Acquire(nil)
		if err != nil {
			t.Fatalf("Acquire failed: %v", err)
		}
		order = append(order, c.ID)
	}

	want := []string{"a", "b", "c", "a", "b", "c"}
	for i, id := range want {
		if order[i] != id {
			t.Errorf("position %d: want %q, got %q", i, id, order[i])
		}
	}
}

func TestStoreAcquireNoCredentials(t *testing.T) {
	s, err := New("openai", nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, err := s.Acquire(nil); err == nil {
		t.Fatal("expected error for empty credential set")
	}
}

func TestStoreReportFailureRateLimitCooldown(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s, err := New("openai", []types.Credential{{ID: "a"}, {ID: "b"}}, withClock(func() time.Time { return now }))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	s.ReportFailure("a", types.ErrRateLimited, "429")

	c, err := s.Acquire(nil)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if c.ID != "b" {
		t.Errorf("expected rotation to skip cooled-down credential a, got %q", c.ID)
	}

	now = now.Add(61 * time.Second)
	c, err = s.Acquire(nil)
	if err != nil {
		t.Fatalf("Acquire after cooldown failed: %v", err)
	}
	if c.ID != "a" {
		t.Errorf("expected credential a to be available after cooldown elapses, got %q", c.ID)
	}
}

func TestStoreReportSuccessClearsCooldown(t *testing.T) {
	s, err := New("openai", []types.Credential{{ID: "a"}})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	s.ReportFailure("a", types.ErrRateLimited, "429")
	s.ReportSuccess("a", 120)

	stats := s.Stats()
	if len(stats) != 1 {
		t.Fatalf("expected 1 stat entry, got %d", len(stats))
	}
	// The cooldown is gone, so the status is computed from the counters:
	// 1 success out of 2 calls is a 50% success rate, under the 80% bar.
	if stats[0].Status != types.StatusError {
		t.Errorf("expected error status (not cooldown) after success clears cooldown, got %v", stats[0].Status)
	}
}

func TestStoreResetClearsStats(t *testing.T) {
	s, err := New("openai", []types.Credential{{ID: "a"}, {ID: "b"}})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	s.ReportFailure("a", types.ErrServer, "500")
	s.Reset("a")

	stats := s.Stats()
	for _, st := range stats {
		if st.ID == "a" && st.Status != types.StatusUnused {
			t.Errorf("expected reset credential to be unused, got %v", st.Status)
		}
	}
}

func TestStoreReportFailureAuthDisablesPermanently(t *testing.T) {
	s, err := New("openai", []types.Credential{{ID: "a"}, {ID: "b"}})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	s.ReportFailure("a", types.ErrAuth, "401")

	for i := 0; i < 4; i++ {
		c, err := s.Acquire(nil)
		if err != nil {
			t.Fatalf("Acquire failed: %v", err)
		}
		if c.ID != "b" {
			t.Errorf("expected rotation to permanently skip disabled credential a, got %q", c.ID)
		}
	}

	stats := s.Stats()
	for _, st := range stats {
		if st.ID == "a" && st.Status != types.StatusDisabled {
			t.Errorf("expected credential a to be disabled, got %v", st.Status)
		}
	}
}

func TestStoreReportFailureTransientRequiresThreeInARow(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s, err := New("openai", []types.Credential{{ID: "a"}, {ID: "b"}}, withClock(func() time.Time { return now }))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	s.ReportFailure("a", types.ErrServer, "500")
	s.ReportFailure("a", types.ErrServer, "500")
	if c, err := s.Acquire(nil); err != nil || c.ID != "a" {
		t.Fatalf("expected credential a still available after 2 transient failures, got %q err=%v", c.ID, err)
	}
	s.ReportSuccess("a", 10)

	s.ReportFailure("a", types.ErrServer, "500")
	s.ReportFailure("a", types.ErrServer, "500")
	s.ReportFailure("a", types.ErrServer, "500")

	c, err := s.Acquire(nil)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if c.ID != "b" {
		t.Errorf("expected 3rd consecutive transient failure to trigger cooldown, got %q", c.ID)
	}
}

func TestRateLimitCooldownEscalatesAndCaps(t *testing.T) {
	cases := []struct {
		consecutive int
		want        time.Duration
	}{
		{1, 30 * time.Second},
		{2, 60 * time.Second},
		{3, 120 * time.Second},
		{20, 10 * time.Minute},
	}
	for _, tc := range cases {
		if got := rateLimitCooldown(tc.consecutive); got != tc.want {
			t.Errorf("rateLimitCooldown(%d) = %v, want %v", tc.consecutive, got, tc.want)
		}
	}
}
