package zhipu

import (
	"strings"
	"testing"
)

func TestSignTokenProducesThreeSegments(t *testing.T) {
	token, err := signToken("abc123.supersecret")
	if err != nil {
		t.Fatalf("signToken failed: %v", err)
	}
	segments := strings.Split(token, ".")
	if len(segments) != 3 {
		t.Fatalf("expected a 3-segment JWT, got %d segments: %q", len(segments), token)
	}
}

func TestSignTokenRejectsMalformedKey(t *testing.T) {
	if _, err := signToken("no-dot-here"); err == nil {
		t.Error("expected error for api key missing the id.secret separator")
	}
}

func TestSignTokenHeaderStableAcrossCalls(t *testing.T) {
	token1, _ := signToken("id.secret")
	token2, _ := signToken("id.secret")
	// The payload carries millisecond timestamps and may differ between
	// calls; the header segment does not.
	seg1 := strings.Split(token1, ".")
	seg2 := strings.Split(token2, ".")
	if seg1[0] != seg2[0] {
		t.Error("expected identical header segment across calls")
	}
}
