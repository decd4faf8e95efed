package bot

import (
	"testing"
	"time"
)

func TestRateLimiter(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	r := NewRateLimiter()
	r.now = func() time.Time { return now }

	if r.IsLimited(1, "test_payment") {
		t.Fatal("first call must pass")
	}
	if !r.IsLimited(1, "test_payment") {
		t.Error("second call within 10s must be limited")
	}
	if r.IsLimited(2, "test_payment") {
		t.Error("other users are not affected")
	}
	if r.IsLimited(1, "start") {
		t.Error("other commands are not affected")
	}

	now = now.Add(11 * time.Second)
	if r.IsLimited(1, "test_payment") {
		t.Error("call after the window must pass")
	}
	if r.IsLimited(1, "start") {
		t.Error("fallback window has passed for start")
	}
	if !r.IsLimited(1, "start") {
		t.Error("repeated start within 2s must be limited")
	}
}
