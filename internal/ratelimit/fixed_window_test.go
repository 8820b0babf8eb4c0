package ratelimit

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func TestAllowWithinLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	limiter, err := NewRedisFixedWindowLimiter(mr.Addr(), "", "test", 3, time.Minute)
	if err != nil {
		t.Fatalf("NewRedisFixedWindowLimiter: %v", err)
	}
	for i := 0; i < 3; i++ {
		if !limiter.Allow("ip:10.0.0.1") {
			t.Fatalf("request %d denied within limit", i+1)
		}
	}
	if limiter.Allow("ip:10.0.0.1") {
		t.Fatal("request over limit allowed")
	}
	// Another key has its own window.
	if !limiter.Allow("ip:10.0.0.2") {
		t.Fatal("fresh key denied")
	}
}

func TestWindowResets(t *testing.T) {
	mr := miniredis.RunT(t)
	limiter, err := NewRedisFixedWindowLimiter(mr.Addr(), "", "test", 1, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("NewRedisFixedWindowLimiter: %v", err)
	}
	if !limiter.Allow("k") {
		t.Fatal("first request denied")
	}
	if limiter.Allow("k") {
		t.Fatal("second request in same window allowed")
	}
	time.Sleep(60 * time.Millisecond)
	mr.FastForward(60 * time.Millisecond)
	if !limiter.Allow("k") {
		t.Fatal("request in next window denied")
	}
}

func TestFailsClosedWhenRedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	limiter, err := NewRedisFixedWindowLimiter(mr.Addr(), "", "test", 5, time.Minute)
	if err != nil {
		t.Fatalf("NewRedisFixedWindowLimiter: %v", err)
	}
	mr.Close()
	if limiter.Allow("k") {
		t.Fatal("limiter allowed a request with Redis unreachable")
	}
}

func TestRejectsBadConfig(t *testing.T) {
	if _, err := NewRedisFixedWindowLimiter("localhost:6379", "", "", 0, time.Minute); err == nil {
		t.Error("accepted zero limit")
	}
	if _, err := NewRedisFixedWindowLimiter("", "", "", 5, time.Minute); err == nil {
		t.Error("accepted empty addr")
	}
}
