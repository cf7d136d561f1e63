package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestMemoryLimiterWindow(t *testing.T) {
	limiter := NewMemoryLimiter()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	window := time.Minute

	for i := 0; i < 3; i++ {
		result, err := limiter.Allow(context.Background(), "login:chef", 3, window, now)
		if err != nil {
			t.Fatalf("Allow error: %v", err)
		}
		if !result.Allowed {
			t.Fatalf("attempt %d should be allowed", i+1)
		}
		if result.Remaining != 2-i {
			t.Fatalf("attempt %d remaining = %d, want %d", i+1, result.Remaining, 2-i)
		}
	}

	result, err := limiter.Allow(context.Background(), "login:chef", 3, window, now)
	if err != nil {
		t.Fatalf("Allow error: %v", err)
	}
	if result.Allowed {
		t.Fatal("fourth attempt in window should be blocked")
	}

	later := now.Add(window)
	result, err = limiter.Allow(context.Background(), "login:chef", 3, window, later)
	if err != nil {
		t.Fatalf("Allow error: %v", err)
	}
	if !result.Allowed {
		t.Fatal("attempt in next window should be allowed")
	}
}

func TestMemoryLimiterZeroLimitAllowsAll(t *testing.T) {
	limiter := NewMemoryLimiter()
	result, err := limiter.Allow(context.Background(), "login:chef", 0, time.Minute, time.Now())
	if err != nil {
		t.Fatalf("Allow error: %v", err)
	}
	if !result.Allowed {
		t.Fatal("zero limit should disable throttling")
	}
}

func TestMemoryLimiterKeysAreIndependent(t *testing.T) {
	limiter := NewMemoryLimiter()
	now := time.Now()
	if _, err := limiter.Allow(context.Background(), "login:a", 1, time.Minute, now); err != nil {
		t.Fatalf("Allow error: %v", err)
	}
	result, err := limiter.Allow(context.Background(), "login:b", 1, time.Minute, now)
	if err != nil {
		t.Fatalf("Allow error: %v", err)
	}
	if !result.Allowed {
		t.Fatal("separate key should have its own budget")
	}
}

func TestKeyBuilders(t *testing.T) {
	if got := KeyForLogin(" Chef@Example.com "); got != "login:chef@example.com" {
		t.Fatalf("KeyForLogin = %q", got)
	}
	if got := KeyForLogin("  "); got != "" {
		t.Fatalf("KeyForLogin blank = %q, want empty", got)
	}
	if got := KeyForIP("10.0.0.1"); got != "ip:10.0.0.1" {
		t.Fatalf("KeyForIP = %q", got)
	}
}

func TestManagerFallsBackToMemory(t *testing.T) {
	provider := func() SettingsConfig {
		return SettingsConfig{LoginLimit: 2, RedisEnabled: true, RedisAddr: ""}
	}
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	manager := NewManager(provider, func() time.Time { return now }, nil)

	for i := 0; i < 2; i++ {
		result, err := manager.Allow(context.Background(), "login:chef", 2, time.Minute)
		if err != nil {
			t.Fatalf("Allow error: %v", err)
		}
		if !result.Allowed {
			t.Fatalf("attempt %d should be allowed", i+1)
		}
	}
	result, err := manager.Allow(context.Background(), "login:chef", 2, time.Minute)
	if err != nil {
		t.Fatalf("Allow error: %v", err)
	}
	if result.Allowed {
		t.Fatal("attempt over limit should be blocked via memory fallback")
	}
}

func TestWindowIndexAlignsReset(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 30, 0, time.UTC)
	_, reset := windowIndex(now, time.Minute)
	want := time.Date(2025, 6, 1, 12, 1, 0, 0, time.UTC)
	if !reset.Equal(want) {
		t.Fatalf("reset = %v, want %v", reset, want)
	}
}
