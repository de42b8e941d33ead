package ratelimit

import (
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestNewTokenBucketValidation(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:0"})
	defer client.Close()

	if _, err := NewTokenBucket(nil, 10, time.Minute); err == nil {
		t.Fatal("expected error for nil client")
	}
	if _, err := NewTokenBucket(client, 0, time.Minute); err == nil {
		t.Fatal("expected error for zero capacity")
	}
	if _, err := NewTokenBucket(client, 10, 0); err == nil {
		t.Fatal("expected error for zero window")
	}

	bucket, err := NewTokenBucket(client, 60, time.Minute)
	if err != nil {
		t.Fatalf("new token bucket: %v", err)
	}
	if bucket.refillPerMS != 0.001 {
		t.Fatalf("expected refill of 0.001 tokens/ms, got %v", bucket.refillPerMS)
	}
	if bucket.ttl != 2*time.Minute {
		t.Fatalf("expected ttl 2m, got %s", bucket.ttl)
	}
}

func TestKey(t *testing.T) {
	bucket := &TokenBucket{keyPrefix: defaultKeyPrefix}
	if got := bucket.Key(" 10.0.0.1:/convert "); got != "epsflow:ratelimit:10.0.0.1:/convert" {
		t.Fatalf("unexpected key %q", got)
	}
	if got := bucket.Key(""); got != "epsflow:ratelimit:anonymous" {
		t.Fatalf("unexpected anonymous key %q", got)
	}
}

func TestParseDecision(t *testing.T) {
	decision, err := parseDecision([]any{int64(0), int64(0), int64(1500)})
	if err != nil {
		t.Fatalf("parse decision: %v", err)
	}
	if decision.Allowed {
		t.Fatal("expected rejection")
	}
	if decision.RetryAfter != 1500*time.Millisecond {
		t.Fatalf("expected 1.5s retry, got %s", decision.RetryAfter)
	}

	decision, err = parseDecision([]any{int64(1), "7", float64(0)})
	if err != nil {
		t.Fatalf("parse decision: %v", err)
	}
	if !decision.Allowed || decision.Remaining != 7 {
		t.Fatalf("unexpected decision %+v", decision)
	}

	if _, err := parseDecision([]any{int64(1)}); err == nil {
		t.Fatal("expected error for short response")
	}
	if _, err := parseDecision([]any{true, int64(1), int64(0)}); err == nil {
		t.Fatal("expected error for unsupported field type")
	}
}
