package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestTokenBucketAllow(t *testing.T) {
	tb := NewTokenBucket(3, time.Minute)

	for i := 0; i < 3; i++ {
		if !tb.Allow() {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if tb.Allow() {
		t.Error("request past capacity should be denied")
	}
}

func TestTokenBucketRefill(t *testing.T) {
	tb := NewTokenBucket(1, 20*time.Millisecond)

	if !tb.Allow() {
		t.Fatal("first request should be allowed")
	}
	if tb.Allow() {
		t.Fatal("bucket should be empty")
	}

	time.Sleep(30 * time.Millisecond)
	if !tb.Allow() {
		t.Error("bucket should refill after the period")
	}
}

func TestTokenBucketReset(t *testing.T) {
	tb := NewTokenBucket(1, time.Minute)
	tb.Allow()

	tb.Reset()
	if !tb.Allow() {
		t.Error("Reset should restore full capacity")
	}
}

func TestWaitBlocksUntilRefill(t *testing.T) {
	tb := NewTokenBucket(1, 20*time.Millisecond)
	tb.Allow()

	start := time.Now()
	if err := tb.Wait(context.Background()); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if time.Since(start) < 10*time.Millisecond {
		t.Error("Wait should have blocked until the refill")
	}
}

func TestWaitCancelled(t *testing.T) {
	tb := NewTokenBucket(1, time.Hour)
	tb.Allow()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := tb.Wait(ctx); err == nil {
		t.Error("Wait should return the context error on cancellation")
	}
}
