package transport

import (
	"testing"
	"time"
)

func TestTokenBucketAllowsUpToCapacityThenBlocks(t *testing.T) {
	now := time.Now()
	b := NewTokenBucket(3, 1)
	b.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		if !b.Allow() {
			t.Fatalf("Allow() #%d = false, want true within capacity", i)
		}
	}
	if b.Allow() {
		t.Error("Allow() after capacity exhausted = true, want false")
	}
}

func TestTokenBucketRefillsOverTime(t *testing.T) {
	now := time.Now()
	b := NewTokenBucket(1, 1) // 1 token/sec
	b.now = func() time.Time { return now }

	if !b.Allow() {
		t.Fatal("expected first Allow() to succeed")
	}
	if b.Allow() {
		t.Fatal("expected bucket to be empty immediately after")
	}

	now = now.Add(2 * time.Second)
	if !b.Allow() {
		t.Error("expected bucket to have refilled after 2s at 1 token/sec")
	}
}
