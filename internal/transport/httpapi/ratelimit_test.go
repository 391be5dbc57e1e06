package httpapi

import (
	"fmt"
	"testing"
	"time"
)

func TestKeyedLimiterEvictsIdleBuckets(t *testing.T) {
	limiter := newKeyedLimiterWithIdle(1, 1, 20*time.Millisecond)

	for i := 0; i < 50; i++ {
		limiter.Allow(fmt.Sprintf("CUST%03d", i))
	}
	if got := limiter.buckets.ItemCount(); got != 50 {
		t.Fatalf("buckets = %d, want 50", got)
	}

	time.Sleep(40 * time.Millisecond)
	limiter.buckets.DeleteExpired()
	if got := limiter.buckets.ItemCount(); got != 0 {
		t.Fatalf("buckets after idle = %d, want 0", got)
	}
}

func TestKeyedLimiterKeepsActiveBucket(t *testing.T) {
	limiter := newKeyedLimiterWithIdle(0.001, 1, time.Hour)

	if !limiter.Allow("CUST001") {
		t.Fatal("first Allow() = false, want true")
	}
	if limiter.Allow("CUST001") {
		t.Fatal("second Allow() = true, want bucket shared and drained")
	}
	if !limiter.Allow("CUST002") {
		t.Fatal("Allow(other key) = false, want independent bucket")
	}
}

func TestNewKeyedLimiterDisabledAndIdleFloor(t *testing.T) {
	if limiter := newKeyedLimiter(0, 5); limiter != nil || !limiter.Allow("x") {
		t.Fatalf("newKeyedLimiter(0) = %v, want nil that allows everything", limiter)
	}
	if limiter := newKeyedLimiter(100, 5); limiter.idle != minLimiterIdle {
		t.Fatalf("idle = %s, want floor %s", limiter.idle, minLimiterIdle)
	}
	if limiter := newKeyedLimiter(0.25, 50); limiter.idle != 400*time.Second {
		t.Fatalf("idle = %s, want 400s", limiter.idle)
	}
}
