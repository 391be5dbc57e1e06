package cmd

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type countingPurger struct {
	calls atomic.Int32
	err   error
}

func (p *countingPurger) Purge(context.Context) (int64, error) {
	p.calls.Add(1)
	return 1, p.err
}

func TestPurgeExpiredSnapshotsRunsUntilCancelled(t *testing.T) {
	purger := &countingPurger{err: errors.New("database is locked")}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- purgeExpiredSnapshots(ctx, purger, "@every 1s")
	}()

	deadline := time.After(5 * time.Second)
	for purger.calls.Load() < 1 {
		select {
		case <-deadline:
			t.Fatalf("purge calls = %d, want >= 1", purger.calls.Load())
		case <-time.After(20 * time.Millisecond):
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("purgeExpiredSnapshots() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("purgeExpiredSnapshots did not stop after cancel")
	}
}

func TestPurgeExpiredSnapshotsRejectsBadSchedule(t *testing.T) {
	err := purgeExpiredSnapshots(context.Background(), &countingPurger{}, "whenever")
	if err == nil {
		t.Fatal("purgeExpiredSnapshots(whenever) expected error")
	}
}
