package tasks

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/safiri-wallet/safiri/internal/logging"
)

func TestGoRunsTask(t *testing.T) {
	r := NewRunner(logging.Discard(), time.Second)
	var ran atomic.Bool

	r.Go("work", func(ctx context.Context) error {
		ran.Store(true)
		return nil
	})
	r.Wait()

	if !ran.Load() {
		t.Fatal("expected task to run")
	}
}

func TestGoRecoversPanic(t *testing.T) {
	r := NewRunner(logging.Discard(), time.Second)

	r.Go("explodes", func(ctx context.Context) error {
		panic("boom")
	})
	r.Wait() // must not crash the test binary
}

func TestGoAppliesTimeout(t *testing.T) {
	r := NewRunner(logging.Discard(), 10*time.Millisecond)
	var sawDeadline atomic.Bool

	r.Go("slow", func(ctx context.Context) error {
		select {
		case <-ctx.Done():
			sawDeadline.Store(true)
			return ctx.Err()
		case <-time.After(5 * time.Second):
			return errors.New("deadline never fired")
		}
	})
	r.Wait()

	if !sawDeadline.Load() {
		t.Fatal("expected task context to expire")
	}
}

func TestWaitBlocksUntilAllTasksFinish(t *testing.T) {
	r := NewRunner(logging.Discard(), time.Second)
	var done atomic.Int64

	for i := 0; i < 5; i++ {
		r.Go("work", func(ctx context.Context) error {
			time.Sleep(5 * time.Millisecond)
			done.Add(1)
			return nil
		})
	}
	r.Wait()

	if got := done.Load(); got != 5 {
		t.Fatalf("expected 5 completed tasks, got %d", got)
	}
}
