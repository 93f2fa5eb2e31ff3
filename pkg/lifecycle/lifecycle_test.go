package lifecycle_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shoeboxd/shoebox/pkg/lifecycle"
)

func TestStartupFunctionsRunConcurrently(t *testing.T) {
	lc := lifecycle.New()

	gate := make(chan struct{})
	var running sync.WaitGroup
	running.Add(2)

	// Two hooks that each wait for the other to start. WaitForStartup can
	// only return if they run on separate goroutines.
	for range 2 {
		lc.OnStartup(func() {
			running.Done()
			<-gate
		})
	}

	go func() {
		running.Wait()
		close(gate)
	}()

	done := make(chan struct{})
	go func() {
		lc.WaitForStartup()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("WaitForStartup did not return; startup hooks ran serially")
	}
}

func TestTeardownRunsInReverseOrder(t *testing.T) {
	lc := lifecycle.New()

	var order []string
	lc.OnTeardown(func() { order = append(order, "database") })
	lc.OnTeardown(func() { order = append(order, "storage") })
	lc.OnTeardown(func() { order = append(order, "worker") })

	lc.WaitForStartup()
	if err := lc.Shutdown(5 * time.Second); err != nil {
		t.Fatalf("shutdown failed: %v", err)
	}

	want := []string{"worker", "storage", "database"}
	if len(order) != len(want) {
		t.Fatalf("teardown hooks ran %d times, want %d", len(order), len(want))
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("teardown[%d] = %s, want %s", i, order[i], want[i])
		}
	}
}

func TestShutdownCancelsContext(t *testing.T) {
	lc := lifecycle.New()
	lc.WaitForStartup()

	if err := lc.Shutdown(5 * time.Second); err != nil {
		t.Fatalf("shutdown failed: %v", err)
	}

	select {
	case <-lc.Context().Done():
	default:
		t.Error("context should be cancelled after Shutdown")
	}
}

func TestShutdownTimesOutOnStuckHook(t *testing.T) {
	lc := lifecycle.New()

	block := make(chan struct{})
	defer close(block)
	lc.OnTeardown(func() { <-block })

	lc.WaitForStartup()

	if err := lc.Shutdown(50 * time.Millisecond); err == nil {
		t.Error("expected timeout error, got nil")
	}
}

func TestShutdownRunsHooksOnce(t *testing.T) {
	lc := lifecycle.New()

	var runs atomic.Int32
	lc.OnTeardown(func() { runs.Add(1) })

	lc.WaitForStartup()

	if err := lc.Shutdown(5 * time.Second); err != nil {
		t.Fatalf("first shutdown failed: %v", err)
	}
	if err := lc.Shutdown(5 * time.Second); err != nil {
		t.Fatalf("second shutdown failed: %v", err)
	}

	if got := runs.Load(); got != 1 {
		t.Errorf("teardown hook ran %d times, want 1", got)
	}
}

func TestRequestShutdownLeavesTeardownPending(t *testing.T) {
	lc := lifecycle.New()

	var runs atomic.Int32
	lc.OnTeardown(func() { runs.Add(1) })

	lc.WaitForStartup()

	lc.RequestShutdown()
	lc.RequestShutdown()

	select {
	case <-lc.Context().Done():
	default:
		t.Fatal("context should be cancelled after RequestShutdown")
	}
	if got := runs.Load(); got != 0 {
		t.Fatalf("teardown ran before Shutdown: %d runs", got)
	}

	if err := lc.Shutdown(5 * time.Second); err != nil {
		t.Fatalf("shutdown failed: %v", err)
	}
	if got := runs.Load(); got != 1 {
		t.Errorf("teardown hook ran %d times, want 1", got)
	}
}
