package displaymonitor

import (
	"sync"
	"testing"
	"time"

	"github.com/knightynite/hidpid/src/platform"
	"github.com/knightynite/hidpid/src/utility"
)

type eventRecorder struct {
	mu     sync.Mutex
	events []EventKind
}

func (r *eventRecorder) record(kind EventKind) {
	r.mu.Lock()
	r.events = append(r.events, kind)
	r.mu.Unlock()
}

func (r *eventRecorder) count(kind EventKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, k := range r.events {
		if k == kind {
			n++
		}
	}
	return n
}

func TestWatcherEmitsPollTicks(t *testing.T) {
	fake := platform.NewFake()
	rec := &eventRecorder{}
	w := NewWatcher(utility.NewLogger("cli", utility.ERROR), fake, 10*time.Millisecond, rec.record)

	w.Start()
	defer w.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for rec.count(EventPollTick) < 2 {
		if time.Now().After(deadline) {
			t.Fatal("no poll ticks observed")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestWatcherForwardsReconfiguration(t *testing.T) {
	fake := platform.NewFake()
	rec := &eventRecorder{}
	w := NewWatcher(utility.NewLogger("cli", utility.ERROR), fake, time.Hour, rec.record)

	w.Start()
	defer w.Stop()

	fake.TriggerReconfiguration()
	if rec.count(EventDisplaysChanged) != 1 {
		t.Fatalf("displays-changed count = %d, want 1", rec.count(EventDisplaysChanged))
	}
}

func TestWatcherStopUnregistersHandler(t *testing.T) {
	fake := platform.NewFake()
	rec := &eventRecorder{}
	w := NewWatcher(utility.NewLogger("cli", utility.ERROR), fake, time.Hour, rec.record)

	w.Start()
	w.Stop()

	fake.TriggerReconfiguration()
	if n := rec.count(EventDisplaysChanged); n != 0 {
		t.Fatalf("handler fired %d times after Stop", n)
	}
}

func TestWatcherStartIsIdempotent(t *testing.T) {
	fake := platform.NewFake()
	rec := &eventRecorder{}
	w := NewWatcher(utility.NewLogger("cli", utility.ERROR), fake, time.Hour, rec.record)

	w.Start()
	w.Start()
	w.Stop()
	w.Stop()
}
