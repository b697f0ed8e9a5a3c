/**
 * Display watcher - reactive reconfiguration notifications plus a
 * periodic presence poll feeding one handler
 */

package displaymonitor

import (
	"sync"
	"time"

	"github.com/knightynite/hidpid/src/platform"
	"github.com/knightynite/hidpid/src/utility"
)

// wakeGapFactor: a tick arriving later than this many poll intervals
// means the process was suspended, which on this OS means sleep/wake.
const wakeGapFactor = 3

// Watcher merges the OS reconfiguration callback, a periodic poll and
// a wake heuristic into a single event stream. Both reactive and
// polled sources exist because the OS notification is not fully
// reliable; handlers must treat redundant events as safe.
type Watcher struct {
	logger   *utility.Logger
	api      platform.API
	interval time.Duration
	handler  func(EventKind)

	mu      sync.Mutex
	stop    chan struct{}
	running bool
}

// NewWatcher creates a watcher with the given poll interval. The
// handler is invoked from the watcher's own goroutine (poll, wake) or
// from an OS callback thread (displays-changed).
func NewWatcher(logger *utility.Logger, api platform.API, interval time.Duration, handler func(EventKind)) *Watcher {
	return &Watcher{
		logger:   logger,
		api:      api,
		interval: interval,
		handler:  handler,
	}
}

// Start registers the reconfiguration callback and begins polling.
func (w *Watcher) Start() {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return
	}
	w.running = true
	w.stop = make(chan struct{})
	stop := w.stop
	w.mu.Unlock()

	w.api.SetReconfigurationHandler(func() {
		w.logger.Debug("Display reconfiguration notification")
		w.handler(EventDisplaysChanged)
	})

	go w.pollLoop(stop)
	w.logger.Info("Display watcher started (poll every %v)", w.interval)
}

// Stop unregisters the callback and halts polling.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	close(w.stop)
	w.mu.Unlock()

	w.api.SetReconfigurationHandler(nil)
}

func (w *Watcher) pollLoop(stop chan struct{}) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	lastTick := time.Now()
	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			if now.Sub(lastTick) > wakeGapFactor*w.interval {
				w.logger.Info("Poll gap of %v detected, treating as system wake", now.Sub(lastTick))
				w.handler(EventSystemWake)
			}
			lastTick = now
			w.handler(EventPollTick)
		}
	}
}
