/**
 * Session state machine - orchestrates the virtual-display lifecycle:
 * reset stale state, enumerate, create, settle, mirror, observe
 */

package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/knightynite/hidpid/src/config"
	displaybroker "github.com/knightynite/hidpid/src/features/display-broker"
	displaymonitor "github.com/knightynite/hidpid/src/features/display-monitor"
	"github.com/knightynite/hidpid/src/features/mirror"
	"github.com/knightynite/hidpid/src/platform"
	"github.com/knightynite/hidpid/src/utility"
)

// State is the session lifecycle state.
type State int

const (
	StateEmpty State = iota
	StatePreparing
	StateAwaitingTarget
	StateCreating
	StateAwaitingSettle
	StateMirroring
	StateActive
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StatePreparing:
		return "preparing"
	case StateAwaitingTarget:
		return "awaiting-target"
	case StateCreating:
		return "creating"
	case StateAwaitingSettle:
		return "awaiting-settle"
	case StateMirroring:
		return "mirroring"
	case StateActive:
		return "active"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// StatusObserver receives the session's human-readable progress. The
// presentation layer is entirely downstream of these calls.
type StatusObserver interface {
	OnStatusChanged(message string)
	OnActiveStateChanged(isActive bool, presetDescription string)
}

// Relauncher triggers the supervisor's process-restart teardown path.
type Relauncher interface {
	Relaunch()
}

// Snapshot is a point-in-time copy of the session for status queries.
type Snapshot struct {
	State             State
	IsActive          bool
	PresetID          displaybroker.PresetID
	PresetDescription string
	LogicalResolution string
	VirtualDisplay    platform.DisplayID
	TargetDisplay     platform.DisplayID
}

// Deps are the collaborators the session drives.
type Deps struct {
	Logger     *utility.Logger
	Config     *config.Config
	Store      *StateStore
	Broker     *displaybroker.Broker
	Enumerator *displaymonitor.Enumerator
	Mirrors    *mirror.Controller
	Relauncher Relauncher
	Relocator  WindowRelocator
	Observer   StatusObserver
}

// Session owns the virtual-display lifecycle. All transitions run on a
// single event-loop goroutine, so the mutable session state needs no
// locking; commands, watcher events and settle continuations are
// serialized onto that loop. Settle continuations carry a generation
// stamp so a stale continuation from an abandoned sequence can never
// mutate state after a newer sequence has started.
type Session struct {
	logger     *utility.Logger
	cfg        *config.Config
	store      *StateStore
	broker     *displaybroker.Broker
	enumerator *displaymonitor.Enumerator
	mirrors    *mirror.Controller
	relauncher Relauncher
	relocator  WindowRelocator
	observer   StatusObserver

	cmds     chan func()
	done     chan struct{}
	stopOnce sync.Once

	// Loop-owned state. Touched only from the event loop.
	state           State
	gen             int
	preset          displaybroker.DisplayPreset
	hasPreset       bool
	virtualID       platform.DisplayID
	targetID        platform.DisplayID
	isActive        bool
	isSettingUp     bool
	wasDisconnected bool
	restorePending  bool

	snapMu sync.RWMutex
	snap   Snapshot
}

// NewSession wires a session from its collaborators.
func NewSession(deps Deps) *Session {
	return &Session{
		logger:     deps.Logger,
		cfg:        deps.Config,
		store:      deps.Store,
		broker:     deps.Broker,
		enumerator: deps.Enumerator,
		mirrors:    deps.Mirrors,
		relauncher: deps.Relauncher,
		relocator:  deps.Relocator,
		observer:   deps.Observer,
		cmds:       make(chan func(), 16),
		done:       make(chan struct{}),
	}
}

// Start reads the persisted state, marks the process as running, spins
// up the event loop and, when appropriate, schedules crash recovery.
// A disconnect-triggered restart is distinguished from a crash: if the
// was-disconnected flag is set, the session waits for the reconnect
// signal instead of blindly retrying.
func (s *Session) Start() error {
	wasRunning, err := s.store.GetBool(KeyWasRunning)
	if err != nil {
		return fmt.Errorf("failed to read running flag: %w", err)
	}
	wasDisconnected, err := s.store.GetBool(KeyWasDisconnected)
	if err != nil {
		return fmt.Errorf("failed to read disconnect flag: %w", err)
	}
	lastPreset, err := s.store.GetString(KeyLastPreset)
	if err != nil {
		return fmt.Errorf("failed to read last preset: %w", err)
	}

	if err := s.store.SetBool(KeyWasRunning, true); err != nil {
		return fmt.Errorf("failed to persist running flag: %w", err)
	}

	s.wasDisconnected = wasDisconnected
	go s.run()

	switch {
	case wasDisconnected:
		s.logger.Info("Resuming after disconnect restart; waiting for the monitor to return")
	case wasRunning && s.cfg.AutoRestoreOnCrash && lastPreset != "":
		preset, ok := displaybroker.LookupPreset(lastPreset)
		if !ok {
			s.logger.Warn("Cannot restore unknown preset %q", lastPreset)
			break
		}
		s.post(func() {
			if _, found := s.enumerator.FindRealExternalMonitor(0); !found {
				s.logger.Warn("Crash restore deferred: no external monitor present")
				s.wasDisconnected = true
				return
			}
			s.logger.Info("Previous run did not shut down cleanly, restoring %s", preset.ID)
			s.scheduleRestore(preset)
		})
	}
	return nil
}

// Shutdown performs an orderly stop: relocates windows and resets the
// display configuration when active, then clears the crash marker.
func (s *Session) Shutdown() {
	s.stopOnce.Do(func() {
		finished := make(chan struct{})
		s.post(func() {
			s.gen++
			if s.isActive {
				s.relocator.RelocateAllToMainDisplay()
				if err := s.mirrors.ResetAllMirroring(); err != nil {
					s.logger.Warn("Mirror reset on shutdown failed: %v", err)
				}
				s.broker.ReleaseAll()
			}
			if err := s.store.SetBool(KeyWasRunning, false); err != nil {
				s.logger.Warn("Failed to clear running flag: %v", err)
			}
			close(finished)
		})
		<-finished
		close(s.done)
	})
}

// ActivatePreset starts the activation sequence for a preset.
func (s *Session) ActivatePreset(preset displaybroker.DisplayPreset) {
	s.post(func() { s.beginActivation(preset) })
}

// ActivatePresetNamed resolves a preset identifier (accepting legacy
// names) and activates it.
func (s *Session) ActivatePresetNamed(name string) error {
	preset, ok := displaybroker.LookupPreset(name)
	if !ok {
		return fmt.Errorf("unknown preset %q", name)
	}
	s.ActivatePreset(preset)
	return nil
}

// ActivateCustom activates an ad hoc preset for the given logical
// resolution.
func (s *Session) ActivateCustom(logicalWidth, logicalHeight, ppi int) {
	s.ActivatePreset(displaybroker.CustomPreset(logicalWidth, logicalHeight, ppi))
}

// Disable tears the session down to empty. Intentional disable clears
// the persisted preset so no future auto-restore fires.
func (s *Session) Disable() {
	s.post(s.disable)
}

// HandleDisplayEvent feeds a watcher event into the state machine.
// Safe to call redundantly; both the reactive and polled sources land
// here.
func (s *Session) HandleDisplayEvent(kind displaymonitor.EventKind) {
	s.post(func() { s.handleEvent(kind) })
}

// CurrentSnapshot returns a copy of the session state.
func (s *Session) CurrentSnapshot() Snapshot {
	s.snapMu.RLock()
	defer s.snapMu.RUnlock()
	return s.snap
}

// ---- event loop ----

func (s *Session) run() {
	for {
		select {
		case fn := <-s.cmds:
			fn()
		case <-s.done:
			return
		}
	}
}

func (s *Session) post(fn func()) {
	select {
	case s.cmds <- fn:
	case <-s.done:
	}
}

// after schedules fn on the loop once the delay elapses, unless a
// newer sequence has bumped the generation by then.
func (s *Session) after(delay time.Duration, gen int, fn func()) {
	time.AfterFunc(delay, func() {
		s.post(func() {
			if gen != s.gen {
				s.logger.Debug("Dropping stale continuation (generation %d, now %d)", gen, s.gen)
				return
			}
			fn()
		})
	})
}

// ---- transitions (loop-owned) ----

func (s *Session) beginActivation(preset displaybroker.DisplayPreset) {
	s.gen++
	gen := s.gen
	s.state = StatePreparing
	s.isSettingUp = true
	s.isActive = false
	s.restorePending = false
	s.preset = preset
	s.hasPreset = true

	s.reportStatus(fmt.Sprintf("Preparing %s...", preset.Description))

	// Persist intent before creation is attempted so a crash
	// mid-sequence is still recoverable.
	s.persistString(KeyLastPreset, string(preset.ID))

	// Reset any stale mirror or virtual display, including leftovers
	// from a prior process. Idempotent.
	if err := s.mirrors.ResetAllMirroring(); err != nil {
		s.logger.Warn("Mirror reset before activation failed: %v", err)
	}
	s.broker.ReleaseAll()
	s.publish()

	// Back-to-back display-configuration calls destabilize the
	// display stack; let it settle before enumerating.
	s.after(s.cfg.SettleCreate, gen, s.awaitTarget)
}

func (s *Session) awaitTarget() {
	s.state = StateAwaitingTarget
	gen := s.gen

	target, found := s.enumerator.FindRealExternalMonitor(s.broker.CurrentDisplayID())
	if !found {
		s.logger.Warn("No external display found")
		// Keep the persisted preset so a reconnect can retry.
		s.failActivation("No external display found")
		return
	}
	s.targetID = target.ID

	s.state = StateCreating
	rate := s.cfg.ManualRefreshRateOverride() // manual override always wins
	if rate == 0 {
		rate = target.RefreshRate
	}
	if rate <= 0 {
		rate = displaybroker.FallbackRefreshRate
	}

	virtualID, err := s.broker.Create(s.preset, rate)
	if err != nil {
		s.logger.Error("Virtual display creation failed: %v", err)
		s.failActivation("Failed to create virtual display")
		return
	}
	s.virtualID = virtualID
	s.state = StateAwaitingSettle
	s.publish()

	// The OS needs time to register the new display's mode before it
	// can reliably be a mirror source.
	s.after(s.cfg.SettleMirror, gen, s.establishMirror)
}

func (s *Session) establishMirror() {
	s.state = StateMirroring

	if err := s.mirrors.Mirror(s.virtualID, s.targetID); err != nil {
		s.logger.Error("Mirror configuration failed: %v", err)
		s.broker.ReleaseAll()
		s.virtualID = 0
		s.failActivation("Failed to configure display")
		return
	}

	s.state = StateActive
	s.isActive = true
	s.isSettingUp = false
	s.setWasDisconnected(false)
	s.persistString(KeyLastPreset, string(s.preset.ID))
	s.reportStatus(fmt.Sprintf("HiDPI active: %s", s.preset.Description))
	s.observer.OnActiveStateChanged(true, s.preset.Description)
	s.publish()
}

// failActivation returns to empty after a failed attempt. The
// was-disconnected flag is set so notification- and poll-driven retry
// fires again once conditions look favorable.
func (s *Session) failActivation(message string) {
	s.state = StateEmpty
	s.isSettingUp = false
	s.isActive = false
	s.virtualID = 0
	s.targetID = 0
	s.setWasDisconnected(true)
	s.reportStatus(message)
	s.observer.OnActiveStateChanged(false, "")
	s.publish()
}

func (s *Session) disable() {
	s.gen++
	s.restorePending = false
	s.state = StateEmpty
	s.isSettingUp = false
	s.isActive = false
	s.virtualID = 0
	s.targetID = 0
	s.hasPreset = false

	if err := s.mirrors.ResetAllMirroring(); err != nil {
		s.logger.Warn("Mirror reset on disable failed: %v", err)
	}
	s.broker.ReleaseAll()

	// Intentional disable, unlike a disconnect, must not trigger any
	// future auto-restore.
	if err := s.store.RemoveValue(KeyLastPreset); err != nil {
		s.logger.Warn("Failed to clear persisted preset: %v", err)
	}
	s.setWasDisconnected(false)

	s.reportStatus("HiDPI disabled")
	s.observer.OnActiveStateChanged(false, "")
	s.publish()
}

func (s *Session) handleEvent(kind displaymonitor.EventKind) {
	// Never interrupt an in-flight setup from a reactive handler.
	if s.isSettingUp {
		return
	}

	if kind == displaymonitor.EventSystemWake {
		s.handleWake()
		return
	}
	s.checkPresence()
}

func (s *Session) checkPresence() {
	switch {
	case s.isActive:
		if _, found := s.enumerator.FindRealExternalMonitor(s.broker.CurrentDisplayID()); !found {
			s.handleDisconnect()
		}
	case s.state == StateEmpty && s.wasDisconnected && !s.restorePending:
		if !s.cfg.AutoApplyOnReconnect {
			return
		}
		name, err := s.store.GetString(KeyLastPreset)
		if err != nil || name == "" {
			return
		}
		if _, found := s.enumerator.FindRealExternalMonitor(0); !found {
			return
		}
		preset, ok := displaybroker.LookupPreset(name)
		if !ok {
			s.logger.Warn("Persisted preset %q has no current definition", name)
			return
		}
		s.logger.Info("External monitor returned, re-applying %s", preset.ID)
		s.scheduleRestore(preset)
	}
}

// scheduleRestore arms a one-shot delayed activation. The pending flag
// keeps every subsequent poll tick from re-arming it.
func (s *Session) scheduleRestore(preset displaybroker.DisplayPreset) {
	if s.restorePending {
		return
	}
	s.restorePending = true
	s.after(s.cfg.SettleRestore, s.gen, func() {
		if !s.restorePending {
			return
		}
		s.restorePending = false
		s.beginActivation(preset)
	})
}

func (s *Session) handleWake() {
	if !s.isActive || !s.hasPreset {
		return
	}
	// Sleep/wake silently severs mirror bindings; treat the post-wake
	// state as broken and re-run the full sequence.
	if _, found := s.enumerator.FindRealExternalMonitor(s.broker.CurrentDisplayID()); !found {
		return
	}
	s.logger.Info("System wake detected, re-applying %s", s.preset.ID)
	s.beginActivation(s.preset)
}

// handleDisconnect runs the only path that requires process restart:
// the OS gives no dependable programmatic destroy for the virtual
// display, so full reclamation needs a process exit.
func (s *Session) handleDisconnect() {
	s.logger.Warn("External monitor disconnected while active")
	s.state = StateDisconnected
	s.isActive = false
	s.reportStatus("External display disconnected")
	s.observer.OnActiveStateChanged(false, "")

	s.relocator.RelocateAllToMainDisplay()

	// Must be durable before the restart so the next process instance
	// waits for reconnect instead of treating this as a crash.
	s.setWasDisconnected(true)
	s.publish()

	s.relauncher.Relaunch()
}

// ---- helpers (loop-owned) ----

func (s *Session) setWasDisconnected(value bool) {
	s.wasDisconnected = value
	if err := s.store.SetBool(KeyWasDisconnected, value); err != nil {
		s.logger.Warn("Failed to persist disconnect flag: %v", err)
	}
}

func (s *Session) persistString(key, value string) {
	if err := s.store.SetString(key, value); err != nil {
		s.logger.Warn("Failed to persist %s: %v", key, err)
	}
}

func (s *Session) reportStatus(message string) {
	s.logger.Info("%s", message)
	s.observer.OnStatusChanged(message)
}

func (s *Session) publish() {
	snap := Snapshot{
		State:          s.state,
		IsActive:       s.isActive,
		VirtualDisplay: s.virtualID,
		TargetDisplay:  s.targetID,
	}
	if s.hasPreset {
		snap.PresetID = s.preset.ID
		snap.PresetDescription = s.preset.Description
		snap.LogicalResolution = s.preset.LogicalResolution()
	}
	s.snapMu.Lock()
	s.snap = snap
	s.snapMu.Unlock()
}
