/**
 * hidpid - HiDPI daemon for external monitors
 *
 * Main daemon class that orchestrates:
 * - Virtual display creation and mirroring
 * - Display topology watching (notifications + polling)
 * - Session persistence and crash/disconnect recovery
 * - Process relaunch as the virtual-display teardown path
 */

package hidpid

import (
	"context"
	"fmt"
	"sync"

	"github.com/knightynite/hidpid/src/config"
	displaybroker "github.com/knightynite/hidpid/src/features/display-broker"
	displaymonitor "github.com/knightynite/hidpid/src/features/display-monitor"
	"github.com/knightynite/hidpid/src/features/mirror"
	"github.com/knightynite/hidpid/src/features/session"
	"github.com/knightynite/hidpid/src/features/supervisor"
	"github.com/knightynite/hidpid/src/platform"
	"github.com/knightynite/hidpid/src/utility"
)

// Daemon is the main orchestrator for all hidpid services
type Daemon struct {
	logger     *utility.Logger
	config     *config.Config
	shell      *utility.Shell
	api        platform.API
	store      *session.StateStore
	broker     *displaybroker.Broker
	enumerator *displaymonitor.Enumerator
	mirrors    *mirror.Controller
	supervisor *supervisor.Supervisor
	session    *session.Session
	watcher    *displaymonitor.Watcher

	mu         sync.RWMutex
	lastStatus string
	active     bool
	activeDesc string
}

// NewDaemon creates a new Daemon instance. A nil api selects the real
// platform bridge; tests inject a fake.
func NewDaemon(logger *utility.Logger, cfg *config.Config, api platform.API) (*Daemon, error) {
	if logger == nil {
		logger = utility.GetLogger()
	}

	if cfg == nil {
		var err error
		cfg, err = config.Load("")
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}
	logger.SetLevel(logLevelFromConfig(cfg.LogLevel))

	if api == nil {
		api = platform.New()
	}

	store, err := session.OpenStateStore(cfg.StatePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open state store: %w", err)
	}

	d := &Daemon{
		logger:     logger,
		config:     cfg,
		shell:      utility.NewShell(logger),
		api:        api,
		store:      store,
		broker:     displaybroker.NewBroker(logger, api),
		enumerator: displaymonitor.NewEnumerator(logger, api),
		mirrors:    mirror.NewController(logger, api),
	}
	d.supervisor = supervisor.NewSupervisor(logger, d.shell)
	d.session = session.NewSession(session.Deps{
		Logger:     logger,
		Config:     cfg,
		Store:      store,
		Broker:     d.broker,
		Enumerator: d.enumerator,
		Mirrors:    d.mirrors,
		Relauncher: d.supervisor,
		Relocator:  session.NewAppleScriptRelocator(logger, d.shell),
		Observer:   d,
	})
	d.watcher = displaymonitor.NewWatcher(logger, api, cfg.PollInterval, d.session.HandleDisplayEvent)

	logger.Info("hidpid initializing with %s", cfg.String())
	return d, nil
}

// Run starts all services and blocks until the context is cancelled.
// The optional activate callback fires once the session is up, letting
// callers request an immediate preset activation.
func (d *Daemon) Run(ctx context.Context, activate func(*session.Session) error) error {
	if err := d.Start(); err != nil {
		return err
	}
	defer d.Shutdown()

	if activate != nil {
		if err := activate(d.session); err != nil {
			return err
		}
	}

	<-ctx.Done()
	d.logger.Info("Shutdown requested")
	return nil
}

// Start brings up the session and the display watcher.
func (d *Daemon) Start() error {
	if err := d.session.Start(); err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	d.watcher.Start()
	return nil
}

// Shutdown stops services in reverse order and closes the store.
func (d *Daemon) Shutdown() {
	d.watcher.Stop()
	d.session.Shutdown()
	if err := d.store.Close(); err != nil {
		d.logger.Warn("Failed to close state store: %v", err)
	}
	d.logger.Info("hidpid stopped")
}

// Session exposes the session for command handlers.
func (d *Daemon) Session() *session.Session {
	return d.session
}

// ==================== StatusObserver ====================

// OnStatusChanged records the latest human-readable status line.
func (d *Daemon) OnStatusChanged(message string) {
	d.mu.Lock()
	d.lastStatus = message
	d.mu.Unlock()
}

// OnActiveStateChanged records whether HiDPI is currently active.
func (d *Daemon) OnActiveStateChanged(isActive bool, presetDescription string) {
	d.mu.Lock()
	d.active = isActive
	d.activeDesc = presetDescription
	d.mu.Unlock()
}

// ==================== Command Methods ====================

// GetStatus gets the formatted session status. In a one-shot CLI
// invocation the live session is empty, so the persisted state rounds
// out the picture.
func (d *Daemon) GetStatus() string {
	snap := d.session.CurrentSnapshot()

	d.mu.RLock()
	lastStatus := d.lastStatus
	d.mu.RUnlock()

	output := "=== hidpid Status ===\n\n"
	output += fmt.Sprintf("State: %s\n", snap.State)
	output += fmt.Sprintf("HiDPI Active: %s\n", boolToYesNo(snap.IsActive))

	if snap.PresetID != "" {
		output += fmt.Sprintf("Preset: %s (%s)\n", snap.PresetID, snap.PresetDescription)
		output += fmt.Sprintf("Looks Like: %s\n", snap.LogicalResolution)
	}
	if snap.VirtualDisplay != 0 {
		output += fmt.Sprintf("Virtual Display: %d\n", snap.VirtualDisplay)
	}
	if snap.TargetDisplay != 0 {
		output += fmt.Sprintf("Mirroring Onto: display %d\n", snap.TargetDisplay)
	}
	if lastStatus != "" {
		output += fmt.Sprintf("Last Event: %s\n", lastStatus)
	}

	output += "\nPersisted:\n"
	if preset, err := d.store.GetString(session.KeyLastPreset); err == nil && preset != "" {
		output += fmt.Sprintf("  Last Preset: %s\n", displaybroker.MigratePresetName(preset))
	} else {
		output += "  Last Preset: none\n"
	}
	if wasRunning, err := d.store.GetBool(session.KeyWasRunning); err == nil {
		output += fmt.Sprintf("  Daemon Running: %s\n", boolToYesNo(wasRunning))
	}
	if wasDisconnected, err := d.store.GetBool(session.KeyWasDisconnected); err == nil && wasDisconnected {
		output += "  Waiting For Monitor: yes\n"
	}

	output += fmt.Sprintf("\n%s\n", d.config.String())
	return output
}

// GetDisplays gets the formatted live display list.
func (d *Daemon) GetDisplays() (string, error) {
	infos, err := d.enumerator.ListDisplays()
	if err != nil {
		return "", err
	}
	return d.enumerator.FormatDisplayInfo(infos), nil
}

// GetPresets gets the formatted preset catalog.
func (d *Daemon) GetPresets() string {
	output := "Available Presets:\n"
	for _, p := range displaybroker.Presets() {
		output += fmt.Sprintf("\n  %s\n", p.ID)
		output += fmt.Sprintf("    %s\n", p.Description)
		output += fmt.Sprintf("    Looks Like: %s @ %d PPI\n", p.LogicalResolution(), p.PPI)
		output += fmt.Sprintf("    Framebuffer: %dx%d\n", p.FramebufferWidth, p.FramebufferHeight)
	}
	return output
}

// Disable resets mirroring and clears the persisted session so no
// auto-restore fires on the next start. Usable both from the running
// daemon and as a one-shot cleanup command.
func (d *Daemon) Disable() (string, error) {
	if err := d.mirrors.ResetAllMirroring(); err != nil {
		d.logger.Warn("Mirror reset failed: %v", err)
	}
	d.broker.ReleaseAll()

	if err := d.store.RemoveValue(session.KeyLastPreset); err != nil {
		return "", fmt.Errorf("failed to clear persisted preset: %w", err)
	}
	if err := d.store.SetBool(session.KeyWasDisconnected, false); err != nil {
		return "", fmt.Errorf("failed to clear disconnect flag: %w", err)
	}

	return "HiDPI disabled", nil
}

// Helper functions

func logLevelFromConfig(level config.LogLevel) utility.LogLevel {
	switch level {
	case config.LogLevelDebug:
		return utility.DEBUG
	case config.LogLevelWarn:
		return utility.WARN
	case config.LogLevelError:
		return utility.ERROR
	default:
		return utility.INFO
	}
}

func boolToYesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
