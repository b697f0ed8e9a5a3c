package displaymonitor

import "github.com/knightynite/hidpid/src/platform"

// DisplayInfo is one classified entry of the live display list.
type DisplayInfo struct {
	ID               platform.DisplayID
	PixelWidth       int
	PixelHeight      int
	PhysicalWidthMM  float64
	PhysicalHeightMM float64
	RefreshRate      float64
	IsBuiltin        bool
	IsMain           bool
	// MirrorsDisplay is the display this one mirrors, or 0.
	MirrorsDisplay platform.DisplayID
	// IsOurVirtual reports whether the display carries the broker's
	// reserved vendor identifier.
	IsOurVirtual bool
}

// EventKind distinguishes the watcher's event sources.
type EventKind int

const (
	// EventDisplaysChanged is the OS display-reconfiguration
	// notification.
	EventDisplaysChanged EventKind = iota
	// EventPollTick is the periodic presence check. Notifications for
	// configuration changes are not fully reliable, so both sources
	// feed the same handler.
	EventPollTick
	// EventSystemWake fires when a poll-tick gap indicates the machine
	// slept. Sleep/wake silently severs mirror bindings.
	EventSystemWake
)

func (k EventKind) String() string {
	switch k {
	case EventDisplaysChanged:
		return "displays-changed"
	case EventPollTick:
		return "poll-tick"
	case EventSystemWake:
		return "system-wake"
	default:
		return "unknown"
	}
}
