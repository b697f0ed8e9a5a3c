// Package platform is the boundary to the operating system's display
// stack: the live display list, the mirror configuration transaction,
// and the private virtual-display creation primitive. Everything above
// this package talks to the API interface so the whole lifecycle can
// run against the in-memory fake in tests.
package platform

// DisplayID is the OS-assigned identifier of an online display. IDs of
// physical monitors are transient and may change across reconnects; 0
// is never a valid display.
type DisplayID uint32

// Display describes one online display as reported by the OS.
type Display struct {
	ID               DisplayID
	PixelWidth       int
	PixelHeight      int
	PhysicalWidthMM  float64
	PhysicalHeightMM float64
	RefreshRate      float64
	VendorID         uint32
	ProductID        uint32
	IsBuiltin        bool
	IsMain           bool
	// MirrorsDisplay is the display this one currently mirrors, or 0.
	MirrorsDisplay DisplayID
}

// Mode is one entry of a virtual display's advertised mode list.
type Mode struct {
	Width       int
	Height      int
	RefreshRate float64
}

// ColorPoint is a CIE xy chromaticity coordinate.
type ColorPoint struct {
	X float64
	Y float64
}

// VirtualDisplaySpec carries everything the OS needs to accept a
// synthetic display as a legitimate color-managed HiDPI panel.
type VirtualDisplaySpec struct {
	Name             string
	VendorID         uint32
	ProductID        uint32
	SerialNumber     uint32
	PhysicalWidthMM  float64
	PhysicalHeightMM float64
	MaxPixelsWide    int
	MaxPixelsHigh    int
	RedPrimary       ColorPoint
	GreenPrimary     ColorPoint
	BluePrimary      ColorPoint
	WhitePoint       ColorPoint
	Modes            []Mode
	HiDPI            bool
}

// ConfigRef is an opaque handle to a pending display-configuration
// transaction. It is only valid between BeginConfiguration and the
// matching Complete or Cancel call.
type ConfigRef uintptr

// API is the OS display surface consumed by the broker, the
// enumerator, the mirror controller and the watcher.
type API interface {
	// OnlineDisplays returns the current live display list.
	OnlineDisplays() ([]Display, error)

	// CreateVirtualDisplay asks the OS for a synthetic display and
	// applies its mode list and HiDPI setting. The created object is
	// retained inside the bridge until DestroyVirtualDisplay; the OS
	// gives no guarantee the underlying resource is freed even then.
	CreateVirtualDisplay(spec VirtualDisplaySpec) (DisplayID, error)

	// DestroyVirtualDisplay drops the retained object for id.
	// Best-effort only; callers must not assume OS-side reclamation.
	DestroyVirtualDisplay(id DisplayID) error

	// BeginConfiguration opens a display-configuration transaction.
	BeginConfiguration() (ConfigRef, error)

	// ConfigureMirror requests, within the transaction, that target
	// mirror source. A source of 0 requests "mirror nothing".
	ConfigureMirror(ref ConfigRef, target, source DisplayID) error

	// CompleteConfiguration commits the transaction permanently. The
	// mirrored image can take up to seconds to visually settle after
	// this returns.
	CompleteConfiguration(ref ConfigRef) error

	// CancelConfiguration abandons the transaction, leaving the
	// previous configuration untouched.
	CancelConfiguration(ref ConfigRef) error

	// SetReconfigurationHandler registers a callback invoked whenever
	// the OS reports a display-configuration change. Pass nil to
	// unregister. The callback may fire on an arbitrary thread.
	SetReconfigurationHandler(fn func())
}
