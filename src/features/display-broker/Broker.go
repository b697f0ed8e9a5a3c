/**
 * Virtual display broker - owns the lifecycle of at most one synthetic
 * display at a time
 */

package displaybroker

import (
	"fmt"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/knightynite/hidpid/src/platform"
	"github.com/knightynite/hidpid/src/utility"
)

// Reserved identity stamped onto every virtual display this broker
// creates. The enumerator uses the vendor ID to recognize our own
// displays in the live list.
const (
	ReservedVendorID  uint32 = 0x4654
	ReservedProductID uint32 = 0x2786
	reservedSerialNum uint32 = 1
)

// FallbackRefreshRate is always offered in the mode list. Some
// refresh rates are rejected outright by the OS; a 60 Hz fallback
// increases acceptance odds.
const FallbackRefreshRate = 60.0

const virtualDisplayName = "hidpid Virtual Display"

// sRGB primaries, so the compositor treats the synthetic panel as a
// normal color-managed display.
var (
	srgbRed   = platform.ColorPoint{X: 0.640, Y: 0.330}
	srgbGreen = platform.ColorPoint{X: 0.300, Y: 0.600}
	srgbBlue  = platform.ColorPoint{X: 0.150, Y: 0.060}
	srgbWhite = platform.ColorPoint{X: 0.3127, Y: 0.3290}
)

// Broker manages creation and release of the single virtual-display
// slot. OS accounting of virtual displays is unreliable under repeated
// create/destroy cycles, so at most one is ever tracked, and release
// is best-effort only; real reclamation is the supervisor's process
// restart.
type Broker struct {
	logger *utility.Logger
	api    platform.API

	mu       sync.Mutex
	current  platform.DisplayID
	retained mapset.Set[platform.DisplayID]
}

// NewBroker creates a broker over the given platform bridge.
func NewBroker(logger *utility.Logger, api platform.API) *Broker {
	return &Broker{
		logger:   logger,
		api:      api,
		retained: mapset.NewSet[platform.DisplayID](),
	}
}

// Create requests a virtual display for the preset at the given
// refresh rate. It fails if a virtual display is already tracked;
// callers must ReleaseAll first. Failures are terminal for the
// attempt; callers retry only after a cool-down with a fresh call.
func (b *Broker) Create(preset DisplayPreset, refreshRate float64) (platform.DisplayID, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.current != 0 {
		return 0, fmt.Errorf("virtual display %d is already active; release it first", b.current)
	}

	if refreshRate <= 0 {
		refreshRate = FallbackRefreshRate
	}

	modes := []platform.Mode{{
		Width:       preset.FramebufferWidth,
		Height:      preset.FramebufferHeight,
		RefreshRate: refreshRate,
	}}
	if refreshRate != FallbackRefreshRate {
		modes = append(modes, platform.Mode{
			Width:       preset.FramebufferWidth,
			Height:      preset.FramebufferHeight,
			RefreshRate: FallbackRefreshRate,
		})
	}

	spec := platform.VirtualDisplaySpec{
		Name:             virtualDisplayName,
		VendorID:         ReservedVendorID,
		ProductID:        ReservedProductID,
		SerialNumber:     reservedSerialNum,
		PhysicalWidthMM:  PhysicalSizeMM(preset.FramebufferWidth, preset.PPI),
		PhysicalHeightMM: PhysicalSizeMM(preset.FramebufferHeight, preset.PPI),
		MaxPixelsWide:    preset.FramebufferWidth,
		MaxPixelsHigh:    preset.FramebufferHeight,
		RedPrimary:       srgbRed,
		GreenPrimary:     srgbGreen,
		BluePrimary:      srgbBlue,
		WhitePoint:       srgbWhite,
		Modes:            modes,
		HiDPI:            true,
	}

	id, err := b.api.CreateVirtualDisplay(spec)
	if err != nil {
		return 0, fmt.Errorf("failed to create virtual display: %w", err)
	}
	if id == 0 {
		return 0, fmt.Errorf("OS returned a null virtual display handle")
	}

	b.current = id
	b.retained.Add(id)
	b.logger.Info("Created virtual display %d (%dx%d @ %.1fHz, HiDPI)",
		id, preset.FramebufferWidth, preset.FramebufferHeight, refreshRate)
	return id, nil
}

// ReleaseAll drops every retained virtual display. This clears the
// broker's tracking but must NOT be assumed to have freed the OS-side
// resource; explicit destroy calls are known to be unreliable.
func (b *Broker) ReleaseAll() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id := range b.retained.Iter() {
		if err := b.api.DestroyVirtualDisplay(id); err != nil {
			b.logger.Warn("Best-effort release of virtual display %d failed: %v", id, err)
		} else {
			b.logger.Info("Released virtual display %d", id)
		}
	}
	b.retained.Clear()
	b.current = 0
}

// CurrentDisplayID returns the tracked virtual display handle, or 0.
func (b *Broker) CurrentDisplayID() platform.DisplayID {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}
