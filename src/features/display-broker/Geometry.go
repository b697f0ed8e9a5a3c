/**
 * Geometry resolver - derives virtual display geometry from a native
 * panel size and a scale factor
 */

package displaybroker

import (
	"fmt"
	"math"
)

// Scale factor bounds accepted by Resolve. HiDPI is always requested
// at integer 2x internally; fractional scales vary the logical
// resolution, never the framebuffer-to-logical ratio.
const (
	MinScaleFactor = 1.1
	MaxScaleFactor = 2.0
)

// PresetID identifies a display preset.
type PresetID string

// DisplayPreset is an immutable description of one HiDPI
// configuration. The framebuffer is always exactly twice the logical
// ("looks like") size in each dimension.
type DisplayPreset struct {
	ID                PresetID
	Description       string
	LogicalWidth      int
	LogicalHeight     int
	FramebufferWidth  int
	FramebufferHeight int
	// PPI is the assumed pixel density of the target monitor class.
	// It only affects the physical size reported to the OS.
	PPI int
}

// LogicalResolution returns the "looks like" size as a WxH string.
func (p DisplayPreset) LogicalResolution() string {
	return fmt.Sprintf("%dx%d", p.LogicalWidth, p.LogicalHeight)
}

// Resolve derives a preset from a native panel size and a scale
// factor. logical = round(native / scale), framebuffer = 2 x logical.
// Scale factors outside [1.1, 2.0] are a caller error.
func Resolve(nativeWidth, nativeHeight int, scale float64, ppi int) (DisplayPreset, error) {
	if scale < MinScaleFactor || scale > MaxScaleFactor {
		return DisplayPreset{}, fmt.Errorf("scale factor %.2f out of range [%.1f, %.1f]",
			scale, MinScaleFactor, MaxScaleFactor)
	}

	logicalWidth := int(math.Round(float64(nativeWidth) / scale))
	logicalHeight := int(math.Round(float64(nativeHeight) / scale))

	preset := DisplayPreset{
		ID:                PresetID(fmt.Sprintf("custom-%dx%d", logicalWidth, logicalHeight)),
		Description:       fmt.Sprintf("Looks like %dx%d", logicalWidth, logicalHeight),
		LogicalWidth:      logicalWidth,
		LogicalHeight:     logicalHeight,
		FramebufferWidth:  2 * logicalWidth,
		FramebufferHeight: 2 * logicalHeight,
		PPI:               ppi,
	}
	return preset, nil
}

// CustomPreset builds an ad hoc preset directly from a desired logical
// resolution.
func CustomPreset(logicalWidth, logicalHeight, ppi int) DisplayPreset {
	return DisplayPreset{
		ID:                PresetID(fmt.Sprintf("custom-%dx%d", logicalWidth, logicalHeight)),
		Description:       fmt.Sprintf("Custom %dx%d", logicalWidth, logicalHeight),
		LogicalWidth:      logicalWidth,
		LogicalHeight:     logicalHeight,
		FramebufferWidth:  2 * logicalWidth,
		FramebufferHeight: 2 * logicalHeight,
		PPI:               ppi,
	}
}

// PhysicalSizeMM converts a pixel extent to millimeters at the given
// density. Used for the descriptor's size-in-millimeters fields, which
// feed compositor heuristics only.
func PhysicalSizeMM(pixels, ppi int) float64 {
	if ppi <= 0 {
		return 0
	}
	return float64(pixels) / float64(ppi) * 25.4
}

func mustPreset(id PresetID, desc string, nativeW, nativeH int, scale float64, ppi int) DisplayPreset {
	p, err := Resolve(nativeW, nativeH, scale, ppi)
	if err != nil {
		panic(err)
	}
	p.ID = id
	p.Description = desc
	return p
}

// presetCatalog is the built-in preset table, keyed by stable typed
// identifiers. The Samsung G9 57" entries mirror the monitor class
// this tool was originally built around.
var presetCatalog = []DisplayPreset{
	mustPreset("g9-57-3840x1080", "G9 57\" looks like 3840x1080", 7680, 2160, 2.0, 140),
	mustPreset("g9-57-5120x1440", "G9 57\" looks like 5120x1440", 7680, 2160, 1.5, 140),
	mustPreset("g9-57-6144x1728", "G9 57\" looks like 6144x1728", 7680, 2160, 1.25, 140),
	mustPreset("uhd-27-2560x1440", "4K 27\" looks like 2560x1440", 3840, 2160, 1.5, 163),
	mustPreset("uhd-27-3072x1728", "4K 27\" looks like 3072x1728", 3840, 2160, 1.25, 163),
}

// legacyPresetNames maps preset identifiers from earlier releases to
// their current names. Unknown old names pass through unmapped and are
// looked up as-is.
var legacyPresetNames = map[string]string{
	"g9-3840":              "g9-57-3840x1080",
	"g9-5120":              "g9-57-5120x1440",
	"g9-6144":              "g9-57-6144x1728",
	"looks-like-2560x1440": "uhd-27-2560x1440",
}

// MigratePresetName resolves a possibly-legacy preset identifier to
// its current name.
func MigratePresetName(name string) string {
	if current, ok := legacyPresetNames[name]; ok {
		return current
	}
	return name
}

// LookupPreset finds a catalog preset by identifier, accepting legacy
// names.
func LookupPreset(name string) (DisplayPreset, bool) {
	id := PresetID(MigratePresetName(name))
	for _, p := range presetCatalog {
		if p.ID == id {
			return p, true
		}
	}
	return DisplayPreset{}, false
}

// Presets returns the built-in preset catalog.
func Presets() []DisplayPreset {
	return append([]DisplayPreset(nil), presetCatalog...)
}
