/**
 * Display enumerator - classifies the live display list and selects
 * the physical target monitor
 */

package displaymonitor

import (
	"fmt"
	"sort"
	"strings"

	displaybroker "github.com/knightynite/hidpid/src/features/display-broker"
	"github.com/knightynite/hidpid/src/platform"
	"github.com/knightynite/hidpid/src/utility"
)

// Enumerator queries the OS display list and classifies each handle as
// built-in panel, our own virtual display, or candidate real external
// monitor.
type Enumerator struct {
	logger *utility.Logger
	api    platform.API
}

// NewEnumerator creates an enumerator over the given platform bridge.
func NewEnumerator(logger *utility.Logger, api platform.API) *Enumerator {
	return &Enumerator{logger: logger, api: api}
}

// ListDisplays returns the classified live display list.
func (e *Enumerator) ListDisplays() ([]DisplayInfo, error) {
	displays, err := e.api.OnlineDisplays()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate displays: %w", err)
	}

	infos := make([]DisplayInfo, 0, len(displays))
	for _, d := range displays {
		infos = append(infos, DisplayInfo{
			ID:               d.ID,
			PixelWidth:       d.PixelWidth,
			PixelHeight:      d.PixelHeight,
			PhysicalWidthMM:  d.PhysicalWidthMM,
			PhysicalHeightMM: d.PhysicalHeightMM,
			RefreshRate:      d.RefreshRate,
			IsBuiltin:        d.IsBuiltin,
			IsMain:           d.IsMain,
			MirrorsDisplay:   d.MirrorsDisplay,
			IsOurVirtual:     d.VendorID == displaybroker.ReservedVendorID,
		})
	}
	return infos, nil
}

// FindRealExternalMonitor returns the best candidate physical external
// monitor, excluding built-in panels, any display carrying the
// broker's reserved vendor identifier, and the given handle. Remaining
// candidates are ranked by physical width descending; real large
// monitors are assumed wider than any builtin or stray virtual
// display. Equal widths keep OS enumeration order (the sort is
// stable); no secondary key is imposed.
func (e *Enumerator) FindRealExternalMonitor(excluding platform.DisplayID) (DisplayInfo, bool) {
	infos, err := e.ListDisplays()
	if err != nil {
		e.logger.Error("Display enumeration failed: %v", err)
		return DisplayInfo{}, false
	}

	candidates := make([]DisplayInfo, 0, len(infos))
	for _, info := range infos {
		if info.IsBuiltin || info.IsOurVirtual || info.ID == excluding {
			continue
		}
		candidates = append(candidates, info)
	}

	if len(candidates) == 0 {
		return DisplayInfo{}, false
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].PhysicalWidthMM > candidates[j].PhysicalWidthMM
	})
	return candidates[0], true
}

// FormatDisplayInfo formats the display list for CLI output.
func (e *Enumerator) FormatDisplayInfo(infos []DisplayInfo) string {
	if len(infos) == 0 {
		return "Display Information:\n  No displays detected"
	}

	lines := []string{"Display Information:"}

	for _, info := range infos {
		lines = append(lines, "")
		lines = append(lines, fmt.Sprintf("  Display %d:", info.ID))
		lines = append(lines, fmt.Sprintf("    Resolution: %dx%d@%.0fHz", info.PixelWidth, info.PixelHeight, info.RefreshRate))
		lines = append(lines, fmt.Sprintf("    Physical Size: %.0fx%.0fmm", info.PhysicalWidthMM, info.PhysicalHeightMM))
		lines = append(lines, fmt.Sprintf("    Kind: %s", classify(info)))

		if info.IsMain {
			lines = append(lines, "    Main: yes")
		}
		if info.MirrorsDisplay != 0 {
			lines = append(lines, fmt.Sprintf("    Mirrors: display %d", info.MirrorsDisplay))
		}
	}

	return strings.Join(lines, "\n")
}

// classify names a display's category for human output
func classify(info DisplayInfo) string {
	switch {
	case info.IsBuiltin:
		return "built-in panel"
	case info.IsOurVirtual:
		return "hidpid virtual display"
	default:
		return "external monitor"
	}
}
