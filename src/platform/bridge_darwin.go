//go:build darwin

package platform

/*
#cgo CFLAGS: -x objective-c -fobjc-arc
#cgo LDFLAGS: -framework CoreGraphics -framework Foundation
#include <stdlib.h>
#include "bridge_darwin.h"
*/
import "C"

import (
	"fmt"
	"sync"
	"unsafe"
)

const maxOnlineDisplays = 32

// darwinBridge implements API over CoreGraphics plus the private
// CGVirtualDisplay classes (see bridge_darwin.m).
type darwinBridge struct{}

// New returns the CoreGraphics-backed bridge.
func New() API {
	return &darwinBridge{}
}

func (b *darwinBridge) OnlineDisplays() ([]Display, error) {
	var buf [maxOnlineDisplays]C.hidpid_display_info
	n := int(C.hidpid_online_displays(&buf[0], C.int(maxOnlineDisplays)))
	if n < 0 {
		return nil, fmt.Errorf("failed to query active display list")
	}

	displays := make([]Display, 0, n)
	for i := 0; i < n; i++ {
		info := buf[i]
		displays = append(displays, Display{
			ID:               DisplayID(info.id),
			PixelWidth:       int(info.pixelWidth),
			PixelHeight:      int(info.pixelHeight),
			PhysicalWidthMM:  float64(info.physicalWidthMM),
			PhysicalHeightMM: float64(info.physicalHeightMM),
			RefreshRate:      float64(info.refreshRate),
			VendorID:         uint32(info.vendorID),
			ProductID:        uint32(info.productID),
			IsBuiltin:        info.isBuiltin != 0,
			IsMain:           info.isMain != 0,
			MirrorsDisplay:   DisplayID(info.mirrorsDisplay),
		})
	}
	return displays, nil
}

func (b *darwinBridge) CreateVirtualDisplay(spec VirtualDisplaySpec) (DisplayID, error) {
	if len(spec.Modes) == 0 {
		return 0, fmt.Errorf("virtual display spec has no modes")
	}

	name := C.CString(spec.Name)
	defer C.free(unsafe.Pointer(name))

	cspec := C.hidpid_virtual_spec{
		name:          name,
		vendorID:      C.uint32_t(spec.VendorID),
		productID:     C.uint32_t(spec.ProductID),
		serialNum:     C.uint32_t(spec.SerialNumber),
		widthMM:       C.double(spec.PhysicalWidthMM),
		heightMM:      C.double(spec.PhysicalHeightMM),
		maxPixelsWide: C.int32_t(spec.MaxPixelsWide),
		maxPixelsHigh: C.int32_t(spec.MaxPixelsHigh),
		redX:          C.double(spec.RedPrimary.X),
		redY:          C.double(spec.RedPrimary.Y),
		greenX:        C.double(spec.GreenPrimary.X),
		greenY:        C.double(spec.GreenPrimary.Y),
		blueX:         C.double(spec.BluePrimary.X),
		blueY:         C.double(spec.BluePrimary.Y),
		whiteX:        C.double(spec.WhitePoint.X),
		whiteY:        C.double(spec.WhitePoint.Y),
		hiDPI:         boolToC(spec.HiDPI),
	}

	modes := make([]C.hidpid_mode, len(spec.Modes))
	for i, m := range spec.Modes {
		modes[i] = C.hidpid_mode{
			width:       C.int32_t(m.Width),
			height:      C.int32_t(m.Height),
			refreshRate: C.double(m.RefreshRate),
		}
	}

	id := C.hidpid_create_virtual_display(&cspec, &modes[0], C.int(len(modes)))
	if id == 0 {
		return 0, fmt.Errorf("virtual display creation rejected by the OS")
	}
	return DisplayID(id), nil
}

func (b *darwinBridge) DestroyVirtualDisplay(id DisplayID) error {
	if C.hidpid_destroy_virtual_display(C.uint32_t(id)) != 0 {
		return fmt.Errorf("display %d is not a tracked virtual display", id)
	}
	return nil
}

func (b *darwinBridge) BeginConfiguration() (ConfigRef, error) {
	ref := C.hidpid_begin_configuration()
	if ref == 0 {
		return 0, fmt.Errorf("failed to begin display configuration")
	}
	return ConfigRef(ref), nil
}

func (b *darwinBridge) ConfigureMirror(ref ConfigRef, target, source DisplayID) error {
	if C.hidpid_configure_mirror(C.uintptr_t(ref), C.uint32_t(target), C.uint32_t(source)) != 0 {
		return fmt.Errorf("failed to configure mirror of %d for %d", source, target)
	}
	return nil
}

func (b *darwinBridge) CompleteConfiguration(ref ConfigRef) error {
	if C.hidpid_complete_configuration(C.uintptr_t(ref)) != 0 {
		return fmt.Errorf("failed to complete display configuration")
	}
	return nil
}

func (b *darwinBridge) CancelConfiguration(ref ConfigRef) error {
	if C.hidpid_cancel_configuration(C.uintptr_t(ref)) != 0 {
		return fmt.Errorf("failed to cancel display configuration")
	}
	return nil
}

var (
	reconfigMu      sync.Mutex
	reconfigHandler func()
)

func (b *darwinBridge) SetReconfigurationHandler(fn func()) {
	reconfigMu.Lock()
	prev := reconfigHandler
	reconfigHandler = fn
	reconfigMu.Unlock()

	if fn != nil && prev == nil {
		C.hidpid_register_reconfiguration_callback()
	} else if fn == nil && prev != nil {
		C.hidpid_unregister_reconfiguration_callback()
	}
}

//export hidpidGoReconfigCallback
func hidpidGoReconfigCallback() {
	reconfigMu.Lock()
	fn := reconfigHandler
	reconfigMu.Unlock()
	if fn != nil {
		fn()
	}
}

func boolToC(b bool) C.int32_t {
	if b {
		return 1
	}
	return 0
}
