//go:build !darwin

package platform

import "fmt"

// stubBridge keeps the daemon buildable off macOS. Every operation
// fails with a clear error; the CLI degrades to reporting it.
type stubBridge struct{}

// New returns the stub bridge on non-darwin platforms.
func New() API {
	return &stubBridge{}
}

var errUnsupported = fmt.Errorf("display control is only supported on macOS")

func (b *stubBridge) OnlineDisplays() ([]Display, error) {
	return nil, errUnsupported
}

func (b *stubBridge) CreateVirtualDisplay(spec VirtualDisplaySpec) (DisplayID, error) {
	return 0, errUnsupported
}

func (b *stubBridge) DestroyVirtualDisplay(id DisplayID) error {
	return errUnsupported
}

func (b *stubBridge) BeginConfiguration() (ConfigRef, error) {
	return 0, errUnsupported
}

func (b *stubBridge) ConfigureMirror(ref ConfigRef, target, source DisplayID) error {
	return errUnsupported
}

func (b *stubBridge) CompleteConfiguration(ref ConfigRef) error {
	return errUnsupported
}

func (b *stubBridge) CancelConfiguration(ref ConfigRef) error {
	return errUnsupported
}

func (b *stubBridge) SetReconfigurationHandler(fn func()) {}
