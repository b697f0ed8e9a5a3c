package platform

import (
	"fmt"
	"sync"
)

// Fake is an in-memory API implementation for tests. The display list
// is scripted, virtual-display creation hands out sequential IDs, and
// mirror transactions are applied to the scripted list on commit so
// tests can assert on the resulting mirror facts. Every OS call can be
// forced to fail.
type Fake struct {
	mu sync.Mutex

	displays      []Display
	nextVirtualID DisplayID
	nextConfigRef ConfigRef

	// pending transactions: ref -> list of mirror changes
	pending map[ConfigRef][]mirrorChange

	created   []VirtualDisplaySpec
	destroyed []DisplayID

	handler func()

	// Failure injection. A non-nil error makes the matching call fail.
	CreateErr    error
	DestroyErr   error
	BeginErr     error
	ConfigureErr error
	CompleteErr  error
	ListErr      error

	// Calls records the order of bridge operations.
	Calls []string
}

type mirrorChange struct {
	target DisplayID
	source DisplayID
}

// NewFake returns an empty fake bridge.
func NewFake() *Fake {
	return &Fake{
		nextVirtualID: 900,
		nextConfigRef: 1,
		pending:       make(map[ConfigRef][]mirrorChange),
	}
}

// SetDisplays replaces the scripted display list.
func (f *Fake) SetDisplays(displays ...Display) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.displays = append([]Display(nil), displays...)
}

// RemoveDisplay drops a display from the scripted list, simulating a
// monitor disconnect.
func (f *Fake) RemoveDisplay(id DisplayID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.displays[:0]
	for _, d := range f.displays {
		if d.ID != id {
			kept = append(kept, d)
		}
	}
	f.displays = kept
}

// CreatedSpecs returns the virtual-display specs passed to create, in
// order.
func (f *Fake) CreatedSpecs() []VirtualDisplaySpec {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]VirtualDisplaySpec(nil), f.created...)
}

// DestroyedIDs returns the IDs passed to destroy, in order.
func (f *Fake) DestroyedIDs() []DisplayID {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]DisplayID(nil), f.destroyed...)
}

// MirrorTargetOf reports the display that id currently mirrors (0 for
// none, or if id is offline).
func (f *Fake) MirrorTargetOf(id DisplayID) DisplayID {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range f.displays {
		if d.ID == id {
			return d.MirrorsDisplay
		}
	}
	return 0
}

// TriggerReconfiguration invokes the registered reconfiguration
// handler, as the OS would after a display change.
func (f *Fake) TriggerReconfiguration() {
	f.mu.Lock()
	fn := f.handler
	f.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (f *Fake) record(call string) {
	f.Calls = append(f.Calls, call)
}

func (f *Fake) OnlineDisplays() ([]Display, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	return append([]Display(nil), f.displays...), nil
}

func (f *Fake) CreateVirtualDisplay(spec VirtualDisplaySpec) (DisplayID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("create")
	if f.CreateErr != nil {
		return 0, f.CreateErr
	}
	f.nextVirtualID++
	id := f.nextVirtualID
	f.created = append(f.created, spec)
	f.displays = append(f.displays, Display{
		ID:               id,
		PixelWidth:       spec.MaxPixelsWide,
		PixelHeight:      spec.MaxPixelsHigh,
		PhysicalWidthMM:  spec.PhysicalWidthMM,
		PhysicalHeightMM: spec.PhysicalHeightMM,
		RefreshRate:      spec.Modes[0].RefreshRate,
		VendorID:         spec.VendorID,
		ProductID:        spec.ProductID,
	})
	return id, nil
}

func (f *Fake) DestroyVirtualDisplay(id DisplayID) error {
	f.mu.Lock()
	f.record("destroy")
	if f.DestroyErr != nil {
		f.mu.Unlock()
		return f.DestroyErr
	}
	f.destroyed = append(f.destroyed, id)
	f.mu.Unlock()
	f.RemoveDisplay(id)
	return nil
}

func (f *Fake) BeginConfiguration() (ConfigRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("begin")
	if f.BeginErr != nil {
		return 0, f.BeginErr
	}
	ref := f.nextConfigRef
	f.nextConfigRef++
	f.pending[ref] = nil
	return ref, nil
}

func (f *Fake) ConfigureMirror(ref ConfigRef, target, source DisplayID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(fmt.Sprintf("mirror %d<-%d", target, source))
	if f.ConfigureErr != nil {
		return f.ConfigureErr
	}
	if _, ok := f.pending[ref]; !ok {
		return fmt.Errorf("unknown configuration ref %d", ref)
	}
	f.pending[ref] = append(f.pending[ref], mirrorChange{target: target, source: source})
	return nil
}

func (f *Fake) CompleteConfiguration(ref ConfigRef) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("complete")
	if f.CompleteErr != nil {
		delete(f.pending, ref)
		return f.CompleteErr
	}
	changes, ok := f.pending[ref]
	if !ok {
		return fmt.Errorf("unknown configuration ref %d", ref)
	}
	for _, ch := range changes {
		for i := range f.displays {
			if f.displays[i].ID == ch.target {
				f.displays[i].MirrorsDisplay = ch.source
			}
		}
	}
	delete(f.pending, ref)
	return nil
}

func (f *Fake) CancelConfiguration(ref ConfigRef) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("cancel")
	delete(f.pending, ref)
	return nil
}

func (f *Fake) SetReconfigurationHandler(fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handler = fn
}
