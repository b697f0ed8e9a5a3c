package displaybroker

import (
	"errors"
	"testing"

	"github.com/knightynite/hidpid/src/platform"
	"github.com/knightynite/hidpid/src/utility"
)

func testBroker(t *testing.T) (*Broker, *platform.Fake) {
	t.Helper()
	fake := platform.NewFake()
	return NewBroker(utility.NewLogger("cli", utility.ERROR), fake), fake
}

func TestCreateStampsReservedIdentity(t *testing.T) {
	broker, fake := testBroker(t)

	preset, _ := LookupPreset("g9-57-5120x1440")
	id, err := broker.Create(preset, 120)
	if err != nil {
		t.Fatal(err)
	}
	if id == 0 {
		t.Fatal("expected a non-zero display handle")
	}

	specs := fake.CreatedSpecs()
	if len(specs) != 1 {
		t.Fatalf("created %d specs, want 1", len(specs))
	}
	spec := specs[0]
	if spec.VendorID != ReservedVendorID || spec.ProductID != ReservedProductID {
		t.Errorf("identity = %#x/%#x, want %#x/%#x",
			spec.VendorID, spec.ProductID, ReservedVendorID, ReservedProductID)
	}
	if !spec.HiDPI {
		t.Error("spec must request HiDPI")
	}
	if spec.MaxPixelsWide != preset.FramebufferWidth || spec.MaxPixelsHigh != preset.FramebufferHeight {
		t.Errorf("max pixels = %dx%d, want %dx%d",
			spec.MaxPixelsWide, spec.MaxPixelsHigh, preset.FramebufferWidth, preset.FramebufferHeight)
	}
	if spec.PhysicalWidthMM <= 0 || spec.PhysicalHeightMM <= 0 {
		t.Error("physical size must be positive")
	}
}

func TestCreateOffersFallbackMode(t *testing.T) {
	broker, fake := testBroker(t)
	preset, _ := LookupPreset("g9-57-5120x1440")

	if _, err := broker.Create(preset, 120); err != nil {
		t.Fatal(err)
	}

	modes := fake.CreatedSpecs()[0].Modes
	if len(modes) != 2 {
		t.Fatalf("got %d modes, want detected rate plus 60 Hz fallback", len(modes))
	}
	if modes[0].RefreshRate != 120 {
		t.Errorf("primary mode rate = %v, want 120", modes[0].RefreshRate)
	}
	if modes[1].RefreshRate != FallbackRefreshRate {
		t.Errorf("fallback mode rate = %v, want %v", modes[1].RefreshRate, FallbackRefreshRate)
	}
}

func TestCreateAt60HzOffersSingleMode(t *testing.T) {
	broker, fake := testBroker(t)
	preset, _ := LookupPreset("uhd-27-2560x1440")

	if _, err := broker.Create(preset, 60); err != nil {
		t.Fatal(err)
	}
	if modes := fake.CreatedSpecs()[0].Modes; len(modes) != 1 {
		t.Errorf("got %d modes, want no duplicate 60 Hz entry", len(modes))
	}
}

func TestCreateDefaultsInvalidRate(t *testing.T) {
	broker, fake := testBroker(t)
	preset, _ := LookupPreset("uhd-27-2560x1440")

	if _, err := broker.Create(preset, 0); err != nil {
		t.Fatal(err)
	}
	if rate := fake.CreatedSpecs()[0].Modes[0].RefreshRate; rate != FallbackRefreshRate {
		t.Errorf("rate = %v, want fallback %v", rate, FallbackRefreshRate)
	}
}

func TestCreateRejectsSecondDisplay(t *testing.T) {
	broker, _ := testBroker(t)
	preset, _ := LookupPreset("g9-57-3840x1080")

	if _, err := broker.Create(preset, 60); err != nil {
		t.Fatal(err)
	}
	if _, err := broker.Create(preset, 60); err == nil {
		t.Fatal("second create must fail while one display is tracked")
	}
}

func TestCreatePropagatesBridgeError(t *testing.T) {
	broker, fake := testBroker(t)
	fake.CreateErr = errors.New("no slots")

	preset, _ := LookupPreset("g9-57-3840x1080")
	if _, err := broker.Create(preset, 60); err == nil {
		t.Fatal("expected bridge error to propagate")
	}
	if broker.CurrentDisplayID() != 0 {
		t.Error("failed create must not leave a tracked display")
	}
}

func TestReleaseAllDestroysAndClears(t *testing.T) {
	broker, fake := testBroker(t)
	preset, _ := LookupPreset("g9-57-3840x1080")

	id, err := broker.Create(preset, 60)
	if err != nil {
		t.Fatal(err)
	}

	broker.ReleaseAll()

	destroyed := fake.DestroyedIDs()
	if len(destroyed) != 1 || destroyed[0] != id {
		t.Errorf("destroyed = %v, want [%d]", destroyed, id)
	}
	if broker.CurrentDisplayID() != 0 {
		t.Error("release must clear the tracked display")
	}

	// The slot is free again.
	if _, err := broker.Create(preset, 60); err != nil {
		t.Fatalf("create after release failed: %v", err)
	}
}

func TestReleaseAllSurvivesDestroyFailure(t *testing.T) {
	broker, fake := testBroker(t)
	preset, _ := LookupPreset("g9-57-3840x1080")

	if _, err := broker.Create(preset, 60); err != nil {
		t.Fatal(err)
	}
	fake.DestroyErr = errors.New("cannot destroy")

	broker.ReleaseAll()
	if broker.CurrentDisplayID() != 0 {
		t.Error("tracking must clear even when the OS destroy fails")
	}
}
