package displaymonitor

import (
	"errors"
	"strings"
	"testing"

	displaybroker "github.com/knightynite/hidpid/src/features/display-broker"
	"github.com/knightynite/hidpid/src/platform"
	"github.com/knightynite/hidpid/src/utility"
)

func testEnumerator(t *testing.T) (*Enumerator, *platform.Fake) {
	t.Helper()
	fake := platform.NewFake()
	return NewEnumerator(utility.NewLogger("cli", utility.ERROR), fake), fake
}

func builtinPanel(id platform.DisplayID) platform.Display {
	return platform.Display{
		ID: id, PixelWidth: 3024, PixelHeight: 1964,
		PhysicalWidthMM: 302, PhysicalHeightMM: 196,
		RefreshRate: 120, IsBuiltin: true, IsMain: true,
	}
}

func externalMonitor(id platform.DisplayID, widthMM float64) platform.Display {
	return platform.Display{
		ID: id, PixelWidth: 7680, PixelHeight: 2160,
		PhysicalWidthMM: widthMM, PhysicalHeightMM: 370,
		RefreshRate: 120, VendorID: 0x4c2d,
	}
}

func ourVirtual(id platform.DisplayID) platform.Display {
	return platform.Display{
		ID: id, PixelWidth: 10240, PixelHeight: 2880,
		PhysicalWidthMM: 1858, PhysicalHeightMM: 522,
		RefreshRate: 120, VendorID: displaybroker.ReservedVendorID,
	}
}

func TestListDisplaysClassification(t *testing.T) {
	enum, fake := testEnumerator(t)
	fake.SetDisplays(builtinPanel(1), externalMonitor(2, 1400), ourVirtual(3))

	infos, err := enum.ListDisplays()
	if err != nil {
		t.Fatal(err)
	}
	if len(infos) != 3 {
		t.Fatalf("got %d displays, want 3", len(infos))
	}
	if !infos[0].IsBuiltin || infos[0].IsOurVirtual {
		t.Error("display 1 should be the built-in panel")
	}
	if infos[1].IsBuiltin || infos[1].IsOurVirtual {
		t.Error("display 2 should be a plain external monitor")
	}
	if !infos[2].IsOurVirtual {
		t.Error("display 3 carries the reserved vendor and should be ours")
	}
}

func TestFindRealExternalMonitor(t *testing.T) {
	enum, fake := testEnumerator(t)
	fake.SetDisplays(builtinPanel(1), externalMonitor(2, 1400), ourVirtual(3))

	found, ok := enum.FindRealExternalMonitor(0)
	if !ok {
		t.Fatal("expected to find the external monitor")
	}
	if found.ID != 2 {
		t.Errorf("found display %d, want 2", found.ID)
	}
}

func TestFindRealExternalMonitorPrefersWidest(t *testing.T) {
	enum, fake := testEnumerator(t)
	fake.SetDisplays(builtinPanel(1), externalMonitor(2, 600), externalMonitor(4, 1400))

	found, ok := enum.FindRealExternalMonitor(0)
	if !ok {
		t.Fatal("expected a candidate")
	}
	if found.ID != 4 {
		t.Errorf("found display %d, want the physically widest (4)", found.ID)
	}
}

func TestFindRealExternalMonitorExcludesHandle(t *testing.T) {
	enum, fake := testEnumerator(t)
	fake.SetDisplays(builtinPanel(1), externalMonitor(2, 1400))

	if _, ok := enum.FindRealExternalMonitor(2); ok {
		t.Error("excluded handle must not be selected")
	}
}

func TestFindRealExternalMonitorNoneAvailable(t *testing.T) {
	enum, fake := testEnumerator(t)
	fake.SetDisplays(builtinPanel(1), ourVirtual(3))

	if _, ok := enum.FindRealExternalMonitor(0); ok {
		t.Error("builtin and our own virtual display are not candidates")
	}
}

func TestFindRealExternalMonitorListFailure(t *testing.T) {
	enum, fake := testEnumerator(t)
	fake.ListErr = errors.New("display services unavailable")

	if _, ok := enum.FindRealExternalMonitor(0); ok {
		t.Error("enumeration failure must report no candidate")
	}
}

func TestFormatDisplayInfo(t *testing.T) {
	enum, fake := testEnumerator(t)
	fake.SetDisplays(builtinPanel(1), externalMonitor(2, 1400))

	infos, err := enum.ListDisplays()
	if err != nil {
		t.Fatal(err)
	}
	out := enum.FormatDisplayInfo(infos)

	for _, want := range []string{"Display 1:", "Display 2:", "built-in panel", "external monitor", "7680x2160@120Hz"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	if empty := enum.FormatDisplayInfo(nil); !strings.Contains(empty, "No displays") {
		t.Errorf("empty list output = %q", empty)
	}
}
