package mirror

import (
	"errors"
	"testing"

	"github.com/knightynite/hidpid/src/platform"
	"github.com/knightynite/hidpid/src/utility"
)

func testController(t *testing.T) (*Controller, *platform.Fake) {
	t.Helper()
	fake := platform.NewFake()
	return NewController(utility.NewLogger("cli", utility.ERROR), fake), fake
}

func TestMirrorCommitsTransaction(t *testing.T) {
	c, fake := testController(t)
	fake.SetDisplays(
		platform.Display{ID: 2},
		platform.Display{ID: 901},
	)

	if err := c.Mirror(901, 2); err != nil {
		t.Fatal(err)
	}
	if got := fake.MirrorTargetOf(2); got != 901 {
		t.Errorf("display 2 mirrors %d, want 901", got)
	}
}

func TestUnmirrorClearsBinding(t *testing.T) {
	c, fake := testController(t)
	fake.SetDisplays(
		platform.Display{ID: 2, MirrorsDisplay: 901},
		platform.Display{ID: 901},
	)

	if err := c.Unmirror(2); err != nil {
		t.Fatal(err)
	}
	if got := fake.MirrorTargetOf(2); got != 0 {
		t.Errorf("display 2 still mirrors %d", got)
	}
}

func TestMirrorCancelsOnConfigureFailure(t *testing.T) {
	c, fake := testController(t)
	fake.SetDisplays(platform.Display{ID: 2}, platform.Display{ID: 901})
	fake.ConfigureErr = errors.New("invalid source")

	if err := c.Mirror(901, 2); err == nil {
		t.Fatal("expected configure failure to propagate")
	}

	cancelled := false
	for _, call := range fake.Calls {
		if call == "cancel" {
			cancelled = true
		}
	}
	if !cancelled {
		t.Error("failed transaction must be cancelled")
	}
	if got := fake.MirrorTargetOf(2); got != 0 {
		t.Errorf("no mirror state may be left live, got %d", got)
	}
}

func TestMirrorBeginFailure(t *testing.T) {
	c, fake := testController(t)
	fake.BeginErr = errors.New("busy")

	if err := c.Mirror(901, 2); err == nil {
		t.Fatal("expected begin failure to propagate")
	}
}

func TestResetAllMirroring(t *testing.T) {
	c, fake := testController(t)
	fake.SetDisplays(
		platform.Display{ID: 1},
		platform.Display{ID: 2, MirrorsDisplay: 901},
		platform.Display{ID: 3, MirrorsDisplay: 902},
	)

	if err := c.ResetAllMirroring(); err != nil {
		t.Fatal(err)
	}
	if fake.MirrorTargetOf(2) != 0 || fake.MirrorTargetOf(3) != 0 {
		t.Error("all mirror bindings must be cleared")
	}
}

func TestResetAllMirroringNothingToDo(t *testing.T) {
	c, fake := testController(t)
	fake.SetDisplays(platform.Display{ID: 1}, platform.Display{ID: 2})

	if err := c.ResetAllMirroring(); err != nil {
		t.Fatal(err)
	}
	for _, call := range fake.Calls {
		if call == "begin" {
			t.Fatal("reset must not open transactions when nothing mirrors")
		}
	}
}

func TestResetAllMirroringEnumerationFailure(t *testing.T) {
	c, fake := testController(t)
	fake.ListErr = errors.New("display services unavailable")

	if err := c.ResetAllMirroring(); err == nil {
		t.Fatal("expected enumeration failure to propagate")
	}
}
