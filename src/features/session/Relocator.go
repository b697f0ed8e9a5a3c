package session

import (
	"context"
	"time"

	"github.com/knightynite/hidpid/src/utility"
)

// WindowRelocator moves user windows off a display that is about to
// disappear. Best-effort, fire-and-forget; the session never blocks on
// it.
type WindowRelocator interface {
	RelocateAllToMainDisplay()
}

// relocateScript asks System Events to nudge every visible window of
// every scriptable process onto the main display. Processes that
// refuse accessibility control are skipped by the try block.
const relocateScript = `
tell application "System Events"
	repeat with proc in (every process whose visible is true)
		try
			repeat with win in windows of proc
				set position of win to {40, 40}
			end repeat
		end try
	end repeat
end tell
`

// AppleScriptRelocator shells out to osascript.
type AppleScriptRelocator struct {
	logger *utility.Logger
	shell  *utility.Shell
}

// NewAppleScriptRelocator creates the osascript-backed relocator.
func NewAppleScriptRelocator(logger *utility.Logger, shell *utility.Shell) *AppleScriptRelocator {
	return &AppleScriptRelocator{logger: logger, shell: shell}
}

// RelocateAllToMainDisplay runs the relocation script in the
// background. Failures are logged and otherwise ignored.
func (r *AppleScriptRelocator) RelocateAllToMainDisplay() {
	go func() {
		result, err := r.shell.Execute(context.Background(), "osascript -e "+shellQuote(relocateScript), &utility.ExecOptions{
			Timeout: 10 * time.Second,
		})
		if err != nil {
			r.logger.Warn("Window relocation failed: %v", err)
			return
		}
		if result.ExitCode != 0 {
			r.logger.Warn("Window relocation exited %d: %s", result.ExitCode, result.Stderr)
		}
	}()
}

// shellQuote single-quotes a string for sh, escaping embedded quotes.
func shellQuote(s string) string {
	quoted := "'"
	for _, r := range s {
		if r == '\'' {
			quoted += `'\''`
		} else {
			quoted += string(r)
		}
	}
	return quoted + "'"
}

// NopRelocator does nothing. Used on platforms without a window
// manager bridge and in tests that only count invocations.
type NopRelocator struct{}

func (NopRelocator) RelocateAllToMainDisplay() {}
