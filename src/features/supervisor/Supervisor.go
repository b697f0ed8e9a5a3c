/**
 * Supervisor - process restart as a teardown primitive. A detached
 * replacement process is spawned with the original arguments, then the
 * current process exits so the OS reclaims every display resource it
 * held.
 */

package supervisor

import (
	"os"
	"strings"

	"github.com/knightynite/hidpid/src/utility"
)

// Launcher starts a command without waiting for it.
type Launcher interface {
	StartDetached(command string) error
}

// Supervisor relaunches the current process.
type Supervisor struct {
	logger   *utility.Logger
	launcher Launcher

	// Overridable for tests.
	executable func() (string, error)
	args       func() []string
	exit       func(code int)
}

// NewSupervisor returns a supervisor that restarts the running binary.
func NewSupervisor(logger *utility.Logger, launcher Launcher) *Supervisor {
	return &Supervisor{
		logger:     logger,
		launcher:   launcher,
		executable: os.Executable,
		args:       func() []string { return os.Args[1:] },
		exit:       os.Exit,
	}
}

// Relaunch spawns a detached copy of this process and exits. On spawn
// failure the process keeps running; a dead replacement is worse than
// a degraded original.
func (s *Supervisor) Relaunch() {
	path, err := s.executable()
	if err != nil {
		s.logger.Error("Cannot resolve own executable path: %v", err)
		return
	}

	// The replacement sleeps briefly so it never races the exiting
	// process for the state store or the display stack.
	command := "sleep 1; exec " + quoteArg(path)
	for _, arg := range s.args() {
		command += " " + quoteArg(arg)
	}

	s.logger.Info("Relaunching: %s", command)
	if err := s.launcher.StartDetached(command); err != nil {
		s.logger.Error("Relaunch failed, continuing in current process: %v", err)
		return
	}
	s.exit(0)
}

func quoteArg(arg string) string {
	return "'" + strings.ReplaceAll(arg, "'", `'\''`) + "'"
}
