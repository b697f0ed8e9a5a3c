package utility

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Shell provides command execution capabilities
type Shell struct {
	logger *Logger
}

// Result contains the output of a command execution
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
	TimedOut bool
	Duration time.Duration
	Command  string
}

// ExecOptions configures command execution
type ExecOptions struct {
	Timeout        time.Duration
	StdoutCallback func(line string)
	StderrCallback func(line string)
	Env            map[string]string
	WorkDir        string
}

// NewShell creates a new Shell executor
func NewShell(logger *Logger) *Shell {
	return &Shell{logger: logger}
}

// Execute runs a command with the given options
func (s *Shell) Execute(ctx context.Context, command string, opts *ExecOptions) (*Result, error) {
	if opts == nil {
		opts = &ExecOptions{
			Timeout: 30 * time.Second,
		}
	}

	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}

	execCtx := ctx
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	startTime := time.Now()

	cmd := exec.CommandContext(execCtx, "sh", "-c", command)

	if opts.WorkDir != "" {
		cmd.Dir = opts.WorkDir
	}

	if len(opts.Env) > 0 {
		cmd.Env = append(cmd.Env, s.envMapToSlice(opts.Env)...)
	}

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}

	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start command: %w", err)
	}

	var stdoutBuf bytes.Buffer
	stdoutDone := make(chan struct{})
	go func() {
		scanner := bufio.NewScanner(stdoutPipe)
		for scanner.Scan() {
			line := scanner.Text()
			stdoutBuf.WriteString(line + "\n")
			if opts.StdoutCallback != nil {
				opts.StdoutCallback(line)
			}
		}
		close(stdoutDone)
	}()

	var stderrBuf bytes.Buffer
	stderrDone := make(chan struct{})
	go func() {
		scanner := bufio.NewScanner(stderrPipe)
		for scanner.Scan() {
			line := scanner.Text()
			stderrBuf.WriteString(line + "\n")
			if opts.StderrCallback != nil {
				opts.StderrCallback(line)
			}
		}
		close(stderrDone)
	}()

	<-stdoutDone
	<-stderrDone

	err = cmd.Wait()
	duration := time.Since(startTime)

	result := &Result{
		ExitCode: 0,
		Stdout:   strings.TrimSpace(stdoutBuf.String()),
		Stderr:   strings.TrimSpace(stderrBuf.String()),
		TimedOut: false,
		Duration: duration,
		Command:  command,
	}

	if execCtx.Err() == context.DeadlineExceeded {
		result.TimedOut = true
		result.ExitCode = -1
		return result, fmt.Errorf("command timed out after %v", opts.Timeout)
	}

	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			result.ExitCode = exitErr.ExitCode()
		} else {
			result.ExitCode = -1
			return result, fmt.Errorf("command failed: %w", err)
		}
	}

	return result, nil
}

// StartDetached launches a command that must outlive the current
// process. The child is released immediately and never waited on.
func (s *Shell) StartDetached(command string) error {
	cmd := exec.Command("sh", "-c", command)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start detached command: %w", err)
	}
	if err := cmd.Process.Release(); err != nil {
		return fmt.Errorf("failed to release detached process: %w", err)
	}
	s.logger.Debug("Started detached command: %s", command)
	return nil
}

// envMapToSlice converts a map of environment variables to a slice
func (s *Shell) envMapToSlice(env map[string]string) []string {
	result := make([]string, 0, len(env))
	for key, value := range env {
		result = append(result, fmt.Sprintf("%s=%s", key, value))
	}
	return result
}

// QuickExec is a convenience method for simple command execution
func (s *Shell) QuickExec(command string) (*Result, error) {
	return s.Execute(context.Background(), command, nil)
}

// ExecWithTimeout runs a command with a specific timeout
func (s *Shell) ExecWithTimeout(command string, timeout time.Duration) (*Result, error) {
	return s.Execute(context.Background(), command, &ExecOptions{Timeout: timeout})
}
