// Package exec runs external tools (SBOM generators, advisory auditors) and
// captures their output.
package exec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	osexec "os/exec"
	"path/filepath"
	"sort"
	"time"

	"github.com/openctemio/ossreview/internal/metrics"
	"github.com/openctemio/ossreview/pkg/logger"
)

// Exit codes reported for failures that never produced a process exit status.
const (
	ExitTimeout  = 124
	ExitNotFound = 127
)

// Command describes one tool invocation.
type Command struct {
	Name    string
	Args    []string
	Dir     string
	Env     map[string]string
	Timeout time.Duration
}

// Result holds the execution result.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	Duration time.Duration
	ExitCode int
}

// TimedOut reports whether the command was killed by its deadline.
func (r Result) TimedOut() bool { return r.ExitCode == ExitTimeout }

// NotFound reports whether the executable could not be found.
func (r Result) NotFound() bool { return r.ExitCode == ExitNotFound }

// Runner executes commands.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Result, error)
}

// OSRunner runs commands as child processes.
type OSRunner struct {
	logger *logger.Logger
}

// NewRunner creates an OSRunner.
func NewRunner(log *logger.Logger) *OSRunner {
	return &OSRunner{logger: log.With("component", "exec")}
}

// Run executes the command, capturing stdout, stderr and duration. A nil
// error means exit status 0. Otherwise the error is returned together with
// a Result whose ExitCode is the process status, ExitTimeout or
// ExitNotFound.
func (r *OSRunner) Run(ctx context.Context, c Command) (Result, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	start := time.Now()
	cmd := osexec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), envList(c.Env)...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	res := Result{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		Duration: time.Since(start),
	}

	if err != nil {
		var exitErr *osexec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
		} else {
			res.ExitCode = 1
		}

		switch {
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			res.ExitCode = ExitTimeout
			err = fmt.Errorf("%s timed out after %s: %w", c.Name, res.Duration.Round(time.Millisecond), context.DeadlineExceeded)
		case errors.Is(err, osexec.ErrNotFound), errors.Is(err, fs.ErrNotExist):
			res.ExitCode = ExitNotFound
			err = fmt.Errorf("%s executable not found: %w", c.Name, err)
		}
	}

	r.record(c, res)
	return res, err
}

func (r *OSRunner) record(c Command, res Result) {
	tool := filepath.Base(c.Name)
	outcome := "ok"
	switch {
	case res.TimedOut():
		outcome = "timeout"
	case res.NotFound():
		outcome = "not_found"
	case res.ExitCode != 0:
		outcome = "nonzero"
	}
	metrics.ToolRunsTotal.WithLabelValues(tool, outcome).Inc()
	metrics.ToolRunDuration.WithLabelValues(tool).Observe(res.Duration.Seconds())

	r.logger.Debug("tool finished",
		"tool", tool,
		"args", c.Args,
		"dir", c.Dir,
		"exit_code", res.ExitCode,
		"duration_ms", res.Duration.Milliseconds(),
		"stdout_bytes", len(res.Stdout),
		"stderr_bytes", len(res.Stderr),
	)
}

// envList renders env as KEY=VALUE pairs in sorted key order.
func envList(env map[string]string) []string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+env[k])
	}
	return out
}

// ToolCheck verifies that an executable can be resolved on PATH.
type ToolCheck struct {
	Name string
}

// Ping implements a health check for the tool.
func (c ToolCheck) Ping(_ context.Context) error {
	if _, err := osexec.LookPath(c.Name); err != nil {
		return fmt.Errorf("%s executable not found: %w", c.Name, err)
	}
	return nil
}
