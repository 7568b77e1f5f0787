// Package npmaudit implements the advisory provider backed by `npm audit`.
package npmaudit

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/openctemio/ossreview/internal/infra/exec"
	"github.com/openctemio/ossreview/pkg/domain/advisory"
	"github.com/openctemio/ossreview/pkg/domain/shared"
	"github.com/openctemio/ossreview/pkg/logger"
)

// Name is the provider name.
const Name = "npm-audit"

// maxStderrWarning bounds how much stderr is copied into a warning.
const maxStderrWarning = 2000

// Config configures the provider.
type Config struct {
	Command string
	Timeout time.Duration
}

// Provider runs `npm audit --json` in the target directory.
type Provider struct {
	runner  exec.Runner
	command string
	timeout time.Duration
	logger  *logger.Logger
}

var _ advisory.Provider = (*Provider)(nil)

// New creates a Provider.
func New(runner exec.Runner, cfg Config, log *logger.Logger) *Provider {
	command := cfg.Command
	if command == "" {
		command = "npm"
	}
	return &Provider{
		runner:  runner,
		command: command,
		timeout: cfg.Timeout,
		logger:  log.With("provider", Name),
	}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return Name
}

// Run executes npm audit. A missing package.json skips the audit with a
// warning. A non-zero exit with a JSON report on stdout is normal (npm exits
// non-zero when it finds vulnerabilities); stderr then becomes a warning.
func (p *Provider) Run(ctx context.Context, rc advisory.RunContext) (*advisory.ProviderResult, error) {
	dir := rc.TargetPath
	if dir == "" {
		dir = "."
	}

	if _, err := os.Stat(filepath.Join(dir, "package.json")); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			p.logger.Info("no package.json, skipping", "dir", dir)
			return &advisory.ProviderResult{
				Findings: []advisory.Finding{},
				Warnings: []string{fmt.Sprintf("no package.json in %s; npm audit skipped", dir)},
				Metadata: map[string]any{"skipped": true},
			}, nil
		}
		return nil, fmt.Errorf("%w: %v", shared.ErrDependency, err)
	}

	args := []string{"audit", "--json"}
	if !rc.IncludeDev {
		args = append(args, "--omit=dev")
	}

	env := maps.Clone(rc.Env)
	if rc.CacheDir != "" {
		if env == nil {
			env = map[string]string{}
		}
		env["npm_config_cache"] = rc.CacheDir
	}

	res, runErr := p.runner.Run(ctx, exec.Command{
		Name:    p.command,
		Args:    args,
		Dir:     dir,
		Env:     env,
		Timeout: p.timeout,
	})

	stdout := strings.TrimSpace(string(res.Stdout))
	stderr := strings.TrimSpace(string(res.Stderr))

	switch {
	case res.NotFound():
		return nil, shared.NewDomainError(shared.CodeToolNotFound,
			fmt.Sprintf("npm executable not found (%s)", p.command),
			fmt.Errorf("%w: %v", shared.ErrDependency, runErr))
	case res.TimedOut():
		return nil, shared.NewDomainError(shared.CodeToolTimeout,
			fmt.Sprintf("npm audit timed out after %s", p.timeout),
			shared.ErrDependency)
	case runErr != nil && res.ExitCode == 0:
		return nil, fmt.Errorf("%w: npm audit failed to start: %v", shared.ErrDependency, runErr)
	case res.ExitCode != 0 && stdout == "":
		return nil, fmt.Errorf("%w: npm audit exited with code %d: %s", shared.ErrDependency, res.ExitCode, stderr)
	}

	findings, err := Parse([]byte(stdout))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrDependency, err)
	}

	var warnings []string
	if res.ExitCode != 0 && stderr != "" {
		warnings = append(warnings, "npm audit stderr: "+truncate(stderr, maxStderrWarning))
	}

	p.logger.Info("npm audit finished",
		"dir", dir,
		"exit_code", res.ExitCode,
		"findings", len(findings),
		"duration_ms", res.Duration.Milliseconds(),
	)

	return &advisory.ProviderResult{
		Findings: findings,
		Warnings: warnings,
		Metadata: map[string]any{
			"command":        p.command + " " + strings.Join(args, " "),
			"exit_code":      res.ExitCode,
			"report_version": ReportVersion([]byte(stdout)),
			"include_dev":    rc.IncludeDev,
			"duration_ms":    res.Duration.Milliseconds(),
		},
	}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
