package sbom

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/openctemio/ossreview/internal/infra/exec"
	"github.com/openctemio/ossreview/pkg/domain/shared"
	"github.com/openctemio/ossreview/pkg/logger"
)

// Config configures SBOM generation.
type Config struct {
	Command string
	Timeout time.Duration
	MaxSize int64
}

// SyftProvider generates CycloneDX JSON with syft and reads existing SBOM
// files.
type SyftProvider struct {
	runner exec.Runner
	cfg    Config
	logger *logger.Logger
}

// NewSyftProvider creates a SyftProvider.
func NewSyftProvider(runner exec.Runner, cfg Config, log *logger.Logger) *SyftProvider {
	if cfg.Command == "" {
		cfg.Command = "syft"
	}
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = DefaultMaxSize
	}
	return &SyftProvider{
		runner: runner,
		cfg:    cfg,
		logger: log.With("component", "sbom"),
	}
}

// Scan runs `syft scan dir:<target> -o cyclonedx-json` and returns stdout.
// Any non-zero exit is fatal.
func (p *SyftProvider) Scan(ctx context.Context, target string) ([]byte, error) {
	args := []string{"scan", "dir:" + target, "-o", "cyclonedx-json", "-q"}

	res, err := p.runner.Run(ctx, exec.Command{
		Name:    p.cfg.Command,
		Args:    args,
		Timeout: p.cfg.Timeout,
	})
	switch {
	case res.NotFound():
		return nil, shared.NewDomainError(shared.CodeToolNotFound,
			fmt.Sprintf("syft executable not found (%s)", p.cfg.Command),
			fmt.Errorf("%w: %v", shared.ErrDependency, err))
	case res.TimedOut():
		return nil, shared.NewDomainError(shared.CodeToolTimeout,
			fmt.Sprintf("sbom generation timed out after %s", p.cfg.Timeout),
			shared.ErrDependency)
	case err != nil:
		return nil, fmt.Errorf("%w: sbom generation failed (exit %d): %s", shared.ErrDependency, res.ExitCode, strings.TrimSpace(string(res.Stderr)))
	}

	out := bytes.TrimSpace(res.Stdout)
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: sbom generation produced no output", shared.ErrDependency)
	}
	if int64(len(out)) > p.cfg.MaxSize {
		return nil, fmt.Errorf("%w: generated sbom exceeds limit of %d bytes", shared.ErrDependency, p.cfg.MaxSize)
	}

	p.logger.Info("sbom generated",
		"target", target,
		"bytes", len(out),
		"duration_ms", res.Duration.Milliseconds(),
	)
	return out, nil
}

// ReadExisting reads an SBOM file from disk.
func (p *SyftProvider) ReadExisting(_ context.Context, path string) ([]byte, error) {
	data, err := ReadFile(path, p.cfg.MaxSize)
	if err != nil {
		return nil, err
	}
	p.logger.Debug("sbom read", "path", path, "bytes", len(data))
	return data, nil
}
