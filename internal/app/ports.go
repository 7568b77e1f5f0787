package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/openctemio/ossreview/internal/infra/scm"
	"github.com/openctemio/ossreview/pkg/domain/shared"
)

// SBOMProvider obtains CycloneDX JSON, either by generating it for a source
// tree or by reading an existing file.
type SBOMProvider interface {
	Scan(ctx context.Context, target string) ([]byte, error)
	ReadExisting(ctx context.Context, path string) ([]byte, error)
}

// ProvenanceFunc describes the repository containing a path. It returns
// nil, nil outside a repository.
type ProvenanceFunc func(path string) (*scm.Provenance, error)

// SBOM sources recorded in reports.
const (
	SBOMSourceGenerated = "generated"
	SBOMSourceFile      = "file"
)

// SBOMInfo describes the bill of materials an audit used.
type SBOMInfo struct {
	Source       string `json:"source" yaml:"source"`
	Path         string `json:"path,omitempty" yaml:"path,omitempty"`
	Format       string `json:"format,omitempty" yaml:"format,omitempty"`
	SpecVersion  string `json:"spec_version,omitempty" yaml:"spec_version,omitempty"`
	SerialNumber string `json:"serial_number,omitempty" yaml:"serial_number,omitempty"`
	Components   int    `json:"components" yaml:"components"`
}

// resolveTarget validates an optional target directory and returns its
// absolute path.
func resolveTarget(target string) (string, error) {
	if target == "" {
		return "", nil
	}
	abs, err := filepath.Abs(target)
	if err != nil {
		return "", fmt.Errorf("%w: invalid target path %s: %v", shared.ErrValidation, target, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: target path %s does not exist", shared.ErrValidation, target)
		}
		return "", fmt.Errorf("%w: target path %s: %v", shared.ErrValidation, target, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: target path %s is not a directory", shared.ErrValidation, target)
	}
	return abs, nil
}

// resolveRelative joins a relative path onto base. Absolute paths and an
// empty base are returned unchanged.
func resolveRelative(base, path string) string {
	if path == "" || base == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}
