package advisory

import (
	"context"

	"github.com/openctemio/ossreview/pkg/domain/sbom"
)

// RunContext carries everything a provider may need for one run.
type RunContext struct {
	TargetPath string
	IncludeDev bool
	// SBOM is the analyzed bill of materials, when the caller has one.
	SBOM     *sbom.Analysis
	CacheDir string
	Env      map[string]string
}

// ProviderResult is the normalized output of one provider run.
type ProviderResult struct {
	Findings []Finding
	Warnings []string
	Metadata map[string]any
}

// Provider is a source of vulnerability advisories.
//
// Implementations translate their native output into Findings. A returned
// error aborts the audit; partial-data conditions belong in Warnings.
type Provider interface {
	Name() string
	Run(ctx context.Context, rc RunContext) (*ProviderResult, error)
}
