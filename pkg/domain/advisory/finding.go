// Package advisory provides the vulnerability-advisory side of the review:
// normalized findings, ignore rules, the provider capability and the audit
// verdict.
package advisory

import (
	"github.com/openctemio/ossreview/pkg/domain/severity"
)

// Finding is one reported vulnerability affecting a package.
type Finding struct {
	ID             string            `json:"id" yaml:"id"`
	PackageName    string            `json:"package_name" yaml:"package_name"`
	Version        string            `json:"version,omitempty" yaml:"version,omitempty"`
	Severity       severity.Severity `json:"severity" yaml:"severity"`
	Title          string            `json:"title,omitempty" yaml:"title,omitempty"`
	Recommendation string            `json:"recommendation,omitempty" yaml:"recommendation,omitempty"`
	FixedVersion   string            `json:"fixed_version,omitempty" yaml:"fixed_version,omitempty"`
	URL            string            `json:"url,omitempty" yaml:"url,omitempty"`
	CWEs           []string          `json:"cwes,omitempty" yaml:"cwes,omitempty"`
	Source         string            `json:"source" yaml:"source"`
	Metadata       map[string]any    `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// DisplayPackage returns name@version, or just the name when unversioned.
func (f Finding) DisplayPackage() string {
	if f.Version == "" {
		return f.PackageName
	}
	return f.PackageName + "@" + f.Version
}

// Severities extracts the severity of every finding, in order.
func Severities(findings []Finding) []severity.Severity {
	out := make([]severity.Severity, len(findings))
	for i, f := range findings {
		out[i] = f.Severity
	}
	return out
}

// Summarize counts findings per severity bucket.
func Summarize(findings []Finding) severity.Summary {
	return severity.Summarize(Severities(findings))
}
