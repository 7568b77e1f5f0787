// Package policy holds the review policy: license buckets, detection patterns,
// per-tool defaults and the organization profile. A Policy is immutable once
// built; every getter returns a copy.
package policy

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/openctemio/ossreview/pkg/domain/licensepolicy"
	"github.com/openctemio/ossreview/pkg/domain/severity"
	"github.com/openctemio/ossreview/pkg/domain/shared"
)

// Organization is the profile of the organization publishing the project.
type Organization struct {
	Name           string `json:"name,omitempty" yaml:"name,omitempty"`
	ProjectLicense string `json:"project_license,omitempty" yaml:"project_license,omitempty"`
	ContactEmail   string `json:"contact_email,omitempty" yaml:"contact_email,omitempty" validate:"omitempty,email"`
	Website        string `json:"website,omitempty" yaml:"website,omitempty" validate:"omitempty,url"`
	SecurityPolicy string `json:"security_policy,omitempty" yaml:"security_policy,omitempty"`
}

// LicenseAuditDefaults are the license audit settings used when a request
// does not override them.
type LicenseAuditDefaults struct {
	FailOnUnknown  bool   `json:"fail_on_unknown" yaml:"fail_on_unknown"`
	SkipGeneration bool   `json:"skip_generation" yaml:"skip_generation"`
	SBOMPath       string `json:"sbom_path,omitempty" yaml:"sbom_path,omitempty"`
}

// AdvisoryAuditDefaults are the advisory audit settings used when a request
// does not override them.
type AdvisoryAuditDefaults struct {
	Threshold  severity.Severity `json:"threshold" yaml:"threshold" validate:"omitempty,severity"`
	IncludeDev bool              `json:"include_dev" yaml:"include_dev"`
	IgnoreIDs  []string          `json:"ignore_ids,omitempty" yaml:"ignore_ids,omitempty"`
	IgnoreFile string            `json:"ignore_file,omitempty" yaml:"ignore_file,omitempty"`
}

func (d AdvisoryAuditDefaults) clone() AdvisoryAuditDefaults {
	d.IgnoreIDs = slices.Clone(d.IgnoreIDs)
	return d
}

// Licenses is the YAML form of the license buckets. It accepts the
// traffic-light aliases green/yellow/red for the bucket keys.
type Licenses struct {
	licensepolicy.Buckets `yaml:",inline"`
}

// UnmarshalYAML decodes bucket keys in document order so a bucket given
// under both its name and its alias is concatenated deterministically.
func (l *Licenses) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: licenses must be a mapping of bucket to entries", node.Line)
	}
	var b licensepolicy.Buckets
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		cat, err := licensepolicy.ParseCategory(key.Value)
		if err != nil {
			return fmt.Errorf("line %d: %w", key.Line, err)
		}
		var entries []licensepolicy.LicenseEntry
		if err := value.Decode(&entries); err != nil {
			return fmt.Errorf("line %d: %s: %w", value.Line, key.Value, err)
		}
		switch cat {
		case licensepolicy.CategoryApproved:
			b.Approved = append(b.Approved, entries...)
		case licensepolicy.CategoryConditional:
			b.Conditional = append(b.Conditional, entries...)
		case licensepolicy.CategoryProhibited:
			b.Prohibited = append(b.Prohibited, entries...)
		}
	}
	l.Buckets = b
	return nil
}

// File is the on-disk policy document.
type File struct {
	Organization  Organization          `json:"organization" yaml:"organization"`
	Licenses      Licenses              `json:"licenses" yaml:"licenses"`
	Patterns      map[string][]string   `json:"patterns" yaml:"patterns" validate:"dive,keys,required,endkeys,dive,required,regexp"`
	LicenseAudit  LicenseAuditDefaults  `json:"license_audit" yaml:"license_audit"`
	AdvisoryAudit AdvisoryAuditDefaults `json:"advisory_audit" yaml:"advisory_audit"`
}

// Policy is the validated, read-only review policy.
type Policy struct {
	source        string
	org           Organization
	buckets       licensepolicy.Buckets
	patterns      map[string][]string
	licenseAudit  LicenseAuditDefaults
	advisoryAudit AdvisoryAuditDefaults
}

// newPolicy copies f into a Policy.
func newPolicy(f File, source string) *Policy {
	p := &Policy{
		source:        source,
		org:           f.Organization,
		buckets:       f.Licenses.Buckets.Clone(),
		patterns:      clonePatterns(f.Patterns),
		licenseAudit:  f.LicenseAudit,
		advisoryAudit: f.AdvisoryAudit.clone(),
	}
	if p.advisoryAudit.Threshold == "" {
		p.advisoryAudit.Threshold = severity.High
	} else {
		p.advisoryAudit.Threshold = severity.Severity(strings.ToLower(string(p.advisoryAudit.Threshold)))
	}
	return p
}

// Source returns the file the policy was loaded from, or "builtin".
func (p *Policy) Source() string {
	return p.source
}

// Licenses returns a copy of one license bucket.
func (p *Policy) Licenses(c licensepolicy.Category) []licensepolicy.LicenseEntry {
	return slices.Clone(p.buckets.Get(c))
}

// Buckets returns a deep copy of all license buckets.
func (p *Policy) Buckets() licensepolicy.Buckets {
	return p.buckets.Clone()
}

// Patterns returns a copy of the detection patterns of one bucket.
func (p *Policy) Patterns(bucket string) []string {
	return slices.Clone(p.patterns[bucket])
}

// PatternBuckets returns the pattern bucket names in sorted order.
func (p *Policy) PatternBuckets() []string {
	names := make([]string, 0, len(p.patterns))
	for name := range p.patterns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LicenseAuditDefaults returns the license audit defaults.
func (p *Policy) LicenseAuditDefaults() LicenseAuditDefaults {
	return p.licenseAudit
}

// AdvisoryAuditDefaults returns a copy of the advisory audit defaults.
func (p *Policy) AdvisoryAuditDefaults() AdvisoryAuditDefaults {
	return p.advisoryAudit.clone()
}

// Organization returns the organization profile.
func (p *Policy) Organization() Organization {
	return p.org
}

// File returns a copy of the policy in its on-disk shape, for display.
func (p *Policy) File() File {
	return File{
		Organization:  p.org,
		Licenses:      Licenses{Buckets: p.buckets.Clone()},
		Patterns:      clonePatterns(p.patterns),
		LicenseAudit:  p.licenseAudit,
		AdvisoryAudit: p.advisoryAudit.clone(),
	}
}

// Section names accepted by Section.
const (
	SectionOrganization  = "organization"
	SectionLicenses      = "licenses"
	SectionPatterns      = "patterns"
	SectionLicenseAudit  = "license_audit"
	SectionAdvisoryAudit = "advisory_audit"
)

// Sections returns the section names in document order.
func Sections() []string {
	return []string{SectionOrganization, SectionLicenses, SectionPatterns, SectionLicenseAudit, SectionAdvisoryAudit}
}

// Section returns a copy of one top-level section of the policy document.
// An empty name returns the whole document.
func (p *Policy) Section(name string) (any, error) {
	f := p.File()
	switch name {
	case "":
		return f, nil
	case SectionOrganization:
		return f.Organization, nil
	case SectionLicenses:
		return f.Licenses, nil
	case SectionPatterns:
		return f.Patterns, nil
	case SectionLicenseAudit:
		return f.LicenseAudit, nil
	case SectionAdvisoryAudit:
		return f.AdvisoryAudit, nil
	default:
		return nil, fmt.Errorf("%w: unknown policy section %q (want one of %s)", shared.ErrInvalidInput, name, strings.Join(Sections(), ", "))
	}
}

func clonePatterns(in map[string][]string) map[string][]string {
	out := make(map[string][]string, len(in))
	for k, v := range in {
		out[k] = slices.Clone(v)
	}
	return out
}
