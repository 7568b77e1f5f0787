package classification

import (
	"fmt"
	"strings"

	"github.com/openctemio/ossreview/pkg/domain/licensepolicy"
	"github.com/openctemio/ossreview/pkg/domain/sbom"
)

// ComponentReport is the audit result for one SBOM component.
type ComponentReport struct {
	Ref            string         `json:"ref" yaml:"ref"`
	Name           string         `json:"name" yaml:"name"`
	Version        string         `json:"version,omitempty" yaml:"version,omitempty"`
	Type           string         `json:"type,omitempty" yaml:"type,omitempty"`
	PURL           string         `json:"purl,omitempty" yaml:"purl,omitempty"`
	Licenses       []string       `json:"licenses" yaml:"licenses"`
	Classification Classification `json:"classification" yaml:"classification"`
	Matches        []LicenseMatch `json:"matches" yaml:"matches"`
}

// DisplayName returns name@version, or just the name when unversioned.
func (c ComponentReport) DisplayName() string {
	if c.Version == "" {
		return c.Name
	}
	return c.Name + "@" + c.Version
}

// Counts holds the number of components per classification.
type Counts struct {
	Total       int `json:"total" yaml:"total"`
	Approved    int `json:"approved" yaml:"approved"`
	Conditional int `json:"conditional" yaml:"conditional"`
	Prohibited  int `json:"prohibited" yaml:"prohibited"`
	Unknown     int `json:"unknown" yaml:"unknown"`
	Unlicensed  int `json:"unlicensed" yaml:"unlicensed"`
}

func (c *Counts) add(cl Classification) {
	c.Total++
	switch cl {
	case Approved:
		c.Approved++
	case Conditional:
		c.Conditional++
	case Prohibited:
		c.Prohibited++
	case Unknown:
		c.Unknown++
	case Unlicensed:
		c.Unlicensed++
	}
}

// Options tunes the audit verdict.
type Options struct {
	// FailOnUnknown makes unknown and unlicensed components fail the audit.
	FailOnUnknown bool `json:"fail_on_unknown" yaml:"fail_on_unknown"`
}

// Result aggregates a license audit.
type Result struct {
	Components  []ComponentReport `json:"components" yaml:"components"`
	Counts      Counts            `json:"counts" yaml:"counts"`
	Prohibited  []ComponentReport `json:"prohibited" yaml:"prohibited"`
	Conditional []ComponentReport `json:"conditional" yaml:"conditional"`
	Unknown     []ComponentReport `json:"unknown" yaml:"unknown"`
	Unlicensed  []ComponentReport `json:"unlicensed" yaml:"unlicensed"`
	FailReasons []string          `json:"fail_reasons" yaml:"fail_reasons"`
	Warnings    []string          `json:"warnings" yaml:"warnings"`
	OK          bool              `json:"ok" yaml:"ok"`
}

// Audit classifies every entry against the index and derives the verdict.
//
// Prohibited components always produce a fail reason. Unknown and unlicensed
// components produce one only when FailOnUnknown is set. Conditional
// components never fail the audit: they add a review warning instead of a
// fail reason, so FailReasons is empty exactly when OK is true.
func Audit(entries []sbom.Entry, idx *licensepolicy.Index, opts Options) *Result {
	r := &Result{
		Components:  make([]ComponentReport, 0, len(entries)),
		Prohibited:  []ComponentReport{},
		Conditional: []ComponentReport{},
		Unknown:     []ComponentReport{},
		Unlicensed:  []ComponentReport{},
		FailReasons: []string{},
		Warnings:    []string{},
	}

	for _, e := range entries {
		cl, matches := Classify(e.Licenses, idx)
		cr := ComponentReport{
			Ref:            e.Ref,
			Name:           e.Name,
			Version:        e.Version,
			Type:           e.Type,
			PURL:           e.PURL,
			Licenses:       append([]string{}, e.Licenses...),
			Classification: cl,
			Matches:        matches,
		}
		r.Components = append(r.Components, cr)
		r.Counts.add(cl)

		switch cl {
		case Prohibited:
			r.Prohibited = append(r.Prohibited, cr)
			r.FailReasons = append(r.FailReasons, fmt.Sprintf("%s uses prohibited license %s", cr.DisplayName(), licensesIn(matches, licensepolicy.CategoryProhibited.String())))
		case Conditional:
			// warning, not a fail reason
			r.Conditional = append(r.Conditional, cr)
			r.Warnings = append(r.Warnings, fmt.Sprintf("%s uses conditional license %s and needs review", cr.DisplayName(), licensesIn(matches, licensepolicy.CategoryConditional.String())))
		case Unknown:
			r.Unknown = append(r.Unknown, cr)
			if opts.FailOnUnknown {
				r.FailReasons = append(r.FailReasons, fmt.Sprintf("%s has unrecognized license %s", cr.DisplayName(), licensesIn(matches, UnknownCategory)))
			}
		case Unlicensed:
			r.Unlicensed = append(r.Unlicensed, cr)
			if opts.FailOnUnknown {
				r.FailReasons = append(r.FailReasons, fmt.Sprintf("%s declares no license", cr.DisplayName()))
			}
		}
	}

	r.OK = Passed(r.Counts, opts)
	return r
}

// Passed computes the audit verdict from the counts alone.
func Passed(c Counts, opts Options) bool {
	if c.Prohibited > 0 {
		return false
	}
	if opts.FailOnUnknown && (c.Unknown > 0 || c.Unlicensed > 0) {
		return false
	}
	return true
}

func licensesIn(matches []LicenseMatch, category string) string {
	var names []string
	for _, m := range matches {
		if m.Category == category {
			names = append(names, m.License)
		}
	}
	return strings.Join(names, ", ")
}
