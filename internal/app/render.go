package app

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/openctemio/ossreview/internal/infra/scm"
	"github.com/openctemio/ossreview/pkg/domain/advisory"
	"github.com/openctemio/ossreview/pkg/domain/classification"
	"github.com/openctemio/ossreview/pkg/domain/severity"
)

func verdictLabel(ok bool) string {
	if ok {
		return "PASSED"
	}
	return "FAILED"
}

// RenderLicenseReport renders a license audit as human-readable text.
func RenderLicenseReport(r *LicenseAuditReport) string {
	var b strings.Builder
	res := r.Result

	fmt.Fprintf(&b, "License audit: %s\n", verdictLabel(r.OK()))
	writeTarget(&b, r.Target, r.Provenance)
	switch r.SBOM.Source {
	case SBOMSourceFile:
		fmt.Fprintf(&b, "SBOM: %s", r.SBOM.Path)
	default:
		fmt.Fprintf(&b, "SBOM: generated")
	}
	if r.SBOM.Format != "" {
		fmt.Fprintf(&b, " (%s %s)", r.SBOM.Format, r.SBOM.SpecVersion)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "Policy: %s\n", r.Policy)
	fmt.Fprintf(&b, "Fail on unknown: %t\n", r.Options.FailOnUnknown)
	if res == nil {
		return b.String()
	}

	c := res.Counts
	fmt.Fprintf(&b, "\nComponents: %d total, %d approved, %d conditional, %d prohibited, %d unknown, %d unlicensed\n",
		c.Total, c.Approved, c.Conditional, c.Prohibited, c.Unknown, c.Unlicensed)

	writeComponents(&b, "Prohibited", res.Prohibited)
	writeComponents(&b, "Conditional (needs review)", res.Conditional)
	writeComponents(&b, "Unknown license", res.Unknown)
	writeComponents(&b, "Unlicensed", res.Unlicensed)

	if dist := licenseDistribution(res.Components); len(dist) > 0 {
		b.WriteString("\nLicense distribution:\n")
		for _, d := range dist {
			fmt.Fprintf(&b, "  %-30s %d\n", d.license, d.count)
		}
	}

	writeList(&b, "Fail reasons", res.FailReasons)
	writeList(&b, "Warnings", res.Warnings)
	return b.String()
}

// RenderAdvisoryReport renders an advisory audit as human-readable text.
func RenderAdvisoryReport(r *AdvisoryAuditReport) string {
	var b strings.Builder
	res := r.Result

	fmt.Fprintf(&b, "Advisory audit: %s\n", verdictLabel(r.OK()))
	writeTarget(&b, r.Target, r.Provenance)
	fmt.Fprintf(&b, "Policy: %s\n", r.Policy)
	fmt.Fprintf(&b, "Threshold: %s\n", r.Options.Threshold)
	fmt.Fprintf(&b, "Include dev dependencies: %t\n", r.Options.IncludeDev)
	if r.SBOM != nil {
		fmt.Fprintf(&b, "SBOM: %s (%d components)\n", r.SBOM.Path, r.SBOM.Components)
	}
	if res == nil {
		return b.String()
	}

	if len(res.Providers) > 0 {
		names := make([]string, 0, len(res.Providers))
		for _, p := range res.Providers {
			names = append(names, fmt.Sprintf("%s (%d)", p.Provider, p.Findings))
		}
		fmt.Fprintf(&b, "Providers: %s\n", strings.Join(names, ", "))
	}

	sm := res.Summary
	parts := make([]string, 0, len(severity.All()))
	for _, s := range severity.All() {
		parts = append(parts, fmt.Sprintf("%d %s", sm.Count(s), s))
	}
	fmt.Fprintf(&b, "\nFindings: %d total (%s), %d ignored\n", sm.Total, strings.Join(parts, ", "), len(res.Ignored))

	if len(res.Findings) > 0 {
		findings := append([]advisory.Finding{}, res.Findings...)
		sort.SliceStable(findings, func(i, j int) bool {
			return findings[i].Severity.Weight() > findings[j].Severity.Weight()
		})
		b.WriteString("\nFindings:\n")
		for _, f := range findings {
			fmt.Fprintf(&b, "  - [%s] %s %s", strings.ToUpper(string(f.Severity)), f.ID, f.DisplayPackage())
			if f.Title != "" {
				fmt.Fprintf(&b, ": %s", f.Title)
			}
			b.WriteString("\n")
			if f.Recommendation != "" {
				fmt.Fprintf(&b, "      fix: %s\n", f.Recommendation)
			}
			if f.URL != "" {
				fmt.Fprintf(&b, "      %s\n", f.URL)
			}
		}
	}

	if len(res.Ignored) > 0 {
		b.WriteString("\nIgnored:\n")
		for _, ig := range res.Ignored {
			fmt.Fprintf(&b, "  - %s %s", ig.Finding.ID, ig.Finding.DisplayPackage())
			if ig.Rule.Reason != "" {
				fmt.Fprintf(&b, ": %s", ig.Rule.Reason)
			}
			if exp, ok := ig.Rule.Expiry(); ok {
				fmt.Fprintf(&b, " (until %s)", exp.Format(time.DateOnly))
			}
			b.WriteString("\n")
		}
	}

	writeList(&b, "Fail reasons", res.FailReasons)
	writeList(&b, "Warnings", res.Warnings)
	return b.String()
}

func writeTarget(b *strings.Builder, target string, p *scm.Provenance) {
	if target == "" {
		return
	}
	fmt.Fprintf(b, "Target: %s", target)
	if p != nil && p.Commit != "" {
		if p.Branch != "" {
			fmt.Fprintf(b, " (%s@%s)", p.Branch, p.ShortCommit())
		} else {
			fmt.Fprintf(b, " (%s)", p.ShortCommit())
		}
	}
	b.WriteString("\n")
}

func writeComponents(b *strings.Builder, title string, components []classification.ComponentReport) {
	if len(components) == 0 {
		return
	}
	fmt.Fprintf(b, "\n%s (%d):\n", title, len(components))
	for _, c := range components {
		licenses := strings.Join(c.Licenses, ", ")
		if licenses == "" {
			licenses = "no license declared"
		}
		fmt.Fprintf(b, "  - %s: %s\n", c.DisplayName(), licenses)
		for _, m := range c.Matches {
			if m.Notes != "" {
				fmt.Fprintf(b, "      %s: %s\n", m.License, m.Notes)
			}
		}
	}
}

func writeList(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "\n%s:\n", title)
	for _, item := range items {
		fmt.Fprintf(b, "  - %s\n", item)
	}
}

type licenseCount struct {
	license string
	count   int
}

// licenseDistribution counts components per license token, most used first.
func licenseDistribution(components []classification.ComponentReport) []licenseCount {
	counts := make(map[string]int)
	for _, c := range components {
		for _, l := range c.Licenses {
			counts[l]++
		}
	}
	out := make([]licenseCount, 0, len(counts))
	for l, n := range counts {
		out = append(out, licenseCount{license: l, count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].license < out[j].license
	})
	return out
}
