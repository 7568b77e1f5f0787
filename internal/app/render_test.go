package app

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/openctemio/ossreview/pkg/domain/advisory"
	"github.com/openctemio/ossreview/pkg/domain/classification"
	"github.com/openctemio/ossreview/pkg/domain/severity"
)

func TestRenderAdvisoryReport_OrdersBySeverity(t *testing.T) {
	findings := []advisory.Finding{
		{ID: "L-1", PackageName: "a", Severity: severity.Low},
		{ID: "C-1", PackageName: "b", Severity: severity.Critical},
		{ID: "M-1", PackageName: "c", Severity: severity.Medium},
	}
	report := &AdvisoryAuditReport{
		Target:  "/repo",
		Policy:  "builtin",
		Options: AdvisoryAuditOptions{Threshold: severity.High},
		Result: &advisory.Result{
			Findings:    findings,
			Summary:     advisory.Summarize(findings),
			FailReasons: []string{"C-1 in b has critical severity"},
		},
	}

	text := RenderAdvisoryReport(report)

	assert.True(t, strings.Index(text, "C-1") < strings.Index(text, "M-1"))
	assert.True(t, strings.Index(text, "M-1") < strings.Index(text, "L-1"))
	assert.Contains(t, text, "Findings: 3 total (1 critical, 0 high, 1 medium, 1 low, 0 info, 0 unknown), 0 ignored")
	assert.Contains(t, text, "Fail reasons:\n  - C-1 in b has critical severity\n")
	// rendering works on a copy
	assert.Equal(t, "L-1", report.Result.Findings[0].ID)
}

func TestRenderLicenseReport_NilResult(t *testing.T) {
	text := RenderLicenseReport(&LicenseAuditReport{SBOM: SBOMInfo{Source: SBOMSourceGenerated}, Policy: "builtin"})
	assert.Contains(t, text, "License audit: FAILED")
	assert.NotContains(t, text, "Components:")
}

func TestLicenseDistribution(t *testing.T) {
	components := []classification.ComponentReport{
		{Name: "a", Licenses: []string{"MIT"}},
		{Name: "b", Licenses: []string{"Apache-2.0", "MIT"}},
		{Name: "c", Licenses: []string{"BSD-3-Clause"}},
		{Name: "d"},
	}

	got := licenseDistribution(components)

	assert.Equal(t, []licenseCount{
		{license: "MIT", count: 2},
		{license: "Apache-2.0", count: 1},
		{license: "BSD-3-Clause", count: 1},
	}, got)
}
