package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openctemio/ossreview/pkg/domain/advisory"
	"github.com/openctemio/ossreview/pkg/domain/classification"
	"github.com/openctemio/ossreview/pkg/domain/severity"
	"github.com/openctemio/ossreview/pkg/sarif"
)

func TestLicenseSARIF(t *testing.T) {
	prohibited := classification.ComponentReport{
		Name: "mongo-thing", Version: "6.0.0", PURL: "pkg:npm/mongo-thing@6.0.0",
		Licenses: []string{"SSPL-1.0"}, Classification: classification.Prohibited,
	}
	unlicensed := classification.ComponentReport{
		Name: "bare", Version: "0.1.0", Classification: classification.Unlicensed,
	}
	report := &LicenseAuditReport{
		Target:      "/repo",
		Policy:      "builtin",
		SBOM:        SBOMInfo{Source: SBOMSourceFile, Path: "/repo/out/bom.json"},
		Options:     classification.Options{FailOnUnknown: true},
		GeneratedAt: time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC),
		Result: &classification.Result{
			Prohibited: []classification.ComponentReport{prohibited},
			Unlicensed: []classification.ComponentReport{unlicensed},
			Warnings:   []string{"component 3 skipped"},
		},
	}

	log := LicenseSARIF(report, "1.0.0")

	require.Len(t, log.Runs, 1)
	run := log.Runs[0]
	assert.Equal(t, "ossreview", run.Tool.Driver.Name)
	require.Len(t, run.Results, 2)

	assert.Equal(t, "license/prohibited", run.Results[0].RuleID)
	assert.Equal(t, sarif.LevelError, run.Results[0].Level)
	assert.Equal(t, "mongo-thing@6.0.0 is prohibited: SSPL-1.0", run.Results[0].Message.Text)
	loc := run.Results[0].Locations[0]
	require.NotNil(t, loc.PhysicalLocation)
	assert.Equal(t, "out/bom.json", loc.PhysicalLocation.ArtifactLocation.URI)
	assert.Equal(t, "pkg:npm/mongo-thing@6.0.0", loc.LogicalLocations[0].FullyQualifiedName)

	assert.Equal(t, "license/unlicensed", run.Results[1].RuleID)
	assert.Equal(t, sarif.LevelError, run.Results[1].Level, "fail on unknown raises the level")
	assert.Equal(t, "bare@0.1.0 declares no license", run.Results[1].Message.Text)

	require.Len(t, run.Invocations, 1)
	assert.Equal(t, "2026-06-01T12:00:00Z", run.Invocations[0].EndTimeUTC)
	require.Len(t, run.Invocations[0].ToolExecutionNotifications, 1)
}

func TestLicenseSARIF_GeneratedSBOMHasNoArtifact(t *testing.T) {
	report := &LicenseAuditReport{
		Target: "/repo",
		SBOM:   SBOMInfo{Source: SBOMSourceGenerated},
		Result: &classification.Result{
			Conditional: []classification.ComponentReport{{Name: "lgpl-lib", Licenses: []string{"LGPL-3.0-only"}, Classification: classification.Conditional}},
		},
	}

	run := LicenseSARIF(report, "dev").Runs[0]

	require.Len(t, run.Results, 1)
	assert.Equal(t, sarif.LevelWarning, run.Results[0].Level)
	assert.Nil(t, run.Results[0].Locations[0].PhysicalLocation)
}

func TestAdvisorySARIF(t *testing.T) {
	critical := advisory.Finding{
		ID: "GHSA-xvch-5gv4-984h", PackageName: "minimist", Version: "1.2.5",
		Severity: severity.Critical, Title: "Prototype Pollution", URL: "https://github.com/advisories/GHSA-xvch-5gv4-984h",
		CWEs: []string{"CWE-1321"}, Source: "npm-audit",
	}
	low := advisory.Finding{ID: "NPM-4242", PackageName: "left-pad", Severity: severity.Low, Source: "npm-audit"}

	report := &AdvisoryAuditReport{
		Policy: "builtin",
		Result: &advisory.Result{
			Findings: []advisory.Finding{critical, critical},
			Ignored: []advisory.IgnoredFinding{{
				Finding: low,
				Rule:    advisory.IgnoreRule{ID: "NPM-4242", Reason: "not reachable", ExpiresAt: "2027-01-01"},
			}},
		},
	}

	run := AdvisorySARIF(report, "1.0.0").Runs[0]

	require.Len(t, run.Tool.Driver.Rules, 2)
	rule := run.Tool.Driver.Rules[0]
	assert.Equal(t, "GHSA-xvch-5gv4-984h", rule.ID)
	assert.Equal(t, "9.5", rule.Properties["security-severity"])
	assert.Contains(t, rule.Properties["tags"], "CWE-1321")

	require.Len(t, run.Results, 3)
	assert.Equal(t, 0, run.Results[1].RuleIndex)
	assert.Equal(t, sarif.LevelError, run.Results[0].Level)
	assert.Equal(t, "GHSA-xvch-5gv4-984h in minimist@1.2.5: Prototype Pollution", run.Results[0].Message.Text)

	ignored := run.Results[2]
	assert.Equal(t, 1, ignored.RuleIndex)
	assert.Equal(t, sarif.LevelNote, ignored.Level)
	require.Len(t, ignored.Suppressions, 1)
	assert.Equal(t, sarif.SuppressionKindExternal, ignored.Suppressions[0].Kind)
	assert.Equal(t, "not reachable (until 2027-01-01)", ignored.Suppressions[0].Justification)
}

func TestAdvisorySARIF_NilResult(t *testing.T) {
	log := AdvisorySARIF(&AdvisoryAuditReport{}, "dev")
	require.Len(t, log.Runs, 1)
	assert.Empty(t, log.Runs[0].Results)
	assert.Equal(t, false, log.Runs[0].Properties["ok"])
}
