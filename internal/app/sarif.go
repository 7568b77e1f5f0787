package app

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/openctemio/ossreview/pkg/domain/advisory"
	"github.com/openctemio/ossreview/pkg/domain/classification"
	"github.com/openctemio/ossreview/pkg/sarif"
)

const (
	sarifToolName = "ossreview"
	sarifToolURI  = "https://github.com/openctemio/ossreview"
)

// License rules, one per failing or reviewable classification.
var licenseRules = map[classification.Classification]sarif.ReportingDescriptor{
	classification.Prohibited: {
		ID:                   "license/prohibited",
		Name:                 "ProhibitedLicense",
		ShortDescription:     &sarif.MultiformatMessageString{Text: "Dependency uses a prohibited license"},
		DefaultConfiguration: &sarif.ReportingConfiguration{Level: sarif.LevelError},
	},
	classification.Conditional: {
		ID:                   "license/conditional",
		Name:                 "ConditionalLicense",
		ShortDescription:     &sarif.MultiformatMessageString{Text: "Dependency license needs legal review"},
		DefaultConfiguration: &sarif.ReportingConfiguration{Level: sarif.LevelWarning},
	},
	classification.Unknown: {
		ID:                   "license/unknown",
		Name:                 "UnknownLicense",
		ShortDescription:     &sarif.MultiformatMessageString{Text: "Dependency license is not in the policy"},
		DefaultConfiguration: &sarif.ReportingConfiguration{Level: sarif.LevelNote},
	},
	classification.Unlicensed: {
		ID:                   "license/unlicensed",
		Name:                 "MissingLicense",
		ShortDescription:     &sarif.MultiformatMessageString{Text: "Dependency declares no license"},
		DefaultConfiguration: &sarif.ReportingConfiguration{Level: sarif.LevelNote},
	},
}

// LicenseSARIF converts a license audit into a SARIF log. Approved components
// produce no result. Unknown and unlicensed components are errors when the
// audit fails on them.
func LicenseSARIF(report *LicenseAuditReport, toolVersion string) *sarif.Log {
	run := newSARIFRun(toolVersion, report.Policy, report.OK())
	if report.Result == nil {
		return sarif.NewLog(run)
	}

	artifact := sbomArtifact(report)
	groups := []struct {
		class      classification.Classification
		components []classification.ComponentReport
	}{
		{classification.Prohibited, report.Result.Prohibited},
		{classification.Conditional, report.Result.Conditional},
		{classification.Unknown, report.Result.Unknown},
		{classification.Unlicensed, report.Result.Unlicensed},
	}
	for _, g := range groups {
		rule := licenseRules[g.class]
		level := rule.DefaultConfiguration.Level
		if report.Options.FailOnUnknown && (g.class == classification.Unknown || g.class == classification.Unlicensed) {
			level = sarif.LevelError
		}
		for _, c := range g.components {
			run.AddResult(rule, sarif.Result{
				Level:     level,
				Message:   sarif.Message{Text: licenseMessage(c)},
				Locations: []sarif.Location{componentLocation(artifact, componentDisplay(c), c.PURL)},
				Properties: sarif.Properties{
					"licenses": c.Licenses,
				},
			})
		}
	}

	run.Invocations = []sarif.Invocation{invocation(report.GeneratedAt, report.Result.Warnings)}
	return sarif.NewLog(run)
}

// AdvisorySARIF converts an advisory audit into a SARIF log. Each advisory id
// becomes a rule; ignored findings are emitted as externally suppressed
// results.
func AdvisorySARIF(report *AdvisoryAuditReport, toolVersion string) *sarif.Log {
	run := newSARIFRun(toolVersion, report.Policy, report.OK())
	if report.Result == nil {
		return sarif.NewLog(run)
	}

	for _, f := range report.Result.Findings {
		run.AddResult(advisoryRule(f), advisoryResult(f))
	}
	for _, ig := range report.Result.Ignored {
		result := advisoryResult(ig.Finding)
		justification := ig.Rule.Reason
		if ig.Rule.ExpiresAt != "" {
			justification = strings.TrimSpace(fmt.Sprintf("%s (until %s)", justification, ig.Rule.ExpiresAt))
		}
		result.Suppressions = []sarif.Suppression{{
			Kind:          sarif.SuppressionKindExternal,
			Justification: justification,
		}}
		run.AddResult(advisoryRule(ig.Finding), result)
	}

	run.Invocations = []sarif.Invocation{invocation(report.GeneratedAt, report.Result.Warnings)}
	return sarif.NewLog(run)
}

func newSARIFRun(toolVersion, policySource string, ok bool) sarif.Run {
	run := sarif.NewRun(sarifToolName, toolVersion, sarifToolURI)
	run.Properties = sarif.Properties{"policy": policySource, "ok": ok}
	return run
}

func advisoryRule(f advisory.Finding) sarif.ReportingDescriptor {
	title := f.Title
	if title == "" {
		title = f.ID
	}
	tags := append([]string{"security", "dependency"}, f.CWEs...)
	return sarif.ReportingDescriptor{
		ID:               f.ID,
		Name:             f.ID,
		ShortDescription: &sarif.MultiformatMessageString{Text: title},
		HelpURI:          f.URL,
		DefaultConfiguration: &sarif.ReportingConfiguration{
			Level: sarif.LevelForSeverity(f.Severity),
		},
		Properties: sarif.Properties{
			"security-severity": sarif.SecuritySeverity(f.Severity),
			"tags":              tags,
		},
	}
}

func advisoryResult(f advisory.Finding) sarif.Result {
	msg := fmt.Sprintf("%s in %s", f.ID, f.DisplayPackage())
	if f.Title != "" {
		msg += ": " + f.Title
	}
	if f.Recommendation != "" {
		msg += ". " + f.Recommendation
	}
	return sarif.Result{
		Level:     sarif.LevelForSeverity(f.Severity),
		Message:   sarif.Message{Text: msg},
		Locations: []sarif.Location{componentLocation("", f.DisplayPackage(), "")},
		Properties: sarif.Properties{
			"severity": string(f.Severity),
			"source":   f.Source,
		},
	}
}

func licenseMessage(c classification.ComponentReport) string {
	if len(c.Licenses) == 0 {
		return componentDisplay(c) + " declares no license"
	}
	return fmt.Sprintf("%s is %s: %s", componentDisplay(c), c.Classification, strings.Join(c.Licenses, ", "))
}

func componentDisplay(c classification.ComponentReport) string {
	if c.Version == "" {
		return c.Name
	}
	return c.Name + "@" + c.Version
}

func componentLocation(artifact, name, purl string) sarif.Location {
	loc := sarif.Location{
		LogicalLocations: []sarif.LogicalLocation{{
			Name:               name,
			FullyQualifiedName: purl,
			Kind:               "package",
		}},
	}
	if artifact != "" {
		loc.PhysicalLocation = &sarif.PhysicalLocation{
			ArtifactLocation: &sarif.ArtifactLocation{URI: artifact, URIBaseID: "%SRCROOT%"},
		}
	}
	return loc
}

// sbomArtifact returns the SBOM file relative to the target, or "" when the
// BOM was generated or lives outside the target.
func sbomArtifact(report *LicenseAuditReport) string {
	if report.SBOM.Source != SBOMSourceFile || report.SBOM.Path == "" || report.Target == "" {
		return ""
	}
	rel, err := filepath.Rel(report.Target, report.SBOM.Path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return ""
	}
	return filepath.ToSlash(rel)
}

func invocation(end time.Time, warnings []string) sarif.Invocation {
	inv := sarif.Invocation{ExecutionSuccessful: true}
	if !end.IsZero() {
		inv.EndTimeUTC = end.UTC().Format(time.RFC3339)
	}
	for _, w := range warnings {
		inv.ToolExecutionNotifications = append(inv.ToolExecutionNotifications, sarif.Notification{
			Level:   sarif.LevelWarning,
			Message: sarif.Message{Text: w},
		})
	}
	return inv
}
