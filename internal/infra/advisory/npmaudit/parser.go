package npmaudit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/openctemio/ossreview/pkg/domain/advisory"
	"github.com/openctemio/ossreview/pkg/domain/severity"
)

// Source is the Finding.Source of every finding this package produces.
const Source = "npm-audit"

var ghsaRegex = regexp.MustCompile(`(?i)GHSA-[0-9a-z]{4}-[0-9a-z]{4}-[0-9a-z]{4}`)

// report covers both the npm 7+ and npm 6 audit formats.
type report struct {
	AuditReportVersion int                   `json:"auditReportVersion"`
	Vulnerabilities    map[string]vuln       `json:"vulnerabilities"`
	Advisories         map[string]v6Advisory `json:"advisories"`
	Error              *auditError           `json:"error"`
}

type auditError struct {
	Code    string `json:"code"`
	Summary string `json:"summary"`
	Detail  string `json:"detail"`
	Message string `json:"message"`
}

func (e auditError) String() string {
	msg := e.Summary
	if msg == "" {
		msg = e.Message
	}
	if e.Code != "" {
		msg = e.Code + ": " + msg
	}
	return strings.TrimSpace(msg)
}

// vuln is one entry of the npm 7+ "vulnerabilities" map.
type vuln struct {
	Name         string            `json:"name"`
	Severity     string            `json:"severity"`
	IsDirect     bool              `json:"isDirect"`
	Via          []json.RawMessage `json:"via"`
	Effects      []string          `json:"effects"`
	Range        string            `json:"range"`
	FixAvailable json.RawMessage   `json:"fixAvailable"`
}

// viaAdvisory is the object form of a "via" element. The string form names
// another vulnerable package and carries no advisory of its own.
type viaAdvisory struct {
	Source   json.RawMessage `json:"source"`
	Name     string          `json:"name"`
	Title    string          `json:"title"`
	URL      string          `json:"url"`
	Severity string          `json:"severity"`
	CWE      json.RawMessage `json:"cwe"`
	Range    string          `json:"range"`
}

type fixAvailable struct {
	Name          string `json:"name"`
	Version       string `json:"version"`
	IsSemVerMajor bool   `json:"isSemVerMajor"`
}

// v6Advisory is one entry of the npm 6 "advisories" map.
type v6Advisory struct {
	ID                 json.RawMessage `json:"id"`
	ModuleName         string          `json:"module_name"`
	Severity           string          `json:"severity"`
	Title              string          `json:"title"`
	URL                string          `json:"url"`
	Recommendation     string          `json:"recommendation"`
	PatchedVersions    string          `json:"patched_versions"`
	VulnerableVersions string          `json:"vulnerable_versions"`
	CWE                json.RawMessage `json:"cwe"`
	GitHubAdvisoryID   string          `json:"github_advisory_id"`
	Findings           []struct {
		Version string   `json:"version"`
		Paths   []string `json:"paths"`
	} `json:"findings"`
}

// ReportVersion returns the audit report format version of data: 2 for the
// npm 7+ "vulnerabilities" format, 1 for the npm 6 "advisories" format, 0
// when neither is present.
func ReportVersion(data []byte) int {
	var r report
	if err := json.Unmarshal(data, &r); err != nil {
		return 0
	}
	return r.version()
}

func (r report) version() int {
	switch {
	case r.Vulnerabilities != nil:
		if r.AuditReportVersion > 0 {
			return r.AuditReportVersion
		}
		return 2
	case r.Advisories != nil:
		return 1
	default:
		return 0
	}
}

// Parse converts `npm audit --json` output into findings, sorted by package
// then advisory id. An error payload from npm is returned as an error.
func Parse(data []byte) ([]advisory.Finding, error) {
	var r report
	if err := json.Unmarshal(bytes.TrimSpace(data), &r); err != nil {
		return nil, fmt.Errorf("failed to unmarshal npm audit json: %w", err)
	}
	if r.Error != nil {
		return nil, fmt.Errorf("npm audit reported an error: %s", r.Error)
	}

	var findings []advisory.Finding
	switch {
	case r.Vulnerabilities != nil:
		findings = parseVulnerabilities(r.Vulnerabilities)
	case r.Advisories != nil:
		findings = parseAdvisories(r.Advisories)
	}

	sort.SliceStable(findings, func(i, j int) bool {
		a, b := findings[i], findings[j]
		if a.PackageName != b.PackageName {
			return a.PackageName < b.PackageName
		}
		if a.ID != b.ID {
			return a.ID < b.ID
		}
		return a.Version < b.Version
	})
	if findings == nil {
		findings = []advisory.Finding{}
	}
	return findings, nil
}

func parseVulnerabilities(vulns map[string]vuln) []advisory.Finding {
	var findings []advisory.Finding
	seen := make(map[string]bool)

	for key, v := range vulns {
		pkg := v.Name
		if pkg == "" {
			pkg = key
		}
		fix := parseFix(v.FixAvailable)

		for _, raw := range v.Via {
			var d viaAdvisory
			// String elements point at another package; skip them.
			if err := json.Unmarshal(raw, &d); err != nil {
				continue
			}
			name := d.Name
			if name == "" {
				name = pkg
			}

			id := advisoryID(d.URL, rawScalar(d.Source))
			dedup := strings.ToUpper(id) + "::" + name
			if seen[dedup] {
				continue
			}
			seen[dedup] = true

			sev := severity.Normalize(d.Severity)
			if d.Severity == "" {
				sev = severity.Normalize(v.Severity)
			}

			f := advisory.Finding{
				ID:             id,
				PackageName:    name,
				Severity:       sev,
				Title:          d.Title,
				URL:            d.URL,
				CWEs:           stringList(d.CWE),
				Recommendation: fix.recommendation(),
				Source:         Source,
				Metadata: map[string]any{
					"range":     d.Range,
					"is_direct": v.IsDirect,
				},
			}
			if fix.Name == name {
				f.FixedVersion = fix.Version
			}
			if len(v.Effects) > 0 {
				f.Metadata["effects"] = append([]string(nil), v.Effects...)
			}
			if src := rawScalar(d.Source); src != "" {
				f.Metadata["npm_advisory"] = src
			}
			findings = append(findings, f)
		}
	}
	return findings
}

func parseAdvisories(advisories map[string]v6Advisory) []advisory.Finding {
	var findings []advisory.Finding

	for key, a := range advisories {
		source := rawScalar(a.ID)
		if source == "" {
			source = key
		}
		id := a.GitHubAdvisoryID
		if id == "" {
			id = advisoryID(a.URL, source)
		}

		base := advisory.Finding{
			ID:             id,
			PackageName:    a.ModuleName,
			Severity:       severity.Normalize(a.Severity),
			Title:          a.Title,
			URL:            a.URL,
			CWEs:           stringList(a.CWE),
			Recommendation: a.Recommendation,
			FixedVersion:   a.PatchedVersions,
			Source:         Source,
		}

		versions := make([]string, 0, len(a.Findings))
		seen := make(map[string]bool)
		for _, f := range a.Findings {
			if f.Version != "" && !seen[f.Version] {
				seen[f.Version] = true
				versions = append(versions, f.Version)
			}
		}
		if len(versions) == 0 {
			versions = append(versions, "")
		}

		for _, ver := range versions {
			f := base
			f.Version = ver
			f.CWEs = append([]string(nil), base.CWEs...)
			f.Metadata = map[string]any{
				"range":        a.VulnerableVersions,
				"npm_advisory": source,
			}
			findings = append(findings, f)
		}
	}
	return findings
}

// advisoryID prefers the GHSA id embedded in the advisory URL and falls back
// to the npm advisory number.
func advisoryID(url, source string) string {
	if m := ghsaRegex.FindString(url); m != "" {
		return "GHSA" + strings.ToLower(m[4:])
	}
	if source == "" {
		return "NPM-UNKNOWN"
	}
	return "NPM-" + source
}

func parseFix(raw json.RawMessage) fixAvailable {
	var fix fixAvailable
	if len(raw) == 0 || raw[0] != '{' {
		var b bool
		if json.Unmarshal(raw, &b) == nil && b {
			fix.Name = "*"
		}
		return fix
	}
	_ = json.Unmarshal(raw, &fix)
	return fix
}

func (f fixAvailable) recommendation() string {
	switch {
	case f.Name == "":
		return ""
	case f.Name == "*":
		return "Run npm audit fix"
	case f.IsSemVerMajor:
		return fmt.Sprintf("Upgrade %s to %s (semver-major)", f.Name, f.Version)
	default:
		return fmt.Sprintf("Upgrade %s to %s", f.Name, f.Version)
	}
}

// rawScalar renders a JSON string or number without quotes.
func rawScalar(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		if i, err := strconv.ParseInt(n.String(), 10, 64); err == nil {
			return strconv.FormatInt(i, 10)
		}
		return n.String()
	}
	return ""
}

// stringList accepts either a JSON string or an array of strings.
func stringList(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil && s != "" {
		return []string{s}
	}
	return nil
}
