// Package sarif provides the subset of SARIF (Static Analysis Results
// Interchange Format) v2.1.0 needed to publish audit results to code
// scanning dashboards.
// Specification: https://docs.oasis-open.org/sarif/sarif/v2.1.0/sarif-v2.1.0.html
package sarif

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/openctemio/ossreview/pkg/domain/severity"
)

// Version and Schema identify the SARIF revision written by this package.
const (
	Version = "2.1.0"
	Schema  = "https://json.schemastore.org/sarif-2.1.0.json"
)

// Level is the severity level of a result.
type Level string

const (
	LevelNone    Level = "none"
	LevelNote    Level = "note"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// SuppressionKind identifies where a suppression was declared.
type SuppressionKind string

const (
	SuppressionKindInSource SuppressionKind = "inSource"
	SuppressionKindExternal SuppressionKind = "external"
)

// Properties is a property bag.
type Properties map[string]any

// Log is the root SARIF object.
type Log struct {
	Version string `json:"version"`
	Schema  string `json:"$schema,omitempty"`
	Runs    []Run  `json:"runs"`
}

// Run is a single invocation of one tool.
type Run struct {
	Tool        Tool         `json:"tool"`
	Results     []Result     `json:"results"`
	Invocations []Invocation `json:"invocations,omitempty"`
	Properties  Properties   `json:"properties,omitempty"`

	ruleIndex map[string]int
}

// Tool describes the analysis tool.
type Tool struct {
	Driver ToolComponent `json:"driver"`
}

// ToolComponent is the driver of a run.
type ToolComponent struct {
	Name           string                `json:"name"`
	Version        string                `json:"version,omitempty"`
	InformationURI string                `json:"informationUri,omitempty"`
	Rules          []ReportingDescriptor `json:"rules,omitempty"`
}

// ReportingDescriptor describes a rule.
type ReportingDescriptor struct {
	ID                   string                    `json:"id"`
	Name                 string                    `json:"name,omitempty"`
	ShortDescription     *MultiformatMessageString `json:"shortDescription,omitempty"`
	FullDescription      *MultiformatMessageString `json:"fullDescription,omitempty"`
	HelpURI              string                    `json:"helpUri,omitempty"`
	DefaultConfiguration *ReportingConfiguration   `json:"defaultConfiguration,omitempty"`
	Properties           Properties                `json:"properties,omitempty"`
}

// ReportingConfiguration is the default configuration of a rule.
type ReportingConfiguration struct {
	Level Level `json:"level,omitempty"`
}

// Result is a single finding.
type Result struct {
	RuleID       string        `json:"ruleId"`
	RuleIndex    int           `json:"ruleIndex"`
	Level        Level         `json:"level,omitempty"`
	Message      Message       `json:"message"`
	Locations    []Location    `json:"locations,omitempty"`
	Suppressions []Suppression `json:"suppressions,omitempty"`
	Properties   Properties    `json:"properties,omitempty"`
}

// Location points at an artifact and, optionally, a logical element in it.
type Location struct {
	PhysicalLocation *PhysicalLocation `json:"physicalLocation,omitempty"`
	LogicalLocations []LogicalLocation `json:"logicalLocations,omitempty"`
}

// PhysicalLocation is a file reference.
type PhysicalLocation struct {
	ArtifactLocation *ArtifactLocation `json:"artifactLocation,omitempty"`
}

// ArtifactLocation is the URI of an artifact.
type ArtifactLocation struct {
	URI       string `json:"uri,omitempty"`
	URIBaseID string `json:"uriBaseId,omitempty"`
}

// LogicalLocation names a package or component.
type LogicalLocation struct {
	Name               string `json:"name,omitempty"`
	FullyQualifiedName string `json:"fullyQualifiedName,omitempty"`
	Kind               string `json:"kind,omitempty"`
}

// Message is a plain text message.
type Message struct {
	Text string `json:"text"`
}

// MultiformatMessageString is a message with an optional markdown form.
type MultiformatMessageString struct {
	Text     string `json:"text"`
	Markdown string `json:"markdown,omitempty"`
}

// Suppression records why a result is not reported as active.
type Suppression struct {
	Kind          SuppressionKind `json:"kind"`
	Justification string          `json:"justification,omitempty"`
}

// Invocation describes how the run went.
type Invocation struct {
	ExecutionSuccessful        bool           `json:"executionSuccessful"`
	EndTimeUTC                 string         `json:"endTimeUtc,omitempty"`
	ToolExecutionNotifications []Notification `json:"toolExecutionNotifications,omitempty"`
}

// Notification is a message about the run itself, such as a warning.
type Notification struct {
	Level   Level   `json:"level,omitempty"`
	Message Message `json:"message"`
}

// NewLog creates a log containing the given runs.
func NewLog(runs ...Run) *Log {
	return &Log{Version: Version, Schema: Schema, Runs: runs}
}

// NewRun creates an empty run for a tool.
func NewRun(name, version, informationURI string) Run {
	return Run{
		Tool: Tool{Driver: ToolComponent{
			Name:           name,
			Version:        version,
			InformationURI: informationURI,
		}},
		Results: []Result{},
	}
}

// AddRule registers a rule once and returns its index. A second call with
// the same id returns the existing index and leaves the rule unchanged.
func (r *Run) AddRule(rule ReportingDescriptor) int {
	if r.ruleIndex == nil {
		r.ruleIndex = make(map[string]int, len(r.Tool.Driver.Rules))
		for i, existing := range r.Tool.Driver.Rules {
			r.ruleIndex[existing.ID] = i
		}
	}
	if i, ok := r.ruleIndex[rule.ID]; ok {
		return i
	}
	r.Tool.Driver.Rules = append(r.Tool.Driver.Rules, rule)
	i := len(r.Tool.Driver.Rules) - 1
	r.ruleIndex[rule.ID] = i
	return i
}

// AddResult appends a result under the given rule, registering the rule
// first when needed.
func (r *Run) AddResult(rule ReportingDescriptor, result Result) {
	result.RuleID = rule.ID
	result.RuleIndex = r.AddRule(rule)
	r.Results = append(r.Results, result)
}

// LevelForSeverity maps an advisory severity to a result level.
func LevelForSeverity(s severity.Severity) Level {
	switch s {
	case severity.Critical, severity.High:
		return LevelError
	case severity.Medium:
		return LevelWarning
	case severity.Low, severity.Info:
		return LevelNote
	default:
		return LevelWarning
	}
}

// SecuritySeverity returns the numeric score code scanning dashboards use to
// bucket security results.
func SecuritySeverity(s severity.Severity) string {
	switch s {
	case severity.Critical:
		return "9.5"
	case severity.High:
		return "8.0"
	case severity.Medium:
		return "5.5"
	case severity.Low:
		return "2.0"
	default:
		return "0.0"
	}
}

// Write encodes the log as indented JSON.
func (l *Log) Write(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(l); err != nil {
		return fmt.Errorf("failed to encode SARIF log: %w", err)
	}
	return nil
}
