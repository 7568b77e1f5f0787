package advisory

import (
	"context"
	"fmt"
	"time"

	"github.com/openctemio/ossreview/pkg/domain/severity"
)

// DefaultThreshold is used when no threshold is configured.
const DefaultThreshold = severity.High

// AuditOptions configures the advisory verdict.
type AuditOptions struct {
	Threshold severity.Severity
	Rules     []IgnoreRule
	Now       time.Time
}

// ProviderRun records provenance for one provider invocation.
type ProviderRun struct {
	Provider string         `json:"provider" yaml:"provider"`
	Findings int            `json:"findings" yaml:"findings"`
	Metadata map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Result aggregates an advisory audit.
type Result struct {
	Findings    []Finding         `json:"findings" yaml:"findings"`
	Ignored     []IgnoredFinding  `json:"ignored" yaml:"ignored"`
	Summary     severity.Summary  `json:"summary" yaml:"summary"`
	Threshold   severity.Severity `json:"threshold" yaml:"threshold"`
	FailReasons []string          `json:"fail_reasons" yaml:"fail_reasons"`
	Warnings    []string          `json:"warnings" yaml:"warnings"`
	Providers   []ProviderRun     `json:"providers" yaml:"providers"`
	OK          bool              `json:"ok" yaml:"ok"`
}

// Collect runs each provider in order and concatenates their output. The
// first provider error aborts collection.
func Collect(ctx context.Context, providers []Provider, rc RunContext) ([]Finding, []string, []ProviderRun, error) {
	var (
		findings []Finding
		warnings []string
		runs     []ProviderRun
	)
	for _, p := range providers {
		res, err := p.Run(ctx, rc)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("%s: %w", p.Name(), err)
		}
		if res == nil {
			res = &ProviderResult{}
		}
		findings = append(findings, res.Findings...)
		warnings = append(warnings, res.Warnings...)
		runs = append(runs, ProviderRun{
			Provider: p.Name(),
			Findings: len(res.Findings),
			Metadata: res.Metadata,
		})
	}
	return findings, warnings, runs, nil
}

// Evaluate applies ignore rules, summarizes what survives and derives one
// fail reason per finding at or above the threshold.
func Evaluate(findings []Finding, opts AuditOptions) *Result {
	threshold := DefaultThreshold
	if opts.Threshold != "" {
		threshold = severity.Normalize(string(opts.Threshold))
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	outcome := ApplyIgnoreRules(findings, opts.Rules, now)

	r := &Result{
		Findings:    outcome.Findings,
		Ignored:     outcome.Ignored,
		Summary:     Summarize(outcome.Findings),
		Threshold:   threshold,
		FailReasons: []string{},
		Warnings:    append([]string{}, outcome.Warnings...),
		Providers:   []ProviderRun{},
	}

	for _, f := range outcome.Findings {
		if severity.MeetsThreshold(f.Severity, threshold) {
			r.FailReasons = append(r.FailReasons, FailReason(f))
		}
	}
	r.OK = len(r.FailReasons) == 0
	return r
}

// FailReason renders the human-readable fail reason for a finding.
func FailReason(f Finding) string {
	reason := fmt.Sprintf("%s in %s has %s severity", f.ID, f.DisplayPackage(), f.Severity)
	if f.Title != "" {
		reason += ": " + f.Title
	}
	return reason
}

// Audit collects findings from the providers and evaluates them. Provider
// warnings precede ignore-rule warnings in the result.
func Audit(ctx context.Context, providers []Provider, rc RunContext, opts AuditOptions) (*Result, error) {
	findings, warnings, runs, err := Collect(ctx, providers, rc)
	if err != nil {
		return nil, err
	}
	r := Evaluate(findings, opts)
	r.Warnings = append(warnings, r.Warnings...)
	if r.Warnings == nil {
		r.Warnings = []string{}
	}
	if runs != nil {
		r.Providers = runs
	}
	return r, nil
}
