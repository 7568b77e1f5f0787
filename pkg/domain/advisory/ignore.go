package advisory

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"
)

// IgnoreRule suppresses findings by advisory id, optionally limited to one
// package and optionally time-limited.
type IgnoreRule struct {
	ID          string `json:"id" yaml:"id"`
	PackageName string `json:"packageName,omitempty" yaml:"package_name,omitempty"`
	ExpiresAt   string `json:"expiresAt,omitempty" yaml:"expires_at,omitempty"`
	Reason      string `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// UnmarshalJSON accepts "package" as an alias of "packageName".
func (r *IgnoreRule) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID          string `json:"id"`
		PackageName string `json:"packageName"`
		Package     string `json:"package"`
		ExpiresAt   string `json:"expiresAt"`
		Reason      string `json:"reason"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.ID = raw.ID
	r.PackageName = raw.PackageName
	if r.PackageName == "" {
		r.PackageName = raw.Package
	}
	r.ExpiresAt = raw.ExpiresAt
	r.Reason = raw.Reason
	return nil
}

// Key is the merge identity of the rule: upper-cased id plus lower-cased
// package filter, "*" when the rule applies to any package.
func (r IgnoreRule) Key() string {
	pkg := strings.ToLower(strings.TrimSpace(r.PackageName))
	if pkg == "" {
		pkg = "*"
	}
	return strings.ToUpper(strings.TrimSpace(r.ID)) + "::" + pkg
}

// Matches reports whether the rule applies to the finding.
func (r IgnoreRule) Matches(f Finding) bool {
	if !strings.EqualFold(strings.TrimSpace(r.ID), strings.TrimSpace(f.ID)) {
		return false
	}
	pkg := strings.TrimSpace(r.PackageName)
	return pkg == "" || strings.EqualFold(pkg, strings.TrimSpace(f.PackageName))
}

// Expiry parses ExpiresAt. Unparseable or absent values report ok=false.
func (r IgnoreRule) Expiry() (time.Time, bool) {
	s := strings.TrimSpace(r.ExpiresAt)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// IsExpired reports whether the rule has a parseable expiry before now.
func (r IgnoreRule) IsExpired(now time.Time) bool {
	t, ok := r.Expiry()
	return ok && t.Before(now)
}

// RulesFromIDs builds package-agnostic rules from bare advisory ids.
func RulesFromIDs(ids []string) []IgnoreRule {
	rules := make([]IgnoreRule, 0, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			rules = append(rules, IgnoreRule{ID: id})
		}
	}
	return rules
}

// LoadIgnoreRules reads a JSON array of ignore rules. A missing file yields
// no rules; entries without an id are dropped.
func LoadIgnoreRules(path string) ([]IgnoreRule, error) {
	if strings.TrimSpace(path) == "" {
		return []IgnoreRule{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []IgnoreRule{}, nil
		}
		return nil, fmt.Errorf("failed to read ignore file %s: %w", path, err)
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse ignore file %s: %w", path, err)
	}

	rules := make([]IgnoreRule, 0, len(raw))
	for _, item := range raw {
		var r IgnoreRule
		if err := json.Unmarshal(item, &r); err != nil {
			continue
		}
		if strings.TrimSpace(r.ID) == "" {
			continue
		}
		rules = append(rules, r)
	}
	return rules, nil
}

// MergeIgnoreRules de-duplicates rules across sets. A later set overwrites
// a rule with the same Key from an earlier set; the output keeps the order
// in which keys were first seen.
func MergeIgnoreRules(sets ...[]IgnoreRule) []IgnoreRule {
	byKey := make(map[string]IgnoreRule)
	var order []string
	for _, set := range sets {
		for _, r := range set {
			if strings.TrimSpace(r.ID) == "" {
				continue
			}
			k := r.Key()
			if _, seen := byKey[k]; !seen {
				order = append(order, k)
			}
			byKey[k] = r
		}
	}

	merged := make([]IgnoreRule, 0, len(order))
	for _, k := range order {
		merged = append(merged, byKey[k])
	}
	return merged
}

// IgnoredFinding pairs a suppressed finding with the rule that suppressed it.
type IgnoredFinding struct {
	Finding Finding    `json:"finding" yaml:"finding"`
	Rule    IgnoreRule `json:"rule" yaml:"rule"`
}

// IgnoreOutcome is the result of applying ignore rules.
type IgnoreOutcome struct {
	Findings []Finding        `json:"findings" yaml:"findings"`
	Ignored  []IgnoredFinding `json:"ignored" yaml:"ignored"`
	Warnings []string         `json:"warnings" yaml:"warnings"`
}

// ApplyIgnoreRules partitions findings into kept and ignored. The first
// matching rule decides. A matching rule that expired before now does not
// suppress; it produces a warning so the exception can be renewed or removed.
func ApplyIgnoreRules(findings []Finding, rules []IgnoreRule, now time.Time) IgnoreOutcome {
	out := IgnoreOutcome{
		Findings: make([]Finding, 0, len(findings)),
		Ignored:  []IgnoredFinding{},
		Warnings: []string{},
	}
	if len(rules) == 0 {
		out.Findings = append(out.Findings, findings...)
		return out
	}

	for _, f := range findings {
		rule, ok := firstMatch(rules, f)
		if !ok {
			out.Findings = append(out.Findings, f)
			continue
		}
		if rule.IsExpired(now) {
			exp, _ := rule.Expiry()
			out.Findings = append(out.Findings, f)
			out.Warnings = append(out.Warnings, fmt.Sprintf(
				"ignore rule for %s (%s) expired on %s; the finding is reported again",
				f.ID, f.PackageName, exp.Format(time.DateOnly)))
			continue
		}
		out.Ignored = append(out.Ignored, IgnoredFinding{Finding: f, Rule: rule})
	}
	return out
}

func firstMatch(rules []IgnoreRule, f Finding) (IgnoreRule, bool) {
	for _, r := range rules {
		if r.Matches(f) {
			return r, true
		}
	}
	return IgnoreRule{}, false
}
