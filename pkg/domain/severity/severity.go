// Package severity provides the canonical severity scale shared by advisory
// auditing and reporting.
package severity

import (
	"strings"
)

// Severity represents a canonical advisory severity level.
type Severity string

const (
	Critical Severity = "critical"
	High     Severity = "high"
	Medium   Severity = "medium"
	Low      Severity = "low"
	Info     Severity = "info"
	Unknown  Severity = "unknown"
)

// All returns every severity ordered from most to least severe.
func All() []Severity {
	return []Severity{Critical, High, Medium, Low, Info, Unknown}
}

// IsValid checks if the severity is one of the canonical values.
func (s Severity) IsValid() bool {
	switch s {
	case Critical, High, Medium, Low, Info, Unknown:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (s Severity) String() string {
	return string(s)
}

// Weight returns the ordering weight of the severity. Unknown and any
// non-canonical value weigh 0.
func (s Severity) Weight() int {
	switch s {
	case Critical:
		return 5
	case High:
		return 4
	case Medium:
		return 3
	case Low:
		return 2
	case Info:
		return 1
	default:
		return 0
	}
}

// Normalize maps a provider severity string onto the canonical scale.
// It never fails: anything unrecognized becomes Unknown.
func Normalize(raw string) Severity {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "critical":
		return Critical
	case "high":
		return High
	case "medium", "moderate":
		return Medium
	case "low":
		return Low
	case "info", "informational":
		return Info
	default:
		return Unknown
	}
}

// MeetsThreshold reports whether s is at least as severe as threshold.
func MeetsThreshold(s, threshold Severity) bool {
	return s.Weight() >= threshold.Weight()
}

// Summary holds finding counts per severity bucket.
type Summary struct {
	Critical int `json:"critical" yaml:"critical"`
	High     int `json:"high" yaml:"high"`
	Medium   int `json:"medium" yaml:"medium"`
	Low      int `json:"low" yaml:"low"`
	Info     int `json:"info" yaml:"info"`
	Unknown  int `json:"unknown" yaml:"unknown"`
	Total    int `json:"total" yaml:"total"`
}

// Add increments the bucket for s. Non-canonical values count as unknown.
func (sm *Summary) Add(s Severity) {
	switch s {
	case Critical:
		sm.Critical++
	case High:
		sm.High++
	case Medium:
		sm.Medium++
	case Low:
		sm.Low++
	case Info:
		sm.Info++
	default:
		sm.Unknown++
	}
	sm.Total++
}

// Count returns the count for a single bucket.
func (sm Summary) Count(s Severity) int {
	switch s {
	case Critical:
		return sm.Critical
	case High:
		return sm.High
	case Medium:
		return sm.Medium
	case Low:
		return sm.Low
	case Info:
		return sm.Info
	default:
		return sm.Unknown
	}
}

// Summarize counts the given severities.
func Summarize(severities []Severity) Summary {
	var sm Summary
	for _, s := range severities {
		sm.Add(s)
	}
	return sm
}
