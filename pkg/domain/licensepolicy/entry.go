// Package licensepolicy provides the three-bucket license policy model and
// the lookup index built from it.
package licensepolicy

import (
	"fmt"
	"strings"
)

// Category is the policy bucket a license belongs to.
type Category string

const (
	CategoryApproved    Category = "approved"
	CategoryConditional Category = "conditional"
	CategoryProhibited  Category = "prohibited"
)

// AllCategories returns the buckets in index processing order.
func AllCategories() []Category {
	return []Category{CategoryApproved, CategoryConditional, CategoryProhibited}
}

// IsValid checks if the category is valid.
func (c Category) IsValid() bool {
	switch c {
	case CategoryApproved, CategoryConditional, CategoryProhibited:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (c Category) String() string {
	return string(c)
}

// ParseCategory parses a bucket name. The traffic-light aliases
// green/yellow/red are accepted.
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "approved", "green":
		return CategoryApproved, nil
	case "conditional", "yellow":
		return CategoryConditional, nil
	case "prohibited", "red":
		return CategoryProhibited, nil
	default:
		return "", fmt.Errorf("invalid license category: %s", s)
	}
}

// LicenseEntry is one named license in a policy bucket.
type LicenseEntry struct {
	ID    string `json:"id" yaml:"id" validate:"required"`
	Name  string `json:"name,omitempty" yaml:"name,omitempty"`
	Notes string `json:"notes,omitempty" yaml:"notes,omitempty"`
	URL   string `json:"url,omitempty" yaml:"url,omitempty" validate:"omitempty,url"`
}

// Key returns the identity of the entry for merge/replace purposes.
func (e LicenseEntry) Key() string {
	return NormalizeKey(e.ID)
}

// Buckets holds the approved, conditional and prohibited license lists.
type Buckets struct {
	Approved    []LicenseEntry `json:"approved" yaml:"approved" validate:"dive"`
	Conditional []LicenseEntry `json:"conditional" yaml:"conditional" validate:"dive"`
	Prohibited  []LicenseEntry `json:"prohibited" yaml:"prohibited" validate:"dive"`
}

// Get returns the bucket for a category. The returned slice aliases b.
func (b Buckets) Get(c Category) []LicenseEntry {
	switch c {
	case CategoryApproved:
		return b.Approved
	case CategoryConditional:
		return b.Conditional
	case CategoryProhibited:
		return b.Prohibited
	default:
		return nil
	}
}

// Len returns the number of entries across all buckets.
func (b Buckets) Len() int {
	return len(b.Approved) + len(b.Conditional) + len(b.Prohibited)
}

// Clone returns a deep copy of the buckets.
func (b Buckets) Clone() Buckets {
	return Buckets{
		Approved:    cloneEntries(b.Approved),
		Conditional: cloneEntries(b.Conditional),
		Prohibited:  cloneEntries(b.Prohibited),
	}
}

func cloneEntries(in []LicenseEntry) []LicenseEntry {
	if in == nil {
		return nil
	}
	out := make([]LicenseEntry, len(in))
	copy(out, in)
	return out
}
