// Package classification applies a license policy to analyzed SBOM
// components and aggregates the per-component outcomes into an audit result.
package classification

import (
	"github.com/openctemio/ossreview/pkg/domain/licensepolicy"
)

// Classification is the resolved policy outcome for one component.
type Classification string

const (
	Approved    Classification = "approved"
	Conditional Classification = "conditional"
	Prohibited  Classification = "prohibited"
	Unknown     Classification = "unknown"
	Unlicensed  Classification = "unlicensed"
)

// All returns every classification in report order.
func All() []Classification {
	return []Classification{Prohibited, Conditional, Unknown, Unlicensed, Approved}
}

// String returns the string representation.
func (c Classification) String() string {
	return string(c)
}

// UnknownCategory is the category recorded for tokens the policy does not list.
const UnknownCategory = "unknown"

// LicenseMatch explains how one license token was matched.
type LicenseMatch struct {
	License  string `json:"license" yaml:"license"`
	Category string `json:"category" yaml:"category"`
	Notes    string `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// outcome is the contribution of a single token to the fold.
type outcome int

// Ordered by precedence: a higher value always wins the reduction. An
// unrecognized token never displaces a recognized one.
const (
	outcomeUnknown outcome = iota
	outcomeApproved
	outcomeConditional
	outcomeProhibited
)

func outcomeFor(c licensepolicy.Category) outcome {
	switch c {
	case licensepolicy.CategoryProhibited:
		return outcomeProhibited
	case licensepolicy.CategoryConditional:
		return outcomeConditional
	case licensepolicy.CategoryApproved:
		return outcomeApproved
	default:
		return outcomeUnknown
	}
}

func (o outcome) classification() Classification {
	switch o {
	case outcomeProhibited:
		return Prohibited
	case outcomeConditional:
		return Conditional
	case outcomeApproved:
		return Approved
	default:
		return Unknown
	}
}

// Reduce is the priority-max reducer used by Classify. It combines the
// classification accumulated so far with the outcome of the next token.
// Prohibited dominates everything, conditional dominates approved, and
// approved dominates unknown.
func Reduce(acc, next Classification) Classification {
	if rank(next) > rank(acc) {
		return next
	}
	return acc
}

func rank(c Classification) outcome {
	switch c {
	case Prohibited:
		return outcomeProhibited
	case Conditional:
		return outcomeConditional
	case Approved:
		return outcomeApproved
	default:
		return outcomeUnknown
	}
}

// Classify folds a component's license tokens into a single classification.
// A component without tokens is unlicensed. Scanning stops at the first
// prohibited token; the returned matches cover every token scanned.
func Classify(licenses []string, idx *licensepolicy.Index) (Classification, []LicenseMatch) {
	if len(licenses) == 0 {
		return Unlicensed, []LicenseMatch{}
	}

	acc := Unknown
	matches := make([]LicenseMatch, 0, len(licenses))
	for _, token := range licenses {
		m, ok := idx.Lookup(token)
		if !ok {
			matches = append(matches, LicenseMatch{License: token, Category: UnknownCategory})
			acc = Reduce(acc, Unknown)
			continue
		}

		matches = append(matches, LicenseMatch{
			License:  token,
			Category: m.Category.String(),
			Notes:    m.Entry.Notes,
		})
		acc = Reduce(acc, outcomeFor(m.Category).classification())
		if acc == Prohibited {
			break
		}
	}

	return acc, matches
}
