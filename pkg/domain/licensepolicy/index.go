package licensepolicy

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Match is the result of a successful index lookup.
type Match struct {
	Category Category
	Entry    LicenseEntry
}

// Index maps normalized license ids and display names to their bucket.
//
// Buckets are inserted in the order approved, conditional, prohibited and a
// later insertion with a colliding key replaces the earlier one. A license
// listed in two buckets therefore resolves to the stricter of the two, and a
// display name that equals another entry's id resolves to whichever was
// inserted last. Collisions are not validation errors.
type Index struct {
	entries map[string]Match
}

// BuildIndex builds a lookup index from the policy buckets.
func BuildIndex(b Buckets) *Index {
	idx := &Index{entries: make(map[string]Match, b.Len()*2)}
	for _, c := range AllCategories() {
		for _, e := range b.Get(c) {
			m := Match{Category: c, Entry: e}
			if key := NormalizeKey(e.ID); key != "" {
				idx.entries[key] = m
			}
			if key := NormalizeKey(e.Name); key != "" {
				idx.entries[key] = m
			}
		}
	}
	return idx
}

// Lookup resolves a license identifier or display name.
func (i *Index) Lookup(license string) (Match, bool) {
	if i == nil {
		return Match{}, false
	}
	key := NormalizeKey(license)
	if key == "" {
		return Match{}, false
	}
	m, ok := i.entries[key]
	return m, ok
}

// Len returns the number of distinct keys in the index.
func (i *Index) Len() int {
	if i == nil {
		return 0
	}
	return len(i.entries)
}

// NormalizeKey folds a license id or name into its lookup key: NFKC
// normalized, whitespace collapsed, upper-cased.
func NormalizeKey(s string) string {
	s = norm.NFKC.String(s)
	return strings.ToUpper(strings.Join(strings.Fields(s), " "))
}
