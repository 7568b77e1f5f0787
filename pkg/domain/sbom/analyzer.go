package sbom

import (
	"strings"
)

// Entry is one normalized component of an analyzed bill of materials.
type Entry struct {
	Ref      string   `json:"ref" yaml:"ref"`
	Name     string   `json:"name" yaml:"name"`
	Version  string   `json:"version,omitempty" yaml:"version,omitempty"`
	Type     string   `json:"type,omitempty" yaml:"type,omitempty"`
	PURL     string   `json:"purl,omitempty" yaml:"purl,omitempty"`
	Licenses []string `json:"licenses" yaml:"licenses"`
	Parent   string   `json:"parent,omitempty" yaml:"parent,omitempty"`
}

// HasLicenses reports whether any license information was resolved.
func (e Entry) HasLicenses() bool {
	return len(e.Licenses) > 0
}

// DisplayName returns name@version, or just the name when unversioned.
func (e Entry) DisplayName() string {
	if e.Version == "" {
		return e.Name
	}
	return e.Name + "@" + e.Version
}

// Analysis is the flattened view of a document.
type Analysis struct {
	Format       string   `json:"format" yaml:"format"`
	SpecVersion  string   `json:"spec_version" yaml:"spec_version"`
	SerialNumber string   `json:"serial_number,omitempty" yaml:"serial_number,omitempty"`
	Entries      []Entry  `json:"entries" yaml:"entries"`
	Warnings     []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// Analyze flattens the document's components depth first, parents before
// their children, into one entry per component.
func Analyze(doc *Document) *Analysis {
	a := &Analysis{}
	if doc == nil {
		return a
	}
	a.Format = doc.BOMFormat
	a.SpecVersion = doc.SpecVersion
	a.SerialNumber = doc.SerialNumber
	a.Entries = make([]Entry, 0, len(doc.Components))

	var walk func(cs []Component, parent string)
	walk = func(cs []Component, parent string) {
		for _, c := range cs {
			e := newEntry(c, parent)
			a.Entries = append(a.Entries, e)
			if len(c.Components) > 0 {
				walk(c.Components, e.Ref)
			}
		}
	}
	walk(doc.Components, "")

	return a
}

func newEntry(c Component, parent string) Entry {
	name := c.Name
	if c.Group != "" {
		name = c.Group + "/" + c.Name
	}

	ref := c.BOMRef
	if ref == "" {
		ref = c.PURL
	}
	if ref == "" {
		ref = name
		if c.Version != "" {
			ref += "@" + c.Version
		}
	}

	return Entry{
		Ref:      ref,
		Name:     name,
		Version:  c.Version,
		Type:     c.Type,
		PURL:     c.PURL,
		Licenses: ResolveLicenses(c.Licenses),
		Parent:   parent,
	}
}

// ResolveLicenses returns the flat, de-duplicated license token list for a
// component's license choices. The result is never nil.
func ResolveLicenses(choices []LicenseChoice) []string {
	tokens := make([]string, 0, len(choices))
	seen := make(map[string]struct{}, len(choices))

	add := func(token string) {
		token = strings.TrimSpace(token)
		if token == "" {
			return
		}
		key := strings.ToUpper(token)
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		tokens = append(tokens, token)
	}

	for _, lc := range choices {
		if lc.Expression != "" {
			for _, t := range SplitExpression(lc.Expression) {
				add(t)
			}
		}
		if lc.License == nil {
			continue
		}
		switch {
		case lc.License.ID != "" && isExpression(lc.License.ID):
			for _, t := range SplitExpression(lc.License.ID) {
				add(t)
			}
		case lc.License.ID != "":
			add(lc.License.ID)
		default:
			add(lc.License.Name)
		}
	}

	return tokens
}
