// Package sbom parses CycloneDX bill-of-materials documents and flattens them
// into one normalized entry per component.
package sbom

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Parser errors.
var (
	ErrInvalidBOM = errors.New("invalid CycloneDX document")
)

// Document is the subset of a CycloneDX JSON document the analyzer needs.
type Document struct {
	BOMFormat    string      `json:"bomFormat"`
	SpecVersion  string      `json:"specVersion"`
	SerialNumber string      `json:"serialNumber,omitempty"`
	Version      int         `json:"version,omitempty"`
	Metadata     *Metadata   `json:"metadata,omitempty"`
	Components   []Component `json:"components"`
}

// Metadata describes how and for what the document was produced.
type Metadata struct {
	Timestamp string     `json:"timestamp,omitempty"`
	Component *Component `json:"component,omitempty"`
}

// Component is a CycloneDX component. Components may nest.
type Component struct {
	BOMRef     string          `json:"bom-ref,omitempty"`
	Type       string          `json:"type,omitempty"`
	Group      string          `json:"group,omitempty"`
	Name       string          `json:"name"`
	Version    string          `json:"version,omitempty"`
	PURL       string          `json:"purl,omitempty"`
	Licenses   []LicenseChoice `json:"licenses,omitempty"`
	Components []Component     `json:"components,omitempty"`
}

// LicenseChoice is either a single license or an SPDX license expression.
type LicenseChoice struct {
	License    *License `json:"license,omitempty"`
	Expression string   `json:"expression,omitempty"`
}

// License references a license by SPDX id or by free-form name.
type License struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
	URL  string `json:"url,omitempty"`
}

// rawComponent defers decoding of the parts producers most often get wrong,
// so a single bad entry does not poison its siblings.
type rawComponent struct {
	BOMRef     string            `json:"bom-ref"`
	Type       string            `json:"type"`
	Group      string            `json:"group"`
	Name       string            `json:"name"`
	Version    string            `json:"version"`
	PURL       string            `json:"purl"`
	Licenses   []json.RawMessage `json:"licenses"`
	Components []json.RawMessage `json:"components"`
}

// Parse decodes a CycloneDX JSON document. Unknown fields are ignored and
// malformed components or license entries are skipped with a warning; only
// input that is not a JSON object at all is rejected.
func Parse(data []byte) (*Document, []string, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidBOM, err)
	}

	doc := &Document{}
	var warnings []string

	decodeString(top["bomFormat"], &doc.BOMFormat)
	decodeString(top["specVersion"], &doc.SpecVersion)
	decodeString(top["serialNumber"], &doc.SerialNumber)
	if raw, ok := top["version"]; ok {
		_ = json.Unmarshal(raw, &doc.Version)
	}

	if raw, ok := top["metadata"]; ok {
		var md struct {
			Timestamp string          `json:"timestamp"`
			Component json.RawMessage `json:"component"`
		}
		if err := json.Unmarshal(raw, &md); err != nil {
			warnings = append(warnings, fmt.Sprintf("ignoring malformed metadata: %v", err))
		} else {
			doc.Metadata = &Metadata{Timestamp: md.Timestamp}
			if len(md.Component) > 0 && string(md.Component) != "null" {
				if c, ok := decodeComponent(md.Component, "metadata.component", &warnings); ok {
					doc.Metadata.Component = &c
				}
			}
		}
	}

	if raw, ok := top["components"]; ok && string(raw) != "null" {
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			warnings = append(warnings, fmt.Sprintf("ignoring malformed components list: %v", err))
		}
		doc.Components = decodeComponents(items, "components", &warnings)
	}

	return doc, warnings, nil
}

func decodeComponents(items []json.RawMessage, path string, warnings *[]string) []Component {
	out := make([]Component, 0, len(items))
	for i, item := range items {
		if c, ok := decodeComponent(item, fmt.Sprintf("%s[%d]", path, i), warnings); ok {
			out = append(out, c)
		}
	}
	return out
}

func decodeComponent(raw json.RawMessage, path string, warnings *[]string) (Component, bool) {
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		*warnings = append(*warnings, fmt.Sprintf("skipping malformed component at %s: null entry", path))
		return Component{}, false
	}

	var rc rawComponent
	if err := json.Unmarshal(raw, &rc); err != nil {
		*warnings = append(*warnings, fmt.Sprintf("skipping malformed component at %s: %v", path, err))
		return Component{}, false
	}

	c := Component{
		BOMRef:  rc.BOMRef,
		Type:    rc.Type,
		Group:   rc.Group,
		Name:    rc.Name,
		Version: rc.Version,
		PURL:    rc.PURL,
	}

	for j, lraw := range rc.Licenses {
		var lc LicenseChoice
		if err := json.Unmarshal(lraw, &lc); err != nil {
			*warnings = append(*warnings, fmt.Sprintf("skipping malformed license at %s.licenses[%d]: %v", path, j, err))
			continue
		}
		c.Licenses = append(c.Licenses, lc)
	}

	if len(rc.Components) > 0 {
		c.Components = decodeComponents(rc.Components, path+".components", warnings)
	}

	return c, true
}

func decodeString(raw json.RawMessage, dst *string) {
	if len(raw) == 0 {
		return
	}
	_ = json.Unmarshal(raw, dst)
}
