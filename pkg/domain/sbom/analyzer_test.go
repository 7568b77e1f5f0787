package sbom

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadFixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return data
}

func TestParse_TolerantDocument(t *testing.T) {
	doc, warnings, err := Parse(loadFixture(t, "nested_bom.json"))
	require.NoError(t, err)

	assert.Equal(t, "CycloneDX", doc.BOMFormat)
	assert.Equal(t, "1.5", doc.SpecVersion)
	require.NotNil(t, doc.Metadata)
	require.NotNil(t, doc.Metadata.Component)
	assert.Equal(t, "demo-app", doc.Metadata.Component.Name)

	// The string entry is dropped; the numeric license entry is dropped.
	assert.Len(t, doc.Components, 4)
	assert.Len(t, warnings, 2)
	assert.Contains(t, warnings[0], "components[3].licenses[0]")
	assert.Contains(t, warnings[1], "components[4]")
}

func TestParse_NullComponentsAreSkipped(t *testing.T) {
	data := []byte(`{"components":[null,{"name":"a","licenses":[{"license":{"id":"MIT"}}]},{"name":"b","components":[null]}]}`)

	doc, warnings, err := Parse(data)
	require.NoError(t, err)

	require.Len(t, doc.Components, 2)
	assert.Empty(t, doc.Components[1].Components)
	require.Len(t, warnings, 2)
	assert.Contains(t, warnings[0], "skipping malformed component at components[0]")
	assert.Contains(t, warnings[1], "skipping malformed component at components[2].components[0]")

	a := Analyze(doc)
	require.Len(t, a.Entries, 2)
	for _, e := range a.Entries {
		assert.NotEmpty(t, e.Name)
	}
}

func TestParse_RejectsNonJSON(t *testing.T) {
	_, _, err := Parse([]byte("<bom/>"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidBOM)
}

func TestParse_MalformedComponentsList(t *testing.T) {
	doc, warnings, err := Parse([]byte(`{"bomFormat":"CycloneDX","components":{"oops":true}}`))
	require.NoError(t, err)
	assert.Empty(t, doc.Components)
	assert.Len(t, warnings, 1)
}

func TestAnalyze_FlattensNestedComponents(t *testing.T) {
	doc, _, err := Parse(loadFixture(t, "nested_bom.json"))
	require.NoError(t, err)

	a := Analyze(doc)
	require.Len(t, a.Entries, 5)
	assert.Equal(t, "urn:uuid:3e671687-395b-41f5-a30f-a58921a69b79", a.SerialNumber)

	express := a.Entries[0]
	assert.Equal(t, "pkg:npm/express@4.19.2", express.Ref)
	assert.Equal(t, []string{"MIT"}, express.Licenses)

	babel := a.Entries[1]
	assert.Equal(t, "@babel/core", babel.Name)
	assert.Equal(t, "pkg:npm/%40babel/core@7.24.0", babel.Ref)
	assert.Equal(t, []string{"MIT", "Apache-2.0"}, babel.Licenses)

	helper := a.Entries[2]
	assert.Equal(t, "bundled-helper@1.0.0", helper.Ref)
	assert.Equal(t, babel.Ref, helper.Parent)
	assert.Equal(t, []string{"BSD 3-Clause License"}, helper.Licenses)

	mystery := a.Entries[3]
	assert.False(t, mystery.HasLicenses())
	assert.NotNil(t, mystery.Licenses)
	assert.Equal(t, "mystery@2.0.0", mystery.DisplayName())

	assert.Equal(t, []string{"ISC"}, a.Entries[4].Licenses)
}

func TestAnalyze_NilDocument(t *testing.T) {
	a := Analyze(nil)
	assert.Empty(t, a.Entries)
}

func TestResolveLicenses(t *testing.T) {
	tests := []struct {
		name    string
		choices []LicenseChoice
		want    []string
	}{
		{
			name:    "empty",
			choices: nil,
			want:    []string{},
		},
		{
			name:    "id preferred over name",
			choices: []LicenseChoice{{License: &License{ID: "MIT", Name: "MIT License"}}},
			want:    []string{"MIT"},
		},
		{
			name:    "name fallback",
			choices: []LicenseChoice{{License: &License{Name: "Custom EULA"}}},
			want:    []string{"Custom EULA"},
		},
		{
			name:    "expression with exception",
			choices: []LicenseChoice{{Expression: "GPL-2.0-only WITH Classpath-exception-2.0 OR MIT"}},
			want:    []string{"GPL-2.0-only", "MIT"},
		},
		{
			name:    "expression smuggled into id",
			choices: []LicenseChoice{{License: &License{ID: "MIT OR GPL-3.0"}}},
			want:    []string{"MIT", "GPL-3.0"},
		},
		{
			name:    "id with a space but no operator stays whole",
			choices: []LicenseChoice{{License: &License{ID: "BSD 3-Clause"}}},
			want:    []string{"BSD 3-Clause"},
		},
		{
			name:    "parenthesized id is an expression",
			choices: []LicenseChoice{{License: &License{ID: "(Apache-2.0)"}}},
			want:    []string{"Apache-2.0"},
		},
		{
			name: "case-insensitive de-duplication",
			choices: []LicenseChoice{
				{License: &License{ID: "MIT"}},
				{Expression: "mit AND (Apache-2.0 or BSD-2-Clause)"},
			},
			want: []string{"MIT", "Apache-2.0", "BSD-2-Clause"},
		},
		{
			name:    "blank entries ignored",
			choices: []LicenseChoice{{License: &License{}}, {Expression: "  "}},
			want:    []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveLicenses(tt.choices))
		})
	}
}

func TestSplitExpression(t *testing.T) {
	assert.Equal(t, []string{"MIT", "Apache-2.0"}, SplitExpression("MIT OR Apache-2.0"))
	assert.Equal(t, []string{"LGPL-2.1-or-later", "MIT"}, SplitExpression("(LGPL-2.1-or-later AND MIT)"))
	assert.Empty(t, SplitExpression(""))
}

func TestIsExpression(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"MIT", false},
		{"BSD 3-Clause", false},
		{"Apache License 2.0", false},
		{"MIT OR Apache-2.0", true},
		{"mit and isc", true},
		{"GPL-2.0-only WITH Classpath-exception-2.0", true},
		{"(MIT)", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, isExpression(tt.in))
		})
	}
}
