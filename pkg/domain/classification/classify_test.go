package classification

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openctemio/ossreview/pkg/domain/licensepolicy"
	"github.com/openctemio/ossreview/pkg/domain/sbom"
)

func testIndex() *licensepolicy.Index {
	return licensepolicy.BuildIndex(licensepolicy.Buckets{
		Approved: []licensepolicy.LicenseEntry{
			{ID: "MIT"},
			{ID: "Apache-2.0", Name: "Apache License 2.0"},
		},
		Conditional: []licensepolicy.LicenseEntry{
			{ID: "LGPL-2.1", Notes: "dynamic linking only"},
		},
		Prohibited: []licensepolicy.LicenseEntry{
			{ID: "GPL-3.0"},
			{ID: "SSPL-1.0"},
		},
	})
}

func TestClassify(t *testing.T) {
	idx := testIndex()

	tests := []struct {
		name     string
		licenses []string
		want     Classification
	}{
		{"no licenses", []string{}, Unlicensed},
		{"nil licenses", nil, Unlicensed},
		{"approved", []string{"MIT"}, Approved},
		{"approved by display name", []string{"apache license 2.0"}, Approved},
		{"unrecognized", []string{"Proprietary-XYZ"}, Unknown},
		{"all unrecognized", []string{"Foo", "Bar"}, Unknown},
		{"approved beats unknown", []string{"Foo", "MIT"}, Approved},
		{"conditional beats approved", []string{"MIT", "LGPL-2.1"}, Conditional},
		{"conditional first then approved", []string{"LGPL-2.1", "MIT"}, Conditional},
		{"prohibited after approved", []string{"MIT", "GPL-3.0"}, Prohibited},
		{"prohibited before approved", []string{"GPL-3.0", "MIT"}, Prohibited},
		{"prohibited after conditional", []string{"LGPL-2.1", "GPL-3.0"}, Prohibited},
		{"prohibited with unknown", []string{"Foo", "SSPL-1.0"}, Prohibited},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := Classify(tt.licenses, idx)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassify_Matches(t *testing.T) {
	idx := testIndex()

	cl, matches := Classify([]string{"Foo", "LGPL-2.1", "GPL-3.0", "MIT"}, idx)
	assert.Equal(t, Prohibited, cl)
	require.Len(t, matches, 3, "scanning stops at the prohibited token")
	assert.Equal(t, LicenseMatch{License: "Foo", Category: UnknownCategory}, matches[0])
	assert.Equal(t, LicenseMatch{License: "LGPL-2.1", Category: "conditional", Notes: "dynamic linking only"}, matches[1])
	assert.Equal(t, "prohibited", matches[2].Category)
}

func TestClassify_EmptyPolicy(t *testing.T) {
	idx := licensepolicy.BuildIndex(licensepolicy.Buckets{})
	cl, _ := Classify([]string{"MIT"}, idx)
	assert.Equal(t, Unknown, cl)

	cl, _ = Classify(nil, idx)
	assert.Equal(t, Unlicensed, cl)
}

func TestReduce(t *testing.T) {
	assert.Equal(t, Prohibited, Reduce(Conditional, Prohibited))
	assert.Equal(t, Prohibited, Reduce(Prohibited, Approved))
	assert.Equal(t, Conditional, Reduce(Approved, Conditional))
	assert.Equal(t, Conditional, Reduce(Conditional, Approved))
	assert.Equal(t, Approved, Reduce(Unknown, Approved))
	assert.Equal(t, Approved, Reduce(Approved, Unknown))

	// The reducer is order independent over any token sequence.
	seqs := [][]Classification{
		{Approved, Unknown, Conditional},
		{Conditional, Unknown, Approved},
		{Unknown, Conditional, Approved},
	}
	for _, seq := range seqs {
		acc := Unknown
		for _, c := range seq {
			acc = Reduce(acc, c)
		}
		assert.Equal(t, Conditional, acc)
	}
}

func TestAudit_EndToEnd(t *testing.T) {
	idx := licensepolicy.BuildIndex(licensepolicy.Buckets{
		Approved:   []licensepolicy.LicenseEntry{{ID: "Apache-2.0"}, {ID: "MIT"}},
		Prohibited: []licensepolicy.LicenseEntry{{ID: "SSPL-1.0"}},
	})
	entries := []sbom.Entry{
		{Ref: "a", Name: "left", Version: "1.0.0", Licenses: []string{"MIT"}},
		{Ref: "b", Name: "mongo-thing", Version: "6.0.0", Licenses: []string{"SSPL-1.0"}},
		{Ref: "c", Name: "bare", Version: "0.1.0", Licenses: []string{}},
	}

	r := Audit(entries, idx, Options{})

	assert.Equal(t, Counts{Total: 3, Approved: 1, Prohibited: 1, Unlicensed: 1}, r.Counts)
	assert.False(t, r.OK)
	require.Len(t, r.FailReasons, 1)
	assert.Contains(t, r.FailReasons[0], "mongo-thing@6.0.0")
	assert.Contains(t, r.FailReasons[0], "SSPL-1.0")
	require.Len(t, r.Prohibited, 1)
	require.Len(t, r.Unlicensed, 1)
	assert.Equal(t, "bare", r.Unlicensed[0].Name)
	assert.Empty(t, r.Unknown)
	assert.Len(t, r.Components, 3)
}

func TestAudit_FailOnUnknown(t *testing.T) {
	idx := testIndex()
	entries := []sbom.Entry{
		{Ref: "a", Name: "bare", Licenses: []string{}},
	}

	r := Audit(entries, idx, Options{FailOnUnknown: false})
	assert.True(t, r.OK)
	assert.Empty(t, r.FailReasons)

	r = Audit(entries, idx, Options{FailOnUnknown: true})
	assert.False(t, r.OK)
	require.Len(t, r.FailReasons, 1)
	assert.Contains(t, r.FailReasons[0], "bare declares no license")

	entries = []sbom.Entry{{Ref: "x", Name: "closed", Version: "2", Licenses: []string{"Proprietary-XYZ"}}}
	r = Audit(entries, idx, Options{FailOnUnknown: true})
	assert.Equal(t, 1, r.Counts.Unknown)
	require.Len(t, r.FailReasons, 1)
	assert.Contains(t, r.FailReasons[0], "Proprietary-XYZ")
}

func TestAudit_ConditionalWarnsButPasses(t *testing.T) {
	r := Audit([]sbom.Entry{{Ref: "a", Name: "glib", Licenses: []string{"LGPL-2.1"}}}, testIndex(), Options{FailOnUnknown: true})
	assert.True(t, r.OK)
	assert.Empty(t, r.FailReasons)
	require.Len(t, r.Warnings, 1)
	assert.Contains(t, r.Warnings[0], "LGPL-2.1")
	assert.Len(t, r.Conditional, 1)
}

func TestAudit_NoEntries(t *testing.T) {
	r := Audit(nil, testIndex(), Options{FailOnUnknown: true})
	assert.True(t, r.OK)
	assert.Equal(t, Counts{}, r.Counts)
	assert.NotNil(t, r.FailReasons)
}

func TestPassed(t *testing.T) {
	assert.True(t, Passed(Counts{Unknown: 3}, Options{}))
	assert.False(t, Passed(Counts{Unknown: 3}, Options{FailOnUnknown: true}))
	assert.False(t, Passed(Counts{Prohibited: 1}, Options{}))
	assert.True(t, Passed(Counts{Conditional: 4, Approved: 2}, Options{FailOnUnknown: true}))
}
