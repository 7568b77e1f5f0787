package advisory

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openctemio/ossreview/pkg/domain/severity"
)

var fixedNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func finding(id, pkg string) Finding {
	return Finding{ID: id, PackageName: pkg, Severity: severity.High, Source: "test"}
}

func TestApplyIgnoreRules_EmptyRules(t *testing.T) {
	findings := []Finding{finding("GHSA-1", "left-pad"), finding("GHSA-2", "lodash")}

	out := ApplyIgnoreRules(findings, nil, fixedNow)

	assert.Equal(t, findings, out.Findings)
	assert.Empty(t, out.Ignored)
	assert.Empty(t, out.Warnings)
	assert.NotNil(t, out.Ignored)
	assert.NotNil(t, out.Warnings)
}

func TestApplyIgnoreRules_PackageFilter(t *testing.T) {
	rules := []IgnoreRule{{ID: "GHSA-1", PackageName: "left-pad"}}

	out := ApplyIgnoreRules([]Finding{finding("GHSA-1", "right-pad")}, rules, fixedNow)
	assert.Len(t, out.Findings, 1, "different package must not be ignored")
	assert.Empty(t, out.Ignored)

	out = ApplyIgnoreRules([]Finding{finding("ghsa-1", "LEFT-PAD")}, rules, fixedNow)
	assert.Empty(t, out.Findings)
	require.Len(t, out.Ignored, 1)
	assert.Equal(t, "GHSA-1", out.Ignored[0].Rule.ID)
}

func TestApplyIgnoreRules_AnyPackage(t *testing.T) {
	rules := []IgnoreRule{{ID: "GHSA-1"}}
	out := ApplyIgnoreRules([]Finding{finding("GHSA-1", "a"), finding("GHSA-1", "b"), finding("GHSA-3", "a")}, rules, fixedNow)
	assert.Len(t, out.Ignored, 2)
	require.Len(t, out.Findings, 1)
	assert.Equal(t, "GHSA-3", out.Findings[0].ID)
}

func TestApplyIgnoreRules_Expiry(t *testing.T) {
	t.Run("expired rule keeps the finding and warns once", func(t *testing.T) {
		rules := []IgnoreRule{{ID: "GHSA-1", PackageName: "left-pad", ExpiresAt: "2026-01-31"}}
		out := ApplyIgnoreRules([]Finding{finding("GHSA-1", "left-pad")}, rules, fixedNow)

		assert.Len(t, out.Findings, 1)
		assert.Empty(t, out.Ignored)
		require.Len(t, out.Warnings, 1)
		assert.Contains(t, out.Warnings[0], "GHSA-1")
		assert.Contains(t, out.Warnings[0], "left-pad")
		assert.Contains(t, out.Warnings[0], "2026-01-31")
	})

	t.Run("future expiry suppresses", func(t *testing.T) {
		rules := []IgnoreRule{{ID: "GHSA-1", ExpiresAt: "2027-01-01T00:00:00Z"}}
		out := ApplyIgnoreRules([]Finding{finding("GHSA-1", "left-pad")}, rules, fixedNow)
		assert.Empty(t, out.Findings)
		assert.Len(t, out.Ignored, 1)
		assert.Empty(t, out.Warnings)
	})

	t.Run("unparseable expiry behaves like no expiry", func(t *testing.T) {
		rules := []IgnoreRule{{ID: "GHSA-1", ExpiresAt: "next tuesday"}}
		out := ApplyIgnoreRules([]Finding{finding("GHSA-1", "left-pad")}, rules, fixedNow)
		assert.Len(t, out.Ignored, 1)
		assert.Empty(t, out.Warnings)
	})

	t.Run("first matching rule decides", func(t *testing.T) {
		rules := []IgnoreRule{
			{ID: "GHSA-1", ExpiresAt: "2020-01-01"},
			{ID: "GHSA-1", PackageName: "left-pad"},
		}
		out := ApplyIgnoreRules([]Finding{finding("GHSA-1", "left-pad")}, rules, fixedNow)
		assert.Len(t, out.Findings, 1)
		assert.Len(t, out.Warnings, 1)
	})
}

func TestMergeIgnoreRules(t *testing.T) {
	t.Run("second set wins", func(t *testing.T) {
		merged := MergeIgnoreRules([]IgnoreRule{{ID: "A"}}, []IgnoreRule{{ID: "A", Reason: "r"}})
		require.Len(t, merged, 1)
		assert.Equal(t, "r", merged[0].Reason)
	})

	t.Run("key is case-insensitive and package scoped", func(t *testing.T) {
		merged := MergeIgnoreRules(
			[]IgnoreRule{{ID: "ghsa-1"}, {ID: "GHSA-1", PackageName: "Left-Pad", Reason: "config"}},
			[]IgnoreRule{{ID: "GHSA-1", PackageName: "left-pad", Reason: "runtime"}, {ID: ""}},
		)
		require.Len(t, merged, 2)
		assert.Equal(t, "ghsa-1", merged[0].ID)
		assert.Equal(t, "runtime", merged[1].Reason)
	})

	t.Run("precedence follows argument order", func(t *testing.T) {
		configIDs := RulesFromIDs([]string{"X"})
		configFile := []IgnoreRule{{ID: "X", Reason: "config file"}}
		runtimeFile := []IgnoreRule{{ID: "X", Reason: "runtime file"}}
		runtimeIDs := RulesFromIDs([]string{"x"})

		merged := MergeIgnoreRules(configIDs, configFile, runtimeFile, runtimeIDs)
		require.Len(t, merged, 1)
		assert.Equal(t, "x", merged[0].ID)
		assert.Empty(t, merged[0].Reason)
	})

	t.Run("no sets", func(t *testing.T) {
		assert.Empty(t, MergeIgnoreRules())
	})
}

func TestLoadIgnoreRules(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		rules, err := LoadIgnoreRules(filepath.Join(dir, "nope.json"))
		require.NoError(t, err)
		assert.Empty(t, rules)
	})

	t.Run("drops malformed entries", func(t *testing.T) {
		path := filepath.Join(dir, "ignore.json")
		content := `[
			{"id": "GHSA-1", "packageName": "left-pad", "expiresAt": "2026-12-31", "reason": "no fix yet"},
			{"id": "GHSA-2", "package": "lodash"},
			{"id": ""},
			{"reason": "missing id"},
			"garbage",
			{"id": "CVE-2024-0001"}
		]`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

		rules, err := LoadIgnoreRules(path)
		require.NoError(t, err)
		require.Len(t, rules, 3)
		assert.Equal(t, IgnoreRule{ID: "GHSA-1", PackageName: "left-pad", ExpiresAt: "2026-12-31", Reason: "no fix yet"}, rules[0])
		assert.Equal(t, "lodash", rules[1].PackageName)
		assert.Equal(t, "CVE-2024-0001", rules[2].ID)
	})

	t.Run("invalid json names the path", func(t *testing.T) {
		path := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"id": "not-an-array"}`), 0o600))

		_, err := LoadIgnoreRules(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), path)
	})

	t.Run("directory is a read error", func(t *testing.T) {
		_, err := LoadIgnoreRules(dir)
		require.Error(t, err)
		assert.Contains(t, err.Error(), dir)
	})

	t.Run("empty path", func(t *testing.T) {
		rules, err := LoadIgnoreRules("")
		require.NoError(t, err)
		assert.Empty(t, rules)
	})
}

func TestIgnoreRule_Key(t *testing.T) {
	assert.Equal(t, "GHSA-1::*", IgnoreRule{ID: "ghsa-1"}.Key())
	assert.Equal(t, "GHSA-1::left-pad", IgnoreRule{ID: "GHSA-1", PackageName: "Left-Pad"}.Key())
}
