package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cleanBOM = `{
  "bomFormat": "CycloneDX",
  "specVersion": "1.5",
  "components": [
    {"bom-ref": "a", "name": "left", "version": "1.0.0", "licenses": [{"license": {"id": "MIT"}}]},
    {"bom-ref": "b", "name": "right", "version": "2.0.0", "licenses": [{"expression": "Apache-2.0 OR MIT"}]}
  ]
}`

const prohibitedBOM = `{
  "bomFormat": "CycloneDX",
  "specVersion": "1.5",
  "components": [
    {"bom-ref": "a", "name": "left", "version": "1.0.0", "licenses": [{"license": {"id": "MIT"}}]},
    {"bom-ref": "b", "name": "copyleft", "version": "3.1.0", "licenses": [{"license": {"id": "AGPL-3.0-only"}}]}
  ]
}`

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("APP_ENV", "development")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("POLICY_FILE", "")
	t.Setenv("METRICS_ADDR", "")

	var stdout, stderr bytes.Buffer
	root := newRootCmd(&stdout, &stderr)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestVersionCmd(t *testing.T) {
	SetVersion("1.2.3")
	t.Cleanup(func() { SetVersion("dev") })

	out, _, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "ossreview version 1.2.3")
	assert.Contains(t, out, "OS/Arch:")
}

func TestInvalidOutputFlag(t *testing.T) {
	_, _, err := run(t, "version", "-o", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "output")
}

func TestAuditLicenses_FromSBOMFile(t *testing.T) {
	tests := []struct {
		name     string
		bom      string
		args     []string
		wantErr  error
		contains []string
	}{
		{
			name:     "clean sbom passes",
			bom:      cleanBOM,
			contains: []string{"License audit: PASSED", "Components: 2 total"},
		},
		{
			name:     "prohibited license fails",
			bom:      prohibitedBOM,
			wantErr:  ErrAuditFailed,
			contains: []string{"License audit: FAILED", "copyleft@3.1.0", "AGPL-3.0-only"},
		},
		{
			name:     "no-fail keeps exit status clean",
			bom:      prohibitedBOM,
			args:     []string{"--no-fail"},
			contains: []string{"License audit: FAILED"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "bom.json", tt.bom)
			args := append([]string{"audit", "licenses", "--sbom", path}, tt.args...)

			out, _, err := run(t, args...)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			for _, want := range tt.contains {
				assert.Contains(t, out, want)
			}
		})
	}
}

func TestAuditLicenses_JSONOutput(t *testing.T) {
	path := writeFile(t, "bom.json", prohibitedBOM)

	out, _, err := run(t, "audit", "licenses", "--sbom", path, "-o", "json")
	assert.ErrorIs(t, err, ErrAuditFailed)

	var report struct {
		SBOM struct {
			Source string `json:"source"`
		} `json:"sbom"`
		Result struct {
			OK     bool `json:"ok"`
			Counts struct {
				Total      int `json:"total"`
				Prohibited int `json:"prohibited"`
			} `json:"counts"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, "file", report.SBOM.Source)
	assert.False(t, report.Result.OK)
	assert.Equal(t, 2, report.Result.Counts.Total)
	assert.Equal(t, 1, report.Result.Counts.Prohibited)
}

func TestPolicyShow(t *testing.T) {
	out, _, err := run(t, "policy", "show", "--section", "licenses", "-o", "json")
	require.NoError(t, err)

	var licenses map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &licenses))
	assert.Contains(t, licenses, "approved")
	assert.Contains(t, licenses, "prohibited")

	out, _, err = run(t, "policy", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "# policy: builtin")

	_, _, err = run(t, "policy", "show", "--section", "secrets")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown policy section")
}

func TestPolicyValidate(t *testing.T) {
	valid := writeFile(t, "policy.yaml", "organization:\n  name: Acme\n")
	out, _, err := run(t, "policy", "validate", valid)
	require.NoError(t, err)
	assert.Contains(t, out, "is valid")

	invalid := writeFile(t, "broken.yaml", "licenses: [not, a, map\n")
	_, _, err = run(t, "policy", "validate", invalid)
	require.Error(t, err)
}

func TestAuditLicenses_SARIFOutput(t *testing.T) {
	path := writeFile(t, "bom.json", prohibitedBOM)

	out, _, err := run(t, "audit", "licenses", "--sbom", path, "-o", "sarif", "--no-fail")
	require.NoError(t, err)

	var log struct {
		Version string `json:"version"`
		Runs    []struct {
			Results []struct {
				RuleID string `json:"ruleId"`
				Level  string `json:"level"`
			} `json:"results"`
		} `json:"runs"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &log))
	assert.Equal(t, "2.1.0", log.Version)
	require.Len(t, log.Runs, 1)
	require.Len(t, log.Runs[0].Results, 1)
	assert.Equal(t, "license/prohibited", log.Runs[0].Results[0].RuleID)
	assert.Equal(t, "error", log.Runs[0].Results[0].Level)
}
