package policy

import (
	"github.com/openctemio/ossreview/pkg/domain/licensepolicy"
	"github.com/openctemio/ossreview/pkg/domain/severity"
)

// Pattern bucket names used by the built-in policy.
const (
	PatternBucketSecrets            = "secrets"
	PatternBucketInternalReferences = "internal_references"
)

// SourceBuiltin is the Source of the built-in policy.
const SourceBuiltin = "builtin"

// Default returns the built-in policy: common permissive licenses approved,
// weak copyleft conditional, strong and network copyleft prohibited.
func Default() *Policy {
	return newPolicy(defaultFile(), SourceBuiltin)
}

func defaultFile() File {
	return File{
		Licenses: Licenses{Buckets: licensepolicy.Buckets{
			Approved: []licensepolicy.LicenseEntry{
				{ID: "MIT", Name: "MIT License"},
				{ID: "Apache-2.0", Name: "Apache License 2.0"},
				{ID: "BSD-2-Clause", Name: `BSD 2-Clause "Simplified" License`},
				{ID: "BSD-3-Clause", Name: `BSD 3-Clause "New" or "Revised" License`},
				{ID: "ISC", Name: "ISC License"},
				{ID: "0BSD", Name: "BSD Zero Clause License"},
				{ID: "Zlib", Name: "zlib License"},
				{ID: "Unlicense", Name: "The Unlicense"},
				{ID: "CC0-1.0", Name: "Creative Commons Zero v1.0 Universal"},
				{ID: "Python-2.0", Name: "Python License 2.0"},
				{ID: "BlueOak-1.0.0", Name: "Blue Oak Model License 1.0.0"},
			},
			Conditional: []licensepolicy.LicenseEntry{
				{ID: "LGPL-2.1-only", Name: "GNU Lesser General Public License v2.1 only", Notes: "dynamic linking only"},
				{ID: "LGPL-2.1-or-later", Name: "GNU Lesser General Public License v2.1 or later", Notes: "dynamic linking only"},
				{ID: "LGPL-3.0-only", Name: "GNU Lesser General Public License v3.0 only", Notes: "dynamic linking only"},
				{ID: "LGPL-3.0-or-later", Name: "GNU Lesser General Public License v3.0 or later", Notes: "dynamic linking only"},
				{ID: "MPL-2.0", Name: "Mozilla Public License 2.0", Notes: "file-level copyleft; keep modified files open"},
				{ID: "EPL-2.0", Name: "Eclipse Public License 2.0", Notes: "module-level copyleft"},
				{ID: "CDDL-1.0", Name: "Common Development and Distribution License 1.0", Notes: "file-level copyleft"},
				{ID: "CC-BY-4.0", Name: "Creative Commons Attribution 4.0", Notes: "attribution required; not intended for code"},
			},
			Prohibited: []licensepolicy.LicenseEntry{
				{ID: "GPL-2.0-only", Name: "GNU General Public License v2.0 only"},
				{ID: "GPL-2.0-or-later", Name: "GNU General Public License v2.0 or later"},
				{ID: "GPL-3.0-only", Name: "GNU General Public License v3.0 only"},
				{ID: "GPL-3.0-or-later", Name: "GNU General Public License v3.0 or later"},
				{ID: "AGPL-3.0-only", Name: "GNU Affero General Public License v3.0 only", Notes: "network copyleft"},
				{ID: "AGPL-3.0-or-later", Name: "GNU Affero General Public License v3.0 or later", Notes: "network copyleft"},
				{ID: "SSPL-1.0", Name: "Server Side Public License, v 1", Notes: "not OSI approved"},
			},
		}},
		Patterns: map[string][]string{
			PatternBucketSecrets: {
				`AKIA[0-9A-Z]{16}`,
				`-----BEGIN (?:RSA |EC |DSA |OPENSSH )?PRIVATE KEY-----`,
				`gh[pousr]_[A-Za-z0-9]{36}`,
				`xox[baprs]-[A-Za-z0-9-]{10,}`,
				`(?i)(?:api[_-]?key|secret|token|passwd|password)\s*[:=]\s*['"][^'"\s]{12,}['"]`,
			},
			PatternBucketInternalReferences: {
				`(?i)\b[a-z0-9-]+\.(?:internal|corp|local|lan)\b`,
				`\b10\.\d{1,3}\.\d{1,3}\.\d{1,3}\b`,
				`\b192\.168\.\d{1,3}\.\d{1,3}\b`,
				`\b172\.(?:1[6-9]|2\d|3[01])\.\d{1,3}\.\d{1,3}\b`,
			},
		},
		AdvisoryAudit: AdvisoryAuditDefaults{
			Threshold:  severity.High,
			IgnoreFile: ".ossreview-ignore.json",
		},
	}
}
