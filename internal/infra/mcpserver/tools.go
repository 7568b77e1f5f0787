package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"gopkg.in/yaml.v3"

	"github.com/openctemio/ossreview/internal/app"
	"github.com/openctemio/ossreview/pkg/domain/policy"
	"github.com/openctemio/ossreview/pkg/domain/severity"
)

// Tool names.
const (
	ToolAuditLicenses   = "audit_licenses"
	ToolAuditAdvisories = "audit_advisories"
	ToolGetPolicy       = "get_policy"
)

type toolEntry struct {
	tool    mcp.Tool
	handler ToolHandlerFunc
}

func (s *Server) tools() []toolEntry {
	return []toolEntry{
		{
			tool: mcp.NewTool(ToolAuditLicenses,
				mcp.WithDescription("Generate or read a CycloneDX SBOM and classify every component license against the approved, conditional and prohibited policy buckets."),
				mcp.WithString("target_path", mcp.Description("Directory to scan. Required unless sbom_path is absolute.")),
				mcp.WithString("sbom_path", mcp.Description("Existing CycloneDX JSON file, optionally gzip or zstd compressed. Relative paths resolve against target_path.")),
				mcp.WithBoolean("skip_generation", mcp.Description("Do not run the SBOM generator; read sbom_path or the policy default instead.")),
				mcp.WithBoolean("fail_on_unknown", mcp.Description("Fail the audit on unrecognized or missing licenses.")),
				mcp.WithString("policy_file", mcp.Description("Policy YAML overriding the server policy for this call.")),
			),
			handler: s.handleAuditLicenses,
		},
		{
			tool: mcp.NewTool(ToolAuditAdvisories,
				mcp.WithDescription("Run dependency vulnerability audits, apply ignore rules and fail on findings at or above the severity threshold."),
				mcp.WithString("target_path", mcp.Required(), mcp.Description("Project directory to audit.")),
				mcp.WithString("threshold", mcp.Description("Minimum failing severity."), mcp.Enum(severityNames()...)),
				mcp.WithBoolean("include_dev", mcp.Description("Include development dependencies.")),
				mcp.WithArray("ignore_ids", mcp.Description("Advisory ids to ignore for any package."), mcp.Items(map[string]any{"type": "string"})),
				mcp.WithString("ignore_file", mcp.Description("JSON ignore-rule file. Relative paths resolve against target_path.")),
				mcp.WithString("sbom_path", mcp.Description("Existing CycloneDX JSON file handed to the providers.")),
				mcp.WithString("policy_file", mcp.Description("Policy YAML overriding the server policy for this call.")),
			),
			handler: s.handleAuditAdvisories,
		},
		{
			tool: mcp.NewTool(ToolGetPolicy,
				mcp.WithDescription("Show the effective review policy: license buckets, detection patterns, audit defaults and organization profile."),
				mcp.WithString("section", mcp.Description("Limit the output to one section."), mcp.Enum(policy.Sections()...)),
				mcp.WithString("policy_file", mcp.Description("Policy YAML to show instead of the server policy.")),
			),
			handler: s.handleGetPolicy,
		},
	}
}

func (s *Server) handleAuditLicenses(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pol, err := s.policyFor(request.GetString("policy_file", ""))
	if err != nil {
		return nil, err
	}

	input := app.LicenseAuditInput{
		TargetPath:     request.GetString("target_path", ""),
		SBOMPath:       request.GetString("sbom_path", ""),
		SkipGeneration: optionalBool(request, "skip_generation"),
		FailOnUnknown:  optionalBool(request, "fail_on_unknown"),
		Policy:         pol,
	}

	report, err := s.licenses.Audit(ctx, input)
	if err != nil {
		return nil, err
	}
	return reportResult(report.Text, report)
}

func (s *Server) handleAuditAdvisories(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	target, err := request.RequireString("target_path")
	if err != nil {
		return nil, err
	}
	pol, err := s.policyFor(request.GetString("policy_file", ""))
	if err != nil {
		return nil, err
	}

	input := app.AdvisoryAuditInput{
		TargetPath: target,
		SBOMPath:   request.GetString("sbom_path", ""),
		IncludeDev: optionalBool(request, "include_dev"),
		Threshold:  request.GetString("threshold", ""),
		IgnoreIDs:  request.GetStringSlice("ignore_ids", nil),
		IgnoreFile: request.GetString("ignore_file", ""),
		Policy:     pol,
	}

	report, err := s.advisory.Audit(ctx, input)
	if err != nil {
		return nil, err
	}
	return reportResult(report.Text, report)
}

func (s *Server) handleGetPolicy(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pol, err := s.policyFor(request.GetString("policy_file", ""))
	if err != nil {
		return nil, err
	}

	doc, err := pol.Section(request.GetString("section", ""))
	if err != nil {
		return nil, err
	}

	out, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode policy: %w", err)
	}
	text := fmt.Sprintf("# policy: %s\n%s", pol.Source(), out)
	return mcp.NewToolResultText(text), nil
}

// reportResult returns the rendered report followed by its JSON form.
func reportResult(text string, report any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode report: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(text),
			mcp.NewTextContent(string(data)),
		},
	}, nil
}

// optionalBool distinguishes an absent argument from false.
func optionalBool(request mcp.CallToolRequest, key string) *bool {
	if _, ok := request.GetArguments()[key]; !ok {
		return nil
	}
	v := request.GetBool(key, false)
	return &v
}

func severityNames() []string {
	all := severity.All()
	names := make([]string, 0, len(all))
	for _, s := range all {
		if s == severity.Unknown {
			continue
		}
		names = append(names, string(s))
	}
	return names
}
