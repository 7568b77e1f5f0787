package mcpserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// PromptReview is the name of the review workflow prompt.
const PromptReview = "oss_readiness_review"

func reviewPrompt() mcp.Prompt {
	return mcp.NewPrompt(PromptReview,
		mcp.WithPromptDescription("Walk through an open-source readiness review of a repository."),
		mcp.WithArgument("target_path",
			mcp.ArgumentDescription("Repository directory to review."),
			mcp.RequiredArgument(),
		),
		mcp.WithArgument("threshold",
			mcp.ArgumentDescription("Minimum failing advisory severity, high by default."),
		),
	)
}

func (s *Server) handleReviewPrompt(_ context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	target := strings.TrimSpace(request.Params.Arguments["target_path"])
	if target == "" {
		return nil, fmt.Errorf("target_path is required")
	}
	threshold := strings.TrimSpace(request.Params.Arguments["threshold"])
	if threshold == "" {
		threshold = string(s.policy.AdvisoryAuditDefaults().Threshold)
	}

	org := s.policy.Organization()
	var b strings.Builder
	fmt.Fprintf(&b, "Review %s for open-source release readiness", target)
	if org.Name != "" {
		fmt.Fprintf(&b, " on behalf of %s", org.Name)
	}
	b.WriteString(".\n\n")
	fmt.Fprintf(&b, "1. Call %s with target_path=%q. List every prohibited component and explain which license caused it. Flag conditional components for legal review.\n", ToolAuditLicenses, target)
	fmt.Fprintf(&b, "2. Call %s with target_path=%q and threshold=%q. Summarize findings by severity and propose upgrades using the fix recommendations.\n", ToolAuditAdvisories, target, threshold)
	fmt.Fprintf(&b, "3. Call %s with section=\"patterns\" and check the repository for secrets and internal references matching those patterns.\n", ToolGetPolicy)
	b.WriteString("4. Report the warnings from both audits, including expired ignore rules, and finish with a release recommendation.\n")
	if org.ProjectLicense != "" {
		fmt.Fprintf(&b, "\nThe project will be released under %s; point out any dependency whose license conflicts with it.\n", org.ProjectLicense)
	}

	return mcp.NewGetPromptResult(
		"OSS readiness review",
		[]mcp.PromptMessage{
			mcp.NewPromptMessage(mcp.RoleUser, mcp.NewTextContent(b.String())),
		},
	), nil
}
