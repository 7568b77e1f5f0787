package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openctemio/ossreview/pkg/domain/licensepolicy"
	"github.com/openctemio/ossreview/pkg/domain/policy"
)

func newPolicyCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policy",
		Short: "Inspect review policies",
	}
	cmd.AddCommand(newPolicyShowCmd(opts))
	cmd.AddCommand(newPolicyValidateCmd(opts))
	return cmd
}

func newPolicyShowCmd(opts *globalOptions) *cobra.Command {
	var section string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective policy",
		Example: `  ossreview policy show
  ossreview policy show --section licenses -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			pol, err := policy.Load(cfg.Policy.File)
			if err != nil {
				return err
			}
			doc, err := pol.Section(section)
			if err != nil {
				return err
			}

			if opts.Output == outputJSON {
				return printJSON(cmd.OutOrStdout(), doc)
			}
			if opts.Output == outputText {
				fmt.Fprintf(cmd.OutOrStdout(), "# policy: %s\n", pol.Source())
			}
			return printYAML(cmd.OutOrStdout(), doc)
		},
	}

	cmd.Flags().StringVarP(&section, "section", "s", "", fmt.Sprintf("Limit output to one section: %v", policy.Sections()))
	return cmd
}

func newPolicyValidateCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Check that a policy file parses and is valid",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pol, err := policy.Load(args[0])
			if err != nil {
				return err
			}

			summary := map[string]any{
				"source":      pol.Source(),
				"approved":    len(pol.Licenses(licensepolicy.CategoryApproved)),
				"conditional": len(pol.Licenses(licensepolicy.CategoryConditional)),
				"prohibited":  len(pol.Licenses(licensepolicy.CategoryProhibited)),
				"patterns":    pol.PatternBuckets(),
			}
			switch opts.Output {
			case outputJSON:
				return printJSON(cmd.OutOrStdout(), summary)
			case outputYAML:
				return printYAML(cmd.OutOrStdout(), summary)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Policy %s is valid\n", pol.Source())
			fmt.Fprintf(out, "  approved:    %d\n", summary["approved"])
			fmt.Fprintf(out, "  conditional: %d\n", summary["conditional"])
			fmt.Fprintf(out, "  prohibited:  %d\n", summary["prohibited"])
			fmt.Fprintf(out, "  patterns:    %v\n", summary["patterns"])
			return nil
		},
	}
}
