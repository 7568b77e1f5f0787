package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/openctemio/ossreview/internal/app"
	"github.com/openctemio/ossreview/pkg/sarif"
)

func newAuditCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Run an audit against a repository",
	}
	cmd.AddCommand(newAuditLicensesCmd(opts))
	cmd.AddCommand(newAuditAdvisoriesCmd(opts))
	return cmd
}

func newAuditLicensesCmd(opts *globalOptions) *cobra.Command {
	var (
		sbomPath       string
		skipGeneration bool
		failOnUnknown  bool
	)

	cmd := &cobra.Command{
		Use:   "licenses [path]",
		Short: "Classify dependency licenses against the policy",
		Long: `Generate a CycloneDX SBOM for the path (or read one with --sbom) and
classify every component license as approved, conditional, prohibited,
unknown or unlicensed. The audit fails on prohibited licenses, and on
unknown or missing ones with --fail-on-unknown.`,
		Example: `  ossreview audit licenses .
  ossreview audit licenses --sbom bom.json.gz --fail-on-unknown -o json
  ossreview audit licenses -o sarif > licenses.sarif`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			d, err := newDeps(cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			input := app.LicenseAuditInput{
				TargetPath:     targetArg(args, sbomPath),
				SBOMPath:       sbomPath,
				SkipGeneration: changedBool(cmd.Flags(), "skip-generation", skipGeneration),
				FailOnUnknown:  changedBool(cmd.Flags(), "fail-on-unknown", failOnUnknown),
			}
			report, err := d.Licenses.Audit(cmd.Context(), input)
			if err != nil {
				return err
			}
			toSARIF := func() *sarif.Log { return app.LicenseSARIF(report, version) }
			if err := printReport(cmd.OutOrStdout(), opts.Output, report.Text, report, toSARIF); err != nil {
				return err
			}
			return verdict(report.OK(), opts)
		},
	}

	cmd.Flags().StringVar(&sbomPath, "sbom", "", "Existing CycloneDX JSON file (.gz and .zst are decompressed)")
	cmd.Flags().BoolVar(&skipGeneration, "skip-generation", false, "Do not run the SBOM generator")
	cmd.Flags().BoolVar(&failOnUnknown, "fail-on-unknown", false, "Fail on unknown or missing licenses")
	return cmd
}

func newAuditAdvisoriesCmd(opts *globalOptions) *cobra.Command {
	var (
		sbomPath   string
		threshold  string
		includeDev bool
		ignoreIDs  []string
		ignoreFile string
	)

	cmd := &cobra.Command{
		Use:   "advisories [path]",
		Short: "Audit dependencies for known vulnerabilities",
		Long: `Run the advisory providers (npm audit) in the path, apply ignore rules
from the policy and the command line, and fail on findings at or above
the severity threshold.`,
		Example: `  ossreview audit advisories .
  ossreview audit advisories --threshold medium --ignore GHSA-xxxx-xxxx-xxxx
  ossreview audit advisories --ignore-file .ossreview-ignore.json --include-dev`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			d, err := newDeps(cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			input := app.AdvisoryAuditInput{
				TargetPath: targetArg(args, ""),
				SBOMPath:   sbomPath,
				IncludeDev: changedBool(cmd.Flags(), "include-dev", includeDev),
				Threshold:  threshold,
				IgnoreIDs:  ignoreIDs,
				IgnoreFile: ignoreFile,
			}
			report, err := d.Advisory.Audit(cmd.Context(), input)
			if err != nil {
				return err
			}
			toSARIF := func() *sarif.Log { return app.AdvisorySARIF(report, version) }
			if err := printReport(cmd.OutOrStdout(), opts.Output, report.Text, report, toSARIF); err != nil {
				return err
			}
			return verdict(report.OK(), opts)
		},
	}

	cmd.Flags().StringVar(&sbomPath, "sbom", "", "Existing CycloneDX JSON file handed to the providers")
	cmd.Flags().StringVarP(&threshold, "threshold", "t", "", "Minimum failing severity: critical, high, medium, low, info")
	cmd.Flags().BoolVar(&includeDev, "include-dev", false, "Include development dependencies")
	cmd.Flags().StringSliceVar(&ignoreIDs, "ignore", nil, "Advisory id to ignore for any package (repeatable)")
	cmd.Flags().StringVar(&ignoreFile, "ignore-file", "", "JSON ignore-rule file")
	return cmd
}

// targetArg returns the positional path. Without one it defaults to the
// current directory unless an SBOM alone was given.
func targetArg(args []string, sbomPath string) string {
	if len(args) > 0 {
		return args[0]
	}
	if sbomPath != "" {
		return ""
	}
	return "."
}

// changedBool returns a pointer only for flags set on the command line, so
// unset flags fall back to the policy defaults.
func changedBool(flags *pflag.FlagSet, name string, value bool) *bool {
	if !flags.Changed(name) {
		return nil
	}
	return &value
}
