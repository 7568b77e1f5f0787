package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/openctemio/ossreview/internal/config"
	"github.com/openctemio/ossreview/pkg/validator"
)

var version = "dev"

// ErrAuditFailed is returned when an audit completes with a failing verdict.
// The report has already been printed.
var ErrAuditFailed = errors.New("audit failed")

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	Output     string `validate:"output_format"`
	PolicyFile string
	LogLevel   string
	NoFail     bool
}

// Execute runs the root command.
func Execute() error {
	return newRootCmd(os.Stdout, os.Stderr).Execute()
}

// SetVersion sets the CLI version from build flags.
func SetVersion(v string) {
	version = v
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "ossreview",
		Short: "Open-source readiness review",
		Long: `ossreview checks a repository before it is published as open source.

It classifies dependency licenses from a CycloneDX SBOM against an
approved/conditional/prohibited policy and audits dependencies for known
vulnerabilities. "ossreview serve" exposes the same audits as MCP tools
over stdio.

Configuration is read from the environment (POLICY_FILE, SBOM_COMMAND,
ADVISORY_COMMAND, LOG_LEVEL, ...); flags take precedence.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return validator.New().Validate(opts)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.PersistentFlags().StringVarP(&opts.Output, "output", "o", outputText, "Output format: text, json, yaml, sarif")
	root.PersistentFlags().StringVarP(&opts.PolicyFile, "policy", "p", "", "Policy file (env: POLICY_FILE)")
	root.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "Log level: debug, info, warn, error (env: LOG_LEVEL)")
	root.PersistentFlags().BoolVar(&opts.NoFail, "no-fail", false, "Exit 0 even when an audit fails")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newAuditCmd(opts))
	root.AddCommand(newPolicyCmd(opts))
	root.AddCommand(newServeCmd(opts))

	return root
}

// loadConfig loads the environment configuration with flag overrides.
func loadConfig(opts *globalOptions, extra ...config.Override) (*config.Config, error) {
	overrides := []config.Override{func(c *config.Config) {
		if opts.PolicyFile != "" {
			c.Policy.File = opts.PolicyFile
		}
		if opts.LogLevel != "" {
			c.Log.Level = opts.LogLevel
		}
	}}
	return config.Load(append(overrides, extra...)...)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ossreview version %s\n", version)
			fmt.Fprintf(out, "  Go:       %s\n", runtime.Version())
			fmt.Fprintf(out, "  OS/Arch:  %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}
