package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/openctemio/ossreview/cmd/ossreview/cmd"
)

// Version is set by build flags.
var Version = "dev"

func main() {
	cmd.SetVersion(Version)
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, cmd.ErrAuditFailed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
