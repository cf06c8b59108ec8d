package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"odds-picks/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	// version must work without a config file or credentials
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "oddspicks %s\n", version.Version)
		fmt.Fprintf(out, "commit:     %s\n", version.Commit)
		fmt.Fprintf(out, "built:      %s\n", version.BuildDate)
		fmt.Fprintf(out, "go:         %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
		fmt.Fprintf(out, "user-agent: %s\n", version.UserAgent())
	},
}
