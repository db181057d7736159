package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/dosanma1/nextdeploy/internal/platform"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version and the compiled-in platforms",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "nextdeploy %s (%s, %s/%s)\n", Version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
		fmt.Fprintf(out, "platforms: %v\n", platform.List())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
