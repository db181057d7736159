package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dosanma1/nextdeploy/internal/logging"
)

// Version is set at build time with -ldflags "-X .../internal/cmd.Version=...".
var Version = "dev"

var (
	rootVerbose   bool
	rootLogFormat string
	rootProject   string

	log = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "nextdeploy",
	Short: "nextdeploy - Deploy Next.js serverless builds",
	Long: `nextdeploy takes the serverless build output of a Next.js project and deploys it:
compiled pages run in a serverless function, static assets go to a storage
bucket and a CDN distribution fronts both.

A routing manifest maps every page to its route so the generated request
handler can dispatch requests without the framework's server.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := logging.New(logging.Options{Verbose: rootVerbose, Format: rootLogFormat})
		if err != nil {
			return err
		}
		log = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = log.Sync()
	},
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&rootVerbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&rootLogFormat, "log-format", logging.FormatConsole, "Log format (console|json)")
	rootCmd.PersistentFlags().StringVarP(&rootProject, "project", "C", "", "Project directory (default: nearest directory with nextdeploy.yaml)")
}
