package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dosanma1/nextdeploy/internal/builder"
	"github.com/dosanma1/nextdeploy/internal/config"
	"github.com/dosanma1/nextdeploy/internal/stager"
)

var (
	buildSkipBuild bool
	buildBuilder   string
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the project and stage the deployment bundle",
	Long: `Run the framework build, then stage the deployment bundle: compiled pages,
the request handler, the router, the runtime shim and manifest.json.

Nothing is deployed. Use this to inspect the bundle before running deploy.

Examples:
  nextdeploy build                  # next build, then stage
  nextdeploy build --skip-build     # stage the existing build output
  nextdeploy build -C ./apps/web    # build another project`,
	RunE: runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)
	buildCmd.Flags().BoolVar(&buildSkipBuild, "skip-build", false, "Skip the framework build and stage existing output")
	buildCmd.Flags().StringVar(&buildBuilder, "builder", builder.NextName, "Framework builder to run")
}

func runBuild(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig(config.Overrides{SkipBuild: buildSkipBuild})
	if err != nil {
		return err
	}

	if err := runFrameworkBuild(ctx, cfg, buildBuilder); err != nil {
		return err
	}

	opts := cfg.StagerOptions()
	opts.Logger = log
	res, err := stager.Stage(ctx, opts)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✅ Bundle staged in %s\n", res.Dir)
	fmt.Fprintf(out, "   Pages:  %d\n", res.Pages)
	fmt.Fprintf(out, "   Routes: %d\n", res.Manifest.RouteCount())
	fmt.Fprintf(out, "   Public: %d\n", len(res.Manifest.PublicFiles))
	return nil
}

// runFrameworkBuild runs the named builder unless the build is disabled.
func runFrameworkBuild(ctx context.Context, cfg *config.Config, name string) error {
	if !cfg.BuildEnabled() {
		log.Info("framework build skipped")
		return nil
	}
	b, err := builder.Get(name)
	if err != nil {
		return err
	}
	opts := cfg.BuildOptions()
	opts.Stdout = os.Stderr
	opts.Stderr = os.Stderr
	log.Info("running framework build", zap.Strings("command", opts.Command))
	return b.Build(ctx, &opts)
}
