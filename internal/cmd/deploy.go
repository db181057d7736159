package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dosanma1/nextdeploy/internal/builder"
	"github.com/dosanma1/nextdeploy/internal/config"
	"github.com/dosanma1/nextdeploy/internal/orchestrator"
	"github.com/dosanma1/nextdeploy/internal/platform"
	"github.com/dosanma1/nextdeploy/internal/platform/local"
)

var (
	deploySkipBuild bool
	deployDryRun    bool
	deployPlatform  string
	deployRegion    string
	deployBucket    string
)

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Build, stage and deploy the project",
	Long: `Deploy the project in one pass:

  1. run the framework build (unless --skip-build or build.enabled: false)
  2. stage the bundle and write manifest.json
  3. register the bundle as a serverless function
  4. create or reuse the asset bucket and upload .next/static, static/ and public/
  5. create or update the CDN distribution in front of both

Any failure stops the deployment. Completed steps are not rolled back.

Examples:
  nextdeploy deploy                       # Deploy with nextdeploy.yaml settings
  nextdeploy deploy --dry-run             # Deploy into .nextdeploy/local instead
  nextdeploy deploy --platform=minio      # Upload assets to an S3-compatible server
  nextdeploy deploy --skip-build          # Reuse the existing build output`,
	RunE: runDeploy,
}

func init() {
	rootCmd.AddCommand(deployCmd)
	deployCmd.Flags().BoolVar(&deploySkipBuild, "skip-build", false, "Skip the framework build")
	deployCmd.Flags().BoolVar(&deployDryRun, "dry-run", false, "Deploy to the local filesystem provider")
	deployCmd.Flags().StringVar(&deployPlatform, "platform", "", fmt.Sprintf("Target platform %v", platform.List()))
	deployCmd.Flags().StringVar(&deployRegion, "region", "", "Override the region")
	deployCmd.Flags().StringVar(&deployBucket, "bucket", "", "Override the asset bucket")
}

func runDeploy(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	overrides := config.Overrides{
		Platform:  deployPlatform,
		Region:    deployRegion,
		Bucket:    deployBucket,
		SkipBuild: deploySkipBuild,
	}
	if deployDryRun {
		overrides.Platform = local.Name
	}
	cfg, err := loadConfig(overrides)
	if err != nil {
		return err
	}

	pcfg := cfg.PlatformConfig()
	pcfg.Logger = log
	provider, err := platform.New(ctx, cfg.Platform, pcfg)
	if err != nil {
		return err
	}

	b, err := builder.Get(builder.NextName)
	if err != nil {
		return err
	}
	buildOpts := cfg.BuildOptions()
	buildOpts.Stdout = os.Stderr
	buildOpts.Stderr = os.Stderr

	o, err := orchestrator.New(orchestrator.Options{
		Builder:   b,
		Build:     buildOpts,
		SkipBuild: !cfg.BuildEnabled(),
		Stage:     cfg.StagerOptions(),
		Provider:  provider,
		Bucket:    cfg.Storage.Bucket,
		TTL:       cfg.TTLs(),
		Logger:    log,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "🚀 Deploying %s to %s\n", cfg.Name, provider.Name)
	res, err := o.Run(ctx)
	if err != nil {
		log.Error("deployment failed", zap.Error(err))
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✅ Deployed %s (%s)\n", cfg.Name, res.ID)
	fmt.Fprintf(out, "   Backend: %s\n", res.BackendURL)
	fmt.Fprintf(out, "   Bucket:  %s\n", res.BucketName)
	fmt.Fprintf(out, "   CDN:     %s\n", res.CDNURL)
	return nil
}
