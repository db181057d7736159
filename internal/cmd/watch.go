package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dosanma1/nextdeploy/internal/config"
	"github.com/dosanma1/nextdeploy/internal/stager"
	"github.com/dosanma1/nextdeploy/internal/watch"
)

var watchDebounce time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-stage the bundle whenever the build output changes",
	Long: `Watch the compiled pages, public/ and static/ and re-stage the bundle after
every change. Pair it with "next build --watch" or re-run "next build" by hand;
the framework build is not run by this command.

Stop with Ctrl+C.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", watch.DefaultDebounce, "Quiet period before re-staging")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(config.Overrides{SkipBuild: true})
	if err != nil {
		return err
	}
	opts := cfg.StagerOptions()
	opts.Logger = log

	restage := func(ctx context.Context, _ []watch.Event) error {
		res, err := stager.Stage(ctx, opts)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✅ Re-staged %d pages (%d routes)\n", res.Pages, res.Manifest.RouteCount())
		return nil
	}

	// Stage once so the bundle is current before the first change.
	if err := restage(ctx, nil); err != nil {
		log.Error("initial staging failed", zap.Error(err))
	}

	wcfg := watch.DefaultConfig(
		opts.PagesDir,
		filepath.Join(opts.ProjectDir, stager.PublicDir),
		filepath.Join(opts.ProjectDir, stager.StaticDir),
	)
	wcfg.Debounce = watchDebounce
	w, err := watch.New(wcfg)
	if err != nil {
		return err
	}
	return watch.Run(ctx, w, restage, log)
}
