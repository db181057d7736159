package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"path/filepath"
	"slices"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dosanma1/nextdeploy/internal/config"
	"github.com/dosanma1/nextdeploy/internal/errs"
	"github.com/dosanma1/nextdeploy/internal/manifest"
)

var routesManifest string

var routesCmd = &cobra.Command{
	Use:   "routes",
	Short: "Inspect the routes of the staged manifest",
}

var routesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every route and the file serving it",
	Args:  cobra.NoArgs,
	RunE:  runRoutesList,
}

var routesMatchCmd = &cobra.Command{
	Use:   "match <path>...",
	Short: "Show which file serves a request path",
	Long: `Resolve request paths the way the generated router does: public files first,
then exact routes, then dynamic routes with the fewest parameters.

Examples:
  nextdeploy routes match /blog/hello
  nextdeploy routes match /favicon.ico /customers/42/comments`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRoutesMatch,
}

func init() {
	rootCmd.AddCommand(routesCmd)
	routesCmd.AddCommand(routesListCmd, routesMatchCmd)
	routesCmd.PersistentFlags().StringVar(&routesManifest, "manifest", "", "Path to manifest.json (default: staged bundle)")
}

// loadStagedManifest reads the manifest named by --manifest or the one in
// the configured output directory.
func loadStagedManifest(path string) (*manifest.Manifest, error) {
	if path == "" {
		cfg, err := loadConfig(config.Overrides{})
		if err != nil {
			return nil, err
		}
		path = filepath.Join(cfg.StagerOptions().OutputDir, manifest.FileName)
	}
	m, err := manifest.Load(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errs.Configf("no staged manifest at %s (run `nextdeploy build` first)", path)
		}
		return nil, err
	}
	return m, nil
}

func runRoutesList(cmd *cobra.Command, args []string) error {
	m, err := loadStagedManifest(routesManifest)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ROUTE\tKIND\tFILE")
	for _, k := range slices.Sorted(maps.Keys(m.Pages.SSR.NonDynamic)) {
		fmt.Fprintf(w, "%s\tssr\t%s\n", k, m.Pages.SSR.NonDynamic[k])
	}
	for _, k := range slices.Sorted(maps.Keys(m.Pages.SSR.Dynamic)) {
		fmt.Fprintf(w, "%s\tdynamic\t%s\n", k, m.Pages.SSR.Dynamic[k].File)
	}
	for _, k := range slices.Sorted(maps.Keys(m.Pages.HTML)) {
		fmt.Fprintf(w, "%s\thtml\t%s\n", k, m.Pages.HTML[k])
	}
	for _, k := range slices.Sorted(maps.Keys(m.PublicFiles)) {
		fmt.Fprintf(w, "%s\tpublic\t%s\n", k, m.PublicFiles[k])
	}
	return w.Flush()
}

func runRoutesMatch(cmd *cobra.Command, args []string) error {
	m, err := loadStagedManifest(routesManifest)
	if err != nil {
		return err
	}
	table, err := m.Table()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	unmatched := 0
	for _, p := range args {
		if f, ok := m.PublicFiles[p]; ok {
			fmt.Fprintf(out, "%s -> public/%s\n", p, f)
			continue
		}
		res, ok := table.Resolve(p)
		if !ok {
			fmt.Fprintf(out, "%s -> no route (404)\n", p)
			unmatched++
			continue
		}
		if len(res.Params) == 0 {
			fmt.Fprintf(out, "%s -> %s (%s)\n", p, res.File, res.Key)
			continue
		}
		fmt.Fprintf(out, "%s -> %s (%s) %v\n", p, res.File, res.Key, res.Params)
	}
	if unmatched > 0 {
		return errs.Configf("%d of %d paths did not match a route", unmatched, len(args))
	}
	return nil
}
