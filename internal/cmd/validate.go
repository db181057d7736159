package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dosanma1/nextdeploy/internal/config"
	"github.com/dosanma1/nextdeploy/internal/errs"
	"github.com/dosanma1/nextdeploy/internal/manifest"
)

var validateManifest string

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the staged manifest.json",
	Long: `Validates the staged manifest.json against the embedded JSON Schema and checks
that every page it references exists in the staged bundle.`,
	Args: cobra.NoArgs,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().StringVar(&validateManifest, "manifest", "", "Path to manifest.json (default: staged bundle)")
}

func runValidate(cmd *cobra.Command, args []string) error {
	path := validateManifest
	if path == "" {
		cfg, err := loadConfig(config.Overrides{})
		if err != nil {
			return err
		}
		path = filepath.Join(cfg.StagerOptions().OutputDir, manifest.FileName)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "🔍 Validating %s...\n", path)

	data, err := os.ReadFile(path)
	if err != nil {
		return errs.Configf("no staged manifest at %s (run `nextdeploy build` first)", path)
	}

	if err := manifest.Validate(data); err != nil {
		var verr *manifest.ValidationError
		if errors.As(err, &verr) {
			fmt.Fprintln(out, "\n❌ Validation failed with the following errors:")
			fmt.Fprintln(out)
			for i, p := range verr.Problems {
				fmt.Fprintf(out, "%d. %s\n", i+1, p)
			}
		}
		return err
	}

	m, err := manifest.FromJSON(data)
	if err != nil {
		return err
	}
	if err := m.Verify(filepath.Dir(path)); err != nil {
		return err
	}

	fmt.Fprintf(out, "✅ manifest.json is valid! (%d routes, %d public files)\n", m.RouteCount(), len(m.PublicFiles))
	return nil
}
