package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/dosanma1/nextdeploy/internal/config"
	"github.com/dosanma1/nextdeploy/internal/errs"
	"github.com/dosanma1/nextdeploy/internal/platform"
)

var (
	initYes   bool
	initForce bool
)

var initCmd = &cobra.Command{
	Use:   "init [name]",
	Short: "Create nextdeploy.yaml in the project directory",
	Long: `Create nextdeploy.yaml for a Next.js project. Without --yes the name,
platform and bucket are asked for interactively.

Examples:
  nextdeploy init                 # Interactive
  nextdeploy init my-site --yes   # Defaults, no prompts`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVarP(&initYes, "yes", "y", false, "Accept defaults without prompting")
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing nextdeploy.yaml")
}

func runInit(cmd *cobra.Command, args []string) error {
	dir := rootProject
	if dir == "" {
		dir = "."
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return errs.Internal("resolve project directory", err)
	}
	path := filepath.Join(dir, config.FileName)
	if _, err := os.Stat(path); err == nil && !initForce {
		return errs.Configf("%s already exists (use --force to overwrite)", path)
	}

	name := defaultName(dir)
	if len(args) == 1 {
		name = args[0]
	}

	cfg := config.Default(dir, name)
	if !initYes {
		if err := promptConfig(cfg); err != nil {
			return err
		}
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := cfg.Save(path); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✅ Created %s\n", path)
	return nil
}

// defaultName derives a kebab-case name from the directory name.
func defaultName(dir string) string {
	name := strings.ToLower(filepath.Base(dir))
	name = strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			return r
		}
		return '-'
	}, name)
	name = strings.Trim(name, "-")
	for strings.Contains(name, "--") {
		name = strings.ReplaceAll(name, "--", "-")
	}
	if name == "" || name[0] < 'a' || name[0] > 'z' {
		name = "app-" + name
	}
	return strings.TrimSuffix(name, "-")
}

func promptConfig(cfg *config.Config) error {
	namePrompt := promptui.Prompt{
		Label:   "Project name",
		Default: cfg.Name,
		Validate: func(s string) error {
			probe := *cfg
			probe.Name = s
			return probe.Validate()
		},
	}
	name, err := namePrompt.Run()
	if err != nil {
		return promptErr(err)
	}
	cfg.Name = name

	platforms := platform.List()
	platformSelect := promptui.Select{
		Label: "Platform",
		Items: platforms,
	}
	_, cfg.Platform, err = platformSelect.Run()
	if err != nil {
		return promptErr(err)
	}

	bucketPrompt := promptui.Prompt{
		Label:   "Asset bucket",
		Default: cfg.Name + "-assets",
		Validate: func(s string) error {
			if strings.TrimSpace(s) == "" {
				return errors.New("bucket is required")
			}
			return nil
		},
	}
	cfg.Storage.Bucket, err = bucketPrompt.Run()
	if err != nil {
		return promptErr(err)
	}
	return nil
}

func promptErr(err error) error {
	if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
		return errs.Configf("cancelled")
	}
	return errs.Internal("prompt", err)
}
