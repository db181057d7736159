package cmd

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/dosanma1/nextdeploy/internal/config"
	"github.com/dosanma1/nextdeploy/internal/errs"
)

// findProjectRoot finds the project root by looking for nextdeploy.yaml
func findProjectRoot() (string, error) {
	if rootProject != "" {
		return filepath.Abs(rootProject)
	}

	dir, err := os.Getwd()
	if err != nil {
		return "", errs.Internal("get working directory", err)
	}

	// Traverse up the directory tree looking for nextdeploy.yaml
	for {
		if _, err := os.Stat(filepath.Join(dir, config.FileName)); err == nil {
			return dir, nil
		}

		// Check if we've reached the root
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", errs.Configf("%s not found in current directory or any parent directory", config.FileName)
}

// loadConfig loads the project configuration and applies flag overrides.
func loadConfig(o config.Overrides) (*config.Config, error) {
	root, err := findProjectRoot()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(root)
	if err != nil {
		return nil, err
	}
	if err := cfg.Apply(o); err != nil {
		return nil, err
	}
	log.Debug("config loaded", zap.String("dir", root), zap.String("platform", cfg.Platform))
	return cfg, nil
}
