package builder

import (
	"context"
	"fmt"
	"maps"
	"os"
	"os/exec"
	"path/filepath"
	"slices"

	"github.com/dosanma1/nextdeploy/internal/errs"
)

// NextName is the registry name of the Next.js builder.
const NextName = "next"

// DefaultNextCommand produces the serverless build output.
var DefaultNextCommand = []string{"npx", "next", "build"}

// NextBuilder runs `next build` in the project root.
type NextBuilder struct{}

// NewNextBuilder creates a new Next.js builder
func NewNextBuilder() *NextBuilder {
	return &NextBuilder{}
}

// Name returns the builder name
func (b *NextBuilder) Name() string {
	return NextName
}

// Validate checks that the project root holds a package.json.
func (b *NextBuilder) Validate(opts *BuildOptions) error {
	if opts.ProjectRoot == "" {
		return errs.Configf("project root is required")
	}
	info, err := os.Stat(opts.ProjectRoot)
	if err != nil || !info.IsDir() {
		return errs.Configf("project root does not exist: %s", opts.ProjectRoot)
	}
	if _, err := os.Stat(filepath.Join(opts.ProjectRoot, "package.json")); err != nil {
		return errs.Configf("package.json not found in %s", opts.ProjectRoot)
	}
	return nil
}

// Build runs the build command and waits for it to finish.
func (b *NextBuilder) Build(ctx context.Context, opts *BuildOptions) error {
	if err := b.Validate(opts); err != nil {
		return err
	}

	command := opts.Command
	if len(command) == 0 {
		command = DefaultNextCommand
	}

	cmd := exec.CommandContext(ctx, command[0], command[1:]...)
	cmd.Dir = opts.ProjectRoot
	cmd.Stdout = opts.Stdout
	cmd.Stderr = opts.Stderr
	cmd.Env = os.Environ()
	for _, k := range slices.Sorted(maps.Keys(opts.Env)) {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, opts.Env[k]))
	}

	if err := cmd.Run(); err != nil {
		return errs.External("next build", err).With("command", command)
	}
	return nil
}

func init() {
	if err := Register(NewNextBuilder()); err != nil {
		panic(err)
	}
}
