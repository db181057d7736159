package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dosanma1/nextdeploy/internal/config"
	"github.com/dosanma1/nextdeploy/internal/errs"
	"github.com/dosanma1/nextdeploy/internal/manifest"
	"github.com/dosanma1/nextdeploy/internal/watch"
)

func resetFlags() {
	rootVerbose, rootLogFormat, rootProject = false, "console", ""
	buildSkipBuild, buildBuilder = false, "next"
	deploySkipBuild, deployDryRun = false, false
	deployPlatform, deployRegion, deployBucket = "", "", ""
	routesManifest, validateManifest = "", ""
	initYes, initForce = false, false
	watchDebounce = watch.DefaultDebounce
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags()
	t.Cleanup(resetFlags)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := Execute(t.Context())
	return out.String(), err
}

func newProject(t *testing.T) string {
	t.Helper()
	for _, k := range []string{
		config.EnvName, config.EnvPlatform, config.EnvRegion, config.EnvBucket,
		config.EnvEndpoint, config.EnvAccessKey, config.EnvSecretKey,
	} {
		t.Setenv(k, "")
	}
	dir := t.TempDir()
	for name, content := range map[string]string{
		config.FileName:                       "name: shop\nplatform: aws\n",
		"package.json":                        `{"name":"shop"}`,
		".next/serverless/pages/index.js":     "index",
		".next/serverless/pages/blog/[id].js": "blog",
		".next/serverless/pages/about.html":   "<p>about</p>",
		".next/static/chunks/main.js":         "chunk",
		"public/favicon.ico":                  "ico",
	} {
		p := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	}
	return dir
}

func TestBuildStagesBundle(t *testing.T) {
	dir := newProject(t)

	out, err := execute(t, "build", "--skip-build", "-C", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Bundle staged")
	assert.FileExists(t, filepath.Join(dir, ".nextdeploy", "build", manifest.FileName))
}

func TestRoutesAndValidate(t *testing.T) {
	dir := newProject(t)
	_, err := execute(t, "build", "--skip-build", "-C", dir)
	require.NoError(t, err)

	out, err := execute(t, "routes", "list", "-C", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "/blog/:id")
	assert.Contains(t, out, "/about")
	assert.Contains(t, out, "/favicon.ico")

	out, err = execute(t, "routes", "match", "-C", dir, "/blog/hello", "/favicon.ico", "/")
	require.NoError(t, err)
	assert.Contains(t, out, "/blog/hello -> pages/blog/[id].js (/blog/:id) map[id:hello]")
	assert.Contains(t, out, "/favicon.ico -> public/favicon.ico")
	assert.Contains(t, out, "/ -> pages/index.js (/)")

	_, err = execute(t, "routes", "match", "-C", dir, "/nope/at/all")
	require.Error(t, err)
	assert.Equal(t, 7, errs.ExitCode(err))

	out, err = execute(t, "validate", "-C", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "is valid")
}

func TestValidateMissingPage(t *testing.T) {
	dir := newProject(t)
	_, err := execute(t, "build", "--skip-build", "-C", dir)
	require.NoError(t, err)
	require.NoError(t, os.Remove(filepath.Join(dir, ".nextdeploy", "build", "pages", "index.js")))

	_, err = execute(t, "validate", "-C", dir)
	require.Error(t, err)
	assert.Equal(t, 11, errs.ExitCode(err))
}

func TestRoutesWithoutStagedManifest(t *testing.T) {
	dir := newProject(t)

	_, err := execute(t, "routes", "list", "-C", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nextdeploy build")
}

func TestDeployDryRun(t *testing.T) {
	dir := newProject(t)

	out, err := execute(t, "deploy", "--dry-run", "--skip-build", "-C", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Deployed shop")

	local := filepath.Join(dir, ".nextdeploy", "local")
	assert.FileExists(t, filepath.Join(local, "backend", "shop", manifest.FileName))
	assert.FileExists(t, filepath.Join(local, "buckets", "shop-assets", "_next", "static", "chunks", "main.js"))
	assert.FileExists(t, filepath.Join(local, "buckets", "shop-assets", "public", "favicon.ico"))
}

func TestInit(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "My Site")
	require.NoError(t, os.Mkdir(dir, 0755))

	out, err := execute(t, "init", "--yes", "-C", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Created")

	cfg, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "my-site", cfg.Name)

	_, err = execute(t, "init", "--yes", "-C", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--force")

	_, err = execute(t, "init", "renamed", "--yes", "--force", "-C", dir)
	require.NoError(t, err)
	cfg, err = config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "renamed", cfg.Name)
}

func TestDefaultName(t *testing.T) {
	tests := map[string]string{
		"/p/My Site":   "my-site",
		"/p/shop":      "shop",
		"/p/__web__":   "web",
		"/p/42-things": "app-42-things",
	}
	for dir, want := range tests {
		assert.Equal(t, want, defaultName(dir), dir)
	}
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "nextdeploy dev")
	assert.Contains(t, out, "aws")
	assert.Contains(t, out, "local")
	assert.Contains(t, out, "minio")
}

func TestWatchDebounceFlag(t *testing.T) {
	require.NoError(t, watchCmd.Flags().Set("debounce", "1s"))
	assert.Equal(t, time.Second, watchDebounce)
	resetFlags()
}
