package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dosanma1/nextdeploy/internal/errs"
	"github.com/dosanma1/nextdeploy/internal/manifest"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0644))
	return dir
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		EnvName, EnvPlatform, EnvRegion, EnvBucket, EnvEndpoint,
		EnvAccessKey, EnvSecretKey, EnvRole, EnvDistribution, EnvAWSRegion,
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	dir := writeConfig(t, "name: my-site\n")

	c, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "my-site", c.Name)
	assert.Equal(t, DefaultPlatform, c.Platform)
	assert.Equal(t, DefaultRegion, c.Region)
	assert.Equal(t, "my-site-assets", c.Storage.Bucket)
	assert.Equal(t, ".next/serverless/pages", c.Paths.Pages)
	assert.Equal(t, ".nextdeploy/build", c.Paths.Output)
	assert.True(t, c.BuildEnabled())
	assert.Equal(t, manifest.DefaultTTLs, c.TTLs())
	assert.Equal(t, dir, c.Dir())
}

func TestLoadFull(t *testing.T) {
	clearEnv(t)
	dir := writeConfig(t, `
name: shop
platform: minio
region: eu-west-1
build:
  enabled: false
  command: [yarn, build]
paths:
  pages: build/pages
  output: out
  shim: vendor/shim
backend:
  memory: 512
  role: arn:aws:iam::123:role/lambda
storage:
  bucket: shop-static
  endpoint: http://localhost:9000
  concurrency: 4
cdn:
  distribution_id: E1
  ttl:
    static: 3600
    default: 60
  origins:
    backend: https://fn.example.com
    bucket: https://shop-static.s3.amazonaws.com
`)

	c, err := Load(dir)
	require.NoError(t, err)
	assert.False(t, c.BuildEnabled())
	assert.Equal(t, manifest.TTLs{Static: 3600, Default: 60}, c.TTLs())

	so := c.StagerOptions()
	assert.Equal(t, filepath.Join(dir, "build", "pages"), so.PagesDir)
	assert.Equal(t, filepath.Join(dir, "out"), so.OutputDir)
	assert.Equal(t, filepath.Join(dir, "vendor", "shim"), so.ShimDir)
	assert.Equal(t, "fn.example.com", so.Origins.SSRApi.DomainName)
	assert.Equal(t, int64(3600), so.Origins.StaticOrigin.PathPatterns[manifest.PatternNextStatic].TTL)

	bo := c.BuildOptions()
	assert.Equal(t, []string{"yarn", "build"}, bo.Command)
	assert.Equal(t, dir, bo.ProjectRoot)

	pc := c.PlatformConfig()
	assert.Equal(t, "shop", pc.App)
	assert.Equal(t, "eu-west-1", pc.Region)
	assert.Equal(t, int32(512), pc.Backend.MemoryMB)
	assert.Equal(t, "shop-static", pc.Storage.Bucket)
	assert.Equal(t, 4, pc.Storage.Concurrency)
	assert.Equal(t, "E1", pc.CDN.DistributionID)
	assert.Equal(t, filepath.Join(dir, ".nextdeploy", "local"), pc.LocalDir)
}

func TestLoadEnvironment(t *testing.T) {
	clearEnv(t)
	dir := writeConfig(t, "name: my-site\nstorage:\n  bucket: from-file\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, EnvFile),
		[]byte("NEXTDEPLOY_BUCKET=from-dotenv\nNEXTDEPLOY_ACCESS_KEY=AKIA\nNEXTDEPLOY_SECRET_KEY=secret\n"), 0644))
	t.Setenv(EnvRegion, "ap-south-1")

	c, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", c.Storage.Bucket)
	assert.Equal(t, "ap-south-1", c.Region)
	assert.Equal(t, "AKIA", c.Storage.AccessKey)
	assert.Equal(t, "secret", c.Storage.SecretKey)

	t.Setenv(EnvBucket, "from-process")
	c, err = Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "from-process", c.Storage.Bucket)
}

func TestLoadAWSRegionFallback(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvAWSRegion, "sa-east-1")

	c, err := Load(writeConfig(t, "name: my-site\n"))
	require.NoError(t, err)
	assert.Equal(t, "sa-east-1", c.Region)
}

func TestLoadErrors(t *testing.T) {
	clearEnv(t)
	tests := map[string]string{
		"missing name":          "platform: aws\n",
		"not kebab case":        "name: My_Site\n",
		"bad yaml":              "name: [\n",
		"negative ttl":          "name: a\ncdn:\n  ttl:\n    static: -1\n",
		"output equals dir":     "name: a\npaths:\n  output: .\n",
		"output above dir":      "name: a\npaths:\n  output: ..\n",
		"output contains pages": "name: a\npaths:\n  output: .next\n",
		"output is pages root":  "name: a\npaths:\n  output: .next/serverless\n",
		"output inside public":  "name: a\npaths:\n  output: public/build\n",
		"negative memory":       "name: a\nbackend:\n  memory: -5\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, content))
			require.Error(t, err)
			assert.True(t, errs.Is(err, errs.CategoryConfig), "got %v", err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(t.TempDir())
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.CategoryConfig))
	assert.Contains(t, err.Error(), "nextdeploy init")
}

func TestApply(t *testing.T) {
	clearEnv(t)
	c, err := Load(writeConfig(t, "name: my-site\n"))
	require.NoError(t, err)

	require.NoError(t, c.Apply(Overrides{Platform: "local", Region: "eu-central-1", Bucket: "other", SkipBuild: true}))
	assert.Equal(t, "local", c.Platform)
	assert.Equal(t, "eu-central-1", c.Region)
	assert.Equal(t, "other", c.Storage.Bucket)
	assert.False(t, c.BuildEnabled())

	require.NoError(t, c.Apply(Overrides{}))
	assert.Equal(t, "local", c.Platform)
}

func TestSaveRoundTrip(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	c := Default(dir, "fresh-app")
	c.Storage.AccessKey = "never-written"
	path := filepath.Join(dir, FileName)
	require.NoError(t, c.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "never-written")

	loaded, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, c.Name, loaded.Name)
	assert.Equal(t, c.Storage.Bucket, loaded.Storage.Bucket)
	assert.Equal(t, c.Paths, loaded.Paths)
}
