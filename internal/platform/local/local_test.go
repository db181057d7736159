package local

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dosanma1/nextdeploy/internal/errs"
	"github.com/dosanma1/nextdeploy/internal/manifest"
	"github.com/dosanma1/nextdeploy/internal/platform"
)

func newProvider(t *testing.T) (*platform.Provider, string) {
	t.Helper()
	root := t.TempDir()
	p, err := platform.New(context.Background(), Name, platform.Config{
		App:      "shop",
		LocalDir: root,
		Storage:  platform.StorageConfig{Bucket: "shop-assets"},
	})
	require.NoError(t, err)
	return p, root
}

func TestBackendDeploy(t *testing.T) {
	ctx := context.Background()
	p, root := newProvider(t)
	staged := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(staged, "index.js"), []byte("handler"), 0644))

	require.NoError(t, p.Backend.Init(ctx))
	out, err := p.Backend.Deploy(ctx, platform.BackendInput{StagedDir: staged})
	require.NoError(t, err)

	assert.Equal(t, "shop", out.Name)
	assert.Equal(t, "file://"+filepath.ToSlash(filepath.Join(root, "backend", "shop")), out.URL)
	assert.FileExists(t, filepath.Join(root, "backend", "shop", "index.js"))
}

func TestStorageUpload(t *testing.T) {
	ctx := context.Background()
	p, root := newProvider(t)
	public := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(public, "img"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(public, "img", "logo.png"), []byte("png"), 0644))

	require.NoError(t, p.Storage.Init(ctx))
	bucket, err := p.Storage.Deploy(ctx, platform.BucketInput{})
	require.NoError(t, err)
	assert.Equal(t, "shop-assets", bucket.Name)

	require.NoError(t, p.Storage.Upload(ctx, platform.UploadInput{Dir: public, KeyPrefix: "public"}))
	assert.FileExists(t, filepath.Join(root, "buckets", "shop-assets", "public", "img", "logo.png"))

	require.NoError(t, p.Storage.Upload(ctx, platform.UploadInput{Dir: filepath.Join(public, "missing"), KeyPrefix: "static"}))
	assert.NoDirExists(t, filepath.Join(root, "buckets", "shop-assets", "static"))
}

func TestStorageRequiresBucket(t *testing.T) {
	p, err := New(context.Background(), platform.Config{LocalDir: t.TempDir()})
	require.NoError(t, err)

	_, err = p.Storage.Deploy(context.Background(), platform.BucketInput{})
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.CategoryConfig))
}

func TestCDNDeploy(t *testing.T) {
	ctx := context.Background()
	p, root := newProvider(t)
	origins := manifest.NewOrigins("https://fn.example", "https://bucket.example", manifest.DefaultTTLs)

	require.NoError(t, p.CDN.Init(ctx))
	out, err := p.CDN.Deploy(ctx, platform.CDNInput{Origins: origins})
	require.NoError(t, err)
	assert.NotEmpty(t, out.URL)

	data, err := os.ReadFile(filepath.Join(root, "cdn", "distribution.json"))
	require.NoError(t, err)
	var got manifest.Origins
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, origins, got)
}
