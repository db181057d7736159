package platform

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dosanma1/nextdeploy/internal/errs"
)

func TestObjects(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "chunks"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "chunks", "main.js"), []byte("main"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "buildId"), []byte("abc"), 0644))

	objs, err := Objects(UploadInput{Dir: dir, KeyPrefix: "_next/static"})
	require.NoError(t, err)

	keys := make([]string, 0, len(objs))
	for _, o := range objs {
		keys = append(keys, o.Key)
	}
	sort.Strings(keys)
	assert.Equal(t, []string{"_next/static/buildId", "_next/static/chunks/main.js"}, keys)
}

func TestObjectsMissingDir(t *testing.T) {
	objs, err := Objects(UploadInput{Dir: filepath.Join(t.TempDir(), "public"), KeyPrefix: "public"})
	require.NoError(t, err)
	assert.Empty(t, objs)
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "image/svg+xml", ContentType("logo.svg"))
	assert.Equal(t, "application/octet-stream", ContentType("LICENSE"))
}

func TestCacheControl(t *testing.T) {
	assert.Contains(t, CacheControl("_next/static/chunks/main.js"), "immutable")
	assert.Contains(t, CacheControl("public/sw.js"), "max-age=0")
}

func TestUploadObjects(t *testing.T) {
	objs := []Object{{Key: "a", Size: 1}, {Key: "b", Size: 2}, {Key: "c", Size: 3}}

	var (
		mu   sync.Mutex
		seen []string
	)
	err := UploadObjects(context.Background(), objs, UploadOptions{Concurrency: 2}, func(_ context.Context, o Object) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, o.Key)
		return nil
	})
	require.NoError(t, err)
	sort.Strings(seen)
	assert.Equal(t, []string{"a", "b", "c"}, seen)
}

func TestUploadObjectsStopsOnError(t *testing.T) {
	objs := []Object{{Key: "a"}, {Key: "b"}, {Key: "c"}}
	boom := errors.New("boom")

	err := UploadObjects(context.Background(), objs, UploadOptions{Concurrency: 1}, func(ctx context.Context, o Object) error {
		if o.Key == "a" {
			return boom
		}
		return ctx.Err()
	})
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "upload a")
}

func TestUploadObjectsEmpty(t *testing.T) {
	called := false
	err := UploadObjects(context.Background(), nil, UploadOptions{}, func(context.Context, Object) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.False(t, called)
}

func TestRegistry(t *testing.T) {
	Register("test-registry", func(_ context.Context, cfg Config) (*Provider, error) {
		return &Provider{}, nil
	})
	assert.Contains(t, List(), "test-registry")

	p, err := New(context.Background(), "test-registry", Config{})
	require.NoError(t, err)
	assert.Equal(t, "test-registry", p.Name)

	_, err = New(context.Background(), "nope", Config{})
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.CategoryConfig))
	assert.Equal(t, 7, errs.ExitCode(err))

	assert.Panics(t, func() {
		Register("test-registry", func(context.Context, Config) (*Provider, error) { return nil, nil })
	})
}
