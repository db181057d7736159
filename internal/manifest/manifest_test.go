package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dosanma1/nextdeploy/internal/errs"
	"github.com/dosanma1/nextdeploy/internal/pages"
)

func touch(t *testing.T, root string, files ...string) {
	t.Helper()
	for _, f := range files {
		p := filepath.Join(root, filepath.FromSlash(f))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte("x"), 0644))
	}
}

func classify(t *testing.T, files ...string) *pages.Classification {
	t.Helper()
	root := t.TempDir()
	touch(t, root, files...)
	c, err := pages.Classify(pages.Discover(root))
	require.NoError(t, err)
	return c
}

func sampleManifest(t *testing.T) *Manifest {
	t.Helper()
	c := classify(t,
		"index.js",
		"blog/[id].js",
		"customers/new.js",
		"customers/[customer]/[post].js",
		"terms.html",
	)
	origins := NewOrigins("https://abc.lambda-url.eu-west-1.on.aws/", "https://assets.s3.amazonaws.com", DefaultTTLs)
	return Build(c, map[string]string{"/favicon.ico": "favicon.ico"}, origins)
}

func TestBuildScenarios(t *testing.T) {
	m := sampleManifest(t)

	assert.Equal(t, pages.DynamicRoute{
		File:  "pages/blog/[id].js",
		Regex: `^\/blog\/([^\/]+?)(?:\/)?$`,
	}, m.Pages.SSR.Dynamic["/blog/:id"])
	assert.Equal(t, `^\/customers\/([^\/]+?)\/([^\/]+?)(?:\/)?$`,
		m.Pages.SSR.Dynamic["/customers/:customer/:post"].Regex)
	assert.Equal(t, "pages/customers/new.js", m.Pages.SSR.NonDynamic["/customers/new"])
	assert.Equal(t, "pages/index.js", m.Pages.SSR.NonDynamic["/"])
	assert.Equal(t, "pages/terms.html", m.Pages.HTML["/terms"])
	assert.Equal(t, 5, m.RouteCount())
}

func TestBuildCopiesInputs(t *testing.T) {
	c := classify(t, "about.js")
	public := map[string]string{"/robots.txt": "robots.txt"}
	m := Build(c, public, NewOrigins("", "", DefaultTTLs))

	c.NonDynamic["/other"] = "pages/other.js"
	public["/sw.js"] = "sw.js"

	assert.Len(t, m.Pages.SSR.NonDynamic, 1)
	assert.Len(t, m.PublicFiles, 1)
}

func TestBuildEmptyCollectionsSerializeAsObjects(t *testing.T) {
	m := Build(&pages.Classification{}, nil, NewOrigins("", "", DefaultTTLs))
	data, err := m.ToJSON()
	require.NoError(t, err)

	assert.Contains(t, string(data), `"dynamic": {}`)
	assert.Contains(t, string(data), `"nonDynamic": {}`)
	assert.Contains(t, string(data), `"html": {}`)
	assert.Contains(t, string(data), `"publicFiles": {}`)
	assert.NoError(t, Validate(data))
}

func TestRoundTrip(t *testing.T) {
	m := sampleManifest(t)
	dir := t.TempDir()

	path, err := m.Write(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, FileName), path)

	loaded, err := Load(path)
	require.NoError(t, err)
	if diff := cmp.Diff(m, loaded); diff != "" {
		t.Errorf("manifest changed after round trip (-want +got):\n%s", diff)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), FileName))
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.CategoryInternal))
}

func TestFromJSONRejectsGarbage(t *testing.T) {
	_, err := FromJSON([]byte("{not json"))
	require.Error(t, err)
}

func TestPublicFiles(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "favicon.ico", "sw.js")

	files, err := PublicFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"/favicon.ico": "favicon.ico",
		"/sw.js":       "sw.js",
	}, files)
}

func TestPublicFilesNested(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "img/logo.png", "fonts/a/b.woff2")

	files, err := PublicFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"/img/logo.png":    "img/logo.png",
		"/fonts/a/b.woff2": "fonts/a/b.woff2",
	}, files)
}

func TestPublicFilesMissingDir(t *testing.T) {
	files, err := PublicFiles(filepath.Join(t.TempDir(), "public"))
	require.NoError(t, err)
	assert.Empty(t, files)
	assert.NotNil(t, files)
}

func TestVerify(t *testing.T) {
	m := sampleManifest(t)
	staged := t.TempDir()
	touch(t, staged, m.PageFiles()...)

	require.NoError(t, m.Verify(staged))

	require.NoError(t, os.Remove(filepath.Join(staged, "pages", "terms.html")))
	err := m.Verify(staged)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.CategoryMissingArtifact))
	assert.Contains(t, err.Error(), "pages/terms.html")
}

func TestPageFilesSortedAndUnique(t *testing.T) {
	m := sampleManifest(t)
	assert.Equal(t, []string{
		"pages/blog/[id].js",
		"pages/customers/[customer]/[post].js",
		"pages/customers/new.js",
		"pages/index.js",
		"pages/terms.html",
	}, m.PageFiles())
}

func TestNewOrigins(t *testing.T) {
	o := NewOrigins("https://abc.lambda-url.eu-west-1.on.aws/", "assets.s3.amazonaws.com", TTLs{Static: 600, Default: 5})

	assert.Equal(t, "abc.lambda-url.eu-west-1.on.aws", o.SSRApi.DomainName)
	assert.False(t, o.SSRApi.Private)
	assert.Equal(t, int64(5), o.SSRApi.DefaultTTL)
	assert.Empty(t, o.SSRApi.PathPatterns)

	assert.Equal(t, "assets.s3.amazonaws.com", o.StaticOrigin.DomainName)
	assert.True(t, o.StaticOrigin.Private)
	assert.Equal(t, map[string]PathPattern{
		PatternNextStatic: {TTL: 600},
		PatternStatic:     {TTL: 600},
		PatternPublic:     {TTL: 5},
	}, o.StaticOrigin.PathPatterns)
}

func TestNewOriginsWithoutBackend(t *testing.T) {
	o := NewOrigins("", "https://assets.s3.amazonaws.com", DefaultTTLs)
	assert.Empty(t, o.SSRApi.DomainName)
	assert.Empty(t, o.SSRApi.URL)
}

func TestValidate(t *testing.T) {
	m := sampleManifest(t)
	require.NoError(t, m.Validate())

	tests := []struct {
		name string
		doc  string
	}{
		{"missing pages", `{"publicFiles": {}, "cloudFrontOrigins": {"ssrApi": {"domainName": "", "url": "", "private": false, "defaultTtl": 0}, "staticOrigin": {"domainName": "", "url": "", "private": true, "defaultTtl": 0}}}`},
		{"unknown key", `{"pages": {"ssr": {"dynamic": {}, "nonDynamic": {}}, "html": {}}, "publicFiles": {}, "cloudFrontOrigins": {"ssrApi": {"domainName": "", "url": "", "private": false, "defaultTtl": 0}, "staticOrigin": {"domainName": "", "url": "", "private": true, "defaultTtl": 0}}, "extra": 1}`},
		{"route without slash", `{"pages": {"ssr": {"dynamic": {}, "nonDynamic": {"about": "pages/about.js"}}, "html": {}}, "publicFiles": {}, "cloudFrontOrigins": {"ssrApi": {"domainName": "", "url": "", "private": false, "defaultTtl": 0}, "staticOrigin": {"domainName": "", "url": "", "private": true, "defaultTtl": 0}}}`},
		{"dynamic without regex", `{"pages": {"ssr": {"dynamic": {"/a/:b": {"file": "pages/a/[b].js"}}, "nonDynamic": {}}, "html": {}}, "publicFiles": {}, "cloudFrontOrigins": {"ssrApi": {"domainName": "", "url": "", "private": false, "defaultTtl": 0}, "staticOrigin": {"domainName": "", "url": "", "private": true, "defaultTtl": 0}}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate([]byte(tt.doc))
			require.Error(t, err)
			e, ok := errs.As(err)
			require.True(t, ok)
			var verr *ValidationError
			require.ErrorAs(t, e, &verr)
			assert.NotEmpty(t, verr.Problems)
		})
	}
}

func TestTableResolvesManifestRoutes(t *testing.T) {
	m := sampleManifest(t)
	table, err := m.Table()
	require.NoError(t, err)

	res, ok := table.Resolve("/customers/new")
	require.True(t, ok)
	assert.Equal(t, "pages/customers/new.js", res.File)

	res, ok = table.Resolve("/customers/acme/42/")
	require.True(t, ok)
	assert.Equal(t, "/customers/:customer/:post", res.Key)
	assert.Equal(t, map[string]string{"customer": "acme", "post": "42"}, res.Params)

	res, ok = table.Resolve("/terms")
	require.True(t, ok)
	assert.Equal(t, "pages/terms.html", res.File)
}
