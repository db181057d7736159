package routes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTable(t *testing.T) *Table {
	t.Helper()
	tbl := NewTable()
	tbl.AddExact("/", "pages/index.js")
	tbl.AddExact("/customers/new", "pages/customers/new.js")

	for _, p := range []string{"customers/[customer].js", "customers/[customer]/[post].js", "blog/[id].js"} {
		r, err := Match(p)
		require.NoError(t, err)
		require.NoError(t, tbl.AddDynamic(r.Key, "pages/"+p, r.Regex))
	}
	return tbl
}

func TestTableResolve(t *testing.T) {
	tbl := newTestTable(t)
	assert.Equal(t, 5, tbl.Len())

	tests := []struct {
		path   string
		key    string
		params map[string]string
	}{
		{"/", "/", nil},
		{"/customers/new", "/customers/new", nil},
		{"/customers/new/", "/customers/new", nil},
		{"/customers/acme", "/customers/:customer", map[string]string{"customer": "acme"}},
		{"/customers/acme/first-post?draft=1", "/customers/:customer/:post", map[string]string{"customer": "acme", "post": "first-post"}},
		{"/blog/42/", "/blog/:id", map[string]string{"id": "42"}},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			res, ok := tbl.Resolve(tt.path)
			require.True(t, ok)
			assert.Equal(t, tt.key, res.Key)
			if tt.params == nil {
				assert.Empty(t, res.Params)
			} else {
				assert.Equal(t, tt.params, res.Params)
			}
		})
	}
}

func TestTableResolveMiss(t *testing.T) {
	tbl := newTestTable(t)

	_, ok := tbl.Resolve("/unknown")
	assert.False(t, ok)
	_, ok = tbl.Resolve("/blog/1/2")
	assert.False(t, ok)
}

func TestTableRejectsGroupMismatch(t *testing.T) {
	tbl := NewTable()
	err := tbl.AddDynamic("/blog/:id", "pages/blog/[id].js", `^\/blog(?:\/)?$`)
	require.Error(t, err)

	err = tbl.AddDynamic("/blog/:id", "pages/blog/[id].js", `^(`)
	require.Error(t, err)
}
