package routes

import (
	"regexp"
	"sort"
	"strings"

	"github.com/dosanma1/nextdeploy/internal/errs"
)

// Resolution is the outcome of resolving a request path.
type Resolution struct {
	Key    string
	File   string
	Params map[string]string
}

type dynamicEntry struct {
	key    string
	file   string
	re     *regexp.Regexp
	params []string
}

// Table resolves request paths the same way the generated router does:
// exact keys first, then dynamic routes with fewer parameters first.
type Table struct {
	exact   map[string]string
	dynamic []dynamicEntry
	sorted  bool
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{exact: make(map[string]string)}
}

// AddExact registers a route key served by a fixed file.
func (t *Table) AddExact(key, file string) {
	t.exact[key] = file
}

// AddDynamic registers a dynamic route with its match expression.
func (t *Table) AddDynamic(key, file, expr string) error {
	re, err := regexp.Compile(expr)
	if err != nil {
		return errs.Configf("route %s: invalid expression %q: %v", key, expr, err)
	}
	var params []string
	for _, seg := range strings.Split(key, "/") {
		if strings.HasPrefix(seg, ":") {
			params = append(params, seg[1:])
		}
	}
	if re.NumSubexp() != len(params) {
		return errs.Configf("route %s: expression has %d groups for %d parameters", key, re.NumSubexp(), len(params))
	}
	t.dynamic = append(t.dynamic, dynamicEntry{key: key, file: file, re: re, params: params})
	t.sorted = false
	return nil
}

// Len returns the number of registered routes.
func (t *Table) Len() int { return len(t.exact) + len(t.dynamic) }

// Resolve finds the route serving requestPath. Query strings are ignored.
func (t *Table) Resolve(requestPath string) (Resolution, bool) {
	if i := strings.IndexAny(requestPath, "?#"); i >= 0 {
		requestPath = requestPath[:i]
	}
	if requestPath == "" {
		requestPath = "/"
	}

	if file, ok := t.exact[requestPath]; ok {
		return Resolution{Key: requestPath, File: file}, true
	}
	if trimmed := strings.TrimSuffix(requestPath, "/"); trimmed != requestPath && trimmed != "" {
		if file, ok := t.exact[trimmed]; ok {
			return Resolution{Key: trimmed, File: file}, true
		}
	}

	t.sort()
	for _, e := range t.dynamic {
		m := e.re.FindStringSubmatch(requestPath)
		if m == nil {
			continue
		}
		params := make(map[string]string, len(e.params))
		for i, name := range e.params {
			params[name] = m[i+1]
		}
		return Resolution{Key: e.key, File: e.file, Params: params}, true
	}
	return Resolution{}, false
}

func (t *Table) sort() {
	if t.sorted {
		return
	}
	sort.SliceStable(t.dynamic, func(i, j int) bool {
		a, b := t.dynamic[i], t.dynamic[j]
		if len(a.params) != len(b.params) {
			return len(a.params) < len(b.params)
		}
		return a.key < b.key
	})
	t.sorted = true
}
