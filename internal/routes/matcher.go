// Package routes turns page file paths into route keys and the anchored
// match expressions the generated request router uses at runtime.
package routes

import (
	"path"
	"regexp"
	"strings"

	"github.com/dosanma1/nextdeploy/internal/errs"
)

const (
	// segmentGroup captures one dynamic segment: lazy, no embedded slash.
	segmentGroup = `([^\/]+?)`
	// trailer accepts an optional trailing slash before end of input.
	trailer = `(?:\/)?$`
)

// PageExtensions are stripped when deriving a route key from a file path.
var PageExtensions = []string{".js", ".html"}

var paramName = regexp.MustCompile(`^\w+$`)

// Route is the result of matching a page path.
type Route struct {
	// Key is the route key, e.g. /blog/:id.
	Key string
	// Regex is the fully anchored match expression.
	Regex string
	// Params lists dynamic segment names in path order.
	Params []string
}

// Dynamic reports whether the route has at least one parameter.
func (r Route) Dynamic() bool { return len(r.Params) > 0 }

// Compile compiles the match expression.
func (r Route) Compile() (*regexp.Regexp, error) {
	re, err := regexp.Compile(r.Regex)
	if err != nil {
		return nil, errs.Configf("route %s: invalid expression %q: %v", r.Key, r.Regex, err)
	}
	return re, nil
}

// Match derives the route key and match expression for a page path relative
// to the pages directory, e.g. customers/[customer]/[post].js.
//
// Input that is already a route key (leading slash) is not re-normalized:
// extensions and index segments are kept as written.
func Match(pagePath string) (Route, error) {
	segments, err := split(pagePath)
	if err != nil {
		return Route{}, err
	}

	var (
		keyParts   = make([]string, 0, len(segments))
		exprParts  = make([]string, 0, len(segments))
		params     []string
		seenParams = map[string]bool{}
	)
	for _, seg := range segments {
		name, dynamic, err := parseSegment(seg)
		if err != nil {
			return Route{}, errs.Configf("page %s: %v", pagePath, err)
		}
		if !dynamic {
			keyParts = append(keyParts, seg)
			exprParts = append(exprParts, escape(seg))
			continue
		}
		if seenParams[name] {
			return Route{}, errs.Configf("page %s: parameter %q used more than once", pagePath, name)
		}
		seenParams[name] = true
		params = append(params, name)
		keyParts = append(keyParts, ":"+name)
		exprParts = append(exprParts, segmentGroup)
	}

	key := "/" + strings.Join(keyParts, "/")
	expr := "^"
	if len(exprParts) > 0 {
		expr += `\/` + strings.Join(exprParts, `\/`)
	}
	expr += trailer

	return Route{Key: key, Regex: expr, Params: params}, nil
}

// Key derives only the route key for a page path.
func Key(pagePath string) (string, error) {
	r, err := Match(pagePath)
	if err != nil {
		return "", err
	}
	return r.Key, nil
}

// LiteralKey derives a route key without interpreting brackets. Static HTML
// pages use it since only server-rendered pages support dynamic routing.
func LiteralKey(pagePath string) string {
	if strings.HasPrefix(pagePath, "/") {
		return path.Clean(pagePath)
	}
	segments := fileSegments(pagePath)
	return "/" + strings.Join(segments, "/")
}

// split returns the route segments of pagePath. File paths lose their page
// extension and a trailing index segment; route keys are taken as-is.
func split(pagePath string) ([]string, error) {
	if pagePath == "" {
		return nil, errs.Configf("empty page path")
	}
	if strings.HasPrefix(pagePath, "/") {
		trimmed := strings.Trim(pagePath, "/")
		if trimmed == "" {
			return nil, nil
		}
		segments := strings.Split(trimmed, "/")
		for _, seg := range segments {
			if seg == "" {
				return nil, errs.Configf("route %s: empty segment", pagePath)
			}
		}
		return segments, nil
	}
	segments := fileSegments(pagePath)
	for _, seg := range segments {
		if seg == "" {
			return nil, errs.Configf("page %s: empty segment", pagePath)
		}
	}
	return segments, nil
}

func fileSegments(pagePath string) []string {
	trimmed := stripExt(strings.Trim(pagePath, "/"))
	segments := strings.Split(trimmed, "/")
	if segments[len(segments)-1] == "index" {
		segments = segments[:len(segments)-1]
	}
	return segments
}

func stripExt(p string) string {
	for _, ext := range PageExtensions {
		if strings.HasSuffix(p, ext) {
			return strings.TrimSuffix(p, ext)
		}
	}
	return p
}

// parseSegment recognizes [name]. Any other use of brackets is malformed.
func parseSegment(seg string) (name string, dynamic bool, err error) {
	open := strings.Count(seg, "[")
	closing := strings.Count(seg, "]")
	if open == 0 && closing == 0 {
		return "", false, nil
	}
	if open != 1 || closing != 1 || !strings.HasPrefix(seg, "[") || !strings.HasSuffix(seg, "]") {
		return "", false, errs.Configf("malformed dynamic segment %q", seg)
	}
	name = seg[1 : len(seg)-1]
	if !paramName.MatchString(name) {
		return "", false, errs.Configf("invalid parameter name %q in segment %q", name, seg)
	}
	return name, true, nil
}

// escape backslash-escapes characters that are special in the router's
// pattern dialect.
func escape(seg string) string {
	var b strings.Builder
	b.Grow(len(seg) * 2)
	for _, r := range seg {
		if strings.ContainsRune(`.+*?=^!:${}()[]|/\`, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
