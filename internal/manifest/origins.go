package manifest

import (
	"maps"
	"net/url"
	"strings"
)

// Path patterns served from the bucket. Framework assets and the user's
// static directory get the long cache lifetime; public files, which the
// router redirects to, keep the default one.
const (
	PatternNextStatic = "_next/*"
	PatternStatic     = "static/*"
	PatternPublic     = "public/*"
)

// TTLs are cache lifetimes in seconds.
type TTLs struct {
	// Static applies to framework assets and the user's static directory.
	Static int64
	// Default applies to responses from the backend.
	Default int64
}

// DefaultTTLs caches assets for a day and backend responses not at all.
var DefaultTTLs = TTLs{Static: 86400, Default: 0}

// Origins names the two CDN upstreams.
type Origins struct {
	SSRApi       Origin `json:"ssrApi"`
	StaticOrigin Origin `json:"staticOrigin"`
}

// Origin is one CDN upstream.
type Origin struct {
	DomainName   string                 `json:"domainName"`
	URL          string                 `json:"url"`
	Private      bool                   `json:"private"`
	DefaultTTL   int64                  `json:"defaultTtl"`
	PathPatterns map[string]PathPattern `json:"pathPatterns,omitempty"`
}

// PathPattern overrides caching for requests matching a path pattern.
type PathPattern struct {
	TTL int64 `json:"ttl"`
}

// NewOrigins describes the backend origin for SSR and API traffic and the
// bucket origin for static assets. backendURL may be empty before the
// backend has been registered.
func NewOrigins(backendURL, bucketURL string, ttl TTLs) Origins {
	return Origins{
		SSRApi: Origin{
			DomainName: hostOf(backendURL),
			URL:        backendURL,
			DefaultTTL: ttl.Default,
		},
		StaticOrigin: Origin{
			DomainName: hostOf(bucketURL),
			URL:        bucketURL,
			Private:    true,
			DefaultTTL: ttl.Default,
			PathPatterns: map[string]PathPattern{
				PatternNextStatic: {TTL: ttl.Static},
				PatternStatic:     {TTL: ttl.Static},
				PatternPublic:     {TTL: ttl.Default},
			},
		},
	}
}

func (o Origins) clone() Origins {
	o.SSRApi.PathPatterns = maps.Clone(o.SSRApi.PathPatterns)
	o.StaticOrigin.PathPatterns = maps.Clone(o.StaticOrigin.PathPatterns)
	return o
}

func hostOf(raw string) string {
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Host
}
