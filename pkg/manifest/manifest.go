package manifest

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"
)

// Manifest is the persisted build artifact read once at process startup. It
// carries the route table, the i18n locale configuration, the site URL, the
// forwarded-host allow-list and the precomputed header map. The user
// middleware is a capability, not data, so the embedding runtime wires it
// into the dispatcher directly.
type Manifest struct {
	Site           string        `json:"site"`
	Base           string        `json:"base"`
	AssetsDir      string        `json:"assetsDir"`
	TrailingSlash  string        `json:"trailingSlash"`
	AllowedDomains []string      `json:"allowedDomains"`
	I18N           *I18N         `json:"i18n"`
	Routes         []*RouteData  `json:"routes"`
	HeaderMap      []HeaderEntry `json:"headerMap"`

	byRoute map[string]*RouteData
}

// RouteData is one route-table entry. Pattern matching happens when the
// table is built; at serve time routes are looked up by their literal path.
type RouteData struct {
	Route     string    `json:"route"`
	Type      string    `json:"type"`
	Prerender bool      `json:"prerender"`
	Params    ParamsMap `json:"params"`
}

// ParamsMap decodes route parameters tolerantly: only a JSON object maps to
// parameters, any other shape (array, scalar, null) yields nil.
type ParamsMap map[string]string

func (p *ParamsMap) UnmarshalJSON(b []byte) error {
	var m map[string]string
	if err := json.Unmarshal(b, &m); err != nil {
		*p = nil
		return nil
	}
	*p = m
	return nil
}

// HeaderEntry is one precomputed-header-map entry. Entries apply when their
// pathname contains the normalized request path.
type HeaderEntry struct {
	Pathname string   `json:"pathname"`
	Headers  []Header `json:"headers"`
}

// Header is a single key/value pair of a header-map entry.
type Header struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Load reads and decodes the manifest file at path.
func Load(path string) (*Manifest, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return Decode(b)
}

// Decode parses manifest bytes and builds the route lookup.
func Decode(b []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	m.byRoute = make(map[string]*RouteData, len(m.Routes))
	for _, r := range m.Routes {
		m.byRoute[normalizePath(r.Route)] = r
	}
	return &m, nil
}

// SiteURL returns the configured absolute site URL, or nil when absent or
// unparsable.
func (m *Manifest) SiteURL() *url.URL {
	if m == nil || m.Site == "" {
		return nil
	}
	u, err := url.Parse(m.Site)
	if err != nil || u.Host == "" {
		return nil
	}
	return u
}

// FindRoute looks up the route-table entry for a request path.
func (m *Manifest) FindRoute(path string) *RouteData {
	if m == nil {
		return nil
	}
	return m.byRoute[normalizePath(path)]
}

// HeadersFor returns the headers of the first header-map entry whose
// pathname contains the normalized request path, or nil.
func (m *Manifest) HeadersFor(path string) []Header {
	if m == nil {
		return nil
	}
	p := normalizePath(path)
	for _, e := range m.HeaderMap {
		if strings.Contains(e.Pathname, p) {
			return e.Headers
		}
	}
	return nil
}

// normalizePath strips a trailing slash (except for the root) so lookups
// are insensitive to it.
func normalizePath(p string) string {
	if p == "" {
		return "/"
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		return strings.TrimSuffix(p, "/")
	}
	return p
}
