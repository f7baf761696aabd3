package render

import (
	"net/http"
	"net/url"

	"rendergate/pkg/httpx"
	"rendergate/pkg/manifest"
)

// Locals is the per-request bag middleware may read and write.
type Locals map[string]any

// Context is the execution context handed to user middleware. It lives for
// one dispatch attempt and is discarded once a response is produced.
type Context struct {
	Request *httpx.Request
	// Params is never nil.
	Params  map[string]string
	Locals  Locals
	Cookies *CookieJar
	// Prerendered marks routes whose body was computed at build time.
	Prerendered bool
	// Site is the absolute site URL when the manifest configures one.
	Site *url.URL
	// RoutePattern is the matched route's pattern when route data is known.
	RoutePattern string
	// PreferredLocales is the manifest-derived locale code list.
	PreferredLocales []string
}

// NewContext builds a middleware execution context from a normalized
// request, optional route data, optional locals and the manifest.
func NewContext(req *httpx.Request, route *manifest.RouteData, locals Locals, man *manifest.Manifest) *Context {
	ctx := &Context{
		Request: req,
		Params:  map[string]string{},
		Locals:  locals,
		Cookies: NewCookieJar(),
	}
	if ctx.Locals == nil {
		ctx.Locals = Locals{}
	}
	if route != nil {
		if route.Params != nil {
			ctx.Params = route.Params
		}
		ctx.Prerendered = route.Prerender
		ctx.RoutePattern = route.Route
	}
	if man != nil {
		ctx.Site = man.SiteURL()
		if man.I18N != nil {
			ctx.PreferredLocales = man.I18N.Locales.Codes()
		}
	}
	return ctx
}

// CookieJar collects cookies set during middleware execution so they can be
// merged onto whichever response ends the dispatch.
type CookieJar struct {
	order []string
	set   map[string]*http.Cookie
}

// NewCookieJar returns an empty jar.
func NewCookieJar() *CookieJar {
	return &CookieJar{set: make(map[string]*http.Cookie)}
}

// Set records a cookie, replacing a previous cookie of the same name.
func (j *CookieJar) Set(c *http.Cookie) {
	if c == nil || c.Name == "" {
		return
	}
	if _, ok := j.set[c.Name]; !ok {
		j.order = append(j.order, c.Name)
	}
	j.set[c.Name] = c
}

// Get returns the recorded cookie with the given name, or nil.
func (j *CookieJar) Get(name string) *http.Cookie { return j.set[name] }

// Delete records an expired cookie so the client drops it.
func (j *CookieJar) Delete(name string) {
	j.Set(&http.Cookie{Name: name, MaxAge: -1})
}

// Headers returns the serialized Set-Cookie values in insertion order.
func (j *CookieJar) Headers() []string {
	out := make([]string, 0, len(j.order))
	for _, name := range j.order {
		if c := j.set[name]; c != nil {
			out = append(out, c.String())
		}
	}
	return out
}
