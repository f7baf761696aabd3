package static

import (
	"errors"
	"io/fs"
	"mime"
	"net/http"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"rendergate/pkg/httpx"
	"rendergate/pkg/logger"
	"rendergate/pkg/manifest"
	"rendergate/pkg/render"
	"rendergate/pkg/telemetry"
)

// assetCacheControl is the long-lived directive for hashed build assets.
const assetCacheControl = "public, max-age=31536000, immutable"

// Options configures a Dispatcher. All fields are immutable after startup.
type Options struct {
	ClientRoot    string
	AssetsDir     string
	Base          string
	TrailingSlash SlashMode
	// MiddlewareFirst runs user middleware ahead of static serving for
	// page-like paths.
	MiddlewareFirst bool
}

// Dispatcher decides, per request, whether to serve a precomputed static
// artifact, let middleware short-circuit, or defer to the SSR fallback.
type Dispatcher struct {
	opts         Options
	man          *manifest.Manifest
	adapter      *httpx.Adapter
	middleware   render.Handler
	assetsPrefix string
}

// New builds a Dispatcher. middleware may be nil.
func New(opts Options, man *manifest.Manifest, adapter *httpx.Adapter, middleware render.Handler) *Dispatcher {
	prefix := "/" + strings.Trim(opts.AssetsDir, "/")
	if prefix == "/" {
		prefix = ""
	}
	return &Dispatcher{
		opts:         opts,
		man:          man,
		adapter:      adapter,
		middleware:   middleware,
		assetsPrefix: prefix,
	}
}

// Serve is the dispatch entrypoint, wired directly into the listener loop
// ahead of the SSR fallback.
func (d *Dispatcher) Serve(t *httpx.TransportRequest, sink httpx.ResponseSink, ssr func()) {
	start := time.Now()
	pathname, query := splitRequestURI(t.RequestURI)
	if pathname == "" {
		ssr()
		telemetry.ObserveDispatch("page", telemetry.OutcomeSSR, start)
		return
	}

	kind := "page"
	asset := IsAsset(pathname, d.assetsPrefix)
	if asset {
		kind = "asset"
	}
	release := func() { d.adapter.Release(t.Key) }

	// Middleware runs to completion, including any early-return response,
	// before any static byte goes out.
	var mwCookies []string
	if d.opts.MiddlewareFirst && !asset && d.middleware != nil {
		req := d.adapter.Adapt(t)
		mctx := render.NewContext(req, d.man.FindRoute(pathname), nil, d.man)
		mctx.Prerendered = true
		res, err := render.Run(mctx, d.middleware)
		switch {
		case err != nil:
			// Fail open: availability over strictness. The failure stays
			// observable through the log and the counter.
			logger.Error("middleware_failed", "path", pathname, "error", err)
			telemetry.MiddlewareFailures.Inc()
		case res.Outcome == render.OutcomeShortCircuit:
			env := res.Response
			if env.Header == nil {
				env.Header = make(http.Header)
			}
			appendCookies(env.Header, res.Cookies)
			if werr := httpx.WriteEnvelope(env, sink, release); werr != nil {
				telemetry.StreamFailures.Inc()
			}
			telemetry.ObserveDispatch(kind, telemetry.OutcomeMiddleware, start)
			return
		default:
			mwCookies = res.Cookies
		}
	}

	dec := Resolve(pathname, d.opts.TrailingSlash, d.opts.ClientRoot, d.opts.Base, nil)
	if dec.RedirectTo != "" {
		loc := dec.RedirectTo
		if query != "" {
			loc += "?" + query
		}
		hdr := make(http.Header)
		hdr.Set("Location", loc)
		appendCookies(hdr, mwCookies)
		_ = httpx.WriteEnvelope(&httpx.Envelope{Status: http.StatusMovedPermanently, Header: hdr}, sink, release)
		telemetry.ObserveDispatch(kind, telemetry.OutcomeRedirect, start)
		return
	}

	d.streamFile(sink, pathname, dec.FilePath, mwCookies, release, ssr, kind, start)
}

// streamFile serves the resolved path from the client root, deferring to
// SSR when the file does not exist or is a denied dotfile.
func (d *Dispatcher) streamFile(sink httpx.ResponseSink, urlPath, fsPath string, cookies []string, release func(), ssr func(), kind string, start time.Time) {
	if deniedDotfile(urlPath) {
		ssr()
		telemetry.ObserveDispatch(kind, telemetry.OutcomeSSR, start)
		return
	}
	f, err := os.Open(fsPath)
	if err != nil {
		// Not found before any byte was flushed is not an error: the SSR
		// fallback owns the path.
		if !errors.Is(err, fs.ErrNotExist) {
			logger.Debug("static_open_failed", "path", fsPath, "error", err)
		}
		ssr()
		telemetry.ObserveDispatch(kind, telemetry.OutcomeSSR, start)
		return
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil || fi.IsDir() {
		ssr()
		telemetry.ObserveDispatch(kind, telemetry.OutcomeSSR, start)
		return
	}

	// Merge order is fixed: file headers first, precomputed route headers
	// override them, middleware cookies append last.
	hdr := make(http.Header)
	if ct := mime.TypeByExtension(path.Ext(fsPath)); ct != "" {
		hdr.Set("Content-Type", ct)
	}
	hdr.Set("Content-Length", strconv.FormatInt(fi.Size(), 10))
	if d.assetsPrefix != "" && strings.HasPrefix(urlPath, d.assetsPrefix+"/") {
		hdr.Set("Cache-Control", assetCacheControl)
	}
	if route := d.man.FindRoute(urlPath); route != nil && route.Prerender {
		for _, h := range d.man.HeadersFor(urlPath) {
			hdr.Set(h.Key, h.Value)
		}
	}
	appendCookies(hdr, cookies)

	env := &httpx.Envelope{Status: http.StatusOK, Header: hdr, Body: f}
	if werr := httpx.WriteEnvelope(env, sink, release); werr != nil {
		// Headers already went out; the connection was destroyed.
		logger.Error("static_stream_failed", "path", fsPath, "error", werr)
		telemetry.StreamFailures.Inc()
		telemetry.ObserveDispatch(kind, telemetry.OutcomeError, start)
		return
	}
	telemetry.ObserveDispatch(kind, telemetry.OutcomeStatic, start)
}

// deniedDotfile blocks dotfile segments outside the well-known subtree.
func deniedDotfile(urlPath string) bool {
	if strings.HasPrefix(urlPath, "/.well-known/") {
		return false
	}
	for _, seg := range strings.Split(urlPath, "/") {
		if len(seg) > 1 && seg[0] == '.' {
			return true
		}
	}
	return false
}

// splitRequestURI separates a raw request URI into path and query.
func splitRequestURI(uri string) (string, string) {
	if i := strings.IndexByte(uri, '?'); i >= 0 {
		return uri[:i], uri[i+1:]
	}
	return uri, ""
}

func appendCookies(h http.Header, cookies []string) {
	for _, c := range cookies {
		h.Add("Set-Cookie", c)
	}
}
