package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"rendergate/pkg/config"
	"rendergate/pkg/httpx"
	"rendergate/pkg/limiter"
	"rendergate/pkg/logger"
	"rendergate/pkg/manifest"
	"rendergate/pkg/render"
	"rendergate/pkg/static"

	"github.com/valyala/fasthttp"
)

// RenderFunc is the rendering-pipeline boundary: given a normalized
// request it produces the SSR response envelope.
type RenderFunc func(*httpx.Request) (*httpx.Envelope, error)

// App encapsulates the server components and lifecycle.
type App struct {
	eff       config.EffectiveConfigResult
	version   string
	commit    string
	buildDate string

	man        *manifest.Manifest
	adapter    *httpx.Adapter
	dispatcher *static.Dispatcher
	limits     *limiter.Pool

	middleware render.Handler
	renderFn   RenderFunc

	srv  *http.Server
	fsrv *fasthttp.Server
}

// New loads the manifest and assembles the dispatch pipeline. It does not
// start listening; call Run for that.
func New(eff config.EffectiveConfigResult, version, commit, buildDate string) (*App, error) {
	man, err := manifest.Load(eff.Config.Site.ManifestPath)
	if err != nil {
		return nil, fmt.Errorf("load manifest: %w", err)
	}

	a := &App{eff: eff, version: version, commit: commit, buildDate: buildDate, man: man}
	a.applyManifestOverrides()

	allowed := append([]string{}, eff.Config.Security.AllowedDomains...)
	allowed = append(allowed, man.AllowedDomains...)
	a.adapter = httpx.NewAdapter(httpx.Options{AllowedDomains: allowed})

	a.limits = limiter.NewPool(limiter.Config{
		RPS:   eff.Config.Security.RateLimit.RPS,
		Burst: eff.Config.Security.RateLimit.Burst,
	})
	a.renderFn = a.defaultRenderer
	a.rebuildDispatcher()
	return a, nil
}

// applyManifestOverrides lets the build artifact refine site layout values
// the operator left at their defaults.
func (a *App) applyManifestOverrides() {
	site := &a.eff.Config.Site
	if a.man.Base != "" {
		site.Base = a.man.Base
	}
	if a.man.AssetsDir != "" && site.AssetsDir == config.DefaultAssetsDir {
		site.AssetsDir = a.man.AssetsDir
	}
	if a.man.TrailingSlash != "" && site.TrailingSlash == config.DefaultTrailingSlash {
		site.TrailingSlash = a.man.TrailingSlash
	}
}

func (a *App) rebuildDispatcher() {
	site := a.eff.Config.Site
	a.dispatcher = static.New(static.Options{
		ClientRoot:      site.ClientRoot,
		AssetsDir:       site.AssetsDir,
		Base:            site.Base,
		TrailingSlash:   static.SlashMode(site.TrailingSlash),
		MiddlewareFirst: site.MiddlewareFirst,
	}, a.man, a.adapter, a.middleware)
}

// SetMiddleware registers the user middleware capability. Must be called
// before Run.
func (a *App) SetMiddleware(h render.Handler) {
	a.middleware = h
	a.rebuildDispatcher()
}

// SetRenderer registers the SSR pipeline. Must be called before Run.
func (a *App) SetRenderer(fn RenderFunc) {
	if fn != nil {
		a.renderFn = fn
	}
}

// Run starts the configured listener and blocks until ctx is canceled or a
// fatal server error occurs.
func (a *App) Run(ctx context.Context) error {
	a.printBanner()
	errCh := a.startHTTP()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	case <-ctx.Done():
		logger.Info("shutdown_requested")
		return a.shutdown()
	}
}

func (a *App) shutdown() error {
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if a.srv != nil {
		return a.srv.Shutdown(sctx)
	}
	if a.fsrv != nil {
		return a.fsrv.Shutdown()
	}
	return nil
}

// defaultRenderer stands in when no SSR pipeline is registered: it serves
// the built 404 page when one exists, a plain 404 otherwise.
func (a *App) defaultRenderer(req *httpx.Request) (*httpx.Envelope, error) {
	hdr := make(http.Header)
	p := filepath.Join(a.eff.Config.Site.ClientRoot, "404.html")
	if f, err := os.Open(p); err == nil {
		hdr.Set("Content-Type", "text/html; charset=utf-8")
		return &httpx.Envelope{Status: http.StatusNotFound, Header: hdr, Body: f}, nil
	}
	hdr.Set("Content-Type", "text/plain; charset=utf-8")
	return &httpx.Envelope{
		Status: http.StatusNotFound,
		Header: hdr,
		Body:   nil,
	}, nil
}
