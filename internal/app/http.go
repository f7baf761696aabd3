package app

import (
	"net/http"

	"rendergate/pkg/banner"
	"rendergate/pkg/httpx"
	"rendergate/pkg/logger"
	"rendergate/pkg/telemetry"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

// printBanner prints the startup banner and build info.
func (a *App) printBanner() {
	verStr := a.version
	if a.commit != "none" {
		verStr += " (" + a.commit + ")"
	}
	if a.buildDate != "unknown" {
		verStr += " @ " + a.buildDate
	}
	site := a.eff.Config.Site
	banner.Print(a.eff.Addr, site.ClientRoot, a.eff.Config.Server.Engine, site.TrailingSlash, a.eff.Source, verStr)
}

// handler builds the net/http surface: ops endpoints first, the dispatch
// entrypoint as the catch-all queried before the SSR fallback.
func (a *App) handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", healthzHandler).Methods(http.MethodGet)
	r.HandleFunc("/readyz", a.readyzHandler).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.PathPrefix("/").Handler(httpx.NetHTTPAdapter(a.dispatch))
	return r
}

// fastHandler is the fasthttp flavor of the same surface.
func (a *App) fastHandler() fasthttp.RequestHandler {
	metrics := fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
	dispatch := httpx.FastHTTPAdapter(a.dispatch)
	return func(ctx *fasthttp.RequestCtx) {
		switch string(ctx.Path()) {
		case "/healthz":
			ctx.Response.Header.Set("Content-Type", "application/json")
			ctx.SetStatusCode(fasthttp.StatusOK)
			_, _ = ctx.WriteString(`{"status":"ok"}`)
		case "/readyz":
			ctx.Response.Header.Set("Content-Type", "application/json")
			if a.man == nil {
				ctx.SetStatusCode(fasthttp.StatusServiceUnavailable)
				_, _ = ctx.WriteString(`{"status":"not ready"}`)
				return
			}
			ctx.SetStatusCode(fasthttp.StatusOK)
			_, _ = ctx.WriteString(`{"status":"ok","version":"` + a.version + `"}`)
		case "/metrics":
			metrics(ctx)
		default:
			dispatch(ctx)
		}
	}
}

// dispatch runs the static/middleware/SSR decision for one request.
func (a *App) dispatch(t *httpx.TransportRequest, sink httpx.ResponseSink) {
	remote := ""
	if t.Conn != nil {
		remote = t.Conn.RemoteAddr()
	}
	logger.LogDispatch(t.Method, t.RequestURI, remote, t.Header)
	a.dispatcher.Serve(t, sink, func() { a.renderSSR(t, sink) })
}

// renderSSR is the zero-argument fallback handed to the dispatcher. The
// rate limiter guards it: rendering is the expensive path.
func (a *App) renderSSR(t *httpx.TransportRequest, sink httpx.ResponseSink) {
	req := a.adapter.Adapt(t)
	release := func() { a.adapter.Release(t.Key) }

	if !a.limits.Allow(req.ClientIP) {
		telemetry.RateLimited.Inc()
		hdr := make(http.Header)
		hdr.Set("Retry-After", "1")
		_ = httpx.WriteEnvelope(&httpx.Envelope{Status: http.StatusTooManyRequests, Header: hdr}, sink, release)
		return
	}

	env, err := a.renderFn(req)
	if err != nil {
		logger.Error("render_failed", "path", req.URL.Path, "error", err)
		env = &httpx.Envelope{Status: http.StatusInternalServerError, Header: make(http.Header)}
	}
	if werr := httpx.WriteEnvelope(env, sink, release); werr != nil {
		telemetry.StreamFailures.Inc()
	}
}

// startHTTP starts the configured engine in a goroutine and returns a
// channel carrying any fatal server error.
func (a *App) startHTTP() <-chan error {
	errCh := make(chan error, 1)
	cfg := a.eff.Config
	if cfg.Server.Engine == "fasthttp" {
		a.fsrv = &fasthttp.Server{
			Handler:            a.fastHandler(),
			Name:               "rendergate",
			ReadTimeout:        cfg.Server.ReadTimeout.Duration(),
			MaxRequestBodySize: int(cfg.Server.MaxBodySize.Int64()),
			StreamRequestBody:  true,
		}
		go func() {
			logger.Info("listening", "addr", a.eff.Addr, "engine", "fasthttp")
			if cfg.Server.TLS.CertFile != "" && cfg.Server.TLS.KeyFile != "" {
				errCh <- a.fsrv.ListenAndServeTLS(a.eff.Addr, cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile)
				return
			}
			errCh <- a.fsrv.ListenAndServe(a.eff.Addr)
		}()
		return errCh
	}

	a.srv = &http.Server{
		Addr:        a.eff.Addr,
		Handler:     a.handler(),
		ReadTimeout: cfg.Server.ReadTimeout.Duration(),
	}
	go func() {
		logger.Info("listening", "addr", a.eff.Addr, "engine", "nethttp")
		if cfg.Server.TLS.CertFile != "" && cfg.Server.TLS.KeyFile != "" {
			errCh <- a.srv.ListenAndServeTLS(cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile)
			return
		}
		errCh <- a.srv.ListenAndServe()
	}()
	return errCh
}

// readyzHandler reports readiness once the manifest is loaded.
func (a *App) readyzHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if a.man == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"status":"not ready"}`))
		return
	}
	ver := a.version
	if ver == "" {
		ver = "dev"
	}
	_, _ = w.Write([]byte(`{"status":"ok","version":"` + ver + `"}`))
}

// healthzHandler handles the /healthz endpoint.
func healthzHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
