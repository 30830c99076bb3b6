// Package http exposes the connector's HTTP API: the OAuth connect/callback
// round-trip, connection status and revocation, and a signed pass-through to
// the vendor catalog.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/organicecom/marketconnect/internal/connector/service"
	"github.com/organicecom/marketconnect/internal/connector/store"
	"github.com/organicecom/marketconnect/pkg/httpx"
	"github.com/organicecom/marketconnect/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	logger    *slog.Logger
	startTime time.Time

	store          store.Store
	AuthService    *service.AuthService
	CatalogService *service.CatalogService

	// FrontendURL, when set, makes the callback redirect to the admin UI
	// instead of answering with JSON.
	FrontendURL string
}

func NewRouter(st store.Store, auth *service.AuthService, catalog *service.CatalogService,
	frontendURL string, logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:            http.NewServeMux(),
		logger:         logger,
		startTime:      time.Now(),
		store:          st,
		AuthService:    auth,
		CatalogService: catalog,
		FrontendURL:    frontendURL,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	strict := httpx.RateLimitByIP(httpx.StrictLimit)
	lenient := httpx.RateLimitByIP(httpx.LenientLimit)

	r.Mux.Handle("GET /v1/marketplace/connect",
		strict(&ConnectHandler{Auth: r.AuthService}))
	r.Mux.Handle("GET /v1/marketplace/callback",
		strict(&CallbackHandler{Auth: r.AuthService, FrontendURL: r.FrontendURL}))
	r.Mux.Handle("GET /v1/marketplace/status",
		lenient(&StatusHandler{Auth: r.AuthService}))
	r.Mux.Handle("DELETE /v1/marketplace/connection",
		lenient(&DisconnectHandler{Auth: r.AuthService}))

	r.Mux.Handle("GET /v1/marketplace/products/search",
		lenient(&ProductSearchHandler{Catalog: r.CatalogService}))
	r.Mux.Handle("GET /v1/marketplace/products/{id}",
		lenient(&ProductDetailHandler{Catalog: r.CatalogService}))

	r.Mux.HandleFunc("GET /livez", r.livez)
	r.Mux.HandleFunc("GET /readyz", r.readyz)
}

// ServeHTTP applies the global middleware chain around the mux.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) livez(w http.ResponseWriter, _ *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"uptime": time.Since(r.startTime).String(),
	})
}

func (r *Router) readyz(w http.ResponseWriter, req *http.Request) {
	if err := r.store.Ping(req.Context()); err != nil {
		httpx.WriteError(w, http.StatusServiceUnavailable, "store_unavailable", err.Error())
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
