package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/organicecom/marketconnect/internal/connector/domain"
	"github.com/organicecom/marketconnect/internal/connector/service"
	"github.com/organicecom/marketconnect/pkg/httpx"
	"github.com/organicecom/marketconnect/pkg/slogx"
)

// ProductSearchHandler serves GET /v1/marketplace/products/search: a signed
// pass-through to the vendor catalog search.
type ProductSearchHandler struct {
	Catalog *service.CatalogService
}

func (h *ProductSearchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	query := q.Get("q")
	if query == "" {
		httpx.WriteError(w, http.StatusBadRequest, "missing_query", "q parameter is required")
		return
	}

	page, _ := strconv.Atoi(q.Get("page"))
	pageSize, _ := strconv.Atoi(q.Get("page_size"))

	data, err := h.Catalog.SearchProducts(r.Context(), q.Get("user_id"), query, page, pageSize)
	if err != nil {
		writeCatalogError(w, r, err)
		return
	}

	httpx.NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}

// ProductDetailHandler serves GET /v1/marketplace/products/{id}.
type ProductDetailHandler struct {
	Catalog *service.CatalogService
}

func (h *ProductDetailHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	productID := r.PathValue("id")
	if productID == "" {
		httpx.WriteError(w, http.StatusBadRequest, "missing_product_id", "product id is required")
		return
	}

	data, err := h.Catalog.GetProduct(r.Context(), r.URL.Query().Get("user_id"), productID)
	if err != nil {
		writeCatalogError(w, r, err)
		return
	}

	httpx.NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}

// writeCatalogError maps the error taxonomy onto stable HTTP error codes.
// Vendor failures surface as structured payloads, never as raw envelopes.
func writeCatalogError(w http.ResponseWriter, r *http.Request, err error) {
	log := slogx.FromContext(r.Context())

	var upstream *domain.UpstreamError
	switch {
	case errors.Is(err, domain.ErrNotConnected), errors.Is(err, domain.ErrRefreshFailed):
		httpx.WriteError(w, http.StatusUnauthorized, "not_connected",
			"connect your marketplace account first")
	case errors.As(err, &upstream):
		log.Warn("vendor rejected catalog call", "code", upstream.Code, "message", upstream.Message)
		httpx.WriteError(w, http.StatusBadGateway, "vendor_error", upstream.Message)
	default:
		log.Error("catalog call failed", "err", err)
		httpx.WriteError(w, http.StatusBadGateway, "marketplace_unavailable",
			"marketplace API is unavailable, try again later")
	}
}
