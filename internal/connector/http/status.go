package http

import (
	"net/http"

	"github.com/organicecom/marketconnect/internal/connector/service"
	"github.com/organicecom/marketconnect/pkg/httpx"
)

// StatusHandler serves GET /v1/marketplace/status: whether a usable token is
// on file for the user. Refresh is attempted as a side effect, so "true"
// means a call made right now would carry a live token.
type StatusHandler struct {
	Auth *service.AuthService
}

func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	connected := h.Auth.IsConnected(r.Context(), r.URL.Query().Get("user_id"))
	httpx.WriteJSON(w, http.StatusOK, map[string]bool{"connected": connected})
}
