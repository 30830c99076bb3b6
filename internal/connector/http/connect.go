package http

import (
	"net/http"

	"github.com/organicecom/marketconnect/internal/connector/service"
	"github.com/organicecom/marketconnect/pkg/httpx"
	"github.com/organicecom/marketconnect/pkg/slogx"
)

// ConnectHandler serves GET /v1/marketplace/connect. It returns the vendor
// authorization URL the caller should redirect the user to. user_id is
// optional; single-tenant deployments omit it.
type ConnectHandler struct {
	Auth *service.AuthService
}

func (h *ConnectHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	authURL, err := h.Auth.AuthorizationURL(r.URL.Query().Get("user_id"))
	if err != nil {
		slogx.FromContext(ctx).Error("failed to build authorization url", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError,
			"authorize_url_failed", "could not build authorization URL")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]string{
		"auth_url": authURL,
		"message":  "Redirect the user to this URL to authorize",
	})
}
