package http

import (
	"net/http"

	"github.com/organicecom/marketconnect/internal/connector/service"
	"github.com/organicecom/marketconnect/pkg/httpx"
	"github.com/organicecom/marketconnect/pkg/slogx"
)

// DisconnectHandler serves DELETE /v1/marketplace/connection. Revocation is
// idempotent: disconnecting an unconnected account still returns 204.
type DisconnectHandler struct {
	Auth *service.AuthService
}

func (h *DisconnectHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.Auth.Revoke(ctx, r.URL.Query().Get("user_id")); err != nil {
		slogx.FromContext(ctx).Error("revoke failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError,
			"revoke_failed", "could not disconnect the account")
		return
	}

	httpx.NoCache(w)
	w.WriteHeader(http.StatusNoContent)
}
