package http

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/organicecom/marketconnect/internal/connector/domain"
	"github.com/organicecom/marketconnect/internal/connector/service"
	"github.com/organicecom/marketconnect/pkg/httpx"
	"github.com/organicecom/marketconnect/pkg/slogx"
)

// CallbackHandler serves GET /v1/marketplace/callback, the redirect target
// registered with the vendor. On success it redirects to the admin UI (or
// answers JSON when no frontend is configured); on failure it carries a
// stable error code, never the vendor's raw response.
type CallbackHandler struct {
	Auth        *service.AuthService
	FrontendURL string
}

func (h *CallbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	code := r.URL.Query().Get("code")
	stateParam := r.URL.Query().Get("state")
	if code == "" || stateParam == "" {
		h.fail(w, r, http.StatusBadRequest, "missing_params",
			"code and state query parameters are required")
		return
	}

	userID, err := h.Auth.HandleCallback(ctx, code, stateParam)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidState):
			h.fail(w, r, http.StatusUnauthorized, "invalid_state",
				"authorization state expired or invalid, restart the flow")
		default:
			log.Error("code exchange failed", "err", err)
			h.fail(w, r, http.StatusBadGateway, "exchange_failed",
				"could not exchange the authorization code")
		}
		return
	}

	if h.FrontendURL != "" {
		http.Redirect(w, r, h.FrontendURL+"/marketplace/connect?success=true",
			http.StatusFound)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "connected",
		"user_id": userID,
	})
}

func (h *CallbackHandler) fail(w http.ResponseWriter, r *http.Request, status int, code, description string) {
	if h.FrontendURL != "" {
		q := url.Values{}
		q.Set("error", code)
		http.Redirect(w, r, h.FrontendURL+"/marketplace/connect?"+q.Encode(),
			http.StatusFound)
		return
	}
	httpx.WriteError(w, status, code, description)
}
