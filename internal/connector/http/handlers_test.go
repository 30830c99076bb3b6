package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/organicecom/marketconnect/internal/connector/domain"
	"github.com/organicecom/marketconnect/internal/connector/service"
	"github.com/organicecom/marketconnect/internal/connector/state"
	"github.com/organicecom/marketconnect/internal/connector/store"
	"github.com/organicecom/marketconnect/internal/connector/store/drivers/sqlite"
	"github.com/stretchr/testify/require"
)

type fakeOAuth struct {
	grant domain.TokenGrant
	err   error
}

func (f *fakeOAuth) ExchangeCode(context.Context, string) (domain.TokenGrant, error) {
	return f.grant, f.err
}

func (f *fakeOAuth) RefreshToken(context.Context, string) (domain.TokenGrant, error) {
	return f.grant, f.err
}

type fakeAPI struct {
	data json.RawMessage
	err  error
}

func (f *fakeAPI) Execute(context.Context, string, string, map[string]string) (json.RawMessage, error) {
	return f.data, f.err
}

type fixture struct {
	auth    *service.AuthService
	store   store.Store
	catalog *service.CatalogService
}

func newFixture(t *testing.T, oauth service.OAuthClient, api service.APIClient) fixture {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	auth := &service.AuthService{
		Store:       st,
		OAuth:       oauth,
		States:      state.New(0),
		AppKey:      "525634",
		AuthBaseURL: "https://api-sg.example.com",
		CallbackURL: "https://admin.example.com/v1/marketplace/callback",
	}

	return fixture{
		auth:    auth,
		store:   st,
		catalog: &service.CatalogService{Auth: auth, API: api},
	}
}

func connect(t *testing.T, fx fixture, userID string) {
	t.Helper()
	require.NoError(t, fx.store.Tokens().UpsertToken(context.Background(), domain.Token{
		UserID:       userID,
		AccessToken:  "at",
		RefreshToken: "rt",
		ExpiresAt:    time.Now().Add(time.Hour),
	}))
}

func TestConnectHandlerReturnsAuthURL(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, &fakeOAuth{}, &fakeAPI{})
	h := &ConnectHandler{Auth: fx.auth}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/marketplace/connect?user_id=u1", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Contains(t, body["auth_url"], "/oauth/authorize?")
	require.Contains(t, body["auth_url"], "client_id=525634")
	require.Contains(t, body["auth_url"], "state=")
}

func TestCallbackHandlerJSONSuccess(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, &fakeOAuth{grant: domain.TokenGrant{
		AccessToken: "at", RefreshToken: "rt", ExpiresIn: time.Hour,
	}}, &fakeAPI{})
	h := &CallbackHandler{Auth: fx.auth}

	stateParam, err := fx.auth.States.Encode("u1")
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
		"/v1/marketplace/callback?code=abc&state="+stateParam, nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "connected", body["status"])
	require.Equal(t, "u1", body["user_id"])

	_, err = fx.store.Tokens().GetTokenByUserID(context.Background(), "u1")
	require.NoError(t, err)
}

func TestCallbackHandlerRedirectMode(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, &fakeOAuth{grant: domain.TokenGrant{
		AccessToken: "at", RefreshToken: "rt", ExpiresIn: time.Hour,
	}}, &fakeAPI{})
	h := &CallbackHandler{Auth: fx.auth, FrontendURL: "https://admin.example.com"}

	stateParam, err := fx.auth.States.Encode("u1")
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
		"/v1/marketplace/callback?code=abc&state="+stateParam, nil))

	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, "https://admin.example.com/marketplace/connect?success=true",
		rec.Header().Get("Location"))
}

func TestCallbackHandlerMissingParams(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, &fakeOAuth{}, &fakeAPI{})
	h := &CallbackHandler{Auth: fx.auth}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/marketplace/callback?code=abc", nil))

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "missing_params", body["error"])
}

func TestCallbackHandlerInvalidState(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, &fakeOAuth{}, &fakeAPI{})

	t.Run("json mode", func(t *testing.T) {
		h := &CallbackHandler{Auth: fx.auth}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
			"/v1/marketplace/callback?code=abc&state=garbage", nil))

		require.Equal(t, http.StatusUnauthorized, rec.Code)

		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Equal(t, "invalid_state", body["error"])
	})

	t.Run("redirect mode carries error code", func(t *testing.T) {
		h := &CallbackHandler{Auth: fx.auth, FrontendURL: "https://admin.example.com"}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
			"/v1/marketplace/callback?code=abc&state=garbage", nil))

		require.Equal(t, http.StatusFound, rec.Code)
		require.Equal(t, "https://admin.example.com/marketplace/connect?error=invalid_state",
			rec.Header().Get("Location"))
	})
}

func TestCallbackHandlerExchangeFailure(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, &fakeOAuth{
		err: &domain.UpstreamError{Code: "1102", Message: "code expired"},
	}, &fakeAPI{})
	h := &CallbackHandler{Auth: fx.auth}

	stateParam, err := fx.auth.States.Encode("u1")
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
		"/v1/marketplace/callback?code=stale&state="+stateParam, nil))

	require.Equal(t, http.StatusBadGateway, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "exchange_failed", body["error"])
}

func TestStatusHandler(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, &fakeOAuth{}, &fakeAPI{})
	h := &StatusHandler{Auth: fx.auth}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/marketplace/status?user_id=u1", nil))
	require.JSONEq(t, `{"connected":false}`, rec.Body.String())

	connect(t, fx, "u1")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/marketplace/status?user_id=u1", nil))
	require.JSONEq(t, `{"connected":true}`, rec.Body.String())
}

func TestDisconnectHandler(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, &fakeOAuth{}, &fakeAPI{})
	connect(t, fx, "u1")

	h := &DisconnectHandler{Auth: fx.auth}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/v1/marketplace/connection?user_id=u1", nil))

	require.Equal(t, http.StatusNoContent, rec.Code)
	_, err := fx.store.Tokens().GetTokenByUserID(context.Background(), "u1")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestProductSearchRequiresConnection(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, &fakeOAuth{}, &fakeAPI{})
	h := &ProductSearchHandler{Catalog: fx.catalog}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
		"/v1/marketplace/products/search?user_id=u1&q=lamp", nil))

	require.Equal(t, http.StatusUnauthorized, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "not_connected", body["error"])
}

func TestProductSearchPassThrough(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, &fakeOAuth{}, &fakeAPI{data: json.RawMessage(`{"totalCount":7}`)})
	connect(t, fx, "u1")

	h := &ProductSearchHandler{Catalog: fx.catalog}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
		"/v1/marketplace/products/search?user_id=u1&q=lamp", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"totalCount":7}`, rec.Body.String())
}

func TestProductSearchMissingQuery(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, &fakeOAuth{}, &fakeAPI{})
	h := &ProductSearchHandler{Catalog: fx.catalog}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/marketplace/products/search", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProductDetailThroughRouter(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, &fakeOAuth{}, &fakeAPI{data: json.RawMessage(`{"productId":9}`)})
	connect(t, fx, "u1")

	router := NewRouter(fx.store, fx.auth, fx.catalog, "", testLogger())
	router.ApplyRoutes()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
		"/v1/marketplace/products/9?user_id=u1", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"productId":9}`, rec.Body.String())
}

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, &fakeOAuth{}, &fakeAPI{})
	router := NewRouter(fx.store, fx.auth, fx.catalog, "", testLogger())
	router.ApplyRoutes()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/livez", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}
