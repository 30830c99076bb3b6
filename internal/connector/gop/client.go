// Package gop is the HTTP client for the marketplace's open-platform
// gateway: the OAuth token endpoints and the general signed API surface.
package gop

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/organicecom/marketconnect/internal/connector/domain"
	"github.com/organicecom/marketconnect/internal/connector/sign"
	"github.com/organicecom/marketconnect/pkg/slogx"
)

// Transport selects the vendor-surface calling convention for the token
// endpoints. The vendor has shipped both across API revisions; which one is
// live for a given app is determined by integration testing, so both are
// preserved as explicit profiles.
type Transport string

const (
	// TransportForm POSTs a form-urlencoded body to {base}/rest{path}.
	TransportForm Transport = "form"
	// TransportQuery GETs {base}{path} with the parameters in the query.
	TransportQuery Transport = "query"
)

const (
	pathTokenCreate  = "/auth/token/create"
	pathTokenRefresh = "/auth/token/refresh"
	pathSync         = "/sync"

	// defaultExpiresIn applies when the vendor omits the expiry field.
	defaultExpiresIn = 24 * time.Hour

	// DefaultTimeout bounds every request to the vendor. A timeout is a
	// transport error; the submitted code or refresh token may still have
	// been consumed upstream, so callers must not blindly resubmit.
	DefaultTimeout = 30 * time.Second

	signMethod = "sha256"
)

type Config struct {
	AppKey    string
	AppSecret string
	BaseURL   string    // e.g. https://api-sg.aliexpress.com
	Transport Transport // token endpoint calling convention (default form)
	Timeout   time.Duration
}

// Client talks to the vendor gateway. All methods are safe for concurrent
// use.
type Client struct {
	cfg  Config
	http *http.Client
	now  func() time.Time
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.AppKey == "" || cfg.AppSecret == "" {
		return nil, domain.ErrMissingCredentials
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("gop: base URL required")
	}
	if cfg.Transport == "" {
		cfg.Transport = TransportForm
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")

	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		now:  time.Now,
	}, nil
}

// ExchangeCode redeems an authorization code for an access/refresh grant.
// The code is single-use on the vendor side: a transport failure here does
// not mean the code is still redeemable.
func (c *Client) ExchangeCode(ctx context.Context, code string) (domain.TokenGrant, error) {
	return c.tokenCall(ctx, pathTokenCreate, "code", code)
}

// RefreshToken redeems a refresh token for a new grant. The vendor
// invalidates the old refresh token on first successful use.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (domain.TokenGrant, error) {
	return c.tokenCall(ctx, pathTokenRefresh, "refresh_token", refreshToken)
}

func (c *Client) tokenCall(ctx context.Context, path, credKey, credValue string) (domain.TokenGrant, error) {
	log := slogx.FromContext(ctx)

	params := map[string]string{
		"app_key":     c.cfg.AppKey,
		"timestamp":   strconv.FormatInt(c.now().UnixMilli(), 10),
		"sign_method": signMethod,
		credKey:       credValue,
	}
	params["sign"] = sign.TokenRequest(params, c.cfg.AppSecret)

	log.Debug("token request built", "endpoint", path, "transport", string(c.cfg.Transport))

	body, err := c.submit(ctx, path, params)
	if err != nil {
		log.Warn("token request failed", "endpoint", path, "err", err)
		return domain.TokenGrant{}, err
	}

	grant, err := parseGrant(body)
	if err != nil {
		log.Warn("token response rejected", "endpoint", path, "err", err)
		return domain.TokenGrant{}, err
	}

	log.Info("token grant received", "endpoint", path, "expires_in", grant.ExpiresIn.String())
	return grant, nil
}

// Execute performs a signed business API call through the /sync gateway.
// method is the vendor API method, session the bearer access token, and
// params the method-specific parameters. It returns the data payload of the
// response envelope (or the whole body when the surface has no wrapper).
func (c *Client) Execute(ctx context.Context, method, session string, params map[string]string) (json.RawMessage, error) {
	log := slogx.FromContext(ctx)

	all := map[string]string{
		"method":      method,
		"app_key":     c.cfg.AppKey,
		"timestamp":   strconv.FormatInt(c.now().UnixMilli(), 10),
		"sign_method": signMethod,
		"format":      "json",
		"v":           "2.0",
		"session":     session,
	}
	for k, v := range params {
		all[k] = v
	}
	all["sign"] = sign.APIRequest(method, all, c.cfg.AppSecret)

	body, err := c.postForm(ctx, c.cfg.BaseURL+pathSync, all)
	if err != nil {
		log.Warn("api call failed", "api_method", method, "err", err)
		return nil, err
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, domain.ErrMalformedResponse
	}
	if !env.ok() {
		log.Warn("api call rejected", "api_method", method,
			"code", string(env.Code), "message", env.Message)
		return nil, &domain.UpstreamError{Code: string(env.Code), Message: env.Message}
	}

	log.Debug("api call succeeded", "api_method", method)
	if len(env.Data) > 0 {
		return env.Data, nil
	}
	return body, nil
}

// submit dispatches a token endpoint request per the configured transport
// profile.
func (c *Client) submit(ctx context.Context, path string, params map[string]string) ([]byte, error) {
	switch c.cfg.Transport {
	case TransportQuery:
		return c.getQuery(ctx, c.cfg.BaseURL+path, params)
	default:
		return c.postForm(ctx, c.cfg.BaseURL+"/rest"+path, params)
	}
}

func (c *Client) postForm(ctx context.Context, endpoint string, params map[string]string) ([]byte, error) {
	form := url.Values{}
	for k, v := range params {
		form.Set(k, v)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &domain.TransportError{Op: "build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded;charset=utf-8")

	return c.do(req)
}

func (c *Client) getQuery(ctx context.Context, endpoint string, params map[string]string) ([]byte, error) {
	query := url.Values{}
	for k, v := range params {
		query.Set(k, v)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return nil, &domain.TransportError{Op: "build request", Err: err}
	}

	return c.do(req)
}

// do executes the request and reads the body. Non-2xx statuses still carry a
// GOP envelope describing the failure, so the body is returned for envelope
// parsing rather than mapped to an error here.
func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &domain.TransportError{Op: "call vendor", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &domain.TransportError{Op: "read response", Err: err}
	}
	return body, nil
}
