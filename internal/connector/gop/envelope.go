package gop

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/organicecom/marketconnect/internal/connector/domain"
)

// successCode is the envelope code the vendor uses for a successful call.
const successCode = "0"

// flexString decodes a JSON field the vendor serializes inconsistently as
// either a string or a number.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}

	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// envelope is the vendor's GOP response wrapper. Older surfaces return the
// token payload at the top level instead of under data, so grant parsing
// falls back to the whole body when data is absent.
type envelope struct {
	Code      flexString      `json:"code"`
	Message   string          `json:"message"`
	RequestID string          `json:"request_id"`
	Data      json.RawMessage `json:"data"`
}

// ok reports envelope success. An absent code with a present payload is
// treated as success: some vendor surfaces omit the code field entirely on
// the happy path.
func (e envelope) ok() bool {
	return e.Code == "" || string(e.Code) == successCode
}

// grantPayload is the token payload of /auth/token/create and
// /auth/token/refresh. The expiry duration field is named expires_in or
// expire_time depending on the vendor surface.
type grantPayload struct {
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token"`
	ExpiresIn    flexString `json:"expires_in"`
	ExpireTime   flexString `json:"expire_time"`
	UserID       flexString `json:"user_id"`
	SellerID     flexString `json:"seller_id"`
	Account      string     `json:"account"`
}

// expiresIn resolves the grant lifetime, applying the documented 24h default
// when the vendor omits the field rather than failing the exchange.
func (g grantPayload) expiresIn() time.Duration {
	for _, raw := range []flexString{g.ExpiresIn, g.ExpireTime} {
		if raw == "" {
			continue
		}
		if secs, err := json.Number(raw).Int64(); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultExpiresIn
}

func (g grantPayload) accountID() string {
	switch {
	case g.SellerID != "":
		return string(g.SellerID)
	case g.UserID != "":
		return string(g.UserID)
	default:
		return g.Account
	}
}

// parseGrant extracts a TokenGrant from a token endpoint response body.
func parseGrant(body []byte) (domain.TokenGrant, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return domain.TokenGrant{}, domain.ErrMalformedResponse
	}

	if !env.ok() {
		return domain.TokenGrant{}, &domain.UpstreamError{
			Code:    string(env.Code),
			Message: env.Message,
		}
	}

	payload := env.Data
	if len(payload) == 0 {
		payload = body
	}

	var grant grantPayload
	if err := json.Unmarshal(payload, &grant); err != nil {
		return domain.TokenGrant{}, domain.ErrMalformedResponse
	}
	if grant.AccessToken == "" {
		// A success code without an access token is its own failure mode:
		// the caller must be able to tell it apart from an upstream error.
		return domain.TokenGrant{}, domain.ErrMalformedResponse
	}

	return domain.TokenGrant{
		AccessToken:  grant.AccessToken,
		RefreshToken: grant.RefreshToken,
		ExpiresIn:    grant.expiresIn(),
		AccountID:    grant.accountID(),
	}, nil
}
