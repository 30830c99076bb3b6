// Package state encodes the OAuth redirect state parameter. Authorization
// may be initiated and completed by different processes, so CSRF protection
// and identity binding are self-contained in the token itself rather than in
// server-side session storage: the payload carries the initiating user, a
// random nonce, and its issuance time, and expiry is verified at decode.
package state

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/organicecom/marketconnect/internal/connector/domain"
)

// DefaultTTL is how long an issued state stays decodable.
const DefaultTTL = 10 * time.Minute

const nonceSize = 16

type payload struct {
	UserID   string `json:"uid"`
	Nonce    string `json:"nonce"`
	IssuedAt int64  `json:"iat"` // unix millis
}

// Codec encodes and decodes redirect state tokens. The zero value is not
// usable; construct with New.
type Codec struct {
	ttl time.Duration
	now func() time.Time
}

func New(ttl time.Duration) *Codec {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Codec{ttl: ttl, now: time.Now}
}

// NewWithClock is New with an injected clock, for tests.
func NewWithClock(ttl time.Duration, now func() time.Time) *Codec {
	c := New(ttl)
	c.now = now
	return c
}

// Encode produces a URL-safe state token binding userID to this
// authorization round-trip.
func (c *Codec) Encode(userID string) (string, error) {
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate state nonce: %w", err)
	}

	raw, err := json.Marshal(payload{
		UserID:   userID,
		Nonce:    base64.RawURLEncoding.EncodeToString(nonce),
		IssuedAt: c.now().UnixMilli(),
	})
	if err != nil {
		return "", fmt.Errorf("encode state: %w", err)
	}

	// RawURLEncoding keeps the token query-string safe without escaping.
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// Decode reverses Encode and returns the bound userID. It returns
// domain.ErrInvalidState for malformed input, a missing nonce, or a token
// older than the TTL — never a panic, whatever the input.
func (c *Codec) Decode(s string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return "", domain.ErrInvalidState
	}

	var p payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return "", domain.ErrInvalidState
	}
	if p.Nonce == "" || p.IssuedAt <= 0 {
		return "", domain.ErrInvalidState
	}

	age := c.now().Sub(time.UnixMilli(p.IssuedAt))
	if age > c.ttl {
		return "", domain.ErrInvalidState
	}

	return p.UserID, nil
}
