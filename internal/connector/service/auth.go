package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/organicecom/marketconnect/internal/connector/domain"
	"github.com/organicecom/marketconnect/internal/connector/state"
	"github.com/organicecom/marketconnect/internal/connector/store"
	"github.com/organicecom/marketconnect/pkg/slogx"
	"golang.org/x/sync/singleflight"
)

// DefaultExpiryBuffer is subtracted from the stored expiry when deciding
// whether a token is still safe to hand out: a token that expires mid-flight
// is as bad as an expired one.
const DefaultExpiryBuffer = 5 * time.Minute

// OAuthClient is the vendor token surface the auth service depends on.
// *gop.Client satisfies it.
type OAuthClient interface {
	ExchangeCode(ctx context.Context, code string) (domain.TokenGrant, error)
	RefreshToken(ctx context.Context, refreshToken string) (domain.TokenGrant, error)
}

// AuthService owns the marketplace token lifecycle: building the
// authorization URL, completing the callback, and serving a currently valid
// access token with transparent refresh.
type AuthService struct {
	Store  store.Store
	OAuth  OAuthClient
	States *state.Codec

	AppKey      string
	AuthBaseURL string // where /oauth/authorize lives
	CallbackURL string

	// ExpiryBuffer overrides DefaultExpiryBuffer when positive.
	ExpiryBuffer time.Duration

	// refreshes serializes refresh attempts per userID. Concurrent
	// ValidToken calls that both observe a near-expiry token would
	// otherwise race with the same refresh token, and the vendor
	// invalidates it on first use.
	refreshes singleflight.Group

	now func() time.Time
}

func (s *AuthService) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

func (s *AuthService) buffer() time.Duration {
	if s.ExpiryBuffer > 0 {
		return s.ExpiryBuffer
	}
	return DefaultExpiryBuffer
}

// userKey maps an absent user identity (single-tenant deployments) onto the
// fixed default row key.
func userKey(userID string) string {
	if userID == "" {
		return domain.DefaultUserID
	}
	return userID
}

// AuthorizationURL builds the vendor consent URL for userID. The state
// parameter binds the eventual callback to this user and request.
func (s *AuthService) AuthorizationURL(userID string) (string, error) {
	encoded, err := s.States.Encode(userKey(userID))
	if err != nil {
		return "", fmt.Errorf("encode state: %w", err)
	}

	q := url.Values{}
	q.Set("response_type", "code")
	q.Set("client_id", s.AppKey)
	q.Set("redirect_uri", s.CallbackURL)
	q.Set("state", encoded)

	return s.AuthBaseURL + "/oauth/authorize?" + q.Encode(), nil
}

// HandleCallback completes the authorization round-trip: verifies the state,
// exchanges the code, and persists the resulting token keyed by the user the
// state was issued for. Returns that userID.
func (s *AuthService) HandleCallback(ctx context.Context, code, stateParam string) (string, error) {
	log := slogx.FromContext(ctx)

	userID, err := s.States.Decode(stateParam)
	if err != nil {
		log.Warn("callback state rejected", "err", err)
		return "", err
	}
	userID = userKey(userID)

	grant, err := s.OAuth.ExchangeCode(ctx, code)
	if err != nil {
		return "", fmt.Errorf("exchange code: %w", err)
	}

	if err := s.persistGrant(ctx, userID, grant); err != nil {
		return "", err
	}

	log.Info("marketplace account connected", "user_id", userID)
	return userID, nil
}

// ValidToken returns an access token guaranteed to outlive the expiry
// buffer, refreshing through the vendor when the stored one does not.
// Returns domain.ErrNotConnected when no token is on file and
// domain.ErrRefreshFailed when the vendor authoritatively rejects the
// refresh (the stored token is deleted in that case).
func (s *AuthService) ValidToken(ctx context.Context, userID string) (string, error) {
	key := userKey(userID)

	token, err := s.loadToken(ctx, key)
	if err != nil {
		return "", err
	}

	if !token.ExpiresWithin(s.clock(), s.buffer()) {
		return token.AccessToken, nil
	}

	return s.refreshToken(ctx, key)
}

// refreshToken funnels all refresh attempts for one user through a single
// flight; concurrent callers share the one in-flight result.
func (s *AuthService) refreshToken(ctx context.Context, key string) (string, error) {
	accessToken, err, _ := s.refreshes.Do(key, func() (any, error) {
		log := slogx.FromContext(ctx)

		// Re-read inside the flight: a caller that queued behind a
		// completed refresh must use the fresh row, not re-refresh it.
		token, err := s.loadToken(ctx, key)
		if err != nil {
			return "", err
		}
		if !token.ExpiresWithin(s.clock(), s.buffer()) {
			return token.AccessToken, nil
		}

		grant, err := s.OAuth.RefreshToken(ctx, token.RefreshToken)
		if err != nil {
			var upstream *domain.UpstreamError
			if errors.As(err, &upstream) || errors.Is(err, domain.ErrMalformedResponse) {
				// Authoritative rejection: the refresh token will never
				// work again, so keeping the row only causes retry loops.
				if delErr := s.Store.Tokens().DeleteToken(ctx, key); delErr != nil {
					log.Error("failed to delete stale token", "user_id", key, "err", delErr)
				}
				log.Warn("refresh rejected, token deleted", "user_id", key, "err", err)
				return "", fmt.Errorf("%w: %v", domain.ErrRefreshFailed, err)
			}
			// Transport failures keep the row; the refresh token may
			// still be good.
			return "", fmt.Errorf("refresh token: %w", err)
		}

		if err := s.persistGrant(ctx, key, grant); err != nil {
			return "", err
		}

		log.Info("access token refreshed", "user_id", key)
		return grant.AccessToken, nil
	})
	if err != nil {
		return "", err
	}
	return accessToken.(string), nil
}

// Revoke disconnects the account by deleting the stored token.
func (s *AuthService) Revoke(ctx context.Context, userID string) error {
	key := userKey(userID)
	if err := s.Store.Tokens().DeleteToken(ctx, key); err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	slogx.FromContext(ctx).Info("marketplace account disconnected", "user_id", key)
	return nil
}

// IsConnected reports whether a currently valid (or refreshable) token
// exists for userID. Any failure reads as not connected.
func (s *AuthService) IsConnected(ctx context.Context, userID string) bool {
	_, err := s.ValidToken(ctx, userID)
	return err == nil
}

func (s *AuthService) loadToken(ctx context.Context, key string) (domain.Token, error) {
	token, err := s.Store.Tokens().GetTokenByUserID(ctx, key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Token{}, domain.ErrNotConnected
		}
		return domain.Token{}, fmt.Errorf("load token: %w", err)
	}
	return token, nil
}

func (s *AuthService) persistGrant(ctx context.Context, key string, grant domain.TokenGrant) error {
	err := s.Store.Tokens().UpsertToken(ctx, domain.Token{
		UserID:       key,
		AccessToken:  grant.AccessToken,
		RefreshToken: grant.RefreshToken,
		ExpiresAt:    s.clock().Add(grant.ExpiresIn),
	})
	if err != nil {
		return fmt.Errorf("persist token: %w", err)
	}
	return nil
}
