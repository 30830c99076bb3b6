package domain

import "time"

// DefaultUserID keys the stored token in single-tenant deployments where no
// user identity is supplied.
const DefaultUserID = "default"

// Token models the stored marketplace credential record. At most one live
// row exists per UserID; the store enforces this with upsert-by-key.
type Token struct {
	UserID       string
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ExpiresWithin reports whether the token expires before now+buffer. The
// auth service uses this with a safety buffer so a token is never handed out
// moments before the vendor would reject it.
func (t Token) ExpiresWithin(now time.Time, buffer time.Duration) bool {
	return !now.Before(t.ExpiresAt.Add(-buffer))
}

// TokenGrant is what the vendor's token endpoints return: a fresh
// access/refresh pair and its lifetime. The caller computes the absolute
// expiry from its own clock.
type TokenGrant struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    time.Duration
	AccountID    string // vendor-side seller/account identifier, informational
}
