package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/organicecom/marketconnect/internal/connector/domain"
	"github.com/organicecom/marketconnect/internal/connector/store"
)

type tokensRepo struct {
	db *sql.DB
}

func (r *tokensRepo) UpsertToken(ctx context.Context, t domain.Token) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO marketplace_tokens (user_id, access_token, refresh_token, expires_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			access_token  = excluded.access_token,
			refresh_token = excluded.refresh_token,
			expires_at    = excluded.expires_at,
			updated_at    = excluded.updated_at
	`, t.UserID, t.AccessToken, t.RefreshToken, t.ExpiresAt.UTC(), now, now)
	return err
}

func (r *tokensRepo) GetTokenByUserID(ctx context.Context, userID string) (domain.Token, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT user_id, access_token, refresh_token, expires_at, created_at, updated_at
		FROM marketplace_tokens
		WHERE user_id = ?
	`, userID)

	var t domain.Token
	err := row.Scan(&t.UserID, &t.AccessToken, &t.RefreshToken, &t.ExpiresAt, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Token{}, store.ErrNotFound
		}
		return domain.Token{}, err
	}
	return t, nil
}

func (r *tokensRepo) DeleteToken(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM marketplace_tokens WHERE user_id = ?`, userID)
	return err
}
