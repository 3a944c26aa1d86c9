package postgres

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"github.com/karabomaleka/tshwanebus/internal/core/domain"
)

// AuthRepo implements ports.AuthProvider against the api_tokens table.
// Tokens are stored as SHA-256 digests.
type AuthRepo struct {
	db *DB
}

func NewAuthRepo(db *DB) *AuthRepo { return &AuthRepo{db: db} }

func (r *AuthRepo) UserIDForToken(ctx context.Context, token string) (string, error) {
	digest := sha256.Sum256([]byte(token))

	var userID string
	err := r.db.Pool.QueryRow(ctx, `
		SELECT user_id FROM api_tokens
		WHERE token_hash = $1 AND (expires_at IS NULL OR expires_at > now())
	`, hex.EncodeToString(digest[:])).Scan(&userID)
	if err != nil {
		if errors.Is(mapError(err), domain.ErrNotFound) {
			return "", domain.ErrUnauthenticated
		}
		return "", err
	}
	return userID, nil
}
