package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
)

// RevokeToken adds a token's JTI to the revocation list. Revoking the same
// token twice is not an error.
func RevokeToken(ctx context.Context, db *sql.DB, jti string, expiresAt time.Time) error {
	query, args, err := dialect.Insert("revoked_tokens").
		Rows(goqu.Record{"jti": jti, "expires_at": expiresAt.UTC()}).
		OnConflict(goqu.DoNothing()).
		Prepared(true).
		ToSQL()
	if err != nil {
		return fmt.Errorf("building revocation: %w", err)
	}
	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("revoking token: %w", err)
	}

	// Expired revocations no longer matter.
	if _, err := PurgeRevokedTokens(ctx, db); err != nil {
		return err
	}
	return nil
}

// PurgeRevokedTokens removes revocations whose tokens have expired and
// returns how many were removed.
func PurgeRevokedTokens(ctx context.Context, db *sql.DB) (int64, error) {
	query, args, err := dialect.Delete("revoked_tokens").
		Where(goqu.C("expires_at").Lt(now())).
		Prepared(true).
		ToSQL()
	if err != nil {
		return 0, fmt.Errorf("building purge: %w", err)
	}
	result, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("purging revoked tokens: %w", err)
	}
	return result.RowsAffected()
}

// IsTokenRevoked checks if a token's JTI has been revoked.
func IsTokenRevoked(ctx context.Context, db *sql.DB, jti string) (bool, error) {
	query, args, err := dialect.From("revoked_tokens").
		Select(goqu.COUNT("*")).
		Where(goqu.C("jti").Eq(jti)).
		Prepared(true).
		ToSQL()
	if err != nil {
		return false, fmt.Errorf("building revocation check: %w", err)
	}
	var count int
	if err := db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return false, fmt.Errorf("checking token revocation: %w", err)
	}
	return count > 0, nil
}
