// Package apikey validates admin API keys against PostgreSQL. Raw keys are
// generated with crypto/rand, stored only as SHA-256 hashes, and presented
// keys are validated by hash lookup. The raw key is shown once at creation.
package apikey

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/irsescapeplan/platform/pkg/postgres"
)

var (
	ErrInvalidKey = errors.New("invalid api key")
	ErrExpiredKey = errors.New("api key expired")
)

// Raw keys carry a recognizable prefix so a leaked key can be spotted in
// logs and secret scanners.
const keyPrefix = "iep_"

// KeyInfo holds metadata about an API key. The raw key and its hash are
// never included.
type KeyInfo struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	IsActive  bool       `json:"is_active"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	LastUsed  *time.Time `json:"last_used_at,omitempty"`
}

// Validator checks presented keys against the api_keys table.
type Validator struct {
	db     *postgres.Client
	logger *slog.Logger
}

func NewValidator(db *postgres.Client, logger *slog.Logger) *Validator {
	return &Validator{db: db, logger: logger.With("component", "apikey_validator")}
}

// Validate checks a raw key and returns its metadata, or ErrInvalidKey /
// ErrExpiredKey. Successful validations update last_used_at best-effort.
func (v *Validator) Validate(ctx context.Context, rawKey string) (*KeyInfo, error) {
	hash := HashKey(rawKey)

	var info KeyInfo
	var expiresAt, lastUsed sql.NullTime
	err := v.db.DB.QueryRowContext(ctx, `
		SELECT id, name, is_active, created_at, expires_at, last_used_at
		FROM api_keys
		WHERE key_hash = $1 AND is_active = true`, hash,
	).Scan(&info.ID, &info.Name, &info.IsActive, &info.CreatedAt, &expiresAt, &lastUsed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidKey
	}
	if err != nil {
		return nil, fmt.Errorf("querying api key: %w", err)
	}
	if expiresAt.Valid {
		if expiresAt.Time.Before(time.Now()) {
			return nil, ErrExpiredKey
		}
		info.ExpiresAt = &expiresAt.Time
	}
	if lastUsed.Valid {
		info.LastUsed = &lastUsed.Time
	}

	if _, err := v.db.DB.ExecContext(ctx,
		`UPDATE api_keys SET last_used_at = now() WHERE id = $1`, info.ID); err != nil {
		v.logger.Warn("failed to update key last_used_at", "error", err)
	}
	return &info, nil
}

// CreateKey generates a new key, stores its hash, and returns the raw key.
// The raw key cannot be retrieved again.
func (v *Validator) CreateKey(ctx context.Context, name string, expiresAt *time.Time) (string, error) {
	rawKey := generateRawKey()
	hash := HashKey(rawKey)

	var expiry sql.NullTime
	if expiresAt != nil {
		expiry = sql.NullTime{Time: *expiresAt, Valid: true}
	}
	if _, err := v.db.DB.ExecContext(ctx,
		`INSERT INTO api_keys (key_hash, name, expires_at) VALUES ($1, $2, $3)`,
		hash, name, expiry); err != nil {
		return "", fmt.Errorf("creating api key: %w", err)
	}

	v.logger.Info("api key created", "name", name)
	return rawKey, nil
}

// RevokeKey deactivates a key so it can no longer be used.
func (v *Validator) RevokeKey(ctx context.Context, rawKey string) error {
	result, err := v.db.DB.ExecContext(ctx,
		`UPDATE api_keys SET is_active = false WHERE key_hash = $1`, HashKey(rawKey))
	if err != nil {
		return fmt.Errorf("revoking api key: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrInvalidKey
	}
	v.logger.Info("api key revoked")
	return nil
}

// ListKeys returns metadata for every active key.
func (v *Validator) ListKeys(ctx context.Context) ([]KeyInfo, error) {
	rows, err := v.db.DB.QueryContext(ctx, `
		SELECT id, name, is_active, created_at, expires_at, last_used_at
		FROM api_keys
		WHERE is_active = true
		ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing api keys: %w", err)
	}
	defer rows.Close()

	var keys []KeyInfo
	for rows.Next() {
		var k KeyInfo
		var expiresAt, lastUsed sql.NullTime
		if err := rows.Scan(&k.ID, &k.Name, &k.IsActive, &k.CreatedAt, &expiresAt, &lastUsed); err != nil {
			return nil, fmt.Errorf("scanning api key row: %w", err)
		}
		if expiresAt.Valid {
			k.ExpiresAt = &expiresAt.Time
		}
		if lastUsed.Valid {
			k.LastUsed = &lastUsed.Time
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// HashKey returns the SHA-256 hex digest of a raw API key.
func HashKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func generateRawKey() string {
	b := make([]byte, 32)
	_, _ = rand.Read(b)
	return keyPrefix + hex.EncodeToString(b)
}
