package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Repository persists gateway settings.
type Repository interface {
	// Load returns the raw stored document, or found=false when none exists.
	Load(ctx context.Context, gatewayID string) (doc []byte, found bool, err error)
	Save(ctx context.Context, gatewayID string, doc []byte, updatedBy string) error
}

// DB is the subset of pgxpool.Pool used by PGRepository.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PGRepository stores settings as one JSONB document per gateway.
type PGRepository struct {
	DB DB
}

// Load implements Repository.
func (r PGRepository) Load(ctx context.Context, gatewayID string) ([]byte, bool, error) {
	if r.DB == nil {
		return nil, false, errors.New("settings: repository not configured")
	}
	var doc []byte
	err := r.DB.QueryRow(ctx, `SELECT settings FROM gateway_settings WHERE gateway_id = $1`, gatewayID).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("settings: load: %w", err)
	}
	return doc, true, nil
}

// Save implements Repository.
func (r PGRepository) Save(ctx context.Context, gatewayID string, doc []byte, updatedBy string) error {
	if r.DB == nil {
		return errors.New("settings: repository not configured")
	}
	if !json.Valid(doc) {
		return errors.New("settings: document is not valid JSON")
	}
	_, err := r.DB.Exec(ctx, `
		INSERT INTO gateway_settings (gateway_id, settings, updated_by, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (gateway_id) DO UPDATE
		SET settings = EXCLUDED.settings, updated_by = EXCLUDED.updated_by, updated_at = now()`,
		gatewayID, doc, updatedBy)
	if err != nil {
		return fmt.Errorf("settings: save: %w", err)
	}
	return nil
}
