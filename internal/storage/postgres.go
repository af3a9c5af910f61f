package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgBackend keeps artifacts in a single audit_artifacts table, one row per
// (rule_id, data_type), payload as jsonb.
type PgBackend struct {
	pool *pgxpool.Pool
}

func NewPgBackend(pool *pgxpool.Pool) *PgBackend { return &PgBackend{pool: pool} }

// EnsureSchema creates the artifacts table when missing.
func (b *PgBackend) EnsureSchema(ctx context.Context) error {
	const q = `
	CREATE TABLE IF NOT EXISTS audit_artifacts (
		rule_id    BIGINT NOT NULL,
		data_type  TEXT NOT NULL,
		payload    JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (rule_id, data_type)
	)`
	if _, err := b.pool.Exec(ctx, q); err != nil {
		return fmt.Errorf("storage: ensure schema: %w", err)
	}
	return nil
}

func (b *PgBackend) Store(ctx context.Context, key Key, data any) error {
	if err := key.validate(); err != nil {
		return err
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("storage: marshal %s: %w", key.Path(), err)
	}
	const q = `
	INSERT INTO audit_artifacts(rule_id, data_type, payload)
	VALUES ($1, $2, $3::jsonb)
	ON CONFLICT (rule_id, data_type) DO UPDATE SET
		payload = EXCLUDED.payload,
		updated_at = now()
	`
	if _, err := b.pool.Exec(ctx, q, key.RuleID, key.DataType, string(raw)); err != nil {
		return fmt.Errorf("storage: store %s: %w", key.Path(), err)
	}
	return nil
}

func (b *PgBackend) Retrieve(ctx context.Context, key Key, out any) error {
	if err := key.validate(); err != nil {
		return err
	}
	const q = `SELECT payload FROM audit_artifacts WHERE rule_id = $1 AND data_type = $2`
	var raw []byte
	err := b.pool.QueryRow(ctx, q, key.RuleID, key.DataType).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("storage: retrieve %s: %w", key.Path(), err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("storage: unmarshal %s: %w", key.Path(), err)
	}
	return nil
}

func (b *PgBackend) List(ctx context.Context, ruleID int64, dataType string) ([]Key, error) {
	const q = `
	SELECT rule_id, data_type FROM audit_artifacts
	WHERE ($1 = 0 OR rule_id = $1) AND ($2 = '' OR data_type = $2)
	ORDER BY rule_id, data_type
	`
	rows, err := b.pool.Query(ctx, q, ruleID, dataType)
	if err != nil {
		return nil, fmt.Errorf("storage: list keys: %w", err)
	}
	defer rows.Close()

	var keys []Key
	for rows.Next() {
		var k Key
		if err := rows.Scan(&k.RuleID, &k.DataType); err != nil {
			return nil, fmt.Errorf("storage: scan key: %w", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: list keys: %w", err)
	}
	return keys, nil
}

func (b *PgBackend) Delete(ctx context.Context, key Key) error {
	if err := key.validate(); err != nil {
		return err
	}
	const q = `DELETE FROM audit_artifacts WHERE rule_id = $1 AND data_type = $2`
	if _, err := b.pool.Exec(ctx, q, key.RuleID, key.DataType); err != nil {
		return fmt.Errorf("storage: delete %s: %w", key.Path(), err)
	}
	return nil
}
