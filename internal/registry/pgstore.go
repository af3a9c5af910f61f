package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/pipeops/ruleaudit/internal/rule"
)

// PgStore keeps rules in postgres, one row per rule with the YAML spec as
// payload so window and constraint shapes survive storage unchanged.
type PgStore struct {
	db *sql.DB
}

// NewPgStore opens and pings the database.
func NewPgStore(dsn string) (*PgStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open rule database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping rule database: %w", err)
	}
	return &PgStore{db: db}, nil
}

func (s *PgStore) Close() error { return s.db.Close() }

// EnsureSchema creates the rules table when missing.
func (s *PgStore) EnsureSchema(ctx context.Context) error {
	const q = `
	CREATE TABLE IF NOT EXISTS monitor_rules (
		id     BIGINT PRIMARY KEY,
		name   TEXT NOT NULL DEFAULT '',
		status BOOLEAN NOT NULL DEFAULT true,
		spec   TEXT NOT NULL
	)`
	if _, err := s.db.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("ensure rules schema: %w", err)
	}
	return nil
}

func (s *PgStore) GetRule(ctx context.Context, id int64) (*rule.Rule, error) {
	const q = `SELECT spec FROM monitor_rules WHERE id = $1`
	var spec string
	err := s.db.QueryRowContext(ctx, q, id).Scan(&spec)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRuleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get rule %d: %w", id, err)
	}
	return decodeOne(spec)
}

func (s *PgStore) ListRules(ctx context.Context) ([]*rule.Rule, error) {
	const q = `SELECT spec FROM monitor_rules ORDER BY id`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	defer rows.Close()

	var out []*rule.Rule
	for rows.Next() {
		var spec string
		if err := rows.Scan(&spec); err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		r, err := decodeOne(spec)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	return out, nil
}

func (s *PgStore) UpsertRules(ctx context.Context, rules []*rule.Rule) error {
	const q = `
	INSERT INTO monitor_rules(id, name, status, spec)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (id) DO UPDATE SET
		name = EXCLUDED.name,
		status = EXCLUDED.status,
		spec = EXCLUDED.spec
	`
	for _, r := range rules {
		spec, err := rule.EncodeRules([]*rule.Rule{r})
		if err != nil {
			return fmt.Errorf("encode rule %d: %w", r.ID, err)
		}
		if _, err := s.db.ExecContext(ctx, q, r.ID, r.Name, r.Status, string(spec)); err != nil {
			return fmt.Errorf("upsert rule %d: %w", r.ID, err)
		}
	}
	return nil
}

func decodeOne(spec string) (*rule.Rule, error) {
	rules, err := rule.ParseRules([]byte(spec))
	if err != nil {
		return nil, fmt.Errorf("decode rule spec: %w", err)
	}
	if len(rules) != 1 {
		return nil, fmt.Errorf("decode rule spec: expected 1 rule, got %d", len(rules))
	}
	return rules[0], nil
}
