package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yanqian/content-digest/internal/domain/digest"
)

const schema = `
CREATE TABLE IF NOT EXISTS digests (
	id          TEXT PRIMARY KEY,
	mode        TEXT NOT NULL,
	input_type  TEXT NOT NULL,
	source      TEXT NOT NULL DEFAULT '',
	payload     JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS digests_created_at_idx ON digests (created_at DESC);
`

// PostgresRepository implements digest.HistoryRepository using pgx.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository constructs the repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// EnsureSchema creates the digests table when missing.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure digests schema: %w", err)
	}
	return nil
}

// Save inserts or replaces a result.
func (r *PostgresRepository) Save(ctx context.Context, result digest.Result) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode digest: %w", err)
	}
	createdAt := time.Now().UTC()
	if ts, parseErr := time.Parse(time.RFC3339, result.Timestamp); parseErr == nil {
		createdAt = ts
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO digests (id, mode, input_type, source, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET payload = EXCLUDED.payload
	`, result.ID, string(result.Mode), string(result.InputType), result.SourceInfo.Label, payload, createdAt)
	return err
}

// Get fetches a result by id.
func (r *PostgresRepository) Get(ctx context.Context, id string) (digest.Result, bool, error) {
	row := r.pool.QueryRow(ctx, `SELECT payload FROM digests WHERE id = $1`, id)
	result, err := scanResult(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return digest.Result{}, false, nil
	}
	if err != nil {
		return digest.Result{}, false, err
	}
	return result, true, nil
}

// ListRecent returns up to limit results, newest first.
func (r *PostgresRepository) ListRecent(ctx context.Context, limit int) ([]digest.Result, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT payload
		FROM digests
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]digest.Result, 0, limit)
	for rows.Next() {
		result, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, result)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResult(row rowScanner) (digest.Result, error) {
	var payload []byte
	if err := row.Scan(&payload); err != nil {
		return digest.Result{}, err
	}
	var result digest.Result
	if err := json.Unmarshal(payload, &result); err != nil {
		return digest.Result{}, fmt.Errorf("decode digest: %w", err)
	}
	return result, nil
}

var _ digest.HistoryRepository = (*PostgresRepository)(nil)
