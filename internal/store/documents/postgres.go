// internal/store/documents/postgres.go
package documents

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// Schema creates the backing table. Applied at startup; idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS portal_documents (
	collection TEXT NOT NULL,
	id         TEXT NOT NULL,
	data       JSONB NOT NULL,
	PRIMARY KEY (collection, id)
)`

// PostgresStore implements Store on a single JSONB-backed table. The
// jsonb || operator gives the shallow-merge Patch semantics directly,
// and a transaction gives Batch its all-or-nothing guarantee.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a document store over an open connection.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the backing table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("ensure documents schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, collection, id string) (Document, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT data FROM portal_documents
		WHERE collection = $1 AND id = $2`, collection, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, mapError(err)
	}

	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal document %s/%s: %w", collection, id, err)
	}
	return doc, nil
}

func (s *PostgresStore) Create(ctx context.Context, collection, id string, doc Document) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO portal_documents (collection, id, data)
		VALUES ($1, $2, $3)`, collection, id, raw)
	if err != nil {
		return mapError(err)
	}
	return nil
}

func (s *PostgresStore) Patch(ctx context.Context, collection, id string, fields Document) error {
	raw, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("marshal patch: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE portal_documents
		SET data = data || $3::jsonb
		WHERE collection = $1 AND id = $2`, collection, id, raw)
	if err != nil {
		return mapError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return mapError(err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) SetPath(ctx context.Context, collection, id string, path []string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal path value: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE portal_documents
		SET data = jsonb_set(data, $3::text[], $4::jsonb, true)
		WHERE collection = $1 AND id = $2`, collection, id, pq.Array(path), raw)
	if err != nil {
		return mapError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return mapError(err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) AppendToArray(ctx context.Context, collection, id string, path []string, value interface{}) error {
	// The value is wrapped in a one-element array so jsonb || appends it
	// as a single entry even when the value itself is an array.
	raw, err := json.Marshal([]interface{}{value})
	if err != nil {
		return fmt.Errorf("marshal append value: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE portal_documents
		SET data = jsonb_set(
			data, $3::text[],
			COALESCE(data #> $3::text[], '[]'::jsonb) || $4::jsonb,
			true)
		WHERE collection = $1 AND id = $2`, collection, id, pq.Array(path), raw)
	if err != nil {
		return mapError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return mapError(err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, collection, id string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM portal_documents
		WHERE collection = $1 AND id = $2`, collection, id)
	if err != nil {
		return mapError(err)
	}
	return nil
}

func (s *PostgresStore) Query(ctx context.Context, collection string, filters Document, limit int) ([]Document, error) {
	raw, err := json.Marshal(filters)
	if err != nil {
		return nil, fmt.Errorf("marshal filters: %w", err)
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT data FROM portal_documents
		WHERE collection = $1 AND data @> $2::jsonb
		LIMIT $3`, collection, raw, limit)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []Document
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, mapError(err)
		}
		var doc Document
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("unmarshal query result: %w", err)
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Batch(ctx context.Context, ops []BatchOp) error {
	if len(ops) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return mapError(err)
	}

	for _, op := range ops {
		switch op.Kind {
		case OpSet:
			raw, err := json.Marshal(op.Data)
			if err != nil {
				tx.Rollback()
				return fmt.Errorf("marshal batch document: %w", err)
			}
			_, err = tx.ExecContext(ctx, `
				INSERT INTO portal_documents (collection, id, data)
				VALUES ($1, $2, $3)
				ON CONFLICT (collection, id) DO UPDATE SET data = EXCLUDED.data`,
				op.Collection, op.ID, raw)
			if err != nil {
				tx.Rollback()
				return mapError(err)
			}
		case OpDelete:
			_, err := tx.ExecContext(ctx, `
				DELETE FROM portal_documents
				WHERE collection = $1 AND id = $2`, op.Collection, op.ID)
			if err != nil {
				tx.Rollback()
				return mapError(err)
			}
		default:
			tx.Rollback()
			return fmt.Errorf("unknown batch op kind: %s", op.Kind)
		}
	}

	if err := tx.Commit(); err != nil {
		return mapError(err)
	}
	return nil
}

// mapError translates driver errors into the store's sentinel errors.
func mapError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "42501" { // insufficient_privilege
		return fmt.Errorf("%w: %s", ErrPermissionDenied, pqErr.Message)
	}
	return err
}
