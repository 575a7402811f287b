package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"mcq-practice-service/internal/docstore"
	"mcq-practice-service/internal/domain"
)

// Store implements docstore.Store on a single JSONB table keyed by
// (collection, id). Equality filters use containment (@>), so they can be
// served by the GIN index.
type Store struct {
	pool  *pgxpool.Pool
	newID func() string
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, newID: uuid.NewString}
}

func (s *Store) Get(ctx context.Context, collection, id string) (docstore.Document, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM documents WHERE collection=$1 AND id=$2`, collection, id).Scan(&raw)
	if err != nil {
		return docstore.Document{}, translate(err, collection, id)
	}
	data, err := decodeData(raw)
	if err != nil {
		return docstore.Document{}, err
	}
	return docstore.Document{ID: id, Data: data}, nil
}

func (s *Store) Query(ctx context.Context, collection string, q docstore.Query) ([]docstore.Document, error) {
	sql, args, err := buildQuery(collection, q)
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, translate(err, collection, "")
	}
	defer rows.Close()

	docs := []docstore.Document{}
	for rows.Next() {
		var (
			id  string
			raw []byte
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, translate(err, collection, "")
		}
		data, err := decodeData(raw)
		if err != nil {
			return nil, err
		}
		docs = append(docs, docstore.Document{ID: id, Data: data})
	}
	if err := rows.Err(); err != nil {
		return nil, translate(err, collection, "")
	}
	return docs, nil
}

// buildQuery renders q as SQL. Missing order fields sort as lowest, and ties
// break on id ascending, mirroring docstore.Evaluate.
func buildQuery(collection string, q docstore.Query) (string, []any, error) {
	var b strings.Builder
	args := []any{collection}
	b.WriteString(`SELECT id, data FROM documents WHERE collection=$1`)

	if len(q.Where) > 0 {
		containment := map[string]any{}
		for _, f := range q.Where {
			if err := docstore.ApplyUpdates(containment, []docstore.Update{{Path: f.Field, Value: f.Value}}); err != nil {
				return "", nil, fmt.Errorf("filter %s: %w", f.Field, domain.ErrInvalidInput)
			}
		}
		raw, err := json.Marshal(containment)
		if err != nil {
			return "", nil, fmt.Errorf("encode filter: %w", err)
		}
		args = append(args, string(raw))
		fmt.Fprintf(&b, ` AND data @> $%d::jsonb`, len(args))
	}

	if q.OrderBy != "" {
		args = append(args, strings.Split(q.OrderBy, "."))
		if q.Desc {
			fmt.Fprintf(&b, ` ORDER BY data #> $%d DESC NULLS LAST, id ASC`, len(args))
		} else {
			fmt.Fprintf(&b, ` ORDER BY data #> $%d ASC NULLS FIRST, id ASC`, len(args))
		}
	} else {
		b.WriteString(` ORDER BY id ASC`)
	}

	if q.Limit > 0 {
		args = append(args, q.Limit)
		fmt.Fprintf(&b, ` LIMIT $%d`, len(args))
	}
	return b.String(), args, nil
}

func (s *Store) Create(ctx context.Context, collection string, data map[string]any) (string, error) {
	raw, err := encodeData(data)
	if err != nil {
		return "", err
	}
	id := s.newID()
	_, err = s.pool.Exec(ctx, `INSERT INTO documents (collection, id, data) VALUES ($1, $2, $3::jsonb)`, collection, id, raw)
	if err != nil {
		return "", translate(err, collection, id)
	}
	return id, nil
}

func (s *Store) Set(ctx context.Context, collection, id string, data map[string]any, opts ...docstore.SetOption) error {
	if !docstore.IsMerge(opts) {
		raw, err := encodeData(data)
		if err != nil {
			return err
		}
		_, err = s.pool.Exec(ctx, `
			INSERT INTO documents (collection, id, data) VALUES ($1, $2, $3::jsonb)
			ON CONFLICT (collection, id) DO UPDATE SET data=EXCLUDED.data, updated_at=now()`,
			collection, id, raw)
		return translate(err, collection, id)
	}

	patch, err := docstore.Normalize(data)
	if err != nil {
		return err
	}
	return s.pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		// make sure there is a row to lock
		_, err := tx.Exec(ctx, `INSERT INTO documents (collection, id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, collection, id)
		if err != nil {
			return translate(err, collection, id)
		}
		return modifyLocked(ctx, tx, collection, id, func(existing map[string]any) error {
			docstore.MergeInto(existing, patch)
			return nil
		})
	})
}

func (s *Store) Update(ctx context.Context, collection, id string, updates []docstore.Update) error {
	return s.pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		return modifyLocked(ctx, tx, collection, id, func(existing map[string]any) error {
			return docstore.ApplyUpdates(existing, updates)
		})
	})
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM documents WHERE collection=$1 AND id=$2`, collection, id)
	return translate(err, collection, id)
}

func modifyLocked(ctx context.Context, tx pgx.Tx, collection, id string, fn func(map[string]any) error) error {
	var raw []byte
	err := tx.QueryRow(ctx, `SELECT data FROM documents WHERE collection=$1 AND id=$2 FOR UPDATE`, collection, id).Scan(&raw)
	if err != nil {
		return translate(err, collection, id)
	}
	data, err := decodeData(raw)
	if err != nil {
		return err
	}
	if err := fn(data); err != nil {
		return err
	}
	encoded, err := encodeData(data)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `UPDATE documents SET data=$3::jsonb, updated_at=now() WHERE collection=$1 AND id=$2`, collection, id, encoded)
	return translate(err, collection, id)
}

func encodeData(data map[string]any) (string, error) {
	if data == nil {
		data = map[string]any{}
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("encode document: %w", err)
	}
	return string(raw), nil
}

func decodeData(raw []byte) (map[string]any, error) {
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	if data == nil {
		data = map[string]any{}
	}
	return data, nil
}

// translate maps driver errors onto domain sentinels.
func translate(err error, collection, id string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		return fmt.Errorf("%s/%s: %w", collection, id, domain.ErrNotFound)
	case isInsufficientPrivilege(err):
		return fmt.Errorf("postgres %s: %w: %w", collection, domain.ErrPermissionDenied, err)
	default:
		return fmt.Errorf("postgres %s: %w: %w", collection, domain.ErrUnavailable, err)
	}
}

// SQLSTATE raised when the role lacks a grant on the documents table.
const insufficientPrivilege = "42501"

func isInsufficientPrivilege(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == insufficientPrivilege
}
