// Package postgres stores documents as JSONB rows of a single table keyed by
// (collection, id).
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/sigmarp/medical-api/pkg/docstore"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	collection TEXT NOT NULL,
	id         TEXT NOT NULL,
	body       JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (collection, id)
);
CREATE INDEX IF NOT EXISTS documents_body_gin ON documents USING GIN (body jsonb_path_ops);
`

type Store struct {
	db *sqlx.DB
}

var (
	_ docstore.Store   = (*Store)(nil)
	_ docstore.Indexer = (*Store)(nil)
)

type row struct {
	ID   string `db:"id"`
	Body []byte `db:"body"`
}

func Connect(ctx context.Context, dsn string) (*Store, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return New(db), nil
}

func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Get(ctx context.Context, collection, id string) (docstore.Document, error) {
	var body []byte
	err := s.db.GetContext(ctx, &body, `SELECT body FROM documents WHERE collection = $1 AND id = $2`, collection, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, docstore.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return decode(body)
}

func (s *Store) Put(ctx context.Context, collection, id string, doc docstore.Document) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", collection, id, err)
	}

	query := `
		INSERT INTO documents (collection, id, body)
		VALUES ($1, $2, $3)
		ON CONFLICT (collection, id) DO UPDATE SET body = EXCLUDED.body, updated_at = NOW()`
	if _, err := s.db.ExecContext(ctx, query, collection, id, body); err != nil {
		return fmt.Errorf("put %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *Store) Replace(ctx context.Context, collection, id string, doc docstore.Document, expectedVersion int64) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", collection, id, err)
	}

	res, err := s.db.ExecContext(ctx, buildReplace(expectedVersion), collection, id, body, expectedVersion)
	if err != nil {
		return fmt.Errorf("replace %s/%s: %w", collection, id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("replace %s/%s: %w", collection, id, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s/%s", docstore.ErrConflict, collection, id)
	}
	return nil
}

// buildReplace only inserts when the caller expects no stored document.
// A missing row never satisfies a positive expected version.
func buildReplace(expectedVersion int64) string {
	if expectedVersion == 0 {
		return `
		INSERT INTO documents (collection, id, body)
		VALUES ($1, $2, $3)
		ON CONFLICT (collection, id) DO UPDATE SET body = EXCLUDED.body, updated_at = NOW()
		WHERE COALESCE((documents.body->>'version')::bigint, 0) = $4`
	}
	return `
		UPDATE documents SET body = $3::jsonb, updated_at = NOW()
		WHERE collection = $1 AND id = $2 AND COALESCE((body->>'version')::bigint, 0) = $4`
}

func (s *Store) Merge(ctx context.Context, collection, id string, fields docstore.Document) error {
	patch, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", collection, id, err)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE documents SET body = body || $3::jsonb, updated_at = NOW() WHERE collection = $1 AND id = $2`,
		collection, id, patch)
	if err != nil {
		return fmt.Errorf("merge %s/%s: %w", collection, id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("merge %s/%s: %w", collection, id, err)
	}
	if affected == 0 {
		return docstore.ErrNotFound
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE collection = $1 AND id = $2`, collection, id); err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *Store) Find(ctx context.Context, collection string, q docstore.Query) ([]docstore.Snapshot, error) {
	query, args, err := buildFind(collection, q)
	if err != nil {
		return nil, err
	}

	var rows []row
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("find %s: %w", collection, err)
	}

	out := make([]docstore.Snapshot, 0, len(rows))
	for _, r := range rows {
		doc, err := decode(r.Body)
		if err != nil {
			return nil, fmt.Errorf("find %s: %s: %w", collection, r.ID, err)
		}
		out = append(out, docstore.Snapshot{ID: r.ID, Data: doc})
	}
	return out, nil
}

// EnsureIndexes creates the documents table and one expression index per
// spec, scoped to the spec's collection.
func (s *Store) EnsureIndexes(ctx context.Context, specs []docstore.IndexSpec) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create documents table: %w", err)
	}

	for _, spec := range specs {
		exprs := make([]string, len(spec.Fields))
		for i, field := range spec.Fields {
			exprs[i] = fmt.Sprintf("(body->>%s)", pq.QuoteLiteral(field))
		}
		name := "documents_" + spec.Collection + "_" + strings.Join(spec.Fields, "_")
		stmt := fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON documents (%s) WHERE collection = %s",
			pq.QuoteIdentifier(name), strings.Join(exprs, ", "), pq.QuoteLiteral(spec.Collection))
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create index %s: %w", name, err)
		}
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close(context.Context) error {
	return s.db.Close()
}

func buildFind(collection string, q docstore.Query) (string, []interface{}, error) {
	var b strings.Builder
	args := []interface{}{collection}
	b.WriteString(`SELECT id, body FROM documents WHERE collection = $1`)

	for _, f := range q.Filters {
		probe, err := json.Marshal(map[string]interface{}{f.Field: f.Value})
		if err != nil {
			return "", nil, fmt.Errorf("encode filter %s: %w", f.Field, err)
		}
		args = append(args, probe)
		fmt.Fprintf(&b, " AND body @> $%d::jsonb", len(args))
	}

	if q.OrderBy != "" {
		args = append(args, q.OrderBy)
		dir := "ASC"
		if q.Descending {
			dir = "DESC"
		}
		fmt.Fprintf(&b, " ORDER BY body->>$%d %s, id %s", len(args), dir, dir)
	} else {
		b.WriteString(" ORDER BY id")
	}

	if q.Limit > 0 {
		args = append(args, q.Limit)
		fmt.Fprintf(&b, " LIMIT $%d", len(args))
	}
	return b.String(), args, nil
}

func decode(body []byte) (docstore.Document, error) {
	var doc docstore.Document
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return doc, nil
}
