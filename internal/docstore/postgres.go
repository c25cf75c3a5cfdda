package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS documents (
    collection text        NOT NULL,
    id         text        NOT NULL,
    data       jsonb       NOT NULL DEFAULT '{}'::jsonb,
    created_at timestamptz NOT NULL DEFAULT clock_timestamp(),
    seq        bigserial,
    PRIMARY KEY (collection, id)
);
CREATE INDEX IF NOT EXISTS documents_collection_created_idx
    ON documents (collection, created_at DESC, seq DESC);
`

// PostgresStore keeps every collection in one JSONB table. The creation
// timestamp lives in its own column and is merged into Fields on read.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema creates the documents table when missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresSchema)
	return err
}

func encodeData(fields map[string]any) ([]byte, error) {
	data := make(map[string]any, len(fields))
	for k, v := range fields {
		if k == FieldCreatedAt {
			continue
		}
		data[k] = v
	}
	return json.Marshal(data)
}

func decodeRow(id string, raw []byte, createdAt time.Time) (Document, error) {
	fields := map[string]any{}
	if len(raw) > 0 {
		dec := json.NewDecoder(strings.NewReader(string(raw)))
		dec.UseNumber()
		if err := dec.Decode(&fields); err != nil {
			return Document{}, fmt.Errorf("decode document %s: %w", id, err)
		}
	}
	fields[FieldCreatedAt] = createdAt.UTC()
	return Document{ID: id, Fields: fields}, nil
}

func (s *PostgresStore) Create(ctx context.Context, collection string, fields map[string]any) (Document, error) {
	return s.insert(ctx, collection, uuid.NewString(), fields, false)
}

func (s *PostgresStore) Put(ctx context.Context, collection, id string, fields map[string]any) (Document, error) {
	return s.insert(ctx, collection, id, fields, true)
}

func (s *PostgresStore) insert(ctx context.Context, collection, id string, fields map[string]any, replace bool) (Document, error) {
	raw, err := encodeData(fields)
	if err != nil {
		return Document{}, err
	}
	q := `INSERT INTO documents (collection, id, data) VALUES ($1, $2, $3)
	      RETURNING data, created_at`
	if replace {
		q = `INSERT INTO documents (collection, id, data) VALUES ($1, $2, $3)
		     ON CONFLICT (collection, id) DO UPDATE SET data = EXCLUDED.data
		     RETURNING data, created_at`
	}
	var out []byte
	var createdAt time.Time
	if err := s.pool.QueryRow(ctx, q, collection, id, raw).Scan(&out, &createdAt); err != nil {
		return Document{}, err
	}
	return decodeRow(id, out, createdAt)
}

func (s *PostgresStore) Get(ctx context.Context, collection, id string) (Document, error) {
	const q = `SELECT data, created_at FROM documents WHERE collection = $1 AND id = $2`
	var raw []byte
	var createdAt time.Time
	err := s.pool.QueryRow(ctx, q, collection, id).Scan(&raw, &createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, err
	}
	return decodeRow(id, raw, createdAt)
}

func (s *PostgresStore) Query(ctx context.Context, collection string, order Order) ([]Document, error) {
	dir := "ASC"
	if order.Direction == Desc {
		dir = "DESC"
	}
	args := []any{collection}
	orderExpr := "created_at"
	if order.Field != FieldCreatedAt {
		args = append(args, order.Field)
		orderExpr = "data->$2"
	}
	q := fmt.Sprintf(`SELECT id, data, created_at FROM documents
	                  WHERE collection = $1
	                  ORDER BY %s %s, seq %s`, orderExpr, dir, dir)

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Document
	for rows.Next() {
		var id string
		var raw []byte
		var createdAt time.Time
		if err := rows.Scan(&id, &raw, &createdAt); err != nil {
			return nil, err
		}
		doc, err := decodeRow(id, raw, createdAt)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

// sqlBuilder accumulates positional arguments.
type sqlBuilder struct {
	args []any
}

func (b *sqlBuilder) arg(v any) string {
	b.args = append(b.args, v)
	return fmt.Sprintf("$%d", len(b.args))
}

func jsonArray(vals []any) ([]byte, error) {
	if vals == nil {
		vals = []any{}
	}
	return json.Marshal(vals)
}

// updateStatement compiles ops and conds into one UPDATE statement so the
// row lock taken by Postgres covers the whole mutation. Array ops keep the
// element order of the stored array.
func updateStatement(collection, id string, ops []Op, conds []Cond) (string, []any, error) {
	b := &sqlBuilder{}
	where := []string{
		"collection = " + b.arg(collection),
		"id = " + b.arg(id),
	}

	expr := "data"
	for _, op := range ops {
		key := b.arg(op.Field) + "::text"
		current := fmt.Sprintf("COALESCE(data->%s, '[]'::jsonb)", key)
		switch op.Kind {
		case OpSet:
			raw, err := json.Marshal(op.Value)
			if err != nil {
				return "", nil, err
			}
			expr = fmt.Sprintf("jsonb_set(%s, ARRAY[%s], %s::jsonb, true)", expr, key, b.arg(raw))
		case OpIncrement:
			expr = fmt.Sprintf("jsonb_set(%s, ARRAY[%s], to_jsonb(COALESCE((data->>%s)::bigint, 0) + %s::bigint), true)",
				expr, key, key, b.arg(op.Delta))
		case OpArrayUnion:
			raw, err := jsonArray(op.Values)
			if err != nil {
				return "", nil, err
			}
			expr = fmt.Sprintf("jsonb_set(%s, ARRAY[%s], %s || ("+
				"SELECT COALESCE(jsonb_agg(u.elem ORDER BY u.n), '[]'::jsonb) "+
				"FROM jsonb_array_elements(%s::jsonb) WITH ORDINALITY AS u(elem, n) "+
				"WHERE NOT %s @> jsonb_build_array(u.elem)), true)",
				expr, key, current, b.arg(raw), current)
		case OpArrayRemove:
			raw, err := jsonArray(op.Values)
			if err != nil {
				return "", nil, err
			}
			expr = fmt.Sprintf("jsonb_set(%s, ARRAY[%s], ("+
				"SELECT COALESCE(jsonb_agg(r.elem ORDER BY r.n), '[]'::jsonb) "+
				"FROM jsonb_array_elements(%s) WITH ORDINALITY AS r(elem, n) "+
				"WHERE NOT %s::jsonb @> jsonb_build_array(r.elem)), true)",
				expr, key, current, b.arg(raw))
		default:
			return "", nil, fmt.Errorf("docstore: unknown op kind %d", op.Kind)
		}
	}

	for _, c := range conds {
		raw, err := jsonArray([]any{c.Value})
		if err != nil {
			return "", nil, err
		}
		test := fmt.Sprintf("COALESCE(data->%s::text, '[]'::jsonb) @> %s::jsonb", b.arg(c.Field), b.arg(raw))
		if !c.Contains {
			test = "NOT " + test
		}
		where = append(where, test)
	}

	q := fmt.Sprintf("UPDATE documents SET data = %s WHERE %s RETURNING data, created_at",
		expr, strings.Join(where, " AND "))
	return q, b.args, nil
}

func (s *PostgresStore) Update(ctx context.Context, collection, id string, ops []Op, conds ...Cond) (Document, error) {
	q, args, err := updateStatement(collection, id, ops, conds)
	if err != nil {
		return Document{}, err
	}

	var raw []byte
	var createdAt time.Time
	err = s.pool.QueryRow(ctx, q, args...).Scan(&raw, &createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		if _, getErr := s.Get(ctx, collection, id); errors.Is(getErr, ErrNotFound) {
			return Document{}, ErrNotFound
		} else if getErr != nil {
			return Document{}, getErr
		}
		return Document{}, ErrConditionFailed
	}
	if err != nil {
		return Document{}, err
	}
	return decodeRow(id, raw, createdAt)
}

func (s *PostgresStore) Delete(ctx context.Context, collection, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM documents WHERE collection = $1 AND id = $2`, collection, id)
	return err
}
