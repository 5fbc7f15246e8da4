// Package sqlstore persists field values and content in a SQL database
// through database/sql. Values are stored one row per (item, field name) as
// JSON text. The same schema works on SQLite and PostgreSQL; callers register
// the driver (mattn/go-sqlite3 or jackc/pgx/v5/stdlib) and pick the matching
// Dialect.
package sqlstore

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/goliatone/go-fieldtree/pkg/model"
	"github.com/goliatone/go-fieldtree/pkg/schema"
	"github.com/goliatone/go-fieldtree/pkg/store"
)

// ErrNotMigrated reports that the store tables do not exist yet.
var ErrNotMigrated = errors.New("sqlstore: tables missing, run Migrate")

// Dialect selects the bind parameter style.
type Dialect int

const (
	// Question binds with "?" (SQLite, MySQL).
	Question Dialect = iota
	// Dollar binds with "$1", "$2", ... (PostgreSQL).
	Dollar
)

// DialectFor maps a database/sql driver name to its dialect.
func DialectFor(driver string) Dialect {
	switch strings.ToLower(driver) {
	case "pgx", "postgres", "postgresql":
		return Dollar
	default:
		return Question
	}
}

// bind rewrites "?" placeholders for the dialect.
func (d Dialect) bind(query string) string {
	if d != Dollar {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Option configures a Store.
type Option func(*Store)

// WithDialect sets the placeholder dialect. Question is the default.
func WithDialect(d Dialect) Option {
	return func(s *Store) {
		s.dialect = d
	}
}

// WithTablePrefix prefixes every table name. The default is "fieldtree_".
func WithTablePrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// WithContent formats reference values against another content source
// instead of the store's own items and terms tables.
func WithContent(content store.ContentSource) Option {
	return func(s *Store) {
		s.content = content
	}
}

// Store implements store.ValueStore and store.ContentSource.
type Store struct {
	db      *sql.DB
	index   schema.Index
	dialect Dialect
	prefix  string
	content store.ContentSource
}

var (
	_ store.ValueStore    = (*Store)(nil)
	_ store.ContentSource = (*Store)(nil)
)

// New wraps db. Field keys resolve through index.
func New(db *sql.DB, index schema.Index, options ...Option) *Store {
	s := &Store{
		db:     db,
		index:  index,
		prefix: "fieldtree_",
	}
	for _, opt := range options {
		if opt != nil {
			opt(s)
		}
	}
	if s.content == nil {
		s.content = s
	}
	return s
}

func (s *Store) table(name string) string {
	return s.prefix + name
}

// Migrate creates the store tables when they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	statements := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id BIGINT PRIMARY KEY,
	title TEXT NOT NULL DEFAULT '',
	content_type TEXT NOT NULL DEFAULT '',
	slug TEXT NOT NULL DEFAULT '',
	excerpt TEXT NOT NULL DEFAULT '',
	content TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT ''
)`, s.table("items")),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	term_id BIGINT PRIMARY KEY,
	term_taxonomy_id BIGINT NOT NULL DEFAULT 0,
	name TEXT NOT NULL DEFAULT '',
	taxonomy TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	parent BIGINT NOT NULL DEFAULT 0
)`, s.table("terms")),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	item_id BIGINT NOT NULL,
	name TEXT NOT NULL,
	value TEXT NOT NULL,
	PRIMARY KEY (item_id, name)
)`, s.table("field_values")),
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlstore: migrate: %w", convertError(err))
		}
	}
	return nil
}

// Values implements store.Reader.
func (s *Store) Values(ctx context.Context, itemID int64) (model.StoredValues, error) {
	raw, err := s.load(ctx, itemID)
	if err != nil {
		return nil, err
	}
	lookup, err := s.index.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return store.NewFormatter(s.content).Format(ctx, lookup, raw)
}

// PopulatedGroups implements store.Reader.
func (s *Store) PopulatedGroups(ctx context.Context, itemID int64) ([]string, error) {
	raw, err := s.load(ctx, itemID)
	if err != nil {
		return nil, err
	}
	lookup, err := s.index.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return store.PopulatedGroups(lookup, raw), nil
}

func (s *Store) load(ctx context.Context, itemID int64) (model.StoredValues, error) {
	query := s.dialect.bind(fmt.Sprintf("SELECT name, value FROM %s WHERE item_id = ?", s.table("field_values")))
	rows, err := s.db.QueryContext(ctx, query, itemID)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: load values of item %d: %w", itemID, convertError(err))
	}
	defer rows.Close()

	values := make(model.StoredValues)
	for rows.Next() {
		var (
			name    string
			payload string
		)
		if err := rows.Scan(&name, &payload); err != nil {
			return nil, fmt.Errorf("sqlstore: scan value: %w", err)
		}
		value, err := decodeValue(payload)
		if err != nil {
			return nil, fmt.Errorf("sqlstore: item %d field %q: %w", itemID, name, err)
		}
		values[name] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlstore: iterate values: %w", convertError(err))
	}
	return values, nil
}

// SetValue implements store.Writer.
func (s *Store) SetValue(ctx context.Context, itemID int64, key string, value any) error {
	lookup, err := s.index.Snapshot(ctx)
	if err != nil {
		return err
	}
	loc, err := store.Target(lookup, key)
	if err != nil {
		return err
	}
	name := loc.Definition.Name

	if value == nil {
		query := s.dialect.bind(fmt.Sprintf("DELETE FROM %s WHERE item_id = ? AND name = ?", s.table("field_values")))
		if _, err := s.db.ExecContext(ctx, query, itemID, name); err != nil {
			return fmt.Errorf("sqlstore: clear %q: %w", name, convertError(err))
		}
		return nil
	}

	payload, err := json.Marshal(store.StorageValue(loc.Definition, value))
	if err != nil {
		return fmt.Errorf("sqlstore: encode %q: %w", name, err)
	}
	query := s.dialect.bind(fmt.Sprintf(
		"INSERT INTO %s (item_id, name, value) VALUES (?, ?, ?) ON CONFLICT (item_id, name) DO UPDATE SET value = excluded.value",
		s.table("field_values"),
	))
	if _, err := s.db.ExecContext(ctx, query, itemID, name, string(payload)); err != nil {
		return fmt.Errorf("sqlstore: save %q: %w", name, convertError(err))
	}
	return nil
}

// Item implements store.ContentSource.
func (s *Store) Item(ctx context.Context, id int64) (model.Item, error) {
	query := s.dialect.bind(fmt.Sprintf(
		"SELECT id, title, content_type, slug, excerpt, content, status FROM %s WHERE id = ?",
		s.table("items"),
	))
	var item model.Item
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&item.ID, &item.Title, &item.ContentType, &item.Slug, &item.Excerpt, &item.Content, &item.Status,
	)
	if err != nil {
		return model.Item{}, fmt.Errorf("sqlstore: item %d: %w", id, convertError(err))
	}
	return item, nil
}

// Term implements store.ContentSource.
func (s *Store) Term(ctx context.Context, id int64) (model.Term, error) {
	query := s.dialect.bind(fmt.Sprintf(
		"SELECT term_id, term_taxonomy_id, name, taxonomy, description, parent FROM %s WHERE term_id = ?",
		s.table("terms"),
	))
	var term model.Term
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&term.TermID, &term.TermTaxonomyID, &term.Name, &term.Taxonomy, &term.Description, &term.Parent,
	)
	if err != nil {
		return model.Term{}, fmt.Errorf("sqlstore: term %d: %w", id, convertError(err))
	}
	return term, nil
}

// SaveItem inserts or replaces a content item.
func (s *Store) SaveItem(ctx context.Context, item model.Item) error {
	query := s.dialect.bind(fmt.Sprintf(
		`INSERT INTO %s (id, title, content_type, slug, excerpt, content, status) VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET title = excluded.title, content_type = excluded.content_type, slug = excluded.slug,
excerpt = excluded.excerpt, content = excluded.content, status = excluded.status`,
		s.table("items"),
	))
	_, err := s.db.ExecContext(ctx, query, item.ID, item.Title, item.ContentType, item.Slug, item.Excerpt, item.Content, item.Status)
	if err != nil {
		return fmt.Errorf("sqlstore: save item %d: %w", item.ID, convertError(err))
	}
	return nil
}

// SaveTerm inserts or replaces a taxonomy term.
func (s *Store) SaveTerm(ctx context.Context, term model.Term) error {
	query := s.dialect.bind(fmt.Sprintf(
		`INSERT INTO %s (term_id, term_taxonomy_id, name, taxonomy, description, parent) VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (term_id) DO UPDATE SET term_taxonomy_id = excluded.term_taxonomy_id, name = excluded.name,
taxonomy = excluded.taxonomy, description = excluded.description, parent = excluded.parent`,
		s.table("terms"),
	))
	_, err := s.db.ExecContext(ctx, query, term.TermID, term.TermTaxonomyID, term.Name, term.Taxonomy, term.Description, term.Parent)
	if err != nil {
		return fmt.Errorf("sqlstore: save term %d: %w", term.TermID, convertError(err))
	}
	return nil
}

func decodeValue(payload string) (any, error) {
	decoder := json.NewDecoder(bytes.NewReader([]byte(payload)))
	decoder.UseNumber()
	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}
	return value, nil
}

// convertError maps driver errors onto store sentinels.
func convertError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrItemNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "42P01" { // undefined_table
		return fmt.Errorf("%w: %s", ErrNotMigrated, pgErr.Message)
	}
	if strings.Contains(err.Error(), "no such table") {
		return fmt.Errorf("%w: %v", ErrNotMigrated, err)
	}
	return err
}
