package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/alimasry/go-live-edit/layout"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS layouts (
	page_slug        TEXT PRIMARY KEY,
	id               TEXT NOT NULL,
	components       TEXT NOT NULL,
	draft_components TEXT,
	published_at     INTEGER,
	draft_updated_at INTEGER,
	version          INTEGER NOT NULL,
	created_at       INTEGER NOT NULL,
	updated_at       INTEGER NOT NULL
);`

// SQLiteStore is a SQLite-backed implementation of LayoutStore.
// Component trees are stored as JSON columns.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path and bootstraps
// the schema. Use ":memory:" for an ephemeral store.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create layouts table: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func encodeComponents(comps []layout.Component) (string, error) {
	if comps == nil {
		comps = []layout.Component{}
	}
	data, err := json.Marshal(comps)
	if err != nil {
		return "", fmt.Errorf("encode components: %w", err)
	}
	return string(data), nil
}

func decodeComponents(data string) ([]layout.Component, error) {
	var comps []layout.Component
	if err := json.Unmarshal([]byte(data), &comps); err != nil {
		return nil, fmt.Errorf("decode components: %w", err)
	}
	return comps, nil
}

func unixPtr(ts sql.NullInt64) *time.Time {
	if !ts.Valid {
		return nil
	}
	t := time.Unix(ts.Int64, 0)
	return &t
}

func scanLayout(row interface{ Scan(...any) error }) (*Layout, error) {
	var (
		l           Layout
		components  string
		draft       sql.NullString
		publishedAt sql.NullInt64
		draftAt     sql.NullInt64
		createdAt   int64
		updatedAt   int64
	)
	err := row.Scan(&l.PageSlug, &l.ID, &components, &draft, &publishedAt, &draftAt, &l.Version, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	if l.Components, err = decodeComponents(components); err != nil {
		return nil, err
	}
	if draft.Valid {
		if l.DraftComponents, err = decodeComponents(draft.String); err != nil {
			return nil, err
		}
	}
	l.PublishedAt = unixPtr(publishedAt)
	l.DraftUpdatedAt = unixPtr(draftAt)
	l.CreatedAt = time.Unix(createdAt, 0)
	l.UpdatedAt = time.Unix(updatedAt, 0)
	return &l, nil
}

const selectLayout = `SELECT page_slug, id, components, draft_components, published_at, draft_updated_at, version, created_at, updated_at FROM layouts`

func (s *SQLiteStore) Get(ctx context.Context, pageSlug string) (*Layout, error) {
	now := time.Now().Unix()
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO layouts (page_slug, id, components, version, created_at, updated_at)
		 VALUES (?, ?, '[]', 1, ?, ?)`,
		pageSlug, uuid.NewString(), now, now)
	if err != nil {
		return nil, fmt.Errorf("create layout %q: %w", pageSlug, err)
	}

	row := s.db.QueryRowContext(ctx, selectLayout+` WHERE page_slug = ?`, pageSlug)
	l, err := scanLayout(row)
	if err != nil {
		return nil, fmt.Errorf("get layout %q: %w", pageSlug, err)
	}
	return l, nil
}

func (s *SQLiteStore) SaveDraft(ctx context.Context, pageSlug string, components []layout.Component) (time.Time, error) {
	encoded, err := encodeComponents(components)
	if err != nil {
		return time.Time{}, err
	}
	// Ensure the layout row exists.
	if _, err := s.Get(ctx, pageSlug); err != nil {
		return time.Time{}, err
	}
	now := time.Now()
	_, err = s.db.ExecContext(ctx,
		`UPDATE layouts SET draft_components = ?, draft_updated_at = ?, updated_at = ? WHERE page_slug = ?`,
		encoded, now.Unix(), now.Unix(), pageSlug)
	if err != nil {
		return time.Time{}, fmt.Errorf("save draft %q: %w", pageSlug, err)
	}
	return now, nil
}

func (s *SQLiteStore) DiscardDraft(ctx context.Context, pageSlug string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE layouts SET draft_components = NULL, draft_updated_at = NULL, updated_at = ? WHERE page_slug = ?`,
		time.Now().Unix(), pageSlug)
	if err != nil {
		return fmt.Errorf("discard draft %q: %w", pageSlug, err)
	}
	return nil
}

func (s *SQLiteStore) Publish(ctx context.Context, pageSlug string) (time.Time, int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return time.Time{}, 0, err
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, selectLayout+` WHERE page_slug = ?`, pageSlug)
	l, err := scanLayout(row)
	if err == sql.ErrNoRows {
		return time.Time{}, 0, ErrNotFound
	}
	if err != nil {
		return time.Time{}, 0, fmt.Errorf("publish %q: %w", pageSlug, err)
	}

	components := l.Components
	if l.DraftComponents != nil {
		components = l.DraftComponents
	}
	encoded, err := encodeComponents(components)
	if err != nil {
		return time.Time{}, 0, err
	}

	now := time.Now()
	version := l.Version + 1
	_, err = tx.ExecContext(ctx,
		`UPDATE layouts
		 SET components = ?, draft_components = NULL, draft_updated_at = NULL,
		     published_at = ?, version = ?, updated_at = ?
		 WHERE page_slug = ?`,
		encoded, now.Unix(), version, now.Unix(), pageSlug)
	if err != nil {
		return time.Time{}, 0, fmt.Errorf("publish %q: %w", pageSlug, err)
	}
	if err := tx.Commit(); err != nil {
		return time.Time{}, 0, err
	}
	return now, version, nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]Layout, error) {
	rows, err := s.db.QueryContext(ctx, selectLayout+` ORDER BY page_slug`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Layout
	for rows.Next() {
		l, err := scanLayout(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *l)
	}
	return result, rows.Err()
}
