package index

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"github.com/jmoiron/sqlx"
)

// documents live in a regular table keyed by id; the FTS5 table indexes their content
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS {docs} (
	id INTEGER PRIMARY KEY,
	key TEXT NOT NULL UNIQUE,
	path TEXT NOT NULL,
	content TEXT NOT NULL
);

CREATE VIRTUAL TABLE IF NOT EXISTS {fts} USING fts5(
	content,
	content={docs_lit},
	content_rowid='id',
	tokenize='unicode61 remove_diacritics 2'
);

CREATE TRIGGER IF NOT EXISTS {trg_ai} AFTER INSERT ON {docs} BEGIN
	INSERT INTO {fts}(rowid, content) VALUES (new.id, new.content);
END;

CREATE TRIGGER IF NOT EXISTS {trg_ad} AFTER DELETE ON {docs} BEGIN
	INSERT INTO {fts}({fts}, rowid, content) VALUES ('delete', old.id, old.content);
END;

CREATE TRIGGER IF NOT EXISTS {trg_au} AFTER UPDATE ON {docs} BEGIN
	INSERT INTO {fts}({fts}, rowid, content) VALUES ('delete', old.id, old.content);
	INSERT INTO {fts}(rowid, content) VALUES (new.id, new.content);
END;
`

// SQLiteIndex is an embedded full-text index backed by sqlite FTS5
type SQLiteIndex struct {
	db       *sqlx.DB
	name     string
	docs     string
	fts      string
	pageSize int
}

type sqliteRow struct {
	ID int64 `db:"id"`
	Document
}

// NewSQLiteIndex uses an existing database connection. The index takes ownership of db.
func NewSQLiteIndex(db *sqlx.DB, name string, pageSize int) *SQLiteIndex {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &SQLiteIndex{
		db:       db,
		name:     name,
		docs:     quoteIdent(name),
		fts:      quoteIdent(name + "_fts"),
		pageSize: pageSize,
	}
}

func (s *SQLiteIndex) Ensure(ctx context.Context) error {
	schema := strings.NewReplacer(
		"{docs_lit}", "'"+s.name+"'",
		"{docs}", s.docs,
		"{fts}", s.fts,
		"{trg_ai}", quoteIdent(s.name+"_ai"),
		"{trg_ad}", quoteIdent(s.name+"_ad"),
		"{trg_au}", quoteIdent(s.name+"_au"),
	).Replace(sqliteSchema)

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("sqlite: create index %s: %w", s.name, err)
	}
	return nil
}

func (s *SQLiteIndex) Snapshot(ctx context.Context) (Snapshot, error) {
	query := fmt.Sprintf("SELECT id, key, path, content FROM %s WHERE id > ? ORDER BY id LIMIT ?", s.docs)

	snapshot := make(Snapshot)
	var lastID int64
	for {
		var rows []*sqliteRow
		if err := s.db.SelectContext(ctx, &rows, query, lastID, s.pageSize); err != nil {
			return nil, fmt.Errorf("sqlite: read documents: %w", err)
		}

		for _, row := range rows {
			doc := row.Document
			snapshot[doc.Key] = &doc
		}

		if len(rows) < s.pageSize {
			break
		}
		lastID = rows[len(rows)-1].ID
	}

	return snapshot, nil
}

// Apply runs the whole batch in one transaction: either every item is applied or none is.
func (s *SQLiteIndex) Apply(ctx context.Context, batch *Batch) (*BulkResult, error) {
	result := &BulkResult{}
	if batch.Empty() {
		return result, nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sqlite: begin transaction: %w", err)
	}
	defer tx.Rollback()

	delStmt, err := tx.PreparexContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE key = ?", s.docs))
	if err != nil {
		return nil, fmt.Errorf("sqlite: prepare delete: %w", err)
	}
	defer delStmt.Close()

	upsertStmt, err := tx.PreparexContext(ctx, fmt.Sprintf(
		`INSERT INTO %s (key, path, content) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET path = excluded.path, content = excluded.content`, s.docs))
	if err != nil {
		return nil, fmt.Errorf("sqlite: prepare upsert: %w", err)
	}
	defer upsertStmt.Close()

	for _, key := range batch.Deletes {
		// deleting an absent key is not an error
		if _, err := delStmt.ExecContext(ctx, string(key)); err != nil {
			return nil, fmt.Errorf("sqlite: delete %s: %w", key, err)
		}
		result.Deleted++
	}

	for _, doc := range batch.Upserts {
		if _, err := upsertStmt.ExecContext(ctx, string(doc.Key), doc.Path, doc.Content); err != nil {
			return nil, fmt.Errorf("sqlite: upsert %s: %w", doc.Key, err)
		}
		result.Upserted++
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("sqlite: commit: %w", err)
	}

	return result, nil
}

// Refresh is a no-op: committed rows are immediately searchable.
func (s *SQLiteIndex) Refresh(ctx context.Context) error {
	return nil
}

func (s *SQLiteIndex) Search(ctx context.Context, phrase string, limit int) ([]*Hit, error) {
	match, ok := phraseQuery(phrase)
	if !ok {
		slog.Debug("sqlite search without tokens", "phrase", phrase)
		return []*Hit{}, nil
	}

	query := fmt.Sprintf(`
		SELECT d.key AS key, d.path AS path, -m.rank AS score
		FROM (SELECT rowid, rank FROM %[1]s WHERE %[1]s MATCH ? ORDER BY rank LIMIT ?) AS m
		JOIN %[2]s AS d ON d.id = m.rowid
		ORDER BY m.rank`, s.fts, s.docs)

	hits := []*Hit{}
	if err := s.db.SelectContext(ctx, &hits, query, match, limit); err != nil {
		return nil, fmt.Errorf("sqlite: search: %w", err)
	}
	return hits, nil
}

func (s *SQLiteIndex) Close() error {
	return s.db.Close()
}

// phraseQuery turns free text into an FTS5 phrase expression.
// ok is false when the text holds nothing the tokenizer would index.
func phraseQuery(text string) (string, bool) {
	hasToken := strings.IndexFunc(text, func(r rune) bool {
		return unicode.IsLetter(r) || unicode.IsDigit(r)
	}) >= 0
	if !hasToken {
		return "", false
	}
	return `"` + strings.ReplaceAll(text, `"`, `""`) + `"`, true
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

var _ Index = (*SQLiteIndex)(nil)
