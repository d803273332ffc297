// Package sync orchestrates document synchronization between the local vault
// and the two document platforms, keeping per-document state in a SQLite
// database so interrupted or concurrent runs do not lose track of uploads.
package sync

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	route          TEXT NOT NULL,
	rel_path       TEXT NOT NULL,
	notion_page_id TEXT NOT NULL DEFAULT '',
	quip_thread_id TEXT NOT NULL DEFAULT '',
	content_hash   TEXT NOT NULL DEFAULT '',
	last_synced    TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (route, rel_path)
);
CREATE TABLE IF NOT EXISTS media (
	route        TEXT NOT NULL,
	rel_path     TEXT NOT NULL,
	filename     TEXT NOT NULL,
	hash         TEXT NOT NULL DEFAULT '',
	upload_id    TEXT NOT NULL DEFAULT '',
	quip_blob_id TEXT NOT NULL DEFAULT '',
	size         INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (route, rel_path, filename)
);
CREATE TABLE IF NOT EXISTS runs (
	id        TEXT NOT NULL PRIMARY KEY,
	route     TEXT NOT NULL,
	direction TEXT NOT NULL,
	started   TEXT NOT NULL,
	finished  TEXT NOT NULL DEFAULT '',
	synced    INTEGER NOT NULL DEFAULT 0,
	failed    INTEGER NOT NULL DEFAULT 0
);
`

// DocumentState is the persisted record of one synced document.
type DocumentState struct {
	Route        string
	RelPath      string
	NotionPageID string
	QuipThreadID string
	ContentHash  string
	LastSynced   time.Time
}

// MediaState tracks one uploaded media file of a document. Hash matching
// against it lets repeated runs reuse platform uploads.
type MediaState struct {
	Filename   string
	Hash       string
	UploadID   string
	QuipBlobID string
	Size       int64
}

type Store struct {
	pool *sqlitex.Pool
	log  *zap.Logger
}

// OpenStore opens or creates the state database at path.
func OpenStore(path string, log *zap.Logger) (*Store, error) {

	pool, err := sqlitex.NewPool(path, sqlitex.PoolOptions{
		Flags:    sqlite.OpenReadWrite | sqlite.OpenCreate | sqlite.OpenWAL,
		PoolSize: 4,
	})
	if err != nil {
		return nil, fmt.Errorf("unable to open state database: %w", err)
	}

	s := &Store{pool: pool, log: log.Named("state")}

	conn, err := pool.Take(context.Background())
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to initialize state database: %w", err)
	}
	defer pool.Put(conn)

	if err := sqlitex.ExecuteScript(conn, schema, nil); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to initialize state database: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.pool.Close()
}

// Document returns the persisted state for a document or nil when it was
// never synced.
func (s *Store) Document(ctx context.Context, route, relPath string) (*DocumentState, error) {

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, err
	}
	defer s.pool.Put(conn)

	var doc *DocumentState
	err = sqlitex.Execute(conn,
		`SELECT notion_page_id, quip_thread_id, content_hash, last_synced FROM documents WHERE route = ? AND rel_path = ?`,
		&sqlitex.ExecOptions{
			Args: []any{route, relPath},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				doc = &DocumentState{
					Route:        route,
					RelPath:      relPath,
					NotionPageID: stmt.ColumnText(0),
					QuipThreadID: stmt.ColumnText(1),
					ContentHash:  stmt.ColumnText(2),
				}
				if ts := stmt.ColumnText(3); len(ts) > 0 {
					doc.LastSynced, _ = time.Parse(time.RFC3339, ts)
				}
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("unable to load document state: %w", err)
	}
	return doc, nil
}

// Media returns the persisted media records of a document keyed by filename.
func (s *Store) Media(ctx context.Context, route, relPath string) (map[string]MediaState, error) {

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, err
	}
	defer s.pool.Put(conn)

	out := make(map[string]MediaState)
	err = sqlitex.Execute(conn,
		`SELECT filename, hash, upload_id, quip_blob_id, size FROM media WHERE route = ? AND rel_path = ?`,
		&sqlitex.ExecOptions{
			Args: []any{route, relPath},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				m := MediaState{
					Filename:   stmt.ColumnText(0),
					Hash:       stmt.ColumnText(1),
					UploadID:   stmt.ColumnText(2),
					QuipBlobID: stmt.ColumnText(3),
					Size:       stmt.ColumnInt64(4),
				}
				out[m.Filename] = m
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("unable to load media state: %w", err)
	}
	return out, nil
}

// SaveDocument upserts document state together with its media records in one
// transaction. Media rows are replaced wholesale, dropped references do not
// linger.
func (s *Store) SaveDocument(ctx context.Context, doc *DocumentState, media []MediaState) (err error) {

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return err
	}
	defer s.pool.Put(conn)

	defer sqlitex.Transaction(conn)(&err)

	err = sqlitex.Execute(conn,
		`INSERT INTO documents (route, rel_path, notion_page_id, quip_thread_id, content_hash, last_synced)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (route, rel_path) DO UPDATE SET
			notion_page_id = excluded.notion_page_id,
			quip_thread_id = excluded.quip_thread_id,
			content_hash   = excluded.content_hash,
			last_synced    = excluded.last_synced`,
		&sqlitex.ExecOptions{Args: []any{
			doc.Route, doc.RelPath, doc.NotionPageID, doc.QuipThreadID,
			doc.ContentHash, doc.LastSynced.Format(time.RFC3339),
		}})
	if err != nil {
		return fmt.Errorf("unable to save document state: %w", err)
	}

	err = sqlitex.Execute(conn,
		`DELETE FROM media WHERE route = ? AND rel_path = ?`,
		&sqlitex.ExecOptions{Args: []any{doc.Route, doc.RelPath}})
	if err != nil {
		return fmt.Errorf("unable to clear media state: %w", err)
	}

	for _, m := range media {
		err = sqlitex.Execute(conn,
			`INSERT INTO media (route, rel_path, filename, hash, upload_id, quip_blob_id, size)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			&sqlitex.ExecOptions{Args: []any{
				doc.Route, doc.RelPath, m.Filename, m.Hash, m.UploadID, m.QuipBlobID, m.Size,
			}})
		if err != nil {
			return fmt.Errorf("unable to save media state: %w", err)
		}
	}
	return nil
}

// DeleteDocument removes the document and its media records.
func (s *Store) DeleteDocument(ctx context.Context, route, relPath string) (err error) {

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return err
	}
	defer s.pool.Put(conn)

	defer sqlitex.Transaction(conn)(&err)

	for _, stmt := range []string{
		`DELETE FROM media WHERE route = ? AND rel_path = ?`,
		`DELETE FROM documents WHERE route = ? AND rel_path = ?`,
	} {
		if err = sqlitex.Execute(conn, stmt, &sqlitex.ExecOptions{Args: []any{route, relPath}}); err != nil {
			return fmt.Errorf("unable to delete document state: %w", err)
		}
	}
	return nil
}

// Documents lists persisted state for all documents of a route.
func (s *Store) Documents(ctx context.Context, route string) ([]DocumentState, error) {

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, err
	}
	defer s.pool.Put(conn)

	var out []DocumentState
	err = sqlitex.Execute(conn,
		`SELECT rel_path, notion_page_id, quip_thread_id, content_hash, last_synced FROM documents WHERE route = ? ORDER BY rel_path`,
		&sqlitex.ExecOptions{
			Args: []any{route},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				doc := DocumentState{
					Route:        route,
					RelPath:      stmt.ColumnText(0),
					NotionPageID: stmt.ColumnText(1),
					QuipThreadID: stmt.ColumnText(2),
					ContentHash:  stmt.ColumnText(3),
				}
				if ts := stmt.ColumnText(4); len(ts) > 0 {
					doc.LastSynced, _ = time.Parse(time.RFC3339, ts)
				}
				out = append(out, doc)
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("unable to list document state: %w", err)
	}
	return out, nil
}

// BeginRun records the start of a sync run.
func (s *Store) BeginRun(ctx context.Context, runID, route, direction string) error {

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return err
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn,
		`INSERT INTO runs (id, route, direction, started) VALUES (?, ?, ?, ?)`,
		&sqlitex.ExecOptions{Args: []any{
			runID, route, direction, time.Now().Format(time.RFC3339),
		}})
	if err != nil {
		return fmt.Errorf("unable to record run start: %w", err)
	}
	return nil
}

// FinishRun records the outcome of a sync run.
func (s *Store) FinishRun(ctx context.Context, runID string, synced, failed int) error {

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return err
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn,
		`UPDATE runs SET finished = ?, synced = ?, failed = ? WHERE id = ?`,
		&sqlitex.ExecOptions{Args: []any{
			time.Now().Format(time.RFC3339), synced, failed, runID,
		}})
	if err != nil {
		return fmt.Errorf("unable to record run outcome: %w", err)
	}
	return nil
}
