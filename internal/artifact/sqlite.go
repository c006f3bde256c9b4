package artifact

import (
	"context"
	"database/sql"
	"time"

	"github.com/YuminosukeSato/heartml/pkg/errors"
	_ "modernc.org/sqlite"
)

// SQLiteStore keeps every artifact as a row of one SQLite table, so a whole
// run travels as a single file.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path. Use ":memory:" for a
// throwaway store.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, "open sqlite %s", path)
	}
	// one connection: ":memory:" databases are per connection
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;`); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "open sqlite %s", path)
	}
	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS artifacts (
	  stage TEXT NOT NULL,
	  name TEXT NOT NULL,
	  data BLOB NOT NULL,
	  updated_at INTEGER NOT NULL,
	  PRIMARY KEY (stage, name)
	);
	`)
	return errors.Wrap(err, "migrate artifacts table")
}

// Close releases the database.
func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) Put(ctx context.Context, key Key, data []byte) error {
	if data == nil {
		data = []byte{}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO artifacts(stage, name, data, updated_at) VALUES(?,?,?,?)
		 ON CONFLICT(stage, name) DO UPDATE SET data=excluded.data, updated_at=excluded.updated_at`,
		key.Stage, key.Name, data, time.Now().Unix())
	if err != nil {
		return errors.Wrapf(err, "artifact %s", key)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, key Key) ([]byte, error) {
	var b []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM artifacts WHERE stage=? AND name=?`, key.Stage, key.Name).Scan(&b)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(errors.ErrArtifactNotFound, "artifact %s", key)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "artifact %s", key)
	}
	if b == nil {
		b = []byte{}
	}
	return b, nil
}

func (s *SQLiteStore) Exists(ctx context.Context, key Key) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM artifacts WHERE stage=? AND name=?`, key.Stage, key.Name).Scan(&n)
	if err != nil {
		return false, errors.Wrapf(err, "artifact %s", key)
	}
	return n > 0, nil
}
