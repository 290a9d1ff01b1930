package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/netxfw/netguard/internal/utils/fileutil"
	"github.com/netxfw/netguard/pkg/errors"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS blocked_entries (
	kind       TEXT NOT NULL,
	value      TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	UNIQUE(kind, value)
);
CREATE TABLE IF NOT EXISTS rollback_journal (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	id         TEXT NOT NULL,
	command    TEXT NOT NULL,
	kind       TEXT NOT NULL,
	value      TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
`

// SQLiteStore implements Database on a single SQLite file.
// SQLiteStore 基于单个 SQLite 文件实现 Database。
type SQLiteStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	closed bool
}

// NewSQLiteStore opens (and creates if needed) the database at path.
// ":memory:" keeps everything in RAM.
// NewSQLiteStore 打开（必要时创建）path 处的数据库。
// ":memory:" 表示完全保存在内存中。
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	dsn := path
	if path != ":memory:" {
		if err := fileutil.EnsureParentDir(path); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
		dsn = "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open storage db: %w", err)
	}
	// One connection: writes are serialized and ":memory:" stays a single database.
	// 单连接：写入串行化，":memory:" 保持为同一个数据库。
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create storage tables: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) check(ctx context.Context) error {
	if s.closed {
		return errors.ErrStoreClosed
	}
	return ctx.Err()
}

// Record inserts the entry unless it already exists.
// Record 插入条目，已存在时不做任何操作。
func (s *SQLiteStore) Record(ctx context.Context, kind TargetKind, value string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return false, err
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO blocked_entries (kind, value, created_at) VALUES (?, ?, ?)`,
		string(kind), value, time.Now().UnixNano())
	if err != nil {
		return false, fmt.Errorf("insert blocked entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Forget deletes the entry if present.
// Forget 删除条目（若存在）。
func (s *SQLiteStore) Forget(ctx context.Context, kind TargetKind, value string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return false, err
	}

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM blocked_entries WHERE kind = ? AND value = ?`, string(kind), value)
	if err != nil {
		return false, fmt.Errorf("delete blocked entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *SQLiteStore) Has(ctx context.Context, kind TargetKind, value string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return false, err
	}

	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM blocked_entries WHERE kind = ? AND value = ?`, string(kind), value).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query blocked entry: %w", err)
	}
	return true, nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]BlockedEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT kind, value, created_at FROM blocked_entries ORDER BY created_at, rowid`)
	if err != nil {
		return nil, fmt.Errorf("query blocked entries: %w", err)
	}
	defer rows.Close()

	var entries []BlockedEntry
	for rows.Next() {
		var (
			e    BlockedEntry
			kind string
			ts   int64
		)
		if err := rows.Scan(&kind, &e.Value, &ts); err != nil {
			return nil, fmt.Errorf("scan blocked entry: %w", err)
		}
		e.Kind = TargetKind(kind)
		e.CreatedAt = time.Unix(0, ts)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *SQLiteStore) Clear(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return 0, err
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM blocked_entries`)
	if err != nil {
		return 0, fmt.Errorf("clear blocked entries: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (s *SQLiteStore) AppendJournal(ctx context.Context, rec JournalRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return err
	}

	cmd, err := json.Marshal(rec.Command)
	if err != nil {
		return err
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO rollback_journal (id, command, kind, value, created_at) VALUES (?, ?, ?, ?, ?)`,
		rec.ID, string(cmd), string(rec.Kind), rec.Value, rec.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("insert journal record: %w", err)
	}
	return nil
}

func (s *SQLiteStore) JournalEntries(ctx context.Context) ([]JournalRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, command, kind, value, created_at FROM rollback_journal ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()

	var records []JournalRecord
	for rows.Next() {
		var (
			rec  JournalRecord
			cmd  string
			kind string
			ts   int64
		)
		if err := rows.Scan(&rec.ID, &cmd, &kind, &rec.Value, &ts); err != nil {
			return nil, fmt.Errorf("scan journal record: %w", err)
		}
		if err := json.Unmarshal([]byte(cmd), &rec.Command); err != nil {
			return nil, fmt.Errorf("decode journal command %s: %w", rec.ID, err)
		}
		rec.Kind = TargetKind(kind)
		rec.CreatedAt = time.Unix(0, ts)
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *SQLiteStore) TruncateJournal(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM rollback_journal`); err != nil {
		return fmt.Errorf("truncate journal: %w", err)
	}
	return nil
}

// Close releases the database. Further calls return ErrStoreClosed.
// Close 释放数据库，之后的调用返回 ErrStoreClosed。
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
