package storage

import (
	"context"
	"fmt"
	"time"
)

// TargetKind names what a blocked entry matches on.
// TargetKind 表示封禁条目匹配的目标类型。
type TargetKind string

const (
	KindIP   TargetKind = "ip"
	KindPort TargetKind = "port"
)

// Valid reports whether k is a known kind.
func (k TargetKind) Valid() bool {
	return k == KindIP || k == KindPort
}

// Storage drivers.
// 存储驱动。
const (
	DriverSQLite = "sqlite"
	DriverYAML   = "yaml"
)

// BlockedEntry is one target currently denied by the engine.
// At most one entry exists per (Kind, Value).
// BlockedEntry 表示引擎当前封禁的一个目标。
// 每个 (Kind, Value) 最多存在一条。
type BlockedEntry struct {
	Kind      TargetKind `yaml:"kind" json:"kind"`
	Value     string     `yaml:"value" json:"value"`
	CreatedAt time.Time  `yaml:"created_at" json:"created_at"`
}

// String renders the entry as "kind value".
func (e BlockedEntry) String() string {
	return fmt.Sprintf("%s %s", e.Kind, e.Value)
}

// JournalRecord is the inverse of one successful block.
// Kind and Value identify the entry that the inverse releases.
// JournalRecord 是一次成功封禁的逆操作。
// Kind 与 Value 标识该逆操作释放的条目。
type JournalRecord struct {
	ID        string     `yaml:"id" json:"id"`
	Command   []string   `yaml:"command" json:"command"`
	Kind      TargetKind `yaml:"kind" json:"kind"`
	Value     string     `yaml:"value" json:"value"`
	CreatedAt time.Time  `yaml:"created_at" json:"created_at"`
}

// Store persists the set of blocked entries.
// Store 持久化封禁条目集合。
type Store interface {
	// Record inserts (kind, value); created is false when it already existed.
	// Record 插入 (kind, value)；已存在时 created 为 false。
	Record(ctx context.Context, kind TargetKind, value string) (created bool, err error)
	// Forget deletes (kind, value); removed is false when it was absent.
	// Forget 删除 (kind, value)；不存在时 removed 为 false。
	Forget(ctx context.Context, kind TargetKind, value string) (removed bool, err error)
	// Has reports whether (kind, value) is recorded.
	// Has 判断 (kind, value) 是否已记录。
	Has(ctx context.Context, kind TargetKind, value string) (bool, error)
	// List returns all entries ordered by creation time.
	// List 按创建时间返回全部条目。
	List(ctx context.Context) ([]BlockedEntry, error)
	// Clear deletes every entry and returns how many there were.
	// Clear 删除所有条目并返回删除数量。
	Clear(ctx context.Context) (int, error)
	Close() error
}

// Journal persists rollback records in append order.
// Journal 按追加顺序持久化回滚记录。
type Journal interface {
	AppendJournal(ctx context.Context, rec JournalRecord) error
	// JournalEntries returns records oldest first.
	// JournalEntries 按从旧到新返回记录。
	JournalEntries(ctx context.Context) ([]JournalRecord, error)
	TruncateJournal(ctx context.Context) error
}

// Database is a store that also keeps the rollback journal.
// Database 是同时保存回滚日志的存储。
type Database interface {
	Store
	Journal
}

// Open returns the Database for driver at path.
// Open 根据驱动和路径返回 Database。
func Open(driver, path string) (Database, error) {
	switch driver {
	case DriverSQLite, "":
		return NewSQLiteStore(path)
	case DriverYAML:
		return NewYAMLStore(path), nil
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", driver)
	}
}
