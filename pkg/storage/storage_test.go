package storage

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/netxfw/netguard/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// backends returns a fresh instance of every Database implementation.
// backends 返回每种 Database 实现的新实例。
func backends(t *testing.T) map[string]Database {
	t.Helper()
	dir := t.TempDir()

	sqliteDB, err := NewSQLiteStore(filepath.Join(dir, "netguard.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqliteDB.Close() })

	memDB, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { memDB.Close() })

	return map[string]Database{
		"sqlite":        sqliteDB,
		"sqlite-memory": memDB,
		"yaml":          NewYAMLStore(filepath.Join(dir, "state", "blocked.yaml")),
	}
}

// TestTargetKind tests kind constants
// TestTargetKind 测试目标类型常量
func TestTargetKind(t *testing.T) {
	assert.True(t, KindIP.Valid())
	assert.True(t, KindPort.Valid())
	assert.False(t, TargetKind("mac").Valid())
	assert.Equal(t, "ip 10.0.0.1", BlockedEntry{Kind: KindIP, Value: "10.0.0.1"}.String())
}

// TestOpen tests the driver factory
// TestOpen 测试驱动工厂
func TestOpen(t *testing.T) {
	dir := t.TempDir()

	db, err := Open(DriverSQLite, filepath.Join(dir, "a.db"))
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, db)
	require.NoError(t, db.Close())

	db, err = Open(DriverYAML, filepath.Join(dir, "a.yaml"))
	require.NoError(t, err)
	assert.IsType(t, &YAMLStore{}, db)

	_, err = Open("redis", "")
	assert.Error(t, err)
}

// TestStore_RecordIsIdempotent tests that duplicate inserts are silent no-ops
// TestStore_RecordIsIdempotent 测试重复插入为静默空操作
func TestStore_RecordIsIdempotent(t *testing.T) {
	ctx := context.Background()
	for name, db := range backends(t) {
		t.Run(name, func(t *testing.T) {
			created, err := db.Record(ctx, KindIP, "10.0.0.5")
			require.NoError(t, err)
			assert.True(t, created)

			created, err = db.Record(ctx, KindIP, "10.0.0.5")
			require.NoError(t, err)
			assert.False(t, created)

			// Same value, different kind is a separate entry
			// 相同值、不同类型是独立条目
			created, err = db.Record(ctx, KindPort, "10.0.0.5")
			require.NoError(t, err)
			assert.True(t, created)

			entries, err := db.List(ctx)
			require.NoError(t, err)
			assert.Len(t, entries, 2)
		})
	}
}

// TestStore_ForgetAndHas tests removal and lookup
// TestStore_ForgetAndHas 测试移除与查询
func TestStore_ForgetAndHas(t *testing.T) {
	ctx := context.Background()
	for name, db := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := db.Record(ctx, KindPort, "8080")
			require.NoError(t, err)

			has, err := db.Has(ctx, KindPort, "8080")
			require.NoError(t, err)
			assert.True(t, has)

			removed, err := db.Forget(ctx, KindPort, "8080")
			require.NoError(t, err)
			assert.True(t, removed)

			removed, err = db.Forget(ctx, KindPort, "8080")
			require.NoError(t, err)
			assert.False(t, removed)

			has, err = db.Has(ctx, KindPort, "8080")
			require.NoError(t, err)
			assert.False(t, has)
		})
	}
}

// TestStore_ListOrderAndClear tests ordering and Clear count
// TestStore_ListOrderAndClear 测试排序与 Clear 计数
func TestStore_ListOrderAndClear(t *testing.T) {
	ctx := context.Background()
	for name, db := range backends(t) {
		t.Run(name, func(t *testing.T) {
			entries, err := db.List(ctx)
			require.NoError(t, err)
			assert.Empty(t, entries)

			for _, v := range []string{"1.1.1.1", "2.2.2.2", "3.3.3.3"} {
				_, err := db.Record(ctx, KindIP, v)
				require.NoError(t, err)
				time.Sleep(time.Millisecond)
			}

			entries, err = db.List(ctx)
			require.NoError(t, err)
			require.Len(t, entries, 3)
			assert.Equal(t, "1.1.1.1", entries[0].Value)
			assert.Equal(t, "3.3.3.3", entries[2].Value)
			assert.False(t, entries[0].CreatedAt.IsZero())

			n, err := db.Clear(ctx)
			require.NoError(t, err)
			assert.Equal(t, 3, n)

			entries, err = db.List(ctx)
			require.NoError(t, err)
			assert.Empty(t, entries)
		})
	}
}

// TestJournal_AppendOrderAndTruncate tests journal ordering
// TestJournal_AppendOrderAndTruncate 测试日志顺序与截断
func TestJournal_AppendOrderAndTruncate(t *testing.T) {
	ctx := context.Background()
	for name, db := range backends(t) {
		t.Run(name, func(t *testing.T) {
			for i, v := range []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"} {
				require.NoError(t, db.AppendJournal(ctx, JournalRecord{
					ID:      string(rune('a' + i)),
					Command: []string{"-D", "NETGUARD", "-s", v, "-j", "DROP"},
					Kind:    KindIP,
					Value:   v,
				}))
			}

			records, err := db.JournalEntries(ctx)
			require.NoError(t, err)
			require.Len(t, records, 3)
			assert.Equal(t, "a", records[0].ID)
			assert.Equal(t, "c", records[2].ID)
			assert.Equal(t, []string{"-D", "NETGUARD", "-s", "10.0.0.3", "-j", "DROP"}, records[2].Command)
			assert.Equal(t, KindIP, records[2].Kind)
			assert.False(t, records[0].CreatedAt.IsZero())

			require.NoError(t, db.TruncateJournal(ctx))
			records, err = db.JournalEntries(ctx)
			require.NoError(t, err)
			assert.Empty(t, records)
		})
	}
}

// TestStore_Closed tests that a closed store refuses work
// TestStore_Closed 测试已关闭的存储拒绝操作
func TestStore_Closed(t *testing.T) {
	ctx := context.Background()
	for name, db := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, db.Close())
			require.NoError(t, db.Close())

			_, err := db.Record(ctx, KindIP, "10.0.0.1")
			assert.ErrorIs(t, err, errors.ErrStoreClosed)
			_, err = db.List(ctx)
			assert.ErrorIs(t, err, errors.ErrStoreClosed)
			assert.ErrorIs(t, db.TruncateJournal(ctx), errors.ErrStoreClosed)
		})
	}
}

// TestStore_CanceledContext tests context cancellation
// TestStore_CanceledContext 测试上下文取消
func TestStore_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for name, db := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := db.Record(ctx, KindIP, "10.0.0.1")
			assert.ErrorIs(t, err, context.Canceled)
		})
	}
}

// TestStore_ConcurrentRecord tests that concurrent duplicate inserts create one entry
// TestStore_ConcurrentRecord 测试并发重复插入只创建一个条目
func TestStore_ConcurrentRecord(t *testing.T) {
	ctx := context.Background()
	for name, db := range backends(t) {
		t.Run(name, func(t *testing.T) {
			var (
				wg      sync.WaitGroup
				mu      sync.Mutex
				created int
			)
			for i := 0; i < 8; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					ok, err := db.Record(ctx, KindPort, "3306")
					assert.NoError(t, err)
					if ok {
						mu.Lock()
						created++
						mu.Unlock()
					}
				}()
			}
			wg.Wait()

			assert.Equal(t, 1, created)
			entries, err := db.List(ctx)
			require.NoError(t, err)
			assert.Len(t, entries, 1)
		})
	}
}

// TestSQLiteStore_Persistence tests data survives reopen
// TestSQLiteStore_Persistence 测试重新打开后数据仍然存在
func TestSQLiteStore_Persistence(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "persist.db")

	db, err := NewSQLiteStore(path)
	require.NoError(t, err)
	_, err = db.Record(ctx, KindIP, "192.0.2.1")
	require.NoError(t, err)
	require.NoError(t, db.AppendJournal(ctx, JournalRecord{ID: "x", Command: []string{"-D"}, Kind: KindIP, Value: "192.0.2.1"}))
	require.NoError(t, db.Close())

	db, err = NewSQLiteStore(path)
	require.NoError(t, err)
	defer db.Close()

	has, err := db.Has(ctx, KindIP, "192.0.2.1")
	require.NoError(t, err)
	assert.True(t, has)
	records, err := db.JournalEntries(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

// TestYAMLStore_PreservesFile tests the YAML file layout
// TestYAMLStore_PreservesFile 测试 YAML 文件布局
func TestYAMLStore_PreservesFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "blocked.yaml")
	store := NewYAMLStore(path)

	_, err := store.Record(ctx, KindIP, "198.51.100.7")
	require.NoError(t, err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "blocked:")
	assert.Contains(t, string(content), "198.51.100.7")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	// A second handle on the same file sees the entry
	// 同一文件的第二个句柄可以看到该条目
	other := NewYAMLStore(path)
	has, err := other.Has(ctx, KindIP, "198.51.100.7")
	require.NoError(t, err)
	assert.True(t, has)
}

// TestYAMLStore_Malformed tests that a corrupt file surfaces an error
// TestYAMLStore_Malformed 测试损坏文件返回错误
func TestYAMLStore_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("blocked: [::"), 0600))

	_, err := NewYAMLStore(path).List(context.Background())
	assert.Error(t, err)
}
