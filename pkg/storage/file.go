package storage

import (
	"context"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/netxfw/netguard/internal/utils/fileutil"
	"github.com/netxfw/netguard/pkg/errors"
	"gopkg.in/yaml.v3"
)

// YAMLStore implements Database using a single local YAML file
// YAMLStore 使用单个本地 YAML 文件实现 Database。
type YAMLStore struct {
	mu     sync.RWMutex
	path   string
	closed bool
}

// NewYAMLStore creates a new YAML-based storage provider.
// NewYAMLStore 创建一个新的基于 YAML 的存储提供程序。
func NewYAMLStore(path string) *YAMLStore {
	return &YAMLStore{path: path}
}

// fileData internal structure for YAML serialization
// fileData 用于 YAML 序列化的内部结构
type fileData struct {
	Blocked []BlockedEntry  `yaml:"blocked"`
	Journal []JournalRecord `yaml:"journal"`
}

func (s *YAMLStore) check(ctx context.Context) error {
	if s.closed {
		return errors.ErrStoreClosed
	}
	return ctx.Err()
}

// Record appends the entry unless it already exists.
// Record 追加条目，已存在时不做任何操作。
func (s *YAMLStore) Record(ctx context.Context, kind TargetKind, value string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return false, err
	}

	created := false
	err := s.updateFile(func(data *fileData) {
		for _, existing := range data.Blocked {
			if existing.Kind == kind && existing.Value == value {
				return
			}
		}
		data.Blocked = append(data.Blocked, BlockedEntry{Kind: kind, Value: value, CreatedAt: time.Now()})
		created = true
	})
	return created, err
}

// Forget removes the entry from the YAML file.
// Forget 从 YAML 文件中移除条目。
func (s *YAMLStore) Forget(ctx context.Context, kind TargetKind, value string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return false, err
	}

	removed := false
	err := s.updateFile(func(data *fileData) {
		newList := []BlockedEntry{}
		for _, existing := range data.Blocked {
			if existing.Kind == kind && existing.Value == value {
				removed = true
				continue
			}
			newList = append(newList, existing)
		}
		data.Blocked = newList
	})
	return removed, err
}

func (s *YAMLStore) Has(ctx context.Context, kind TargetKind, value string) (bool, error) {
	entries, err := s.List(ctx)
	if err != nil {
		return false, err
	}
	for _, e := range entries {
		if e.Kind == kind && e.Value == value {
			return true, nil
		}
	}
	return false, nil
}

func (s *YAMLStore) List(ctx context.Context) ([]BlockedEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	data, err := s.readFile()
	if err != nil {
		return nil, err
	}
	sort.SliceStable(data.Blocked, func(i, j int) bool {
		return data.Blocked[i].CreatedAt.Before(data.Blocked[j].CreatedAt)
	})
	return data.Blocked, nil
}

func (s *YAMLStore) Clear(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return 0, err
	}

	count := 0
	err := s.updateFile(func(data *fileData) {
		count = len(data.Blocked)
		data.Blocked = []BlockedEntry{}
	})
	return count, err
}

func (s *YAMLStore) AppendJournal(ctx context.Context, rec JournalRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return err
	}

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	return s.updateFile(func(data *fileData) {
		data.Journal = append(data.Journal, rec)
	})
}

func (s *YAMLStore) JournalEntries(ctx context.Context) ([]JournalRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	data, err := s.readFile()
	if err != nil {
		return nil, err
	}
	return data.Journal, nil
}

func (s *YAMLStore) TruncateJournal(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return err
	}

	return s.updateFile(func(data *fileData) {
		data.Journal = []JournalRecord{}
	})
}

func (s *YAMLStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// readFile returns empty data when the file does not exist yet.
// readFile 在文件尚不存在时返回空数据。
func (s *YAMLStore) readFile() (fileData, error) {
	var data fileData
	content, err := fileutil.ReadFileIfExists(filepath.Clean(s.path))
	if err != nil || content == nil {
		return data, err
	}
	err = yaml.Unmarshal(content, &data)
	return data, err
}

func (s *YAMLStore) updateFile(updater func(*fileData)) error {
	data, err := s.readFile()
	if err != nil {
		return err
	}
	updater(&data)

	content, err := yaml.Marshal(&data)
	if err != nil {
		return err
	}
	if err := fileutil.EnsureParentDir(s.path); err != nil {
		return err
	}
	return fileutil.AtomicWriteFile(s.path, content, 0600)
}
