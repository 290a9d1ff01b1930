package safety

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/netxfw/netguard/internal/utils/fileutil"
)

// Flag file contents.
// 标志文件内容。
const (
	FlagOn  = "ON"
	FlagOff = "OFF"
)

// ModeSource reads and persists the Safe Mode kill-switch.
// ModeSource 读取并持久化安全模式总开关。
type ModeSource interface {
	SafeMode(ctx context.Context) (bool, error)
	SetSafeMode(ctx context.Context, on bool) error
}

// FileMode keeps Safe Mode in a flag file. A missing file means off.
// FileMode 将安全模式保存在标志文件中。文件不存在表示关闭。
type FileMode struct {
	Path string
}

func NewFileMode(path string) *FileMode {
	return &FileMode{Path: path}
}

func (f *FileMode) SafeMode(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	content, err := fileutil.ReadFileIfExists(f.Path)
	if err != nil {
		return false, fmt.Errorf("read safe mode flag: %w", err)
	}
	if content == nil {
		return false, nil
	}
	switch strings.ToUpper(strings.TrimSpace(string(content))) {
	case FlagOn:
		return true, nil
	case FlagOff, "":
		return false, nil
	default:
		return false, fmt.Errorf("unrecognized safe mode flag %q in %s", strings.TrimSpace(string(content)), f.Path)
	}
}

func (f *FileMode) SetSafeMode(ctx context.Context, on bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	flag := FlagOff
	if on {
		flag = FlagOn
	}
	if err := fileutil.EnsureParentDir(f.Path); err != nil {
		return err
	}
	return fileutil.AtomicWriteFile(f.Path, []byte(flag+"\n"), 0600)
}

// MemoryMode is a process-local ModeSource.
// MemoryMode 是进程内的 ModeSource。
type MemoryMode struct {
	on atomic.Bool
}

func NewMemoryMode(on bool) *MemoryMode {
	m := &MemoryMode{}
	m.on.Store(on)
	return m
}

func (m *MemoryMode) SafeMode(ctx context.Context) (bool, error) {
	return m.on.Load(), nil
}

func (m *MemoryMode) SetSafeMode(ctx context.Context, on bool) error {
	m.on.Store(on)
	return nil
}
