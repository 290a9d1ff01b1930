// Package logs reads the engine's own log file back for operators.
// Package logs 为操作员回读引擎自身的日志文件。
package logs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/nxadm/tail"
)

// File reads one log file. Rotation is handled by reopening on follow.
// File 读取一个日志文件，跟随时通过重新打开处理轮转。
type File struct {
	Path string
}

func NewFile(path string) *File {
	return &File{Path: path}
}

// Recent returns up to n of the newest lines, oldest first. A missing file has no lines.
// Recent 返回最多 n 条最新的日志行，按从旧到新排列。文件不存在时返回空。
func (f *File) Recent(ctx context.Context, n int) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}
	if _, err := os.Stat(f.Path); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}

	t, err := tail.TailFile(f.Path, tail.Config{
		Follow:    false,
		MustExist: true,
		Logger:    tail.DiscardingLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("open log %s: %w", f.Path, err)
	}
	defer t.Cleanup()
	defer func() { _ = t.Stop() }()

	ring := make([]string, 0, n)
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case line, ok := <-t.Lines:
			if !ok {
				return ring, nil
			}
			if line.Err != nil {
				return nil, fmt.Errorf("read log %s: %w", f.Path, line.Err)
			}
			if len(ring) == n {
				copy(ring, ring[1:])
				ring = ring[:n-1]
			}
			ring = append(ring, line.Text)
		}
	}
}

// Follow calls fn for every line appended after it starts, until ctx is done.
// Follow 对开始之后追加的每一行调用 fn，直到 ctx 结束。
func (f *File) Follow(ctx context.Context, fn func(line string)) error {
	t, err := tail.TailFile(f.Path, tail.Config{
		Location:  &tail.SeekInfo{Offset: 0, Whence: io.SeekEnd},
		Follow:    true,
		ReOpen:    true,
		MustExist: false,
		Poll:      true,
		Logger:    tail.DiscardingLogger,
	})
	if err != nil {
		return fmt.Errorf("follow log %s: %w", f.Path, err)
	}
	defer t.Cleanup()

	for {
		select {
		case <-ctx.Done():
			_ = t.Stop()
			return nil
		case line, ok := <-t.Lines:
			if !ok {
				return t.Err()
			}
			if line.Err != nil {
				continue
			}
			fn(line.Text)
		}
	}
}
