package app

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v3/process"
)

// DefaultPidFile is where "netguard serve" records its process ID.
// DefaultPidFile 是 "netguard serve" 记录进程 ID 的位置。
const DefaultPidFile = "/var/run/netguard.pid"

// writePidFile records the current PID at path. A file naming a live
// process means another server is running; a stale one is replaced.
// writePidFile 将当前 PID 写入 path。若文件指向存活进程，说明已有服务在运行；过期文件会被替换。
func writePidFile(path string) error {
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if pid, perr := strconv.Atoi(strings.TrimSpace(string(data))); perr == nil && pid != os.Getpid() {
			if alive, _ := process.PidExists(int32(pid)); alive {
				return fmt.Errorf("PID file %s names running process %d. Is netguard already running?", path, pid)
			}
		}
	case !errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("failed to read PID file: %w", err)
	}

	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0644); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}
	return nil
}

func removePidFile(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove PID file: %w", err)
	}
	return nil
}
