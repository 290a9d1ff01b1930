package fileutil

import (
	"os"
	"path/filepath"
)

// AtomicWriteFile writes data to a temporary file and then renames it to the target file.
// AtomicWriteFile 将数据写入临时文件，然后将其重命名为目标文件。
func AtomicWriteFile(filename string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(filename) // #nosec G703 // Safe: filepath.Dir cleans the path preventing traversal
	tmpFile, err := os.CreateTemp(dir, "atomic-*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmpFile.Name()) // Clean up if something fails

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return err
	}
	if err := tmpFile.Chmod(perm); err != nil {
		tmpFile.Close()
		return err
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return err
	}
	if err := tmpFile.Close(); err != nil {
		return err
	}

	return os.Rename(tmpFile.Name(), filename) // #nosec G703 // filename is validated by caller
}

// EnsureParentDir creates the directory that will hold path, if missing.
// EnsureParentDir 创建用于存放 path 的目录（如果不存在）。
func EnsureParentDir(path string) error {
	dir := filepath.Dir(filepath.Clean(path))
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0750)
}

// ReadFileIfExists returns the file content, or nil without error if the file does not exist.
// ReadFileIfExists 返回文件内容；如果文件不存在，则返回 nil 且不报错。
func ReadFileIfExists(path string) ([]byte, error) {
	safePath := filepath.Clean(path)      // Sanitize path to prevent directory traversal
	content, err := os.ReadFile(safePath) // #nosec G304 // path is sanitized with filepath.Clean
	if os.IsNotExist(err) {
		return nil, nil
	}
	return content, err
}
