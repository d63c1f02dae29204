package filesystem

import (
	"bufio"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"

	"udpcopier/internal/config"
	"udpcopier/internal/errors"
)

// FileInfo represents information about a file to be transferred
type FileInfo struct {
	Name     string
	Size     int64
	Path     string
	IsDir    bool
	Modified time.Time
}

// GetFileInfo returns information about a file
func GetFileInfo(path string) (*FileInfo, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return nil, errors.NewFileSystemError("stat", path, err)
	}

	return &FileInfo{
		Name:     stat.Name(),
		Size:     stat.Size(),
		Path:     path,
		IsDir:    stat.IsDir(),
		Modified: stat.ModTime(),
	}, nil
}

// ReadFileList reads one path per line from a text file. Blank lines are
// skipped and a leading ~ is expanded to the home directory.
func ReadFileList(path string) ([]string, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, errors.NewFileSystemError("expand", path, err)
	}

	file, err := os.Open(expanded)
	if err != nil {
		return nil, errors.NewFileSystemError("open_list", expanded, err)
	}
	defer file.Close()

	var paths []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		entry, err := homedir.Expand(line)
		if err != nil {
			slog.Warn("Keeping unexpanded path", "path", line, "error", err)
			entry = line
		}
		paths = append(paths, entry)
	}

	if err := scanner.Err(); err != nil {
		return nil, errors.NewFileSystemError("read_list", expanded, err)
	}

	return paths, nil
}

// EnsureDirectoryExists creates a directory if it doesn't exist
func EnsureDirectoryExists(dir string) error {
	if err := os.MkdirAll(dir, config.OutputDirPerms); err != nil {
		return errors.NewFileSystemError("mkdir", dir, err)
	}

	return nil
}
