package filesystem

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureDirectoryExists(t *testing.T) {
	testDir := filepath.Join(t.TempDir(), "received")

	// Test creating new directory
	err := EnsureDirectoryExists(testDir)
	assert.NoError(t, err)

	// Verify directory exists
	info, err := os.Stat(testDir)
	assert.NoError(t, err)
	assert.True(t, info.IsDir())

	// Test with existing directory
	err = EnsureDirectoryExists(testDir)
	assert.NoError(t, err)
}

func TestGetFileInfo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "info.txt")
	content := "test content for file info"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	info, err := GetFileInfo(path)
	assert.NoError(t, err)
	assert.False(t, info.IsDir)
	assert.Equal(t, int64(len(content)), info.Size)
	assert.Equal(t, "info.txt", info.Name)
	assert.NotZero(t, info.Modified)

	// Test with non-existent file
	_, err = GetFileInfo("non_existent_file.txt")
	assert.Error(t, err)
}

func TestEnsureDirectoryExistsAcceptsParentPaths(t *testing.T) {
	root := t.TempDir()

	dotted := filepath.Join(root, "out..put")
	require.NoError(t, EnsureDirectoryExists(dotted))
	assert.DirExists(t, dotted)

	work := filepath.Join(root, "work")
	require.NoError(t, os.Mkdir(work, 0755))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(work))
	t.Cleanup(func() { os.Chdir(wd) })

	require.NoError(t, EnsureDirectoryExists("../received"))
	assert.DirExists(t, filepath.Join(root, "received"))
}

func TestReadFileList(t *testing.T) {
	dir := t.TempDir()
	listPath := filepath.Join(dir, "files.txt")
	content := "a.bin\n\n  b.bin  \n/tmp/c.bin\n\n"
	require.NoError(t, os.WriteFile(listPath, []byte(content), 0644))

	paths, err := ReadFileList(listPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.bin", "b.bin", "/tmp/c.bin"}, paths)
}

func TestReadFileListExpandsHome(t *testing.T) {
	listPath := filepath.Join(t.TempDir(), "files.txt")
	require.NoError(t, os.WriteFile(listPath, []byte("~/data.bin\n"), 0644))

	paths, err := ReadFileList(listPath)
	require.NoError(t, err)
	require.Len(t, paths, 1)
	assert.NotContains(t, paths[0], "~")
	assert.Equal(t, "data.bin", filepath.Base(paths[0]))
}

func TestReadFileListMissing(t *testing.T) {
	_, err := ReadFileList(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}
