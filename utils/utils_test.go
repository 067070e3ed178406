package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnsureFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dev", "config", "server.yml")

	assert.False(t, FileExist(path))
	assert.Nil(t, EnsureFile(path, []byte("port: 3000")))
	assert.True(t, FileExist(path))

	assert.Nil(t, EnsureFile(path, []byte("port: 4000")), "Existing file should be left alone")
	content, err := os.ReadFile(path)
	assert.Nil(t, err)
	assert.Equal(t, "port: 3000", string(content))
}

func TestDataDirInDevMode(t *testing.T) {
	wd, err := os.Getwd()
	assert.Nil(t, err)

	dir := t.TempDir()
	assert.Nil(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(wd) })

	dataDir, err := DataDir(true)
	assert.Nil(t, err)
	assert.Equal(t, filepath.Join(dir, DEV_DATA_DIR), dataDir)
	assert.True(t, FileExist(dataDir))
}
