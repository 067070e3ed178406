package utils

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

const (
	DATA_DIR     = "enablex"
	DEV_DATA_DIR = "dev"
)

// FileExist reports whether something exists at filePath. Stat errors other
// than a missing file count as existing, the caller's open will surface them.
func FileExist(filePath string) bool {
	_, err := os.Stat(filePath)
	return !errors.Is(err, fs.ErrNotExist)
}

func CreateDirIfNotExist(dir string) error {
	if !FileExist(dir) {
		return os.MkdirAll(dir, 0700)
	}

	return nil
}

// DataDir returns the directory enablex keeps its data in, creating it if
// needed: ~/enablex, or ./dev in dev mode
func DataDir(devMode bool) (string, error) {
	var rootDir string
	var err error

	if devMode {
		rootDir, err = os.Getwd()
	} else {
		rootDir, err = os.UserHomeDir()
	}
	if err != nil {
		return "", err
	}

	name := DATA_DIR
	if devMode {
		name = DEV_DATA_DIR
	}

	dir := filepath.Join(rootDir, name)
	return dir, CreateDirIfNotExist(dir)
}

// EnsureFile writes content to filePath, with its parent directories, unless
// a file is already there
func EnsureFile(filePath string, content []byte) error {
	if FileExist(filePath) {
		return nil
	}

	if err := CreateDirIfNotExist(filepath.Dir(filePath)); err != nil {
		return err
	}
	return os.WriteFile(filePath, content, 0600)
}
