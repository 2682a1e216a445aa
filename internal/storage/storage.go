package storage

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Store is a path-addressable byte store. Write places bytes and
// returns their path; Read, Exists and Delete work on that path.
type Store interface {
	Write(data []byte, ext string) (string, error)
	Read(path string) ([]byte, error)
	Exists(path string) bool
	Delete(path string) error
}

// Local stores files on the local filesystem under a base directory,
// named by random UUID plus extension.
type Local struct {
	BaseDir string
}

func NewLocal(baseDir string) (*Local, error) {
	if baseDir == "" {
		return nil, errors.New("storage: base dir is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, err
	}
	return &Local{BaseDir: baseDir}, nil
}

func (l *Local) Write(data []byte, ext string) (string, error) {
	name := uuid.NewString()
	if ext != "" {
		if ext[0] != '.' {
			ext = "." + ext
		}
		name += ext
	}
	path := filepath.Join(l.BaseDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func (l *Local) Read(path string) ([]byte, error) {
	return os.ReadFile(path)
}

func (l *Local) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (l *Local) Delete(path string) error {
	err := os.Remove(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
