package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mmeshcher/rewards-site/internal/model"
)

// FileStore хранит каждую запись в отдельном JSON-файле каталога.
type FileStore struct {
	dir string
}

// NewFileStore создаёт каталог при необходимости и возвращает хранилище поверх него.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (f *FileStore) path(key string) string {
	name := strings.NewReplacer("/", "_", "\\", "_", ":", "_").Replace(key)
	return filepath.Join(f.dir, name+".json")
}

// Save атомарно перезаписывает файл записи пользователя.
func (f *FileStore) Save(_ context.Context, key string, u *model.User) error {
	b, err := encodeUser(u)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(f.dir, ".userdata-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), f.path(key)); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// Load читает запись пользователя из файла.
func (f *FileStore) Load(_ context.Context, key string) (*model.User, error) {
	b, err := os.ReadFile(f.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read user file: %w", err)
	}
	return decodeUser(b)
}

// Close ничего не делает.
func (f *FileStore) Close() error {
	return nil
}
