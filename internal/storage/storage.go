// Package storage содержит хранилища последней известной записи пользователя.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mmeshcher/rewards-site/internal/model"
)

// ErrNotFound возвращается, если по ключу ничего не сохранено.
var ErrNotFound = errors.New("stored user not found")

// Store описывает хранилище записи пользователя. Каждое сохранение перезаписывает
// значение по ключу целиком.
type Store interface {
	Save(ctx context.Context, key string, u *model.User) error
	Load(ctx context.Context, key string) (*model.User, error)
	Close() error
}

func encodeUser(u *model.User) ([]byte, error) {
	b, err := json.Marshal(u)
	if err != nil {
		return nil, fmt.Errorf("encode user: %w", err)
	}
	return b, nil
}

func decodeUser(b []byte) (*model.User, error) {
	var u model.User
	if err := json.Unmarshal(b, &u); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	return &u, nil
}

// MemoryStore хранит записи в памяти процесса.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemoryStore создаёт пустое хранилище в памяти.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

// Save сохраняет запись пользователя.
func (m *MemoryStore) Save(_ context.Context, key string, u *model.User) error {
	b, err := encodeUser(u)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[key] = b
	return nil
}

// Load возвращает сохранённую запись пользователя.
func (m *MemoryStore) Load(_ context.Context, key string) (*model.User, error) {
	m.mu.RLock()
	b, ok := m.blobs[key]
	m.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}
	return decodeUser(b)
}

// Raw возвращает сохранённый JSON без декодирования.
func (m *MemoryStore) Raw(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.blobs[key]
	return b, ok
}

// Close ничего не делает.
func (m *MemoryStore) Close() error {
	return nil
}

// Options задаёт выбор хранилища. Используется первое заданное: PostgreSQL, Redis,
// каталог с файлами; если не задано ничего, записи хранятся в памяти.
type Options struct {
	DatabaseURI   string
	RedisAddress  string
	RedisPassword string
	RedisDB       int
	RedisTTL      time.Duration
	Dir           string
}

// Open создаёт хранилище согласно Options.
func Open(opts Options) (Store, error) {
	switch {
	case opts.DatabaseURI != "":
		s, err := NewPostgresStore(opts.DatabaseURI)
		if err != nil {
			return nil, err
		}
		return s, nil
	case opts.RedisAddress != "":
		s, err := NewRedisStore(opts.RedisAddress, opts.RedisPassword, opts.RedisDB, opts.RedisTTL)
		if err != nil {
			return nil, err
		}
		return s, nil
	case opts.Dir != "":
		s, err := NewFileStore(opts.Dir)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return NewMemoryStore(), nil
	}
}
