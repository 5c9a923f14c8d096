package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/mmeshcher/rewards-site/internal/alert"
	"github.com/mmeshcher/rewards-site/internal/loading"
)

const storageKeyPrefix = "userdata:"

// Session объединяет состояние одного посетителя сайта с его каналом уведомлений
// и индикатором загрузки.
type Session struct {
	ID       string
	Store    *Store
	Alerts   *alert.Recorder
	Notifier alert.Notifier
	Loading  loading.Indicator

	lastSeen atomic.Int64
}

// New создаёт сессию с указанным идентификатором. Уведомления попадают в Alerts
// и дополнительно во все получатели extra.
func New(id string, extra ...alert.Notifier) *Session {
	rec := alert.NewRecorder()
	notifiers := append(alert.Multi{rec}, extra...)

	s := &Session{
		ID:       id,
		Store:    NewStore(),
		Alerts:   rec,
		Notifier: notifiers,
		Loading:  &loading.Counter{},
	}
	s.touch(time.Now())
	return s
}

// StorageKey возвращает ключ, под которым сохраняется последняя запись пользователя.
func (s *Session) StorageKey() string {
	return storageKeyPrefix + s.ID
}

func (s *Session) touch(now time.Time) {
	s.lastSeen.Store(now.UnixNano())
}

// LastSeen возвращает время последнего обращения к сессии.
func (s *Session) LastSeen() time.Time {
	return time.Unix(0, s.lastSeen.Load())
}

// Registry хранит активные сессии.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	limit    int
	notifier alert.Notifier
}

// NewRegistry создаёт реестр. Сессии, не использовавшиеся дольше ttl, удаляются при Sweep.
// notifier получает копии уведомлений всех сессий.
func NewRegistry(ttl time.Duration, notifier alert.Notifier) *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		notifier: notifier,
	}
}

// Create регистрирует новую сессию со случайным идентификатором.
func (r *Registry) Create() *Session {
	s, _ := r.CreateWithID(uuid.NewString())
	return s
}

// CreateWithID регистрирует сессию с уже выданным идентификатором, например после
// перезапуска сервера. Если сессия уже есть, возвращает её и false.
func (r *Registry) CreateWithID(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[id]; ok {
		s.touch(time.Now())
		return s, false
	}

	if r.limit > 0 && len(r.sessions) >= r.limit {
		r.evictOldestLocked()
	}

	var extra []alert.Notifier
	if r.notifier != nil {
		extra = append(extra, r.notifier)
	}
	s := New(id, extra...)
	r.sessions[id] = s

	return s, true
}

// WithLimit ограничивает число сессий в реестре. При переполнении удаляется
// сессия, к которой дольше всех не обращались.
func (r *Registry) WithLimit(limit int) *Registry {
	r.mu.Lock()
	r.limit = limit
	r.mu.Unlock()
	return r
}

func (r *Registry) evictOldestLocked() {
	var (
		oldestID string
		oldest   time.Time
	)
	for id, s := range r.sessions {
		if seen := s.LastSeen(); oldestID == "" || seen.Before(oldest) {
			oldestID, oldest = id, seen
		}
	}
	delete(r.sessions, oldestID)
}

// Get возвращает сессию по идентификатору и отмечает обращение к ней.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()

	if ok {
		s.touch(time.Now())
	}
	return s, ok
}

// All возвращает все активные сессии.
func (r *Registry) All() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		res = append(res, s)
	}
	return res
}

// Len возвращает число активных сессий.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Sweep удаляет сессии, простаивающие дольше ttl, и возвращает их число.
func (r *Registry) Sweep(now time.Time) int {
	if r.ttl <= 0 {
		return 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, s := range r.sessions {
		if now.Sub(s.LastSeen()) > r.ttl {
			delete(r.sessions, id)
			removed++
		}
	}
	return removed
}

// StartSweeper периодически удаляет простаивающие сессии до отмены ctx.
func (r *Registry) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				r.Sweep(now)
			}
		}
	}()
}
