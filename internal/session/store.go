package session

import (
	"sync"

	"github.com/mmeshcher/rewards-site/internal/model"
)

// Store владеет состоянием сессии. Изменить его можно только через Dispatch.
type Store struct {
	mu    sync.RWMutex
	state State
}

// NewStore создаёт хранилище с пустым состоянием.
func NewStore() *Store {
	return &Store{
		state: State{
			WinnersThisWeek: []model.Winner{},
			WinnersLastWeek: []model.Winner{},
		},
	}
}

// Dispatch применяет действие к состоянию.
func (s *Store) Dispatch(action Action) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Reduce(s.state, action)
}

// Snapshot возвращает текущее состояние. Пользователь копируется, списки победителей
// неизменяемы и разделяются.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := s.state
	if st.CurrentUser != nil {
		u := *st.CurrentUser
		st.CurrentUser = &u
	}
	return st
}

// CurrentUser возвращает копию текущего пользователя.
func (s *Store) CurrentUser() (model.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.state.CurrentUser == nil {
		return model.User{}, false
	}
	return *s.state.CurrentUser, true
}
