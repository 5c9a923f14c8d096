// Package session хранит состояние сессии пользователя сайта и реестр сессий.
package session

import "github.com/mmeshcher/rewards-site/internal/model"

// State содержит текущего пользователя и таблицы лидеров.
type State struct {
	CurrentUser     *model.User    `json:"currentUser"`
	WinnersThisWeek []model.Winner `json:"winnersOfThisWeek"`
	WinnersLastWeek []model.Winner `json:"winnersOfLastWeek"`
}

// Kind определяет тип действия над состоянием.
type Kind int

const (
	KindUnknown Kind = iota
	KindSetCurrentUser
	KindSetWinnersThisWeek
	KindSetWinnersLastWeek
)

func (k Kind) String() string {
	switch k {
	case KindSetCurrentUser:
		return "SET_CURRENT_USER"
	case KindSetWinnersThisWeek:
		return "SET_WINNERS_THIS_WEEK"
	case KindSetWinnersLastWeek:
		return "SET_WINNERS_LAST_WEEK"
	default:
		return "UNKNOWN"
	}
}

// Action описывает изменение состояния. Используется только поле, соответствующее Kind.
type Action struct {
	Kind    Kind
	User    *model.User
	Winners []model.Winner
}

// SetCurrentUser заменяет текущего пользователя целиком.
func SetCurrentUser(u *model.User) Action {
	return Action{Kind: KindSetCurrentUser, User: u}
}

// SetWinnersThisWeek заменяет таблицу лидеров текущей недели.
func SetWinnersThisWeek(ws []model.Winner) Action {
	return Action{Kind: KindSetWinnersThisWeek, Winners: ws}
}

// SetWinnersLastWeek заменяет таблицу лидеров прошлой недели.
func SetWinnersLastWeek(ws []model.Winner) Action {
	return Action{Kind: KindSetWinnersLastWeek, Winners: ws}
}

// Reduce возвращает новое состояние, полученное применением действия к state.
// Неизвестные действия возвращают state без изменений.
func Reduce(state State, action Action) State {
	switch action.Kind {
	case KindSetCurrentUser:
		state.CurrentUser = action.User
	case KindSetWinnersThisWeek:
		state.WinnersThisWeek = action.Winners
	case KindSetWinnersLastWeek:
		state.WinnersLastWeek = action.Winners
	}
	return state
}
