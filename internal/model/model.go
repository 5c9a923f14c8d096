// Package model содержит доменные сущности сайта наград.
package model

import "github.com/shopspring/decimal"

// User представляет запись пользователя, полученную от бэкенда.
type User struct {
	IDWalletAddress  int64   `json:"id_wallet_address,omitempty"`
	WalletAddress    string  `json:"walletAddress"`
	TelegramUsername string  `json:"telegramUsername,omitempty"`
	TwitterUsername  string  `json:"twitterUsername,omitempty"`
	Balance          float64 `json:"balance"`
}

// WithBalance возвращает копию пользователя с новым балансом.
func (u User) WithBalance(balance float64) User {
	u.Balance = balance
	return u
}

// RegisterRequest описывает данные нового пользователя без баланса.
type RegisterRequest struct {
	WalletAddress    string `json:"walletAddress" validate:"required"`
	TelegramUsername string `json:"telegramUsername" validate:"omitempty,max=64"`
	TwitterUsername  string `json:"twitterUsername" validate:"omitempty,max=64"`
}

// Winner описывает строку таблицы лидеров.
type Winner struct {
	Rank             int             `json:"rank"`
	WalletAddress    string          `json:"walletAddress"`
	TelegramUsername string          `json:"telegramUsername"`
	TwitterUsername  string          `json:"twitterUsername"`
	CompletedLevel   int             `json:"completedLevel"`
	Reward           decimal.Decimal `json:"reward"`
}

// Winners содержит победителей текущей и прошлой недели.
type Winners struct {
	ThisWeek []Winner `json:"winnersOfThisWeek"`
	LastWeek []Winner `json:"winnersOfLastWeek"`
}
