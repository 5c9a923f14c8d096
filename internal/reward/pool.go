// Package reward предоставляет баланс пула наград для таблицы лидеров.
package reward

import (
	"context"

	"github.com/shopspring/decimal"
)

// Pool возвращает текущий баланс пула наград.
type Pool interface {
	Balance(ctx context.Context) (decimal.Decimal, error)
}

// Static возвращает баланс пула, заданный конфигурацией.
type Static struct {
	balance decimal.Decimal
}

// NewStatic создаёт пул с фиксированным балансом.
func NewStatic(balance decimal.Decimal) *Static {
	return &Static{balance: balance}
}

// Balance возвращает баланс пула.
func (s *Static) Balance(_ context.Context) (decimal.Decimal, error) {
	return s.balance, nil
}
