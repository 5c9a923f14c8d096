// Package loading реализует индикатор выполнения удалённых операций.
package loading

import "sync/atomic"

// Indicator открывается перед удалённым вызовом и закрывается после него.
type Indicator interface {
	Open()
	Close()
	Active() bool
}

var _ Indicator = (*Counter)(nil)

// Counter считает незавершённые операции. Индикатор активен, пока счётчик больше нуля.
type Counter struct {
	n atomic.Int64
}

// Open увеличивает число активных операций.
func (c *Counter) Open() {
	c.n.Add(1)
}

// Close уменьшает число активных операций, не опускаясь ниже нуля.
func (c *Counter) Close() {
	for {
		cur := c.n.Load()
		if cur <= 0 {
			return
		}
		if c.n.CompareAndSwap(cur, cur-1) {
			return
		}
	}
}

// Active сообщает, выполняется ли сейчас хотя бы одна операция.
func (c *Counter) Active() bool {
	return c.n.Load() > 0
}
