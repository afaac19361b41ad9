package crdt

import (
	"sync"
	"time"
)

// Clock источник логического времени в миллисекундах с начала эпохи.
type Clock interface {
	Now() int64
}

// MonotonicClock часы, которые никогда не возвращают одно и то же значение дважды
// и не идут назад, даже если системное время откатилось.
type MonotonicClock struct {
	wall func() time.Time
	last int64
	mu   sync.Mutex
}

// NewMonotonicClock создает часы поверх системного времени.
func NewMonotonicClock() *MonotonicClock {
	return &MonotonicClock{wall: time.Now}
}

// NewMonotonicClockFrom создает часы поверх заданного источника времени.
// Используется в тестах.
func NewMonotonicClockFrom(wall func() time.Time) *MonotonicClock {
	return &MonotonicClock{wall: wall}
}

// Now возвращает max(wall, last+1).
func (c *MonotonicClock) Now() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.wall().UnixMilli()
	if now <= c.last {
		now = c.last + 1
	}
	c.last = now
	return now
}

// ManualClock часы с ручным управлением для тестов.
type ManualClock struct {
	now int64
	mu  sync.Mutex
}

// NewManualClock создает часы, показывающие start.
func NewManualClock(start int64) *ManualClock {
	return &ManualClock{now: start}
}

// Now возвращает текущее значение без изменения.
func (c *ManualClock) Now() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

// Set устанавливает текущее время.
func (c *ManualClock) Set(ms int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = ms
}

// Advance сдвигает время вперед на d.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now += d.Milliseconds()
}
