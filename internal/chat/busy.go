package chat

import "sync"

// Busy 全局忙碌指示器 / process-wide busy indicator
type Busy struct {
	mu        sync.Mutex
	value     bool
	listeners []func(bool)
}

func (b *Busy) Set(v bool) {
	b.mu.Lock()
	if b.value == v {
		b.mu.Unlock()
		return
	}
	b.value = v
	listeners := append([]func(bool){}, b.listeners...)
	b.mu.Unlock()
	for _, fn := range listeners {
		fn(v)
	}
}

func (b *Busy) Value() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.value
}

func (b *Busy) Subscribe(fn func(bool)) {
	if fn == nil {
		return
	}
	b.mu.Lock()
	b.listeners = append(b.listeners, fn)
	b.mu.Unlock()
}
