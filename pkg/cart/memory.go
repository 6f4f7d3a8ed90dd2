package cart

import (
	"context"
	"sync"
)

// MemoryBackend is a process-local Slot and Bus. Every widget instance served
// by the same process shares it. Notifications are delivered asynchronously
// and in publish order to each subscriber, so a publisher never runs
// subscriber code on its own goroutine.
type MemoryBackend struct {
	mu     sync.RWMutex
	values map[string]string
	subs   map[string]map[int]*memorySubscriber
	nextID int
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		values: make(map[string]string),
		subs:   make(map[string]map[int]*memorySubscriber),
	}
}

func (m *MemoryBackend) Load(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryBackend) Save(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

// Delete removes a stored value without notifying subscribers, like a
// browser wiping storage.
func (m *MemoryBackend) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
}

func (m *MemoryBackend) Publish(_ context.Context, key string, change Change) error {
	m.mu.RLock()
	targets := make([]*memorySubscriber, 0, len(m.subs[key]))
	for _, s := range m.subs[key] {
		targets = append(targets, s)
	}
	m.mu.RUnlock()

	for _, s := range targets {
		s.enqueue(change)
	}
	return nil
}

func (m *MemoryBackend) Subscribe(_ context.Context, key string, fn func(Change)) (func(), error) {
	sub := newMemorySubscriber(fn)

	m.mu.Lock()
	id := m.nextID
	m.nextID++
	if m.subs[key] == nil {
		m.subs[key] = make(map[int]*memorySubscriber)
	}
	m.subs[key][id] = sub
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs[key], id)
			if len(m.subs[key]) == 0 {
				delete(m.subs, key)
			}
			m.mu.Unlock()
			sub.close()
		})
	}, nil
}

// memorySubscriber owns an unbounded FIFO drained by a single goroutine.
type memorySubscriber struct {
	fn     func(Change)
	mu     sync.Mutex
	queue  []Change
	closed bool
	wake   chan struct{}
}

func newMemorySubscriber(fn func(Change)) *memorySubscriber {
	s := &memorySubscriber{fn: fn, wake: make(chan struct{}, 1)}
	go s.run()
	return s
}

func (s *memorySubscriber) enqueue(c Change) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, c)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *memorySubscriber) close() {
	s.mu.Lock()
	s.closed = true
	s.queue = nil
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *memorySubscriber) run() {
	for range s.wake {
		for {
			s.mu.Lock()
			if s.closed {
				s.mu.Unlock()
				return
			}
			if len(s.queue) == 0 {
				s.mu.Unlock()
				break
			}
			next := s.queue[0]
			s.queue = s.queue[1:]
			s.mu.Unlock()

			s.fn(next)
		}
	}
}
