// Package sensors defines the measurement types produced by the robot's
// odometry, inertial and GNSS collaborators and the events they emit.
package sensors

import "sync"

// Event is a typed notification point. Handlers run synchronously on the
// emitting goroutine, in the order they subscribed.
type Event[T any] struct {
	mu       sync.RWMutex
	nextID   int
	handlers []subscription[T]
}

type subscription[T any] struct {
	id int
	fn func(T)
}

// Subscribe registers fn and returns a function that removes it again.
func (e *Event[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.nextID
	e.nextID++
	e.handlers = append(e.handlers, subscription[T]{id: id, fn: fn})
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		for i, s := range e.handlers {
			if s.id == id {
				e.handlers = append(e.handlers[:i:i], e.handlers[i+1:]...)
				return
			}
		}
	}
}

// Emit delivers v to every subscribed handler.
func (e *Event[T]) Emit(v T) {
	e.mu.RLock()
	handlers := make([]func(T), len(e.handlers))
	for i, s := range e.handlers {
		handlers[i] = s.fn
	}
	e.mu.RUnlock()

	for _, fn := range handlers {
		fn(v)
	}
}

// Subscribers returns the number of registered handlers.
func (e *Event[T]) Subscribers() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.handlers)
}
