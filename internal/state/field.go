package state

import (
	"sync"

	"go.uber.org/zap"
)

// Field is one typed slot of the store. Subscribers are called synchronously,
// in registration order, after the new value is in place. Notifications are
// delivered in mutation order across every field of the store, so a
// subscriber never sees a value older than one it was already given.
// Subscribers must not mutate the store.
type Field[T any] struct {
	name    string
	mu      *sync.RWMutex
	deliver *sync.Mutex
	value   T
	equal  func(a, b T) bool
	logger *zap.Logger

	subMu  sync.Mutex
	nextID int
	subs   []subscriber[T]
}

type subscriber[T any] struct {
	id int
	fn func(old, new T)
}

func newField[T any](name string, mu *sync.RWMutex, deliver *sync.Mutex, logger *zap.Logger, equal func(a, b T) bool, initial T) *Field[T] {
	return &Field[T]{
		name:    name,
		mu:      mu,
		deliver: deliver,
		value:   initial,
		equal:   equal,
		logger:  logger,
	}
}

// Name returns the field's name, used in logs.
func (f *Field[T]) Name() string { return f.name }

// Get returns the current value.
func (f *Field[T]) Get() T {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.value
}

// Set replaces the value and notifies subscribers. Setting a value equal to
// the current one is a no-op.
func (f *Field[T]) Set(v T) bool {
	return f.update(func(T) (T, bool) { return v, true })
}

// update runs fn under the store lock; fn returns the new value and whether
// to apply it. Notification happens after the data lock is released but
// before the delivery lock is, which keeps readers unblocked while
// subscribers run and orders deliveries like the mutations.
func (f *Field[T]) update(fn func(cur T) (T, bool)) bool {
	f.deliver.Lock()
	defer f.deliver.Unlock()

	f.mu.Lock()
	old := f.value
	next, ok := fn(old)
	if !ok || f.equal(old, next) {
		f.mu.Unlock()
		return false
	}
	f.value = next
	f.mu.Unlock()

	f.notify(old, next)
	return true
}

// Subscribe registers fn and returns a function that removes it.
func (f *Field[T]) Subscribe(fn func(old, new T)) (unsubscribe func()) {
	f.subMu.Lock()
	f.nextID++
	id := f.nextID
	f.subs = append(f.subs, subscriber[T]{id: id, fn: fn})
	f.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.subMu.Lock()
			defer f.subMu.Unlock()
			for i, s := range f.subs {
				if s.id == id {
					f.subs = append(f.subs[:i:i], f.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Subscribers returns the number of registered callbacks.
func (f *Field[T]) Subscribers() int {
	f.subMu.Lock()
	defer f.subMu.Unlock()
	return len(f.subs)
}

func (f *Field[T]) notify(old, next T) {
	f.subMu.Lock()
	subs := append([]subscriber[T](nil), f.subs...)
	f.subMu.Unlock()

	for _, s := range subs {
		f.call(s, old, next)
	}
}

func (f *Field[T]) call(s subscriber[T], old, next T) {
	defer func() {
		if r := recover(); r != nil {
			f.logger.Error("subscriber panicked",
				zap.String("field", f.name),
				zap.Any("panic", r))
		}
	}()
	s.fn(old, next)
}

func sameValue[T comparable](a, b T) bool { return a == b }

// sameSlice is reference equality for slices: same backing array start and
// same length. Two empty slices are considered the same.
func sameSlice[E any](a, b []E) bool {
	if len(a) != len(b) {
		return false
	}
	if len(a) == 0 {
		return true
	}
	return &a[0] == &b[0]
}
