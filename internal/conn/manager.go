// Package conn holds the lazily established engine connections.
//
// A Manager is either Disconnected or Connected(handle). Connect is the only
// transition into Connected and is serialized: of two concurrent calls exactly
// one dials, the other observes ErrAlreadyConnected. Readers load the handle
// without taking the connect lock, so a slow dial never blocks requests that
// fail fast with ErrNotConnected.
package conn

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/mesh-intelligence/dbbridge/pkg/types"
)

// DialFunc opens a new engine handle.
type DialFunc[T any] func(ctx context.Context) (T, error)

// CloseFunc releases an engine handle.
type CloseFunc[T any] func(ctx context.Context, handle T) error

// Manager owns one engine handle shared by all requests once connected.
type Manager[T any] struct {
	name   string
	dial   DialFunc[T]
	close  CloseFunc[T]
	mu     sync.Mutex // serializes Connect and Close
	handle atomic.Pointer[T]
}

// NewManager returns a disconnected manager. closeFn may be nil.
func NewManager[T any](name string, dial DialFunc[T], closeFn CloseFunc[T]) *Manager[T] {
	return &Manager[T]{name: name, dial: dial, close: closeFn}
}

// Name returns the engine name given at construction.
func (m *Manager[T]) Name() string {
	return m.name
}

// Connect dials the engine and stores the handle.
// Returns ErrAlreadyConnected if a handle is already stored.
func (m *Manager[T]) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.handle.Load() != nil {
		return types.ErrAlreadyConnected
	}

	h, err := m.dial(ctx)
	if err != nil {
		return err
	}
	m.handle.Store(&h)
	return nil
}

// Get returns the connected handle or ErrNotConnected.
func (m *Manager[T]) Get() (T, error) {
	if h := m.handle.Load(); h != nil {
		return *h, nil
	}
	var zero T
	return zero, types.ErrNotConnected
}

// Connected reports whether a handle is stored.
func (m *Manager[T]) Connected() bool {
	return m.handle.Load() != nil
}

// Close releases the handle at process shutdown. It is idempotent and is
// not reachable from the wire protocol.
func (m *Manager[T]) Close(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	h := m.handle.Swap(nil)
	if h == nil || m.close == nil {
		return nil
	}
	return m.close(ctx, *h)
}
