package correlation

import (
	"chatapp-client/internal/models"
	"sync"
)

// Registry maps an id that is expected to appear on the event stream to a
// one-shot continuation.
type Registry[T any] struct {
	mutex   sync.Mutex
	pending map[int64]func(T)
}

func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{pending: make(map[int64]func(T))}
}

// Register replaces any continuation already waiting on the id.
func (r *Registry[T]) Register(id int64, continuation func(T)) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.pending[id] = continuation
}

// Resolve runs and clears the continuation for the id. It reports whether one
// was registered.
func (r *Registry[T]) Resolve(id int64, value T) bool {
	r.mutex.Lock()
	continuation, exists := r.pending[id]
	delete(r.pending, id)
	r.mutex.Unlock()

	if !exists {
		return false
	}
	continuation(value)
	return true
}

// Expire drops the registration without running it.
func (r *Registry[T]) Expire(id int64) bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	_, exists := r.pending[id]
	delete(r.pending, id)
	return exists
}

func (r *Registry[T]) Pending(id int64) bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	_, exists := r.pending[id]
	return exists
}

func (r *Registry[T]) Len() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	return len(r.pending)
}

// Correlations holds both namespaces: servers awaited after create or join,
// and blank roles whose creation event must trigger a patch instead of a
// public notification.
type Correlations struct {
	Servers *Registry[*models.Server]
	Roles   *Registry[*models.Role]
}

func New() *Correlations {
	return &Correlations{
		Servers: NewRegistry[*models.Server](),
		Roles:   NewRegistry[*models.Role](),
	}
}
