package usecase

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/allisson/publishq/internal/job/domain"
)

// Registry maps job types to handlers. Build one at startup and pass it to the
// processor; every worker process must register the same types.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register adds a handler for jobType. Registering a type again replaces the previous handler.
func (r *Registry) Register(jobType string, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[jobType] = handler
}

// RegisterFunc is Register for plain functions.
func (r *Registry) RegisterFunc(jobType string, fn HandlerFunc) {
	r.Register(jobType, fn)
}

// Lookup returns the handler for jobType.
func (r *Registry) Lookup(jobType string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	handler, ok := r.handlers[jobType]
	return handler, ok
}

// Types returns the registered job types in sorted order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.handlers))
	for jobType := range r.handlers {
		types = append(types, jobType)
	}
	sort.Strings(types)
	return types
}

// Dispatch runs the handler registered for job.Type. An unregistered type
// yields *domain.UnknownTypeError.
func (r *Registry) Dispatch(ctx context.Context, job *domain.Job) (json.RawMessage, error) {
	handler, ok := r.Lookup(job.Type)
	if !ok {
		return nil, &domain.UnknownTypeError{Type: job.Type}
	}
	return handler.Handle(ctx, job)
}

// EchoJobType is the job type EchoHandler is registered under.
const EchoJobType = "system.echo"

// EchoHandler completes with the job payload as result. Registered as
// EchoJobType for smoke-testing a deployment.
func EchoHandler() HandlerFunc {
	return func(ctx context.Context, job *domain.Job) (json.RawMessage, error) {
		return job.Payload, nil
	}
}
