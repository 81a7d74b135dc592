// ABOUTME: Handler interface and the closed build-time HandlerRegistry
// ABOUTME: The orchestrator sees every handler only through Invoke
package core

import (
	"context"
	"fmt"

	"github.com/harper/finrouter/internal/models"
)

// HandlerRequest is everything a handler receives for one invocation
type HandlerRequest struct {
	ThreadID    string
	Message     string
	History     []models.Message
	UserContext models.UserContext
	// Prior holds the successful results of earlier handlers in the same plan
	Prior []models.HandlerResult
}

// Handler is a unit of domain capability
type Handler interface {
	Invoke(ctx context.Context, req HandlerRequest) (string, error)
}

// HandlerFunc adapts a plain function to the Handler interface
type HandlerFunc func(ctx context.Context, req HandlerRequest) (string, error)

// Invoke calls f(ctx, req)
func (f HandlerFunc) Invoke(ctx context.Context, req HandlerRequest) (string, error) {
	return f(ctx, req)
}

// HandlerInfo describes a registered handler to the planner
type HandlerInfo struct {
	ID          models.HandlerID `json:"id"`
	Description string           `json:"description"`
}

// Describer is implemented by handlers that can describe what they do
type Describer interface {
	Description() string
}

// Registry is the closed mapping from HandlerID to Handler
type Registry struct {
	handlers map[models.HandlerID]Handler
}

// NewRegistry builds a registry. Unknown ids and nil handlers are rejected.
func NewRegistry(handlers map[models.HandlerID]Handler) (*Registry, error) {
	if len(handlers) == 0 {
		return nil, fmt.Errorf("registry needs at least one handler")
	}
	reg := &Registry{handlers: make(map[models.HandlerID]Handler, len(handlers))}
	for id, h := range handlers {
		if !id.IsValid() {
			return nil, fmt.Errorf("cannot register unknown handler %q", id)
		}
		if h == nil {
			return nil, fmt.Errorf("handler %q is nil", id)
		}
		reg.handlers[id] = h
	}
	return reg, nil
}

// Lookup returns the handler registered for id
func (r *Registry) Lookup(id models.HandlerID) (Handler, bool) {
	h, ok := r.handlers[id]
	return h, ok
}

// Has reports whether id is registered
func (r *Registry) Has(id models.HandlerID) bool {
	_, ok := r.handlers[id]
	return ok
}

// IDs returns the registered ids in HandlerPriority order
func (r *Registry) IDs() []models.HandlerID {
	ids := make([]models.HandlerID, 0, len(r.handlers))
	for _, id := range models.HandlerPriority {
		if r.Has(id) {
			ids = append(ids, id)
		}
	}
	return ids
}

// Catalogue describes every registered handler, in HandlerPriority order
func (r *Registry) Catalogue() []HandlerInfo {
	infos := make([]HandlerInfo, 0, len(r.handlers))
	for _, id := range r.IDs() {
		info := HandlerInfo{ID: id, Description: id.Label()}
		if d, ok := r.handlers[id].(Describer); ok {
			info.Description = d.Description()
		}
		infos = append(infos, info)
	}
	return infos
}
