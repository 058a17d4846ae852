package procfixture

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// HandlerFunc performs one fault. It may panic with a typed error, exit the
// process, or return normally.
type HandlerFunc func(ctx context.Context)

// Route binds a path to the single handler serving it
type Route struct {
	Path    string
	Fault   Fault
	Handler HandlerFunc
}

// RouteTable is the static path → handler table of the service. Each path
// maps to exactly one handler.
type RouteTable struct {
	mu     sync.RWMutex
	routes map[string]Route
}

// NewRouteTable creates an empty table
func NewRouteTable() *RouteTable {
	return &RouteTable{routes: make(map[string]Route)}
}

// DefaultRoutes registers every fault of the catalogue against inj
func DefaultRoutes(inj *Injector) *RouteTable {
	t := NewRouteTable()
	for _, f := range Faults() {
		if err := t.Register(f.Path(), f, inj.Handler(f)); err != nil {
			panic(err) // catalogue paths are unique and non-empty
		}
	}
	return t
}

// Register adds a route. Paths must start with "/" and be unique.
func (t *RouteTable) Register(path string, f Fault, h HandlerFunc) error {
	if path == "" || !strings.HasPrefix(path, "/") {
		return &OpError{Fault: f, Path: path, Err: ErrInvalidRoute}
	}
	if h == nil {
		return &OpError{Fault: f, Path: path, Err: fmt.Errorf("%w: nil handler", ErrInvalidRoute)}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if existing, ok := t.routes[path]; ok {
		return &OpError{
			Fault: f,
			Path:  path,
			Err:   fmt.Errorf("%w: already bound to %s", ErrDuplicateRoute, existing.Fault),
		}
	}
	t.routes[path] = Route{Path: path, Fault: f, Handler: h}
	return nil
}

// Lookup returns the route bound to path
func (t *RouteTable) Lookup(path string) (Route, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	r, ok := t.routes[path]
	return r, ok
}

// Routes returns all routes sorted by path
func (t *RouteTable) Routes() []Route {
	t.mu.RLock()
	out := make([]Route, 0, len(t.routes))
	for _, r := range t.routes {
		out = append(out, r)
	}
	t.mu.RUnlock()

	sort.Slice(out, func(a, b int) bool { return out[a].Path < out[b].Path })
	return out
}

// Len returns the number of routes
func (t *RouteTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.routes)
}
