package router

import (
	"net/http"
	"slices"
	"sync"
)

// Router wraps http.ServeMux with middleware chaining
type Router struct {
	mux    *http.ServeMux
	chain  []Middleware
	routes *routeTable
}

// MethodNotAllowedHandler answers a request whose path is routed under other
// methods. allowed lists those methods.
type MethodNotAllowedHandler func(w http.ResponseWriter, r *http.Request, allowed ...string)

// routeTable records the methods registered per literal pattern. Groups share
// their parent's table.
type routeTable struct {
	mu               sync.RWMutex
	methods          map[string][]string
	methodNotAllowed MethodNotAllowedHandler
}

func (t *routeTable) add(method, pattern string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !slices.Contains(t.methods[pattern], method) {
		t.methods[pattern] = append(t.methods[pattern], method)
	}
}

func (t *routeTable) allowed(path string) ([]string, MethodNotAllowedHandler) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Clone(t.methods[path]), t.methodNotAllowed
}

// Middleware is a function that wraps an http.Handler
type Middleware func(http.Handler) http.Handler

// New creates a new Router with optional global middleware
func New(middleware ...Middleware) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		chain:  middleware,
		routes: &routeTable{methods: make(map[string][]string)},
	}
}

// ServeHTTP implements http.Handler
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Get registers a GET route
func (r *Router) Get(pattern string, handler http.HandlerFunc, middleware ...Middleware) {
	r.handle(http.MethodGet, pattern, handler, middleware)
}

// Post registers a POST route
func (r *Router) Post(pattern string, handler http.HandlerFunc, middleware ...Middleware) {
	r.handle(http.MethodPost, pattern, handler, middleware)
}

// Handle registers a route with explicit method
func (r *Router) Handle(method, pattern string, handler http.Handler, middleware ...Middleware) {
	r.mux.Handle(method+" "+pattern, r.wrap(handler, middleware))
	r.routes.add(method, pattern)
}

// handle is the internal route registration function
func (r *Router) handle(method, pattern string, handler http.HandlerFunc, middleware []Middleware) {
	r.Handle(method, pattern, handler, middleware...)
}

// wrap applies middleware to a handler in reverse order
func (r *Router) wrap(handler http.Handler, middleware []Middleware) http.Handler {
	// Combine global middleware chain with route-specific middleware
	combined := append(slices.Clone(r.chain), middleware...)

	// Apply middleware in reverse order so they execute in the order defined
	slices.Reverse(combined)

	result := handler
	for _, m := range combined {
		result = m(result)
	}

	return result
}

// Group creates a sub-router with additional middleware
func (r *Router) Group(middleware ...Middleware) *Router {
	return &Router{
		mux:    r.mux,
		chain:  append(slices.Clone(r.chain), middleware...),
		routes: r.routes,
	}
}

// NotFound registers the handler for requests no route matches. A request
// whose path is registered under another method goes to the handler set with
// MethodNotAllowed instead, when there is one.
func (r *Router) NotFound(handler http.HandlerFunc) {
	routes := r.routes
	r.mux.Handle("/", r.wrap(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if allowed, h := routes.allowed(req.URL.Path); len(allowed) > 0 && h != nil {
			h(w, req, allowed...)
			return
		}
		handler(w, req)
	}), nil))
}

// MethodNotAllowed sets the handler for requests to a known path with an
// unregistered method. It only takes effect together with NotFound.
func (r *Router) MethodNotAllowed(handler MethodNotAllowedHandler) {
	r.routes.mu.Lock()
	defer r.routes.mu.Unlock()
	r.routes.methodNotAllowed = handler
}
