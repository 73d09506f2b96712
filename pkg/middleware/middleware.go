// Package middleware provides an ordered HTTP middleware stack and the
// middleware shared by emoclassify's HTTP modules.
package middleware

import "net/http"

// Middleware wraps an http.Handler.
type Middleware func(http.Handler) http.Handler

// System manages an ordered stack of HTTP middleware. The first middleware
// added is the outermost.
type System interface {
	Use(mw Middleware)
	Apply(handler http.Handler) http.Handler
}

type stack struct {
	items []Middleware
}

// New creates an empty middleware System.
func New() System {
	return &stack{}
}

func (s *stack) Use(mw Middleware) {
	s.items = append(s.items, mw)
}

func (s *stack) Apply(handler http.Handler) http.Handler {
	for i := len(s.items) - 1; i >= 0; i-- {
		handler = s.items[i](handler)
	}
	return handler
}
