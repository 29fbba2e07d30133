// Package stage defines the contract shared by every interceptor in the
// service's handler pipeline.
//
// A Stage wraps an inner http.Handler and returns the handler that runs in
// its place. Stages are built once at startup and shared by all concurrent
// calls, so a Stage must not keep per-call state on itself; anything a call
// needs lives in that call's request, context or response writer.
package stage

import "net/http"

// Stage wraps an inner handler, observing or transforming the call
type Stage interface {
	Wrap(inner http.Handler) http.Handler
}

// Func adapts an ordinary middleware function to the Stage interface
type Func func(inner http.Handler) http.Handler

// Wrap implements Stage
func (f Func) Wrap(inner http.Handler) http.Handler {
	return f(inner)
}

// Chain composes stages into a single Stage. The first stage is the
// outermost one: it sees the call first and the reply last.
func Chain(stages ...Stage) Stage {
	return Func(func(inner http.Handler) http.Handler {
		handler := inner
		for i := len(stages) - 1; i >= 0; i-- {
			handler = stages[i].Wrap(handler)
		}
		return handler
	})
}
