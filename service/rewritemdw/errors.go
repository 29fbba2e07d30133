package rewritemdw

import (
	"net/http"
)

const (
	// MiddlewareErrorMessage is the display text of every MiddlewareError
	// and the body of the reply sent for one
	MiddlewareErrorMessage = "middleware error"
	// MiddlewareErrorStatus is the status code of the reply sent for a MiddlewareError
	MiddlewareErrorStatus = http.StatusInternalServerError
)

// MiddlewareError is the single terminal error kind of the rewrite stage.
// Callers only ever see MiddlewareErrorMessage, the wrapped cause
// is kept for logging.
type MiddlewareError struct {
	Phase Phase
	Err   error
}

var _ error = (*MiddlewareError)(nil)

func (e *MiddlewareError) Error() string {
	return MiddlewareErrorMessage
}

func (e *MiddlewareError) Unwrap() error {
	return e.Err
}

// WriteMiddlewareError replies to the client with the fixed
// failure response for err
func WriteMiddlewareError(w http.ResponseWriter, err *MiddlewareError) {
	http.Error(w, err.Error(), MiddlewareErrorStatus)
}
