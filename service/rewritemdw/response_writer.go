package rewritemdw

import (
	"bytes"
	"net/http"
)

// capturingResponseWriter is a custom implementation of http.ResponseWriter
// that holds the status, headers and body written by the inner handler
// so the response can be inspected before anything reaches the client
type capturingResponseWriter struct {
	// body is the response body written so far
	body *bytes.Buffer
	// header is the response headers set by the inner handler
	header http.Header
	// status is the status code passed to the first WriteHeader call
	status      int
	wroteHeader bool
}

var _ http.ResponseWriter = &capturingResponseWriter{}

// newCapturingResponseWriter creates a new capturingResponseWriter
func newCapturingResponseWriter() *capturingResponseWriter {
	return &capturingResponseWriter{
		body:   new(bytes.Buffer),
		header: make(http.Header),
		status: http.StatusOK,
	}
}

// Header implements the Header method of http.ResponseWriter
func (w *capturingResponseWriter) Header() http.Header {
	return w.header
}

// WriteHeader implements the WriteHeader method of http.ResponseWriter,
// only the first call sets the status, matching net/http
func (w *capturingResponseWriter) WriteHeader(status int) {
	if w.wroteHeader {
		return
	}

	w.status = status
	w.wroteHeader = true
}

// Write implements the Write method of http.ResponseWriter
// it buffers the response content instead of sending it
func (w *capturingResponseWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		// The status will be StatusOK if WriteHeader has not been called yet
		w.WriteHeader(http.StatusOK)
	}

	return w.body.Write(b)
}

// hasContentType reports whether the inner handler set a Content-Type
// header at all, whatever its value. A nil value is net/http's marker
// for a suppressed header and counts as absent.
func (w *capturingResponseWriter) hasContentType() bool {
	values, ok := w.header[http.CanonicalHeaderKey("Content-Type")]
	return ok && values != nil
}

// copyHeaderTo copies the captured headers onto dst
func (w *capturingResponseWriter) copyHeaderTo(dst http.ResponseWriter) {
	for key, values := range w.header {
		dst.Header()[key] = values
	}
}

// flushTo writes the captured response unchanged to dst. Without a
// captured Content-Type, net/http is kept from sniffing one.
func (w *capturingResponseWriter) flushTo(dst http.ResponseWriter) error {
	w.copyHeaderTo(dst)
	if !w.hasContentType() {
		dst.Header()["Content-Type"] = nil
	}
	dst.WriteHeader(w.status)

	_, err := dst.Write(w.body.Bytes())
	return err
}
