package rewritemdw_test

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kava-labs/envelope-rewrite-service/decode"
	"github.com/kava-labs/envelope-rewrite-service/logging"
)

var (
	testServiceLogger = func() *logging.ServiceLogger {
		logger, err := logging.New("ERROR")
		if err != nil {
			panic(err)
		}
		return &logger
	}()
)

// seenRequest is what an inner handler observed about the call
type seenRequest struct {
	called        bool
	body          string
	contentLength int64
	lengthHeader  string
}

// recordingHandler records the request it received and replies with the
// configured status, content type (omitted when empty) and body
func recordingHandler(t *testing.T, seen *seenRequest, status int, contentType string, body string) http.Handler {
	t.Helper()

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		seen.called = true
		seen.body = string(raw)
		seen.contentLength = r.ContentLength
		seen.lengthHeader = r.Header.Get("Content-Length")

		if contentType != "" {
			w.Header().Set("Content-Type", contentType)
		}
		w.WriteHeader(status)
		w.Write([]byte(body))
	})
}

// echoHandler stands in for the application handler: JSON envelopes are
// echoed back as JSON, anything else is echoed back raw with no content type
func echoHandler(seen *seenRequest) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		if seen != nil {
			seen.called = true
			seen.body = string(raw)
		}

		if !decode.IsJSONContentType(r.Header.Get("Content-Type")) {
			w.WriteHeader(http.StatusOK)
			w.Write(raw)
			return
		}

		envelope, err := decode.DecodeEnvelope(raw)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		encoded, err := decode.EncodeEnvelope(envelope)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", decode.JSONContentType)
		w.WriteHeader(http.StatusOK)
		w.Write(encoded)
	})
}

func newTestRequest(body string, contentType string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return req
}

// failingReader fails every read, like a connection dropped mid body
type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("connection reset by peer")
}

// jsonEnvelope returns the wire form of an envelope carrying msg
func jsonEnvelope(msg string) (string, error) {
	encoded, err := decode.EncodeEnvelope(&decode.Envelope{Msg: msg})
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}
