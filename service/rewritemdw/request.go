package rewritemdw

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"go.opentelemetry.io/otel/attribute"

	"github.com/kava-labs/envelope-rewrite-service/decode"
	"github.com/kava-labs/envelope-rewrite-service/logging"
	"github.com/kava-labs/envelope-rewrite-service/service/stage"
)

// RequestRewriter is the pre-processing interceptor, it rewrites
// the envelope in the request body before the inner handler reads it
type RequestRewriter struct {
	suffix string
	*logging.ServiceLogger
}

var _ stage.Stage = (*RequestRewriter)(nil)

// NewRequestRewriter returns a RequestRewriter appending RequestSuffix to msg
func NewRequestRewriter(serviceLogger *logging.ServiceLogger) *RequestRewriter {
	return &RequestRewriter{
		suffix:        RequestSuffix,
		ServiceLogger: serviceLogger,
	}
}

// Wrap implements stage.Stage. Decode failures are absorbed and the
// original bytes forwarded, only a failure to read the body from the
// transport ends the call early.
func (rr *RequestRewriter) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "rewritemdw.request")

		rawBody, err := readRequestBody(r)
		if err != nil {
			span.RecordError(err)
			span.End()

			rr.Logger.Error().
				Str("method", r.Method).
				Str("url", r.URL.String()).
				Err(err).
				Msg("error reading request body")

			mwErr := &MiddlewareError{Phase: PhaseRequest, Err: err}
			recordOutcome(r.Context(), PhaseRequest, OutcomeFailed, err)
			WriteMiddlewareError(w, mwErr)

			return
		}

		body, outcome := rr.rewrite(r, rawBody)

		span.SetAttributes(attribute.String("rewrite.outcome", string(outcome)))
		span.End()

		recordOutcome(r.Context(), PhaseRequest, outcome, nil)
		setRequestBody(r, body)

		next.ServeHTTP(w, r)
	})
}

// rewrite returns the body the inner handler should see and what was done to it
func (rr *RequestRewriter) rewrite(r *http.Request, rawBody []byte) ([]byte, Outcome) {
	contentType := r.Header.Get("Content-Type")

	if !decode.IsJSONContentType(contentType) {
		rr.Trace().Msg(fmt.Sprintf("request content type %q is not %s, forwarding unchanged", contentType, decode.JSONContentType))

		return rawBody, OutcomeSkipped
	}

	envelope, err := decode.DecodeEnvelope(rawBody)
	if err != nil {
		if errors.Is(err, decode.ErrInvalidUTF8) {
			rr.Debug().Msg("request payload not utf-8, continuing")
		} else {
			rr.Debug().Err(err).Msg("request payload not an envelope, continuing")
		}

		return rawBody, OutcomePassthrough
	}

	envelope.Msg = envelope.Msg + rr.suffix

	encoded, err := decode.EncodeEnvelope(envelope)
	if err != nil {
		rr.Logger.Error().Err(err).Msg("error encoding rewritten request envelope, continuing")

		return rawBody, OutcomePassthrough
	}

	rr.Debug().Msg(fmt.Sprintf("rewrote request body %s to %s", rawBody, encoded))

	return encoded, OutcomeRewritten
}

// readRequestBody reads the full request body
func readRequestBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return []byte{}, nil
	}

	rawBody, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading request body: %w", err)
	}

	return rawBody, nil
}

// setRequestBody repopulates the request body for the ultimate consumer
// of this request, keeping any explicit length in step with the new bytes
func setRequestBody(r *http.Request, body []byte) {
	r.Body = io.NopCloser(bytes.NewReader(body))
	r.ContentLength = int64(len(body))

	if r.Header.Get("Content-Length") != "" {
		r.Header.Set("Content-Length", strconv.Itoa(len(body)))
	}
}
