package rewritemdw

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"go.opentelemetry.io/otel/attribute"

	"github.com/kava-labs/envelope-rewrite-service/decode"
	"github.com/kava-labs/envelope-rewrite-service/logging"
	"github.com/kava-labs/envelope-rewrite-service/service/stage"
)

// ResponseRewriter is the post-processing interceptor, it rewrites the
// envelope in whatever the inner handler replied before the client sees it
type ResponseRewriter struct {
	suffix string
	*logging.ServiceLogger
}

var _ stage.Stage = (*ResponseRewriter)(nil)

// NewResponseRewriter returns a ResponseRewriter appending ResponseSuffix to msg
func NewResponseRewriter(serviceLogger *logging.ServiceLogger) *ResponseRewriter {
	return &ResponseRewriter{
		suffix:        ResponseSuffix,
		ServiceLogger: serviceLogger,
	}
}

// Wrap implements stage.Stage. Responses without any Content-Type header
// are forwarded as is, every other response is either rewritten or
// replaced by the MiddlewareError reply.
func (rr *ResponseRewriter) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		crw := newCapturingResponseWriter()

		next.ServeHTTP(crw, r)

		_, span := tracer.Start(r.Context(), "rewritemdw.response")
		defer span.End()

		if !crw.hasContentType() {
			rr.Trace().Msg("response has no content type, forwarding unchanged")

			span.SetAttributes(attribute.String("rewrite.outcome", string(OutcomeSkipped)))
			recordOutcome(r.Context(), PhaseResponse, OutcomeSkipped, nil)

			if err := crw.flushTo(w); err != nil {
				rr.Logger.Error().Err(err).Msg("error writing response")
			}

			return
		}

		encoded, err := rr.rewrite(crw)
		if err != nil {
			rr.Logger.Error().
				Str("method", r.Method).
				Str("url", r.URL.String()).
				Int("status", crw.status).
				Err(err).
				Msg("response body could not be rewritten")

			span.RecordError(err)
			span.SetAttributes(attribute.String("rewrite.outcome", string(OutcomeFailed)))
			recordOutcome(r.Context(), PhaseResponse, OutcomeFailed, err)

			WriteMiddlewareError(w, &MiddlewareError{Phase: PhaseResponse, Err: err})

			return
		}

		span.SetAttributes(attribute.String("rewrite.outcome", string(OutcomeRewritten)))
		recordOutcome(r.Context(), PhaseResponse, OutcomeRewritten, nil)

		crw.copyHeaderTo(w)
		w.Header().Set("Content-Type", decode.JSONContentType)
		w.Header().Set("Content-Length", strconv.Itoa(len(encoded)))
		w.WriteHeader(crw.status)

		if _, err := w.Write(encoded); err != nil {
			rr.Logger.Error().Err(err).Msg("error writing rewritten response")
		}
	})
}

// rewrite decodes the captured body and returns the re-encoded envelope
func (rr *ResponseRewriter) rewrite(crw *capturingResponseWriter) ([]byte, error) {
	envelope, err := decode.DecodeEnvelope(crw.body.Bytes())
	if err != nil {
		if errors.Is(err, decode.ErrInvalidUTF8) {
			return nil, fmt.Errorf("response payload not utf-8: %w", err)
		}

		return nil, fmt.Errorf("response payload not an envelope: %w", err)
	}

	envelope.Msg = envelope.Msg + rr.suffix

	encoded, err := decode.EncodeEnvelope(envelope)
	if err != nil {
		return nil, fmt.Errorf("error encoding rewritten response envelope: %w", err)
	}

	rr.Debug().Msg(fmt.Sprintf("rewrote response body %s to %s", crw.body.Bytes(), encoded))

	return encoded, nil
}
