package service

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/negroni"

	"github.com/kava-labs/envelope-rewrite-service/clients/database"
	"github.com/kava-labs/envelope-rewrite-service/logging"
	"github.com/kava-labs/envelope-rewrite-service/service/rewritemdw"
)

type contextKey string

const (
	RequestIDContextKey contextKey = "X-ENVELOPE-REWRITE-REQUEST-ID"
	RequestIDHeaderName            = "X-Request-ID"
)

// createRequestIDMiddleware adds a unique request id to each request,
// stored in the context and set as the X-Request-ID response header
func createRequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.New().String()

		ctx := context.WithValue(r.Context(), RequestIDContextKey, requestID)
		w.Header().Set(RequestIDHeaderName, requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID returns the request id from the context,
// or an empty string if none was set
func GetRequestID(ctx context.Context) string {
	requestID, _ := ctx.Value(RequestIDContextKey).(string)
	return requestID
}

// createRequestLoggingMiddleware returns a middleware that logs
// every request along with the status and latency of its response
func createRequestLoggingMiddleware(serviceLogger *logging.ServiceLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestAt := time.Now()

			lrw := negroni.NewResponseWriter(w)

			next.ServeHTTP(lrw, r)

			serviceLogger.Info().
				Str("request_id", GetRequestID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("remote_addr", r.RemoteAddr).
				Int("status", lrw.Status()).
				Int("size", lrw.Size()).
				Dur("latency", time.Since(requestAt)).
				Msg("request completed")
		})
	}
}

// createTimeoutMiddleware bounds each request with a context deadline,
// handlers must watch the context for the deadline to take effect.
// Stalled body reads are cut off by the server's ReadTimeout instead.
func createTimeoutMiddleware(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// createMetricMiddleware attaches a CallReport to each call through next
// and once the reply is flushed counts its outcomes in the stats store
// and stores a RewriteMetric for it in the metrics database
func createMetricMiddleware(next http.Handler, service *EnvelopeService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestAt := time.Now()

		ctx, report := rewritemdw.WithCallReport(r.Context())
		lrw := negroni.NewResponseWriter(w)

		next.ServeHTTP(lrw, r.WithContext(ctx))

		latency := time.Since(requestAt)

		// send the reply before talking to the stats store and database
		lrw.Flush()

		// the client may be gone by now, the metrics are still recorded
		metricsCtx := context.WithoutCancel(ctx)

		for _, key := range report.CounterKeys() {
			if err := service.Stats.Increment(metricsCtx, key); err != nil {
				service.Error().Err(err).Str("counter", key).Msg("error incrementing rewrite outcome counter")
			}
		}

		event := service.Debug().
			Str("request_id", GetRequestID(ctx)).
			Str("request_outcome", string(report.RequestOutcome)).
			Str("response_outcome", string(report.ResponseOutcome))
		if report.Err != nil {
			event = event.AnErr("cause", report.Err)
		}
		event.Msg(fmt.Sprintf("rewrite stage completed in %v", latency))

		metric := &database.RewriteMetric{
			RequestID:                   GetRequestID(ctx),
			Method:                      r.Method,
			RequestOutcome:              string(report.RequestOutcome),
			ResponseOutcome:             string(report.ResponseOutcome),
			StatusCode:                  lrw.Status(),
			ResponseLatencyMilliseconds: latency.Milliseconds(),
			Hostname:                    r.Host,
			RequestIP:                   remoteIP(r),
			RequestTime:                 requestAt,
		}
		if userAgent := r.UserAgent(); userAgent != "" {
			metric.UserAgent = &userAgent
		}

		if err := service.Database.SaveRewriteMetric(metricsCtx, metric); err != nil {
			service.Error().Err(err).Msg("error saving rewrite metric")
		}
	}
}

// remoteIP returns the ip address of the client that sent r
func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
