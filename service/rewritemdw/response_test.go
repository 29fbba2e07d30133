package rewritemdw_test

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kava-labs/envelope-rewrite-service/service/rewritemdw"
)

func TestUnitTestResponseRewriterAppendsSuffixToEnvelopeResponses(t *testing.T) {
	seen := &seenRequest{}
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen.called = true
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Inner", "kept")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"msg":"hi"}`))
	})
	handler := rewritemdw.NewResponseRewriter(testServiceLogger).Wrap(inner)

	req := newTestRequest(`{"msg":"hi"}`, "application/json")
	ctx, report := rewritemdw.WithCallReport(req.Context())
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req.WithContext(ctx))

	require.True(t, seen.called)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, `{"msg":"hi. I modified the response."}`, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, strconv.Itoa(rec.Body.Len()), rec.Header().Get("Content-Length"))
	assert.Equal(t, "kept", rec.Header().Get("X-Inner"))
	assert.Equal(t, rewritemdw.OutcomeRewritten, report.ResponseOutcome)
	assert.NoError(t, report.Err)
}

func TestUnitTestResponseRewriterRewritesWhateverTheContentTypeValue(t *testing.T) {
	// the gate is presence of the header only, its value is never checked
	for _, contentType := range []string{"text/plain", "application/json; charset=utf-8", "x/garbage"} {
		t.Run(contentType, func(t *testing.T) {
			handler := rewritemdw.NewResponseRewriter(testServiceLogger).Wrap(
				recordingHandler(t, &seenRequest{}, http.StatusOK, contentType, `{"msg":"x"}`),
			)
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, newTestRequest("", ""))

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, `{"msg":"x. I modified the response."}`, rec.Body.String())
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		})
	}
}

func TestUnitTestResponseRewriterForwardsResponsesWithoutContentTypeUnchanged(t *testing.T) {
	for _, tc := range []struct {
		name   string
		status int
		body   string
	}{
		{name: "envelope", status: http.StatusOK, body: `{"msg":"x"}`},
		{name: "plain text", status: http.StatusOK, body: "plain"},
		{name: "invalid utf-8", status: http.StatusOK, body: string([]byte{0xff, 0xfe})},
		{name: "error status", status: http.StatusTeapot, body: "short and stout"},
		{name: "empty", status: http.StatusNoContent, body: ""},
	} {
		t.Run(tc.name, func(t *testing.T) {
			inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("X-Inner", "kept")
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			})
			handler := rewritemdw.NewResponseRewriter(testServiceLogger).Wrap(inner)

			req := newTestRequest("", "")
			ctx, report := rewritemdw.WithCallReport(req.Context())
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req.WithContext(ctx))

			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.body, rec.Body.String())
			assert.Equal(t, "kept", rec.Header().Get("X-Inner"))
			assert.Empty(t, rec.Header().Values("Content-Type"))
			assert.Equal(t, rewritemdw.OutcomeSkipped, report.ResponseOutcome)
		})
	}
}

func TestUnitTestResponseRewriterForwardsImplicitOkWithoutContentType(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	handler := rewritemdw.NewResponseRewriter(testServiceLogger).Wrap(inner)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, newTestRequest("", ""))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestUnitTestResponseRewriterRepliesMiddlewareErrorForUndecodableBodies(t *testing.T) {
	for _, tc := range []struct {
		name       string
		status     int
		body       string
		wantErrMsg string
	}{
		{name: "not json", status: http.StatusOK, body: "oops", wantErrMsg: "response payload not an envelope"},
		{name: "invalid utf-8", status: http.StatusOK, body: string([]byte{'{', 0xff, '}'}), wantErrMsg: "response payload not utf-8"},
		{name: "extra field", status: http.StatusOK, body: `{"msg":"x","more":1}`, wantErrMsg: "response payload not an envelope"},
		{name: "empty body", status: http.StatusOK, body: "", wantErrMsg: "response payload not an envelope"},
		{name: "inner error reply", status: http.StatusBadRequest, body: "bad request\n", wantErrMsg: "response payload not an envelope"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			handler := rewritemdw.NewResponseRewriter(testServiceLogger).Wrap(
				recordingHandler(t, &seenRequest{}, tc.status, "application/json", tc.body),
			)

			req := newTestRequest("", "")
			ctx, report := rewritemdw.WithCallReport(req.Context())
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req.WithContext(ctx))

			assert.Equal(t, rewritemdw.MiddlewareErrorStatus, rec.Code)
			assert.Equal(t, rewritemdw.MiddlewareErrorMessage+"\n", rec.Body.String())
			assert.Equal(t, rewritemdw.OutcomeFailed, report.ResponseOutcome)
			assert.ErrorContains(t, report.Err, tc.wantErrMsg)
		})
	}
}
