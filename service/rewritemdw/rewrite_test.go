package rewritemdw_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kava-labs/envelope-rewrite-service/service/rewritemdw"
	"github.com/kava-labs/envelope-rewrite-service/service/stage"
)

func TestUnitTestRewriteStageRewritesBothDirections(t *testing.T) {
	seen := &seenRequest{}
	handler := rewritemdw.New(testServiceLogger).Wrap(echoHandler(seen))

	req := newTestRequest(`{"msg":"hi"}`, "application/json")
	ctx, report := rewritemdw.WithCallReport(req.Context())
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req.WithContext(ctx))

	assert.Equal(t, `{"msg":"hi. I modified the request."}`, seen.body)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, `{"msg":"hi. I modified the request.. I modified the response."}`, rec.Body.String())
	assert.Equal(t, []string{"request_rewritten", "response_rewritten"}, report.CounterKeys())
}

func TestUnitTestRewriteStageLeavesNonJSONCallsUntouched(t *testing.T) {
	seen := &seenRequest{}
	handler := rewritemdw.New(testServiceLogger).Wrap(echoHandler(seen))

	req := newTestRequest(`{"msg":"hi"}`, "text/plain")
	ctx, report := rewritemdw.WithCallReport(req.Context())
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req.WithContext(ctx))

	assert.Equal(t, `{"msg":"hi"}`, seen.body)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `{"msg":"hi"}`, rec.Body.String())
	assert.Equal(t, []string{"request_skipped", "response_skipped"}, report.CounterKeys())
}

func TestUnitTestRewriteStageFailsMalformedJSONOnTheResponseSide(t *testing.T) {
	seen := &seenRequest{}
	handler := rewritemdw.New(testServiceLogger).Wrap(echoHandler(seen))

	req := newTestRequest("not json", "application/json")
	ctx, report := rewritemdw.WithCallReport(req.Context())
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req.WithContext(ctx))

	// the request side lets the bytes through, the echo handler rejects
	// them and the error reply it sends carries a content type
	assert.Equal(t, "not json", seen.body)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "middleware error\n", rec.Body.String())
	assert.Equal(t, []string{"request_passthrough", "response_failed"}, report.CounterKeys())
	assert.ErrorContains(t, report.Err, "response payload not an envelope")
}

func TestUnitTestRewriteStageIsNotIdempotent(t *testing.T) {
	handler := stage.Chain(
		rewritemdw.New(testServiceLogger),
		rewritemdw.New(testServiceLogger),
	).Wrap(echoHandler(nil))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, newTestRequest(`{"msg":"hi"}`, "application/json"))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t,
		`{"msg":"hi. I modified the request.. I modified the request.. I modified the response.. I modified the response."}`,
		rec.Body.String(),
	)
}

func TestUnitTestChainedRewriteStagesLeaveNonJSONCallsUntouched(t *testing.T) {
	handler := stage.Chain(
		rewritemdw.New(testServiceLogger),
		rewritemdw.New(testServiceLogger),
	).Wrap(echoHandler(nil))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, newTestRequest("hi", "text/plain"))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hi", rec.Body.String())
	assert.Empty(t, rec.Header().Values("Content-Type"))
}

func TestUnitTestRewriteStageServesConcurrentCallsIndependently(t *testing.T) {
	handler := rewritemdw.New(testServiceLogger).Wrap(echoHandler(nil))

	const calls = 64

	var wg sync.WaitGroup
	bodies := make([]string, calls)
	codes := make([]int, calls)

	for i := 0; i < calls; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			body, err := jsonEnvelope(fmt.Sprintf("call %d", i))
			if err != nil {
				return
			}

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, newTestRequest(body, "application/json"))

			bodies[i] = rec.Body.String()
			codes[i] = rec.Code
		}(i)
	}

	wg.Wait()

	for i := 0; i < calls; i++ {
		want, err := jsonEnvelope(fmt.Sprintf("call %d", i) + rewritemdw.RequestSuffix + rewritemdw.ResponseSuffix)
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, codes[i])
		assert.Equal(t, want, bodies[i])
	}
}
