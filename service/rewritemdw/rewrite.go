package rewritemdw

import (
	"go.opentelemetry.io/otel"

	"github.com/kava-labs/envelope-rewrite-service/logging"
	"github.com/kava-labs/envelope-rewrite-service/service/stage"
)

const (
	RequestSuffix  = ". I modified the request."
	ResponseSuffix = ". I modified the response."
)

var tracer = otel.Tracer("github.com/kava-labs/envelope-rewrite-service/service/rewritemdw")

// New returns the rewrite stage: the request rewriter runs first and
// wraps the response rewriter, which in turn wraps the inner handler
func New(serviceLogger *logging.ServiceLogger) stage.Stage {
	return stage.Chain(
		NewRequestRewriter(serviceLogger),
		NewResponseRewriter(serviceLogger),
	)
}
