package rewritemdw

import (
	"context"
)

// Phase names the side of the call an interceptor works on
type Phase string

const (
	PhaseRequest  Phase = "request"
	PhaseResponse Phase = "response"
)

// Outcome is what an interceptor did with the body it saw
type Outcome string

const (
	// OutcomeRewritten means msg was modified and the new envelope forwarded
	OutcomeRewritten Outcome = "rewritten"
	// OutcomeSkipped means the content type gate left the body alone
	OutcomeSkipped Outcome = "skipped"
	// OutcomePassthrough means decoding failed and the original bytes were forwarded
	OutcomePassthrough Outcome = "passthrough"
	// OutcomeFailed means the call ended with a MiddlewareError
	OutcomeFailed Outcome = "failed"
)

// CounterKey returns the stats counter name for an outcome in a phase,
// e.g. request_rewritten
func CounterKey(phase Phase, outcome Outcome) string {
	return string(phase) + "_" + string(outcome)
}

// CallReport collects the outcome of each phase of a single call.
// It belongs to exactly one call and is only touched by the goroutine
// serving that call.
type CallReport struct {
	RequestOutcome  Outcome
	ResponseOutcome Outcome
	// Err is the cause of the MiddlewareError, if the call ended with one
	Err error
}

// CounterKeys returns the stats counter names for every phase that recorded an outcome
func (cr *CallReport) CounterKeys() []string {
	keys := make([]string, 0, 2)

	if cr.RequestOutcome != "" {
		keys = append(keys, CounterKey(PhaseRequest, cr.RequestOutcome))
	}
	if cr.ResponseOutcome != "" {
		keys = append(keys, CounterKey(PhaseResponse, cr.ResponseOutcome))
	}

	return keys
}

type callReportContextKey struct{}

// WithCallReport returns a context carrying a new, empty CallReport for one call
func WithCallReport(ctx context.Context) (context.Context, *CallReport) {
	report := &CallReport{}
	return context.WithValue(ctx, callReportContextKey{}, report), report
}

// CallReportFromContext returns the call's report, or nil if none was attached
func CallReportFromContext(ctx context.Context) *CallReport {
	report, _ := ctx.Value(callReportContextKey{}).(*CallReport)
	return report
}

// recordOutcome stores the outcome of a phase in the call's report, if there is one
func recordOutcome(ctx context.Context, phase Phase, outcome Outcome, err error) {
	report := CallReportFromContext(ctx)
	if report == nil {
		return
	}

	switch phase {
	case PhaseRequest:
		report.RequestOutcome = outcome
	case PhaseResponse:
		report.ResponseOutcome = outcome
	}

	if err != nil {
		report.Err = err
	}
}

// KnownCounterKeys returns the counter name of every outcome a phase can
// record, response passthrough is absent since a response that cannot be
// decoded always fails the call
func KnownCounterKeys() []string {
	return []string{
		CounterKey(PhaseRequest, OutcomeRewritten),
		CounterKey(PhaseRequest, OutcomeSkipped),
		CounterKey(PhaseRequest, OutcomePassthrough),
		CounterKey(PhaseRequest, OutcomeFailed),
		CounterKey(PhaseResponse, OutcomeRewritten),
		CounterKey(PhaseResponse, OutcomeSkipped),
		CounterKey(PhaseResponse, OutcomeFailed),
	}
}
