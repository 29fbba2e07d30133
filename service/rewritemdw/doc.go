// Package rewritemdw is responsible for the middleware that rewrites the
// envelope carried by a call on its way in and on its way out.

// The primary export is New, which returns a stage.Stage made of two interceptors:
//   - RequestRewriter buffers the request body and, when the request is sent as
//     application/json and holds a valid envelope, appends ". I modified the request."
//     to msg before the inner handler reads it.
//   - ResponseRewriter captures whatever the inner handler writes and, when the
//     response carries any Content-Type header, appends ". I modified the response."
//     to msg before replying to the client.

// The two phases share the same buffer, gate and decode steps but fail differently:
//   - request side failures (wrong content type, bad utf-8, not an envelope) are logged
//     and the original bytes are forwarded untouched
//   - response side failures (bad utf-8, not an envelope) end the call with a
//     MiddlewareError reply, raw inner bytes are never sent to the client

// Each call may carry a CallReport in its context (see WithCallReport); both
// interceptors record their outcome there so outer middleware can log it and
// count it without the interceptors holding any shared state.
package rewritemdw
